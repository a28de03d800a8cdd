package pipeline

import "errors"

var (
	ErrInvalidKafkaConfig     = errors.New("invalid Kafka configuration provided")
	ErrKafkaFetchFailed       = errors.New("failed to fetch message from Kafka")
	ErrKafkaWriteFailed       = errors.New("failed to write measurement to Kafka")
	ErrConsumerCreationFailed = errors.New("failed to create consumer")
	ErrEmitterCreationFailed  = errors.New("failed to create emitter")
	ErrRunnerCreationFailed   = errors.New("failed to create profile runner")
	ErrConsumerRunFailed      = errors.New("consumer component failed")
	ErrRunnerRunFailed        = errors.New("profile runner component failed")
	ErrEmitterRunFailed       = errors.New("emitter component failed")
	ErrEncodingFailed         = errors.New("failed to encode measurement")
)
