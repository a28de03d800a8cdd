package config

import "errors"

var (
	ErrReadingConfigFile        = errors.New("failed to read config file")
	ErrUnmarshallingConfig      = errors.New("failed to unmarshal config")
	ErrEmptyKafkaBrokers        = errors.New("kafka brokers list cannot be empty")
	ErrEmptyKafkaTopic          = errors.New("kafka topic cannot be empty")
	ErrEmptyKafkaGroupID        = errors.New("kafka groupID cannot be empty")
	ErrEmptyKafkaOutputTopic    = errors.New("kafka outputTopic cannot be empty")
	ErrInvalidPeriodDuration    = errors.New("profiler periodDuration must be at least 1ms")
	ErrInvalidProfileTTL        = errors.New("profiler ttl must be positive")
	ErrEmptyDefinitionsFile     = errors.New("profiler definitionsFile cannot be empty")
	ErrEmptyMetricsAddress      = errors.New("metrics address cannot be empty when metrics are enabled")
	ErrConfigFileMissing        = errors.New("config file not found")
	ErrReadingDefinitionsFile   = errors.New("failed to read profile definitions file")
	ErrInvalidProfileDefinition = errors.New("invalid profile definitions")
)
