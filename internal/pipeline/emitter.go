package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/profilelens/internal/config"
	"github.com/sanspareilsmyn/profilelens/internal/profile"
	"github.com/sanspareilsmyn/profilelens/internal/value"
)

const writeTimeout = 10 * time.Second

// MessageWriter is the part of kafka.Writer the emitter needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the JSON document written for each measurement.
type Envelope struct {
	ID        string                 `json:"id"`
	Profile   string                 `json:"profile"`
	Entity    string                 `json:"entity"`
	Period    profile.Period         `json:"period"`
	Value     value.Value            `json:"value"`
	Groups    []value.Value          `json:"groups,omitempty"`
	Triage    map[string]value.Value `json:"triage,omitempty"`
	EmittedAt time.Time              `json:"emittedAt"`
}

func NewEnvelope(m profile.Measurement, id uuid.UUID, emittedAt time.Time) Envelope {
	return Envelope{
		ID:        id.String(),
		Profile:   m.Profile(),
		Entity:    m.Entity(),
		Period:    m.Period(),
		Value:     m.Value(),
		Groups:    m.Groups(),
		Triage:    m.Triage(),
		EmittedAt: emittedAt.UTC(),
	}
}

// Emitter writes measurements to the output topic, keyed by entity so all
// measurements of one entity land on the same partition.
type Emitter struct {
	writer MessageWriter
	input  <-chan profile.Measurement
	logger *zap.Logger
	clock  func() time.Time
	newID  func() uuid.UUID
}

// NewEmitter creates an emitter backed by a kafka-go writer.
func NewEmitter(cfg config.KafkaConfig, input <-chan profile.Measurement, logger *zap.Logger) (*Emitter, error) {
	if len(cfg.Brokers) == 0 || cfg.OutputTopic == "" {
		logger.Error("Kafka output configuration validation failed",
			zap.Strings("brokers", cfg.Brokers),
			zap.String("output_topic", cfg.OutputTopic),
		)
		return nil, ErrInvalidKafkaConfig
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.OutputTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Logger:       kafkaZapLogger{logger.Named("kafka-writer").WithOptions(zap.AddCallerSkip(1))},
		ErrorLogger:  kafkaZapErrorLogger{logger.Named("kafka-writer-error").WithOptions(zap.AddCallerSkip(1))},
	}

	logger.Info("Kafka emitter created",
		zap.String("output_topic", cfg.OutputTopic),
		zap.Strings("brokers", cfg.Brokers),
	)
	return newEmitter(w, input, logger), nil
}

func newEmitter(writer MessageWriter, input <-chan profile.Measurement, logger *zap.Logger) *Emitter {
	return &Emitter{
		writer: writer,
		input:  input,
		logger: logger,
		clock:  time.Now,
		newID:  uuid.New,
	}
}

// Run writes measurements until the input channel is closed. It keeps
// draining after ctx is cancelled so the final flush reaches the topic;
// writes are then bounded by writeTimeout instead of ctx.
func (e *Emitter) Run(ctx context.Context) error {
	sugar := e.logger.Sugar()
	sugar.Info("Starting emitter loop...")
	defer func() {
		if err := e.writer.Close(); err != nil {
			sugar.Errorw("Failed to close Kafka writer cleanly", zap.Error(err))
		}
		sugar.Info("Emitter loop stopped.")
	}()

	for m := range e.input {
		if err := e.emit(ctx, m); err != nil {
			e.logger.Error("Failed to emit measurement",
				zap.String("profile", m.Profile()),
				zap.String("entity", m.Entity()),
				zap.Int64("period_id", m.Period().ID()),
				zap.Error(err),
			)
		}
	}
	sugar.Info("Emitter input channel closed.")
	return nil
}

func (e *Emitter) emit(ctx context.Context, m profile.Measurement) error {
	payload, err := json.Marshal(NewEnvelope(m, e.newID(), e.clock()))
	if err != nil {
		measurementEmitFailures.WithLabelValues(m.Profile(), "encode").Inc()
		return fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(m.Entity()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "profile", Value: []byte(m.Profile())},
		},
	}
	if err := e.writer.WriteMessages(writeCtx, msg); err != nil {
		measurementEmitFailures.WithLabelValues(m.Profile(), "write").Inc()
		return fmt.Errorf("%w: %w", ErrKafkaWriteFailed, err)
	}

	measurementsEmitted.WithLabelValues(m.Profile()).Inc()
	e.logger.Debug("Emitted measurement",
		zap.String("profile", m.Profile()),
		zap.String("entity", m.Entity()),
		zap.Int64("period_id", m.Period().ID()),
	)
	return nil
}
