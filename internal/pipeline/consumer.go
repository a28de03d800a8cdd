package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/profilelens/internal/config"
)

type kafkaZapLogger struct {
	log *zap.Logger
}

func (l kafkaZapLogger) Printf(msg string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(msg, args...))
}

type kafkaZapErrorLogger struct {
	log *zap.Logger
}

func (l kafkaZapErrorLogger) Printf(msg string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(msg, args...))
}

// MessageReader is the part of kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads raw telemetry from a Kafka topic using kafka-go library.
// Offsets are committed by the reader as messages are read.
type Consumer struct {
	reader MessageReader
	output chan<- []byte
	logger *zap.Logger
}

// NewConsumer creates and configures a new Kafka consumer instance.
func NewConsumer(cfg config.KafkaConfig, output chan<- []byte, logger *zap.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		logger.Error("Kafka configuration validation failed",
			zap.Strings("brokers", cfg.Brokers),
			zap.String("topic", cfg.Topic),
			zap.String("group_id", cfg.GroupID),
		)
		return nil, ErrInvalidKafkaConfig
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		Logger:      kafkaZapLogger{logger.Named("kafka-reader").WithOptions(zap.AddCallerSkip(1))},
		ErrorLogger: kafkaZapErrorLogger{logger.Named("kafka-reader-error").WithOptions(zap.AddCallerSkip(1))},
	}
	r := kafka.NewReader(readerCfg)

	logger.Info("Kafka consumer created",
		zap.String("topic", cfg.Topic),
		zap.String("group_id", cfg.GroupID),
		zap.Strings("brokers", cfg.Brokers),
	)

	return newConsumer(r, output, logger), nil
}

func newConsumer(reader MessageReader, output chan<- []byte, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: reader,
		output: output,
		logger: logger,
	}
}

// Run starts the consumer message reading loop.
// It blocks until the context is cancelled, the reader is exhausted (io.EOF)
// or an unrecoverable error occurs.
func (c *Consumer) Run(ctx context.Context) error {
	sugar := c.logger.Sugar()
	sugar.Info("Starting Kafka consumer loop...")

	defer func() {
		if err := c.reader.Close(); err != nil {
			sugar.Errorw("Failed to close Kafka reader cleanly", zap.Error(err))
		}
		sugar.Info("Kafka consumer loop stopped.")
	}()

	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				sugar.Info("Kafka reader closed, no more messages.")
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Debug("Context cancelled or deadline exceeded, stopping consumer read loop.", zap.Error(err))
				return context.Canceled
			}
			c.logger.Error("Error reading message from Kafka", zap.Error(err))
			return fmt.Errorf("%w: %w", ErrKafkaFetchFailed, err)
		}
		messagesConsumed.Inc()

		select {
		case c.output <- m.Value:

		case <-ctx.Done():
			c.logger.Debug("Context cancelled while sending message downstream.", zap.Error(ctx.Err()))
			return context.Canceled
		}
	}
}
