package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/profilelens/internal/config"
	"github.com/sanspareilsmyn/profilelens/internal/message"
	"github.com/sanspareilsmyn/profilelens/internal/profile"
	"github.com/sanspareilsmyn/profilelens/internal/profiler"
)

const channelBufferSize = 100

// Pipeline orchestrates the different stages: consumer, parsing, profiling, emitting.
type Pipeline struct {
	consumer *Consumer
	runner   *profiler.Runner
	emitter  *Emitter
	logger   *zap.Logger

	rawMessages    chan []byte
	parsedMessages chan message.DynamicMessage
	measurements   chan profile.Measurement
}

// New creates and wires up a new profiling pipeline reading from and
// writing to Kafka.
func New(cfg *config.Config, profiles *profile.ProfilerConfig, opts profiler.Options, logger *zap.Logger) (*Pipeline, error) {
	initLogger := logger.Named("pipeline.init")
	initLogger.Debug("Creating pipeline components...")

	p := newChannels(logger)

	emitterInstance, err := NewEmitter(cfg.Kafka, p.measurements, logger.Named("emitter"))
	if err != nil {
		initLogger.Error("Failed to create emitter", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrEmitterCreationFailed, err)
	}

	consumerInstance, err := NewConsumer(cfg.Kafka, p.rawMessages, logger.Named("consumer"))
	if err != nil {
		initLogger.Error("Failed to create consumer", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrConsumerCreationFailed, err)
	}

	if err := p.wire(consumerInstance, emitterInstance, profiles, opts); err != nil {
		initLogger.Error("Failed to create profile runner", zap.Error(err))
		_ = consumerInstance.reader.Close()
		return nil, err
	}

	initLogger.Info("Pipeline instance created successfully")
	return p, nil
}

func newChannels(logger *zap.Logger) *Pipeline {
	return &Pipeline{
		logger:         logger.Named("pipeline"),
		rawMessages:    make(chan []byte, channelBufferSize),
		parsedMessages: make(chan message.DynamicMessage, channelBufferSize),
		measurements:   make(chan profile.Measurement, channelBufferSize),
	}
}

func (p *Pipeline) wire(c *Consumer, e *Emitter, profiles *profile.ProfilerConfig, opts profiler.Options) error {
	runner, err := profiler.NewRunner(profiles, opts, p.parsedMessages, p.measurements, p.logger.Named("runner"))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRunnerCreationFailed, err)
	}
	p.consumer = c
	p.runner = runner
	p.emitter = e
	return nil
}

// Run starts all pipeline components and waits for them to finish. The
// first component error cancels the others; profiles are flushed and
// emitted before Run returns in every case.
func (p *Pipeline) Run(ctx context.Context) error {
	sugar := p.logger.Sugar()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	pipelineErr := make(chan error, 3) // consumer, runner, emitter

	sugar.Info("Pipeline Run: Starting components...")

	wg.Add(4)
	go p.runConsumer(ctx, &wg, pipelineErr)
	go p.runParser(ctx, &wg)
	go p.runRunner(ctx, &wg, pipelineErr)
	go p.runEmitter(ctx, &wg, pipelineErr)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var firstErr error
	select {
	case <-ctx.Done():
		sugar.Info("Pipeline Run: Context cancelled. Waiting for components to finish...")
		firstErr = ctx.Err()
	case err := <-pipelineErr:
		sugar.Errorw("Pipeline Run: Received error from a component, initiating shutdown...", zap.Error(err))
		firstErr = err
		cancel()
	case <-done:
		sugar.Info("Pipeline Run: Input exhausted.")
	}

	<-done
	if firstErr == nil {
		select {
		case err := <-pipelineErr:
			firstErr = err
		default:
		}
	}
	sugar.Info("Pipeline Run: All components finished.")

	if firstErr != nil && !errors.Is(firstErr, context.Canceled) {
		return firstErr
	}
	return nil
}

func (p *Pipeline) runConsumer(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()
	defer close(p.rawMessages)

	if err := p.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("Consumer component exited with error", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", ErrConsumerRunFailed, err)
	}
}

// runParser turns raw payloads into messages; malformed payloads are skipped.
func (p *Pipeline) runParser(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(p.parsedMessages)

	parserLogger := p.logger.Named("parser").Sugar()

	for {
		select {
		case rawMsg, ok := <-p.rawMessages:
			if !ok {
				parserLogger.Debug("Parser finished (raw message channel closed).")
				return
			}

			parsedMsg, err := message.ParseDynamicJSON(rawMsg)
			if err != nil {
				messageParseFailures.Inc()
				parserLogger.Warnw("Failed to parse message, skipping", zap.Error(err))
				continue
			}

			select {
			case p.parsedMessages <- parsedMsg:

			case <-ctx.Done():
				parserLogger.Debugw("Parser context cancelled during send.", zap.Error(ctx.Err()))
				return
			}

		case <-ctx.Done():
			parserLogger.Debugw("Parser context cancelled while waiting for raw message.", zap.Error(ctx.Err()))
			return
		}
	}
}

func (p *Pipeline) runRunner(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()
	defer close(p.measurements)

	if err := p.runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("Profile runner exited with error", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", ErrRunnerRunFailed, err)
	}
}

func (p *Pipeline) runEmitter(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()

	if err := p.emitter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("Emitter component exited with error", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", ErrEmitterRunFailed, err)
	}
}
