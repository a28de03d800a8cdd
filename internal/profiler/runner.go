package profiler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/profilelens/internal/expression"
	"github.com/sanspareilsmyn/profilelens/internal/message"
	"github.com/sanspareilsmyn/profilelens/internal/profile"
)

const snippetLength = 50

// Options configures a Runner.
type Options struct {
	PeriodDuration time.Duration
	TTL            time.Duration
	Context        *expression.Context
	Evaluator      expression.Evaluator
	Clock          func() time.Time // optional, defaults to time.Now
}

// Runner routes parsed messages to the profile builders and flushes them
// once per period. It owns the builders; nothing else touches them.
type Runner struct {
	opts        Options
	router      *Router
	distributor *Distributor
	input       <-chan message.DynamicMessage
	output      chan<- profile.Measurement
	logger      *zap.Logger
}

// NewRunner creates a Runner for the given profiles.
func NewRunner(profiles *profile.ProfilerConfig, opts Options, input <-chan message.DynamicMessage, output chan<- profile.Measurement, logger *zap.Logger) (*Runner, error) {
	r := &Runner{
		opts:   opts,
		input:  input,
		output: output,
		logger: logger,
	}

	router, err := NewRouter(RouterConfig{
		Profiles:  profiles,
		Context:   opts.Context,
		Evaluator: opts.Evaluator,
		OnFailure: r.reportFailure,
		Clock:     opts.Clock,
	})
	if err != nil {
		return nil, err
	}

	distributor, err := NewDistributor(DistributorConfig{
		PeriodDuration: opts.PeriodDuration,
		TTL:            opts.TTL,
		Context:        opts.Context,
		Evaluator:      opts.Evaluator,
		OnFailure:      r.reportFailure,
		Clock:          opts.Clock,
	})
	if err != nil {
		return nil, err
	}
	if _, err := profile.FromPeriodID(0, opts.PeriodDuration); err != nil {
		return nil, err
	}

	r.router = router
	r.distributor = distributor

	logger.Info("Profile runner initialized",
		zap.Duration("period_duration", opts.PeriodDuration),
		zap.Duration("ttl", opts.TTL),
		zap.Int("configured_profiles", len(profiles.Profiles)),
		zap.String("timestamp_field", profiles.TimestampField),
	)
	return r, nil
}

// Run starts the runner's processing loop. Every builder is flushed once
// more when the input closes or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	sugar := r.logger.Sugar()
	sugar.Info("Starting profile runner loop...")
	defer sugar.Info("Profile runner loop stopped.")

	periodTicker := time.NewTicker(r.opts.PeriodDuration)
	defer periodTicker.Stop()

	ttlTicker := time.NewTicker(r.opts.TTL)
	defer ttlTicker.Stop()

	for {
		select {
		case msg, ok := <-r.input:
			if !ok {
				sugar.Info("Runner input channel closed. Flushing all profiles...")
				r.emit(r.distributor.Flush())
				return nil
			}
			r.processMessage(msg)

		case tickTime := <-periodTicker.C:
			sugar.Debugw("Period ticker fired, flushing profiles", zap.Time("tick_time", tickTime))
			r.emit(r.distributor.Flush())

		case tickTime := <-ttlTicker.C:
			sugar.Debugw("TTL ticker fired, flushing expired profiles", zap.Time("tick_time", tickTime))
			r.emit(r.distributor.FlushExpired())
			activeBuilders.Set(float64(r.distributor.ActiveCount()))

		case <-ctx.Done():
			sugar.Info("Context cancelled, stopping runner. Flushing all profiles...")
			r.emit(r.distributor.Flush())
			return ctx.Err()
		}
	}
}

// processMessage routes msg and applies it to every matching builder.
func (r *Runner) processMessage(msg message.DynamicMessage) {
	routes, err := r.router.Route(msg)
	if err != nil {
		field := r.router.TimestampField()
		r.logger.Warn("Dropping message",
			zap.Error(err),
			zap.String("timestamp_field", field),
			zap.String("timestamp_snippet", msg.FieldSnippet(field, snippetLength)),
		)
		messagesDropped.WithLabelValues("missing_timestamp").Inc()
		return
	}

	for _, route := range routes {
		if err := r.distributor.Distribute(route); err != nil {
			r.logger.Warn("Failed to apply message to profile",
				zap.String("profile", route.Definition.Name),
				zap.String("entity", route.Entity),
				zap.Int64("timestamp", route.TimestampMillis),
				zap.Error(err),
			)
			messagesDropped.WithLabelValues(dropReason(err)).Inc()
			continue
		}
		messagesRouted.WithLabelValues(route.Definition.Name).Inc()
	}
	activeBuilders.Set(float64(r.distributor.ActiveCount()))
}

func dropReason(err error) string {
	if errors.Is(err, ErrBuilderCreation) {
		return "builder_creation"
	}
	return "apply_failed"
}

// emit sends measurements downstream without blocking the runner.
func (r *Runner) emit(measurements []profile.Measurement) {
	for _, m := range measurements {
		measurementsFlushed.WithLabelValues(m.Profile()).Inc()

		select {
		case r.output <- m:
			r.logger.Debug("Sent measurement",
				zap.String("profile", m.Profile()),
				zap.String("entity", m.Entity()),
				zap.Int64("period_id", m.Period().ID()),
			)
		default:
			measurementsDropped.Inc()
			r.logger.Warn("Runner output channel full, dropping measurement",
				zap.String("profile", m.Profile()),
				zap.String("entity", m.Entity()),
				zap.Int64("period_id", m.Period().ID()),
			)
		}
	}
}

func (r *Runner) reportFailure(f profile.Failure) {
	evaluationFailures.WithLabelValues(f.Profile, string(f.Slot)).Inc()
	r.logger.Warn("Expression failed",
		zap.String("profile", f.Profile),
		zap.String("entity", f.Entity),
		zap.String("slot", string(f.Slot)),
		zap.String("variable", f.Variable),
		zap.String("expression", f.Expression),
		zap.Error(f.Err),
	)
}
