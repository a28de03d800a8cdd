package profiler

import (
	"fmt"
	"sort"
	"time"

	"github.com/sanspareilsmyn/profilelens/internal/expression"
	"github.com/sanspareilsmyn/profilelens/internal/profile"
)

// BuilderKey identifies the builder of one entity of one profile.
type BuilderKey struct {
	Profile string
	Entity  string
}

type DistributorConfig struct {
	PeriodDuration time.Duration
	TTL            time.Duration // idle time after which a builder is expired
	Context        *expression.Context
	Evaluator      expression.Evaluator
	OnFailure      profile.FailureHandler
	Clock          func() time.Time
}

type activeBuilder struct {
	builder  *profile.Builder
	lastSeen time.Time
}

// Distributor owns one builder per (profile, entity) and hands routed
// messages to it. It is not safe for concurrent use.
type Distributor struct {
	cfg      DistributorConfig
	builders map[BuilderKey]*activeBuilder
}

func NewDistributor(cfg DistributorConfig) (*Distributor, error) {
	if cfg.Evaluator == nil {
		return nil, ErrMissingEvaluator
	}
	if cfg.TTL <= 0 {
		return nil, ErrInvalidTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Distributor{
		cfg:      cfg,
		builders: make(map[BuilderKey]*activeBuilder),
	}, nil
}

// Distribute applies the routed message to its builder, creating the
// builder on first use.
func (d *Distributor) Distribute(r Route) error {
	key := r.Key()
	active, exists := d.builders[key]
	if !exists {
		b, err := profile.NewBuilder(profile.BuilderConfig{
			Definition:     *r.Definition,
			Entity:         r.Entity,
			PeriodDuration: d.cfg.PeriodDuration,
			Context:        d.cfg.Context,
			Evaluator:      d.cfg.Evaluator,
			OnFailure:      d.cfg.OnFailure,
			Clock:          d.cfg.Clock,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBuilderCreation, err)
		}
		active = &activeBuilder{builder: b}
		d.builders[key] = active
	}

	active.lastSeen = d.cfg.Clock()
	return active.builder.Apply(r.Message, r.TimestampMillis)
}

// Flush flushes every active builder, ordered by profile then entity.
// Builders stay active and keep their state.
func (d *Distributor) Flush() []profile.Measurement {
	var out []profile.Measurement
	for _, key := range d.sortedKeys() {
		if m, ok := d.builders[key].builder.Flush(); ok {
			out = append(out, m)
		}
	}
	return out
}

// FlushExpired flushes the builders that have not seen a message for longer
// than the TTL one last time and then forgets them.
func (d *Distributor) FlushExpired() []profile.Measurement {
	cutoff := d.cfg.Clock().Add(-d.cfg.TTL)

	var out []profile.Measurement
	for _, key := range d.sortedKeys() {
		active := d.builders[key]
		if !active.lastSeen.Before(cutoff) {
			continue
		}
		if m, ok := active.builder.Flush(); ok {
			out = append(out, m)
		}
		delete(d.builders, key)
	}
	return out
}

// ActiveCount is the number of builders currently held.
func (d *Distributor) ActiveCount() int {
	return len(d.builders)
}

// Builder returns the active builder for key, if any.
func (d *Distributor) Builder(key BuilderKey) (*profile.Builder, bool) {
	active, ok := d.builders[key]
	if !ok {
		return nil, false
	}
	return active.builder, true
}

func (d *Distributor) sortedKeys() []BuilderKey {
	keys := make([]BuilderKey, 0, len(d.builders))
	for k := range d.builders {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Profile != keys[j].Profile {
			return keys[i].Profile < keys[j].Profile
		}
		return keys[i].Entity < keys[j].Entity
	})
	return keys
}
