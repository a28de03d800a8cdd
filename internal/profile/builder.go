package profile

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sanspareilsmyn/profilelens/internal/expression"
	"github.com/sanspareilsmyn/profilelens/internal/value"
)

// Slot names the part of a definition an expression belongs to.
type Slot string

const (
	SlotInit    Slot = "init"
	SlotUpdate  Slot = "update"
	SlotResult  Slot = "result/profile"
	SlotTriage  Slot = "result/triage"
	SlotGroupBy Slot = "groupBy"
)

// Failure describes an expression failure that a builder absorbed.
type Failure struct {
	Profile    string
	Entity     string
	Slot       Slot
	Variable   string // variable, triage rule or groupBy index
	Expression string
	Err        error
}

func (f Failure) Error() string {
	return fmt.Sprintf("profile %q entity %q %s[%s]: %v", f.Profile, f.Entity, f.Slot, f.Variable, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// FailureHandler is told about every absorbed failure.
type FailureHandler func(Failure)

// BuilderConfig is everything needed to build one (profile, entity) builder.
type BuilderConfig struct {
	Definition     Definition
	Entity         string
	PeriodDuration time.Duration
	Context        *expression.Context
	Evaluator      expression.Evaluator
	OnFailure      FailureHandler   // optional
	Clock          func() time.Time // optional, defaults to time.Now
}

// Builder accumulates state for one entity of one profile and produces a
// Measurement per flushed window. A Builder must not be used concurrently.
//
// The window opens on the first Apply after construction or after a Flush;
// its period is fixed by that message's timestamp until the next Flush, even
// if later messages carry timestamps from another period.
type Builder struct {
	def       Definition
	entity    string
	duration  time.Duration
	ctx       *expression.Context
	eval      expression.Evaluator
	onFailure FailureHandler
	clock     func() time.Time

	state      *State
	windowOpen bool
	period     Period
	flushed    bool
	last       Period
}

// NewBuilder validates cfg and returns a builder with an empty state.
func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	if err := cfg.Definition.Validate(); err != nil {
		return nil, err
	}
	if _, err := durationToMillis(cfg.PeriodDuration); err != nil {
		return nil, err
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("%w: profile %q: %w", ErrInvalidDefinition, cfg.Definition.Name, ErrMissingEvaluator)
	}

	ctx := cfg.Context
	if ctx == nil {
		ctx = expression.EmptyContext()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Builder{
		def:       cfg.Definition,
		entity:    cfg.Entity,
		duration:  cfg.PeriodDuration,
		ctx:       ctx,
		eval:      cfg.Evaluator,
		onFailure: cfg.OnFailure,
		clock:     clock,
		state:     NewState(),
	}, nil
}

func (b *Builder) ProfileName() string { return b.def.Name }

func (b *Builder) Entity() string { return b.entity }

// Period returns the period of the open window, if any.
func (b *Builder) Period() (Period, bool) {
	return b.period, b.windowOpen
}

// Snapshot copies the current profile state.
func (b *Builder) Snapshot() map[string]value.Value {
	return b.state.Snapshot()
}

// Apply folds a message into the open window, opening one first if needed.
// Expression failures are absorbed and reported to the failure handler; the
// only error is an unusable timestamp, in which case nothing is applied.
func (b *Builder) Apply(msg expression.Variables, tsMillis int64) error {
	if tsMillis < 0 {
		return fmt.Errorf("%w: timestamp %d is before the epoch", ErrInvalidArgument, tsMillis)
	}

	if !b.windowOpen {
		period, err := FromTimestamp(tsMillis, b.duration)
		if err != nil {
			return err
		}
		b.period = period
		b.windowOpen = true
		b.initialize(msg)
	}

	b.update(msg)
	return nil
}

// initialize runs the init expressions in order. The first failure stops the
// pass; bindings made before it are kept and the window stays open.
func (b *Builder) initialize(msg expression.Variables) {
	for _, asn := range b.def.Init {
		v, err := b.eval.Evaluate(b.ctx, asn.Expression, expression.Layer(msg, b.state))
		if err != nil {
			b.fail(SlotInit, asn.Variable, asn.Expression, err)
			return
		}
		b.state.Set(asn.Variable, v)
	}
}

// update runs every update expression; a failure leaves that variable as it
// was and does not stop the others.
func (b *Builder) update(msg expression.Variables) {
	for _, asn := range b.def.Update {
		v, err := b.eval.Evaluate(b.ctx, asn.Expression, expression.Layer(msg, b.state))
		if err != nil {
			b.fail(SlotUpdate, asn.Variable, asn.Expression, err)
			continue
		}
		b.state.Set(asn.Variable, v)
	}
}

// Flush closes the current window. It returns false when the result or a
// groupBy expression fails; a failing triage rule only drops that rule's
// score. The state is kept either way: only the next window's init
// expressions can overwrite it.
func (b *Builder) Flush() (Measurement, bool) {
	period := b.flushPeriod()
	defer func() {
		b.windowOpen = false
		b.last = period
		b.flushed = true
	}()

	special := expression.Map{
		"profile":  value.String(b.def.Name),
		"entity":   value.String(b.entity),
		"start":    value.Int(period.StartTimeMillis()),
		"end":      value.Int(period.EndTimeMillis()),
		"duration": value.Int(period.DurationMillis()),
	}

	result, err := b.eval.Evaluate(b.ctx, b.def.Result.Profile, expression.Layer(b.state, special))
	if err != nil {
		b.fail(SlotResult, "profile", b.def.Result.Profile, err)
		return Measurement{}, false
	}

	scope := expression.Layer(b.state, special, expression.Map{"result": result})

	var triage map[string]value.Value
	if len(b.def.Result.Triage) > 0 {
		triage = make(map[string]value.Value, len(b.def.Result.Triage))
		for _, rule := range b.def.Result.Triage {
			score, err := b.eval.Evaluate(b.ctx, rule.Expression, scope)
			if err != nil {
				b.fail(SlotTriage, rule.Variable, rule.Expression, err)
				continue
			}
			triage[rule.Variable] = score
		}
	}

	var groups []value.Value
	if len(b.def.GroupBy) > 0 {
		groups = make([]value.Value, 0, len(b.def.GroupBy))
		for i, g := range b.def.GroupBy {
			v, err := b.eval.Evaluate(b.ctx, g, scope)
			if err != nil {
				b.fail(SlotGroupBy, strconv.Itoa(i), g, err)
				return Measurement{}, false
			}
			groups = append(groups, v)
		}
	}

	return NewMeasurement(b.def.Name, b.entity, period, result, groups, triage), true
}

// flushPeriod is the open window's period; with no message since the last
// flush it is the period after the last one, and with no message ever it is
// the period containing the clock's current time.
func (b *Builder) flushPeriod() Period {
	if b.windowOpen {
		return b.period
	}
	if b.flushed {
		return b.last.Next()
	}
	p, err := FromTimestamp(b.clock().UnixMilli(), b.duration)
	if err != nil {
		p, _ = FromPeriodID(0, b.duration)
	}
	return p
}

func (b *Builder) fail(slot Slot, variable, expr string, err error) {
	if b.onFailure == nil {
		return
	}
	b.onFailure(Failure{
		Profile:    b.def.Name,
		Entity:     b.entity,
		Slot:       slot,
		Variable:   variable,
		Expression: expr,
		Err:        err,
	})
}
