package profiler

import (
	"fmt"
	"strings"
	"time"

	"github.com/sanspareilsmyn/profilelens/internal/expression"
	"github.com/sanspareilsmyn/profilelens/internal/profile"
)

const (
	SlotOnlyIf  profile.Slot = "onlyif"
	SlotForeach profile.Slot = "foreach"
)

// Message is a telemetry message as the router sees it: its fields are
// expression variables and it may carry an event timestamp.
type Message interface {
	expression.Variables
	TimestampMillis(field string) (int64, bool)
}

// Route says that a message must be applied to the builder of one
// (profile, entity) pair.
type Route struct {
	Definition      *profile.Definition
	Entity          string
	Message         expression.Variables
	TimestampMillis int64
}

// Key identifies the builder a route is delivered to.
func (r Route) Key() BuilderKey {
	return BuilderKey{Profile: r.Definition.Name, Entity: r.Entity}
}

type RouterConfig struct {
	Profiles  *profile.ProfilerConfig
	Context   *expression.Context
	Evaluator expression.Evaluator
	OnFailure profile.FailureHandler
	Clock     func() time.Time
}

// Router selects the profiles a message applies to and derives the entity of
// each from the profile's foreach expression.
type Router struct {
	profiles  *profile.ProfilerConfig
	ctx       *expression.Context
	eval      expression.Evaluator
	onFailure profile.FailureHandler
	clock     func() time.Time
}

func NewRouter(cfg RouterConfig) (*Router, error) {
	if cfg.Profiles == nil {
		return nil, ErrMissingProfiles
	}
	if cfg.Evaluator == nil {
		return nil, ErrMissingEvaluator
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = expression.EmptyContext()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Router{
		profiles:  cfg.Profiles,
		ctx:       ctx,
		eval:      cfg.Evaluator,
		onFailure: cfg.OnFailure,
		clock:     clock,
	}, nil
}

// TimestampField is the message field holding event time, or "" when the
// processing clock is used.
func (r *Router) TimestampField() string {
	return r.profiles.TimestampField
}

// Route returns one route per profile that accepts msg. Profiles whose
// onlyif or foreach expression fails are skipped and reported to the failure
// handler. The only error is ErrMissingTimestamp, when event time is
// configured and msg does not carry it.
func (r *Router) Route(msg Message) ([]Route, error) {
	ts, err := r.timestamp(msg)
	if err != nil {
		return nil, err
	}

	var routes []Route
	for i := range r.profiles.Profiles {
		def := &r.profiles.Profiles[i]
		if !r.accepts(def, msg) {
			continue
		}
		entity, ok := r.entity(def, msg)
		if !ok {
			continue
		}
		routes = append(routes, Route{
			Definition:      def,
			Entity:          entity,
			Message:         msg,
			TimestampMillis: ts,
		})
	}
	return routes, nil
}

func (r *Router) timestamp(msg Message) (int64, error) {
	field := r.TimestampField()
	if field == "" {
		return r.clock().UnixMilli(), nil
	}
	ts, ok := msg.TimestampMillis(field)
	if !ok {
		return 0, fmt.Errorf("%w: field %q", ErrMissingTimestamp, field)
	}
	return ts, nil
}

// accepts evaluates onlyif; a profile without one accepts every message.
func (r *Router) accepts(def *profile.Definition, msg Message) bool {
	if strings.TrimSpace(def.OnlyIf) == "" {
		return true
	}
	v, err := r.eval.Evaluate(r.ctx, def.OnlyIf, msg)
	if err != nil {
		r.fail(def, SlotOnlyIf, def.OnlyIf, err)
		return false
	}
	ok, isBool := v.AsBool()
	if !isBool {
		r.fail(def, SlotOnlyIf, def.OnlyIf, fmt.Errorf("%w: got %s", ErrNonBooleanFilter, v.Kind()))
		return false
	}
	return ok
}

func (r *Router) entity(def *profile.Definition, msg Message) (string, bool) {
	v, err := r.eval.Evaluate(r.ctx, def.Foreach, msg)
	if err != nil {
		r.fail(def, SlotForeach, def.Foreach, err)
		return "", false
	}
	if v.IsNull() {
		r.fail(def, SlotForeach, def.Foreach, ErrNullEntity)
		return "", false
	}
	return v.String(), true
}

func (r *Router) fail(def *profile.Definition, slot profile.Slot, expr string, err error) {
	if r.onFailure == nil {
		return
	}
	r.onFailure(profile.Failure{
		Profile:    def.Name,
		Slot:       slot,
		Variable:   string(slot),
		Expression: expr,
		Err:        err,
	})
}
