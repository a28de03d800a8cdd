package profile

import "github.com/sanspareilsmyn/profilelens/internal/value"

// Measurement is the result of one flushed window. It is never modified after
// creation; accessors return copies.
type Measurement struct {
	profile string
	entity  string
	period  Period
	value   value.Value
	groups  []value.Value
	triage  map[string]value.Value
}

func NewMeasurement(profile, entity string, period Period, v value.Value, groups []value.Value, triage map[string]value.Value) Measurement {
	m := Measurement{
		profile: profile,
		entity:  entity,
		period:  period,
		value:   v,
	}
	if len(groups) > 0 {
		m.groups = make([]value.Value, len(groups))
		copy(m.groups, groups)
	}
	if len(triage) > 0 {
		m.triage = make(map[string]value.Value, len(triage))
		for k, t := range triage {
			m.triage[k] = t
		}
	}
	return m
}

func (m Measurement) Profile() string { return m.profile }

func (m Measurement) Entity() string { return m.entity }

func (m Measurement) Period() Period { return m.period }

func (m Measurement) Value() value.Value { return m.value }

func (m Measurement) Groups() []value.Value {
	out := make([]value.Value, len(m.groups))
	copy(out, m.groups)
	return out
}

func (m Measurement) Triage() map[string]value.Value {
	out := make(map[string]value.Value, len(m.triage))
	for k, v := range m.triage {
		out[k] = v
	}
	return out
}

// TriageValue returns the score of a single triage rule.
func (m Measurement) TriageValue(name string) (value.Value, bool) {
	v, ok := m.triage[name]
	return v, ok
}
