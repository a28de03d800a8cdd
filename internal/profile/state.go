package profile

import "github.com/sanspareilsmyn/profilelens/internal/value"

// State holds the variables accumulated by one builder. Names are kept in
// first-assignment order.
type State struct {
	names  []string
	values map[string]value.Value
}

func NewState() *State {
	return &State{values: make(map[string]value.Value)}
}

// Set binds name to v, keeping the position of an existing binding.
func (s *State) Set(name string, v value.Value) {
	if _, ok := s.values[name]; !ok {
		s.names = append(s.names, name)
	}
	s.values[name] = v
}

func (s *State) Lookup(name string) (value.Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s *State) Names() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}

func (s *State) Len() int { return len(s.names) }

// Snapshot copies the current bindings.
func (s *State) Snapshot() map[string]value.Value {
	out := make(map[string]value.Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
