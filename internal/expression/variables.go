package expression

import (
	"sort"

	"github.com/sanspareilsmyn/profilelens/internal/value"
)

// Variables resolves variable names to values during evaluation.
type Variables interface {
	Lookup(name string) (value.Value, bool)
	Names() []string
}

// Map is a Variables backed by a plain map. Names are returned sorted.
type Map map[string]value.Value

func (m Map) Lookup(name string) (value.Value, bool) {
	v, ok := m[name]
	return v, ok
}

func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type layered []Variables

// Layer stacks scopes so that later scopes shadow earlier ones. Nil scopes
// are ignored.
func Layer(scopes ...Variables) Variables {
	l := make(layered, 0, len(scopes))
	for _, s := range scopes {
		if s != nil {
			l = append(l, s)
		}
	}
	return l
}

func (l layered) Lookup(name string) (value.Value, bool) {
	for i := len(l) - 1; i >= 0; i-- {
		if v, ok := l[i].Lookup(name); ok {
			return v, true
		}
	}
	return value.Null(), false
}

func (l layered) Names() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, s := range l {
		for _, name := range s.Names() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}
