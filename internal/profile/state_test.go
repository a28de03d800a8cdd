package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanspareilsmyn/profilelens/internal/value"
)

func TestStateKeepsInsertionOrder(t *testing.T) {
	s := NewState()
	s.Set("z", value.Int(1))
	s.Set("a", value.Int(2))
	s.Set("m", value.Int(3))
	s.Set("z", value.Int(4))

	assert.Equal(t, []string{"z", "a", "m"}, s.Names())
	assert.Equal(t, 3, s.Len())

	v, ok := s.Lookup("z")
	require.True(t, ok)
	assert.True(t, value.Int(4).Equal(v))

	_, ok = s.Lookup("missing")
	assert.False(t, ok)
}

func TestStateSnapshotIsACopy(t *testing.T) {
	s := NewState()
	s.Set("x", value.Int(1))

	snap := s.Snapshot()
	snap["x"] = value.Int(99)
	snap["y"] = value.Int(2)

	v, _ := s.Lookup("x")
	assert.True(t, value.Int(1).Equal(v))
	assert.Equal(t, 1, s.Len())

	names := s.Names()
	names[0] = "changed"
	assert.Equal(t, []string{"x"}, s.Names())
}
