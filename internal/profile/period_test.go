package profile

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Thu, Aug 25 2016 13:27:10 GMT
const aug2016 = int64(1472131630748)

func TestFromTimestamp(t *testing.T) {
	tests := []struct {
		name      string
		duration  time.Duration
		wantID    int64
		wantStart int64
	}{
		{name: "one minute", duration: time.Minute, wantID: 24535527, wantStart: 1472131620000},
		{name: "fifteen minutes", duration: 15 * time.Minute, wantID: 1635701, wantStart: 1472130900000},
		{name: "one hour", duration: time.Hour, wantID: 408925, wantStart: 1472130000000},
		{name: "two hours", duration: 2 * time.Hour, wantID: 204462, wantStart: 1472126400000},
		{name: "eight hours", duration: 8 * time.Hour, wantID: 51115, wantStart: 1472112000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FromTimestamp(aug2016, tt.duration)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, p.ID())
			assert.Equal(t, tt.wantStart, p.StartTimeMillis())
			assert.Equal(t, tt.duration.Milliseconds(), p.DurationMillis())
			assert.Equal(t, tt.wantStart+tt.duration.Milliseconds(), p.EndTimeMillis())
			assert.True(t, p.Contains(aug2016))
		})
	}
}

func TestFirstPeriodAtEpoch(t *testing.T) {
	for _, d := range []time.Duration{time.Millisecond, time.Second, time.Hour, 24 * time.Hour} {
		p, err := FromTimestamp(0, d)
		require.NoError(t, err)
		assert.Equal(t, int64(0), p.ID())
		assert.Equal(t, int64(0), p.StartTimeMillis())
		assert.True(t, p.Start().Equal(time.UnixMilli(0)))

		fromID, err := FromPeriodID(0, d)
		require.NoError(t, err)
		assert.True(t, p.Equal(fromID))
	}
}

func TestNext(t *testing.T) {
	previous, err := FromTimestamp(aug2016, 15*time.Minute)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		next := previous.Next()
		assert.Equal(t, previous.ID()+1, next.ID())
		assert.Equal(t, previous.StartTimeMillis()+previous.DurationMillis(), next.StartTimeMillis())
		assert.Equal(t, previous.EndTimeMillis(), next.StartTimeMillis())
		assert.Equal(t, previous.DurationMillis(), next.DurationMillis())
		assert.True(t, previous.Before(next))
		previous = next
	}
}

func TestFromPeriodIDRoundTrip(t *testing.T) {
	for _, ts := range []int64{0, 1, 999, 1000, aug2016, 1503081070340} {
		for _, d := range []time.Duration{time.Second, 10 * time.Minute, time.Hour} {
			expected, err := FromTimestamp(ts, d)
			require.NoError(t, err)

			actual, err := FromPeriodID(expected.ID(), d)
			require.NoError(t, err)
			assert.True(t, expected.Equal(actual), "ts=%d d=%s", ts, d)
		}
	}
}

func TestPeriodInvalidArguments(t *testing.T) {
	tests := []struct {
		name  string
		build func() (Period, error)
	}{
		{name: "zero duration", build: func() (Period, error) { return FromTimestamp(0, 0) }},
		{name: "negative duration", build: func() (Period, error) { return FromTimestamp(0, -time.Hour) }},
		{name: "sub-millisecond duration", build: func() (Period, error) { return FromTimestamp(0, 500*time.Microsecond) }},
		{name: "negative timestamp", build: func() (Period, error) { return FromTimestamp(-1, time.Hour) }},
		{name: "negative id", build: func() (Period, error) { return FromPeriodID(-1, time.Hour) }},
		{name: "id with zero duration", build: func() (Period, error) { return FromPeriodID(1, 0) }},
		{name: "id past int64 range", build: func() (Period, error) { return FromPeriodID(math.MaxInt64/1000, time.Hour) }},
		{name: "max timestamp", build: func() (Period, error) { return FromTimestamp(math.MaxInt64, time.Millisecond) }},
		{name: "timestamp in last partial period", build: func() (Period, error) { return FromTimestamp(math.MaxInt64-1, time.Hour) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestLastRepresentablePeriod(t *testing.T) {
	for _, d := range []time.Duration{time.Millisecond, time.Minute, time.Hour} {
		ms := d.Milliseconds()
		last, err := FromPeriodID((math.MaxInt64-ms)/ms, d)
		require.NoError(t, err)

		assert.Positive(t, last.StartTimeMillis())
		assert.Equal(t, last.StartTimeMillis()+ms, last.EndTimeMillis())
		assert.GreaterOrEqual(t, last.EndTimeMillis(), last.StartTimeMillis())
		assert.True(t, last.Equal(last.Next()), "d=%s", d)

		_, err = FromPeriodID(last.ID()+1, d)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestPeriodJSONRoundTrip(t *testing.T) {
	for _, d := range []time.Duration{time.Millisecond, 15 * time.Minute, 8 * time.Hour} {
		expected, err := FromTimestamp(aug2016, d)
		require.NoError(t, err)

		data, err := json.Marshal(expected)
		require.NoError(t, err)

		var actual Period
		require.NoError(t, json.Unmarshal(data, &actual))
		assert.True(t, expected.Equal(actual), "d=%s: %s", d, data)
		assert.Equal(t, expected.StartTimeMillis(), actual.StartTimeMillis())
	}

	var p Period
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"id":-1,"duration":60000}`), &p), ErrInvalidArgument)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"id":1,"duration":0}`), &p), ErrInvalidArgument)
}

func TestPeriodEquality(t *testing.T) {
	a, _ := FromPeriodID(5, time.Minute)
	b, _ := FromPeriodID(5, time.Minute)
	c, _ := FromPeriodID(5, time.Hour)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Before(c))
	assert.Equal(t, time.Minute, a.Duration())
}
