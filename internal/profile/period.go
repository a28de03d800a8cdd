package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Period is a fixed-width, half-open window [start, start+duration) anchored
// at the epoch. Period 0 starts at timestamp 0.
type Period struct {
	id             int64
	durationMillis int64
}

// FromTimestamp returns the period containing tsMillis.
func FromTimestamp(tsMillis int64, d time.Duration) (Period, error) {
	durationMillis, err := durationToMillis(d)
	if err != nil {
		return Period{}, err
	}
	if tsMillis < 0 {
		return Period{}, fmt.Errorf("%w: timestamp %d is before the epoch", ErrInvalidArgument, tsMillis)
	}
	id := tsMillis / durationMillis
	if id > maxPeriodID(durationMillis) {
		return Period{}, fmt.Errorf("%w: timestamp %d is past the last whole period", ErrInvalidArgument, tsMillis)
	}
	return Period{id: id, durationMillis: durationMillis}, nil
}

// FromPeriodID reconstructs a period from its identifier, e.g. when a reader
// recomputes window boundaries of a stored measurement.
func FromPeriodID(id int64, d time.Duration) (Period, error) {
	durationMillis, err := durationToMillis(d)
	if err != nil {
		return Period{}, err
	}
	if id < 0 {
		return Period{}, fmt.Errorf("%w: period id %d is negative", ErrInvalidArgument, id)
	}
	if id > maxPeriodID(durationMillis) {
		return Period{}, fmt.Errorf("%w: period id %d ends past the int64 millisecond range", ErrInvalidArgument, id)
	}
	return Period{id: id, durationMillis: durationMillis}, nil
}

// maxPeriodID is the largest id whose end time still fits in an int64.
func maxPeriodID(durationMillis int64) int64 {
	return (math.MaxInt64 - durationMillis) / durationMillis
}

func durationToMillis(d time.Duration) (int64, error) {
	ms := d.Milliseconds()
	if ms <= 0 {
		return 0, fmt.Errorf("%w: period duration %s must be at least 1ms", ErrInvalidArgument, d)
	}
	return ms, nil
}

func (p Period) ID() int64 { return p.id }

func (p Period) DurationMillis() int64 { return p.durationMillis }

func (p Period) Duration() time.Duration { return time.Duration(p.durationMillis) * time.Millisecond }

func (p Period) StartTimeMillis() int64 { return p.id * p.durationMillis }

func (p Period) EndTimeMillis() int64 { return p.StartTimeMillis() + p.durationMillis }

func (p Period) Start() time.Time { return time.UnixMilli(p.StartTimeMillis()) }

func (p Period) End() time.Time { return time.UnixMilli(p.EndTimeMillis()) }

// Next returns the adjacent period that follows p. The last representable
// period has no successor and is returned unchanged.
func (p Period) Next() Period {
	if p.id >= maxPeriodID(p.durationMillis) {
		return p
	}
	return Period{id: p.id + 1, durationMillis: p.durationMillis}
}

// Contains reports whether tsMillis falls inside p.
func (p Period) Contains(tsMillis int64) bool {
	return tsMillis >= p.StartTimeMillis() && tsMillis < p.EndTimeMillis()
}

func (p Period) Equal(o Period) bool {
	return p.id == o.id && p.durationMillis == o.durationMillis
}

// Before orders periods by id only; durations are assumed to match.
func (p Period) Before(o Period) bool { return p.id < o.id }

func (p Period) String() string {
	return fmt.Sprintf("period{id=%d, duration=%dms, start=%d}", p.id, p.durationMillis, p.StartTimeMillis())
}

type periodJSON struct {
	ID       int64 `json:"id"`
	Start    int64 `json:"start"`
	End      int64 `json:"end"`
	Duration int64 `json:"duration"`
}

// MarshalJSON writes the period identity along with its boundaries in epoch
// millis.
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(periodJSON{
		ID:       p.id,
		Start:    p.StartTimeMillis(),
		End:      p.EndTimeMillis(),
		Duration: p.durationMillis,
	})
}

// UnmarshalJSON rebuilds a period from its id and duration; start and end are
// recomputed, not trusted.
func (p *Period) UnmarshalJSON(data []byte) error {
	var raw periodJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := FromPeriodID(raw.ID, time.Duration(raw.Duration)*time.Millisecond)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}
