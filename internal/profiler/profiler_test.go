package profiler

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/sanspareilsmyn/profilelens/internal/expression"
	"github.com/sanspareilsmyn/profilelens/internal/message"
	"github.com/sanspareilsmyn/profilelens/internal/profile"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1503081070340)}
}

type failureRecorder struct {
	failures []profile.Failure
}

func (r *failureRecorder) record(f profile.Failure) {
	r.failures = append(r.failures, f)
}

func countingProfile(name, foreach, onlyif string) profile.Definition {
	return profile.Definition{
		Name:    name,
		Foreach: foreach,
		OnlyIf:  onlyif,
		Init:    profile.Assignments{{Variable: "count", Expression: "0"}},
		Update:  profile.Assignments{{Variable: "count", Expression: "count + 1"}},
		Result:  profile.ResultDefinition{Profile: "count"},
	}
}

func telemetry(src, dst string, bytes int64) message.DynamicMessage {
	return message.DynamicMessage{
		"ip_src_addr": src,
		"ip_dst_addr": dst,
		"bytes":       json.Number(strconv.FormatInt(bytes, 10)),
	}
}

var testEvaluator = expression.NewExprEvaluator()
