package metrics

import (
	"testing"
	"time"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(500, 30*time.Millisecond)
	c.Record(429, 0)
	c.Record(409, 0)
	c.RecordUpstream(200, 20*time.Millisecond)
	c.RecordUpstream(401, 0)
	c.RecordUpstream(503, 0)
	c.RecordUpstream(0, 0)

	snap := c.Snapshot()
	expect := map[string]uint64{
		"requestsTotal":             4,
		"errorsTotal":               1,
		"rateLimitedTotal":          1,
		"duplicateSubmitTotal":      1,
		"upstreamCallsTotal":        4,
		"upstreamUnauthorizedTotal": 1,
		"upstreamErrorsTotal":       1,
		"upstreamFailuresTotal":     1,
	}
	for key, want := range expect {
		if got := snap[key].(uint64); got != want {
			t.Fatalf("%s: expected %d, got %d", key, want, got)
		}
	}
	if avg := snap["avgDurationMs"].(float64); avg != 10 {
		t.Fatalf("expected avg 10ms, got %v", avg)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.Record(200, time.Millisecond)
	c.RecordUpstream(200, time.Millisecond)
}
