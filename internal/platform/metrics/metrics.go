package metrics

import (
	"sync/atomic"
	"time"
)

// Collector counts page requests served and calls made to the leave API.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	duplicateSubmit uint64
	totalDurationMs uint64

	upstreamCalls        uint64
	upstreamUnauthorized uint64
	upstreamErrors       uint64
	upstreamFailures     uint64
	upstreamDurationMs   uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	if status == 409 {
		atomic.AddUint64(&c.duplicateSubmit, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordUpstream tracks one API call. status is 0 when no response arrived.
func (c *Collector) RecordUpstream(status int, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.upstreamCalls, 1)
	switch {
	case status == 0:
		atomic.AddUint64(&c.upstreamFailures, 1)
	case status == 401:
		atomic.AddUint64(&c.upstreamUnauthorized, 1)
	case status >= 500:
		atomic.AddUint64(&c.upstreamErrors, 1)
	}
	atomic.AddUint64(&c.upstreamDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	upstream := atomic.LoadUint64(&c.upstreamCalls)
	upstreamMs := atomic.LoadUint64(&c.upstreamDurationMs)
	return map[string]any{
		"requestsTotal":             total,
		"errorsTotal":               atomic.LoadUint64(&c.errorRequests),
		"rateLimitedTotal":          atomic.LoadUint64(&c.rateLimited),
		"duplicateSubmitTotal":      atomic.LoadUint64(&c.duplicateSubmit),
		"avgDurationMs":             average(totalMs, total),
		"totalDurationMs":           totalMs,
		"upstreamCallsTotal":        upstream,
		"upstreamUnauthorizedTotal": atomic.LoadUint64(&c.upstreamUnauthorized),
		"upstreamErrorsTotal":       atomic.LoadUint64(&c.upstreamErrors),
		"upstreamFailuresTotal":     atomic.LoadUint64(&c.upstreamFailures),
		"upstreamAvgDurationMs":     average(upstreamMs, upstream),
	}
}

func average(sum, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}
