// Package stats tracks per-provider call statistics for unichat.
package stats

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/flynn-ai/unichat/internal/errors"
)

// Collector collects call statistics. A nil *Collector is valid and
// records nothing, so handlers can be built without one.
type Collector struct {
	mu        sync.Mutex
	startTime time.Time
	providers map[string]*counters
}

type counters struct {
	requests      int64
	streams       int64
	errors        int64
	skippedEvents int64
	totalDuration int64 // nanoseconds
	byKind        map[errors.Kind]int64
}

// NewCollector creates a new stats collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		providers: make(map[string]*counters),
	}
}

// Stats is a point-in-time snapshot.
type Stats struct {
	Goroutines  int         `json:"goroutines"`
	Uptime      string      `json:"uptime"`
	MemoryStats MemoryStats `json:"memory"`

	RequestCount int64   `json:"request_count"`
	StreamCount  int64   `json:"stream_count"`
	ErrorCount   int64   `json:"error_count"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`

	Providers []ProviderStats `json:"providers"`
}

// ProviderStats holds the counters for one provider, sorted by name in
// Stats.Providers.
type ProviderStats struct {
	Provider      string           `json:"provider"`
	Requests      int64            `json:"requests"`
	Streams       int64            `json:"streams"`
	Errors        int64            `json:"errors"`
	ErrorsByKind  map[string]int64 `json:"errors_by_kind,omitempty"`
	SkippedEvents int64            `json:"skipped_events"`
	AvgLatencyMs  float64          `json:"avg_latency_ms"`
}

// MemoryStats represents memory usage statistics.
type MemoryStats struct {
	HeapAlloc   int64   `json:"heap_alloc_bytes"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	HeapInuse   int64   `json:"heap_inuse_bytes"`
	HeapInuseMB float64 `json:"heap_inuse_mb"`
	NumGC       uint32  `json:"num_gc"`
}

// Collect returns current statistics.
func (c *Collector) Collect() *Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	out := &Stats{
		Goroutines: runtime.NumGoroutine(),
		MemoryStats: MemoryStats{
			HeapAlloc:   int64(m.HeapAlloc),
			HeapAllocMB: bytesToMB(int64(m.HeapAlloc)),
			HeapInuse:   int64(m.HeapInuse),
			HeapInuseMB: bytesToMB(int64(m.HeapInuse)),
			NumGC:       m.NumGC,
		},
	}
	if c == nil {
		return out
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out.Uptime = time.Since(c.startTime).String()

	var totalDuration int64
	for name, pc := range c.providers {
		ps := ProviderStats{
			Provider:      name,
			Requests:      pc.requests,
			Streams:       pc.streams,
			Errors:        pc.errors,
			SkippedEvents: pc.skippedEvents,
			AvgLatencyMs:  avgMillis(pc.totalDuration, pc.requests+pc.streams),
		}
		if len(pc.byKind) > 0 {
			ps.ErrorsByKind = make(map[string]int64, len(pc.byKind))
			for k, n := range pc.byKind {
				ps.ErrorsByKind[k.String()] = n
			}
		}
		out.Providers = append(out.Providers, ps)

		out.RequestCount += pc.requests
		out.StreamCount += pc.streams
		out.ErrorCount += pc.errors
		totalDuration += pc.totalDuration
	}
	sort.Slice(out.Providers, func(i, j int) bool {
		return out.Providers[i].Provider < out.Providers[j].Provider
	})
	out.AvgLatencyMs = avgMillis(totalDuration, out.RequestCount+out.StreamCount)

	return out
}

// RecordRequest records a completed non-streaming call.
func (c *Collector) RecordRequest(provider string, duration time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pc := c.get(provider)
	pc.requests++
	pc.totalDuration += duration.Nanoseconds()
}

// RecordStream records an opened stream. duration is time to first byte.
func (c *Collector) RecordStream(provider string, duration time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pc := c.get(provider)
	pc.streams++
	pc.totalDuration += duration.Nanoseconds()
}

// RecordError records a failed call by its normalized kind.
func (c *Collector) RecordError(provider string, err error) {
	if c == nil || err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pc := c.get(provider)
	pc.errors++
	pc.byKind[errors.KindOf(err)]++
}

// RecordSkippedEvent records a stream event that could not be decoded.
func (c *Collector) RecordSkippedEvent(provider string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.get(provider).skippedEvents++
}

// StartTime returns when the collector started.
func (c *Collector) StartTime() time.Time {
	return c.startTime
}

func (c *Collector) get(provider string) *counters {
	pc, ok := c.providers[provider]
	if !ok {
		pc = &counters{byKind: make(map[errors.Kind]int64)}
		c.providers[provider] = pc
	}
	return pc
}

func avgMillis(total, n int64) float64 {
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n) / 1e6
}

// bytesToMB converts bytes to megabytes.
func bytesToMB(b int64) float64 {
	return float64(b) / 1024 / 1024
}
