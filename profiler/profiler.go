// Package profiler keeps rolling timing statistics for named operations and counts
// run outcomes. All methods are safe for concurrent use and on a nil *Profiler,
// which records nothing.
package profiler

import (
	"runtime"
	"sort"
	"sync"
	"time"
)

// DefaultMaxSamples is how many recent durations each operation keeps.
const DefaultMaxSamples = 512

// Options configures a Profiler.
type Options struct {
	// MaxSamples bounds the rolling window per operation (default: DefaultMaxSamples).
	MaxSamples int
}

// Profiler tracks operation timings and outcome counters.
type Profiler struct {
	mu         sync.RWMutex
	startTime  time.Time
	maxSamples int
	operations map[string]*timeTracker
	outcomes   map[string]int64
}

// timeTracker holds the rolling window of one operation.
type timeTracker struct {
	durations []time.Duration
	window    time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// New creates a profiler.
func New(opts Options) *Profiler {
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = DefaultMaxSamples
	}
	return &Profiler{
		startTime:  time.Now(),
		maxSamples: opts.MaxSamples,
		operations: make(map[string]*timeTracker),
		outcomes:   make(map[string]int64),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track.
//
// Returns:
// - A function to call when the operation completes.
//
// @example
// done := p.StartOperation("decode")
// raster, err := c.Decode(payload)
// done()
func (p *Profiler) StartOperation(name string) func() {
	if p == nil {
		return func() {}
	}
	start := time.Now()
	return func() { p.Record(name, time.Since(start)) }
}

// Record adds one completed duration for an operation.
func (p *Profiler) Record(name string, d time.Duration) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.operations[name]
	if !ok {
		t = &timeTracker{minTime: d, maxTime: d}
		p.operations[name] = t
	}

	t.durations = append(t.durations, d)
	t.window += d
	if len(t.durations) > p.maxSamples {
		t.window -= t.durations[0]
		t.durations = t.durations[1:]
	}
	t.count++
	if d < t.minTime {
		t.minTime = d
	}
	if d > t.maxTime {
		t.maxTime = d
	}
}

// CountOutcome increments the counter for a named outcome.
func (p *Profiler) CountOutcome(name string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.outcomes[name]++
	p.mu.Unlock()
}

// OperationStats summarizes one operation. Durations are in milliseconds.
type OperationStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	Samples int     `json:"samples"`
	MeanMS  float64 `json:"mean_ms"`
	MinMS   float64 `json:"min_ms"`
	MaxMS   float64 `json:"max_ms"`
}

// Stats is a point-in-time snapshot.
type Stats struct {
	UptimeSeconds float64          `json:"uptime_seconds"`
	Goroutines    int              `json:"goroutines"`
	HeapAlloc     uint64           `json:"heap_alloc"`
	GCCycles      uint32           `json:"gc_cycles"`
	Operations    []OperationStats `json:"operations"`
	Outcomes      map[string]int64 `json:"outcomes"`
}

// Snapshot returns the current statistics, operations sorted by name.
func (p *Profiler) Snapshot() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats := Stats{
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  mem.HeapAlloc,
		GCCycles:   mem.NumGC,
		Operations: []OperationStats{},
		Outcomes:   map[string]int64{},
	}
	if p == nil {
		return stats
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	stats.UptimeSeconds = time.Since(p.startTime).Seconds()
	for name, t := range p.operations {
		op := OperationStats{
			Name:    name,
			Count:   t.count,
			Samples: len(t.durations),
			MinMS:   ms(t.minTime),
			MaxMS:   ms(t.maxTime),
		}
		if n := len(t.durations); n > 0 {
			op.MeanMS = ms(t.window) / float64(n)
		}
		stats.Operations = append(stats.Operations, op)
	}
	sort.Slice(stats.Operations, func(i, j int) bool {
		return stats.Operations[i].Name < stats.Operations[j].Name
	})
	for name, n := range p.outcomes {
		stats.Outcomes[name] = n
	}
	return stats
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
