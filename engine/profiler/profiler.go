package profiler

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
)

// Profiler tracks frame rate, memory statistics and the CPU time spent in each named pass.
// Outputs stats to the engine logger at a configurable interval.
type Profiler struct {
	mu *sync.Mutex

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	passes map[string]*passStats
	now    func() time.Time
}

type passStats struct {
	total time.Duration
	count int
}

// PassTiming is the accumulated CPU time of one pass over the current interval.
type PassTiming struct {
	Name    string
	Total   time.Duration
	Count   int
	Average time.Duration
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		updateInterval: time.Second,
		passes:         make(map[string]*passStats),
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Begin starts timing a pass. Call the returned function when the pass finishes.
//
// Parameters:
//   - pass: the pass name
//
// Returns:
//   - func(): stops the timer and records the elapsed time
func (p *Profiler) Begin(pass string) func() {
	if p == nil {
		return func() {}
	}
	start := p.now()
	return func() {
		elapsed := p.now().Sub(start)
		p.mu.Lock()
		defer p.mu.Unlock()
		s, ok := p.passes[pass]
		if !ok {
			s = &passStats{}
			p.passes[pass] = s
		}
		s.total += elapsed
		s.count++
	}
}

// Passes returns the pass timings of the current interval, slowest first.
func (p *Profiler) Passes() []PassTiming {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]PassTiming, 0, len(p.passes))
	for name, s := range p.passes {
		t := PassTiming{Name: name, Total: s.total, Count: s.count}
		if s.count > 0 {
			t.Average = s.total / time.Duration(s.count)
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory,
// and the average time of every pass timed since the last report.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	log := logger.L()
	log.Info("profiler",
		"fps", fps,
		"heap_mb", allocMB,
		"alloc_rate_mb_s", allocRateMB,
		"gc", gcCount,
		"gc_last_pause_us", lastPauseUs,
		"gc_max_pause_us", maxPauseUs,
		"sys_mb", sysMB,
	)
	for _, t := range p.Passes() {
		log.Info("profiler pass", "pass", t.Name, "avg", t.Average, "count", t.Count)
	}

	p.mu.Lock()
	clear(p.passes)
	p.mu.Unlock()

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
