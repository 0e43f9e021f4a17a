package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress is a point-in-time view of a reembedding pass.
type Progress struct {
	Chunks  int
	Total   int
	Batches int
	Elapsed time.Duration
}

// Percent returns the completed share of Total, 0 when Total is 0.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Chunks) / float64(p.Total) * 100
}

// Rate returns chunks per second.
func (p Progress) Rate() float64 {
	if p.Elapsed <= 0 {
		return 0
	}
	return float64(p.Chunks) / p.Elapsed.Seconds()
}

// ETA estimates the remaining time at the current rate. ok is false when
// there is no rate yet or nothing remains.
func (p Progress) ETA() (eta time.Duration, ok bool) {
	rate := p.Rate()
	if rate == 0 || p.Chunks >= p.Total {
		return 0, false
	}
	return time.Duration(float64(p.Total-p.Chunks) / rate * float64(time.Second)), true
}

func (p Progress) String() string {
	eta := "-"
	if d, ok := p.ETA(); ok {
		eta = d.Round(time.Second).String()
	}
	return fmt.Sprintf("Progress: %d/%d chunks (%.1f%%) in %d batches - %.1f chunks/s - eta %s",
		p.Chunks, p.Total, p.Percent(), p.Batches, p.Rate(), eta)
}

// ProgressTracker rewrites one terminal line as batches complete.
type ProgressTracker struct {
	writer   io.Writer
	interval int
	now      func() time.Time

	mu           sync.Mutex
	started      bool
	start        time.Time
	progress     Progress
	lastReported int
}

// NewProgressTracker reports to writer whenever at least interval chunks
// have completed since the previous report.
func NewProgressTracker(writer io.Writer, total, interval int) *ProgressTracker {
	return &ProgressTracker{
		writer:   writer,
		interval: max(interval, 1),
		now:      time.Now,
		progress: Progress{Total: total},
	}
}

// Start resets the counters and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = true
	p.start = p.now()
	p.progress = Progress{Total: p.progress.Total}
	p.lastReported = 0
}

// Batch records a completed batch of n chunks. Counts are capped at the total.
func (p *ProgressTracker) Batch(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.progress.Batches++
	p.progress.Chunks = min(p.progress.Chunks+n, p.progress.Total)
	if p.progress.Chunks-p.lastReported >= p.interval {
		p.report()
	}
}

// Snapshot returns the current progress.
func (p *ProgressTracker) Snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

// Finish prints the final line and ends it.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time since Start, 0 before it.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot().Elapsed
}

// Must be called with p.mu held.
func (p *ProgressTracker) snapshot() Progress {
	snap := p.progress
	if p.started {
		snap.Elapsed = p.now().Sub(p.start)
	}
	return snap
}

// Must be called with p.mu held.
func (p *ProgressTracker) report() {
	fmt.Fprintf(p.writer, "\r%s", p.snapshot())
	p.lastReported = p.progress.Chunks
}
