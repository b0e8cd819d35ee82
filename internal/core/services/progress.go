package services

import (
	"math"
	"time"
)

// ProgressTracker derives percent-complete and a moving-average ETA from
// container counts. It is not safe for concurrent use; the dump service
// guards it with its own lock.
type ProgressTracker struct {
	total     int
	done      int
	startedAt time.Time
}

// NewProgressTracker creates a tracker for total containers.
func NewProgressTracker(total int, startedAt time.Time) *ProgressTracker {
	return &ProgressTracker{total: total, startedAt: startedAt}
}

// ContainerDone records one finished container. Done never exceeds Total.
func (p *ProgressTracker) ContainerDone() {
	if p.done < p.total {
		p.done++
	}
}

// Total returns the number of containers in the run.
func (p *ProgressTracker) Total() int {
	return p.total
}

// Done returns the number of finished containers.
func (p *ProgressTracker) Done() int {
	return p.done
}

// Percent returns round(100 * done / total), or 0 when total is 0.
func (p *ProgressTracker) Percent() int {
	if p.total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(p.done) / float64(p.total)))
}

// Elapsed returns the time since the run started.
func (p *ProgressTracker) Elapsed(now time.Time) time.Duration {
	return now.Sub(p.startedAt)
}

// ETA estimates the remaining time from the average time per finished
// container. The second result is false until a container has finished.
func (p *ProgressTracker) ETA(now time.Time) (time.Duration, bool) {
	if p.done == 0 {
		return 0, false
	}
	avg := p.Elapsed(now) / time.Duration(p.done)
	return avg * time.Duration(p.total-p.done), true
}
