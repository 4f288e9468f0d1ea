package operations

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker tracks per-file progress of a step and mirrors it into
// the step state
type ProgressTracker struct {
	mu        sync.Mutex
	step      *StepState
	total     int
	current   int
	startTime time.Time
}

// NewProgressTracker creates a tracker over total files. step may be nil.
func NewProgressTracker(step *StepState, total int) *ProgressTracker {
	return &ProgressTracker{
		step:      step,
		total:     total,
		startTime: time.Now(),
	}
}

// Increment marks one more file as handled. The step message carries an
// estimate of the time left once it is at least a second.
func (p *ProgressTracker) Increment(fileName string) {
	p.mu.Lock()
	p.current++
	current, total := p.current, p.total
	eta := p.eta().Round(time.Second)
	p.mu.Unlock()

	if p.step == nil {
		return
	}
	msg := fmt.Sprintf("Processed %d/%d: %s", current, total, fileName)
	if eta > 0 {
		msg += fmt.Sprintf(" (ETA %s)", eta)
	}
	p.step.UpdateProgress(percentage(current, total), msg)
}

// eta estimates the time remaining from the average time per file.
// p.mu must be held.
func (p *ProgressTracker) eta() time.Duration {
	if p.current == 0 || p.current >= p.total {
		return 0
	}
	perFile := time.Since(p.startTime) / time.Duration(p.current)
	return perFile * time.Duration(p.total-p.current)
}

func percentage(current, total int) float64 {
	if total <= 0 {
		return 100
	}
	return float64(current) / float64(total) * 100
}
