package photogrammetry

import (
	"math"
	"slices"
	"sync"
)

// Trace records the inlier count and sample residual of every RANSAC
// iteration of a single run. RansacFundamentalMatrix resets it on entry.
type Trace struct {
	mu           sync.Mutex
	inlierCounts []int
	residuals    []float64
}

func NewTrace() *Trace {
	return &Trace{}
}

func (t *Trace) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inlierCounts = t.inlierCounts[:0]
	t.residuals = t.residuals[:0]
}

func (t *Trace) Append(inlierCount int, residual float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inlierCounts = append(t.inlierCounts, inlierCount)
	t.residuals = append(t.residuals, residual)
}

func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inlierCounts)
}

func (t *Trace) InlierCounts() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.inlierCounts)
}

func (t *Trace) Residuals() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.residuals)
}

// BestInlierCounts is the running maximum of the inlier counts.
func (t *Trace) BestInlierCounts() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	best := make([]int, len(t.inlierCounts))
	running := 0
	for i, count := range t.inlierCounts {
		running = max(running, count)
		best[i] = running
	}
	return best
}

// BestResiduals is the running minimum of the residuals.
func (t *Trace) BestResiduals() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	best := make([]float64, len(t.residuals))
	running := math.Inf(1)
	for i, residual := range t.residuals {
		running = math.Min(running, residual)
		best[i] = running
	}
	return best
}
