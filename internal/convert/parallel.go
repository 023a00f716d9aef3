// Package convert formats streams of features in parallel.
package convert

import (
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/inodb/vibe-roi/internal/roi"
)

// WorkItem holds a feature waiting to be formatted.
type WorkItem struct {
	Seq     int
	Feature roi.Feature
}

// WorkResult holds the formatted text for a single feature.
type WorkResult struct {
	Seq     int
	Feature roi.Feature
	Text    string
	Err     error
}

// FormatFunc renders one feature.
type FormatFunc func(roi.Feature) (string, error)

// Pool formats features with a fixed function.
type Pool struct {
	format FormatFunc
	logger *zap.Logger
}

// NewPool creates a pool that formats with fn.
func NewPool(fn FormatFunc) *Pool {
	return &Pool{format: fn, logger: zap.NewNop()}
}

// SetLogger sets the logger used for per-feature failures.
func (p *Pool) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	p.logger = l
}

// Run formats work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (p *Pool) Run(items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for item := range items {
				text, err := p.format(item.Feature)
				if err != nil {
					p.logger.Warn("format feature",
						zap.Int("seq", item.Seq),
						zap.String("feature", item.Feature.Name()),
						zap.Error(err))
				}
				results <- WorkResult{
					Seq:     item.Seq,
					Feature: item.Feature,
					Text:    text,
					Err:     err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// Out-of-order results wait in a pending map until their turn.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
