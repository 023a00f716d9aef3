package convert

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-roi/internal/reader"
	"github.com/inodb/vibe-roi/internal/roi"
)

// Writer is the output side of a conversion.
type Writer interface {
	Format(f roi.Feature) (string, error)
	WriteFormatted(s string) error
}

// Options controls a conversion.
type Options struct {
	// Workers is the number of formatting goroutines; 0 means NumCPU.
	Workers int
	// SkipErrors drops features that fail to format instead of stopping.
	SkipErrors bool
	// Transform, if set, replaces each feature before formatting.
	Transform func(roi.Feature) (roi.Feature, error)
}

// Stats counts what a conversion did.
type Stats struct {
	Read    int
	Written int
	Skipped int
}

// Convert streams every feature of r through w, preserving input order.
func Convert(ctx context.Context, r reader.FeatureReader, w Writer, opts Options, logger *zap.Logger) (Stats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var stats Stats
	g, ctx := errgroup.WithContext(ctx)
	items := make(chan WorkItem, 64)

	g.Go(func() error {
		defer close(items)
		for seq := 0; ; seq++ {
			f, err := r.Next()
			if err != nil {
				return err
			}
			if f == nil {
				return nil
			}
			stats.Read++
			select {
			case items <- WorkItem{Seq: seq, Feature: f}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	format := w.Format
	if opts.Transform != nil {
		format = func(f roi.Feature) (string, error) {
			tf, err := opts.Transform(f)
			if err != nil {
				return "", fmt.Errorf("transform %s: %w", f.Name(), err)
			}
			return w.Format(tf)
		}
	}
	pool := NewPool(format)
	pool.SetLogger(logger)
	results := pool.Run(items, opts.Workers)

	g.Go(func() error {
		return OrderedCollect(results, func(res WorkResult) error {
			if res.Err != nil {
				if opts.SkipErrors {
					stats.Skipped++
					return nil
				}
				return res.Err
			}
			if res.Text == "" {
				stats.Skipped++
				return nil
			}
			if err := w.WriteFormatted(res.Text); err != nil {
				return fmt.Errorf("write %s: %w", res.Feature.Name(), err)
			}
			stats.Written++
			return nil
		})
	})

	err := g.Wait()
	logger.Info("conversion finished",
		zap.Int("read", stats.Read),
		zap.Int("written", stats.Written),
		zap.Int("skipped", stats.Skipped))
	return stats, err
}
