package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitecrawl/internal/model"
)

// DefaultBatchConcurrency is the number of sessions run at once when no
// concurrency is configured.
const DefaultBatchConcurrency = 2

// BatchProcessor crawls several seeds, each through its own pipeline.
// Sessions never share state; the only limit between them is how many
// run at the same time.
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline per seed.
	pipelineFactory func() *Pipeline

	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger for batch-level messages.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent sessions.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch crawls every seed and returns the reports in seed order.
//
// A failed session does not stop the others; its error is recorded in its
// report. When ctx is cancelled, running sessions finish with partial
// results, seeds that never started have a nil report, and ctx.Err() is
// returned.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*model.CrawlReport, error) {
	results := make([]*model.CrawlReport, len(seeds))
	err := bp.ProcessBatchWithCallback(ctx, seeds, func(report *model.CrawlReport, index int) {
		results[index] = report
	})
	return results, err
}

// ProcessBatchWithCallback crawls every seed and calls callback with each
// finished report and the seed's index. callback is called from the
// session's goroutine and must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(report *model.CrawlReport, index int),
) error {
	bp.logger.Info("starting batch", "seeds", len(seeds), "concurrency", bp.concurrency)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			bp.logger.Info("crawling seed", "seed", seed, "index", i+1, "total", len(seeds))

			report := model.NewCrawlReport(seed)
			if err := bp.pipelineFactory().Execute(ctx, report); err != nil {
				bp.logger.Warn("crawl failed", "seed", seed, "error", err)
			}
			callback(report, i)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // sessions record their errors in their reports

	bp.logger.Info("batch complete", "seeds", len(seeds), "elapsed", time.Since(start))
	return ctx.Err()
}
