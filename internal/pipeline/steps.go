package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/juju/clock"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/fetcher"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/report"
)

// FetcherFactory builds the fetcher for one session from the effective
// configuration of the seed's host.
type FetcherFactory func(cfg *config.Config, site config.SiteConfig) (crawler.Fetcher, error)

// NewHTTPFetcher is the default FetcherFactory.
func NewHTTPFetcher(cfg *config.Config, site config.SiteConfig) (crawler.Fetcher, error) {
	opts := []fetcher.Option{
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
	}
	if site.Cookie != "" {
		opts = append(opts, fetcher.WithCookie(site.Cookie))
	}
	if len(site.Headers) > 0 {
		opts = append(opts, fetcher.WithHeaders(site.Headers))
	}
	if cfg.ProxyAddress != "" {
		opts = append(opts, fetcher.WithSOCKS5Proxy(cfg.ProxyAddress))
	}
	return fetcher.New(opts...)
}

// CrawlStep crawls the report's seed and fills in its results.
type CrawlStep struct {
	cfg        *config.Config
	newFetcher FetcherFactory
	clock      clock.Clock
	logger     *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets the logger passed to each session.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFetcherFactory replaces the HTTP fetcher.
func WithFetcherFactory(factory FetcherFactory) CrawlStepOption {
	return func(s *CrawlStep) {
		if factory != nil {
			s.newFetcher = factory
		}
	}
}

// WithCrawlClock sets the clock sessions use for retry backoff.
func WithCrawlClock(c clock.Clock) CrawlStepOption {
	return func(s *CrawlStep) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewCrawlStep creates a crawl step using cfg for every session. Per-host
// overrides from cfg.SiteConfigs are applied for each seed.
func NewCrawlStep(cfg *config.Config, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		cfg:        cfg,
		newFetcher: NewHTTPFetcher,
		clock:      clock.WallClock,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do runs one crawl session for report.Seed. The session's sink copies
// the crawled and failed pages into the report. An interrupted crawl is
// not an error of this step; the pipeline reports the cancellation.
func (s *CrawlStep) Do(ctx context.Context, rep *model.CrawlReport) error {
	var host string
	if u, err := url.Parse(rep.Seed); err == nil {
		host = u.Hostname()
	}
	cfg, site := s.cfg.ForHost(host)

	f, err := s.newFetcher(cfg, site)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}

	sink := crawler.SinkFunc(func(_ context.Context, links map[string][]string, failed map[string]int) error {
		for page, pageLinks := range links {
			rep.AddPage(page, pageLinks)
		}
		for page, attempts := range failed {
			rep.AddFailure(page, attempts)
		}
		return nil
	})

	session, err := crawler.NewSession(rep.Seed, f,
		crawler.WithMaxConcurrency(cfg.MaxConcurrency),
		crawler.WithMaxRetries(cfg.MaxRetries),
		crawler.WithInitialDelay(cfg.InitialDelay),
		crawler.WithRetryBackoff(cfg.RetryBaseDelay, cfg.MaxBackoff),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithFollowPatterns(site.FollowPatterns),
		crawler.WithSink(sink),
		crawler.WithLogger(s.logger),
		crawler.WithClock(s.clock),
	)
	if err != nil {
		return err
	}

	result, err := session.Run(ctx)
	if result != nil {
		rep.Domain = result.Domain
		rep.StartedAt = result.StartedAt
		rep.FinishedAt = result.FinishedAt
		rep.Stats = result.Stats
		rep.FinalDelay = result.FinalDelay
		rep.Interrupted = result.Interrupted
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// Saver stores a finished crawl report. *database.CrawlDB implements it.
type Saver interface {
	SaveCrawl(ctx context.Context, report *model.CrawlReport) error
}

// PersistStep stores the report.
type PersistStep struct {
	saver  Saver
	logger *slog.Logger
}

// NewPersistStep creates a step that stores each report with saver.
func NewPersistStep(saver Saver, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{saver: saver, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do stores the report.
func (s *PersistStep) Do(ctx context.Context, rep *model.CrawlReport) error {
	if err := s.saver.SaveCrawl(ctx, rep); err != nil {
		return fmt.Errorf("failed to save crawl %s: %w", rep.ID, err)
	}
	s.logger.Debug("crawl saved", "id", rep.ID, "seed", rep.Seed, "pages", len(rep.Links))
	return nil
}

// ReportStep renders the report. One ReportStep may be shared by the
// pipelines of a batch; reports are written one at a time.
type ReportStep struct {
	mu     sync.Mutex
	writer report.Writer
}

// NewReportStep creates a step rendering with w.
func NewReportStep(w report.Writer) *ReportStep {
	return &ReportStep{writer: w}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do writes the report.
func (s *ReportStep) Do(_ context.Context, rep *model.CrawlReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// DefaultPipeline creates the standard pipeline: crawl, then persist when
// saver is non-nil, then report when rep is non-nil. Persist and report
// are final steps, so partial results of an interrupted crawl are kept.
func DefaultPipeline(crawl *CrawlStep, saver Saver, rep *ReportStep, opts ...Option) *Pipeline {
	p := New(opts...)
	p.AddStep(crawl)
	if saver != nil {
		p.AddFinalSteps(NewPersistStep(saver, p.logger))
	}
	if rep != nil {
		p.AddFinalSteps(rep)
	}
	return p
}
