package pipeline

import (
	"context"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Step is one stage of a pipeline.
type Step interface {
	// Do executes the step. Failures that only affect part of the result
	// should be recorded in the report and nil returned.
	Do(ctx context.Context, report *model.CrawlReport) error

	// Name returns the step's name for logging and PerformedSteps.
	Name() string
}

// Pipeline executes steps in sequence against one report.
type Pipeline struct {
	steps []Step

	// finalSteps run after steps, even if the context was cancelled.
	finalSteps []Step

	logger *slog.Logger

	// continueOnError keeps executing after a failed step.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing later steps after one fails. The
// errors are still recorded in the report.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddFinalSteps appends steps that run after the regular steps regardless
// of cancellation. They receive a context that is never cancelled.
func (p *Pipeline) AddFinalSteps(steps ...Step) {
	p.finalSteps = append(p.finalSteps, steps...)
}

// Execute runs the regular steps, then the final steps.
//
// Cancellation is checked before each regular step; once the context is
// done no further regular step starts, report.Interrupted is set and
// ctx.Err() is returned after the final steps have run. A failed regular
// step stops the remaining regular steps unless the pipeline continues on
// error. Step errors are aggregated into report.Error and returned unless
// the pipeline continues on error.
func (p *Pipeline) Execute(ctx context.Context, report *model.CrawlReport) error {
	var errs *multierror.Error

	for _, step := range p.steps {
		if ctx.Err() != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"seed", report.Seed,
				"reason", ctx.Err())
			report.Interrupted = true
			break
		}
		if err := p.run(ctx, step, report); err != nil {
			errs = multierror.Append(errs, err)
			if !p.continueOnError {
				break
			}
		}
	}

	finalCtx := context.WithoutCancel(ctx)
	for _, step := range p.finalSteps {
		if err := p.run(finalCtx, step, report); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		report.SetError(err)
		if !p.continueOnError {
			return err
		}
	}
	if ctx.Err() != nil {
		report.Interrupted = true
		return ctx.Err()
	}
	return nil
}

// run executes one step and records it as performed.
func (p *Pipeline) run(ctx context.Context, step Step, report *model.CrawlReport) error {
	p.logger.Info("executing step", "step", step.Name(), "seed", report.Seed)

	err := step.Do(ctx, report)
	report.PerformedSteps = append(report.PerformedSteps, step.Name())
	if err != nil {
		p.logger.Error("step failed", "step", step.Name(), "seed", report.Seed, "error", err)
		return err
	}

	p.logger.Debug("step completed", "step", step.Name(), "seed", report.Seed)
	return nil
}

// StepCount returns the number of steps, final steps included.
func (p *Pipeline) StepCount() int {
	return len(p.steps) + len(p.finalSteps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.finalSteps {
		names = append(names, step.Name())
	}
	return names
}
