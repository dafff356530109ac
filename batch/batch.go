// Package batch runs independent recipe transformations concurrently.
// Each input gets its own pipeline run and its own result; one recipe
// failing never aborts the rest of the batch.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"souschef/check"
	"souschef/export"
	"souschef/ingest"
	"souschef/pipeline"
)

// ErrNotProcessed marks inputs that were never run, either because the
// processing limit cut them off or because the batch was canceled.
var ErrNotProcessed = errors.New("input not processed")

// Result records the outcome of one input.
type Result struct {
	InputID    string
	Name       string
	Status     pipeline.Status
	Iterations int
	Violations check.Violations
	Artifact   *export.Artifact
	Err        error
	Duration   time.Duration
}

// Accepted reports whether this input produced an exportable recipe.
func (r *Result) Accepted() bool { return r.Status == pipeline.StatusAccepted }

// Options tune a batch run.
type Options struct {
	// Workers bounds concurrent pipeline runs. Values below 1 mean 1.
	Workers int
	// Limit caps how many inputs are processed; 0 means all.
	Limit int
}

// Runner fans a set of inputs out over a bounded worker pool. Rate
// limiting across completion calls is the provider's concern: wrap the
// pipeline's provider in llm.Throttled and every worker shares the
// same limiter.
type Runner struct {
	pipe   *pipeline.Pipeline
	opts   Options
	logger *zap.Logger
}

// NewRunner creates a batch runner around a configured pipeline.
func NewRunner(pipe *pipeline.Pipeline, opts Options, logger *zap.Logger) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{pipe: pipe, opts: opts, logger: logger.With(zap.String("component", "batch"))}
}

// Run processes the inputs and returns one result per input, in input
// order. Cancellation is coarse: no new input is scheduled once ctx is
// done, but in-flight runs finish and report normally.
func (r *Runner) Run(ctx context.Context, inputs []*ingest.RawInput) []Result {
	runID := uuid.NewString()
	results := make([]Result, len(inputs))
	for i, in := range inputs {
		results[i] = Result{InputID: in.ID, Name: in.Name}
	}

	limit := len(inputs)
	if r.opts.Limit > 0 && r.opts.Limit < limit {
		limit = r.opts.Limit
	}
	for i := limit; i < len(inputs); i++ {
		results[i].Err = fmt.Errorf("%w: over processing limit %d", ErrNotProcessed, r.opts.Limit)
	}

	r.logger.Info("batch started",
		zap.String("run_id", runID),
		zap.Int("inputs", len(inputs)),
		zap.Int("scheduled", limit),
		zap.Int("workers", r.opts.Workers))

	g := new(errgroup.Group)
	g.SetLimit(r.opts.Workers)

	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			results[i].Err = fmt.Errorf("%w: batch canceled", ErrNotProcessed)
			continue
		}
		i, in := i, inputs[i]
		g.Go(func() error {
			results[i] = r.runOne(ctx, in)
			return nil // collect everything, never abort siblings
		})
	}
	_ = g.Wait()

	accepted := 0
	for i := range results {
		if results[i].Accepted() {
			accepted++
		}
	}
	r.logger.Info("batch finished",
		zap.String("run_id", runID),
		zap.Int("accepted", accepted),
		zap.Int("inputs", len(inputs)))
	return results
}

func (r *Runner) runOne(ctx context.Context, in *ingest.RawInput) Result {
	start := time.Now()
	result := Result{InputID: in.ID, Name: in.Name}

	outcome, err := r.pipe.Run(ctx, in.Text)
	result.Duration = time.Since(start)
	if err != nil && outcome == nil {
		result.Err = err
		r.logger.Error("recipe run failed", zap.String("input", in.Name), zap.Error(err))
		return result
	}

	result.Status = outcome.Status
	result.Iterations = outcome.Iterations
	result.Violations = outcome.Violations
	if outcome.Err != nil {
		result.Err = outcome.Err
	} else if err != nil {
		result.Err = err
	}

	if outcome.Accepted() {
		artifact, exportErr := export.Export(outcome.Recipe)
		if exportErr != nil {
			result.Err = exportErr
		} else {
			result.Artifact = artifact
		}
	}

	r.logger.Info("recipe run finished",
		zap.String("input", in.Name),
		zap.String("status", string(result.Status)),
		zap.Int("iterations", result.Iterations),
		zap.Duration("took", result.Duration))
	return result
}
