// Package pipeline drives the self-correcting transformation loop: one
// generation call produces a candidate document, each checking pass
// validates it structurally and against the quality rules, and bounded
// repair iterations feed the violations back to the model. The loop
// performs at most max_iterations+1 completion calls.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"souschef/check"
	"souschef/internal/metrics"
	"souschef/llm"
	"souschef/prompt"
	"souschef/schema"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusAccepted        Status = "accepted"
	StatusFailedPermanent Status = "failed_permanent"
	StatusFailedBudget    Status = "failed_budget"
)

// GenerationError is fatal: the model produced nothing usable on the very
// first call, so there is no candidate to repair.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("generation failed: %s", e.Reason)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Config controls one pipeline instance.
type Config struct {
	// Model passed through to the provider on every call.
	Model string

	// Temperature and MaxTokens for completion calls.
	Temperature float32
	MaxTokens   int

	// MaxIterations is the repair budget. 0 means generate-and-check
	// only.
	MaxIterations int

	// RecipeCharLimit caps the raw recipe text; longer inputs are
	// condensed first when CondenseLongInput is set, rejected otherwise.
	RecipeCharLimit   int
	CondenseLongInput bool

	// AnalyzeFirst runs the analysis pre-step and feeds the result into
	// the generation prompt.
	AnalyzeFirst bool

	// MaxStepDurationSeconds tunes the duration quality rule. Zero means
	// the checker's default.
	MaxStepDurationSeconds int
}

// IterationRecord captures one checking pass for the final report.
type IterationRecord struct {
	Iteration     int              `json:"iteration"`
	Violations    check.Violations `json:"violations,omitempty"`
	NoImprovement bool             `json:"no_improvement,omitempty"`
	RepairError   string           `json:"repair_error,omitempty"`
}

// Outcome is the terminal report of a run.
type Outcome struct {
	Status     Status            `json:"status"`
	Recipe     *schema.Recipe    `json:"-"`
	Raw        map[string]any    `json:"-"`
	Iterations int               `json:"iterations"`
	Violations check.Violations  `json:"violations,omitempty"`
	History    []IterationRecord `json:"history,omitempty"`
	Err        error             `json:"-"`

	// LoopCalls counts generation+repair completions; PreStepCalls
	// counts condense/analyze completions outside the bounded loop.
	LoopCalls    int `json:"loop_calls"`
	PreStepCalls int `json:"pre_step_calls"`
}

// Accepted reports whether the run produced an accepted recipe.
func (o *Outcome) Accepted() bool { return o.Status == StatusAccepted }

// Pipeline runs the generate-check-repair loop against one provider.
type Pipeline struct {
	provider  llm.Provider
	cfg       Config
	logger    *zap.Logger
	collector *metrics.Collector
}

// New creates a pipeline. The collector may be nil.
func New(provider llm.Provider, cfg Config, logger *zap.Logger, collector *metrics.Collector) *Pipeline {
	if cfg.MaxIterations < 0 {
		cfg.MaxIterations = 0
	}
	if cfg.RecipeCharLimit <= 0 {
		cfg.RecipeCharLimit = prompt.DefaultRecipeCharLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		provider:  provider,
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "pipeline")),
		collector: collector,
	}
}

// Run transforms one recipe text into an accepted document or a terminal
// failure report. Run never returns a nil outcome alongside a nil error.
func (p *Pipeline) Run(ctx context.Context, recipeText string) (*Outcome, error) {
	recipeText = strings.TrimSpace(recipeText)
	if recipeText == "" {
		return nil, fmt.Errorf("recipe text is required")
	}

	start := time.Now()
	outcome := &Outcome{}

	// Pre-steps run outside the bounded loop.
	if len(recipeText) > p.cfg.RecipeCharLimit {
		if !p.cfg.CondenseLongInput {
			outcome.Status = StatusFailedPermanent
			outcome.Err = &GenerationError{Reason: fmt.Sprintf(
				"recipe text exceeds %d chars and condensing is disabled", p.cfg.RecipeCharLimit)}
			p.finish(outcome, start)
			return outcome, nil
		}
		condensed, err := p.condense(ctx, recipeText)
		if err != nil {
			outcome.Status = StatusFailedPermanent
			outcome.Err = &GenerationError{Reason: "condensing failed", Err: err}
			p.finish(outcome, start)
			return outcome, nil
		}
		outcome.PreStepCalls++
		recipeText = condensed
	}

	var analysis *prompt.Analysis
	if p.cfg.AnalyzeFirst {
		a, err := p.analyze(ctx, recipeText)
		if err != nil {
			// Analysis only enriches the generation prompt; its failure
			// is not fatal.
			p.logger.Warn("recipe analysis failed, generating without it", zap.Error(err))
		} else {
			analysis = a
		}
		outcome.PreStepCalls++
	}

	candidate, genErr := p.generate(ctx, recipeText, analysis)
	outcome.LoopCalls++
	if genErr != nil {
		outcome.Status = StatusFailedPermanent
		outcome.Err = genErr
		p.finish(outcome, start)
		return outcome, nil
	}

	for iteration := 0; ; iteration++ {
		violations := p.checkCandidate(candidate)
		record := IterationRecord{Iteration: iteration, Violations: violations}
		outcome.History = append(outcome.History, record)
		outcome.Iterations = iteration
		outcome.Violations = violations

		if !violations.HasErrors() {
			outcome.Status = StatusAccepted
			outcome.Recipe = candidate.Recipe
			outcome.Raw = candidate.Raw
			p.logger.Info("candidate accepted",
				zap.Int("iteration", iteration),
				zap.Int("warnings", len(violations)),
			)
			p.finish(outcome, start)
			return outcome, nil
		}

		if iteration >= p.cfg.MaxIterations {
			outcome.Status = StatusFailedBudget
			outcome.Raw = candidate.Raw
			outcome.Recipe = candidate.Recipe
			p.logger.Warn("repair budget exhausted",
				zap.Int("iterations", iteration),
				zap.Int("outstanding_errors", len(violations.Errors())),
			)
			p.finish(outcome, start)
			return outcome, nil
		}

		repaired, repairErr := p.repair(ctx, candidate, violations, iteration+1)
		outcome.LoopCalls++
		if repairErr != nil {
			// No-improvement iteration: the prior candidate and its
			// violations are retained, the counter still advances.
			p.logger.Warn("repair produced no usable candidate",
				zap.Int("iteration", iteration+1),
				zap.Error(repairErr),
			)
			outcome.History[len(outcome.History)-1].NoImprovement = true
			outcome.History[len(outcome.History)-1].RepairError = repairErr.Error()
			if ctx.Err() != nil {
				outcome.Status = StatusFailedPermanent
				outcome.Err = ctx.Err()
				p.finish(outcome, start)
				return outcome, ctx.Err()
			}
			continue
		}
		candidate = repaired
	}
}

// checkCandidate runs the structural stage and then the quality rules,
// always both, always fresh against the newest candidate.
func (p *Pipeline) checkCandidate(c *Candidate) check.Violations {
	violations := check.Structural(c.Raw)
	violations = append(violations, check.QualityWithOptions(c.Document(), check.Options{
		MaxStepDurationSeconds: p.cfg.MaxStepDurationSeconds,
	})...)
	c.Violations = violations
	for _, v := range violations {
		p.collector.RecordViolation(string(v.Stage), v.Rule, string(v.Severity))
	}
	return violations
}

func (p *Pipeline) finish(o *Outcome, start time.Time) {
	p.collector.RecordRun(string(o.Status), o.Iterations, time.Since(start))
}
