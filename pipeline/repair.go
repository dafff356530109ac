package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"souschef/check"
	"souschef/prompt"
)

// repair performs exactly one completion asking the model to fix the
// outstanding violations. Any failure (provider error, over-budget
// prompt, unparseable output) returns an error and the caller treats the
// iteration as no-improvement: the prior candidate stands.
func (p *Pipeline) repair(ctx context.Context, prior *Candidate, violations check.Violations, iteration int) (*Candidate, error) {
	payload, err := prior.PayloadJSON()
	if err != nil {
		return nil, err
	}
	messages, err := prompt.Repair(payload, violations.Errors().Summary())
	if err != nil {
		return nil, err
	}

	p.logger.Info("repairing candidate",
		zap.Int("iteration", iteration),
		zap.Int("errors", len(violations.Errors())),
	)

	text, err := p.complete(ctx, "repair", messages)
	if err != nil {
		return nil, err
	}

	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("repair output unusable: %w", err)
	}
	return newCandidate(iteration, text, raw), nil
}
