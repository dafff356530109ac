package retry

import (
	"context"

	"go.uber.org/zap"

	"souschef/llm"
)

// Provider wraps an llm.Provider so every completion call runs under a
// retry policy.
type Provider struct {
	inner   llm.Provider
	retryer Retryer
}

// WrapProvider decorates inner with the given policy. A nil policy uses
// DefaultPolicy.
func WrapProvider(inner llm.Provider, policy *Policy, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		inner:   inner,
		retryer: NewBackoffRetryer(policy, logger.With(zap.String("provider", inner.Name()))),
	}
}

func (p *Provider) Name() string { return p.inner.Name() }

// Completion implements llm.Provider.
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	var resp *llm.ChatResponse
	err := p.retryer.Do(ctx, func() error {
		var callErr error
		resp, callErr = p.inner.Completion(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
