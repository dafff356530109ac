package llm

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Throttled wraps a Provider with a shared rate limiter so that every
// completion call, no matter which worker issues it, respects the
// configured inter-call delay. The limiter wait honors context
// cancellation.
type Throttled struct {
	inner   Provider
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewThrottled wraps inner with limiter. A nil limiter disables
// throttling, the wrapper then delegates directly.
func NewThrottled(inner Provider, limiter *rate.Limiter, logger *zap.Logger) *Throttled {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Throttled{inner: inner, limiter: limiter, logger: logger}
}

func (t *Throttled) Name() string { return t.inner.Name() }

func (t *Throttled) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &Error{
				Code:     ErrUpstreamTimeout,
				Message:  "rate limiter wait canceled: " + err.Error(),
				Provider: t.inner.Name(),
			}
		}
		t.logger.Debug("rate limiter released completion slot",
			zap.String("provider", t.inner.Name()),
			zap.String("trace_id", req.TraceID),
		)
	}
	return t.inner.Completion(ctx, req)
}
