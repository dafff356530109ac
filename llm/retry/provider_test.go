package retry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"souschef/llm"
	"souschef/testutil/mocks"
)

func TestWrapProviderRetriesTransientFailures(t *testing.T) {
	calls := 0
	inner := mocks.NewMockProvider().WithCompletionFunc(func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
		calls++
		if calls == 1 {
			return nil, &llm.Error{Code: llm.ErrRateLimited, Message: "slow down", Retryable: true}
		}
		return &llm.ChatResponse{Choices: []llm.ChatChoice{{Message: llm.Message{Role: llm.RoleAssistant, Content: "ok"}}}}, nil
	})

	p := WrapProvider(inner, fastPolicy(2), nil)
	resp, err := p.Completion(context.Background(), &llm.ChatRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
	assert.Equal(t, 2, calls)
}

func TestWrapProviderGivesUpOnPermanentErrors(t *testing.T) {
	inner := mocks.NewErrorProvider(&llm.Error{Code: llm.ErrUnauthorized, Message: "bad key"})

	p := WrapProvider(inner, fastPolicy(3), nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{Model: "m"})
	require.Error(t, err)
	assert.Equal(t, llm.ErrUnauthorized, llm.CodeOf(err))
	assert.Equal(t, 1, inner.GetCallCount(), "non-retryable errors return immediately")
}

func TestWrapProviderKeepsProviderName(t *testing.T) {
	p := WrapProvider(mocks.NewSuccessProvider("hi"), nil, nil)
	assert.Equal(t, "mock", p.Name())
}
