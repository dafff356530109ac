// Package prompt builds the completion prompts of the transformation
// pipeline and guards them against the configured size budget.
package prompt

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultPromptCharLimit bounds a fully rendered prompt.
	DefaultPromptCharLimit = 6000

	// DefaultRecipeCharLimit bounds the raw recipe text embedded into a
	// prompt; longer inputs must be condensed first.
	DefaultRecipeCharLimit = 3000
)

// BudgetError reports a prompt or input that exceeds its size budget.
// Oversized prompts are rejected, never silently truncated.
type BudgetError struct {
	What   string
	Length int
	Limit  int
	Unit   string // "chars" or "tokens"
}

func (e *BudgetError) Error() string {
	unit := e.Unit
	if unit == "" {
		unit = "chars"
	}
	return fmt.Sprintf("%s exceeds configured limit: length %d %s, limit %d %s", e.What, e.Length, unit, e.Limit, unit)
}

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// EstimateTokens estimates the token count of text. It uses the cl100k_base
// encoding when available and falls back to the chars/4 heuristic when the
// encoding cannot be loaded (offline environments).
func EstimateTokens(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err == nil {
			encoding = enc
		}
	})
	if encoding != nil {
		return len(encoding.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

// promptTokenLimit derives the token ceiling from a char ceiling. Three
// chars per token is a conservative floor for English prose, so a prompt
// that passes the char check can still trip the token check on
// token-dense text.
func promptTokenLimit(charLimit int) int {
	return charLimit / 3
}

// ensureWithinBudget returns a BudgetError when text exceeds the char
// limit or the estimated token limit. Either limit can be disabled with
// zero.
func ensureWithinBudget(what, text string, charLimit, tokenLimit int) error {
	if charLimit > 0 && len(text) > charLimit {
		return &BudgetError{What: what, Length: len(text), Limit: charLimit, Unit: "chars"}
	}
	if tokenLimit > 0 {
		if tokens := EstimateTokens(text); tokens > tokenLimit {
			return &BudgetError{What: what, Length: tokens, Limit: tokenLimit, Unit: "tokens"}
		}
	}
	return nil
}
