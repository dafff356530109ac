package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"souschef/llm"
	"souschef/prompt"
)

// generate performs the single generation completion and turns its output
// into the iteration-0 candidate. Any failure here is a GenerationError:
// there is nothing to repair yet.
func (p *Pipeline) generate(ctx context.Context, recipeText string, analysis *prompt.Analysis) (*Candidate, *GenerationError) {
	messages, err := prompt.Generation(recipeText, analysis, p.cfg.RecipeCharLimit)
	if err != nil {
		return nil, &GenerationError{Reason: "prompt over budget", Err: err}
	}

	text, err := p.complete(ctx, "generation", messages)
	if err != nil {
		return nil, &GenerationError{Reason: "completion call failed", Err: err}
	}

	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, &GenerationError{Reason: "unparseable model output", Err: err}
	}

	return newCandidate(0, text, raw), nil
}

// condense shrinks an over-long recipe text under the configured limit.
func (p *Pipeline) condense(ctx context.Context, recipeText string) (string, error) {
	text, err := p.complete(ctx, "condense", prompt.Condense(recipeText, p.cfg.RecipeCharLimit))
	if err != nil {
		return "", err
	}
	if len(text) > p.cfg.RecipeCharLimit {
		// A second over-long answer is trimmed line by line rather than
		// cut mid-word.
		text = trimToLimit(text, p.cfg.RecipeCharLimit)
	}
	p.logger.Debug("recipe text condensed",
		zap.Int("original_chars", len(recipeText)),
		zap.Int("condensed_chars", len(text)),
	)
	return text, nil
}

// analyze runs the ingredients/tools/time/complexity pre-analysis.
func (p *Pipeline) analyze(ctx context.Context, recipeText string) (*prompt.Analysis, error) {
	messages, err := prompt.Analyze(recipeText, p.cfg.RecipeCharLimit)
	if err != nil {
		return nil, err
	}
	text, err := p.complete(ctx, "analyze", messages)
	if err != nil {
		return nil, err
	}
	raw := stripMarkdownFence(text)
	var analysis prompt.Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("analysis output is not valid JSON: %w", err)
	}
	return &analysis, nil
}

// complete performs one provider call with the pipeline's model settings.
func (p *Pipeline) complete(ctx context.Context, kind string, messages []llm.Message) (string, error) {
	start := time.Now()
	resp, err := p.provider.Completion(ctx, &llm.ChatRequest{
		Model:       p.cfg.Model,
		Messages:    messages,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Metadata:    map[string]string{"kind": kind},
	})
	if err != nil {
		p.collector.RecordCompletion(p.provider.Name(), kind, "error", time.Since(start))
		return "", err
	}
	p.collector.RecordCompletion(p.provider.Name(), kind, "ok", time.Since(start))
	p.collector.RecordTokens(p.provider.Name(), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	text := resp.Text()
	if text == "" {
		return "", &llm.Error{
			Code:     llm.ErrMalformedOutput,
			Message:  "completion returned no content",
			Provider: p.provider.Name(),
		}
	}
	return text, nil
}

// trimToLimit keeps whole lines up to limit characters.
func trimToLimit(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	var kept []string
	count := 0
	for _, line := range strings.Split(text, "\n") {
		lineLen := len(line) + 1
		if count+lineLen > limit {
			break
		}
		kept = append(kept, line)
		count += lineLen
	}
	return strings.Join(kept, "\n")
}
