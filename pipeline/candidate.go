package pipeline

import (
	"encoding/json"
	"fmt"

	"souschef/check"
	"souschef/schema"
	"souschef/units"
)

// Candidate is an immutable snapshot of one pipeline iteration: the raw
// model text, the decoded tree, the typed view when the tree decodes, and
// the violations of the checking pass that examined it. Repair never
// mutates a candidate; it produces a new one.
type Candidate struct {
	Iteration  int
	RawText    string
	Raw        map[string]any
	Recipe     *schema.Recipe
	Violations check.Violations
}

// Document returns the checking view of the candidate.
func (c *Candidate) Document() *check.Document {
	return &check.Document{Raw: c.Raw, Recipe: c.Recipe}
}

// PayloadJSON renders the raw tree for embedding into a repair prompt.
func (c *Candidate) PayloadJSON() (string, error) {
	data, err := json.MarshalIndent(c.Raw, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render candidate payload: %w", err)
	}
	return string(data), nil
}

// newCandidate builds a snapshot from freshly extracted model output:
// deterministic normalization first, then the typed decode. A tree that
// does not decode into the schema types still yields a candidate; the
// structural checker will say why.
func newCandidate(iteration int, rawText string, raw map[string]any) *Candidate {
	normalizeTree(raw)
	c := &Candidate{Iteration: iteration, RawText: rawText, Raw: raw}
	if rec, err := decodeRecipe(raw); err == nil {
		c.Recipe = rec
	}
	return c
}

func decodeRecipe(raw map[string]any) (*schema.Recipe, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var rec schema.Recipe
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// normalizeTree applies the deterministic cleanups models habitually need:
// shopping-list entries flattened to strings, unit synonyms mapped onto the
// canonical vocabulary, countdown objects flattened to trigger names.
// Unknown units are left untouched for the quality checker to flag.
func normalizeTree(payload map[string]any) {
	variants, _ := payload["Recipe Variant Content"].([]any)
	for _, raw := range variants {
		variant, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if list, ok := variant["Shopping List"].([]any); ok {
			normalized := make([]any, 0, len(list))
			for _, item := range list {
				switch v := item.(type) {
				case map[string]any:
					name := firstString(v, "Ingredient", "en", "ingredient")
					if name != "" {
						normalized = append(normalized, name)
					}
				case string:
					normalized = append(normalized, v)
				default:
					normalized = append(normalized, fmt.Sprint(v))
				}
			}
			variant["Shopping List"] = normalized
		}
	}

	steps, _ := payload["Steps Part 1"].([]any)
	for _, raw := range steps {
		step, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if ingredients, ok := step["Ingredient"].([]any); ok {
			for _, rawItem := range ingredients {
				item, ok := rawItem.(map[string]any)
				if !ok {
					continue
				}
				unit, ok := item["Metric Unit"].(string)
				if !ok || unit == "" {
					continue
				}
				if canonical, changed := units.Normalize(unit); changed {
					item["Metric Unit"] = canonical
				}
			}
		}
		if countdown, ok := step["Count Down"].([]any); ok {
			normalized := make([]any, 0, len(countdown))
			for _, item := range countdown {
				switch v := item.(type) {
				case map[string]any:
					trigger := firstString(v, "Trigger", "name")
					if trigger == "" {
						trigger = "Timer"
					}
					if duration, ok := v["Duration"]; ok && duration != nil {
						normalized = append(normalized, fmt.Sprintf("%s (%vs)", trigger, duration))
					} else {
						normalized = append(normalized, trigger)
					}
				case string:
					normalized = append(normalized, v)
				default:
					normalized = append(normalized, fmt.Sprint(v))
				}
			}
			step["Count Down"] = normalized
		}
	}
}

func firstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
