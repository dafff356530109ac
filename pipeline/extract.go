package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// requiredTopLevel are the fields every extracted document must carry for
// the pipeline to treat it as a recipe payload at all.
var requiredTopLevel = []string{"Order", "Generic Name", "Recipe Variant Content", "Steps Part 1"}

// ExtractJSON pulls a recipe document out of raw model output. Models wrap
// JSON in markdown fences, leave trailing commas and emit literal newlines
// inside string values; all of that is tolerated. Truncated output is not:
// a payload with unbalanced braces is rejected rather than parsed into a
// silently incomplete document.
func ExtractJSON(text string) (map[string]any, error) {
	var direct map[string]any
	if err := json.Unmarshal([]byte(text), &direct); err == nil {
		return requireTopLevel(direct)
	}

	text = stripMarkdownFence(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("model output did not contain valid JSON")
	}
	jsonText := text[start : end+1]

	if isTruncatedJSON(jsonText) {
		return nil, fmt.Errorf("model output appears truncated or malformed")
	}

	jsonText = sanitizeJSONString(jsonText)

	var parsed map[string]any
	if err := json.Unmarshal([]byte(jsonText), &parsed); err == nil {
		return requireTopLevel(parsed)
	}

	// Trailing commas are the most common residual defect.
	fixed := trailingCommaRe.ReplaceAllString(jsonText, "$1")
	if err := json.Unmarshal([]byte(fixed), &parsed); err != nil {
		preview := jsonText
		if len(preview) > 1000 {
			preview = preview[:1000]
		}
		return nil, fmt.Errorf("JSON parsing failed: %w\n\nProblematic JSON (first 1000 chars):\n%s", err, preview)
	}
	return requireTopLevel(parsed)
}

var trailingCommaRe = regexp.MustCompile(`,\s*([\]}])`)

func requireTopLevel(parsed map[string]any) (map[string]any, error) {
	var missing []string
	for _, field := range requiredTopLevel {
		if _, ok := parsed[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		actual := make([]string, 0, len(parsed))
		for k := range parsed {
			actual = append(actual, k)
		}
		return nil, fmt.Errorf(
			"wrong JSON structure returned, expected fields %v but got %v: the model may have generated a different recipe format",
			requiredTopLevel, actual)
	}
	return parsed, nil
}

func stripMarkdownFence(text string) string {
	if idx := strings.Index(text, "```json"); idx != -1 {
		start := idx + len("```json")
		if end := strings.Index(text[start:], "```"); end != -1 {
			return strings.TrimSpace(text[start : start+end])
		}
	}
	if idx := strings.Index(text, "```"); idx != -1 {
		start := idx + len("```")
		if end := strings.Index(text[start:], "```"); end != -1 {
			return strings.TrimSpace(text[start : start+end])
		}
	}
	return text
}

// isTruncatedJSON scans the payload counting brace/bracket depth outside of
// string values. Unbalanced depth or an unterminated string means the model
// ran out of tokens mid-document.
func isTruncatedJSON(text string) bool {
	stripped := strings.TrimSpace(text)
	if stripped == "" {
		return false
	}
	if !strings.HasSuffix(stripped, "}") {
		return true
	}
	var brace, bracket int
	var inString, escaped bool
	for _, ch := range stripped {
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				brace++
			}
		case '}':
			if !inString {
				brace--
			}
		case '[':
			if !inString {
				bracket++
			}
		case ']':
			if !inString {
				bracket--
			}
		}
	}
	return inString || brace != 0 || bracket != 0
}

// sanitizeJSONString escapes raw control characters inside string values so
// a model that emitted a literal newline mid-string still parses.
func sanitizeJSONString(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	var inString, escaped bool
	for _, ch := range text {
		if escaped {
			b.WriteRune(ch)
			escaped = false
			continue
		}
		if ch == '\\' {
			b.WriteRune(ch)
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			b.WriteRune(ch)
			continue
		}
		if inString {
			switch ch {
			case '\n':
				b.WriteString(`\n`)
				continue
			case '\r':
				b.WriteString(`\r`)
				continue
			case '\t':
				b.WriteString(`\t`)
				continue
			}
		}
		b.WriteRune(ch)
	}
	return b.String()
}
