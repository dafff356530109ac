// Package check validates candidate recipe documents against the target
// schema (structural stage) and against domain business rules (quality
// stage). Both stages are pure functions that report findings as Violations
// instead of failing: malformed input is data, not an exception.
package check

import (
	"fmt"
	"sort"
	"strings"

	"souschef/schema"
)

// Stage identifies which checker produced a violation.
type Stage string

const (
	StageStructural Stage = "structural"
	StageQuality    Stage = "quality"
)

// Severity classifies a violation. Only error-severity violations block
// acceptance; warnings pass through into the final report.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation is a single structured finding against a candidate document.
type Violation struct {
	Stage    Stage    `json:"stage"`
	Path     string   `json:"path"`
	Rule     string   `json:"rule,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (v Violation) String() string {
	if v.Path == "" {
		return fmt.Sprintf("[%s/%s] %s", v.Stage, v.Severity, v.Message)
	}
	return fmt.Sprintf("[%s/%s] %s: %s", v.Stage, v.Severity, v.Path, v.Message)
}

// Violations is a per-iteration accumulation of findings.
type Violations []Violation

// HasErrors reports whether any violation carries error severity.
func (vs Violations) HasErrors() bool {
	for _, v := range vs {
		if v.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity violations.
func (vs Violations) Errors() Violations {
	var out Violations
	for _, v := range vs {
		if v.Severity == SeverityError {
			out = append(out, v)
		}
	}
	return out
}

// Summary renders the violations grouped by severity then path, the shape
// the repair prompt embeds.
func (vs Violations) Summary() string {
	if len(vs) == 0 {
		return "no outstanding issues"
	}
	sorted := make(Violations, len(vs))
	copy(sorted, vs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Severity != sorted[j].Severity {
			return sorted[i].Severity == SeverityError
		}
		return sorted[i].Path < sorted[j].Path
	})
	var b strings.Builder
	for _, v := range sorted {
		fmt.Fprintf(&b, "- %s\n", v.String())
	}
	return strings.TrimRight(b.String(), "\n")
}

// joinPath joins a parent path and a field name with a dot, tolerating an
// empty parent for root-level fields.
func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

// Document bundles the two views of one candidate: the raw decoded JSON
// tree (what the model actually returned) and, when the tree decodes into
// the schema types, the typed recipe. Quality rules that care about raw
// value forms (nutrition ranges) read Raw; everything else reads Recipe.
type Document struct {
	Raw    map[string]any
	Recipe *schema.Recipe
}
