package check

import (
	"fmt"
	"strings"

	"souschef/schema"
	"souschef/units"
)

// DefaultMaxStepDurationSeconds is the upper bound beyond which a step
// duration is flagged as suspicious. Four hours covers slow braises and
// proofing doughs.
const DefaultMaxStepDurationSeconds = 4 * 60 * 60

// Options tunes the quality rules.
type Options struct {
	// MaxStepDurationSeconds flags longer step durations with a warning.
	// Zero means DefaultMaxStepDurationSeconds.
	MaxStepDurationSeconds int
}

// qualityRule evaluates one business rule against a candidate document.
type qualityRule struct {
	name string
	fn   func(*Document, Options) Violations
}

// qualityRules is the registry, evaluated in order. Every rule always runs;
// a finding in one rule never short-circuits the rest.
var qualityRules = []qualityRule{
	{"duration-sane", ruleDurationSane},
	{"unit-legal", ruleUnitLegal},
	{"countdown-consistent", ruleCountdownConsistent},
	{"narrative-present", ruleNarrativePresent},
	{"ingredient-unique", ruleIngredientUnique},
	{"nutrition-integral", ruleNutritionIntegral},
}

// Quality evaluates every registered business rule with default options.
func Quality(doc *Document) Violations {
	return QualityWithOptions(doc, Options{})
}

// QualityWithOptions evaluates every registered business rule against the
// candidate. It assumes the document already passed structural validation;
// a nil typed view yields no findings rather than a panic.
func QualityWithOptions(doc *Document, opts Options) Violations {
	if doc == nil || doc.Recipe == nil {
		return nil
	}
	if opts.MaxStepDurationSeconds <= 0 {
		opts.MaxStepDurationSeconds = DefaultMaxStepDurationSeconds
	}
	var vs Violations
	for _, rule := range qualityRules {
		for _, v := range rule.fn(doc, opts) {
			v.Stage = StageQuality
			v.Rule = rule.name
			vs = append(vs, v)
		}
	}
	return vs
}

func ruleDurationSane(doc *Document, opts Options) Violations {
	var vs Violations
	for i, step := range doc.Recipe.Steps {
		path := fmt.Sprintf("Steps Part 1[%d].Duration", i)
		switch {
		case step.Duration <= 0:
			vs = append(vs, Violation{
				Path:     path,
				Message:  fmt.Sprintf("step duration must be positive, got %d", step.Duration),
				Severity: SeverityError,
			})
		case step.Duration > opts.MaxStepDurationSeconds:
			vs = append(vs, Violation{
				Path:     path,
				Message:  fmt.Sprintf("step duration of %d seconds exceeds %d, verify it is intentional", step.Duration, opts.MaxStepDurationSeconds),
				Severity: SeverityWarning,
			})
		}
	}
	return vs
}

func ruleUnitLegal(doc *Document, _ Options) Violations {
	var vs Violations
	for i, step := range doc.Recipe.Steps {
		for j, ing := range step.Ingredients {
			if units.IsAllowed(ing.MetricUnit) {
				continue
			}
			path := fmt.Sprintf("Steps Part 1[%d].Ingredient[%d].Metric Unit", i, j)
			msg := fmt.Sprintf("%q is not an allowed unit", ing.MetricUnit)
			if canonical, changed := units.Normalize(ing.MetricUnit); changed {
				msg = fmt.Sprintf("%q is not an allowed unit, use %q", ing.MetricUnit, canonical)
			}
			vs = append(vs, Violation{Path: path, Message: msg, Severity: SeverityError})
		}
	}
	return vs
}

func ruleCountdownConsistent(doc *Document, _ Options) Violations {
	declared := make(map[string]struct{})
	for _, step := range doc.Recipe.Steps {
		for _, trigger := range step.CountDown {
			declared[trigger] = struct{}{}
		}
	}
	var vs Violations
	for i, step := range doc.Recipe.Steps {
		ref := step.TriggerCountdownStep
		if ref == "" {
			continue
		}
		if _, ok := declared[ref]; !ok {
			vs = append(vs, Violation{
				Path:     fmt.Sprintf("Steps Part 1[%d].Trigger Countdown Step", i),
				Message:  fmt.Sprintf("references countdown trigger %q which no step declares", ref),
				Severity: SeverityError,
			})
		}
	}
	return vs
}

// ruleNarrativePresent checks that every localized narrative value is
// present and single-line. Raw line breaks inside a value break both the
// JSON export and the CSV export downstream.
func ruleNarrativePresent(doc *Document, _ Options) Violations {
	var vs Violations
	checkText := func(path string, t *schema.LocalizedText, required bool) {
		if t == nil {
			return
		}
		for _, locale := range schema.RequiredLocales {
			value := t.Get(locale)
			localePath := joinPath(path, locale)
			if strings.TrimSpace(value) == "" {
				if required {
					vs = append(vs, Violation{
						Path:     localePath,
						Message:  "narrative text is empty",
						Severity: SeverityError,
					})
				}
				continue
			}
			if strings.ContainsAny(value, "\n\r\t") {
				vs = append(vs, Violation{
					Path:     localePath,
					Message:  "narrative text contains raw line breaks or tabs, values must be single-line",
					Severity: SeverityError,
				})
			}
		}
	}

	checkText("Generic Name", &doc.Recipe.GenericName, true)
	for i := range doc.Recipe.Variants {
		variant := &doc.Recipe.Variants[i]
		base := fmt.Sprintf("Recipe Variant Content[%d]", i)
		checkText(joinPath(base, "Recipe Name"), &variant.RecipeName, true)
		checkText(joinPath(base, "Description"), variant.Description, false)
	}
	for i := range doc.Recipe.Steps {
		step := &doc.Recipe.Steps[i]
		base := fmt.Sprintf("Steps Part 1[%d]", i)
		checkText(joinPath(base, "Instructions"), &step.Instructions, true)
		checkText(joinPath(base, "Display Name"), step.DisplayName, false)
		checkText(joinPath(base, "Action"), step.Action, false)
	}
	return vs
}

// ruleIngredientUnique enforces single introduction: within one variant's
// step sequence, an ingredient name may appear in at most one step's
// ingredient list. Later mentions belong in the instructions, not in a
// second component entry that would double the shopping amounts.
func ruleIngredientUnique(doc *Document, _ Options) Violations {
	var vs Violations
	for _, variant := range doc.Recipe.Variants {
		tag := variant.RecipeVariant
		introducedAt := make(map[string]int)
		for i, step := range doc.Recipe.Steps {
			if !stepAppliesTo(step, tag) {
				continue
			}
			for j, ing := range step.Ingredients {
				key := strings.ToLower(strings.TrimSpace(ing.Ingredient))
				if key == "" {
					continue
				}
				if first, seen := introducedAt[key]; seen {
					msg := fmt.Sprintf("ingredient %q for variant %q is already introduced in step %d", ing.Ingredient, tag, first+1)
					if first == i {
						msg = fmt.Sprintf("ingredient %q is listed twice in step %d for variant %q", ing.Ingredient, i+1, tag)
					}
					vs = append(vs, Violation{
						Path:     fmt.Sprintf("Steps Part 1[%d].Ingredient[%d]", i, j),
						Message:  msg,
						Severity: SeverityError,
					})
					continue
				}
				introducedAt[key] = i
			}
		}
	}
	return vs
}

func stepAppliesTo(step schema.Step, tag string) bool {
	if len(step.RecipeVariants) == 0 {
		return true
	}
	for _, v := range step.RecipeVariants {
		if v == tag {
			return true
		}
	}
	return false
}

// ruleNutritionIntegral inspects the raw tree, not the typed view: a typed
// int would silently hide a "250-300" range string or a 12.5 the decoder
// rejected, and negative values survive typed decoding just fine.
func ruleNutritionIntegral(doc *Document, _ Options) Violations {
	var vs Violations
	if doc.Raw == nil {
		return nil
	}
	variants, _ := doc.Raw["Recipe Variant Content"].([]any)
	for i, raw := range variants {
		variant, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		nutrition, ok := variant["Nutritional Values"].(map[string]any)
		if !ok {
			continue
		}
		for _, field := range schema.NutritionFields {
			path := fmt.Sprintf("Recipe Variant Content[%d].Nutritional Values.%s", i, field)
			value, present := nutrition[field]
			if !present {
				continue // structural stage already reported the absence
			}
			switch v := value.(type) {
			case string:
				msg := fmt.Sprintf("expected a whole number, got the string %q", v)
				if strings.Contains(v, "-") {
					msg = fmt.Sprintf("range values like %q are not allowed, pick a single whole number", v)
				}
				vs = append(vs, Violation{Path: path, Message: msg, Severity: SeverityError})
			case float64:
				if v < 0 {
					vs = append(vs, Violation{
						Path:     path,
						Message:  fmt.Sprintf("nutrition values must be non-negative, got %v", v),
						Severity: SeverityError,
					})
				}
			}
		}
	}
	return vs
}
