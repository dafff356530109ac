package check

import (
	"fmt"
	"math"

	"souschef/schema"
	"souschef/units"
)

// Structural validates a raw candidate tree against the target schema:
// required-field presence, type conformance, closed-vocabulary membership,
// localization completeness, the step-count cap and the whole-number
// nutrition constraint. It is a pure function and never fails on malformed
// input: missing or mis-shaped nodes become violations.
func Structural(doc map[string]any) Violations {
	var vs Violations
	if doc == nil {
		vs.add("", "document is missing or not a JSON object")
		return vs
	}

	vs.requireWholeNumber(doc, "Order", "")
	vs.requireLocalized(doc, "Generic Name", "", true)
	if raw, ok := doc["Highlighted?"]; ok && raw != nil {
		if _, isBool := raw.(bool); !isBool {
			vs.add("Highlighted?", "expected boolean, got %s", typeName(raw))
		}
	}

	variants, ok := requireArray(&vs, doc, "Recipe Variant Content", "")
	if ok {
		if len(variants) == 0 {
			vs.add("Recipe Variant Content", "at least one recipe variant is required")
		}
		for i, raw := range variants {
			path := fmt.Sprintf("Recipe Variant Content[%d]", i)
			variant, isObj := raw.(map[string]any)
			if !isObj {
				vs.add(path, "expected object, got %s", typeName(raw))
				continue
			}
			validateVariant(&vs, variant, path)
		}
	}

	steps, ok := requireArray(&vs, doc, "Steps Part 1", "")
	if ok {
		if len(steps) == 0 {
			vs.add("Steps Part 1", "at least one step is required")
		}
		if len(steps) > schema.MaxSteps {
			vs.add("Steps Part 1", "recipe has %d steps, maximum is %d", len(steps), schema.MaxSteps)
		}
		for i, raw := range steps {
			path := fmt.Sprintf("Steps Part 1[%d]", i)
			step, isObj := raw.(map[string]any)
			if !isObj {
				vs.add(path, "expected object, got %s", typeName(raw))
				continue
			}
			validateStep(&vs, step, path)
		}
	}

	return vs
}

func validateVariant(vs *Violations, variant map[string]any, path string) {
	if tag, ok := requireString(vs, variant, "Recipe Variant", path); ok {
		if !schema.ValidVariantTag(tag) {
			vs.add(joinPath(path, "Recipe Variant"),
				"%q is not an allowed recipe variant, expected one of %v", tag, schema.VariantTags)
		}
	}
	vs.requireLocalized(variant, "Recipe Name", path, true)
	vs.requireLocalized(variant, "Description", path, false)

	if diff, ok := requireString(vs, variant, "Difficulty", path); ok {
		if !schema.ValidDifficulty(diff) {
			vs.add(joinPath(path, "Difficulty"),
				"%q is not an allowed difficulty, expected one of %v", diff, schema.Difficulties)
		}
	}

	raw, ok := variant["Nutritional Values"]
	if !ok || raw == nil {
		vs.add(joinPath(path, "Nutritional Values"), "required field is missing")
		return
	}
	nutrition, isObj := raw.(map[string]any)
	if !isObj {
		vs.add(joinPath(path, "Nutritional Values"), "expected object, got %s", typeName(raw))
		return
	}
	for _, field := range schema.NutritionFields {
		vs.requireWholeNumber(nutrition, field, joinPath(path, "Nutritional Values"))
	}
}

func validateStep(vs *Violations, step map[string]any, path string) {
	requireString(vs, step, "Workplace", path)
	requireString(vs, step, "Step Icon", path)
	vs.requireLocalized(step, "Instructions", path, true)
	vs.requireLocalized(step, "Display Name", path, false)
	vs.requireLocalized(step, "Action", path, false)
	vs.requireWholeNumber(step, "Duration", path)

	if variants, ok := requireArray(vs, step, "RecipeVariant", path); ok {
		for i, raw := range variants {
			if _, isStr := raw.(string); !isStr {
				vs.add(fmt.Sprintf("%s[%d]", joinPath(path, "RecipeVariant"), i),
					"expected string, got %s", typeName(raw))
			}
		}
	}

	raw, ok := step["Ingredient"]
	if !ok || raw == nil {
		return // ingredient list is optional
	}
	ingredients, isArr := raw.([]any)
	if !isArr {
		vs.add(joinPath(path, "Ingredient"), "expected array, got %s", typeName(raw))
		return
	}
	for i, rawItem := range ingredients {
		itemPath := fmt.Sprintf("%s[%d]", joinPath(path, "Ingredient"), i)
		item, isObj := rawItem.(map[string]any)
		if !isObj {
			vs.add(itemPath, "expected object, got %s", typeName(rawItem))
			continue
		}
		requireString(vs, item, "Ingredient", itemPath)
		if raw, ok := item["Amount"]; !ok || raw == nil {
			vs.add(joinPath(itemPath, "Amount"), "required field is missing")
		} else if _, isNum := toFloat(raw); !isNum {
			vs.add(joinPath(itemPath, "Amount"), "expected number, got %s", typeName(raw))
		}
		if unit, ok := requireString(vs, item, "Metric Unit", itemPath); ok {
			if !units.IsAllowed(unit) {
				vs.add(joinPath(itemPath, "Metric Unit"),
					"%q is not an allowed metric unit, expected one of %v", unit, units.Vocabulary)
			}
		}
	}
}

// add appends a structural error violation with a formatted message.
func (vs *Violations) add(path, format string, args ...any) {
	*vs = append(*vs, Violation{
		Stage:    StageStructural,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityError,
	})
}

// requireLocalized checks that a localized field carries a non-empty string
// for every required locale. When required is false, a missing field is
// fine but a present one must still be complete.
func (vs *Violations) requireLocalized(obj map[string]any, key, base string, required bool) {
	path := joinPath(base, key)
	raw, ok := obj[key]
	if !ok || raw == nil {
		if required {
			vs.add(path, "required field is missing")
		}
		return
	}
	localized, isObj := raw.(map[string]any)
	if !isObj {
		vs.add(path, "expected localized object, got %s", typeName(raw))
		return
	}
	for _, locale := range schema.RequiredLocales {
		value, ok := localized[locale]
		if !ok || value == nil {
			vs.add(joinPath(path, locale), "required locale is missing")
			continue
		}
		str, isStr := value.(string)
		if !isStr {
			vs.add(joinPath(path, locale), "expected string, got %s", typeName(value))
			continue
		}
		if str == "" {
			vs.add(joinPath(path, locale), "localized value must not be empty")
		}
	}
}

// requireWholeNumber checks that a field is present and a whole number.
// JSON numbers decode as float64, so integrality is checked via Trunc.
func (vs *Violations) requireWholeNumber(obj map[string]any, key, base string) {
	path := joinPath(base, key)
	raw, ok := obj[key]
	if !ok || raw == nil {
		vs.add(path, "required field is missing")
		return
	}
	num, isNum := toFloat(raw)
	if !isNum {
		vs.add(path, "expected integer, got %s", typeName(raw))
		return
	}
	if num != math.Trunc(num) {
		vs.add(path, "expected whole number, got %v", num)
	}
}

func requireString(vs *Violations, obj map[string]any, key, base string) (string, bool) {
	path := joinPath(base, key)
	raw, ok := obj[key]
	if !ok || raw == nil {
		vs.add(path, "required field is missing")
		return "", false
	}
	str, isStr := raw.(string)
	if !isStr {
		vs.add(path, "expected string, got %s", typeName(raw))
		return "", false
	}
	return str, true
}

func requireArray(vs *Violations, obj map[string]any, key, base string) ([]any, bool) {
	path := joinPath(base, key)
	raw, ok := obj[key]
	if !ok || raw == nil {
		vs.add(path, "required field is missing")
		return nil, false
	}
	arr, isArr := raw.([]any)
	if !isArr {
		vs.add(path, "expected array, got %s", typeName(raw))
		return nil, false
	}
	return arr, true
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func typeName(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", value)
}
