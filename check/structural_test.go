package check

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"souschef/schema"
)

// validDocument returns a minimal raw tree that passes structural
// validation. Tests mutate a copy to provoke specific violations.
func validDocument(t *testing.T) map[string]any {
	t.Helper()
	const doc = `{
		"Order": 1,
		"Generic Name": {"en": "Tomato Soup", "nl_NL": "Tomatensoep"},
		"Highlighted?": false,
		"Recipe Variant Content": [
			{
				"Recipe Variant": "Vegetarian",
				"Recipe Name": {"en": "Tomato Soup", "nl_NL": "Tomatensoep"},
				"Difficulty": "Easy",
				"Nutritional Values": {
					"Energie (kCal)": 250,
					"Protein (grams)": 8,
					"Carbohydrates (grams)": 30,
					"Sugar (grams)": 12,
					"Fat (grams)": 9,
					"Saturated Fat (grams)": 2,
					"Natrium (milligrams)": 600,
					"Fibers (grams)": 5
				}
			}
		],
		"Steps Part 1": [
			{
				"Workplace": "Stove",
				"Step Icon": "pan",
				"Instructions": {"en": "Simmer the tomatoes.", "nl_NL": "Laat de tomaten sudderen."},
				"Duration": 600,
				"RecipeVariant": ["Vegetarian"],
				"Ingredient": [
					{"Ingredient": "tomato", "Amount": 400, "Metric Unit": "Gram"}
				]
			}
		]
	}`
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &out))
	return out
}

func TestStructuralValidDocument(t *testing.T) {
	vs := Structural(validDocument(t))
	assert.Empty(t, vs, "expected no violations, got:\n%s", vs.Summary())
}

func TestStructuralNilDocument(t *testing.T) {
	vs := Structural(nil)
	require.Len(t, vs, 1)
	assert.True(t, vs.HasErrors())
}

func TestStructuralViolations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(doc map[string]any)
		path    string
		message string
	}{
		{
			name:   "missing order",
			mutate: func(doc map[string]any) { delete(doc, "Order") },
			path:   "Order",
		},
		{
			name:    "fractional order",
			mutate:  func(doc map[string]any) { doc["Order"] = 1.5 },
			path:    "Order",
			message: "whole number",
		},
		{
			name:    "highlighted not boolean",
			mutate:  func(doc map[string]any) { doc["Highlighted?"] = "yes" },
			path:    "Highlighted?",
			message: "expected boolean",
		},
		{
			name: "missing dutch locale",
			mutate: func(doc map[string]any) {
				delete(doc["Generic Name"].(map[string]any), "nl_NL")
			},
			path:    "Generic Name.nl_NL",
			message: "required locale is missing",
		},
		{
			name: "empty localized value",
			mutate: func(doc map[string]any) {
				doc["Generic Name"].(map[string]any)["en"] = ""
			},
			path:    "Generic Name.en",
			message: "must not be empty",
		},
		{
			name:   "no variants",
			mutate: func(doc map[string]any) { doc["Recipe Variant Content"] = []any{} },
			path:   "Recipe Variant Content",
		},
		{
			name: "unknown variant tag",
			mutate: func(doc map[string]any) {
				variant(doc)["Recipe Variant"] = "Pescatarian"
			},
			path:    "Recipe Variant Content[0].Recipe Variant",
			message: "not an allowed recipe variant",
		},
		{
			name: "unknown difficulty",
			mutate: func(doc map[string]any) {
				variant(doc)["Difficulty"] = "Hard"
			},
			path:    "Recipe Variant Content[0].Difficulty",
			message: "not an allowed difficulty",
		},
		{
			name: "missing nutrition field",
			mutate: func(doc map[string]any) {
				delete(variant(doc)["Nutritional Values"].(map[string]any), "Fibers (grams)")
			},
			path: "Recipe Variant Content[0].Nutritional Values.Fibers (grams)",
		},
		{
			name: "fractional nutrition value",
			mutate: func(doc map[string]any) {
				variant(doc)["Nutritional Values"].(map[string]any)["Fat (grams)"] = 9.5
			},
			path:    "Recipe Variant Content[0].Nutritional Values.Fat (grams)",
			message: "whole number",
		},
		{
			name: "missing instructions",
			mutate: func(doc map[string]any) {
				delete(step(doc), "Instructions")
			},
			path: "Steps Part 1[0].Instructions",
		},
		{
			name: "unknown unit",
			mutate: func(doc map[string]any) {
				ingredient(doc)["Metric Unit"] = "handful"
			},
			path:    "Steps Part 1[0].Ingredient[0].Metric Unit",
			message: "not an allowed metric unit",
		},
		{
			name: "lowercase unit rejected",
			mutate: func(doc map[string]any) {
				ingredient(doc)["Metric Unit"] = "gram"
			},
			path: "Steps Part 1[0].Ingredient[0].Metric Unit",
		},
		{
			name: "amount not a number",
			mutate: func(doc map[string]any) {
				ingredient(doc)["Amount"] = "a few"
			},
			path:    "Steps Part 1[0].Ingredient[0].Amount",
			message: "expected number",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument(t)
			tt.mutate(doc)
			vs := Structural(doc)
			require.True(t, vs.HasErrors(), "expected violations, got none")
			found := false
			for _, v := range vs {
				if v.Path == tt.path {
					found = true
					assert.Equal(t, StageStructural, v.Stage)
					assert.Equal(t, SeverityError, v.Severity)
					if tt.message != "" {
						assert.Contains(t, v.Message, tt.message)
					}
				}
			}
			assert.True(t, found, "no violation at path %q, got:\n%s", tt.path, vs.Summary())
		})
	}
}

func TestStructuralStepCap(t *testing.T) {
	doc := validDocument(t)
	base := step(doc)
	steps := make([]any, 0, schema.MaxSteps+1)
	for i := 0; i <= schema.MaxSteps; i++ {
		steps = append(steps, base)
	}
	doc["Steps Part 1"] = steps

	vs := Structural(doc)
	require.True(t, vs.HasErrors())
	assert.Contains(t, vs.Summary(), "maximum is 50")
}

func TestStructuralMisshapenNodesDoNotPanic(t *testing.T) {
	doc := validDocument(t)
	doc["Recipe Variant Content"] = []any{"not an object", 42.0}
	doc["Steps Part 1"] = "not an array"

	vs := Structural(doc)
	assert.True(t, vs.HasErrors())
}

func variant(doc map[string]any) map[string]any {
	return doc["Recipe Variant Content"].([]any)[0].(map[string]any)
}

func step(doc map[string]any) map[string]any {
	return doc["Steps Part 1"].([]any)[0].(map[string]any)
}

func ingredient(doc map[string]any) map[string]any {
	return step(doc)["Ingredient"].([]any)[0].(map[string]any)
}
