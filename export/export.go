// Package export renders an accepted recipe into its delivery artifacts:
// the canonical JSON document and a flat CSV step sheet.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"souschef/schema"
)

// Artifact holds the rendered outputs of one recipe.
type Artifact struct {
	JSON []byte
	CSV  []byte
}

// csvHeader is the fixed column set of the step sheet.
var csvHeader = []string{
	"step_number",
	"display_name_en",
	"action_en",
	"instructions_en",
	"duration_seconds",
	"recipe_variant",
	"ingredients",
	"recipe_name",
}

// Export renders rec into its JSON and CSV artifacts. String values are
// scrubbed of control characters first; the checker rejects them, but the
// exporter must not rely on upstream discipline for well-formed output.
func Export(rec *schema.Recipe) (*Artifact, error) {
	if rec == nil {
		return nil, fmt.Errorf("no recipe to export")
	}
	clean := scrubRecipe(*rec)

	jsonBytes, err := json.MarshalIndent(&clean, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render recipe JSON: %w", err)
	}

	csvBytes, err := renderCSV(&clean)
	if err != nil {
		return nil, err
	}
	return &Artifact{JSON: jsonBytes, CSV: csvBytes}, nil
}

// WriteFiles writes the artifacts as {name}.json and {name}.csv under dir,
// creating the directory when needed. It returns the written paths.
func WriteFiles(dir, name string, artifact *Artifact) (jsonPath, csvPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create export directory: %w", err)
	}
	jsonPath = filepath.Join(dir, name+".json")
	csvPath = filepath.Join(dir, name+".csv")
	if err := os.WriteFile(jsonPath, artifact.JSON, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", jsonPath, err)
	}
	if err := os.WriteFile(csvPath, artifact.CSV, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", csvPath, err)
	}
	return jsonPath, csvPath, nil
}

func renderCSV(rec *schema.Recipe) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	recipeName := rec.GenericName.EN
	if recipeName == "" {
		recipeName = "Recipe"
	}
	for _, step := range rec.Steps {
		ingredients := make([]string, 0, len(step.Ingredients))
		for _, ing := range step.Ingredients {
			amount := strconv.FormatFloat(ing.Amount, 'f', -1, 64)
			ingredients = append(ingredients, fmt.Sprintf("%s %s %s", amount, ing.MetricUnit, ing.Ingredient))
		}
		row := []string{
			step.StepNumber,
			localizedEN(step.DisplayName),
			localizedEN(step.Action),
			step.Instructions.EN,
			strconv.Itoa(step.Duration),
			strings.Join(step.RecipeVariants, ", "),
			strings.Join(ingredients, "; "),
			recipeName,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func localizedEN(t *schema.LocalizedText) string {
	if t == nil {
		return ""
	}
	return t.EN
}

// scrubRecipe returns a deep copy of rec with control characters in every
// string value replaced by spaces.
func scrubRecipe(rec schema.Recipe) schema.Recipe {
	rec.GenericName = scrubText(rec.GenericName)

	variants := make([]schema.VariantContent, len(rec.Variants))
	for i, v := range rec.Variants {
		v.RecipeVariant = scrubString(v.RecipeVariant)
		v.RecipeName = scrubText(v.RecipeName)
		v.Description = scrubTextPtr(v.Description)
		v.ShoppingList = scrubStrings(v.ShoppingList)
		v.Tag = scrubString(v.Tag)
		v.Sponsor = scrubString(v.Sponsor)
		variants[i] = v
	}
	rec.Variants = variants

	steps := make([]schema.Step, len(rec.Steps))
	for i, s := range rec.Steps {
		s.DisplayName = scrubTextPtr(s.DisplayName)
		s.Action = scrubTextPtr(s.Action)
		s.StepNumber = scrubString(s.StepNumber)
		s.StepNameEditor = scrubString(s.StepNameEditor)
		s.Workplace = scrubString(s.Workplace)
		s.StepIcon = scrubString(s.StepIcon)
		s.Instructions = scrubText(s.Instructions)
		s.InstructionsMarkdown = scrubTextPtr(s.InstructionsMarkdown)
		s.Appliances = scrubStrings(s.Appliances)
		s.CountDown = scrubStrings(s.CountDown)
		s.TriggerCountdownStep = scrubString(s.TriggerCountdownStep)
		s.RecipeVariants = scrubStrings(s.RecipeVariants)
		ingredients := make([]schema.IngredientComponent, len(s.Ingredients))
		for j, ing := range s.Ingredients {
			ing.Ingredient = scrubString(ing.Ingredient)
			ing.MetricUnit = scrubString(ing.MetricUnit)
			ingredients[j] = ing
		}
		s.Ingredients = ingredients
		steps[i] = s
	}
	rec.Steps = steps
	return rec
}

func scrubString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return ' '
		}
		return r
	}, s)
}

func scrubStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = scrubString(s)
	}
	return out
}

func scrubText(t schema.LocalizedText) schema.LocalizedText {
	return schema.LocalizedText{EN: scrubString(t.EN), NL: scrubString(t.NL)}
}

func scrubTextPtr(t *schema.LocalizedText) *schema.LocalizedText {
	if t == nil {
		return nil
	}
	clean := scrubText(*t)
	return &clean
}
