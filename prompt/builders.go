package prompt

import (
	"fmt"
	"strings"

	"souschef/llm"
	"souschef/schema"
	"souschef/units"
)

// Analysis is the structured pre-analysis of a recipe text, produced by
// the analysis prompt and fed back into generation.
type Analysis struct {
	Ingredients []string `json:"ingredients"`
	Tools       []string `json:"tools"`
	CookingTime string   `json:"cooking_time"`
	Complexity  string   `json:"complexity"`
}

const generationSystem = `You are a recipe transformation expert. You convert free-form recipe text into a strict SousChef JSON document. You output ONLY valid JSON, never markdown, never commentary.`

// documentSkeleton shows the model the exact shape and aliases of the
// target document. Kept as a literal so the prompt and the schema types
// cannot drift apart silently (the enums and units are injected from the
// schema packages at render time).
const documentSkeleton = `{
  "Order": 1,
  "Generic Name": {"en": "Short name in English", "nl_NL": "Short name in Dutch"},
  "Highlighted?": false,
  "Recipe Variant Content": [
    {
      "Recipe Variant": "<variant>",
      "Recipe Name": {"en": "Full name in English", "nl_NL": "Full name in Dutch"},
      "Description": {"en": "Two sentences in English.", "nl_NL": "Two sentences in Dutch."},
      "Difficulty": "<difficulty>",
      "Nutritional Values": {
        "Energie (kCal)": 250,
        "Protein (grams)": 15,
        "Carbohydrates (grams)": 10,
        "Sugar (grams)": 2,
        "Fat (grams)": 15,
        "Saturated Fat (grams)": 3,
        "Natrium (milligrams)": 400,
        "Fibers (grams)": 2
      },
      "Shopping List": ["ingredient1", "ingredient2"]
    }
  ],
  "Steps Part 1": [
    {
      "Display Name": {"en": "Step name", "nl_NL": "Stapnaam"},
      "Action": {"en": "Chop", "nl_NL": "Snijd"},
      "Workplace": "Counter",
      "Step Icon": "knife",
      "Instructions": {"en": "One concise instruction.", "nl_NL": "Een beknopte instructie."},
      "Ingredient": [
        {"Ingredient": "tomato", "Amount": 400, "Metric Unit": "Gram"}
      ],
      "Duration": 300,
      "RecipeVariant": ["<variant>"]
    }
  ]
}`

func enumList[T ~string](values []T) string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return strings.Join(out, "|")
}

// promptCharLimit sizes the rendered-prompt ceiling for a recipe text
// ceiling, keeping the default headroom for the skeleton and the rules.
func promptCharLimit(recipeCharLimit int) int {
	return recipeCharLimit + (DefaultPromptCharLimit - DefaultRecipeCharLimit)
}

// Generation builds the single full-document generation prompt. The
// optional analysis enriches the prompt with the pre-extracted ingredient
// and tooling context. recipeCharLimit bounds the embedded recipe text;
// zero means DefaultRecipeCharLimit.
func Generation(recipeText string, analysis *Analysis, recipeCharLimit int) ([]llm.Message, error) {
	if recipeCharLimit <= 0 {
		recipeCharLimit = DefaultRecipeCharLimit
	}
	if err := ensureWithinBudget("recipe text", recipeText, recipeCharLimit, 0); err != nil {
		return nil, err
	}

	var context string
	if analysis != nil {
		context = fmt.Sprintf("\nINGREDIENTS: %s\nTOOLS: %s\nCOOKING TIME: %s\nCOMPLEXITY: %s\n",
			strings.Join(analysis.Ingredients, ", "),
			strings.Join(analysis.Tools, ", "),
			analysis.CookingTime,
			analysis.Complexity,
		)
	}

	user := fmt.Sprintf(`RECIPE:
%s
%s
Generate ONLY this JSON document (no text before/after), following this exact shape:
%s

CRITICAL JSON RULES:
- All string values must be on a SINGLE LINE (no line breaks inside strings)
- Descriptions are two sentences separated by a space, NOT a newline
- Nutritional values MUST be single integer numbers (not ranges like 250-300), estimated PER SERVING
- "Recipe Variant" must be one of: %s
- "Difficulty" must be one of: %s
- "Metric Unit" must be one of (exact capitalization): %s
- Countable units (pieces, cloves, sprigs, pinches) all map to "Amount"
- Every localized field carries both "en" and "nl_NL", non-empty
- Introduce each ingredient in exactly one step's "Ingredient" list; later steps only reference it in the instructions
- At most %d steps
- Shopping list: only main ingredients, 5-10 items max`,
		recipeText,
		context,
		documentSkeleton,
		enumList(schema.VariantTags),
		enumList(schema.Difficulties),
		strings.Join(units.Vocabulary, ", "),
		schema.MaxSteps,
	)

	limit := promptCharLimit(recipeCharLimit)
	if err := ensureWithinBudget("generation prompt", user, limit, promptTokenLimit(limit)); err != nil {
		return nil, err
	}
	return []llm.Message{
		{Role: llm.RoleSystem, Content: generationSystem},
		{Role: llm.RoleUser, Content: user},
	}, nil
}

// Repair builds the repair prompt from the prior candidate and the
// violation summary of the latest checking pass.
func Repair(payloadJSON, violationSummary string) ([]llm.Message, error) {
	if violationSummary == "" {
		violationSummary = "- No issues provided"
	}
	user := fmt.Sprintf(`You are repairing a SousChef JSON payload.

Issues to fix:
%s

Current JSON payload:
%s

Return ONLY valid JSON with the same schema. Fix the issues, do not add extra text.`,
		violationSummary, payloadJSON)

	// Repair payloads grow with the document, so the budget is looser:
	// the document itself already fit through a completion once.
	limit := 4 * DefaultPromptCharLimit
	if err := ensureWithinBudget("repair prompt", user, limit, promptTokenLimit(limit)); err != nil {
		return nil, err
	}
	return []llm.Message{
		{Role: llm.RoleSystem, Content: generationSystem},
		{Role: llm.RoleUser, Content: user},
	}, nil
}

// Condense builds the pre-step prompt that shrinks an over-long recipe
// text under charLimit while preserving ingredients and step order.
func Condense(recipeText string, charLimit int) []llm.Message {
	user := fmt.Sprintf(`You are a recipe condensation expert. Simplify this recipe to be concise and SousChef-style (structured, clear, minimal fluff).

RECIPE:
%s

TASK:
Create a condensed version that:
1. Preserves ALL ingredients with quantities and units
2. Preserves ALL cooking steps in order
3. Removes: long introductions, stories, ads, styling, decoration descriptions
4. Uses bullet points or numbered lists
5. MUST be under %d characters

OUTPUT ONLY THE CONDENSED RECIPE, NO EXPLANATIONS.`, recipeText, charLimit)

	return []llm.Message{{Role: llm.RoleUser, Content: user}}
}

// Analyze builds the pre-step prompt extracting ingredients, tools, time
// and complexity as JSON. recipeCharLimit bounds the embedded recipe
// text; zero means DefaultRecipeCharLimit.
func Analyze(recipeText string, recipeCharLimit int) ([]llm.Message, error) {
	if recipeCharLimit <= 0 {
		recipeCharLimit = DefaultRecipeCharLimit
	}
	if err := ensureWithinBudget("recipe text", recipeText, recipeCharLimit, 0); err != nil {
		return nil, err
	}
	user := fmt.Sprintf(`### Role
You are an experienced recipe guide with deep knowledge of recipes worldwide.

### Recipe
%s

### Task
Analyze this recipe to prepare for building a SousChef-style step-by-step instruction.

### Steps
1. Identify all ingredients and their quantities.
2. List the tools and equipment required.
3. Estimate the total cooking time.
4. Determine the complexity level (low, medium, high).

### Rules
- Do NOT create the step-by-step instructions yet.
- Be specific to this recipe (not generic cooking advice).
- Keep each item concise (one sentence max).

### Output Format (JSON)
{
  "ingredients": ["ingredient 1", "ingredient 2", "ingredient 3"],
  "tools": ["tool 1", "tool 2", "tool 3"],
  "cooking_time": "estimated total cooking time",
  "complexity": "low/medium/high"
}`, recipeText)

	limit := promptCharLimit(recipeCharLimit)
	if err := ensureWithinBudget("analysis prompt", user, limit, promptTokenLimit(limit)); err != nil {
		return nil, err
	}
	return []llm.Message{{Role: llm.RoleUser, Content: user}}, nil
}
