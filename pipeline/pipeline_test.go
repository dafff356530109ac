package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"souschef/llm"
	"souschef/testutil/mocks"
)

// validRecipeJSON passes both checking stages.
const validRecipeJSON = `{
  "Order": 1,
  "Generic Name": {"en": "Tomato Soup", "nl_NL": "Tomatensoep"},
  "Highlighted?": false,
  "Recipe Variant Content": [
    {
      "Recipe Variant": "Vegetarian",
      "Recipe Name": {"en": "Tomato Soup", "nl_NL": "Tomatensoep"},
      "Description": {"en": "A warming soup. Ready in half an hour.", "nl_NL": "Een verwarmende soep. Klaar in een half uur."},
      "Difficulty": "Easy",
      "Nutritional Values": {
        "Energie (kCal)": 250, "Protein (grams)": 8, "Carbohydrates (grams)": 30,
        "Sugar (grams)": 12, "Fat (grams)": 9, "Saturated Fat (grams)": 2,
        "Natrium (milligrams)": 600, "Fibers (grams)": 5
      },
      "Shopping List": ["tomato", "onion"]
    }
  ],
  "Steps Part 1": [
    {
      "Workplace": "Stove",
      "Step Icon": "pan",
      "Instructions": {"en": "Simmer the tomatoes.", "nl_NL": "Laat de tomaten sudderen."},
      "Duration": 600,
      "RecipeVariant": ["Vegetarian"],
      "Ingredient": [{"Ingredient": "tomato", "Amount": 400, "Metric Unit": "Gram"}]
    }
  ]
}`

// brokenRecipeJSON parses and has the right top-level shape, but fails
// checking: bad difficulty, zero duration, unknown unit.
const brokenRecipeJSON = `{
  "Order": 1,
  "Generic Name": {"en": "Tomato Soup", "nl_NL": "Tomatensoep"},
  "Recipe Variant Content": [
    {
      "Recipe Variant": "Vegetarian",
      "Recipe Name": {"en": "Tomato Soup", "nl_NL": "Tomatensoep"},
      "Difficulty": "Hard",
      "Nutritional Values": {
        "Energie (kCal)": 250, "Protein (grams)": 8, "Carbohydrates (grams)": 30,
        "Sugar (grams)": 12, "Fat (grams)": 9, "Saturated Fat (grams)": 2,
        "Natrium (milligrams)": 600, "Fibers (grams)": 5
      }
    }
  ],
  "Steps Part 1": [
    {
      "Workplace": "Stove",
      "Step Icon": "pan",
      "Instructions": {"en": "Simmer the tomatoes.", "nl_NL": "Laat de tomaten sudderen."},
      "Duration": 0,
      "RecipeVariant": ["Vegetarian"],
      "Ingredient": [{"Ingredient": "tomato", "Amount": 400, "Metric Unit": "handful"}]
    }
  ]
}`

func newPipeline(provider llm.Provider, maxIterations int) *Pipeline {
	return New(provider, Config{
		Model:         "llama-3.3-70b-versatile",
		MaxIterations: maxIterations,
	}, nil, nil)
}

func TestRunAcceptsCleanFirstCandidate(t *testing.T) {
	provider := mocks.NewScriptedProvider(validRecipeJSON)
	p := newPipeline(provider, 2)

	outcome, err := p.Run(context.Background(), "Tomato soup. Simmer tomatoes.")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, outcome.Status)
	assert.True(t, outcome.Accepted())
	assert.Equal(t, 0, outcome.Iterations)
	assert.Equal(t, 1, outcome.LoopCalls)
	require.NotNil(t, outcome.Recipe)
	assert.Equal(t, "Tomato Soup", outcome.Recipe.GenericName.EN)
	assert.Empty(t, outcome.Violations.Errors())
}

func TestRunRepairsOnce(t *testing.T) {
	provider := mocks.NewScriptedProvider(brokenRecipeJSON, validRecipeJSON)
	p := newPipeline(provider, 2)

	outcome, err := p.Run(context.Background(), "Tomato soup.")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, outcome.Status)
	assert.Equal(t, 1, outcome.Iterations)
	assert.Equal(t, 2, outcome.LoopCalls)
	require.Len(t, outcome.History, 2)
	assert.True(t, outcome.History[0].Violations.HasErrors(), "first pass must record the defects")
	assert.False(t, outcome.History[1].Violations.HasErrors(), "violations are re-derived fresh per iteration")

	// The repair prompt must carry the prior payload and the findings.
	calls := provider.GetCalls()
	require.Len(t, calls, 2)
	repairPrompt := calls[1].Request.Messages[len(calls[1].Request.Messages)-1].Content
	assert.Contains(t, repairPrompt, "Issues to fix:")
	assert.Contains(t, repairPrompt, "Difficulty")
}

func TestRunExhaustsBudget(t *testing.T) {
	provider := mocks.NewScriptedProvider(brokenRecipeJSON)
	p := newPipeline(provider, 2)

	outcome, err := p.Run(context.Background(), "Tomato soup.")
	require.NoError(t, err)
	assert.Equal(t, StatusFailedBudget, outcome.Status)
	assert.Equal(t, 2, outcome.Iterations)
	assert.Equal(t, 3, outcome.LoopCalls, "one generation plus two repairs")
	assert.True(t, outcome.Violations.HasErrors(), "the report keeps the outstanding violations")
	assert.NotNil(t, outcome.Raw, "the last candidate is preserved for the report")
}

func TestRunGenerationFailurePermanent(t *testing.T) {
	provider := mocks.NewSuccessProvider("I cannot produce that recipe, sorry!")
	p := newPipeline(provider, 3)

	outcome, err := p.Run(context.Background(), "Tomato soup.")
	require.NoError(t, err)
	assert.Equal(t, StatusFailedPermanent, outcome.Status)
	assert.Equal(t, 0, outcome.Iterations)
	assert.Equal(t, 1, outcome.LoopCalls, "no repair is attempted without a candidate")
	var genErr *GenerationError
	require.True(t, errors.As(outcome.Err, &genErr))
	assert.Contains(t, genErr.Error(), "unparseable model output")
}

func TestRunProviderErrorDuringGeneration(t *testing.T) {
	provider := mocks.NewErrorProvider(&llm.Error{Code: llm.ErrUnauthorized, Message: "bad key"})
	p := newPipeline(provider, 3)

	outcome, err := p.Run(context.Background(), "Tomato soup.")
	require.NoError(t, err)
	assert.Equal(t, StatusFailedPermanent, outcome.Status)
	var genErr *GenerationError
	require.True(t, errors.As(outcome.Err, &genErr))
}

func TestRunRepairFailureIsNoImprovement(t *testing.T) {
	// Generation succeeds (broken doc), every repair call fails.
	provider := mocks.NewFlakeyProvider(1, brokenRecipeJSON)
	p := newPipeline(provider, 2)

	outcome, err := p.Run(context.Background(), "Tomato soup.")
	require.NoError(t, err)
	assert.Equal(t, StatusFailedBudget, outcome.Status)
	assert.Equal(t, 2, outcome.Iterations, "failed repairs still consume the budget")
	assert.Equal(t, 3, outcome.LoopCalls)
	require.Len(t, outcome.History, 3)
	assert.True(t, outcome.History[0].NoImprovement)
	assert.True(t, outcome.History[1].NoImprovement)
	assert.NotNil(t, outcome.Raw, "the prior candidate is retained across failed repairs")
}

func TestRunNormalizesRepairableUnits(t *testing.T) {
	// tbsp is a known synonym: deterministic normalization fixes it
	// without costing a repair iteration.
	doc := strings.Replace(validRecipeJSON, `"Metric Unit": "Gram"`, `"Metric Unit": "tbsp"`, 1)
	provider := mocks.NewScriptedProvider(doc)
	p := newPipeline(provider, 2)

	outcome, err := p.Run(context.Background(), "Tomato soup.")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, outcome.Status)
	assert.Equal(t, 0, outcome.Iterations)
	assert.Equal(t, "Tablespoon", outcome.Recipe.Steps[0].Ingredients[0].MetricUnit)
}

func TestRunEmptyInput(t *testing.T) {
	p := newPipeline(mocks.NewSuccessProvider("x"), 1)
	_, err := p.Run(context.Background(), "   ")
	require.Error(t, err)
}

func TestRunOversizedInputWithoutCondensing(t *testing.T) {
	p := New(mocks.NewSuccessProvider(validRecipeJSON), Config{
		Model:           "m",
		MaxIterations:   1,
		RecipeCharLimit: 100,
	}, nil, nil)

	outcome, err := p.Run(context.Background(), strings.Repeat("simmer gently ", 20))
	require.NoError(t, err)
	assert.Equal(t, StatusFailedPermanent, outcome.Status)
	assert.Equal(t, 0, outcome.LoopCalls, "no completion is spent on an over-long input")
}

func TestRunRaisedRecipeLimitReachesGeneration(t *testing.T) {
	// An input between the default 3000-char recipe budget and a raised
	// configured limit must pass both the pipeline gate and the prompt
	// builder.
	text := strings.Repeat("Simmer the tomatoes gently and season well. ", 92)
	require.Greater(t, len(text), 3000)
	require.Less(t, len(text), 5000)

	p := New(mocks.NewScriptedProvider(validRecipeJSON), Config{
		Model:           "m",
		MaxIterations:   1,
		RecipeCharLimit: 5000,
	}, nil, nil)

	outcome, err := p.Run(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, outcome.Status)
	assert.Equal(t, 1, outcome.LoopCalls)
	assert.Equal(t, 0, outcome.PreStepCalls, "no condensing below the configured limit")
}

func TestRunCondensesOversizedInput(t *testing.T) {
	long := strings.Repeat("Simmer the tomatoes gently. ", 20)
	provider := mocks.NewScriptedProvider("Condensed: simmer tomatoes.", validRecipeJSON)
	p := New(provider, Config{
		Model:             "m",
		MaxIterations:     1,
		RecipeCharLimit:   100,
		CondenseLongInput: true,
	}, nil, nil)

	outcome, err := p.Run(context.Background(), long)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, outcome.Status)
	assert.Equal(t, 1, outcome.PreStepCalls)
	assert.Equal(t, 1, outcome.LoopCalls)

	generationPrompt := provider.GetCalls()[1].Request.Messages[1].Content
	assert.Contains(t, generationPrompt, "Condensed: simmer tomatoes.")
}

func TestRunAnalyzeEnrichesGeneration(t *testing.T) {
	analysis := `{"ingredients": ["tomato"], "tools": ["pot"], "cooking_time": "30 minutes", "complexity": "low"}`
	provider := mocks.NewScriptedProvider(analysis, validRecipeJSON)
	p := New(provider, Config{
		Model:        "m",
		AnalyzeFirst: true,
	}, nil, nil)

	outcome, err := p.Run(context.Background(), "Tomato soup.")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, outcome.Status)
	assert.Equal(t, 1, outcome.PreStepCalls)

	generationPrompt := provider.GetCalls()[1].Request.Messages[1].Content
	assert.Contains(t, generationPrompt, "INGREDIENTS: tomato")
	assert.Contains(t, generationPrompt, "COMPLEXITY: low")
}

// The bounded loop never exceeds max_iterations+1 completion calls and
// always lands in a terminal status, whatever the model answers.
func TestRunTerminationProperty(t *testing.T) {
	outputs := []string{
		validRecipeJSON,
		brokenRecipeJSON,
		"not json at all",
		"```json\n{\"Order\": 1}\n```",
		minimalDoc,
	}
	rapid.Check(t, func(t *rapid.T) {
		maxIterations := rapid.IntRange(0, 4).Draw(t, "max_iterations")
		n := rapid.IntRange(1, 8).Draw(t, "responses")
		script := make([]string, n)
		for i := range script {
			script[i] = outputs[rapid.IntRange(0, len(outputs)-1).Draw(t, "output")]
		}

		p := newPipeline(mocks.NewScriptedProvider(script...), maxIterations)
		outcome, err := p.Run(context.Background(), "Tomato soup.")
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if outcome.LoopCalls > maxIterations+1 {
			t.Fatalf("loop made %d calls, budget is %d", outcome.LoopCalls, maxIterations+1)
		}
		switch outcome.Status {
		case StatusAccepted, StatusFailedBudget, StatusFailedPermanent:
		default:
			t.Fatalf("non-terminal status %q", outcome.Status)
		}
		if outcome.Status == StatusAccepted && outcome.Recipe == nil {
			t.Fatal("accepted outcome must carry the recipe")
		}
	})
}
