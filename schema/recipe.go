package schema

// MaxSteps is the hard limit on the number of steps per recipe imposed by
// the downstream content-management system.
const MaxSteps = 50

// RequiredLocales lists every locale a localized field must carry.
// The target schema is bilingual; partial localization is rejected.
var RequiredLocales = []string{"en", "nl_NL"}

// LocalizedText carries one value per required locale.
type LocalizedText struct {
	EN string `json:"en"`
	NL string `json:"nl_NL"`
}

// Get returns the value for a locale, or "" for unknown locales.
func (t LocalizedText) Get(locale string) string {
	switch locale {
	case "en":
		return t.EN
	case "nl_NL":
		return t.NL
	}
	return ""
}

// Complete reports whether every required locale carries a non-empty value.
func (t LocalizedText) Complete() bool {
	return t.EN != "" && t.NL != ""
}

// Difficulty is the closed difficulty vocabulary of the target schema.
// Note "Intermediate", not "Hard": the vocabulary is fixed upstream.
type Difficulty string

const (
	DifficultyEasy         Difficulty = "Easy"
	DifficultyMedium       Difficulty = "Medium"
	DifficultyIntermediate Difficulty = "Intermediate"
)

// Difficulties lists the allowed difficulty values in schema order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyIntermediate}

// ValidDifficulty reports whether s is an allowed difficulty in exact case.
func ValidDifficulty(s string) bool {
	for _, d := range Difficulties {
		if string(d) == s {
			return true
		}
	}
	return false
}

// VariantTag is the closed recipe-variant vocabulary.
type VariantTag string

const (
	VariantMeat       VariantTag = "Meat"
	VariantVegetarian VariantTag = "Vegetarian"
	VariantVegan      VariantTag = "Vegan"
	VariantFish       VariantTag = "Fish"
	VariantOther      VariantTag = "Other"
)

// VariantTags lists the allowed variant tags in schema order.
var VariantTags = []VariantTag{VariantMeat, VariantVegetarian, VariantVegan, VariantFish, VariantOther}

// ValidVariantTag reports whether s is an allowed variant tag in exact case.
func ValidVariantTag(s string) bool {
	for _, v := range VariantTags {
		if string(v) == s {
			return true
		}
	}
	return false
}

// NutritionalValues holds per-serving nutrition as whole numbers. The JSON
// aliases (spaces, parentheses and the Dutch "Energie"/"Natrium" spellings)
// are fixed by the target schema and must round-trip exactly.
type NutritionalValues struct {
	EnergyKcal        int `json:"Energie (kCal)"`
	ProteinGrams      int `json:"Protein (grams)"`
	CarbohydrateGrams int `json:"Carbohydrates (grams)"`
	SugarGrams        int `json:"Sugar (grams)"`
	FatGrams          int `json:"Fat (grams)"`
	SaturatedFatGrams int `json:"Saturated Fat (grams)"`
	SodiumMilligrams  int `json:"Natrium (milligrams)"`
	FiberGrams        int `json:"Fibers (grams)"`
}

// NutritionFields lists the nutrition JSON keys in canonical order.
var NutritionFields = []string{
	"Energie (kCal)",
	"Protein (grams)",
	"Carbohydrates (grams)",
	"Sugar (grams)",
	"Fat (grams)",
	"Saturated Fat (grams)",
	"Natrium (milligrams)",
	"Fibers (grams)",
}

// IngredientComponent is a single ingredient use inside a step.
type IngredientComponent struct {
	Ingredient string  `json:"Ingredient"`
	Amount     float64 `json:"Amount"`
	MetricUnit string  `json:"Metric Unit"`
}

// Step is one cooking step. Instructions are mandatory; everything the
// kitchen display renders optionally (video, thumbnail, markdown) is not.
type Step struct {
	DisplayName          *LocalizedText        `json:"Display Name,omitempty"`
	Action               *LocalizedText        `json:"Action,omitempty"`
	StepNumber           string                `json:"Step Number,omitempty"`
	StepNameEditor       string                `json:"Step Name (Editor),omitempty"`
	Workplace            string                `json:"Workplace"`
	StepIcon             string                `json:"Step Icon"`
	Instructions         LocalizedText         `json:"Instructions"`
	InstructionsMarkdown *LocalizedText        `json:"Instructions Markdown,omitempty"`
	Appliances           []string              `json:"Appliances,omitempty"`
	Ingredients          []IngredientComponent `json:"Ingredient,omitempty"`
	Duration             int                   `json:"Duration"`
	CountDown            []string              `json:"Count Down,omitempty"`
	TriggerCountdownStep string                `json:"Trigger Countdown Step,omitempty"`
	Video                string                `json:"Video,omitempty"`
	Thumbnail            string                `json:"Thumbnail,omitempty"`
	RecipeVariants       []string              `json:"RecipeVariant"`
}

// VariantContent is the per-variant metadata block (one per alternative
// version of the recipe, e.g. meat vs vegetarian).
type VariantContent struct {
	RecipeVariant     string            `json:"Recipe Variant"`
	RecipeImage       string            `json:"Recipe Image,omitempty"`
	RecipeName        LocalizedText     `json:"Recipe Name"`
	Description       *LocalizedText    `json:"Description,omitempty"`
	DietAllergen01    string            `json:"Diet/Allergen 01,omitempty"`
	DietAllergen02    string            `json:"Diet/Allergen 02,omitempty"`
	Tag               string            `json:"Tag,omitempty"`
	Difficulty        Difficulty        `json:"Difficulty"`
	NutritionalValues NutritionalValues `json:"Nutritional Values"`
	ShoppingList      []string          `json:"Shopping List,omitempty"`
	Sponsor           string            `json:"Sponsor,omitempty"`
	PreviewVideo      string            `json:"Preview Video,omitempty"`
}

// Recipe is the root document. Struct field order mirrors the canonical
// field order of the target schema, so marshaling a Recipe produces the
// exact serialization the content-management system ingests.
type Recipe struct {
	Order       int              `json:"Order"`
	GenericName LocalizedText    `json:"Generic Name"`
	Highlighted bool             `json:"Highlighted?"`
	Variants    []VariantContent `json:"Recipe Variant Content"`
	Steps       []Step           `json:"Steps Part 1"`
}

// VariantSteps returns the steps that belong to the variant with the given
// tag. Steps with an empty RecipeVariant list apply to every variant.
func (r *Recipe) VariantSteps(tag string) []Step {
	var out []Step
	for _, s := range r.Steps {
		if len(s.RecipeVariants) == 0 {
			out = append(out, s)
			continue
		}
		for _, v := range s.RecipeVariants {
			if v == tag {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
