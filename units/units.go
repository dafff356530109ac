// Package units maps free-form unit strings onto the fixed metric-unit
// vocabulary of the target schema. Normalization is a pure lookup: known
// synonyms are mapped, everything else is passed through untouched so the
// quality checker keeps flagging it instead of a guess hiding the problem.
package units

import "strings"

// Canonical metric units, exact capitalization as the target schema
// requires them.
const (
	Amount     = "Amount"
	Can        = "Can"
	Cup        = "Cup"
	Degrees    = "Degrees"
	Gram       = "Gram"
	Kilogram   = "Kilogram"
	Liter      = "Liter"
	Milligram  = "Milligram"
	Milliliter = "Milliliter"
	Tablespoon = "Tablespoon"
	Teaspoon   = "Teaspoon"
)

// Vocabulary lists every allowed unit in schema order.
var Vocabulary = []string{
	Amount, Can, Cup, Degrees, Gram, Kilogram, Liter,
	Milligram, Milliliter, Tablespoon, Teaspoon,
}

var allowed = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Vocabulary))
	for _, u := range Vocabulary {
		m[u] = struct{}{}
	}
	return m
}()

// synonyms maps lower-cased free-form unit spellings to canonical units.
// Countable kitchen units (pieces, sprigs, cloves, pinches) all collapse
// into Amount, matching the upstream content rules.
var synonyms = map[string]string{
	"ml":          Milliliter,
	"milliliter":  Milliliter,
	"milliliters": Milliliter,
	"millilitre":  Milliliter,
	"l":           Liter,
	"liter":       Liter,
	"liters":      Liter,
	"litre":       Liter,
	"g":           Gram,
	"gr":          Gram,
	"gram":        Gram,
	"grams":       Gram,
	"kg":          Kilogram,
	"kilogram":    Kilogram,
	"kilograms":   Kilogram,
	"mg":          Milligram,
	"milligram":   Milligram,
	"milligrams":  Milligram,
	"tbsp":        Tablespoon,
	"tablespoon":  Tablespoon,
	"tablespoons": Tablespoon,
	"tsp":         Teaspoon,
	"teaspoon":    Teaspoon,
	"teaspoons":   Teaspoon,
	"cup":         Cup,
	"cups":        Cup,
	"can":         Can,
	"cans":        Can,
	"degree":      Degrees,
	"degrees":     Degrees,
	"piece":       Amount,
	"pieces":      Amount,
	"sprig":       Amount,
	"sprigs":      Amount,
	"clove":       Amount,
	"cloves":      Amount,
	"pinch":       Amount,
	"pinches":     Amount,
}

// IsAllowed reports whether u is a member of the vocabulary in exact case.
func IsAllowed(u string) bool {
	_, ok := allowed[u]
	return ok
}

// Normalize maps a free-form unit string onto the canonical vocabulary.
// Already-canonical input is returned as-is with changed=false. Known
// synonyms (case-insensitive, surrounding whitespace ignored) return the
// canonical unit with changed=true. Unknown units are returned unchanged
// with changed=false; the caller must surface them, never coerce them.
func Normalize(raw string) (string, bool) {
	if IsAllowed(raw) {
		return raw, false
	}
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := synonyms[key]; ok {
		return canonical, true
	}
	return raw, false
}
