package models

import (
	"sort"
	"strings"
)

// Nutrient names a nutrition column of the catalog, e.g. "protein_g".
type Nutrient string

const (
	Calories    Nutrient = "calories_kcal"
	Protein     Nutrient = "protein_g"
	Fat         Nutrient = "fat_g"
	Sugar       Nutrient = "sugar_g"
	Calcium     Nutrient = "calcium_mg"
	Fiber       Nutrient = "fiber_mg"
	Cholesterol Nutrient = "cholesterol_mg"
)

// RequiredNutrients must be present on every catalog row.
var RequiredNutrients = []Nutrient{Calories, Protein, Fat, Sugar}

// OptionalNutrients are the known extended columns. Any other column with a unit
// suffix (see IsNutrientColumn) is accepted as an extended nutrient as well.
var OptionalNutrients = []Nutrient{Calcium, Fiber, Cholesterol}

var nutrientSuffixes = []string{"_kcal", "_g", "_mg", "_mcg", "_ug"}

var nutrientAliases = map[string]Nutrient{
	"calories":    Calories,
	"kcal":        Calories,
	"protein":     Protein,
	"fat":         Fat,
	"sugar":       Sugar,
	"calcium":     Calcium,
	"fiber":       Fiber,
	"fibre":       Fiber,
	"cholesterol": Cholesterol,
}

// ParseNutrient resolves a plain name such as "protein" to its catalog column.
// Anything else, including extended column names, comes back unchanged.
func ParseNutrient(s string) Nutrient {
	s = strings.TrimSpace(s)
	if n, ok := nutrientAliases[strings.ToLower(s)]; ok {
		return n
	}
	return Nutrient(s)
}

// IsNutrientColumn reports whether a catalog column carries a nutrient amount.
func IsNutrientColumn(column string) bool {
	for _, n := range RequiredNutrients {
		if string(n) == column {
			return true
		}
	}
	for _, s := range nutrientSuffixes {
		if strings.HasSuffix(column, s) && len(column) > len(s) {
			return true
		}
	}
	return false
}

// MealRecord is one immutable catalog offering. Restaurant and Name together
// identify it within a catalog; ID is unique for the lifetime of the process.
type MealRecord struct {
	ID         string
	Restaurant string
	Name       string
	Price      float64
	Nutrition  map[Nutrient]float64
	Tags       TagSet
}

// Key is the composite (restaurant, meal) identity used for ordering and tie-breaks.
func (m *MealRecord) Key() string {
	return m.Restaurant + "\x00" + m.Name
}

// Nutrient returns the amount of n, zero when the catalog does not carry it.
func (m *MealRecord) Nutrient(n Nutrient) float64 {
	return m.Nutrition[n]
}

func (m *MealRecord) Has(t Tag) bool {
	return m.Tags.Has(t)
}

// NutrientNames returns the nutrients carried by the record in sorted order.
func (m *MealRecord) NutrientNames() []Nutrient {
	names := make([]Nutrient, 0, len(m.Nutrition))
	for n := range m.Nutrition {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// MealLess orders meals by restaurant name, then meal name.
func MealLess(a, b *MealRecord) bool {
	if a.Restaurant != b.Restaurant {
		return a.Restaurant < b.Restaurant
	}
	return a.Name < b.Name
}
