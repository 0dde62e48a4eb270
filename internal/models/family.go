package models

// Family groups constraints generated by the same preference rule.
type Family string

const (
	FamilyOneMealPerSlot  Family = "one_meal_per_slot"
	FamilyBudget          Family = "budget_cap"
	FamilyUniqueness      Family = "uniqueness"
	FamilyRestaurantCap   Family = "restaurant_cap"
	FamilyNutrientBound   Family = "nutrient_bound"
	FamilyMacroTarget     Family = "macro_target"
	FamilyPrepMethodRatio Family = "prep_method_ratio"
	FamilyOrderingRule    Family = "ordering_rule"
)

// RelaxationPrecedence is the order in which hard families are demoted to soft
// when no feasible plan exists. Families in the same group are demoted
// together. Structural slot rows and the budget are never demoted.
var RelaxationPrecedence = [][]Family{
	{FamilyPrepMethodRatio},
	{FamilyRestaurantCap},
	{FamilyNutrientBound, FamilyMacroTarget},
	{FamilyUniqueness},
	{FamilyOrderingRule},
}

// Relaxable reports whether f may be demoted by the relaxation search.
func (f Family) Relaxable() bool {
	for _, group := range RelaxationPrecedence {
		for _, g := range group {
			if g == f {
				return true
			}
		}
	}
	return false
}
