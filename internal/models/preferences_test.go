package models_test

import (
	"errors"
	"testing"

	"github.com/chrisdamba/mealplanner/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestDefaultPreferencesValid(t *testing.T) {
	require.NoError(t, models.DefaultPreferences().Validate())
}

func TestValidateNormalizesNutrientNames(t *testing.T) {
	p := models.DefaultPreferences()
	p.NutrientBounds = []models.NutrientBound{{Nutrient: "Protein", Scope: models.ScopeDay, Min: ptr(20)}}
	p.MacroTargets = map[models.Nutrient]models.MacroTarget{"calories": {Target: 1800, Weight: ptr(0)}}
	p.OrderingRules[0].Nutrient = "calories"
	p.Objective = models.Objective{Mode: models.ObjectiveMaximizeNutrition, Weights: map[models.Nutrient]float64{"fibre": 1, "iron_mg": 2}}
	require.NoError(t, p.Validate())

	assert.Equal(t, models.Protein, p.NutrientBounds[0].Nutrient)
	assert.Contains(t, p.MacroTargets, models.Calories)
	assert.Equal(t, models.Calories, p.OrderingRules[0].Nutrient)
	assert.Equal(t, map[models.Nutrient]float64{models.Fiber: 1, "iron_mg": 2}, p.Objective.Weights)
	assert.Equal(t, models.Nutrient("iron_mg"), models.ParseNutrient("iron_mg"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *models.Preferences)
		field  string
	}{
		{"negative budget", func(p *models.Preferences) { p.Budget = -5 }, "budget"},
		{"unknown filter", func(p *models.Preferences) { p.DietaryFilters = []models.DietaryFilter{"paleo"} }, "dietary_filters"},
		{"zero cap", func(p *models.Preferences) { p.MaxMealsPerRestaurant = 0 }, "max_meals_per_restaurant"},
		{"min above max", func(p *models.Preferences) {
			p.NutrientBounds = []models.NutrientBound{{Nutrient: models.Fat, Scope: models.ScopeWeek, Min: ptr(10), Max: ptr(5)}}
		}, "nutrient_bounds[0]"},
		{"bound without limits", func(p *models.Preferences) {
			p.NutrientBounds = []models.NutrientBound{{Nutrient: models.Fat, Scope: models.ScopeDay}}
		}, "nutrient_bounds[0]"},
		{"fraction above one", func(p *models.Preferences) {
			p.PrepMethodBounds = map[string]models.FractionRange{"fried": {Min: 0, Max: 1.5}}
		}, "prep_method_bounds.fried"},
		{"unknown prep method", func(p *models.Preferences) {
			p.PrepMethodBounds = map[string]models.FractionRange{"steamed": {Max: 0.5}}
		}, "prep_method_bounds.steamed"},
		{"day out of range", func(p *models.Preferences) { p.Days = []int{8} }, "days"},
		{"same meal types", func(p *models.Preferences) {
			p.OrderingRules = []models.OrderingRule{{First: models.Lunch, Second: models.Lunch, Nutrient: models.Calories, Op: models.OpGreater}}
		}, "ordering_rules[0]"},
		{"unknown tag", func(p *models.Preferences) {
			p.ExclusionRules = []models.ExclusionRule{{MealType: models.Dinner, Tag: "shellfish"}}
		}, "exclusion_rules[0]"},
		{"unknown gender", func(p *models.Preferences) { p.Gender = "robot" }, "gender"},
		{"maximize without weights", func(p *models.Preferences) { p.Objective.Mode = models.ObjectiveMaximizeNutrition }, "objective.weights"},
		{"negative weight", func(p *models.Preferences) {
			p.NutrientBounds = []models.NutrientBound{{Nutrient: models.Fat, Scope: models.ScopeWeek, Max: ptr(5), Soft: true, Weight: ptr(-1)}}
		}, "nutrient_bounds[0]"},
		{"alias and column both given", func(p *models.Preferences) {
			p.MacroTargets = map[models.Nutrient]models.MacroTarget{"protein": {Target: 40}, models.Protein: {Target: 50}}
		}, "macro_targets.protein_g"},
		{"negative tolerance", func(p *models.Preferences) { p.Solver.Tolerance = -1 }, "solver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := models.DefaultPreferences()
			tt.mutate(p)
			err := p.Validate()
			require.Error(t, err)
			var ce *models.ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestParseSlot(t *testing.T) {
	tests := []struct {
		in   string
		want models.Slot
	}{
		{"3:lunch", models.Slot{Day: 3, Meal: models.Lunch}},
		{"wednesday:dinner", models.Slot{Day: 3, Meal: models.Dinner}},
		{"Mon:breakfast", models.Slot{Day: 1, Meal: models.Breakfast}},
		{" 7:dinner ", models.Slot{Day: 7, Meal: models.Dinner}},
	}
	for _, tt := range tests {
		got, err := models.ParseSlot(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"lunch", "8:lunch", "0:dinner", "someday:lunch", "1:brunch"} {
		_, err := models.ParseSlot(bad)
		assert.Error(t, err, bad)
	}
}

func TestSlotGridCanonicalOrder(t *testing.T) {
	grid, err := models.NewSlotGrid([]models.Slot{
		{Day: 2, Meal: models.Breakfast},
		{Day: 1, Meal: models.Dinner},
		{Day: 1, Meal: models.Breakfast},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.Slot{
		{Day: 1, Meal: models.Breakfast},
		{Day: 1, Meal: models.Dinner},
		{Day: 2, Meal: models.Breakfast},
	}, grid.Slots())
	assert.Equal(t, []int{1, 2}, grid.Days())
	i, ok := grid.Index(models.Slot{Day: 1, Meal: models.Dinner})
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	assert.Len(t, models.StandardSlots(), 21)
}
