package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/chrisdamba/mealplanner/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintPlan(t *testing.T) {
	plan := &models.Plan{
		ID:        "p1",
		CreatedAt: time.Now(),
		Entries: []models.PlanEntry{{
			Slot:       models.Slot{Day: 1, Meal: models.Lunch},
			Restaurant: "Alpha",
			Meal:       "Soup",
			Price:      4.5,
			Nutrition:  map[models.Nutrient]float64{models.Calories: 650},
		}},
		WeeklyTotals:    models.NutrientTotals{models.Calories: 650},
		TotalCost:       4.5,
		Budget:          10,
		BudgetUsed:      45,
		AvgCalories:     650,
		RelaxedFamilies: []models.Family{models.FamilyOrderingRule},
		Violations:      []models.Violation{{Name: "ordering_rule[day 1]", Magnitude: 0.5}},
		Suboptimal:      true,
	}

	var buf bytes.Buffer
	require.NoError(t, printPlan(&buf, plan))
	out := buf.String()
	assert.Contains(t, out, "Monday")
	assert.Contains(t, out, "Soup")
	assert.Contains(t, out, "Plan p1 (suboptimal)")
	assert.Contains(t, out, "Total cost: 4.50 of 10.00 (45.0%)")
	assert.Contains(t, out, "Relaxed: ordering_rule")
	assert.Contains(t, out, "Violated: ordering_rule[day 1] by 0.500")
	assert.NotContains(t, out, "plan_id")
}
