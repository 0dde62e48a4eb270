package models_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chrisdamba/mealplanner/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeFile(t, "mealplanner.yaml", "catalog_path: data/meals.csv\n")
	cfg, err := models.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "data/meals.csv", cfg.CatalogPath)
	assert.Equal(t, models.CatalogSourceCSV, cfg.CatalogSource)
	assert.Equal(t, models.OutputFormatConsole, cfg.Output.Format)

	p := cfg.Preferences
	assert.Equal(t, models.DefaultBudget, p.Budget)
	assert.Equal(t, models.DefaultMaxMealsPerRestaurant, p.MaxMealsPerRestaurant)
	assert.True(t, p.EnforceUniqueness)
	assert.Equal(t, []models.MealType{models.Lunch, models.Dinner}, p.MealTypes)
	require.Len(t, p.OrderingRules, 1)
	assert.Equal(t, models.OrderingRule{First: models.Lunch, Second: models.Dinner, Nutrient: models.Calories, Op: models.OpGreater}, p.OrderingRules[0])
	require.Len(t, p.ExclusionRules, 1)
	assert.Equal(t, models.Dinner, p.ExclusionRules[0].MealType)
	assert.Equal(t, models.DefaultTimeBudget, p.Solver.TimeBudget)
	assert.Len(t, p.Slots(), 14)
}

func TestLoadConfigPreferences(t *testing.T) {
	path := writeFile(t, "mealplanner.yaml", `
preferences:
  budget: 42.5
  max_meals_per_restaurant: 2
  dietary_filters: [vegan]
  slots_in_scope: ["1:lunch", "wednesday:dinner"]
  nutrient_bounds:
    - nutrient: protein
      scope: week
      min: 40
  solver:
    time_budget: 5s
kafka:
  enabled: true
  broker_list: a:9092,b:9092
`)
	cfg, err := models.LoadConfig(path)
	require.NoError(t, err)

	p := cfg.Preferences
	assert.Equal(t, 42.5, p.Budget)
	assert.Equal(t, 2, p.MaxMealsPerRestaurant)
	assert.Equal(t, []models.Slot{{Day: 1, Meal: models.Lunch}, {Day: 3, Meal: models.Dinner}}, p.Slots())
	require.Len(t, p.NutrientBounds, 1)
	require.NotNil(t, p.NutrientBounds[0].Min)
	assert.Equal(t, 40.0, *p.NutrientBounds[0].Min)
	assert.Nil(t, p.NutrientBounds[0].Max)
	assert.Equal(t, models.Protein, p.NutrientBounds[0].Nutrient, "plain name maps to the catalog column")
	assert.Equal(t, 5*time.Second, p.Solver.TimeBudget)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, "a:9092,b:9092", cfg.Kafka.BrokerList)
}

func TestLoadPreferencesNutrientAliases(t *testing.T) {
	path := writeFile(t, "prefs.yaml", `
macro_targets:
  calories: {target: 2000, tolerance: 0.1, weight: 0}
objective:
  mode: maximize_nutrition
  weights:
    fiber: 2
ordering_rules:
  - {first: lunch, second: dinner, nutrient: sugar, op: lt}
`)
	p, err := models.LoadPreferences(path)
	require.NoError(t, err)
	require.Contains(t, p.MacroTargets, models.Calories)
	require.NotNil(t, p.MacroTargets[models.Calories].Weight)
	assert.Equal(t, 0.0, *p.MacroTargets[models.Calories].Weight)
	assert.Equal(t, map[models.Nutrient]float64{models.Fiber: 2}, p.Objective.Weights)
	require.Len(t, p.OrderingRules, 1)
	assert.Equal(t, models.Sugar, p.OrderingRules[0].Nutrient)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeFile(t, "mealplanner.yaml", "preferences:\n  budget: 42\n")
	t.Setenv("MEALPLANNER_PREFERENCES_BUDGET", "75")
	cfg, err := models.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 75.0, cfg.Preferences.Budget)
}

func TestLoadConfigRejectsInvalidPreferences(t *testing.T) {
	path := writeFile(t, "mealplanner.yaml", "preferences:\n  budget: -1\n")
	_, err := models.LoadConfig(path)
	require.Error(t, err)
	var ce *models.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "budget", ce.Field)
	assert.ErrorIs(t, err, models.ErrConfig)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := models.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadPreferences(t *testing.T) {
	path := writeFile(t, "prefs.yaml", `
budget: 30
days: [1, 2]
meal_types: [breakfast]
ordering_rules: []
`)
	p, err := models.LoadPreferences(path)
	require.NoError(t, err)
	assert.Equal(t, 30.0, p.Budget)
	assert.Equal(t, []models.Slot{{Day: 1, Meal: models.Breakfast}, {Day: 2, Meal: models.Breakfast}}, p.Slots())
	assert.Empty(t, p.OrderingRules)
}
