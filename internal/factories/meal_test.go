package factories_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/mealplanner/internal/catalog"
	"github.com/chrisdamba/mealplanner/internal/factories"
	"github.com/chrisdamba/mealplanner/internal/models"
)

func TestCreateCatalogLoads(t *testing.T) {
	records := factories.NewMealFactory(42).CreateCatalog(40)
	require.Len(t, records, 40)

	c, err := catalog.Load(records)
	require.NoError(t, err)
	assert.Equal(t, 40, c.Len())
	assert.GreaterOrEqual(t, len(c.Restaurants()), 2)
	assert.Contains(t, c.Nutrients(), models.Cholesterol)
}

func TestCreateCatalogIsSeeded(t *testing.T) {
	a := factories.NewMealFactory(7).CreateCatalog(12)
	b := factories.NewMealFactory(7).CreateCatalog(12)
	assert.Equal(t, a, b)
}

func TestCreateMealTagsConsistent(t *testing.T) {
	c, err := catalog.Load(factories.NewMealFactory(3).CreateCatalog(60))
	require.NoError(t, err)
	for _, m := range c.Meals() {
		if m.Has(models.TagVegan) {
			assert.True(t, m.Has(models.TagVegetarian), m.Name)
			assert.Zero(t, m.Nutrient(models.Cholesterol), m.Name)
		}
		if m.Has(models.TagVegetarian) {
			assert.True(t, m.Has(models.TagPescatarian), m.Name)
		}
		if m.Has(models.TagContainsLactose) {
			assert.True(t, m.Has(models.TagContainsDairy), m.Name)
		}
		assert.GreaterOrEqual(t, m.Price, 4.0)
		assert.LessOrEqual(t, m.Price, 25.0)
	}
}

func TestCreateMealUniqueNames(t *testing.T) {
	f := factories.NewMealFactory(1)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		rec := f.CreateMeal("Trattoria", "Italian")
		name := rec[catalog.ColumnMeal]
		assert.False(t, seen[name], name)
		seen[name] = true
	}
}
