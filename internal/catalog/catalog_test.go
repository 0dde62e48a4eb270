package catalog_test

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/mealplanner/internal/catalog"
	"github.com/chrisdamba/mealplanner/internal/catalog/catalogtest"
	"github.com/chrisdamba/mealplanner/internal/models"
)

func TestLoadOrdersMealsByKey(t *testing.T) {
	c := catalogtest.MustLoad(t,
		catalogtest.Record("Zeta", "Wrap", 8, 500, 20),
		catalogtest.Record("Alpha", "Soup", 5, 300, 10),
		catalogtest.Record("Alpha", "Bowl", 7, 600, 30),
	)

	require.Equal(t, 3, c.Len())
	meals := c.Meals()
	assert.Equal(t, "Alpha", meals[0].Restaurant)
	assert.Equal(t, "Bowl", meals[0].Name)
	assert.Equal(t, "Soup", meals[1].Name)
	assert.Equal(t, "Zeta", meals[2].Restaurant)
	assert.Equal(t, []string{"Alpha", "Zeta"}, c.Restaurants())

	m, ok := c.Find("Alpha", "Soup")
	require.True(t, ok)
	assert.Equal(t, 5.0, m.Price)
	assert.Equal(t, 300.0, m.Nutrient(models.Calories))

	byID, ok := c.Get(m.ID)
	require.True(t, ok)
	assert.Same(t, m, byID)
}

func TestLoadAssignsFreshIdentity(t *testing.T) {
	rec := catalogtest.Record("Alpha", "Soup", 5, 300, 10)
	first := catalogtest.MustLoad(t, rec)
	second := catalogtest.MustLoad(t, rec)

	assert.NotEmpty(t, first.Meals()[0].ID)
	assert.NotEqual(t, first.Meals()[0].ID, second.Meals()[0].ID, "identity must not be reused across reloads")
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r catalog.RawRecord)
		field  string
	}{
		{"negative price", func(r catalog.RawRecord) { r["price"] = "-1" }, "price"},
		{"non numeric nutrient", func(r catalog.RawRecord) { r["protein_g"] = "lots" }, "protein_g"},
		{"negative nutrient", func(r catalog.RawRecord) { r["sugar_g"] = "-0.5" }, "sugar_g"},
		{"missing nutrient", func(r catalog.RawRecord) { delete(r, "fat_g") }, "fat_g"},
		{"non binary tag", func(r catalog.RawRecord) { r["vegan"] = "2" }, "vegan"},
		{"boolean word tag", func(r catalog.RawRecord) { r["fried"] = "true" }, "fried"},
		{"missing tag", func(r catalog.RawRecord) { delete(r, "contains_nuts") }, "contains_nuts"},
		{"empty restaurant", func(r catalog.RawRecord) { r["Restaurant"] = " " }, "Restaurant"},
		{"bad optional tag", func(r catalog.RawRecord) { r["legume"] = "yes" }, "legume"},
		{"nan price", func(r catalog.RawRecord) { r["price"] = "NaN" }, "price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			good := catalogtest.Record("Alpha", "Soup", 5, 300, 10)
			bad := catalogtest.Record("Beta", "Stew", 6, 400, 12)
			tt.mutate(bad)

			_, err := catalog.Load([]catalog.RawRecord{good, bad})
			require.Error(t, err)
			require.True(t, errors.Is(err, catalog.ErrValidation))

			var ve *catalog.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, 2, ve.Row)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestLoadRejectsDuplicateIdentity(t *testing.T) {
	_, err := catalog.Load([]catalog.RawRecord{
		catalogtest.Record("Alpha", "Soup", 5, 300, 10),
		catalogtest.Record("Alpha", "Soup", 6, 320, 11),
	})
	var ve *catalog.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 2, ve.Row)
	assert.Equal(t, "Meal", ve.Field)
}

func TestExtendedNutrientsMustBeComplete(t *testing.T) {
	a := catalogtest.Record("Alpha", "Soup", 5, 300, 10)
	b := catalogtest.Record("Beta", "Stew", 6, 400, 12)
	a["fiber_mg"] = "12"

	_, err := catalog.Load([]catalog.RawRecord{a, b})
	var ve *catalog.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 2, ve.Row)
	assert.Equal(t, "fiber_mg", ve.Field)

	b["fiber_mg"] = "3"
	c := catalogtest.MustLoad(t, a, b)
	assert.Contains(t, c.Nutrients(), models.Fiber)
	assert.Equal(t, models.RequiredNutrients, c.Nutrients()[:len(models.RequiredNutrients)])
}

func TestOptionalTagAliases(t *testing.T) {
	a := catalogtest.Record("Alpha", "Dal", 5, 300, 10)
	a["contains_legumes"] = "1"
	b := catalogtest.Record("Alpha", "Rice", 5, 300, 10)

	c := catalogtest.MustLoad(t, a, b)
	dal, _ := c.Find("Alpha", "Dal")
	rice, _ := c.Find("Alpha", "Rice")
	assert.True(t, dal.Has(models.TagLegume))
	assert.False(t, rice.Has(models.TagLegume), "absent optional column reads as 0")
}

func TestEligibleFor(t *testing.T) {
	c := catalogtest.MustLoad(t,
		catalogtest.Record("Alpha", "Nut Salad", 5, 300, 10, models.TagVegan, models.TagVegetarian, models.TagContainsNuts),
		catalogtest.Record("Alpha", "Tofu", 6, 400, 20, models.TagVegan, models.TagVegetarian),
		catalogtest.Record("Beta", "Steak", 12, 700, 50),
		catalogtest.Record("Beta", "Lentils", 4, 350, 18, models.TagVegan, models.TagVegetarian, models.TagLegume),
	)
	filters := models.FilterSet{
		Dietary:    []models.DietaryFilter{models.FilterVegan, models.FilterExcludeNuts},
		Exclusions: []models.ExclusionRule{{MealType: models.Dinner, Tag: "legume"}},
	}

	lunch := c.EligibleFor(models.Slot{Day: 1, Meal: models.Lunch}, filters)
	dinner := c.EligibleFor(models.Slot{Day: 4, Meal: models.Dinner}, filters)

	assert.Equal(t, []string{"Tofu", "Lentils"}, names(lunch))
	assert.Equal(t, []string{"Tofu"}, names(dinner))

	again := c.EligibleFor(models.Slot{Day: 6, Meal: models.Lunch}, filters)
	assert.Equal(t, names(lunch), names(again), "day does not change eligibility")
}

func TestEligibleForConcurrentReaders(t *testing.T) {
	c := catalogtest.MustLoad(t,
		catalogtest.Record("Alpha", "Soup", 5, 300, 10),
		catalogtest.Record("Beta", "Stew", 6, 400, 12, models.TagVegan),
	)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f := models.FilterSet{}
			if i%2 == 0 {
				f.Dietary = []models.DietaryFilter{models.FilterVegan}
			}
			got := c.EligibleFor(models.Slot{Day: 1 + i%7, Meal: models.Lunch}, f)
			if i%2 == 0 {
				assert.Len(t, got, 1)
			} else {
				assert.Len(t, got, 2)
			}
		}(i)
	}
	wg.Wait()
}

func TestReadCSV(t *testing.T) {
	in := strings.Join([]string{
		"Restaurant,Meal,price,calories_kcal,protein_g,fat_g,sugar_g,diabetic_friendly,vegan,vegetarian,pescatarian,contains_gluten,contains_lactose,contains_nuts,fried,grilled,baked,calcium_mg",
		"Alpha,Soup,5.5,300,10,4,2,1,1,1,1,0,0,0,0,0,1,120",
		"Beta,Stew,7,450,25,12,3,0,0,0,0,1,1,0,0,1,0,80",
	}, "\n")

	records, err := catalog.ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 2)

	c, err := catalog.Load(records)
	require.NoError(t, err)
	soup, ok := c.Find("Alpha", "Soup")
	require.True(t, ok)
	assert.Equal(t, 5.5, soup.Price)
	assert.Equal(t, 120.0, soup.Nutrient(models.Calcium))
	assert.True(t, soup.Has(models.TagBaked))
	assert.False(t, soup.Has(models.TagGrilled))
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := catalog.ReadCSV(strings.NewReader(""))
	require.Error(t, err)
}

func TestCheapest(t *testing.T) {
	c := catalogtest.MustLoad(t,
		catalogtest.Record("Alpha", "Soup", 5, 300, 10),
		catalogtest.Record("Beta", "Stew", 3, 400, 12),
	)
	v, ok := catalog.Cheapest(c.Meals())
	require.True(t, ok)
	assert.Equal(t, 3.0, v)

	_, ok = catalog.Cheapest(nil)
	assert.False(t, ok)
}

func names(meals []*models.MealRecord) []string {
	out := make([]string, len(meals))
	for i, m := range meals {
		out[i] = m.Name
	}
	return out
}

func TestWriteCSVRoundTrip(t *testing.T) {
	a := catalogtest.Record("Alpha", "Soup, Spicy", 5, 300, 10, models.TagSpicy)
	a["fiber_mg"] = "7"
	b := catalogtest.Record("Beta", "Stew", 6, 400, 12)
	b["fiber_mg"] = "3"

	var buf strings.Builder
	require.NoError(t, catalog.WriteCSV(&buf, []catalog.RawRecord{a, b}))

	header := catalog.Header([]catalog.RawRecord{a, b})
	assert.Equal(t, []string{"Restaurant", "Meal", "price", "calories_kcal", "protein_g", "fat_g", "sugar_g", "fiber_mg"}, header[:8])

	records, err := catalog.ReadCSV(strings.NewReader(buf.String()))
	require.NoError(t, err)
	c, err := catalog.Load(records)
	require.NoError(t, err)
	soup, ok := c.Find("Alpha", "Soup, Spicy")
	require.True(t, ok)
	assert.True(t, soup.Has(models.TagSpicy))
	assert.Equal(t, 7.0, soup.Nutrient(models.Fiber))
}
