// Package catalogtest builds small hand-written catalogs for tests.
package catalogtest

import (
	"strconv"
	"testing"

	"github.com/chrisdamba/mealplanner/internal/catalog"
	"github.com/chrisdamba/mealplanner/internal/models"
)

// Record returns a complete raw row with fat and sugar zeroed and every
// required tag set to 0 except the given ones.
func Record(restaurant, meal string, price, calories, protein float64, tags ...models.Tag) catalog.RawRecord {
	rec := catalog.RawRecord{
		catalog.ColumnRestaurant: restaurant,
		catalog.ColumnMeal:       meal,
		catalog.ColumnPrice:      format(price),
		string(models.Calories):  format(calories),
		string(models.Protein):   format(protein),
		string(models.Fat):       "0",
		string(models.Sugar):     "0",
	}
	for _, t := range models.AllTags() {
		if t.Required() {
			rec[t.Columns()[0]] = "0"
		}
	}
	for _, t := range tags {
		rec[t.Columns()[0]] = "1"
	}
	return rec
}

// MustLoad loads the records or fails the test.
func MustLoad(tb testing.TB, records ...catalog.RawRecord) *catalog.Catalog {
	tb.Helper()
	c, err := catalog.Load(records)
	if err != nil {
		tb.Fatalf("load catalog: %v", err)
	}
	return c
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
