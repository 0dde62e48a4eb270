// Package catalog holds the immutable, indexed view of the meal offerings a
// plan is chosen from.
//
// A Catalog is built once by Load and is read-only afterwards, so a single
// instance may be shared by any number of concurrent solves. Eligibility
// lookups are memoized per (meal type, filter set) since the day of a slot
// never changes which meals pass a tag filter.
package catalog

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/chrisdamba/mealplanner/internal/models"
	"github.com/lucsky/cuid"
)

// Identity and price columns.
const (
	ColumnRestaurant = "Restaurant"
	ColumnMeal       = "Meal"
	ColumnPrice      = "price"
)

// RawRecord is one ingested row, column name to cell text.
type RawRecord map[string]string

type Catalog struct {
	meals       []*models.MealRecord
	byID        map[string]*models.MealRecord
	byKey       map[string]*models.MealRecord
	restaurants []string
	nutrients   []models.Nutrient

	eligible sync.Map // filter key -> []*models.MealRecord
}

// Load validates every record and builds the catalog. The first violation is
// returned as a *ValidationError naming the row and field.
func Load(records []RawRecord) (*Catalog, error) {
	nutrients := nutrientColumns(records)
	c := &Catalog{
		meals:     make([]*models.MealRecord, 0, len(records)),
		byID:      make(map[string]*models.MealRecord, len(records)),
		byKey:     make(map[string]*models.MealRecord, len(records)),
		nutrients: nutrients,
	}
	for i, rec := range records {
		meal, err := parseRecord(i+1, rec, nutrients)
		if err != nil {
			return nil, err
		}
		if _, dup := c.byKey[meal.Key()]; dup {
			return nil, &ValidationError{
				Row:    i + 1,
				Field:  ColumnMeal,
				Reason: fmt.Sprintf("duplicate meal %q at restaurant %q", meal.Name, meal.Restaurant),
			}
		}
		c.byKey[meal.Key()] = meal
		c.byID[meal.ID] = meal
		c.meals = append(c.meals, meal)
	}
	sort.SliceStable(c.meals, func(i, j int) bool { return models.MealLess(c.meals[i], c.meals[j]) })

	seen := make(map[string]bool)
	for _, m := range c.meals {
		if !seen[m.Restaurant] {
			seen[m.Restaurant] = true
			c.restaurants = append(c.restaurants, m.Restaurant)
		}
	}
	return c, nil
}

// nutrientColumns is the union of nutrient columns over all records: required
// ones first in declared order, then extended ones sorted.
func nutrientColumns(records []RawRecord) []models.Nutrient {
	out := append([]models.Nutrient(nil), models.RequiredNutrients...)
	required := make(map[string]bool)
	for _, n := range models.RequiredNutrients {
		required[string(n)] = true
	}
	extra := make(map[string]bool)
	for _, rec := range records {
		for col := range rec {
			if !required[col] && col != ColumnPrice && models.IsNutrientColumn(col) {
				extra[col] = true
			}
		}
	}
	names := make([]string, 0, len(extra))
	for col := range extra {
		names = append(names, col)
	}
	sort.Strings(names)
	for _, col := range names {
		out = append(out, models.Nutrient(col))
	}
	return out
}

func parseRecord(row int, rec RawRecord, nutrients []models.Nutrient) (*models.MealRecord, error) {
	restaurant, err := requireText(row, rec, ColumnRestaurant)
	if err != nil {
		return nil, err
	}
	name, err := requireText(row, rec, ColumnMeal)
	if err != nil {
		return nil, err
	}
	price, err := requireAmount(row, rec, ColumnPrice)
	if err != nil {
		return nil, err
	}

	meal := &models.MealRecord{
		ID:         cuid.New(),
		Restaurant: restaurant,
		Name:       name,
		Price:      price,
		Nutrition:  make(map[models.Nutrient]float64, len(nutrients)),
	}
	for _, n := range nutrients {
		v, err := requireAmount(row, rec, string(n))
		if err != nil {
			return nil, err
		}
		meal.Nutrition[n] = v
	}
	for _, t := range models.AllTags() {
		col, raw, ok := lookupTag(rec, t)
		if !ok {
			if t.Required() {
				return nil, &ValidationError{Row: row, Field: t.Columns()[0], Reason: "missing"}
			}
			continue
		}
		switch strings.TrimSpace(raw) {
		case "1":
			meal.Tags = meal.Tags.With(t)
		case "0":
		default:
			return nil, &ValidationError{Row: row, Field: col, Reason: fmt.Sprintf("binary indicator must be 0 or 1, got %q", raw)}
		}
	}
	return meal, nil
}

func lookupTag(rec RawRecord, t models.Tag) (string, string, bool) {
	for _, col := range t.Columns() {
		if v, ok := rec[col]; ok {
			return col, v, true
		}
	}
	return "", "", false
}

func requireText(row int, rec RawRecord, field string) (string, error) {
	v, ok := rec[field]
	if !ok {
		return "", &ValidationError{Row: row, Field: field, Reason: "missing"}
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", &ValidationError{Row: row, Field: field, Reason: "empty"}
	}
	return v, nil
}

func requireAmount(row int, rec RawRecord, field string) (float64, error) {
	raw, err := requireText(row, rec, field)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Row: row, Field: field, Reason: fmt.Sprintf("not a finite number: %q", raw)}
	}
	if v < 0 {
		return 0, &ValidationError{Row: row, Field: field, Reason: fmt.Sprintf("must be >= 0, got %v", v)}
	}
	return v, nil
}

// Len returns the number of meals.
func (c *Catalog) Len() int { return len(c.meals) }

// Meals returns all meals ordered by (restaurant, meal).
func (c *Catalog) Meals() []*models.MealRecord {
	out := make([]*models.MealRecord, len(c.meals))
	copy(out, c.meals)
	return out
}

// Get looks a meal up by ID.
func (c *Catalog) Get(id string) (*models.MealRecord, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// Find looks a meal up by its (restaurant, meal) identity.
func (c *Catalog) Find(restaurant, meal string) (*models.MealRecord, bool) {
	m, ok := c.byKey[restaurant+"\x00"+meal]
	return m, ok
}

// Restaurants returns the distinct restaurant names, sorted.
func (c *Catalog) Restaurants() []string {
	return append([]string(nil), c.restaurants...)
}

// Nutrients returns the nutrient columns carried by every meal.
func (c *Catalog) Nutrients() []models.Nutrient {
	return append([]models.Nutrient(nil), c.nutrients...)
}

// EligibleFor returns the meals passing every hard dietary filter and slot
// exclusion for the slot, ordered by (restaurant, meal). The result is shared
// and must not be modified.
func (c *Catalog) EligibleFor(slot models.Slot, filters models.FilterSet) []*models.MealRecord {
	key := filters.Key(slot.Meal)
	if v, ok := c.eligible.Load(key); ok {
		return v.([]*models.MealRecord)
	}
	var out []*models.MealRecord
	for _, m := range c.meals {
		if filters.Admits(m, slot.Meal) {
			out = append(out, m)
		}
	}
	v, _ := c.eligible.LoadOrStore(key, out)
	return v.([]*models.MealRecord)
}

// Cheapest returns the lowest price among meals, and false when meals is empty.
func Cheapest(meals []*models.MealRecord) (float64, bool) {
	if len(meals) == 0 {
		return 0, false
	}
	min := meals[0].Price
	for _, m := range meals[1:] {
		if m.Price < min {
			min = m.Price
		}
	}
	return min, true
}
