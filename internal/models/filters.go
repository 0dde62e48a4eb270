package models

import (
	"fmt"
	"sort"
	"strings"
)

// DietaryFilter is a hard, slot-independent exclusion chosen by the user.
type DietaryFilter string

const (
	FilterVegan            DietaryFilter = "vegan"
	FilterVegetarian       DietaryFilter = "vegetarian"
	FilterPescatarian      DietaryFilter = "pescatarian"
	FilterDiabeticFriendly DietaryFilter = "diabetic_friendly"
	FilterExcludeGluten    DietaryFilter = "exclude_gluten"
	FilterExcludeLactose   DietaryFilter = "exclude_lactose"
	FilterExcludeNuts      DietaryFilter = "exclude_nuts"
	FilterKeto             DietaryFilter = "keto"
	FilterKosher           DietaryFilter = "kosher"
	FilterHalal            DietaryFilter = "halal"
	FilterGainWeight       DietaryFilter = "gain_weight"
	FilterLoseWeight       DietaryFilter = "lose_weight"
	FilterGainMuscle       DietaryFilter = "gain_muscle"
	FilterAvoidGrains      DietaryFilter = "avoid_grains"
	FilterAvoidLegumes     DietaryFilter = "avoid_legumes"
	FilterAvoidBread       DietaryFilter = "avoid_bread"
	FilterAvoidDairy       DietaryFilter = "avoid_dairy"
	FilterAvoidSpicy       DietaryFilter = "avoid_spicy"
	FilterAvoidFried       DietaryFilter = "avoid_fried"
)

// filterRule: a meal passes when meal.Has(tag) == want.
type filterRule struct {
	tag  Tag
	want bool
}

var filterRules = map[DietaryFilter]filterRule{
	FilterVegan:            {TagVegan, true},
	FilterVegetarian:       {TagVegetarian, true},
	FilterPescatarian:      {TagPescatarian, true},
	FilterDiabeticFriendly: {TagDiabeticFriendly, true},
	FilterExcludeGluten:    {TagContainsGluten, false},
	FilterExcludeLactose:   {TagContainsLactose, false},
	FilterExcludeNuts:      {TagContainsNuts, false},
	FilterKeto:             {TagKeto, true},
	FilterKosher:           {TagKosher, true},
	FilterHalal:            {TagHalal, true},
	FilterGainWeight:       {TagGainWeight, true},
	FilterLoseWeight:       {TagLoseWeight, true},
	FilterGainMuscle:       {TagGainMuscle, true},
	FilterAvoidGrains:      {TagContainsGrains, false},
	FilterAvoidLegumes:     {TagLegume, false},
	FilterAvoidBread:       {TagContainsBread, false},
	FilterAvoidDairy:       {TagContainsDairy, false},
	FilterAvoidSpicy:       {TagSpicy, false},
	FilterAvoidFried:       {TagFried, false},
}

func (f DietaryFilter) Valid() bool {
	_, ok := filterRules[f]
	return ok
}

// Admits reports whether the meal passes the filter.
func (f DietaryFilter) Admits(m *MealRecord) bool {
	r, ok := filterRules[f]
	if !ok {
		return true
	}
	return m.Has(r.tag) == r.want
}

// ExclusionRule forbids meals carrying Tag in slots of the given meal type,
// e.g. no legume-tagged meal at dinner.
type ExclusionRule struct {
	MealType MealType `mapstructure:"meal_type" json:"meal_type"`
	Tag      string   `mapstructure:"tag" json:"tag"`
}

// FilterSet is everything that decides eligibility of a meal for a slot.
type FilterSet struct {
	Dietary    []DietaryFilter
	Exclusions []ExclusionRule
}

// Key identifies the filters relevant to one meal type, for memoization.
func (f FilterSet) Key(meal MealType) string {
	parts := make([]string, 0, len(f.Dietary)+len(f.Exclusions))
	for _, d := range f.Dietary {
		parts = append(parts, string(d))
	}
	for _, e := range f.Exclusions {
		if e.MealType == meal {
			parts = append(parts, "!"+e.Tag)
		}
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s|%s", meal, strings.Join(parts, ","))
}

// Admits reports whether m is eligible for a slot of the given meal type.
func (f FilterSet) Admits(m *MealRecord, meal MealType) bool {
	for _, d := range f.Dietary {
		if !d.Admits(m) {
			return false
		}
	}
	for _, e := range f.Exclusions {
		if e.MealType != meal {
			continue
		}
		t, err := ParseTag(e.Tag)
		if err == nil && m.Has(t) {
			return false
		}
	}
	return true
}
