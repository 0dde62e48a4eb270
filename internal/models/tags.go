package models

import "fmt"

// Tag is a boolean indicator column of the catalog.
type Tag uint8

const (
	TagDiabeticFriendly Tag = iota
	TagVegan
	TagVegetarian
	TagPescatarian
	TagContainsGluten
	TagContainsLactose
	TagContainsNuts
	TagFried
	TagGrilled
	TagBaked
	TagLegume
	TagKeto
	TagKosher
	TagHalal
	TagGainWeight
	TagLoseWeight
	TagGainMuscle
	TagContainsGrains
	TagContainsBread
	TagContainsDairy
	TagSpicy
	tagCount
)

type tagInfo struct {
	name     string
	columns  []string
	required bool
}

var tagTable = [tagCount]tagInfo{
	TagDiabeticFriendly: {"diabetic_friendly", []string{"diabetic_friendly"}, true},
	TagVegan:            {"vegan", []string{"vegan"}, true},
	TagVegetarian:       {"vegetarian", []string{"vegetarian"}, true},
	TagPescatarian:      {"pescatarian", []string{"pescatarian"}, true},
	TagContainsGluten:   {"contains_gluten", []string{"contains_gluten"}, true},
	TagContainsLactose:  {"contains_lactose", []string{"contains_lactose"}, true},
	TagContainsNuts:     {"contains_nuts", []string{"contains_nuts"}, true},
	TagFried:            {"fried", []string{"fried"}, true},
	TagGrilled:          {"grilled", []string{"grilled"}, true},
	TagBaked:            {"baked", []string{"baked"}, true},
	TagLegume:           {"legume", []string{"legume", "contains_legumes"}, false},
	TagKeto:             {"keto_friendly", []string{"keto_friendly"}, false},
	TagKosher:           {"kosher", []string{"kosher"}, false},
	TagHalal:            {"halal", []string{"halal"}, false},
	TagGainWeight:       {"gaining_weight_diet", []string{"gaining_weight_diet"}, false},
	TagLoseWeight:       {"loose_weight_diet", []string{"loose_weight_diet", "losing_weight_diet"}, false},
	TagGainMuscle:       {"gaining_muscle_diet", []string{"gaining_muscle_diet"}, false},
	TagContainsGrains:   {"contains_grains", []string{"contains_grains"}, false},
	TagContainsBread:    {"contains_bread", []string{"contains_bread"}, false},
	TagContainsDairy:    {"contains_dairy", []string{"contains_dairy"}, false},
	TagSpicy:            {"spicy", []string{"spicy"}, false},
}

func (t Tag) String() string {
	if t >= tagCount {
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
	return tagTable[t].name
}

// Columns lists the catalog column names accepted for the tag, canonical first.
func (t Tag) Columns() []string { return tagTable[t].columns }

// Required reports whether every catalog row must carry the tag column.
func (t Tag) Required() bool { return tagTable[t].required }

// AllTags returns every known tag in declaration order.
func AllTags() []Tag {
	tags := make([]Tag, 0, tagCount)
	for t := Tag(0); t < tagCount; t++ {
		tags = append(tags, t)
	}
	return tags
}

// ParseTag resolves a tag by its name or any of its column aliases.
func ParseTag(s string) (Tag, error) {
	for t := Tag(0); t < tagCount; t++ {
		if tagTable[t].name == s {
			return t, nil
		}
		for _, c := range tagTable[t].columns {
			if c == s {
				return t, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown tag %q", s)
}

// PrepMethodTags are the preparation-method tags that prep_method_bounds can target.
var PrepMethodTags = []Tag{TagFried, TagGrilled, TagBaked}

// TagSet is a bitset of tags.
type TagSet uint32

func (s TagSet) Has(t Tag) bool { return s&(1<<t) != 0 }

func (s TagSet) With(t Tag) TagSet { return s | (1 << t) }

// NewTagSet builds a set from the given tags.
func NewTagSet(tags ...Tag) TagSet {
	var s TagSet
	for _, t := range tags {
		s = s.With(t)
	}
	return s
}
