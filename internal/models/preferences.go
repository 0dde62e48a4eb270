package models

import (
	"fmt"
	"math"
	"time"
)

// Scope of an aggregated nutrient constraint.
type Scope string

const (
	ScopeWeek Scope = "week"
	ScopeDay  Scope = "day"
)

// Objective modes.
const (
	ObjectiveMinimizeCost      = "minimize_cost"
	ObjectiveMaximizeNutrition = "maximize_nutrition"
)

// Ordering operators.
const (
	OpGreater = "gt"
	OpLess    = "lt"
)

// OrderingEpsilon is the margin by which an ordering rule's left side must
// exceed (or stay below) the right side, in the nutrient's unit.
const OrderingEpsilon = 1e-3

// MacroTarget keeps a daily nutrient total within target·(1±tolerance).
// Soft unless Hard is set; Weight is the penalty per unit of deviation. A nil
// Weight takes DefaultMacroWeight, an explicit 0 makes the deviation free.
type MacroTarget struct {
	Target    float64  `mapstructure:"target" json:"target"`
	Tolerance float64  `mapstructure:"tolerance" json:"tolerance"`
	Hard      bool     `mapstructure:"hard" json:"hard"`
	Weight    *float64 `mapstructure:"weight" json:"weight,omitempty"`
}

// NutrientBound bounds a weekly or per-day nutrient total. Min/Max are optional.
type NutrientBound struct {
	Nutrient Nutrient `mapstructure:"nutrient" json:"nutrient"`
	Scope    Scope    `mapstructure:"scope" json:"scope"`
	Min      *float64 `mapstructure:"min" json:"min,omitempty"`
	Max      *float64 `mapstructure:"max" json:"max,omitempty"`
	Soft     bool     `mapstructure:"soft" json:"soft"`
	Weight   *float64 `mapstructure:"weight" json:"weight,omitempty"`
}

// FractionRange bounds the share of weekly selections with a preparation method.
type FractionRange struct {
	Min float64 `mapstructure:"min" json:"min"`
	Max float64 `mapstructure:"max" json:"max"`
}

// OrderingRule compares two meals of the same day, e.g. lunch calories > dinner calories.
type OrderingRule struct {
	First    MealType `mapstructure:"first" json:"first"`
	Second   MealType `mapstructure:"second" json:"second"`
	Nutrient Nutrient `mapstructure:"nutrient" json:"nutrient"`
	Op       string   `mapstructure:"op" json:"op"`
}

// Objective selects what the solver optimizes. In maximize_nutrition mode the
// weighted nutrient score is maximized; the budget cap still applies.
type Objective struct {
	Mode    string               `mapstructure:"mode" json:"mode"`
	Weights map[Nutrient]float64 `mapstructure:"weights" json:"weights,omitempty"`
}

// SolverOptions tune a single solve request.
type SolverOptions struct {
	TimeBudget        time.Duration `mapstructure:"time_budget" json:"time_budget"`
	MaxNodes          int           `mapstructure:"max_nodes" json:"max_nodes"`
	Tolerance         float64       `mapstructure:"tolerance" json:"tolerance"`
	RelaxationPenalty float64       `mapstructure:"relaxation_penalty" json:"relaxation_penalty"`
}

// Preferences is the full plan request.
type Preferences struct {
	Budget                float64                  `mapstructure:"budget" json:"budget"`
	DietaryFilters        []DietaryFilter          `mapstructure:"dietary_filters" json:"dietary_filters"`
	MaxMealsPerRestaurant int                      `mapstructure:"max_meals_per_restaurant" json:"max_meals_per_restaurant"`
	EnforceUniqueness     bool                     `mapstructure:"enforce_uniqueness" json:"enforce_uniqueness"`
	MacroTargets          map[Nutrient]MacroTarget `mapstructure:"macro_targets" json:"macro_targets,omitempty"`
	NutrientBounds        []NutrientBound          `mapstructure:"nutrient_bounds" json:"nutrient_bounds,omitempty"`
	PrepMethodBounds      map[string]FractionRange `mapstructure:"prep_method_bounds" json:"prep_method_bounds,omitempty"`
	SlotsInScope          []Slot                   `mapstructure:"slots_in_scope" json:"slots_in_scope,omitempty"`
	Days                  []int                    `mapstructure:"days" json:"days,omitempty"`
	MealTypes             []MealType               `mapstructure:"meal_types" json:"meal_types,omitempty"`
	OrderingRules         []OrderingRule           `mapstructure:"ordering_rules" json:"ordering_rules,omitempty"`
	ExclusionRules        []ExclusionRule          `mapstructure:"exclusion_rules" json:"exclusion_rules,omitempty"`
	Gender                string                   `mapstructure:"gender" json:"gender,omitempty"`
	Objective             Objective                `mapstructure:"objective" json:"objective"`
	Solver                SolverOptions            `mapstructure:"solver" json:"solver"`
}

// Documented defaults.
const (
	DefaultBudget                = 100.0
	DefaultMaxMealsPerRestaurant = 5
	DefaultMacroWeight           = 1.0
	DefaultBoundWeight           = 1.0
	DefaultRelaxationPenalty     = 1000.0
	DefaultTimeBudget            = 30 * time.Second
	DefaultTolerance             = 1e-10
)

// DefaultPreferences mirrors the defaults LoadConfig applies: lunch and dinner
// for seven days, budget 100, at most five meals per restaurant, no repeats,
// lunch heavier than dinner and no legumes at dinner.
func DefaultPreferences() *Preferences {
	return &Preferences{
		Budget:                DefaultBudget,
		MaxMealsPerRestaurant: DefaultMaxMealsPerRestaurant,
		EnforceUniqueness:     true,
		MealTypes:             []MealType{Lunch, Dinner},
		OrderingRules: []OrderingRule{
			{First: Lunch, Second: Dinner, Nutrient: Calories, Op: OpGreater},
		},
		ExclusionRules: []ExclusionRule{
			{MealType: Dinner, Tag: TagLegume.String()},
		},
		Objective: Objective{Mode: ObjectiveMinimizeCost},
		Solver: SolverOptions{
			TimeBudget:        DefaultTimeBudget,
			Tolerance:         DefaultTolerance,
			RelaxationPenalty: DefaultRelaxationPenalty,
		},
	}
}

// Slots resolves the slots in scope: the explicit list when given, otherwise
// Days × MealTypes.
func (p *Preferences) Slots() []Slot {
	if len(p.SlotsInScope) > 0 {
		return p.SlotsInScope
	}
	return CrossSlots(p.Days, p.MealTypes)
}

// Grid builds the slot grid of the request.
func (p *Preferences) Grid() (*SlotGrid, error) {
	return NewSlotGrid(p.Slots())
}

// Filters returns the eligibility filters of the request.
func (p *Preferences) Filters() FilterSet {
	return FilterSet{Dietary: p.DietaryFilters, Exclusions: p.ExclusionRules}
}

// Validate checks every field eagerly and returns the first *ConfigError found.
func (p *Preferences) Validate() error {
	if math.IsNaN(p.Budget) || math.IsInf(p.Budget, 0) || p.Budget < 0 {
		return &ConfigError{Field: "budget", Reason: fmt.Sprintf("must be a finite value >= 0, got %v", p.Budget)}
	}
	for _, f := range p.DietaryFilters {
		if !f.Valid() {
			return &ConfigError{Field: "dietary_filters", Reason: fmt.Sprintf("unknown filter %q", f)}
		}
	}
	if p.MaxMealsPerRestaurant < 1 {
		return &ConfigError{Field: "max_meals_per_restaurant", Reason: fmt.Sprintf("must be >= 1, got %d", p.MaxMealsPerRestaurant)}
	}
	if err := p.normalizeNutrients(); err != nil {
		return err
	}
	for n, t := range p.MacroTargets {
		field := fmt.Sprintf("macro_targets.%s", n)
		if !IsNutrientColumn(string(n)) {
			return &ConfigError{Field: field, Reason: "unknown nutrient"}
		}
		if !finiteNonNegative(t.Target) {
			return &ConfigError{Field: field, Reason: "target must be a finite value >= 0"}
		}
		if !finiteNonNegative(t.Tolerance) {
			return &ConfigError{Field: field, Reason: "tolerance must be a finite value >= 0"}
		}
		if t.Weight != nil && !finiteNonNegative(*t.Weight) {
			return &ConfigError{Field: field, Reason: "weight must be a finite value >= 0"}
		}
	}
	for i, b := range p.NutrientBounds {
		field := fmt.Sprintf("nutrient_bounds[%d]", i)
		if !IsNutrientColumn(string(b.Nutrient)) {
			return &ConfigError{Field: field, Reason: fmt.Sprintf("unknown nutrient %q", b.Nutrient)}
		}
		if b.Scope != ScopeWeek && b.Scope != ScopeDay {
			return &ConfigError{Field: field, Reason: fmt.Sprintf("scope must be week or day, got %q", b.Scope)}
		}
		if b.Min == nil && b.Max == nil {
			return &ConfigError{Field: field, Reason: "needs min or max"}
		}
		if b.Min != nil && !finiteNonNegative(*b.Min) {
			return &ConfigError{Field: field, Reason: "min must be a finite value >= 0"}
		}
		if b.Max != nil && !finiteNonNegative(*b.Max) {
			return &ConfigError{Field: field, Reason: "max must be a finite value >= 0"}
		}
		if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
			return &ConfigError{Field: field, Reason: fmt.Sprintf("min %v exceeds max %v", *b.Min, *b.Max)}
		}
		if b.Weight != nil && !finiteNonNegative(*b.Weight) {
			return &ConfigError{Field: field, Reason: "weight must be a finite value >= 0"}
		}
	}
	for method, r := range p.PrepMethodBounds {
		field := fmt.Sprintf("prep_method_bounds.%s", method)
		if !isPrepMethod(method) {
			return &ConfigError{Field: field, Reason: "unknown preparation method"}
		}
		if r.Min < 0 || r.Max > 1 || r.Min > r.Max {
			return &ConfigError{Field: field, Reason: fmt.Sprintf("want 0 <= min <= max <= 1, got [%v, %v]", r.Min, r.Max)}
		}
	}
	for _, s := range p.SlotsInScope {
		if !s.Valid() {
			return &ConfigError{Field: "slots_in_scope", Reason: fmt.Sprintf("invalid slot %s", s)}
		}
	}
	for _, d := range p.Days {
		if d < 1 || d > DaysPerWeek {
			return &ConfigError{Field: "days", Reason: fmt.Sprintf("day %d out of range 1..7", d)}
		}
	}
	for _, m := range p.MealTypes {
		if !m.Valid() {
			return &ConfigError{Field: "meal_types", Reason: fmt.Sprintf("invalid meal type %d", int(m))}
		}
	}
	for i, r := range p.OrderingRules {
		field := fmt.Sprintf("ordering_rules[%d]", i)
		if !r.First.Valid() || !r.Second.Valid() || r.First == r.Second {
			return &ConfigError{Field: field, Reason: "needs two distinct meal types"}
		}
		if !IsNutrientColumn(string(r.Nutrient)) {
			return &ConfigError{Field: field, Reason: fmt.Sprintf("unknown nutrient %q", r.Nutrient)}
		}
		if r.Op != OpGreater && r.Op != OpLess {
			return &ConfigError{Field: field, Reason: fmt.Sprintf("op must be gt or lt, got %q", r.Op)}
		}
	}
	for i, e := range p.ExclusionRules {
		if !e.MealType.Valid() {
			return &ConfigError{Field: fmt.Sprintf("exclusion_rules[%d]", i), Reason: "invalid meal type"}
		}
		if _, err := ParseTag(e.Tag); err != nil {
			return &ConfigError{Field: fmt.Sprintf("exclusion_rules[%d]", i), Reason: err.Error()}
		}
	}
	switch p.Gender {
	case "", "male", "female", "other":
	default:
		return &ConfigError{Field: "gender", Reason: fmt.Sprintf("want male, female or other, got %q", p.Gender)}
	}
	switch p.Objective.Mode {
	case "", ObjectiveMinimizeCost:
	case ObjectiveMaximizeNutrition:
		if len(p.Objective.Weights) == 0 {
			return &ConfigError{Field: "objective.weights", Reason: "maximize_nutrition needs at least one nutrient weight"}
		}
		for n := range p.Objective.Weights {
			if !IsNutrientColumn(string(n)) {
				return &ConfigError{Field: "objective.weights", Reason: fmt.Sprintf("unknown nutrient %q", n)}
			}
		}
	default:
		return &ConfigError{Field: "objective.mode", Reason: fmt.Sprintf("unknown mode %q", p.Objective.Mode)}
	}
	if p.Solver.TimeBudget < 0 {
		return &ConfigError{Field: "solver.time_budget", Reason: "must be >= 0"}
	}
	if p.Solver.MaxNodes < 0 {
		return &ConfigError{Field: "solver.max_nodes", Reason: "must be >= 0"}
	}
	if p.Solver.Tolerance < 0 || p.Solver.RelaxationPenalty < 0 {
		return &ConfigError{Field: "solver", Reason: "tolerance and relaxation_penalty must be >= 0"}
	}
	if len(p.SlotsInScope) == 0 && len(p.Slots()) == 0 {
		return &ConfigError{Field: "slots_in_scope", Reason: "no slots in scope"}
	}
	return nil
}

func isPrepMethod(method string) bool {
	t, err := ParseTag(method)
	if err != nil {
		return false
	}
	for _, m := range PrepMethodTags {
		if m == t {
			return true
		}
	}
	return false
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// normalizeNutrients rewrites plain nutrient names to catalog columns in place.
func (p *Preferences) normalizeNutrients() error {
	if len(p.MacroTargets) > 0 {
		targets := make(map[Nutrient]MacroTarget, len(p.MacroTargets))
		for n, t := range p.MacroTargets {
			c := ParseNutrient(string(n))
			if _, dup := targets[c]; dup {
				return &ConfigError{Field: fmt.Sprintf("macro_targets.%s", c), Reason: "given more than once"}
			}
			targets[c] = t
		}
		p.MacroTargets = targets
	}
	if len(p.Objective.Weights) > 0 {
		weights := make(map[Nutrient]float64, len(p.Objective.Weights))
		for n, w := range p.Objective.Weights {
			c := ParseNutrient(string(n))
			if _, dup := weights[c]; dup {
				return &ConfigError{Field: fmt.Sprintf("objective.weights.%s", c), Reason: "given more than once"}
			}
			weights[c] = w
		}
		p.Objective.Weights = weights
	}
	for i := range p.NutrientBounds {
		p.NutrientBounds[i].Nutrient = ParseNutrient(string(p.NutrientBounds[i].Nutrient))
	}
	for i := range p.OrderingRules {
		p.OrderingRules[i].Nutrient = ParseNutrient(string(p.OrderingRules[i].Nutrient))
	}
	return nil
}
