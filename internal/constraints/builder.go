package constraints

import (
	"fmt"
	"math"
	"sort"

	"github.com/chrisdamba/mealplanner/internal/catalog"
	"github.com/chrisdamba/mealplanner/internal/models"
)

type genderPreset struct {
	minCalories float64
	maxCalories float64
	minProtein  float64
}

// Daily presets used when no macro target is configured.
var genderPresets = map[string]genderPreset{
	"male":   {minCalories: 1100, maxCalories: 1600, minProtein: 50},
	"female": {minCalories: 900, maxCalories: 1400, minProtein: 45},
	"other":  {minCalories: 1000, maxCalories: 1500, minProtein: 45},
}

// Builder compiles preferences against one catalog.
type Builder struct {
	catalog *catalog.Catalog
}

func NewBuilder(c *catalog.Catalog) *Builder {
	return &Builder{catalog: c}
}

// Build compiles prefs over the grid. Slots without any eligible meal are kept
// with an empty structural row so the assembler can report them. A *ConfigError
// is returned for preferences that are contradictory before any solve.
func (b *Builder) Build(grid *models.SlotGrid, prefs *models.Preferences) (*Set, error) {
	if err := prefs.Validate(); err != nil {
		return nil, err
	}

	filters := prefs.Filters()
	set := &Set{
		Grid:      grid,
		Catalog:   b.catalog,
		Eligible:  make([][]*models.MealRecord, grid.Len()),
		Objective: make(map[VarKey]float64),
		Mode:      prefs.Objective.Mode,
		Budget:    prefs.Budget,
	}
	if set.Mode == "" {
		set.Mode = models.ObjectiveMinimizeCost
	}
	for i, slot := range grid.Slots() {
		set.Eligible[i] = b.catalog.EligibleFor(slot, filters)
	}

	if err := checkBudget(set); err != nil {
		return nil, err
	}
	if err := checkBounds(prefs.NutrientBounds); err != nil {
		return nil, err
	}

	c := &compiler{set: set}
	c.structural()
	c.budget(prefs.Budget)
	if prefs.EnforceUniqueness {
		c.uniqueness()
	}
	c.restaurantCaps(prefs.MaxMealsPerRestaurant)
	for _, nb := range prefs.NutrientBounds {
		c.nutrientBound(nb)
	}
	if len(prefs.MacroTargets) > 0 {
		c.macroTargets(prefs.MacroTargets)
	} else if p, ok := genderPresets[prefs.Gender]; ok {
		c.genderPreset(p)
	}
	c.prepRatios(prefs.PrepMethodBounds)
	for _, r := range prefs.OrderingRules {
		c.ordering(r)
	}
	c.objective(prefs.Objective)
	return set, nil
}

// checkBudget rejects a budget below the cheapest possible week.
func checkBudget(set *Set) error {
	var floor float64
	for _, meals := range set.Eligible {
		if p, ok := catalog.Cheapest(meals); ok {
			floor += p
		}
	}
	if floor > set.Budget+FeasibilityTol {
		return &models.ConfigError{
			Field:  "budget",
			Reason: fmt.Sprintf("budget %.2f is below the cheapest possible plan %.2f", set.Budget, floor),
		}
	}
	return nil
}

// checkBounds rejects hard bounds on the same nutrient and scope whose
// intervals do not intersect.
func checkBounds(bounds []models.NutrientBound) error {
	type key struct {
		n models.Nutrient
		s models.Scope
	}
	lo := make(map[key]float64)
	hi := make(map[key]float64)
	var order []key
	for _, b := range bounds {
		if b.Soft {
			continue
		}
		k := key{b.Nutrient, b.Scope}
		if _, ok := lo[k]; !ok {
			lo[k], hi[k] = math.Inf(-1), math.Inf(1)
			order = append(order, k)
		}
		if b.Min != nil {
			lo[k] = math.Max(lo[k], *b.Min)
		}
		if b.Max != nil {
			hi[k] = math.Min(hi[k], *b.Max)
		}
	}
	for _, k := range order {
		if lo[k] > hi[k] {
			return &models.ConfigError{
				Field:  "nutrient_bounds",
				Reason: fmt.Sprintf("hard %s bounds on %s contradict: min %v > max %v", k.s, k.n, lo[k], hi[k]),
			}
		}
	}
	return nil
}

type compiler struct {
	set *Set
}

func (c *compiler) add(con Constraint) {
	c.set.Constraints = append(c.set.Constraints, con)
}

// terms builds one term per variable of the slots accepted by slotOK, with the
// coefficient returned by coef; zero coefficients are skipped.
func (c *compiler) terms(slotOK func(models.Slot) bool, coef func(*models.MealRecord) float64) []Term {
	var out []Term
	for i, meals := range c.set.Eligible {
		slot := c.set.Grid.At(i)
		if slotOK != nil && !slotOK(slot) {
			continue
		}
		for _, m := range meals {
			if v := coef(m); v != 0 {
				out = append(out, Term{Key: VarKey{Slot: slot, MealID: m.ID}, Coef: v})
			}
		}
	}
	return out
}

func one(*models.MealRecord) float64 { return 1 }

func onSlot(s models.Slot) func(models.Slot) bool {
	return func(o models.Slot) bool { return o == s }
}

func onDay(day int) func(models.Slot) bool {
	return func(o models.Slot) bool { return o.Day == day }
}

func (c *compiler) structural() {
	for _, slot := range c.set.Grid.Slots() {
		c.add(Constraint{
			Name:     fmt.Sprintf("one_meal_per_slot[%s]", slot),
			Family:   models.FamilyOneMealPerSlot,
			Priority: Hard(),
			Terms:    c.terms(onSlot(slot), one),
			Lo:       1,
			Hi:       1,
			Day:      slot.Day,
		})
	}
}

func (c *compiler) budget(limit float64) {
	c.add(Constraint{
		Name:     "budget_cap",
		Family:   models.FamilyBudget,
		Priority: Hard(),
		Terms:    c.terms(nil, func(m *models.MealRecord) float64 { return m.Price }),
		Lo:       math.Inf(-1),
		Hi:       limit,
	})
}

func (c *compiler) uniqueness() {
	byMeal := make(map[string][]Term)
	for _, t := range c.terms(nil, one) {
		byMeal[t.Key.MealID] = append(byMeal[t.Key.MealID], t)
	}
	for _, m := range c.set.Catalog.Meals() {
		ts := byMeal[m.ID]
		if len(ts) < 2 {
			continue
		}
		c.add(Constraint{
			Name:     fmt.Sprintf("uniqueness[%s/%s]", m.Restaurant, m.Name),
			Family:   models.FamilyUniqueness,
			Priority: Hard(),
			Terms:    ts,
			Lo:       math.Inf(-1),
			Hi:       1,
		})
	}
}

func (c *compiler) restaurantCaps(max int) {
	if max >= c.set.Grid.Len() {
		return
	}
	for _, r := range c.set.Catalog.Restaurants() {
		restaurant := r
		ts := c.terms(nil, func(m *models.MealRecord) float64 {
			if m.Restaurant == restaurant {
				return 1
			}
			return 0
		})
		if len(ts) <= max {
			continue
		}
		c.add(Constraint{
			Name:     fmt.Sprintf("restaurant_cap[%s]", restaurant),
			Family:   models.FamilyRestaurantCap,
			Priority: Hard(),
			Terms:    ts,
			Lo:       math.Inf(-1),
			Hi:       float64(max),
		})
	}
}

func nutrientCoef(n models.Nutrient) func(*models.MealRecord) float64 {
	return func(m *models.MealRecord) float64 { return m.Nutrient(n) }
}

func (c *compiler) nutrientBound(b models.NutrientBound) {
	lo, hi := math.Inf(-1), math.Inf(1)
	if b.Min != nil {
		lo = *b.Min
	}
	if b.Max != nil {
		hi = *b.Max
	}
	prio := Hard()
	if b.Soft {
		prio = Soft(weightOr(b.Weight, models.DefaultBoundWeight))
	}
	if b.Scope == models.ScopeWeek {
		c.add(Constraint{
			Name:     fmt.Sprintf("nutrient_bound[%s,week]", b.Nutrient),
			Family:   models.FamilyNutrientBound,
			Priority: prio,
			Terms:    c.terms(nil, nutrientCoef(b.Nutrient)),
			Lo:       lo,
			Hi:       hi,
			Nutrient: b.Nutrient,
		})
		return
	}
	for _, day := range c.set.Grid.Days() {
		c.add(Constraint{
			Name:     fmt.Sprintf("nutrient_bound[%s,day %d]", b.Nutrient, day),
			Family:   models.FamilyNutrientBound,
			Priority: prio,
			Terms:    c.terms(onDay(day), nutrientCoef(b.Nutrient)),
			Lo:       lo,
			Hi:       hi,
			Day:      day,
			Nutrient: b.Nutrient,
		})
	}
}

func (c *compiler) macroTargets(targets map[models.Nutrient]models.MacroTarget) {
	nutrients := make([]models.Nutrient, 0, len(targets))
	for n := range targets {
		nutrients = append(nutrients, n)
	}
	sort.Slice(nutrients, func(i, j int) bool { return nutrients[i] < nutrients[j] })

	for _, n := range nutrients {
		t := targets[n]
		prio := Soft(weightOr(t.Weight, models.DefaultMacroWeight))
		if t.Hard {
			prio = Hard()
		}
		c.daily(n, t.Target*(1-t.Tolerance), t.Target*(1+t.Tolerance), prio)
	}
}

func (c *compiler) genderPreset(p genderPreset) {
	c.daily(models.Calories, p.minCalories, p.maxCalories, Soft(models.DefaultMacroWeight))
	c.daily(models.Protein, p.minProtein, math.Inf(1), Soft(models.DefaultMacroWeight))
}

func (c *compiler) daily(n models.Nutrient, lo, hi float64, prio Priority) {
	for _, day := range c.set.Grid.Days() {
		c.add(Constraint{
			Name:     fmt.Sprintf("macro_target[%s,day %d]", n, day),
			Family:   models.FamilyMacroTarget,
			Priority: prio,
			Terms:    c.terms(onDay(day), nutrientCoef(n)),
			Lo:       lo,
			Hi:       hi,
			Day:      day,
			Nutrient: n,
		})
	}
}

func (c *compiler) prepRatios(bounds map[string]models.FractionRange) {
	methods := make([]string, 0, len(bounds))
	for m := range bounds {
		methods = append(methods, m)
	}
	sort.Strings(methods)

	n := float64(c.set.Grid.Len())
	for _, method := range methods {
		r := bounds[method]
		tag, err := models.ParseTag(method)
		if err != nil {
			continue
		}
		c.add(Constraint{
			Name:     fmt.Sprintf("prep_method_ratio[%s]", tag),
			Family:   models.FamilyPrepMethodRatio,
			Priority: Hard(),
			Terms: c.terms(nil, func(m *models.MealRecord) float64 {
				if m.Has(tag) {
					return 1
				}
				return 0
			}),
			Lo: r.Min * n,
			Hi: r.Max * n,
		})
	}
}

func (c *compiler) ordering(r models.OrderingRule) {
	for _, day := range c.set.Grid.Days() {
		first := models.Slot{Day: day, Meal: r.First}
		second := models.Slot{Day: day, Meal: r.Second}
		if !c.set.Grid.Has(first) || !c.set.Grid.Has(second) {
			continue
		}
		terms := c.terms(onSlot(first), nutrientCoef(r.Nutrient))
		for _, t := range c.terms(onSlot(second), nutrientCoef(r.Nutrient)) {
			t.Coef = -t.Coef
			terms = append(terms, t)
		}
		lo, hi := models.OrderingEpsilon, math.Inf(1)
		if r.Op == models.OpLess {
			lo, hi = math.Inf(-1), -models.OrderingEpsilon
		}
		c.add(Constraint{
			Name:     fmt.Sprintf("ordering_rule[%s %s %s %s,day %d]", r.First, r.Op, r.Second, r.Nutrient, day),
			Family:   models.FamilyOrderingRule,
			Priority: Hard(),
			Terms:    terms,
			Lo:       lo,
			Hi:       hi,
			Day:      day,
			Nutrient: r.Nutrient,
		})
	}
}

func (c *compiler) objective(o models.Objective) {
	nutrients := make([]models.Nutrient, 0, len(o.Weights))
	for n := range o.Weights {
		nutrients = append(nutrients, n)
	}
	sort.Slice(nutrients, func(i, j int) bool { return nutrients[i] < nutrients[j] })

	for i, meals := range c.set.Eligible {
		slot := c.set.Grid.At(i)
		for _, m := range meals {
			k := VarKey{Slot: slot, MealID: m.ID}
			if c.set.Mode != models.ObjectiveMaximizeNutrition {
				c.set.Objective[k] = m.Price
				continue
			}
			var score float64
			for _, n := range nutrients {
				score += o.Weights[n] * m.Nutrient(n)
			}
			c.set.Objective[k] = -score
		}
	}
}

// weightOr returns the configured weight, or def when none was given. Zero is
// a valid weight and prices the violation at nothing.
func weightOr(w *float64, def float64) float64 {
	if w == nil {
		return def
	}
	return *w
}
