// Package constraints compiles a plan request into linear constraints over
// selection variables, one variable per (slot, eligible meal) pair.
//
// Every constraint is an interval Lo <= sum(coef * x) <= Hi; one-sided rows use
// an infinite bound. Hard constraints must hold in any accepted plan. Soft ones
// are priced into the objective by their weight per unit of violation.
package constraints

import (
	"math"

	"github.com/chrisdamba/mealplanner/internal/catalog"
	"github.com/chrisdamba/mealplanner/internal/models"
)

// FeasibilityTol absorbs floating point noise when checking an interval.
const FeasibilityTol = 1e-6

// Priority is either hard or soft with a penalty weight.
type Priority struct {
	Hard   bool
	Weight float64
}

// Hard returns a hard priority.
func Hard() Priority { return Priority{Hard: true} }

// Soft returns a soft priority with the given penalty weight.
func Soft(weight float64) Priority { return Priority{Weight: weight} }

func (p Priority) String() string {
	if p.Hard {
		return "hard"
	}
	return "soft"
}

// VarKey identifies a selection variable.
type VarKey struct {
	Slot   models.Slot
	MealID string
}

type Term struct {
	Key  VarKey
	Coef float64
}

// Constraint is one generated linear row.
type Constraint struct {
	Name     string
	Family   models.Family
	Priority Priority
	Terms    []Term
	Lo       float64
	Hi       float64

	// Relaxed marks a hard constraint demoted to soft by the relaxation search.
	Relaxed bool

	// Day is set on per-day rows, Nutrient on nutrient rows.
	Day      int
	Nutrient models.Nutrient
}

// Eval sums the terms of c over the selected variables.
func (c *Constraint) Eval(selected map[VarKey]bool) float64 {
	var sum float64
	for _, t := range c.Terms {
		if selected[t.Key] {
			sum += t.Coef
		}
	}
	return sum
}

// Violation is the distance of v from [Lo, Hi], zero inside the interval.
func (c *Constraint) Violation(v float64) float64 {
	switch {
	case v < c.Lo:
		return c.Lo - v
	case v > c.Hi:
		return v - c.Hi
	}
	return 0
}

// Satisfied reports whether v lies within [Lo, Hi] up to FeasibilityTol.
func (c *Constraint) Satisfied(v float64) bool {
	return c.Violation(v) <= FeasibilityTol*math.Max(1, math.Abs(v))
}

// Set is the compiled request: the slot grid, the eligible meals per slot, the
// constraint rows and the objective coefficients.
type Set struct {
	Grid    *models.SlotGrid
	Catalog *catalog.Catalog

	// Eligible[i] are the meals eligible for Grid.At(i), ordered by key.
	Eligible [][]*models.MealRecord

	Constraints []Constraint

	// Objective holds one coefficient per selection variable.
	Objective map[VarKey]float64
	Mode      string
	Budget    float64

	// Demoted lists the families relaxed to soft, in demotion order.
	Demoted []models.Family
}

// Vars lists the selection variables in grid order, then by meal key.
func (s *Set) Vars() []VarKey {
	var keys []VarKey
	for i, meals := range s.Eligible {
		slot := s.Grid.At(i)
		for _, m := range meals {
			keys = append(keys, VarKey{Slot: slot, MealID: m.ID})
		}
	}
	return keys
}

// Families lists the distinct families present, in first-seen order.
func (s *Set) Families() []models.Family {
	seen := make(map[models.Family]bool)
	var out []models.Family
	for _, c := range s.Constraints {
		if !seen[c.Family] {
			seen[c.Family] = true
			out = append(out, c.Family)
		}
	}
	return out
}

// HasHard reports whether any hard constraint of family f is present.
func (s *Set) HasHard(f models.Family) bool {
	for _, c := range s.Constraints {
		if c.Family == f && c.Priority.Hard {
			return true
		}
	}
	return false
}

// Demote returns a copy of s in which the hard constraints of the given
// families are soft with the given weight. Families that are not relaxable are
// left untouched. s itself is not modified.
func (s *Set) Demote(families []models.Family, weight float64) *Set {
	out := *s
	out.Constraints = make([]Constraint, len(s.Constraints))
	copy(out.Constraints, s.Constraints)
	out.Demoted = append([]models.Family(nil), s.Demoted...)

	for _, f := range families {
		if !f.Relaxable() {
			continue
		}
		touched := false
		for i := range out.Constraints {
			c := &out.Constraints[i]
			if c.Family == f && c.Priority.Hard {
				c.Priority = Soft(weight)
				c.Relaxed = true
				touched = true
			}
		}
		if touched {
			out.Demoted = append(out.Demoted, f)
		}
	}
	return &out
}
