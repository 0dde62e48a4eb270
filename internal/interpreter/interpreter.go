// Package interpreter maps a solver assignment back to a weekly plan and
// re-checks it against every original constraint, independently of the
// solver's own evaluation.
package interpreter

import (
	"fmt"
	"strings"
	"time"

	"github.com/lucsky/cuid"

	"github.com/chrisdamba/mealplanner/internal/constraints"
	"github.com/chrisdamba/mealplanner/internal/models"
	"github.com/chrisdamba/mealplanner/internal/solver"
)

// Interpret builds the plan for sol. set must be the constraint set before any
// relaxation. A hard constraint that fails without having been relaxed is
// reported as an error wrapping models.ErrHardViolation.
func Interpret(set *constraints.Set, sol *solver.Solution) (*models.Plan, error) {
	entries, selected, err := entriesOf(set, sol.Assignment)
	if err != nil {
		return nil, err
	}

	relaxed := make(map[models.Family]bool, len(sol.Relaxed))
	for _, f := range sol.Relaxed {
		relaxed[f] = true
	}

	plan := &models.Plan{
		ID:              cuid.New(),
		CreatedAt:       time.Now().UTC(),
		Entries:         entries,
		DailyTotals:     make(map[int]models.NutrientTotals),
		WeeklyTotals:    make(models.NutrientTotals),
		Budget:          set.Budget,
		Objective:       sol.Objective,
		RelaxedFamilies: append([]models.Family(nil), sol.Relaxed...),
		Suboptimal:      sol.Suboptimal,
		Cancelled:       sol.Cancelled,
		Stats:           sol.Stats,
	}

	var broken []string
	for i := range set.Constraints {
		con := &set.Constraints[i]
		v := con.Eval(selected)
		check := models.ConstraintCheck{
			Name:      con.Name,
			Family:    con.Family,
			Hard:      con.Priority.Hard,
			Relaxed:   con.Priority.Hard && relaxed[con.Family],
			Value:     v,
			Lo:        con.Lo,
			Hi:        con.Hi,
			Violation: con.Violation(v),
			Passed:    con.Satisfied(v),
		}
		plan.Checks = append(plan.Checks, check)
		if check.Passed {
			continue
		}
		if check.Hard && !check.Relaxed {
			broken = append(broken, con.Name)
			continue
		}
		plan.Violations = append(plan.Violations, models.Violation{
			Name:      con.Name,
			Family:    con.Family,
			Magnitude: check.Violation,
			Relaxed:   check.Relaxed,
		})
	}
	if len(broken) > 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrHardViolation, strings.Join(broken, ", "))
	}

	summarize(plan, set)
	return plan, nil
}

// entriesOf reads one selected meal per slot from the assignment and checks
// it is eligible there.
func entriesOf(set *constraints.Set, assign map[constraints.VarKey]bool) ([]models.PlanEntry, map[constraints.VarKey]bool, error) {
	bySlot := make(map[models.Slot][]string)
	for k, on := range assign {
		if on {
			bySlot[k.Slot] = append(bySlot[k.Slot], k.MealID)
		}
	}

	selected := make(map[constraints.VarKey]bool, set.Grid.Len())
	entries := make([]models.PlanEntry, 0, set.Grid.Len())
	for i, slot := range set.Grid.Slots() {
		ids := bySlot[slot]
		if len(ids) != 1 {
			return nil, nil, fmt.Errorf("%w: slot %s has %d meals assigned", models.ErrHardViolation, slot, len(ids))
		}
		var meal *models.MealRecord
		for _, m := range set.Eligible[i] {
			if m.ID == ids[0] {
				meal = m
				break
			}
		}
		if meal == nil {
			return nil, nil, fmt.Errorf("%w: meal %s is not eligible for slot %s", models.ErrHardViolation, ids[0], slot)
		}
		selected[constraints.VarKey{Slot: slot, MealID: meal.ID}] = true

		nutrition := make(map[models.Nutrient]float64, len(meal.Nutrition))
		for n, v := range meal.Nutrition {
			nutrition[n] = v
		}
		entries = append(entries, models.PlanEntry{
			Slot:       slot,
			MealID:     meal.ID,
			Restaurant: meal.Restaurant,
			Meal:       meal.Name,
			Price:      meal.Price,
			Nutrition:  nutrition,
		})
	}
	for slot := range bySlot {
		if !set.Grid.Has(slot) {
			return nil, nil, fmt.Errorf("%w: slot %s is not in scope", models.ErrHardViolation, slot)
		}
	}
	return entries, selected, nil
}

func summarize(plan *models.Plan, set *constraints.Set) {
	for _, e := range plan.Entries {
		plan.TotalCost += e.Price
		day := plan.DailyTotals[e.Slot.Day]
		if day == nil {
			day = make(models.NutrientTotals)
			plan.DailyTotals[e.Slot.Day] = day
		}
		for n, v := range e.Nutrition {
			day[n] += v
			plan.WeeklyTotals[n] += v
		}
	}
	if plan.Budget > 0 {
		plan.BudgetUsed = 100 * plan.TotalCost / plan.Budget
	}
	if days := len(set.Grid.Days()); days > 0 {
		plan.AvgCalories = plan.WeeklyTotals[models.Calories] / float64(days)
		plan.AvgProtein = plan.WeeklyTotals[models.Protein] / float64(days)
	}
}
