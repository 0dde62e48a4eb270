package assembler_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/mealplanner/internal/assembler"
	"github.com/chrisdamba/mealplanner/internal/catalog/catalogtest"
	"github.com/chrisdamba/mealplanner/internal/constraints"
	"github.com/chrisdamba/mealplanner/internal/models"
)

func ptr(v float64) *float64 { return &v }

func buildSet(t *testing.T, p *models.Preferences) *constraints.Set {
	c := catalogtest.MustLoad(t,
		catalogtest.Record("Alpha", "Bowl", 8, 650, 30),
		catalogtest.Record("Alpha", "Soup", 5, 300, 12),
		catalogtest.Record("Beta", "Salad", 6, 250, 8, models.TagContainsNuts),
	)
	grid, err := p.Grid()
	require.NoError(t, err)
	set, err := constraints.NewBuilder(c).Build(grid, p)
	require.NoError(t, err)
	return set
}

func twoSlots() *models.Preferences {
	p := models.DefaultPreferences()
	p.SlotsInScope = []models.Slot{{Day: 1, Meal: models.Lunch}, {Day: 1, Meal: models.Dinner}}
	return p
}

func TestAssembleNumbersVariables(t *testing.T) {
	set := buildSet(t, twoSlots())
	m, err := assembler.Assemble(set)
	require.NoError(t, err)

	assert.Equal(t, 6, m.NumSelection)
	assert.Len(t, m.Vars, 6, "no soft constraints, no penalty variables")
	require.Len(t, m.SlotVars, 2)
	assert.Equal(t, []int{0, 1, 2}, m.SlotVars[0])
	assert.Equal(t, []int{3, 4, 5}, m.SlotVars[1])
	assert.Equal(t, "Bowl", m.Vars[0].Meal.Name)
	assert.Equal(t, 8.0, m.Vars[0].Cost)

	idx, ok := m.Var(m.Vars[4].Key)
	require.True(t, ok)
	assert.Equal(t, 4, idx)

	var eq, ge, le int
	for _, r := range m.Rows {
		switch r.Sense {
		case assembler.EQ:
			eq++
		case assembler.GE:
			ge++
		case assembler.LE:
			le++
		}
	}
	assert.Equal(t, 2, eq, "one equality per slot")
	assert.Equal(t, 1, ge, "ordering rule")
	assert.Equal(t, 4, le, "budget plus three uniqueness rows")
}

func TestAssembleSoftConstraintGetsPenalty(t *testing.T) {
	p := twoSlots()
	p.MacroTargets = map[models.Nutrient]models.MacroTarget{
		models.Protein: {Target: 40, Tolerance: 0.1, Weight: ptr(3)},
	}
	m, err := assembler.Assemble(buildSet(t, p))
	require.NoError(t, err)

	require.Len(t, m.Vars, m.NumSelection+1)
	pen := m.Vars[m.NumSelection]
	assert.Equal(t, assembler.Penalty, pen.Kind)
	assert.Equal(t, 3.0, pen.Cost)
	assert.Equal(t, models.FamilyMacroTarget, m.Constraint(pen.Constraint).Family)

	var rows []assembler.Row
	for _, r := range m.Rows {
		if r.Constraint == pen.Constraint {
			rows = append(rows, r)
		}
	}
	require.Len(t, rows, 2)
	last := func(r assembler.Row) assembler.Entry { return r.Entries[len(r.Entries)-1] }
	assert.Equal(t, assembler.GE, rows[0].Sense)
	assert.Equal(t, assembler.Entry{Var: pen.Index, Coef: 1}, last(rows[0]))
	assert.Equal(t, assembler.LE, rows[1].Sense)
	assert.Equal(t, assembler.Entry{Var: pen.Index, Coef: -1}, last(rows[1]))
}

func TestAssembleEmptySlot(t *testing.T) {
	p := twoSlots()
	p.DietaryFilters = []models.DietaryFilter{models.FilterVegan}
	_, err := assembler.Assemble(buildSet(t, p))
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrInfeasible))

	var ie *models.InfeasibleModelError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, []models.Slot{{Day: 1, Meal: models.Lunch}, {Day: 1, Meal: models.Dinner}}, ie.Slots)
	assert.Contains(t, err.Error(), "1:lunch")
}

func TestAssembleUnknownVariable(t *testing.T) {
	set := buildSet(t, twoSlots())
	set.Constraints = append(set.Constraints, constraints.Constraint{
		Name:     "broken",
		Family:   models.FamilyNutrientBound,
		Priority: constraints.Hard(),
		Terms:    []constraints.Term{{Key: constraints.VarKey{Slot: models.Slot{Day: 7, Meal: models.Dinner}, MealID: "nope"}, Coef: 1}},
		Lo:       0,
		Hi:       1,
	})
	_, err := assembler.Assemble(set)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestEvaluate(t *testing.T) {
	p := twoSlots()
	p.MacroTargets = map[models.Nutrient]models.MacroTarget{
		models.Protein: {Target: 40, Tolerance: 0, Weight: ptr(2)},
	}
	m, err := assembler.Assemble(buildSet(t, p))
	require.NoError(t, err)

	// Bowl at lunch, Soup at dinner: 650 > 300 kcal, protein 42.
	ev := m.Evaluate([]int{0, 4})
	assert.True(t, ev.HardFeasible)
	assert.InDelta(t, 13.0, ev.Cost, 1e-9)
	assert.InDelta(t, 4.0, ev.Penalty, 1e-9)
	assert.InDelta(t, 17.0, ev.Objective, 1e-9)

	// Soup at lunch, Bowl at dinner breaks the ordering rule.
	ev = m.Evaluate([]int{1, 3})
	assert.False(t, ev.HardFeasible)

	// Bowl twice breaks uniqueness.
	ev = m.Evaluate([]int{0, 3})
	assert.False(t, ev.HardFeasible)
}

func TestChoice(t *testing.T) {
	m, err := assembler.Assemble(buildSet(t, twoSlots()))
	require.NoError(t, err)

	x := make([]float64, len(m.Vars))
	x[1], x[5] = 1, 1
	choice, ok := m.Choice(x)
	require.True(t, ok)
	assert.Equal(t, []int{1, 5}, choice)

	x[2] = 1
	_, ok = m.Choice(x)
	assert.False(t, ok)
}
