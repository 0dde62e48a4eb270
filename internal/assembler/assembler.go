package assembler

import (
	"fmt"
	"math"

	"github.com/chrisdamba/mealplanner/internal/constraints"
	"github.com/chrisdamba/mealplanner/internal/models"
)

// Assemble numbers the variables of set and lowers every constraint to
// one-sided rows. It fails with *models.InfeasibleModelError when a slot has no
// eligible meal, and with a plain error when a constraint references a variable
// the set does not define.
func Assemble(set *constraints.Set) (*Model, error) {
	var empty []models.Slot
	for i, meals := range set.Eligible {
		if len(meals) == 0 {
			empty = append(empty, set.Grid.At(i))
		}
	}
	if len(empty) > 0 {
		return nil, &models.InfeasibleModelError{
			Slots:  empty,
			Reason: "no eligible meals after dietary filters",
		}
	}

	m := &Model{
		Set:        set,
		SlotVars:   make([][]int, set.Grid.Len()),
		Terms:      make([][]Entry, len(set.Constraints)),
		PenaltyVar: make([]int, len(set.Constraints)),
		index:      make(map[constraints.VarKey]int),
	}
	for i, meals := range set.Eligible {
		slot := set.Grid.At(i)
		for _, meal := range meals {
			key := constraints.VarKey{Slot: slot, MealID: meal.ID}
			idx := len(m.Vars)
			m.Vars = append(m.Vars, Variable{
				Index: idx,
				Kind:  Selection,
				Key:   key,
				Slot:  i,
				Meal:  meal,
				Cost:  set.Objective[key],
			})
			m.index[key] = idx
			m.SlotVars[i] = append(m.SlotVars[i], idx)
		}
	}
	m.NumSelection = len(m.Vars)

	for ci := range set.Constraints {
		con := &set.Constraints[ci]
		entries := make([]Entry, 0, len(con.Terms))
		for _, t := range con.Terms {
			idx, ok := m.index[t.Key]
			if !ok {
				return nil, fmt.Errorf("assembler: constraint %s references unknown variable %s/%s", con.Name, t.Key.Slot, t.Key.MealID)
			}
			entries = append(entries, Entry{Var: idx, Coef: t.Coef})
		}
		m.Terms[ci] = entries
		m.PenaltyVar[ci] = -1
		if !con.Priority.Hard {
			p := len(m.Vars)
			m.Vars = append(m.Vars, Variable{
				Index:      p,
				Kind:       Penalty,
				Constraint: ci,
				Cost:       con.Priority.Weight,
			})
			m.PenaltyVar[ci] = p
		}
		m.lower(ci, entries)
	}

	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

// lower emits the rows of constraint ci. Only structural slot rows stay
// equalities; every other interval becomes a >= row and a <= row.
func (m *Model) lower(ci int, entries []Entry) {
	con := &m.Set.Constraints[ci]
	if con.Family == models.FamilyOneMealPerSlot {
		m.Rows = append(m.Rows, Row{Constraint: ci, Entries: entries, Sense: EQ, RHS: con.Lo})
		return
	}
	p := m.PenaltyVar[ci]
	if !math.IsInf(con.Lo, -1) {
		row := Row{Constraint: ci, Entries: entries, Sense: GE, RHS: con.Lo}
		if p >= 0 {
			row.Entries = withEntry(entries, Entry{Var: p, Coef: 1})
		}
		m.Rows = append(m.Rows, row)
	}
	if !math.IsInf(con.Hi, 1) {
		row := Row{Constraint: ci, Entries: entries, Sense: LE, RHS: con.Hi}
		if p >= 0 {
			row.Entries = withEntry(entries, Entry{Var: p, Coef: -1})
		}
		m.Rows = append(m.Rows, row)
	}
}

func withEntry(entries []Entry, e Entry) []Entry {
	out := make([]Entry, len(entries), len(entries)+1)
	copy(out, entries)
	return append(out, e)
}

// check verifies that every selection variable sits in its slot row.
func (m *Model) check() error {
	seen := make([]bool, m.NumSelection)
	for _, r := range m.Rows {
		if m.Set.Constraints[r.Constraint].Family != models.FamilyOneMealPerSlot {
			continue
		}
		for _, e := range r.Entries {
			seen[e.Var] = true
		}
	}
	for i, ok := range seen {
		if !ok {
			return fmt.Errorf("assembler: variable %s/%s has no slot row", m.Vars[i].Key.Slot, m.Vars[i].Key.MealID)
		}
	}
	return nil
}
