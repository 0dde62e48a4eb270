// Package assembler turns a compiled constraint set into a numbered linear
// model: binary selection variables, one continuous penalty variable per soft
// constraint, the objective vector and one-sided rows.
package assembler

import (
	"github.com/chrisdamba/mealplanner/internal/constraints"
	"github.com/chrisdamba/mealplanner/internal/models"
)

// Kind of a model variable.
type Kind int

const (
	// Selection variables are binary: meal assigned to slot.
	Selection Kind = iota
	// Penalty variables are continuous and >= 0: violation of a soft constraint.
	Penalty
)

type Variable struct {
	Index int
	Kind  Kind

	// Selection only.
	Key  constraints.VarKey
	Slot int
	Meal *models.MealRecord

	// Penalty only: index into Set.Constraints.
	Constraint int

	Cost float64
}

// Sense of a row.
type Sense int

const (
	GE Sense = iota
	LE
	EQ
)

func (s Sense) String() string {
	switch s {
	case GE:
		return ">="
	case LE:
		return "<="
	}
	return "="
}

// Entry is one nonzero coefficient.
type Entry struct {
	Var  int
	Coef float64
}

// Row is one-sided: sum(Entries) Sense RHS.
type Row struct {
	Constraint int
	Entries    []Entry
	Sense      Sense
	RHS        float64
}

// Model is built once per solve attempt and never shared between requests.
type Model struct {
	Set  *constraints.Set
	Vars []Variable
	Rows []Row

	// SlotVars[i] are the selection variables of Grid.At(i), lowest key first.
	SlotVars [][]int

	// NumSelection selection variables come first, penalties after.
	NumSelection int

	// Terms[c] are the selection entries of Set.Constraints[c].
	Terms [][]Entry

	// PenaltyVar[c] is the penalty variable of a soft constraint, -1 for hard.
	PenaltyVar []int

	index map[constraints.VarKey]int
}

// Var returns the selection variable of key.
func (m *Model) Var(key constraints.VarKey) (int, bool) {
	i, ok := m.index[key]
	return i, ok
}

// Objective returns the cost vector over all variables.
func (m *Model) Objective() []float64 {
	c := make([]float64, len(m.Vars))
	for i, v := range m.Vars {
		c[i] = v.Cost
	}
	return c
}

// Constraint returns Set.Constraints[c].
func (m *Model) Constraint(c int) *constraints.Constraint {
	return &m.Set.Constraints[c]
}
