package assembler

// Evaluation of an integral assignment.
type Evaluation struct {
	// Cost is the selection part of the objective; Penalty the weighted soft
	// violations. Objective is their sum.
	Cost      float64
	Penalty   float64
	Objective float64

	// Per constraint of the set.
	Values     []float64
	Violations []float64

	// HardFeasible is false when any hard constraint is violated.
	HardFeasible bool
}

// Evaluate scores the assignment choice, where choice[i] is the selection
// variable chosen for slot i. Penalties take their smallest feasible value.
func (m *Model) Evaluate(choice []int) Evaluation {
	selected := make([]bool, m.NumSelection)
	ev := Evaluation{
		Values:       make([]float64, len(m.Set.Constraints)),
		Violations:   make([]float64, len(m.Set.Constraints)),
		HardFeasible: true,
	}
	for _, v := range choice {
		selected[v] = true
		ev.Cost += m.Vars[v].Cost
	}
	for ci := range m.Set.Constraints {
		con := &m.Set.Constraints[ci]
		var sum float64
		for _, e := range m.Terms[ci] {
			if selected[e.Var] {
				sum += e.Coef
			}
		}
		ev.Values[ci] = sum
		ev.Violations[ci] = con.Violation(sum)
		if con.Priority.Hard {
			if !con.Satisfied(sum) {
				ev.HardFeasible = false
			}
			continue
		}
		ev.Penalty += con.Priority.Weight * ev.Violations[ci]
	}
	ev.Objective = ev.Cost + ev.Penalty
	return ev
}

// Choice converts a 0/1 selection vector into one variable per slot. It
// returns false when some slot does not have exactly one variable at 1.
func (m *Model) Choice(x []float64) ([]int, bool) {
	choice := make([]int, len(m.SlotVars))
	for i, vars := range m.SlotVars {
		count := 0
		for _, v := range vars {
			if x[v] > 0.5 {
				choice[i] = v
				count++
			}
		}
		if count != 1 {
			return nil, false
		}
	}
	return choice, true
}
