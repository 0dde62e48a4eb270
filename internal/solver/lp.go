package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/chrisdamba/mealplanner/internal/assembler"
)

// Fixing states of a selection variable at a node.
const (
	free  int8 = -1
	zero  int8 = 0
	fixed int8 = 1
)

// errNumeric marks an LP the simplex could not decide even after the retry.
var errNumeric = errors.New("solver: numerical failure in linear relaxation")

type relaxation struct {
	feasible bool
	bound    float64
	x        []float64 // over all model variables
}

// standardForm is min c·z s.t. A z = b, z >= 0 over the free columns of a node
// plus one slack per inequality row.
type standardForm struct {
	c    []float64
	a    *mat.Dense
	b    []float64
	cols []int // model variable of each structural column
	base float64
}

// buildLP substitutes fixed variables and drops rows left without free
// columns. It reports false when a dropped row is violated by the fixed part.
// With capped set, the row objective <= limit is added.
func buildLP(m *assembler.Model, state []int8, tol float64, capped bool, limit float64) (*standardForm, bool) {
	colOf := make([]int, len(m.Vars))
	var cols []int
	for i := range m.Vars {
		colOf[i] = -1
		if m.Vars[i].Kind == assembler.Penalty || state[i] == free {
			colOf[i] = len(cols)
			cols = append(cols, i)
		}
	}

	var base float64
	for i := 0; i < m.NumSelection; i++ {
		if state[i] == fixed {
			base += m.Vars[i].Cost
		}
	}

	type lpRow struct {
		entries []assembler.Entry
		sense   assembler.Sense
		rhs     float64
	}
	source := m.Rows
	if capped {
		obj := assembler.Row{Constraint: -1, Sense: assembler.LE, RHS: limit}
		for i, v := range m.Vars {
			if v.Cost != 0 {
				obj.Entries = append(obj.Entries, assembler.Entry{Var: i, Coef: v.Cost})
			}
		}
		source = append(append([]assembler.Row(nil), m.Rows...), obj)
	}

	rows := make([]lpRow, 0, len(source))
	slacks := 0
	for _, r := range source {
		rhs := r.RHS
		var live []assembler.Entry
		for _, e := range r.Entries {
			switch {
			case colOf[e.Var] >= 0:
				live = append(live, assembler.Entry{Var: colOf[e.Var], Coef: e.Coef})
			case state[e.Var] == fixed:
				rhs -= e.Coef
			}
		}
		if len(live) == 0 {
			if !constantHolds(r.Sense, rhs, tol) {
				return nil, false
			}
			continue
		}
		if r.Sense != assembler.EQ {
			slacks++
		}
		rows = append(rows, lpRow{entries: live, sense: r.Sense, rhs: rhs})
	}

	n := len(cols) + slacks
	sf := &standardForm{
		c:    make([]float64, n),
		b:    make([]float64, len(rows)),
		cols: cols,
		base: base,
	}
	for j, v := range cols {
		sf.c[j] = m.Vars[v].Cost
	}
	if len(rows) == 0 {
		return sf, true
	}
	sf.a = mat.NewDense(len(rows), n, nil)
	slack := len(cols)
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for _, e := range r.entries {
			sf.a.Set(i, e.Var, sign*e.Coef)
		}
		switch r.sense {
		case assembler.GE:
			sf.a.Set(i, slack, -sign)
			slack++
		case assembler.LE:
			sf.a.Set(i, slack, sign)
			slack++
		}
		sf.b[i] = sign * r.rhs
	}
	return sf, true
}

// constantHolds checks 0 sense rhs for a row with nothing left to vary.
func constantHolds(sense assembler.Sense, rhs, tol float64) bool {
	tol = math.Max(tol, 1e-9) * math.Max(1, math.Abs(rhs))
	switch sense {
	case assembler.GE:
		return rhs <= tol
	case assembler.LE:
		return rhs >= -tol
	}
	return math.Abs(rhs) <= tol
}

// solve runs the simplex on the standard form. A numerical failure is
// retried once with a tighter tolerance before errNumeric is returned.
func (sf *standardForm) solve(tol float64, stop func() bool, retried *bool) (float64, []float64, error) {
	if sf.a == nil {
		return 0, make([]float64, len(sf.c)), nil
	}
	opt, z, err := simplex(sf.c, sf.a, sf.b, tol, stop)
	if decided(err) {
		return opt, z, err
	}
	*retried = true
	opt, z, err = simplex(sf.c, sf.a, sf.b, tol*1e-2, stop)
	if decided(err) {
		return opt, z, err
	}
	return 0, nil, fmt.Errorf("%w: %v", errNumeric, err)
}

// decided reports whether a simplex outcome needs no retry.
func decided(err error) bool {
	return err == nil || errors.Is(err, errInfeasible) || errors.Is(err, errInterrupted)
}

// relax solves the linear relaxation of the node described by state. It
// returns errInterrupted when the search ran out of time mid-solve.
func (e *bbEngine) relax() (relaxation, error) {
	sf, ok := buildLP(e.model, e.state, e.tol, e.capped, e.limit)
	if !ok {
		return relaxation{}, nil
	}
	e.stats.LPSolves++
	retried := false
	opt, z, err := sf.solve(e.tol, e.expired, &retried)
	if retried {
		e.stats.NumericRetries++
	}
	switch {
	case errors.Is(err, errInfeasible):
		return relaxation{}, nil
	case errors.Is(err, errInterrupted):
		return relaxation{}, err
	case err != nil:
		e.stats.NumericFailures++
		return relaxation{}, err
	}

	x := make([]float64, len(e.model.Vars))
	for i := 0; i < e.model.NumSelection; i++ {
		if e.state[i] == fixed {
			x[i] = 1
		}
	}
	for j, v := range sf.cols {
		x[v] = z[j]
	}
	return relaxation{feasible: true, bound: sf.base + opt, x: x}, nil
}
