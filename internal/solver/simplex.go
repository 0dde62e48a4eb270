package solver

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	errInfeasible  = errors.New("solver: linear relaxation is infeasible")
	errUnbounded   = errors.New("solver: linear relaxation is unbounded")
	errInterrupted = errors.New("solver: linear relaxation interrupted")
	errIterations  = errors.New("solver: simplex iteration limit reached")
)

const (
	// checkEvery pivots pass between two polls of the stop function.
	checkEvery = 32

	// pivotTol is the smallest tableau entry accepted as a pivot.
	pivotTol = 1e-9

	// feasTol is the phase one residual, relative to the largest right hand
	// side, below which the problem counts as feasible.
	feasTol = 1e-9
)

// tableau is a dense simplex tableau for min c·z s.t. A z = b, z >= 0, b >= 0.
// Columns [n, n+m) hold the phase one artificials and the last column the
// right hand side. obj holds the reduced costs, its last entry minus the
// objective value.
type tableau struct {
	m, n   int
	rows   [][]float64
	obj    []float64
	basis  []int
	pivots int
	limit  int
	stop   func() bool
}

func newTableau(a *mat.Dense, b []float64, stop func() bool) *tableau {
	m, n := a.Dims()
	w := n + m + 1
	t := &tableau{
		m:     m,
		n:     n,
		rows:  make([][]float64, m),
		obj:   make([]float64, w),
		basis: make([]int, m),
		limit: 50*(m+n) + 1000,
		stop:  stop,
	}
	for i := 0; i < m; i++ {
		row := make([]float64, w)
		copy(row, a.RawRowView(i))
		row[n+i] = 1
		row[w-1] = b[i]
		t.rows[i] = row
		t.basis[i] = n + i
	}
	return t
}

// simplex minimizes c·z subject to A z = b, z >= 0 where every b[i] >= 0.
// Entering and leaving columns follow Bland's rule, so degenerate problems
// cannot cycle, and the pivot count is capped. stop, when set, is polled every
// checkEvery pivots; a true result aborts with errInterrupted.
func simplex(c []float64, a *mat.Dense, b []float64, tol float64, stop func() bool) (float64, []float64, error) {
	t := newTableau(a, b, stop)
	last := len(t.obj) - 1

	// Phase one minimizes the sum of the artificials.
	for _, row := range t.rows {
		floats.Sub(t.obj[:t.n], row[:t.n])
		t.obj[last] -= row[last]
	}
	if err := t.iterate(t.n, tol); err != nil {
		return 0, nil, err
	}
	if -t.obj[last] > feasTol*math.Max(1, floats.Max(append([]float64{0}, b...))) {
		return 0, nil, errInfeasible
	}
	t.dropArtificials()

	for j := range t.obj {
		t.obj[j] = 0
	}
	copy(t.obj, c)
	for i, row := range t.rows {
		if k := t.basis[i]; k < t.n && c[k] != 0 {
			floats.AddScaled(t.obj, -c[k], row)
		}
	}
	for j := t.n; j < last; j++ {
		t.obj[j] = 0
	}
	if err := t.iterate(t.n, tol); err != nil {
		return 0, nil, err
	}

	z := make([]float64, t.n)
	for i, row := range t.rows {
		if k := t.basis[i]; k < t.n {
			z[k] = math.Max(row[last], 0)
		}
	}
	return floats.Dot(c, z), z, nil
}

// iterate pivots until no column below cols has a negative reduced cost.
func (t *tableau) iterate(cols int, tol float64) error {
	last := len(t.obj) - 1
	costTol := tol * math.Max(1, floats.Norm(t.obj[:cols], math.Inf(1)))
	for {
		enter := -1
		for j := 0; j < cols; j++ {
			if t.obj[j] < -costTol {
				enter = j
				break
			}
		}
		if enter < 0 {
			return nil
		}

		leave, best := -1, 0.0
		for i, row := range t.rows {
			if row[enter] <= pivotTol {
				continue
			}
			r := math.Max(row[last], 0) / row[enter]
			switch {
			case leave < 0, r < best-1e-12*math.Max(1, best):
				leave, best = i, r
			case r <= best+1e-12*math.Max(1, best) && t.basis[i] < t.basis[leave]:
				leave, best = i, math.Min(r, best)
			}
		}
		if leave < 0 {
			return errUnbounded
		}
		t.pivot(leave, enter)

		t.pivots++
		if t.pivots >= t.limit {
			return errIterations
		}
		if t.stop != nil && t.pivots%checkEvery == 0 && t.stop() {
			return errInterrupted
		}
	}
}

// dropArtificials pivots every artificial left in the basis at zero onto a
// structural column. Rows without any usable entry are redundant and keep
// their artificial, which never re-enters.
func (t *tableau) dropArtificials() {
	for i, row := range t.rows {
		if t.basis[i] < t.n {
			continue
		}
		for j := 0; j < t.n; j++ {
			if math.Abs(row[j]) > pivotTol {
				t.pivot(i, j)
				break
			}
		}
	}
}

func (t *tableau) pivot(r, c int) {
	pr := t.rows[r]
	floats.Scale(1/pr[c], pr)
	pr[c] = 1
	for i, row := range t.rows {
		if i == r || row[c] == 0 {
			continue
		}
		floats.AddScaled(row, -row[c], pr)
		row[c] = 0
	}
	if t.obj[c] != 0 {
		floats.AddScaled(t.obj, -t.obj[c], pr)
		t.obj[c] = 0
	}
	t.basis[r] = c
}
