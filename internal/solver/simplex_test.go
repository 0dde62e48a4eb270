package solver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSimplexOptimum(t *testing.T) {
	// min -x - 2y s.t. x + y + s1 = 4, x + 3y + s2 = 6.
	a := mat.NewDense(2, 4, []float64{
		1, 1, 1, 0,
		1, 3, 0, 1,
	})
	opt, z, err := simplex([]float64{-1, -2, 0, 0}, a, []float64{4, 6}, 1e-10, nil)
	require.NoError(t, err)
	assert.InDelta(t, -5.0, opt, 1e-9)
	assert.InDelta(t, 3.0, z[0], 1e-9)
	assert.InDelta(t, 1.0, z[1], 1e-9)
}

// Beale's example cycles under the largest coefficient rule.
func TestSimplexDegenerateTerminates(t *testing.T) {
	a := mat.NewDense(3, 7, []float64{
		1, 0, 0, 0.25, -8, -1, 9,
		0, 1, 0, 0.5, -12, -0.5, 3,
		0, 0, 1, 0, 0, 1, 0,
	})
	c := []float64{0, 0, 0, -0.75, 20, -0.5, 6}
	opt, _, err := simplex(c, a, []float64{0, 0, 1}, 1e-10, nil)
	require.NoError(t, err)
	assert.InDelta(t, -0.05, opt, 1e-9)
}

func TestSimplexRedundantAndTallRows(t *testing.T) {
	a := mat.NewDense(3, 2, []float64{
		1, 1,
		2, 2,
		1, 0,
	})
	opt, z, err := simplex([]float64{1, 2}, a, []float64{1, 2, 1}, 1e-10, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, opt, 1e-9)
	assert.InDelta(t, 1.0, z[0], 1e-9)
	assert.InDelta(t, 0.0, z[1], 1e-9)
}

func TestSimplexInfeasible(t *testing.T) {
	a := mat.NewDense(2, 1, []float64{1, 1})
	_, _, err := simplex([]float64{1}, a, []float64{1, 2}, 1e-10, nil)
	assert.True(t, errors.Is(err, errInfeasible))
}

func TestSimplexUnbounded(t *testing.T) {
	a := mat.NewDense(1, 2, []float64{1, -1})
	_, _, err := simplex([]float64{-1, 0}, a, []float64{0}, 1e-10, nil)
	assert.True(t, errors.Is(err, errUnbounded))
}

func TestSimplexStops(t *testing.T) {
	// Every row needs its own pivot, more than checkEvery in total.
	const n = 2 * checkEvery
	a := mat.NewDense(n, 2*n, nil)
	b := make([]float64, n)
	c := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		a.Set(i, i, 1)
		a.Set(i, n+i, 1)
		b[i] = 1
		c[i] = -1
	}
	polls := 0
	_, _, err := simplex(c, a, b, 1e-10, func() bool {
		polls++
		return true
	})
	assert.True(t, errors.Is(err, errInterrupted))
	assert.Equal(t, 1, polls)

	opt, _, err := simplex(c, a, b, 1e-10, func() bool { return false })
	require.NoError(t, err)
	assert.InDelta(t, -float64(n), opt, 1e-9)
}
