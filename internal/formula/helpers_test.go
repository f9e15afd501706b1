package formula_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/symgrad/internal/formula"
)

const (
	epsilonGrad = 1e-6
	tolerance   = 1e-5 // Relative tolerance for central differences in float64.
)

// evalExpr compiles e against bindings and evaluates it once.
func evalExpr(t *testing.T, e formula.Expr, bindings []int, params []float64, args ...[]float64) []float64 {
	t.Helper()
	prog, err := formula.Compile[float64](e, bindings)
	require.NoError(t, err)

	out := make([]float64, prog.Dim())
	require.NoError(t, prog.Check(params, out, args...))
	prog.Eval(params, out, args...)
	return out
}

// numericalGrad estimates ∂<f, g>/∂v by central differences, where v is the
// variable bound at position pos.
func numericalGrad(t *testing.T, f formula.Expr, bindings []int, pos int, params []float64, args [][]float64, g []float64) []float64 {
	t.Helper()
	prog, err := formula.Compile[float64](f, bindings)
	require.NoError(t, err)

	out := make([]float64, prog.Dim())
	objective := func() float64 {
		prog.Eval(params, out, args...)
		var s float64
		for k := range out {
			s += out[k] * g[k]
		}
		return s
	}

	x := args[pos]
	grad := make([]float64, len(x))
	for k := range x {
		original := x[k]
		x[k] = original + epsilonGrad
		fPlus := objective()
		x[k] = original - epsilonGrad
		fMinus := objective()
		x[k] = original
		grad[k] = (fPlus - fMinus) / (2 * epsilonGrad)
	}
	return grad
}

// checkGrad compares Grad(f, v, G) with central differences of <f, G> for a
// fresh incoming adjoint variable G bound after the existing arguments.
func checkGrad(t *testing.T, f formula.Expr, v formula.Var, bindings []int, params []float64, args [][]float64, g []float64) {
	t.Helper()
	a := f.Arena()
	gIndex := 0
	for _, idx := range bindings {
		gIndex = max(gIndex, idx+1)
	}
	gradIn := a.Var(formula.X(gIndex, f.Dim()))
	df := formula.Grad(f, v, gradIn)
	require.NoError(t, df.Err())
	require.Equal(t, v.Dim, df.Dim())

	pos := -1
	for i, idx := range bindings {
		if idx == v.Index {
			pos = i
			break
		}
	}
	require.GreaterOrEqual(t, pos, 0, "variable %s not bound", v)

	gradBindings := append(append([]int(nil), bindings...), gIndex)
	gradArgs := append(append([][]float64(nil), args...), g)
	got := evalExpr(t, df, gradBindings, params, gradArgs...)
	want := numericalGrad(t, f, bindings, pos, params, args, g)

	for k := range want {
		delta := tolerance * max(1, math.Abs(want[k]))
		require.InDelta(t, want[k], got[k], delta, "component %d of %s", k, df)
	}
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

// randVec returns n values in [lo, hi).
func randVec(r *rand.Rand, n int, lo, hi float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = lo + (hi-lo)*r.Float64()
	}
	return v
}
