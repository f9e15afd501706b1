package formula_test

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/symgrad/internal/formula"
)

func TestCompile_UnboundVar(t *testing.T) {
	a := formula.NewArena()
	f := a.SqDist(a.Var(formula.X(0, 2)), a.Var(formula.Y(4, 2)))

	_, err := formula.Compile[float64](f, []int{0, 1, 2})
	require.ErrorIs(t, err, formula.ErrUnboundVar)
	assert.Contains(t, err.Error(), "Var<4,2,j>")
}

func TestCompile_BindingConflict(t *testing.T) {
	a := formula.NewArena()
	f := a.Add(a.Var(formula.X(0, 2)), a.Var(formula.Y(0, 2)))

	_, err := formula.Compile[float64](f, []int{0})
	require.ErrorIs(t, err, formula.ErrBindingConflict)
}

func TestCompile_FirstPositionWins(t *testing.T) {
	a := formula.NewArena()
	f := a.Var(formula.X(1, 2))

	prog, err := formula.Compile[float64](f, []int{3, 1, 1})
	require.NoError(t, err)

	slots := prog.Slots()
	require.Len(t, slots, 3)
	assert.False(t, slots[0].Used)
	assert.Equal(t, formula.Slot{Var: formula.X(1, 2), Used: true}, slots[1])
	assert.False(t, slots[2].Used)
	assert.Equal(t, []int{3, 1, 1}, prog.Bindings())

	out := make([]float64, 2)
	prog.Eval(nil, out, nil, []float64{5, 6}, []float64{7, 8})
	assert.Equal(t, []float64{5, 6}, out)
}

func TestCompile_RejectsInvalid(t *testing.T) {
	_, err := formula.Compile[float64](formula.Expr{}, nil)
	assert.ErrorIs(t, err, formula.ErrInvalidExpr)
}

func TestProgram_Introspection(t *testing.T) {
	a := formula.NewArena()
	x := a.Var(formula.X(0, 3))
	f := a.Scal(a.Constant(formula.P(2)), a.SqNorm2(x))

	prog, err := formula.Compile[float64](f, []int{0})
	require.NoError(t, err)

	assert.Equal(t, 1, prog.Dim())
	assert.Equal(t, 3, prog.ParamCount())
	// Var(3) + Scalprod(1), shared x emitted once, + Constant(1) + Scal(1).
	assert.Equal(t, 6, prog.ScratchSize())
	assert.Equal(t, f.String(), prog.String())
}

func TestProgram_Check(t *testing.T) {
	a := formula.NewArena()
	f := a.Scal(a.Constant(formula.P(1)), a.Var(formula.X(0, 3)))
	prog, err := formula.Compile[float64](f, []int{0})
	require.NoError(t, err)

	params := []float64{0, 2}
	out := make([]float64, 3)
	arg := []float64{1, 2, 3}

	require.NoError(t, prog.Check(params, out, arg))
	assert.ErrorIs(t, prog.Check(params, out[:2], arg), formula.ErrBufferSize)
	assert.ErrorIs(t, prog.Check(params[:1], out, arg), formula.ErrBufferSize)
	assert.ErrorIs(t, prog.Check(params, out, arg[:2]), formula.ErrBufferSize)
	assert.ErrorIs(t, prog.Check(params, out), formula.ErrBufferSize)
	assert.ErrorIs(t, prog.Check(params, out, arg, arg), formula.ErrBufferSize)

	prog.Eval(params, out, arg)
	assert.Equal(t, []float64{2, 4, 6}, out)
}

func TestEvaluator_NoAllocation(t *testing.T) {
	a := formula.NewArena()
	vx := formula.X(0, 3)
	x, y, b := a.Var(vx), a.Var(formula.Y(1, 3)), a.Var(formula.Y(2, 1))
	k := a.GaussKernel(formula.P(0), x, y, b)
	dk := formula.Grad(k, vx, a.Var(formula.X(3, 1)))

	prog, err := formula.Compile[float64](dk, []int{0, 1, 2, 3})
	require.NoError(t, err)
	ev := prog.NewEvaluator()
	assert.Same(t, prog, ev.Program())

	params := []float64{0.5}
	out := make([]float64, 3)
	args := [][]float64{{1, 2, 3}, {0, 1, 0}, {2}, {1}}
	require.NoError(t, prog.Check(params, out, args...))

	allocs := testing.AllocsPerRun(100, func() {
		ev.Eval(params, out, args...)
	})
	assert.Zero(t, allocs)
}

func TestProgram_Float32(t *testing.T) {
	a := formula.NewArena()
	x, y, b := a.Var(formula.X(0, 2)), a.Var(formula.Y(1, 2)), a.Var(formula.Y(2, 1))
	k := a.GaussKernel(formula.P(0), x, y, b)

	prog, err := formula.Compile[float32](k, []int{0, 1, 2})
	require.NoError(t, err)

	out := make([]float32, 1)
	prog.Eval([]float32{1}, out, []float32{0, 0}, []float32{1, 0}, []float32{2})
	assert.InDelta(t, 0.7357589, out[0], 1e-6)
}

func TestProgram_IntegerPowers(t *testing.T) {
	a := formula.NewArena()
	s := a.Var(formula.X(0, 1))

	for _, m := range []int{-3, -1, 0, 1, 2, 5} {
		prog, err := formula.Compile[float64](a.Pow(s, m), []int{0})
		require.NoError(t, err)
		out := make([]float64, 1)
		prog.Eval(nil, out, []float64{1.5})
		assert.InDelta(t, math.Pow(1.5, float64(m)), out[0], 1e-12, "m=%d", m)
	}
}

func TestProgram_FloatingPointDomain(t *testing.T) {
	a := formula.NewArena()
	s := a.Var(formula.X(0, 1))

	out := evalExpr(t, a.Log(s), []int{0}, nil, []float64{-1})
	assert.True(t, math.IsNaN(out[0]))

	out = evalExpr(t, a.Log(s), []int{0}, nil, []float64{0})
	assert.True(t, math.IsInf(out[0], -1))

	out = evalExpr(t, a.Inv(s), []int{0}, nil, []float64{0})
	assert.True(t, math.IsInf(out[0], 1))

	// Powf is only defined for a positive base.
	out = evalExpr(t, a.Sqrt(s), []int{0}, nil, []float64{-4})
	assert.True(t, math.IsNaN(out[0]))
}

func TestProgram_ConcurrentEvaluators(t *testing.T) {
	a := formula.NewArena()
	x, y := a.Var(formula.X(0, 2)), a.Var(formula.Y(1, 2))
	prog, err := formula.Compile[float64](a.SqDist(x, y), []int{0, 1})
	require.NoError(t, err)

	const workers = 8
	results := make([]float64, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ev := prog.NewEvaluator()
			out := make([]float64, 1)
			ev.Eval(nil, out, []float64{float64(w), 0}, []float64{0, 0})
			results[w] = out[0]
		}(w)
	}
	wg.Wait()

	for w, got := range results {
		assert.Equal(t, float64(w*w), got)
	}
}

func BenchmarkEval_GaussKernel(b *testing.B) {
	a := formula.NewArena()
	x, y, beta := a.Var(formula.X(0, 3)), a.Var(formula.Y(1, 3)), a.Var(formula.Y(2, 1))
	k := a.GaussKernel(formula.P(0), x, y, beta)

	prog, err := formula.Compile[float32](k, []int{0, 1, 2})
	if err != nil {
		b.Fatal(err)
	}
	ev := prog.NewEvaluator()
	params := []float32{0.5}
	out := make([]float32, 1)
	args := [][]float32{{1, 2, 3}, {0, 1, 0}, {2}}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ev.Eval(params, out, args...)
	}
}

func BenchmarkEval_GaussKernelGrad(b *testing.B) {
	a := formula.NewArena()
	vx := formula.X(0, 3)
	x, y, beta := a.Var(vx), a.Var(formula.Y(1, 3)), a.Var(formula.Y(2, 1))
	k := a.GaussKernel(formula.P(0), x, y, beta)
	dk := formula.Grad(k, vx, a.Var(formula.X(3, 1)))

	prog, err := formula.Compile[float32](dk, []int{0, 1, 2, 3})
	if err != nil {
		b.Fatal(err)
	}
	ev := prog.NewEvaluator()
	params := []float32{0.5}
	out := make([]float32, 3)
	args := [][]float32{{1, 2, 3}, {0, 1, 0}, {2}, {1}}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ev.Eval(params, out, args...)
	}
}

func TestPow_ExponentRange(t *testing.T) {
	a := formula.NewArena()
	vs := formula.X(0, 1)
	s := a.Var(vs)

	for _, m := range []int{math.MinInt, math.MaxInt, formula.MaxExponent + 1, -formula.MaxExponent - 1} {
		p := a.Pow(s, m)
		assert.ErrorIs(t, p.Err(), formula.ErrInvalidExponent, "m=%d", m)
		_, err := formula.Compile[float64](p, []int{0})
		assert.ErrorIs(t, err, formula.ErrInvalidExponent, "m=%d", m)
		assert.ErrorIs(t, formula.Grad(p, vs, a.Var(formula.X(1, 1))).Err(), formula.ErrInvalidExponent)
	}

	// Largest accepted exponents evaluate without overflowing the magnitude.
	for _, m := range []int{formula.MaxExponent, -formula.MaxExponent} {
		out := evalExpr(t, a.Pow(s, m), []int{0}, nil, []float64{1})
		assert.Equal(t, 1.0, out[0], "m=%d", m)
		out = evalExpr(t, a.Pow(s, m), []int{0}, nil, []float64{-1})
		assert.Equal(t, -1.0, out[0], "m=%d", m)
	}

	// The gradient of the largest positive exponent stays in range.
	df := formula.Grad(a.Pow(s, formula.MaxExponent), vs, a.Var(formula.X(1, 1)))
	require.NoError(t, df.Err())
	got := evalExpr(t, df, []int{0, 1}, nil, []float64{1}, []float64{1})
	assert.Equal(t, float64(formula.MaxExponent), got[0])
}
