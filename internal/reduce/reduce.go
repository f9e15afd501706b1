// Package reduce is a reference CPU driver that evaluates a compiled formula
// over point sets.
//
// Argument buffers are flat: the buffer bound to an i-variable of dimension D
// holds nx*D scalars, point i at [i*D, (i+1)*D); a j-variable buffer holds
// ny*D scalars; a parameter-category variable is passed whole to every
// evaluation.
//
// Work is split over i with internal/parallel. Each chunk owns one
// formula.Evaluator, so the per-point loop does not allocate and chunks share
// only read-only inputs.
package reduce

import (
	"errors"
	"fmt"

	"github.com/born-ml/symgrad/internal/formula"
	"github.com/born-ml/symgrad/internal/parallel"
)

// ErrSummationVar is returned by Map for formulas that read a j-variable.
var ErrSummationVar = errors.New("formula reads a summation-indexed variable")

// Map evaluates prog once per point i in [0, nx) and writes the result to
// out[i*Dim : (i+1)*Dim]. The formula must not depend on j-variables.
func Map[T formula.Float](prog *formula.Program[T], nx int, params, out []T, args [][]T, cfg parallel.Config) error {
	slots := prog.Slots()
	for pos, s := range slots {
		if s.Used && s.Var.Cat == formula.SummationIndexed {
			return fmt.Errorf("map: argument %d (%s): %w", pos, s.Var, ErrSummationVar)
		}
	}
	if err := validate(prog, slots, nx, 0, params, out, args); err != nil {
		return fmt.Errorf("map: %w", err)
	}

	dim := prog.Dim()
	parallel.ForChunks(nx, func(start, end int) {
		ev := prog.NewEvaluator()
		views := make([][]T, len(args))
		for i := start; i < end; i++ {
			bind(views, args, slots, i, 0)
			ev.Eval(params, out[i*dim:(i+1)*dim], views...)
		}
	}, cfg)
	return nil
}

// SumJ computes out_i = Σ_j F(x_i, y_j) for i in [0, nx), j in [0, ny).
func SumJ[T formula.Float](prog *formula.Program[T], nx, ny int, params, out []T, args [][]T, cfg parallel.Config) error {
	slots := prog.Slots()
	if err := validate(prog, slots, nx, ny, params, out, args); err != nil {
		return fmt.Errorf("sumj: %w", err)
	}

	dim := prog.Dim()
	parallel.ForChunks(nx, func(start, end int) {
		ev := prog.NewEvaluator()
		views := make([][]T, len(args))
		tmp := make([]T, dim)
		for i := start; i < end; i++ {
			acc := out[i*dim : (i+1)*dim]
			clear(acc)
			for j := 0; j < ny; j++ {
				bind(views, args, slots, i, j)
				ev.Eval(params, tmp, views...)
				for k := range acc {
					acc[k] += tmp[k]
				}
			}
		}
	}, cfg)
	return nil
}

// bind points views at the slices of point i and point j.
func bind[T formula.Float](views, args [][]T, slots []formula.Slot, i, j int) {
	for pos, s := range slots {
		if !s.Used {
			continue
		}
		d := s.Var.Dim
		switch s.Var.Cat {
		case formula.ParallelIndexed:
			views[pos] = args[pos][i*d : (i+1)*d]
		case formula.SummationIndexed:
			views[pos] = args[pos][j*d : (j+1)*d]
		default:
			views[pos] = args[pos]
		}
	}
}

func validate[T formula.Float](prog *formula.Program[T], slots []formula.Slot, nx, ny int, params, out []T, args [][]T) error {
	if nx < 0 || ny < 0 {
		return fmt.Errorf("negative point count (nx=%d, ny=%d): %w", nx, ny, formula.ErrBufferSize)
	}
	if len(args) != len(slots) {
		return fmt.Errorf("got %d argument buffers, need %d: %w", len(args), len(slots), formula.ErrBufferSize)
	}
	if len(params) < prog.ParamCount() {
		return fmt.Errorf("parameters have %d scalars, need %d: %w", len(params), prog.ParamCount(), formula.ErrBufferSize)
	}
	if need := nx * prog.Dim(); len(out) < need {
		return fmt.Errorf("output has %d scalars, need %d: %w", len(out), need, formula.ErrBufferSize)
	}
	for pos, s := range slots {
		if !s.Used {
			continue
		}
		var need int
		switch s.Var.Cat {
		case formula.ParallelIndexed:
			need = nx * s.Var.Dim
		case formula.SummationIndexed:
			need = ny * s.Var.Dim
		default:
			need = s.Var.Dim
		}
		if len(args[pos]) < need {
			return fmt.Errorf("argument %d (%s) has %d scalars, need %d: %w", pos, s.Var, len(args[pos]), need, formula.ErrBufferSize)
		}
	}
	return nil
}
