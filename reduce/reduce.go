// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package reduce evaluates compiled formulas over point sets on the CPU.
//
// Example:
//
//	prog, _ := formula.Compile[float32](k, []int{0, 1, 2})
//	out := make([]float32, nx*prog.Dim())
//	err := reduce.SumJ(prog, nx, ny, params, out, [][]float32{xs, ys, bs}, reduce.DefaultConfig())
package reduce

import (
	"github.com/born-ml/symgrad/internal/formula"
	"github.com/born-ml/symgrad/internal/parallel"
	"github.com/born-ml/symgrad/internal/reduce"
)

// Config controls how work is spread over goroutines.
type Config = parallel.Config

// DefaultConfig returns a Config using every CPU.
func DefaultConfig() Config {
	return parallel.DefaultConfig()
}

// Sequential returns a Config that runs on the calling goroutine.
func Sequential() Config {
	return parallel.Sequential()
}

// ErrSummationVar is returned by Map for formulas that read a j-variable.
var ErrSummationVar = reduce.ErrSummationVar

// Map evaluates prog once per point i and writes out[i*Dim : (i+1)*Dim].
func Map[T formula.Float](prog *formula.Program[T], nx int, params, out []T, args [][]T, cfg Config) error {
	return reduce.Map(prog, nx, params, out, args, cfg)
}

// SumJ computes out_i = Σ_j F(x_i, y_j).
func SumJ[T formula.Float](prog *formula.Program[T], nx, ny int, params, out []T, args [][]T, cfg Config) error {
	return reduce.SumJ(prog, nx, ny, params, out, args, cfg)
}
