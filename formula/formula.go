// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package formula provides symbolic kernel formulas and their gradients.
//
// # Overview
//
// A formula is a tree of pointwise operators over variables bound to point
// sets. Formulas are built in an Arena, differentiated symbolically with Grad,
// and flattened into a Program that evaluates one point without allocating.
//
// # Basic Usage
//
//	import "github.com/born-ml/symgrad/formula"
//
//	func main() {
//	    a := formula.NewArena()
//	    x := a.Var(formula.X(0, 3))   // i-indexed point, dim 3
//	    y := a.Var(formula.Y(1, 3))   // j-indexed point, dim 3
//	    b := a.Var(formula.Y(2, 1))   // j-indexed weight
//	    k := a.GaussKernel(formula.P(0), x, y, b)
//
//	    // Gradient with respect to x for an incoming gradient g.
//	    g := a.Var(formula.X(3, 1))
//	    dk := formula.Grad(k, formula.X(0, 3), g)
//
//	    prog, err := formula.Compile[float32](dk, formula.Bindings(dk))
//	    // prog.Eval(params, out, x_i, y_j, b_j, g_i)
//	}
//
// Construction errors are sticky: an invalid operation returns an Expr whose
// Err is set, and Compile rejects it.
package formula

import (
	"github.com/born-ml/symgrad/internal/formula"
)

// Arena stores the nodes of related formulas.
type Arena = formula.Arena

// NewArena creates an empty arena.
func NewArena() *Arena {
	return formula.NewArena()
}

// Expr is a handle on a formula node.
type Expr = formula.Expr

// NodeID addresses a node within its arena.
type NodeID = formula.NodeID

// Kind identifies a primitive node type.
type Kind = formula.Kind

// Primitive node kinds.
const (
	KindInvalid     = formula.KindInvalid
	KindVar         = formula.KindVar
	KindZero        = formula.KindZero
	KindIntConstant = formula.KindIntConstant
	KindConstant    = formula.KindConstant
	KindAdd         = formula.KindAdd
	KindScal        = formula.KindScal
	KindPow         = formula.KindPow
	KindExp         = formula.KindExp
	KindLog         = formula.KindLog
	KindScalprod    = formula.KindScalprod
)

// Category says how a variable is indexed during a reduction.
type Category = formula.Category

// Variable categories.
const (
	ParallelIndexed  = formula.ParallelIndexed
	SummationIndexed = formula.SummationIndexed
	Parameter        = formula.Parameter
)

// ParseCategory parses "i", "j" or "p".
func ParseCategory(s string) (Category, error) {
	return formula.ParseCategory(s)
}

// Var identifies a formula input by index, dimension and category.
type Var = formula.Var

// X returns an i-indexed variable.
func X(n, dim int) Var { return formula.X(n, dim) }

// Y returns a j-indexed variable.
func Y(n, dim int) Var { return formula.Y(n, dim) }

// PVar returns a parameter-category variable.
func PVar(n, dim int) Var { return formula.PVar(n, dim) }

// Param is a scalar read from the parameter buffer.
type Param = formula.Param

// P returns the parameter at index n.
func P(n int) Param { return formula.P(n) }

// IdOrZero returns f when ref equals v and the zero formula of dimension
// v.Dim otherwise.
func IdOrZero(ref, v Var, f Expr) Expr {
	return formula.IdOrZero(ref, v, f)
}

// Grad returns the formula of the gradient of f with respect to v for the
// incoming gradient gradIn, which must have the dimension of f.
func Grad(f Expr, v Var, gradIn Expr) Expr {
	return formula.Grad(f, v, gradIn)
}

// GradAll returns Grad(f, v, gradIn) for every v in vars.
func GradAll(f Expr, gradIn Expr, vars ...Var) []Expr {
	return formula.GradAll(f, gradIn, vars...)
}

// Bindings returns the sorted variable indices of e, a binding list that
// Compile accepts.
func Bindings(e Expr) []int {
	return formula.Bindings(e)
}

// MaxExponent bounds the magnitude of integer exponents accepted by Pow.
const MaxExponent = formula.MaxExponent

// Float is the set of scalar types a Program evaluates in.
type Float = formula.Float

// Program is a compiled formula.
type Program[T Float] = formula.Program[T]

// Evaluator holds per-goroutine scratch space for a Program.
type Evaluator[T Float] = formula.Evaluator[T]

// Slot describes one argument position of a Program.
type Slot = formula.Slot

// Compile flattens e into a Program whose i-th argument buffer feeds the
// variable with index bindings[i].
func Compile[T Float](e Expr, bindings []int) (*Program[T], error) {
	return formula.Compile[T](e, bindings)
}

// DimError reports an operator whose operands violate its dimension contract.
type DimError = formula.DimError

// Errors returned while building, compiling or evaluating formulas.
var (
	ErrDimMismatch     = formula.ErrDimMismatch
	ErrNotScalar       = formula.ErrNotScalar
	ErrInvalidDim      = formula.ErrInvalidDim
	ErrInvalidVar      = formula.ErrInvalidVar
	ErrInvalidParam    = formula.ErrInvalidParam
	ErrInvalidExponent = formula.ErrInvalidExponent
	ErrInvalidExpr     = formula.ErrInvalidExpr
	ErrForeignExpr     = formula.ErrForeignExpr
	ErrUnboundVar      = formula.ErrUnboundVar
	ErrBindingConflict = formula.ErrBindingConflict
	ErrBufferSize      = formula.ErrBufferSize
)
