package formula

import (
	"cmp"
	"fmt"
	"strings"
)

// Category classifies how a variable is indexed by the surrounding reduction.
type Category uint8

// Variable categories.
const (
	ParallelIndexed  Category = iota // i-variable: one value per output point.
	SummationIndexed                 // j-variable: one value per reduced point.
	Parameter                        // p-variable: one value shared by all points.
)

// String returns the short category tag ("i", "j" or "p").
func (c Category) String() string {
	switch c {
	case ParallelIndexed:
		return "i"
	case SummationIndexed:
		return "j"
	case Parameter:
		return "p"
	default:
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	return c <= Parameter
}

// ParseCategory accepts the short tags and their long names.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "i", "parallel", "parallel_indexed":
		return ParallelIndexed, nil
	case "j", "summation", "summation_indexed":
		return SummationIndexed, nil
	case "p", "param", "parameter":
		return Parameter, nil
	default:
		return 0, fmt.Errorf("unknown variable category %q", s)
	}
}

// Var is the atomic input of a formula: the Index-th argument, a vector of
// Dim scalars, read according to Cat.
//
// Two Vars denote the same symbolic variable iff all three fields are equal,
// so Var values can be compared with ==.
type Var struct {
	Index int
	Dim   int
	Cat   Category
}

// X returns the n-th parallel-indexed variable of dimension dim.
func X(n, dim int) Var { return Var{Index: n, Dim: dim, Cat: ParallelIndexed} }

// Y returns the n-th summation-indexed variable of dimension dim.
func Y(n, dim int) Var { return Var{Index: n, Dim: dim, Cat: SummationIndexed} }

// PVar returns the n-th parameter-category variable of dimension dim.
func PVar(n, dim int) Var { return Var{Index: n, Dim: dim, Cat: Parameter} }

// String renders the variable as Var<N,DIM,CAT>.
func (v Var) String() string {
	return fmt.Sprintf("Var<%d,%d,%s>", v.Index, v.Dim, v.Cat)
}

func (v Var) validate() error {
	if v.Index < 0 {
		return fmt.Errorf("%s: %w: negative index", v, ErrInvalidVar)
	}
	if v.Dim < 1 {
		return fmt.Errorf("%s: %w: dimension must be positive", v, ErrInvalidVar)
	}
	if !v.Cat.Valid() {
		return fmt.Errorf("%s: %w: unknown category", v, ErrInvalidVar)
	}
	return nil
}

func compareVars(a, b Var) int {
	if c := cmp.Compare(a.Cat, b.Cat); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Index, b.Index); c != 0 {
		return c
	}
	return cmp.Compare(a.Dim, b.Dim)
}

// Param references the Index-th entry of the flat parameter buffer.
// It is bound by index only and is independent of the per-point indexing.
type Param struct {
	Index int
}

// P returns the n-th parameter.
func P(n int) Param { return Param{Index: n} }

// String renders the parameter as Param<N>.
func (p Param) String() string {
	return fmt.Sprintf("Param<%d>", p.Index)
}
