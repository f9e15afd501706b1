package formula

import "fmt"

// Var returns the leaf node of variable v.
func (a *Arena) Var(v Var) Expr {
	if err := v.validate(); err != nil {
		return a.fail(err)
	}
	return a.push(node{kind: KindVar, dim: v.Dim, a: noNode, b: noNode, v: v, vars: []Var{v}})
}

// Zero returns the canonical zero vector of dimension dim.
func (a *Arena) Zero(dim int) Expr {
	if dim < 1 {
		return a.fail(fmt.Errorf("Zero(%d): %w", dim, ErrInvalidDim))
	}
	return a.push(node{kind: KindZero, dim: dim, a: noNode, b: noNode})
}

// IntConstant returns the scalar constant n.
func (a *Arena) IntConstant(n int) Expr {
	return a.push(node{kind: KindIntConstant, dim: 1, a: noNode, b: noNode, n: n})
}

// Constant returns the scalar read from the parameter buffer at p.Index.
func (a *Arena) Constant(p Param) Expr {
	if p.Index < 0 {
		return a.fail(fmt.Errorf("%s: %w: negative index", p, ErrInvalidParam))
	}
	return a.push(node{kind: KindConstant, dim: 1, a: noNode, b: noNode, n: p.Index, params: []Param{p}})
}

// IdOrZero returns f when ref and v are the same symbolic variable, and the
// Zero of v's dimension otherwise. The comparison is structural.
func IdOrZero(ref, v Var, f Expr) Expr {
	if ref == v || f.err != nil {
		return f
	}
	if f.arena == nil {
		return Expr{id: noNode, err: fmt.Errorf("IdOrZero: %w", ErrInvalidExpr)}
	}
	return f.arena.Zero(v.Dim)
}
