package formula

import "fmt"

// Grad returns the formula of [∂f/∂v]ᵀ·gradIn: the adjoint of f with respect
// to v, given the incoming adjoint gradIn of f's output.
//
// gradIn must have f's dimension; the result has v's dimension. When f does
// not depend on v the result is the canonical Zero node, so any formula built
// from it drops the branch at construction time.
func Grad(f Expr, v Var, gradIn Expr) Expr {
	a := f.arena
	if a == nil {
		a = gradIn.arena
	}
	if a == nil {
		return Expr{id: noNode, err: fmt.Errorf("Grad: %w", ErrInvalidExpr)}
	}
	if err := a.operands("Grad", f, gradIn); err != nil {
		return a.fail(err)
	}
	if err := v.validate(); err != nil {
		return a.fail(fmt.Errorf("Grad: %w", err))
	}
	if gradIn.Dim() != f.Dim() {
		return a.fail(&DimError{Op: "Grad", Left: f.Dim(), Right: gradIn.Dim(), Err: ErrDimMismatch})
	}
	return a.diffT(f.id, v, gradIn)
}

// GradAll returns Grad(f, v, gradIn) for each v in vars.
func GradAll(f Expr, gradIn Expr, vars ...Var) []Expr {
	out := make([]Expr, len(vars))
	for i, v := range vars {
		out[i] = Grad(f, v, gradIn)
	}
	return out
}

// diffT pushes the adjoint g of node id down to v.
//
// Every case descends exactly one level, so the recursion terminates on the
// finite tree. Branches that do not reach v are cut before descending.
func (a *Arena) diffT(id NodeID, v Var, g Expr) Expr {
	if g.err != nil {
		return g
	}
	n := a.node(id)
	if !n.dependsOn(v) {
		return a.Zero(v.Dim)
	}

	switch n.kind {
	case KindVar:
		return IdOrZero(n.v, v, g)

	case KindZero, KindIntConstant, KindConstant:
		return a.Zero(v.Dim)

	case KindAdd:
		// d(x+y) = dx + dy
		return a.Add(a.diffT(n.a, v, g), a.diffT(n.b, v, g))

	case KindScal:
		// d(x·y): x receives <g, y>, y receives x·g
		x, y := a.expr(n.a), a.expr(n.b)
		return a.Add(
			a.diffT(n.a, v, a.Scalprod(g, y)),
			a.diffT(n.b, v, a.Scal(x, g)),
		)

	case KindPow:
		// d(x^m) = m·x^(m-1)·g
		if n.n == 0 {
			return a.Zero(v.Dim)
		}
		x := a.expr(n.a)
		return a.diffT(n.a, v, a.Scal(a.Scal(a.IntConstant(n.n), a.Pow(x, n.n-1)), g))

	case KindExp:
		// d(e^x) = e^x·g
		return a.diffT(n.a, v, a.Scal(a.expr(id), g))

	case KindLog:
		// d(ln x) = g/x
		return a.diffT(n.a, v, a.Scal(a.Inv(a.expr(n.a)), g))

	case KindScalprod:
		// d<x, y>: x receives g·y, y receives g·x
		x, y := a.expr(n.a), a.expr(n.b)
		return a.Add(
			a.diffT(n.a, v, a.Scal(g, y)),
			a.diffT(n.b, v, a.Scal(g, x)),
		)

	default:
		return a.fail(fmt.Errorf("Grad: no derivative rule for %s", n.kind))
	}
}
