package formula

func (a *Arena) unary(kind Kind, dim int, x Expr, n int) Expr {
	nx, _ := x.node()
	return a.push(node{
		kind:   kind,
		dim:    dim,
		a:      x.id,
		b:      noNode,
		n:      n,
		vars:   nx.vars,
		params: nx.params,
	})
}

func (a *Arena) binary(kind Kind, dim int, x, y Expr) Expr {
	nx, _ := x.node()
	ny, _ := y.node()
	return a.push(node{
		kind:   kind,
		dim:    dim,
		a:      x.id,
		b:      y.id,
		vars:   mergeVars(nx.vars, ny.vars),
		params: mergeParams(nx.params, ny.params),
	})
}

// Add returns x + y. Both operands must have the same dimension.
// A Zero operand is eliminated.
func (a *Arena) Add(x, y Expr) Expr {
	if err := a.operands("Add", x, y); err != nil {
		return a.fail(err)
	}
	if x.Dim() != y.Dim() {
		return a.fail(&DimError{Op: "Add", Left: x.Dim(), Right: y.Dim(), Err: ErrDimMismatch})
	}
	switch {
	case x.IsZero():
		return y
	case y.IsZero():
		return x
	}
	return a.binary(KindAdd, x.Dim(), x, y)
}

// Scal returns the product of the scalar x with the vector y.
func (a *Arena) Scal(x, y Expr) Expr {
	if err := a.operands("Scal", x, y); err != nil {
		return a.fail(err)
	}
	if x.Dim() != 1 {
		return a.fail(&DimError{Op: "Scal", Left: x.Dim(), Right: y.Dim(), Err: ErrNotScalar})
	}
	if x.IsZero() || y.IsZero() {
		return a.Zero(y.Dim())
	}
	return a.binary(KindScal, y.Dim(), x, y)
}

// Minus returns -x, as Scal(IntConstant(-1), x).
func (a *Arena) Minus(x Expr) Expr {
	if err := a.operands("Minus", x); err != nil {
		return a.fail(err)
	}
	return a.Scal(a.IntConstant(-1), x)
}

// Subtract returns x - y, as Add(x, Minus(y)).
func (a *Arena) Subtract(x, y Expr) Expr {
	return a.Add(x, a.Minus(y))
}

// Divide returns x / y for a scalar y, as Scal(Inv(y), x).
func (a *Arena) Divide(x, y Expr) Expr {
	if err := a.operands("Divide", x, y); err != nil {
		return a.fail(err)
	}
	if y.Dim() != 1 {
		return a.fail(&DimError{Op: "Divide", Left: x.Dim(), Right: y.Dim(), Err: ErrNotScalar})
	}
	if x.Dim() == 1 {
		return a.Scal(x, a.Inv(y))
	}
	return a.Scal(a.Inv(y), x)
}
