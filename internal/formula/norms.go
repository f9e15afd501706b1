package formula

// Scalprod returns the scalar product <x, y>.
// Both operands must have the same dimension.
func (a *Arena) Scalprod(x, y Expr) Expr {
	if err := a.operands("Scalprod", x, y); err != nil {
		return a.fail(err)
	}
	if x.Dim() != y.Dim() {
		return a.fail(&DimError{Op: "Scalprod", Left: x.Dim(), Right: y.Dim(), Err: ErrDimMismatch})
	}
	if x.IsZero() || y.IsZero() {
		return a.Zero(1)
	}
	return a.binary(KindScalprod, 1, x, y)
}

// SqNorm2 returns |x|^2, as Scalprod(x, x).
func (a *Arena) SqNorm2(x Expr) Expr {
	return a.Scalprod(x, x)
}

// SqDist returns |x - y|^2, as SqNorm2(Subtract(x, y)).
func (a *Arena) SqDist(x, y Expr) Expr {
	return a.SqNorm2(a.Subtract(x, y))
}
