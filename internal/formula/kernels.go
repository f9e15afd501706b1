package formula

// GaussKernel returns exp(-oos2 * |x - y|^2) * beta, where oos2 = 1/s^2 is
// read from the parameter buffer.
//
// Built as Scal(Exp(Scal(Constant(oos2), Minus(SqDist(x, y)))), beta), so its
// derivative follows from the Exp, Scal and Scalprod rules.
func (a *Arena) GaussKernel(oos2 Param, x, y, beta Expr) Expr {
	if err := a.operands("GaussKernel", x, y, beta); err != nil {
		return a.fail(err)
	}
	if x.Dim() != y.Dim() {
		return a.fail(&DimError{Op: "GaussKernel", Left: x.Dim(), Right: y.Dim(), Err: ErrDimMismatch})
	}
	return a.Scal(a.Exp(a.Scal(a.Constant(oos2), a.Minus(a.SqDist(x, y)))), beta)
}
