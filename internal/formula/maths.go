package formula

import (
	"fmt"
	"math"
)

// MaxExponent bounds the magnitude of integer exponents accepted by Pow.
const MaxExponent = math.MaxInt32

func (a *Arena) scalarUnary(op string, kind Kind, x Expr, n int) Expr {
	if err := a.operands(op, x); err != nil {
		return a.fail(err)
	}
	if x.Dim() != 1 {
		return a.fail(&DimError{Op: op, Left: x.Dim(), Err: ErrNotScalar})
	}
	return a.unary(kind, 1, x, n)
}

// Pow returns x^m for a scalar x and an integer m with |m| <= MaxExponent.
// Non-integer exponents go through Powf.
func (a *Arena) Pow(x Expr, m int) Expr {
	if err := a.operands("Pow", x); err != nil {
		return a.fail(err)
	}
	if m > MaxExponent || m < -MaxExponent {
		return a.fail(fmt.Errorf("Pow(%d): %w", m, ErrInvalidExponent))
	}
	if x.IsZero() && x.Dim() == 1 && m > 0 {
		return x
	}
	return a.scalarUnary("Pow", KindPow, x, m)
}

// Square returns Pow(x, 2).
func (a *Arena) Square(x Expr) Expr {
	return a.Pow(x, 2)
}

// Inv returns 1/x, as Pow(x, -1).
func (a *Arena) Inv(x Expr) Expr {
	return a.Pow(x, -1)
}

// IntInv returns the constant 1/n.
func (a *Arena) IntInv(n int) Expr {
	return a.Inv(a.IntConstant(n))
}

// Exp returns e^x for a scalar x.
func (a *Arena) Exp(x Expr) Expr {
	return a.scalarUnary("Exp", KindExp, x, 0)
}

// Log returns the natural logarithm of a scalar x.
// Non-positive inputs evaluate to NaN or -Inf.
func (a *Arena) Log(x Expr) Expr {
	return a.scalarUnary("Log", KindLog, x, 0)
}

// Powf returns x^y for scalars x and y, as Exp(Scal(y, Log(x))).
// It is only defined for x > 0; a negative x evaluates to NaN.
func (a *Arena) Powf(x, y Expr) Expr {
	return a.Exp(a.Scal(y, a.Log(x)))
}

// Sqrt returns the square root of a scalar x, as Powf(x, IntInv(2)).
func (a *Arena) Sqrt(x Expr) Expr {
	return a.Powf(x, a.IntInv(2))
}
