package formula

import (
	"errors"
	"fmt"
)

// Construction and compilation errors.
var (
	ErrDimMismatch     = errors.New("operand dimensions do not match")
	ErrNotScalar       = errors.New("operand must be scalar")
	ErrInvalidDim      = errors.New("dimension must be positive")
	ErrInvalidVar      = errors.New("invalid variable")
	ErrInvalidParam    = errors.New("invalid parameter")
	ErrInvalidExponent = errors.New("integer exponent out of range")
	ErrInvalidExpr     = errors.New("expression was not built by an arena")
	ErrForeignExpr     = errors.New("operands belong to different arenas")
	ErrUnboundVar      = errors.New("variable index missing from binding list")
	ErrBindingConflict = errors.New("binding position shared by distinct variables")
	ErrBufferSize      = errors.New("buffer too small")
)

// DimError reports an operator whose operands violate its dimension contract.
type DimError struct {
	Op    string // Operator name, e.g. "Add".
	Left  int    // Dimension of the first operand.
	Right int    // Dimension of the second operand (0 for unary operators).
	Err   error  // ErrDimMismatch or ErrNotScalar.
}

// Error implements the error interface.
func (e *DimError) Error() string {
	if e.Right == 0 {
		return fmt.Sprintf("%s: %v (dim %d)", e.Op, e.Err, e.Left)
	}
	return fmt.Sprintf("%s: %v (dims %d and %d)", e.Op, e.Err, e.Left, e.Right)
}

// Unwrap returns the sentinel error.
func (e *DimError) Unwrap() error {
	return e.Err
}
