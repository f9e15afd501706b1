package formulafile

import (
	"fmt"
	"math"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/born-ml/symgrad/internal/formula"
)

// translator turns HCL expression syntax trees into formula expressions.
type translator struct {
	doc *Document
}

func (t *translator) translate(expr hcl.Expression) (formula.Expr, hcl.Diagnostics) {
	syntaxExpr, ok := expr.(hclsyntax.Expression)
	if !ok {
		return formula.Expr{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unsupported expression",
			Detail:   "Formulas must be written in native HCL syntax.",
			Subject:  expr.Range().Ptr(),
		}}
	}
	return t.expr(syntaxExpr)
}

// built reports a construction error of the formula package at e.
func built(e hclsyntax.Expression, r formula.Expr) (formula.Expr, hcl.Diagnostics) {
	if err := r.Err(); err != nil {
		return r, hcl.Diagnostics{errorDiag("Invalid formula", err, e.Range())}
	}
	return r, nil
}

func (t *translator) expr(e hclsyntax.Expression) (formula.Expr, hcl.Diagnostics) {
	a := t.doc.Arena

	switch e := e.(type) {
	case *hclsyntax.ParenthesesExpr:
		return t.expr(e.Expression)

	case *hclsyntax.ScopeTraversalExpr:
		return t.reference(e)

	case *hclsyntax.LiteralValueExpr:
		n, diags := intLiteral(e)
		if diags.HasErrors() {
			return formula.Expr{}, diags
		}
		return a.IntConstant(n), nil

	case *hclsyntax.UnaryOpExpr:
		if e.Op != hclsyntax.OpNegate {
			return formula.Expr{}, unsupported(e, "Only unary minus is supported.")
		}
		if len(e.Variables()) == 0 {
			if n, diags := intLiteral(e); !diags.HasErrors() {
				return a.IntConstant(n), nil
			}
		}
		x, diags := t.expr(e.Val)
		if diags.HasErrors() {
			return x, diags
		}
		return built(e, a.Minus(x))

	case *hclsyntax.BinaryOpExpr:
		return t.binary(e)

	case *hclsyntax.FunctionCallExpr:
		return t.call(e)

	default:
		return formula.Expr{}, unsupported(e, "Formulas are built from references, integer literals, + - * /, and function calls.")
	}
}

func (t *translator) reference(e *hclsyntax.ScopeTraversalExpr) (formula.Expr, hcl.Diagnostics) {
	a := t.doc.Arena
	if len(e.Traversal) != 1 {
		return formula.Expr{}, unsupported(e, "References must be plain names.")
	}
	name := e.Traversal.RootName()
	if v, ok := t.doc.Vars[name]; ok {
		return a.Var(v), nil
	}
	if p, ok := t.doc.Params[name]; ok {
		return a.Constant(p), nil
	}
	if f, ok := t.doc.Formulas[name]; ok {
		return f, nil
	}
	return formula.Expr{}, hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Unknown reference",
		Detail:   fmt.Sprintf("%q is not a variable, a parameter, or a formula declared earlier in the file.", name),
		Subject:  e.Range().Ptr(),
	}}
}

func (t *translator) binary(e *hclsyntax.BinaryOpExpr) (formula.Expr, hcl.Diagnostics) {
	a := t.doc.Arena
	l, diags := t.expr(e.LHS)
	if diags.HasErrors() {
		return l, diags
	}
	r, diags := t.expr(e.RHS)
	if diags.HasErrors() {
		return r, diags
	}

	switch e.Op {
	case hclsyntax.OpAdd:
		return built(e, a.Add(l, r))
	case hclsyntax.OpSubtract:
		return built(e, a.Subtract(l, r))
	case hclsyntax.OpDivide:
		return built(e, a.Divide(l, r))
	case hclsyntax.OpMultiply:
		switch {
		case l.Dim() == 1:
			return built(e, a.Scal(l, r))
		case r.Dim() == 1:
			return built(e, a.Scal(r, l))
		default:
			return formula.Expr{}, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid product",
				Detail:   fmt.Sprintf("Cannot multiply vectors of dimension %d and %d; use scalprod for the scalar product.", l.Dim(), r.Dim()),
				Subject:  e.Range().Ptr(),
			}}
		}
	default:
		return formula.Expr{}, unsupported(e, "Only the operators + - * / are supported.")
	}
}

func (t *translator) call(e *hclsyntax.FunctionCallExpr) (formula.Expr, hcl.Diagnostics) {
	a := t.doc.Arena

	arity, known := functionArity[e.Name]
	if !known {
		return formula.Expr{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Call to unknown function",
			Detail:   fmt.Sprintf("There is no formula function named %q.", e.Name),
			Subject:  e.NameRange.Ptr(),
		}}
	}
	if len(e.Args) != arity || e.ExpandFinal {
		return formula.Expr{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Wrong number of arguments",
			Detail:   fmt.Sprintf("Function %q takes %d arguments.", e.Name, arity),
			Subject:  e.Range().Ptr(),
		}}
	}

	// Functions with a non-expression argument.
	switch e.Name {
	case "zero":
		n, diags := intLiteral(e.Args[0])
		if diags.HasErrors() {
			return formula.Expr{}, diags
		}
		return built(e, a.Zero(n))
	case "int_inv":
		n, diags := intLiteral(e.Args[0])
		if diags.HasErrors() {
			return formula.Expr{}, diags
		}
		return built(e, a.IntInv(n))
	case "pow":
		m, diags := intLiteral(e.Args[1])
		if diags.HasErrors() {
			return formula.Expr{}, diags
		}
		x, diags := t.expr(e.Args[0])
		if diags.HasErrors() {
			return x, diags
		}
		return built(e, a.Pow(x, m))
	case "grad":
		v, diags := t.varArg(e.Args[1])
		if diags.HasErrors() {
			return formula.Expr{}, diags
		}
		f, diags := t.expr(e.Args[0])
		if diags.HasErrors() {
			return f, diags
		}
		g, diags := t.expr(e.Args[2])
		if diags.HasErrors() {
			return g, diags
		}
		return built(e, formula.Grad(f, v, g))
	case "gauss_kernel":
		p, diags := t.paramArg(e.Args[0])
		if diags.HasErrors() {
			return formula.Expr{}, diags
		}
		args, diags := t.exprs(e.Args[1:])
		if diags.HasErrors() {
			return formula.Expr{}, diags
		}
		return built(e, a.GaussKernel(p, args[0], args[1], args[2]))
	}

	args, diags := t.exprs(e.Args)
	if diags.HasErrors() {
		return formula.Expr{}, diags
	}
	var r formula.Expr
	switch e.Name {
	case "add":
		r = a.Add(args[0], args[1])
	case "subtract":
		r = a.Subtract(args[0], args[1])
	case "scal":
		r = a.Scal(args[0], args[1])
	case "minus":
		r = a.Minus(args[0])
	case "divide":
		r = a.Divide(args[0], args[1])
	case "inv":
		r = a.Inv(args[0])
	case "square":
		r = a.Square(args[0])
	case "sqrt":
		r = a.Sqrt(args[0])
	case "powf":
		r = a.Powf(args[0], args[1])
	case "exp":
		r = a.Exp(args[0])
	case "log":
		r = a.Log(args[0])
	case "scalprod":
		r = a.Scalprod(args[0], args[1])
	case "sqnorm2":
		r = a.SqNorm2(args[0])
	case "sqdist":
		r = a.SqDist(args[0], args[1])
	}
	return built(e, r)
}

var functionArity = map[string]int{
	"add":          2,
	"subtract":     2,
	"scal":         2,
	"minus":        1,
	"divide":       2,
	"inv":          1,
	"pow":          2,
	"powf":         2,
	"square":       1,
	"sqrt":         1,
	"int_inv":      1,
	"exp":          1,
	"log":          1,
	"scalprod":     2,
	"sqnorm2":      1,
	"sqdist":       2,
	"gauss_kernel": 4,
	"zero":         1,
	"grad":         3,
}

func (t *translator) exprs(in []hclsyntax.Expression) ([]formula.Expr, hcl.Diagnostics) {
	out := make([]formula.Expr, len(in))
	for i, arg := range in {
		x, diags := t.expr(arg)
		if diags.HasErrors() {
			return nil, diags
		}
		out[i] = x
	}
	return out, nil
}

func (t *translator) varArg(e hclsyntax.Expression) (formula.Var, hcl.Diagnostics) {
	name, diags := plainName(e, "variable")
	if diags.HasErrors() {
		return formula.Var{}, diags
	}
	v, ok := t.doc.Vars[name]
	if !ok {
		return formula.Var{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Variable expected",
			Detail:   fmt.Sprintf("%q is not a declared variable.", name),
			Subject:  e.Range().Ptr(),
		}}
	}
	return v, nil
}

func (t *translator) paramArg(e hclsyntax.Expression) (formula.Param, hcl.Diagnostics) {
	name, diags := plainName(e, "parameter")
	if diags.HasErrors() {
		return formula.Param{}, diags
	}
	p, ok := t.doc.Params[name]
	if !ok {
		return formula.Param{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Parameter expected",
			Detail:   fmt.Sprintf("%q is not a declared parameter.", name),
			Subject:  e.Range().Ptr(),
		}}
	}
	return p, nil
}

func plainName(e hclsyntax.Expression, what string) (string, hcl.Diagnostics) {
	ref, ok := e.(*hclsyntax.ScopeTraversalExpr)
	if !ok || len(ref.Traversal) != 1 {
		return "", hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Name expected",
			Detail:   fmt.Sprintf("This argument must be the name of a %s.", what),
			Subject:  e.Range().Ptr(),
		}}
	}
	return ref.Traversal.RootName(), nil
}

// intLiteral evaluates a constant expression that must be a whole number.
func intLiteral(e hclsyntax.Expression) (int, hcl.Diagnostics) {
	invalid := func(detail string) hcl.Diagnostics {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Integer expected",
			Detail:   detail,
			Subject:  e.Range().Ptr(),
		}}
	}

	if len(e.Variables()) != 0 {
		return 0, invalid("This value must be an integer literal.")
	}
	val, diags := e.Value(nil)
	if diags.HasErrors() {
		return 0, diags
	}
	if val.IsNull() || !val.IsKnown() || val.Type() != cty.Number {
		return 0, invalid("This value must be an integer literal.")
	}
	bf := val.AsBigFloat()
	if !bf.IsInt() {
		return 0, invalid("Only integer constants are supported; pass other constants through a parameter.")
	}
	n, acc := bf.Int64()
	if acc != big.Exact || n > math.MaxInt32 || n < math.MinInt32 {
		return 0, invalid("Integer constant out of range.")
	}
	return int(n), nil
}

func unsupported(e hclsyntax.Expression, detail string) hcl.Diagnostics {
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Unsupported expression",
		Detail:   detail,
		Subject:  e.Range().Ptr(),
	}}
}
