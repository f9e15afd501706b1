package formulafile_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/symgrad/internal/formula"
	"github.com/born-ml/symgrad/internal/formulafile"
)

func eval(t *testing.T, e formula.Expr, params []float64, args ...[]float64) []float64 {
	t.Helper()
	prog, err := formula.Compile[float64](e, formula.Bindings(e))
	require.NoError(t, err)
	out := make([]float64, prog.Dim())
	require.NoError(t, prog.Check(params, out, args...))
	prog.Eval(params, out, args...)
	return out
}

func TestLoad_GaussFile(t *testing.T) {
	doc, err := formulafile.Load(filepath.Join("testdata", "gauss.hcl"))
	require.NoError(t, err)

	assert.Equal(t, []string{"k", "k_explicit", "dk_dx"}, doc.Order)
	assert.Equal(t, formula.X(0, 2), doc.Vars["x"])
	assert.Equal(t, formula.Y(1, 2), doc.Vars["y"])
	assert.Equal(t, formula.Y(2, 1), doc.Vars["b"])
	assert.Equal(t, formula.X(3, 1), doc.Vars["g"], "category defaults to i")
	assert.Equal(t, formula.P(0), doc.Params["oos2"])
	assert.Equal(t, "exp(-oos2 |x - y|^2) b", doc.Descriptions["k"])
	assert.Equal(t, 4, doc.NextIndex())

	name, ok := doc.VarName(formula.Y(2, 1))
	assert.True(t, ok)
	assert.Equal(t, "b", name)

	params := []float64{1}
	x, y, b := []float64{0, 0}, []float64{1, 0}, []float64{2}

	k, err := doc.Formula("k")
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Exp(-1), eval(t, k, params, x, y, b)[0], 1e-12)

	explicit, err := doc.Formula("k_explicit")
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Exp(-1), eval(t, explicit, params, x, y, b)[0], 1e-12)

	dk, err := doc.Formula("dk_dx")
	require.NoError(t, err)
	assert.Equal(t, 2, dk.Dim())
	grad := eval(t, dk, params, x, y, b, []float64{1})
	assert.InDelta(t, 1.4716, grad[0], 1e-4)
	assert.InDelta(t, 0, grad[1], 1e-12)

	_, err = doc.Formula("missing")
	assert.Error(t, err)
}

func TestParse_Operators(t *testing.T) {
	src := `
variable "s" {
  index = 0
  dim   = 1
}
variable "v" {
  index = 1
  dim   = 3
}
formula "poly" {
  expr = pow(s, 3) - 2 * square(s) + s / 4
}
formula "neg" {
  expr = -(s + 1)
}
formula "scaled" {
  expr = v * (s + 1)
}
formula "norm" {
  expr = sqrt(sqnorm2(v))
}
formula "mixed" {
  expr = log(exp(s)) + powf(s, int_inv(2)) + inv(s) + divide(scalprod(v, v), s)
}
formula "zeros" {
  expr = add(v, zero(3))
}
formula "negpow" {
  expr = pow(s, -2)
}
`
	doc, err := formulafile.Parse([]byte(src), "ops.hcl")
	require.NoError(t, err)

	s, v := []float64{2}, []float64{1, 2, 2}
	tests := []struct {
		name string
		args [][]float64
		want []float64
	}{
		{"poly", [][]float64{s}, []float64{8 - 8 + 0.5}},
		{"neg", [][]float64{s}, []float64{-3}},
		{"scaled", [][]float64{s, v}, []float64{3, 6, 6}},
		{"norm", [][]float64{v}, []float64{3}},
		{"mixed", [][]float64{s, v}, []float64{2 + math.Sqrt(2) + 0.5 + 4.5}},
		{"zeros", [][]float64{v}, v},
		{"negpow", [][]float64{s}, []float64{0.25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := doc.Formula(tt.name)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, eval(t, e, nil, tt.args...), 1e-12)
		})
	}

	zeros, err := doc.Formula("zeros")
	require.NoError(t, err)
	assert.Equal(t, formula.KindVar, zeros.Kind(), "zero operand eliminated")
}

func TestParse_Errors(t *testing.T) {
	header := `
variable "x" {
  index = 0
  dim   = 2
}
variable "s" {
  index = 1
  dim   = 1
}
parameter "c" {
  index = 0
}
`
	tests := []struct {
		name    string
		src     string
		summary string
	}{
		{"DimMismatch", `formula "f" { expr = x + s }`, "Invalid formula"},
		{"NonScalarExp", `formula "f" { expr = exp(x) }`, "Invalid formula"},
		{"VectorProduct", `formula "f" { expr = x * x }`, "Invalid product"},
		{"NonInteger", `formula "f" { expr = s * 0.5 }`, "Integer expected"},
		{"PowNonInteger", `formula "f" { expr = pow(s, 1.5) }`, "Integer expected"},
		{"UnknownRef", `formula "f" { expr = s + z }`, "Unknown reference"},
		{"ForwardRef", "formula \"f\" { expr = g }\nformula \"g\" { expr = s }", "Unknown reference"},
		{"SelfRef", `formula "f" { expr = f + s }`, "Unknown reference"},
		{"UnknownFunction", `formula "f" { expr = tanh(s) }`, "Call to unknown function"},
		{"Arity", `formula "f" { expr = exp(s, s) }`, "Wrong number of arguments"},
		{"GradOfExpression", `formula "f" { expr = grad(s, s + s, s) }`, "Name expected"},
		{"GradOfParam", `formula "f" { expr = grad(s, c, s) }`, "Variable expected"},
		{"GaussNeedsParam", `formula "f" { expr = gauss_kernel(s, x, x, s) }`, "Parameter expected"},
		{"GradInDim", `formula "f" { expr = grad(sqnorm2(x), x, x) }`, "Invalid formula"},
		{"Conditional", `formula "f" { expr = true ? s : s }`, "Unsupported expression"},
		{"DuplicateName", `formula "x" { expr = s }`, "Duplicate name"},
		{"Attribute", `formula "f" {
  expr  = s
  extra = 1
}`, "Unsupported argument"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := formulafile.Parse([]byte(header+tt.src), "bad.hcl")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.summary)
			assert.Contains(t, err.Error(), "bad.hcl")
		})
	}
}

func TestParse_DeclarationErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		summary string
	}{
		{"Category", `variable "x" {
  index    = 0
  dim      = 1
  category = "k"
}`, "Invalid variable category"},
		{"ZeroDim", `variable "x" {
  index = 0
  dim   = 0
}`, "Invalid variable"},
		{"DuplicateIndex", `variable "x" {
  index = 0
  dim   = 1
}
variable "y" {
  index = 0
  dim   = 1
}`, "Duplicate variable index"},
		{"NegativeParam", `parameter "c" {
  index = -1
}`, "Invalid parameter"},
		{"MissingDim", `variable "x" {
  index = 0
}`, "Missing required argument"},
		{"Syntax", `formula "f" {`, "formula file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := formulafile.Parse([]byte(tt.src), "decl.hcl")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.summary)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := formulafile.Load(filepath.Join(t.TempDir(), "absent.hcl"))
	assert.Error(t, err)
}

func TestLoad_WrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sq.hcl")
	src := `
variable "x" {
  index = 0
  dim   = 3
}
variable "y" {
  index    = 1
  dim      = 3
  category = "j"
}
formula "d" {
  expr = sqdist(x, y)
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	doc, err := formulafile.Load(path)
	require.NoError(t, err)
	d, err := doc.Formula("d")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, formula.Bindings(d))
	assert.InDelta(t, 9.0, eval(t, d, nil, []float64{1, 2, 3}, []float64{1, 2, 6})[0], 1e-12)
}
