package formulafile

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/born-ml/symgrad/internal/formula"
)

// Document is the content of a formula file.
type Document struct {
	Arena        *formula.Arena
	Vars         map[string]formula.Var
	Params       map[string]formula.Param
	Formulas     map[string]formula.Expr
	Descriptions map[string]string
	Order        []string // Formula names in declaration order.
}

// hclFormulaFile is the top-level structure of a formula file for decoding.
type hclFormulaFile struct {
	Variables  []*hclVariable  `hcl:"variable,block"`
	Parameters []*hclParameter `hcl:"parameter,block"`
	Formulas   []*hclFormula   `hcl:"formula,block"`
}

type hclVariable struct {
	Name     string   `hcl:"name,label"`
	Index    int      `hcl:"index"`
	Dim      int      `hcl:"dim"`
	Category string   `hcl:"category,optional"`
	Remain   hcl.Body `hcl:",remain"`
}

type hclParameter struct {
	Name   string   `hcl:"name,label"`
	Index  int      `hcl:"index"`
	Remain hcl.Body `hcl:",remain"`
}

type hclFormula struct {
	Name        string         `hcl:"name,label"`
	Expr        hcl.Expression `hcl:"expr"`
	Description string         `hcl:"description,optional"`
	Remain      hcl.Body       `hcl:",remain"`
}

// declRange returns a range inside the block owning body and reports any
// argument the block schema does not know.
func declRange(body hcl.Body) (hcl.Range, hcl.Diagnostics) {
	attrs, diags := body.JustAttributes()
	for name, attr := range attrs {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unsupported argument",
			Detail:   fmt.Sprintf("An argument named %q is not expected here.", name),
			Subject:  attr.NameRange.Ptr(),
		})
	}
	return body.MissingItemRange(), diags
}

// Load parses and builds the formula file at path.
func Load(path string) (*Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse formula file %s: %w", path, diags)
	}
	return decode(file, path)
}

// Parse builds a document from HCL source. filename is used in diagnostics.
func Parse(src []byte, filename string) (*Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse formula file %s: %w", filename, diags)
	}
	return decode(file, filename)
}

func decode(file *hcl.File, filename string) (*Document, error) {
	var parsed hclFormulaFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode formula file %s: %w", filename, diags)
	}

	doc := &Document{
		Arena:        formula.NewArena(),
		Vars:         make(map[string]formula.Var),
		Params:       make(map[string]formula.Param),
		Formulas:     make(map[string]formula.Expr),
		Descriptions: make(map[string]string),
	}

	var diags hcl.Diagnostics
	declared := make(map[string]hcl.Range)
	declare := func(kind, name string, rng hcl.Range) bool {
		if prev, dup := declared[name]; dup {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate name",
				Detail:   fmt.Sprintf("The %s name %q is already declared at %s.", kind, name, prev),
				Subject:  rng.Ptr(),
			})
			return false
		}
		declared[name] = rng
		return true
	}

	varIndex := make(map[int]string)
	for _, v := range parsed.Variables {
		rng, bodyDiags := declRange(v.Remain)
		diags = append(diags, bodyDiags...)
		if !declare("variable", v.Name, rng) {
			continue
		}
		cat := formula.ParallelIndexed
		if v.Category != "" {
			c, err := formula.ParseCategory(v.Category)
			if err != nil {
				diags = append(diags, errorDiag("Invalid variable category", err, rng))
				continue
			}
			cat = c
		}
		if other, taken := varIndex[v.Index]; taken {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate variable index",
				Detail:   fmt.Sprintf("Variables %q and %q both use index %d.", other, v.Name, v.Index),
				Subject:  rng.Ptr(),
			})
			continue
		}
		fv := formula.Var{Index: v.Index, Dim: v.Dim, Cat: cat}
		if err := doc.Arena.Var(fv).Err(); err != nil {
			diags = append(diags, errorDiag("Invalid variable", err, rng))
			continue
		}
		varIndex[v.Index] = v.Name
		doc.Vars[v.Name] = fv
	}

	for _, p := range parsed.Parameters {
		rng, bodyDiags := declRange(p.Remain)
		diags = append(diags, bodyDiags...)
		if !declare("parameter", p.Name, rng) {
			continue
		}
		if p.Index < 0 {
			diags = append(diags, errorDiag("Invalid parameter", fmt.Errorf("%w: negative index %d", formula.ErrInvalidParam, p.Index), rng))
			continue
		}
		doc.Params[p.Name] = formula.P(p.Index)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid declarations in %s: %w", filename, diags)
	}

	tr := &translator{doc: doc}
	for _, f := range parsed.Formulas {
		_, bodyDiags := declRange(f.Remain)
		diags = append(diags, bodyDiags...)
		if !declare("formula", f.Name, f.Expr.Range()) {
			continue
		}
		e, exprDiags := tr.translate(f.Expr)
		diags = append(diags, exprDiags...)
		if exprDiags.HasErrors() {
			continue
		}
		doc.Formulas[f.Name] = e
		doc.Descriptions[f.Name] = f.Description
		doc.Order = append(doc.Order, f.Name)
		slog.Debug("Formula built", "file", filename, "name", f.Name, "dim", e.Dim(), "nodes", doc.Arena.Len())
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid formulas in %s: %w", filename, diags)
	}

	slog.Debug("Formula file loaded", "file", filename,
		"variables", len(doc.Vars), "parameters", len(doc.Params), "formulas", len(doc.Order))
	return doc, nil
}

// Formula returns the named formula.
func (d *Document) Formula(name string) (formula.Expr, error) {
	e, ok := d.Formulas[name]
	if !ok {
		return formula.Expr{}, fmt.Errorf("formula %q not declared", name)
	}
	return e, nil
}

// VarName returns the declared name of v.
func (d *Document) VarName(v formula.Var) (string, bool) {
	for name, dv := range d.Vars {
		if dv == v {
			return name, true
		}
	}
	return "", false
}

// NextIndex returns the smallest variable index above every declared one.
// It is a free index for an incoming-gradient variable.
func (d *Document) NextIndex() int {
	next := 0
	for _, v := range d.Vars {
		next = max(next, v.Index+1)
	}
	return next
}

func errorDiag(summary string, err error, rng hcl.Range) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   err.Error(),
		Subject:  rng.Ptr(),
	}
}
