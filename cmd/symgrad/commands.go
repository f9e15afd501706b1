package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/born-ml/symgrad/internal/formula"
	"github.com/born-ml/symgrad/internal/formulafile"
)

func loadDocument(fs *flag.FlagSet) (*formulafile.Document, error) {
	if fs.NArg() != 1 {
		return nil, usageError("%s: expected exactly one formula file, got %d arguments", fs.Name(), fs.NArg())
	}
	path := fs.Arg(0)
	doc, err := formulafile.Load(path)
	if err != nil {
		return nil, err
	}
	slog.Info("Loaded formula file", "path", path, "formulas", len(doc.Order))
	return doc, nil
}

func parseCommand(fs *flag.FlagSet, outW io.Writer, args []string) (bool, error) {
	fs.SetOutput(outW)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return false, nil
		}
		return false, usageError("%v", err)
	}
	return true, nil
}

// runInspect prints every formula with its dimension, tree and dependencies.
func runInspect(outW io.Writer, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	if ok, err := parseCommand(fs, outW, args); !ok {
		return err
	}
	doc, err := loadDocument(fs)
	if err != nil {
		return err
	}

	paramNames := make(map[formula.Param]string, len(doc.Params))
	for name, p := range doc.Params {
		paramNames[p] = name
	}

	for _, name := range doc.Order {
		e := doc.Formulas[name]
		fmt.Fprintf(outW, "formula %s (dim %d)\n", name, e.Dim())
		if desc := doc.Descriptions[name]; desc != "" {
			fmt.Fprintf(outW, "  description: %s\n", desc)
		}
		fmt.Fprintf(outW, "  tree: %s\n", e)
		for _, cat := range []formula.Category{formula.ParallelIndexed, formula.SummationIndexed, formula.Parameter} {
			vars := e.VarsOf(cat)
			if len(vars) == 0 {
				continue
			}
			names := make([]string, len(vars))
			for i, v := range vars {
				names[i], _ = doc.VarName(v)
			}
			fmt.Fprintf(outW, "  %s: %s\n", cat, strings.Join(names, " "))
		}
		if params := e.Params(); len(params) > 0 {
			names := make([]string, len(params))
			for i, p := range params {
				names[i] = paramNames[p]
			}
			fmt.Fprintf(outW, "  params: %s\n", strings.Join(names, " "))
		}
	}
	return nil
}

// runEval evaluates one formula, or its gradient, at a single point.
func runEval(outW io.Writer, args []string) error {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	name := fs.String("formula", "", "Name of the formula to evaluate (required).")
	gradVar := fs.String("grad", "", "Evaluate the gradient with respect to this variable instead.")
	values := valuesFlag{}
	fs.Var(values, "set", "Variable value as name=v1,v2,... (repeatable).")
	params := valuesFlag{}
	fs.Var(params, "param", "Parameter value as name=v (repeatable).")
	gradIn := fs.String("gradin", "", "Incoming gradient for -grad as v1,v2,... (default all ones).")

	if ok, err := parseCommand(fs, outW, args); !ok {
		return err
	}
	if *name == "" {
		return usageError("eval: -formula is required")
	}
	doc, err := loadDocument(fs)
	if err != nil {
		return err
	}
	e, err := doc.Formula(*name)
	if err != nil {
		return err
	}

	// Buffers of variables that have no name in the file, keyed by Var.
	extra := make(map[formula.Var][]float64)

	if *gradVar != "" {
		v, ok := doc.Vars[*gradVar]
		if !ok {
			return fmt.Errorf("eval: -grad: variable %q not declared", *gradVar)
		}
		gv := formula.X(doc.NextIndex(), e.Dim())
		g := make([]float64, gv.Dim)
		for i := range g {
			g[i] = 1
		}
		if *gradIn != "" {
			if g, err = parseValues(*gradIn); err != nil {
				return usageError("eval: -gradin: %v", err)
			}
		}
		extra[gv] = g
		e = formula.Grad(e, v, doc.Arena.Var(gv))
		if err := e.Err(); err != nil {
			return err
		}
		slog.Debug("Gradient built", "formula", *name, "variable", *gradVar, "tree", e.String())
	}

	prog, err := formula.Compile[float64](e, formula.Bindings(e))
	if err != nil {
		return err
	}

	argBufs := make([][]float64, len(prog.Slots()))
	for pos, s := range prog.Slots() {
		vn, declared := doc.VarName(s.Var)
		vals, ok := extra[s.Var]
		switch {
		case ok:
			vn = "-gradin"
		case declared:
			if vals, ok = values[vn]; !ok {
				return fmt.Errorf("eval: missing value for variable %q (-set %s=...)", vn, vn)
			}
		default:
			return fmt.Errorf("eval: no value for undeclared variable %s", s.Var)
		}
		if len(vals) != s.Var.Dim {
			return fmt.Errorf("eval: variable %q has dimension %d, got %d values", vn, s.Var.Dim, len(vals))
		}
		argBufs[pos] = vals
	}

	paramBuf := make([]float64, prog.ParamCount())
	given := make(map[formula.Param]bool, len(params))
	for pname, vals := range params {
		p, ok := doc.Params[pname]
		if !ok {
			return fmt.Errorf("eval: parameter %q not declared", pname)
		}
		if len(vals) != 1 {
			return fmt.Errorf("eval: parameter %q takes one value, got %d", pname, len(vals))
		}
		given[p] = true
		if p.Index < len(paramBuf) {
			paramBuf[p.Index] = vals[0]
		}
	}
	for _, p := range e.Params() {
		if !given[p] {
			return fmt.Errorf("eval: missing value for parameter %s", p)
		}
	}

	out := make([]float64, prog.Dim())
	if err := prog.Check(paramBuf, out, argBufs...); err != nil {
		return err
	}
	prog.Eval(paramBuf, out, argBufs...)
	fmt.Fprintln(outW, formatValues(out, " "))
	return nil
}
