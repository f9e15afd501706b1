package formula

import (
	"fmt"
	"math"
)

// Float is the constraint for evaluation scalars.
type Float interface {
	~float32 | ~float64
}

// Slot describes one argument position of a Program.
type Slot struct {
	Var  Var  // Variable read from this position.
	Used bool // False when no variable of the formula is bound here.
}

type instr struct {
	kind Kind
	dim  int
	off  int // output offset in scratch
	x, y int // operand offsets in scratch
	xdim int // dimension of the first operand
	arg  int // argument position (KindVar) or parameter index (KindConstant)
	n    int // constant value or exponent
}

// Program is a formula flattened into straight-line code for one binding list.
//
// A Program is immutable and safe for concurrent use; per-goroutine scratch
// space lives in an Evaluator.
type Program[T Float] struct {
	code       []instr
	scratch    int
	dim        int
	out        int
	bindings   []int
	slots      []Slot
	paramCount int
	source     string
}

// Compile flattens e into a Program whose i-th argument buffer feeds the
// variable with index bindings[i]. When an index appears more than once the
// first position wins.
//
// Compile fails if e carries a construction error, if a variable of e has no
// position in bindings, or if two distinct variables share a position.
func Compile[T Float](e Expr, bindings []int) (*Program[T], error) {
	if err := e.Err(); err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	if !e.valid() {
		return nil, fmt.Errorf("compile: %w", ErrInvalidExpr)
	}

	p := &Program[T]{
		bindings: append([]int(nil), bindings...),
		slots:    make([]Slot, len(bindings)),
		source:   e.String(),
	}
	for _, prm := range e.Params() {
		p.paramCount = max(p.paramCount, prm.Index+1)
	}

	offsets := make(map[NodeID]int)
	if err := p.emit(e.arena, e.id, offsets); err != nil {
		return nil, fmt.Errorf("compile %s: %w", p.source, err)
	}
	p.out = offsets[e.id]
	p.dim = e.Dim()
	return p, nil
}

// emit appends the instructions of node id after those of its operands.
// Shared operands are emitted once.
func (p *Program[T]) emit(a *Arena, id NodeID, offsets map[NodeID]int) error {
	if _, done := offsets[id]; done {
		return nil
	}
	n := a.node(id)
	in := instr{kind: n.kind, dim: n.dim, n: n.n}

	if n.a != noNode {
		if err := p.emit(a, n.a, offsets); err != nil {
			return err
		}
		in.x = offsets[n.a]
		in.xdim = a.node(n.a).dim
	}
	if n.b != noNode {
		if err := p.emit(a, n.b, offsets); err != nil {
			return err
		}
		in.y = offsets[n.b]
	}

	switch n.kind {
	case KindVar:
		pos, err := p.bind(n.v)
		if err != nil {
			return err
		}
		in.arg = pos
	case KindConstant:
		in.arg = n.n
	}

	in.off = p.scratch
	p.scratch += n.dim
	offsets[id] = in.off
	p.code = append(p.code, in)
	return nil
}

func (p *Program[T]) bind(v Var) (int, error) {
	for pos, idx := range p.bindings {
		if idx != v.Index {
			continue
		}
		s := &p.slots[pos]
		if s.Used && s.Var != v {
			return 0, fmt.Errorf("%s and %s at position %d: %w", s.Var, v, pos, ErrBindingConflict)
		}
		s.Var, s.Used = v, true
		return pos, nil
	}
	return 0, fmt.Errorf("%s not in %v: %w", v, p.bindings, ErrUnboundVar)
}

// Dim returns the output dimension.
func (p *Program[T]) Dim() int { return p.dim }

// ScratchSize returns the number of scalars of scratch space an Evaluator needs.
func (p *Program[T]) ScratchSize() int { return p.scratch }

// Bindings returns a copy of the binding list.
func (p *Program[T]) Bindings() []int { return append([]int(nil), p.bindings...) }

// Slots returns the variable bound at each argument position.
func (p *Program[T]) Slots() []Slot { return append([]Slot(nil), p.slots...) }

// ParamCount returns the minimum length of the parameter buffer.
func (p *Program[T]) ParamCount() int { return p.paramCount }

// String returns the source formula.
func (p *Program[T]) String() string { return p.source }

// Check validates buffer sizes for one evaluation. Eval itself does not
// check; call Check once before running Eval in a loop.
func (p *Program[T]) Check(params, out []T, args ...[]T) error {
	if len(out) < p.dim {
		return fmt.Errorf("output has %d scalars, need %d: %w", len(out), p.dim, ErrBufferSize)
	}
	if len(params) < p.paramCount {
		return fmt.Errorf("parameters have %d scalars, need %d: %w", len(params), p.paramCount, ErrBufferSize)
	}
	if len(args) != len(p.slots) {
		return fmt.Errorf("got %d argument buffers, need %d: %w", len(args), len(p.slots), ErrBufferSize)
	}
	for pos, s := range p.slots {
		if s.Used && len(args[pos]) < s.Var.Dim {
			return fmt.Errorf("argument %d (%s) has %d scalars: %w", pos, s.Var, len(args[pos]), ErrBufferSize)
		}
	}
	return nil
}

// NewEvaluator allocates the scratch space for one goroutine.
func (p *Program[T]) NewEvaluator() *Evaluator[T] {
	return &Evaluator[T]{prog: p, scratch: make([]T, p.scratch)}
}

// Eval evaluates the program once with a freshly allocated scratch buffer.
func (p *Program[T]) Eval(params, out []T, args ...[]T) {
	p.NewEvaluator().Eval(params, out, args...)
}

// Evaluator runs a Program with private scratch space. It is not safe for
// concurrent use; give each goroutine its own.
type Evaluator[T Float] struct {
	prog    *Program[T]
	scratch []T
}

// Program returns the program being evaluated.
func (ev *Evaluator[T]) Program() *Program[T] { return ev.prog }

// Eval writes the formula value for one point into out[:Dim()].
// args[i] holds the value of the variable bound at position i.
// Eval does not allocate.
func (ev *Evaluator[T]) Eval(params, out []T, args ...[]T) {
	s := ev.scratch
	for i := range ev.prog.code {
		in := &ev.prog.code[i]
		dst := s[in.off : in.off+in.dim]
		switch in.kind {
		case KindVar:
			copy(dst, args[in.arg][:in.dim])
		case KindZero:
			clear(dst)
		case KindIntConstant:
			dst[0] = T(in.n)
		case KindConstant:
			dst[0] = params[in.arg]
		case KindAdd:
			x, y := s[in.x:in.x+in.dim], s[in.y:in.y+in.dim]
			for k := range dst {
				dst[k] = x[k] + y[k]
			}
		case KindScal:
			c, y := s[in.x], s[in.y:in.y+in.dim]
			for k := range dst {
				dst[k] = c * y[k]
			}
		case KindPow:
			dst[0] = powInt(s[in.x], in.n)
		case KindExp:
			dst[0] = T(math.Exp(float64(s[in.x])))
		case KindLog:
			dst[0] = T(math.Log(float64(s[in.x])))
		case KindScalprod:
			x, y := s[in.x:in.x+in.xdim], s[in.y:in.y+in.xdim]
			var acc T
			for k := range x {
				acc += x[k] * y[k]
			}
			dst[0] = acc
		default:
			panic(fmt.Sprintf("formula: eval: unexpected node kind %s", in.kind))
		}
	}
	p := ev.prog
	copy(out[:p.dim], s[p.out:p.out+p.dim])
}

// powInt computes x^m by repeated squaring.
func powInt[T Float](x T, m int) T {
	e := uint64(m)
	if m < 0 {
		e = -e
	}
	r := T(1)
	for e > 0 {
		if e&1 == 1 {
			r *= x
		}
		x *= x
		e >>= 1
	}
	if m < 0 {
		return 1 / r
	}
	return r
}
