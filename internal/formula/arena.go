// Package formula implements symbolic formulas over indexed point sets and
// their reverse-mode differentiation by tree rewriting.
//
// Architecture:
//   - Arena: append-only store of immutable nodes addressed by NodeID
//   - Expr: value handle on an arena node, carrying any construction error
//   - Operators: Add, Scal, Pow, Exp, Log, Scalprod are primitive; Minus,
//     Subtract, Divide, Sqrt, SqDist, GaussKernel and friends are built from them
//   - Grad: rewrites a formula into the formula of its vector-Jacobian product
//   - Compile: flattens a formula into a Program evaluated once per point
//
// Usage:
//
//	a := formula.NewArena()
//	x := a.Var(formula.X(0, 3))
//	y := a.Var(formula.Y(1, 3))
//	b := a.Var(formula.Y(2, 1))
//	k := a.GaussKernel(formula.P(0), x, y, b)
//
//	g := a.Var(formula.X(3, 1))
//	dk := formula.Grad(k, formula.X(0, 3), g) // adjoint w.r.t. x, dim 3
//
//	prog, err := formula.Compile[float64](dk, []int{0, 1, 2, 3})
//
// All dimension checks happen while the formula is built. A rejected
// operation returns an Expr whose Err is set; every expression built on top of
// it carries the same error, and Compile refuses it.
package formula

import (
	"fmt"
	"slices"
	"sync"
)

// Kind identifies a primitive node type.
type Kind uint8

// Primitive node kinds. Every other operator is an alias built from these.
const (
	KindInvalid Kind = iota
	KindVar
	KindZero
	KindIntConstant
	KindConstant
	KindAdd
	KindScal
	KindPow
	KindExp
	KindLog
	KindScalprod
)

var kindNames = [...]string{
	KindInvalid:     "Invalid",
	KindVar:         "Var",
	KindZero:        "Zero",
	KindIntConstant: "IntConstant",
	KindConstant:    "Constant",
	KindAdd:         "Add",
	KindScal:        "Scal",
	KindPow:         "Pow",
	KindExp:         "Exp",
	KindLog:         "Log",
	KindScalprod:    "Scalprod",
}

// String returns the operator name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// NodeID addresses a node inside its Arena.
type NodeID int32

const noNode NodeID = -1

type node struct {
	kind   Kind
	dim    int
	a, b   NodeID  // operands, noNode when absent
	v      Var     // KindVar
	n      int     // KindIntConstant value, KindPow exponent, KindConstant parameter index
	vars   []Var   // transitive variable dependencies, sorted by compareVars
	params []Param // transitive parameter dependencies, sorted by index
}

// Arena owns the nodes of one or more formulas.
//
// Nodes are appended and never modified, so an Expr stays valid for the
// lifetime of its arena. Construction is expected to happen before any
// evaluation; the lock only guards against concurrent builders.
type Arena struct {
	mu    sync.RWMutex
	nodes []node
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Len returns the number of nodes stored in the arena.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.nodes)
}

func (a *Arena) push(n node) Expr {
	a.mu.Lock()
	id := NodeID(len(a.nodes))
	a.nodes = append(a.nodes, n)
	a.mu.Unlock()
	return Expr{arena: a, id: id}
}

func (a *Arena) node(id NodeID) node {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.nodes[id]
}

func (a *Arena) expr(id NodeID) Expr {
	return Expr{arena: a, id: id}
}

func (a *Arena) fail(err error) Expr {
	return Expr{arena: a, id: noNode, err: err}
}

// operands checks that every operand is a valid expression of this arena.
// It returns the first construction error found.
func (a *Arena) operands(op string, xs ...Expr) error {
	for _, x := range xs {
		if x.err != nil {
			return x.err
		}
		if x.arena == nil {
			return fmt.Errorf("%s: %w", op, ErrInvalidExpr)
		}
		if x.arena != a {
			return fmt.Errorf("%s: %w", op, ErrForeignExpr)
		}
	}
	return nil
}

// Expr is a handle on an immutable formula node.
//
// The zero Expr is invalid. An Expr produced by a rejected operation has a
// non-nil Err and a dimension of 0.
type Expr struct {
	arena *Arena
	id    NodeID
	err   error
}

// Arena returns the arena owning the expression.
func (e Expr) Arena() *Arena {
	return e.arena
}

// ID returns the node index inside the arena.
func (e Expr) ID() NodeID {
	return e.id
}

// Err returns the construction error carried by the expression, if any.
func (e Expr) Err() error {
	if e.err != nil {
		return e.err
	}
	if e.arena == nil {
		return ErrInvalidExpr
	}
	return nil
}

func (e Expr) valid() bool {
	return e.err == nil && e.arena != nil && e.id != noNode
}

func (e Expr) node() (node, bool) {
	if !e.valid() {
		return node{}, false
	}
	return e.arena.node(e.id), true
}

// Kind returns the primitive kind of the root node.
func (e Expr) Kind() Kind {
	n, _ := e.node()
	return n.kind
}

// Dim returns the output dimension of the expression.
func (e Expr) Dim() int {
	n, _ := e.node()
	return n.dim
}

// IsZero reports whether the expression is the canonical Zero node.
// A formula that merely evaluates to zero is not Zero.
func (e Expr) IsZero() bool {
	return e.Kind() == KindZero
}

// Vars returns the variables the expression depends on, ordered by category,
// index and dimension.
func (e Expr) Vars() []Var {
	n, _ := e.node()
	return slices.Clone(n.vars)
}

// VarsOf returns the dependencies of category cat.
func (e Expr) VarsOf(cat Category) []Var {
	n, _ := e.node()
	var out []Var
	for _, v := range n.vars {
		if v.Cat == cat {
			out = append(out, v)
		}
	}
	return out
}

// Params returns the parameters the expression reads, ordered by index.
func (e Expr) Params() []Param {
	n, _ := e.node()
	return slices.Clone(n.params)
}

// DependsOn reports whether v appears in the expression.
func (e Expr) DependsOn(v Var) bool {
	n, _ := e.node()
	return n.dependsOn(v)
}

func (n node) dependsOn(v Var) bool {
	_, found := slices.BinarySearchFunc(n.vars, v, compareVars)
	return found
}

// Bindings returns the distinct variable indices e depends on, in increasing
// order. It is a ready-made binding list for Compile.
func Bindings(e Expr) []int {
	var out []int
	for _, v := range e.Vars() {
		if !slices.Contains(out, v.Index) {
			out = append(out, v.Index)
		}
	}
	slices.Sort(out)
	return out
}

func mergeVars(x, y []Var) []Var {
	if len(y) == 0 {
		return x
	}
	if len(x) == 0 {
		return y
	}
	out := make([]Var, 0, len(x)+len(y))
	out = append(out, x...)
	for _, v := range y {
		if i, found := slices.BinarySearchFunc(out, v, compareVars); !found {
			out = slices.Insert(out, i, v)
		}
	}
	return out
}

func mergeParams(x, y []Param) []Param {
	if len(y) == 0 {
		return x
	}
	if len(x) == 0 {
		return y
	}
	out := slices.Clone(x)
	for _, p := range y {
		i, found := slices.BinarySearchFunc(out, p, func(a, b Param) int { return a.Index - b.Index })
		if !found {
			out = slices.Insert(out, i, p)
		}
	}
	return out
}
