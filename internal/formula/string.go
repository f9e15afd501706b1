package formula

import (
	"strconv"
	"strings"
)

// String renders the expression tree, e.g. Scal<Exp<Var<0,1,i>>,Var<1,3,j>>.
func (e Expr) String() string {
	if e.err != nil {
		return "Invalid<" + e.err.Error() + ">"
	}
	if !e.valid() {
		return "Invalid<>"
	}
	var sb strings.Builder
	e.arena.write(&sb, e.id)
	return sb.String()
}

func (a *Arena) write(sb *strings.Builder, id NodeID) {
	n := a.node(id)
	switch n.kind {
	case KindVar:
		sb.WriteString(n.v.String())
		return
	case KindZero:
		sb.WriteString("Zero<")
		sb.WriteString(strconv.Itoa(n.dim))
		sb.WriteByte('>')
		return
	case KindIntConstant:
		sb.WriteString("IntConstant<")
		sb.WriteString(strconv.Itoa(n.n))
		sb.WriteByte('>')
		return
	case KindConstant:
		sb.WriteString("Constant<")
		sb.WriteString(Param{Index: n.n}.String())
		sb.WriteByte('>')
		return
	}

	sb.WriteString(n.kind.String())
	sb.WriteByte('<')
	a.write(sb, n.a)
	if n.b != noNode {
		sb.WriteByte(',')
		a.write(sb, n.b)
	}
	if n.kind == KindPow {
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(n.n))
	}
	sb.WriteByte('>')
}
