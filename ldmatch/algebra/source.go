// Package algebra implements the binding algebra: a small set of composable
// operators over restartable streams of bindings.
//
// A Source is a pure description of a stream (an expression tree). Nothing is
// evaluated until an Algebra enumerates it, and enumerating the same Source
// twice yields the same sequence. Sources are not memoized: a shared
// sub-expression is recomputed every time a consumer walks it.
package algebra

import (
	"fmt"
	"strings"

	"github.com/wbrown/janus-ldmatch/ldmatch"
)

// Op tags the variant held by a Source
type Op uint8

const (
	OpSingle Op = iota
	OpTable
	OpMultiply
	OpUnion
	OpExtend
	OpJoin
	OpProject
	OpFault
)

func (op Op) String() string {
	switch op {
	case OpSingle:
		return "single"
	case OpTable:
		return "table"
	case OpMultiply:
		return "multiply"
	case OpUnion:
		return "union"
	case OpExtend:
		return "extend"
	case OpJoin:
		return "join"
	case OpProject:
		return "project"
	case OpFault:
		return "fault"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// Source is one node of a binding expression.
//
// Field use per Op:
//   - Single, Table: rows
//   - Multiply: children[0], times
//   - Union: children
//   - Extend: children[0], with
//   - Join: children[0] (left), children[1] (right)
//   - Project: children[0], vars
//   - Fault: err
type Source struct {
	op       Op
	rows     []ldmatch.Binding
	times    int
	children []*Source
	with     ldmatch.Binding
	vars     []string
	err      error
}

// Op returns the operator of this node
func (s *Source) Op() Op {
	return s.op
}

// Children returns the operand sources of this node
func (s *Source) Children() []*Source {
	return s.children
}

// Nodes counts the nodes of the expression, shared nodes counted per use
func (s *Source) Nodes() int {
	n := 1
	for _, c := range s.children {
		n += c.Nodes()
	}
	return n
}

// String renders the expression, e.g. join(union(single{?x: <s1>}), single{})
func (s *Source) String() string {
	var sb strings.Builder
	s.write(&sb)
	return sb.String()
}

func (s *Source) write(sb *strings.Builder) {
	switch s.op {
	case OpSingle:
		sb.WriteString("single")
		sb.WriteString(s.rows[0].String())
		return
	case OpTable:
		sb.WriteString("table[")
		for i, r := range s.rows {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(r.String())
		}
		sb.WriteString("]")
		return
	case OpFault:
		fmt.Fprintf(sb, "fault(%v)", s.err)
		return
	}

	sb.WriteString(s.op.String())
	sb.WriteString("(")
	for i, c := range s.children {
		if i > 0 {
			sb.WriteString(", ")
		}
		c.write(sb)
	}
	switch s.op {
	case OpMultiply:
		fmt.Fprintf(sb, ", %d", s.times)
	case OpExtend:
		sb.WriteString(", ")
		sb.WriteString(s.with.String())
	case OpProject:
		fmt.Fprintf(sb, ", %v", s.vars)
	}
	sb.WriteString(")")
}
