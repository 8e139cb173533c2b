package ldmatch

import (
	"sort"
	"strings"
)

// Entry is one variable assignment within a Binding
type Entry struct {
	Var   string
	Value Value
}

// Binding assigns values to variables. It is one candidate solution of a
// pattern. Bindings are immutable: every operation returns a new Binding and
// never shares a mutable buffer with its inputs.
//
// Entries are kept sorted by variable name, and the empty binding always has a
// nil entry slice, so two bindings with the same assignments are structurally
// identical.
type Binding struct {
	entries []Entry
}

// EmptyBinding returns the binding with no assignments
func EmptyBinding() Binding {
	return Binding{}
}

// Bind creates a binding with a single assignment
func Bind(variable string, value Value) Binding {
	return Binding{entries: []Entry{{Var: variable, Value: value}}}
}

// NewBinding creates a binding from a map of assignments
func NewBinding(values map[string]Value) Binding {
	if len(values) == 0 {
		return Binding{}
	}
	entries := make([]Entry, 0, len(values))
	for k, v := range values {
		entries = append(entries, Entry{Var: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Var < entries[j].Var })
	return Binding{entries: entries}
}

// Len returns the number of assigned variables
func (b Binding) Len() int {
	return len(b.entries)
}

// IsEmpty reports whether the binding has no assignments
func (b Binding) IsEmpty() bool {
	return len(b.entries) == 0
}

func (b Binding) index(variable string) (int, bool) {
	i := sort.Search(len(b.entries), func(i int) bool { return b.entries[i].Var >= variable })
	return i, i < len(b.entries) && b.entries[i].Var == variable
}

// Get returns the value assigned to variable
func (b Binding) Get(variable string) (Value, bool) {
	if i, ok := b.index(variable); ok {
		return b.entries[i].Value, true
	}
	return Value{}, false
}

// Has reports whether variable is assigned
func (b Binding) Has(variable string) bool {
	_, ok := b.index(variable)
	return ok
}

// Vars returns the assigned variables in sorted order
func (b Binding) Vars() []string {
	vars := make([]string, len(b.entries))
	for i, e := range b.entries {
		vars[i] = e.Var
	}
	return vars
}

// Entries returns a copy of the assignments in variable order
func (b Binding) Entries() []Entry {
	if len(b.entries) == 0 {
		return nil
	}
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Each calls fn for every assignment in variable order
func (b Binding) Each(fn func(variable string, value Value)) {
	for _, e := range b.entries {
		fn(e.Var, e.Value)
	}
}

// Map returns the assignments as a fresh map
func (b Binding) Map() map[string]Value {
	m := make(map[string]Value, len(b.entries))
	for _, e := range b.entries {
		m[e.Var] = e.Value
	}
	return m
}

// Compatible reports whether other can extend b: every variable of other
// that b already assigns must hold an equal value.
func (b Binding) Compatible(other Binding, eq Equality) bool {
	// Both sides are sorted, walk them together
	i, j := 0, 0
	for i < len(b.entries) && j < len(other.entries) {
		switch {
		case b.entries[i].Var < other.entries[j].Var:
			i++
		case b.entries[i].Var > other.entries[j].Var:
			j++
		default:
			if !eq(other.entries[j].Value, b.entries[i].Value) {
				return false
			}
			i++
			j++
		}
	}
	return true
}

// Merge returns b extended with the assignments of other that b lacks.
// Values already in b are never overwritten.
func (b Binding) Merge(other Binding) Binding {
	if len(other.entries) == 0 {
		return b
	}
	if len(b.entries) == 0 {
		return other
	}

	merged := make([]Entry, 0, len(b.entries)+len(other.entries))
	i, j := 0, 0
	for i < len(b.entries) && j < len(other.entries) {
		switch {
		case b.entries[i].Var < other.entries[j].Var:
			merged = append(merged, b.entries[i])
			i++
		case b.entries[i].Var > other.entries[j].Var:
			merged = append(merged, other.entries[j])
			j++
		default:
			merged = append(merged, b.entries[i])
			i++
			j++
		}
	}
	merged = append(merged, b.entries[i:]...)
	merged = append(merged, other.entries[j:]...)
	return Binding{entries: merged}
}

// Project keeps only the assignments of vars that b actually has.
// Variables b never bound are omitted, not materialized.
func (b Binding) Project(vars []string) Binding {
	var kept []Entry
	for _, e := range b.entries {
		for _, v := range vars {
			if v == e.Var {
				kept = append(kept, e)
				break
			}
		}
	}
	return Binding{entries: kept}
}

// Equal reports whether both bindings assign the same variables to values
// that are equal under eq
func (b Binding) Equal(other Binding, eq Equality) bool {
	if len(b.entries) != len(other.entries) {
		return false
	}
	for i := range b.entries {
		if b.entries[i].Var != other.entries[i].Var {
			return false
		}
		if !eq(b.entries[i].Value, other.entries[i].Value) {
			return false
		}
	}
	return true
}

// String renders the binding as {?x: <s1>, ?y: "v1"}
func (b Binding) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, e := range b.entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.Var)
		sb.WriteString(": ")
		sb.WriteString(e.Value.String())
	}
	sb.WriteByte('}')
	return sb.String()
}
