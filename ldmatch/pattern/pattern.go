// Package pattern compiles graph patterns into binding algebra expressions.
//
// A pattern has the shape of a flattened graph (subjects, predicates and
// object lists) where any position may hold a variable. Compilation mirrors
// that nesting: objects are matched under a predicate, predicates under a
// subject, and subjects against the whole graph, with every list combined by
// join.
package pattern

import (
	"github.com/wbrown/janus-ldmatch/ldmatch"
)

// Pattern is a flattened graph pattern together with its declared variables
type Pattern struct {
	Subjects []*ldmatch.Node
	Vars     []string

	declared map[string]bool
}

// NewPattern creates a pattern over subjects declaring vars as variables
func NewPattern(subjects []*ldmatch.Node, vars []string) *Pattern {
	p := &Pattern{
		Subjects: subjects,
		Vars:     make([]string, len(vars)),
		declared: make(map[string]bool, len(vars)),
	}
	copy(p.Vars, vars)
	for _, v := range vars {
		p.declared[v] = true
	}
	return p
}

// IsDeclared reports whether id is one of the declared variables
func (p *Pattern) IsDeclared(id string) bool {
	return p.declared[id]
}

// IsVariable reports whether id is a variable position: a blank node
// identifier or a declared variable
func (p *Pattern) IsVariable(id string) bool {
	return ldmatch.IsBlank(id) || p.declared[id]
}

// ObjectVariable returns the variable held by an object position, if any.
//
// Node references are variables when their identifier is. A plain string
// literal is a variable only when its text is a declared variable, since
// patterns written without an @id coercion serialize "?x" as a string.
func (p *Pattern) ObjectVariable(object ldmatch.Value) (string, bool) {
	switch object.Kind() {
	case ldmatch.KindIRI, ldmatch.KindBlank:
		if p.IsVariable(object.ID()) {
			return object.ID(), true
		}
	case ldmatch.KindLiteral:
		if object.Datatype() != "" || object.Language() != "" {
			return "", false
		}
		if s, ok := object.Literal().(string); ok && p.declared[s] {
			return s, true
		}
	}
	return "", false
}
