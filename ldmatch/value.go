package ldmatch

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BlankPrefix marks blank node identifiers. Blank nodes in a pattern are
// always treated as unnamed variables.
const BlankPrefix = "_:"

// IsBlank reports whether id is a blank node identifier
func IsBlank(id string) bool {
	return strings.HasPrefix(id, BlankPrefix)
}

// Kind identifies which variant a Value holds
type Kind uint8

const (
	KindInvalid Kind = iota
	KindIRI
	KindBlank
	KindLiteral
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// Value is a graph value: a node reference, a literal or a list.
// Values are compared through an Equality, never by identity, because the
// same value can be serialized in more than one shape.
//
// Valid literal payloads:
// - string
// - int64
// - float64
// - bool
type Value struct {
	kind     Kind
	id       string      // IRI or blank node identifier
	lit      interface{} // literal payload
	datatype string      // literal datatype IRI
	language string      // literal language tag
	items    []Value     // list members
}

// NewIRI creates a reference to a named node
func NewIRI(iri string) Value {
	return Value{kind: KindIRI, id: iri}
}

// NewBlank creates a reference to a blank node
func NewBlank(id string) Value {
	if !IsBlank(id) {
		id = BlankPrefix + id
	}
	return Value{kind: KindBlank, id: id}
}

// NewRef creates a node reference, choosing blank or IRI from the identifier
func NewRef(id string) Value {
	if IsBlank(id) {
		return Value{kind: KindBlank, id: id}
	}
	return Value{kind: KindIRI, id: id}
}

// NewLiteral creates a literal from a native Go value.
// Integer widths normalize to int64 and float widths to float64. Unsigned
// values past math.MaxInt64 keep their digits as an xsd:integer.
func NewLiteral(v interface{}) Value {
	switch val := v.(type) {
	case string, int64, float64, bool:
		return Value{kind: KindLiteral, lit: val}
	case int:
		return Value{kind: KindLiteral, lit: int64(val)}
	case int8:
		return Value{kind: KindLiteral, lit: int64(val)}
	case int16:
		return Value{kind: KindLiteral, lit: int64(val)}
	case int32:
		return Value{kind: KindLiteral, lit: int64(val)}
	case uint:
		return NewLiteral(uint64(val))
	case uint8:
		return Value{kind: KindLiteral, lit: int64(val)}
	case uint16:
		return Value{kind: KindLiteral, lit: int64(val)}
	case uint32:
		return Value{kind: KindLiteral, lit: int64(val)}
	case uint64:
		if val > math.MaxInt64 {
			return Value{kind: KindLiteral, lit: strconv.FormatUint(val, 10), datatype: XSD + "integer"}
		}
		return Value{kind: KindLiteral, lit: int64(val)}
	case float32:
		return Value{kind: KindLiteral, lit: float64(val)}
	default:
		return Value{kind: KindLiteral, lit: fmt.Sprintf("%v", val)}
	}
}

// NewTypedLiteral creates a literal with an explicit datatype IRI
func NewTypedLiteral(v interface{}, datatype string) Value {
	val := NewLiteral(v)
	val.datatype = datatype
	return val
}

// NewLangString creates a language-tagged string literal
func NewLangString(s, language string) Value {
	return Value{kind: KindLiteral, lit: s, language: strings.ToLower(language)}
}

// NewList creates an ordered list value
func NewList(items ...Value) Value {
	var copied []Value
	if len(items) > 0 {
		copied = make([]Value, len(items))
		copy(copied, items)
	}
	return Value{kind: KindList, items: copied}
}

// Kind returns the variant held by the value
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v is the invalid zero Value
func (v Value) IsZero() bool { return v.kind == KindInvalid }

// IsRef reports whether v references a node (IRI or blank)
func (v Value) IsRef() bool { return v.kind == KindIRI || v.kind == KindBlank }

// ID returns the identifier of an IRI or blank node, "" otherwise
func (v Value) ID() string { return v.id }

// Literal returns the native literal payload, nil for non-literals
func (v Value) Literal() interface{} { return v.lit }

// Datatype returns the literal datatype IRI
func (v Value) Datatype() string { return v.datatype }

// Language returns the literal language tag
func (v Value) Language() string { return v.language }

// Items returns the members of a list value
func (v Value) Items() []Value { return v.items }

// Lexical returns the lexical form of a literal payload
func (v Value) Lexical() string {
	switch val := v.lit.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

// String returns a compact, N-Triples flavoured representation
func (v Value) String() string {
	switch v.kind {
	case KindIRI:
		return "<" + v.id + ">"
	case KindBlank:
		return v.id
	case KindLiteral:
		var s string
		if _, ok := v.lit.(string); ok {
			s = strconv.Quote(v.Lexical())
		} else {
			s = v.Lexical()
		}
		if v.language != "" {
			return s + "@" + v.language
		}
		if v.datatype != "" {
			return s + "^^<" + v.datatype + ">"
		}
		return s
	case KindList:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return "<invalid>"
	}
}
