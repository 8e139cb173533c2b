package ldmatch

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// XSD is the XML Schema datatype namespace
const XSD = "http://www.w3.org/2001/XMLSchema#"

// RDFType is the IRI that JSON-LD @type values are attached to
const RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// RDFJSON is the datatype of JSON literals; their payload is the JSON text
const RDFJSON = "http://www.w3.org/1999/02/22-rdf-syntax-ns#JSON"

// Equality decides whether two values denote the same graph value.
// It must be symmetric and must not panic.
type Equality func(a, b Value) bool

var numericDatatypes = map[string]bool{
	XSD + "integer":            true,
	XSD + "decimal":            true,
	XSD + "double":             true,
	XSD + "float":              true,
	XSD + "long":               true,
	XSD + "int":                true,
	XSD + "short":              true,
	XSD + "byte":               true,
	XSD + "nonNegativeInteger": true,
	XSD + "positiveInteger":    true,
	XSD + "negativeInteger":    true,
	XSD + "nonPositiveInteger": true,
	XSD + "unsignedLong":       true,
	XSD + "unsignedInt":        true,
}

// decimalLexical is the lexical space shared by xsd:decimal and its integer
// subtypes
var decimalLexical = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)

// approximateDatatypes hold IEEE 754 values; comparisons involving them are
// made in float64
var approximateDatatypes = map[string]bool{
	XSD + "double": true,
	XSD + "float":  true,
}

// CompareValues is the default Equality.
//
// Node references are equal when they are of the same kind and have the same
// identifier. Literals are equal when their language tags match and either
// both are numeric and numerically equal (so 1, 1.0 and "01"^^xsd:integer are
// the same value), or their datatypes and payloads match exactly. Integers and
// decimals compare exactly at any magnitude; float64 is used only when one
// side is a native float or an xsd:double/xsd:float. Lists are compared
// element-wise.
func CompareValues(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}

	switch a.kind {
	case KindIRI, KindBlank:
		return a.id == b.id
	case KindLiteral:
		if a.language != b.language {
			return false
		}
		if na, ok := numericValue(a); ok {
			if nb, ok := numericValue(b); ok {
				return na.equal(nb)
			}
			return false
		}
		if a.datatype != b.datatype {
			return false
		}
		return literalPayloadEqual(a.lit, b.lit)
	case KindList:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !CompareValues(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// number is a numeric literal. Exact numbers carry a rational, approximate
// ones a float64.
type number struct {
	exact *big.Rat
	float float64
}

func (n number) approx() float64 {
	if n.exact == nil {
		return n.float
	}
	f, _ := n.exact.Float64()
	return f
}

func (n number) equal(o number) bool {
	if n.exact != nil && o.exact != nil {
		return n.exact.Cmp(o.exact) == 0
	}
	return n.approx() == o.approx()
}

// numericValue extracts the numeric value of a literal, if it has one
func numericValue(v Value) (number, bool) {
	switch val := v.lit.(type) {
	case int64:
		if v.datatype == "" || numericDatatypes[v.datatype] {
			return number{exact: new(big.Rat).SetInt64(val)}, true
		}
	case float64:
		if math.IsNaN(val) {
			return number{}, false
		}
		if v.datatype == "" || numericDatatypes[v.datatype] {
			return number{float: val}, true
		}
	case string:
		if !numericDatatypes[v.datatype] {
			break
		}
		lexical := strings.TrimSpace(val)
		if approximateDatatypes[v.datatype] {
			f, err := strconv.ParseFloat(lexical, 64)
			if err != nil || math.IsNaN(f) {
				break
			}
			return number{float: f}, true
		}
		if !decimalLexical.MatchString(lexical) {
			break
		}
		r, ok := new(big.Rat).SetString(lexical)
		if !ok {
			break
		}
		return number{exact: r}, true
	}
	return number{}, false
}

func literalPayloadEqual(left, right interface{}) bool {
	switch l := left.(type) {
	case string:
		r, ok := right.(string)
		return ok && l == r
	case bool:
		r, ok := right.(bool)
		return ok && l == r
	case int64:
		r, ok := right.(int64)
		return ok && l == r
	case float64:
		r, ok := right.(float64)
		return ok && l == r
	default:
		return left == nil && right == nil
	}
}
