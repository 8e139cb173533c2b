package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/wbrown/janus-ldmatch/ldmatch"
)

// Line is one JSON lines record: a binding produced by a named match
type Line struct {
	Match   string                 `json:"match"`
	Binding map[string]interface{} `json:"binding"`
}

// WriteJSONLines writes one JSON object per binding to w
func WriteJSONLines(w io.Writer, name string, rows []ldmatch.Binding) error {
	enc := json.NewEncoder(w)
	for i, b := range rows {
		if err := enc.Encode(NewLine(name, b)); err != nil {
			return fmt.Errorf("writing binding %d of %s: %w", i, name, err)
		}
	}
	return nil
}

// NewLine converts a binding into its JSON lines record
func NewLine(name string, b ldmatch.Binding) Line {
	line := Line{Match: name, Binding: make(map[string]interface{}, b.Len())}
	b.Each(func(variable string, value ldmatch.Value) {
		line.Binding[variable] = ValueJSON(value)
	})
	return line
}

// ValueJSON renders a value in JSON-LD expanded form: node references as
// {"@id"}, lists as {"@list"}, typed or tagged literals as value objects and
// plain literals as native JSON values
func ValueJSON(v ldmatch.Value) interface{} {
	switch v.Kind() {
	case ldmatch.KindIRI, ldmatch.KindBlank:
		return map[string]interface{}{"@id": v.ID()}
	case ldmatch.KindList:
		items := make([]interface{}, len(v.Items()))
		for i, item := range v.Items() {
			items[i] = ValueJSON(item)
		}
		return map[string]interface{}{"@list": items}
	case ldmatch.KindLiteral:
		switch {
		case v.Language() != "":
			return map[string]interface{}{"@value": v.Literal(), "@language": v.Language()}
		case v.Datatype() != "":
			return map[string]interface{}{"@value": v.Literal(), "@type": v.Datatype()}
		default:
			return v.Literal()
		}
	default:
		return nil
	}
}
