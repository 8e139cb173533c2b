package jsonld

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/wbrown/janus-ldmatch/ldmatch"
)

// FromFlattened converts the expanded output of a flatten call into a graph.
//
// v is either a list of node objects or a map holding them under @graph.
// Node objects without an @id are rejected; everything else that is not a
// JSON-LD keyword becomes a predicate.
func FromFlattened(v interface{}) (ldmatch.MemoryGraph, error) {
	var items []interface{}
	switch doc := v.(type) {
	case nil:
		return ldmatch.MemoryGraph{}, nil
	case []interface{}:
		items = doc
	case map[string]interface{}:
		g, ok := doc["@graph"]
		if !ok {
			items = []interface{}{doc}
			break
		}
		list, ok := g.([]interface{})
		if !ok {
			return nil, fmt.Errorf("@graph is %T, expected a list", g)
		}
		items = list
	default:
		return nil, fmt.Errorf("unexpected flattened document type %T", v)
	}

	graph := make(ldmatch.MemoryGraph, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("graph entry %d is %T, expected a node object", i, item)
		}
		node, err := convertNode(obj)
		if err != nil {
			return nil, fmt.Errorf("graph entry %d: %w", i, err)
		}
		graph = append(graph, node)
	}
	return graph, nil
}

func convertNode(obj map[string]interface{}) (*ldmatch.Node, error) {
	id, ok := obj["@id"].(string)
	if !ok {
		return nil, fmt.Errorf("node object has no @id")
	}
	node := ldmatch.NewNode(id)

	if types, ok := obj["@type"]; ok {
		for _, t := range asList(types) {
			s, ok := t.(string)
			if !ok {
				return nil, fmt.Errorf("@type value is %T, expected a string", t)
			}
			node.Add(ldmatch.RDFType, ldmatch.NewRef(s))
		}
	}

	for _, predicate := range slices.Sorted(maps.Keys(obj)) {
		if isKeyword(predicate) {
			continue
		}
		for _, raw := range asList(obj[predicate]) {
			value, err := convertValue(raw)
			if err != nil {
				return nil, fmt.Errorf("predicate %s: %w", predicate, err)
			}
			node.Add(predicate, value)
		}
	}
	return node, nil
}

func convertValue(raw interface{}) (ldmatch.Value, error) {
	switch v := raw.(type) {
	case map[string]interface{}:
		if id, ok := v["@id"].(string); ok {
			return ldmatch.NewRef(id), nil
		}
		if list, ok := v["@list"]; ok {
			var items []ldmatch.Value
			for _, item := range asList(list) {
				value, err := convertValue(item)
				if err != nil {
					return ldmatch.Value{}, err
				}
				items = append(items, value)
			}
			return ldmatch.NewList(items...), nil
		}
		if value, ok := v["@value"]; ok {
			if t := v["@type"]; t == "@json" || t == ldmatch.RDFJSON {
				return jsonLiteral(value, ldmatch.RDFJSON)
			}
			return convertLiteral(value, v["@type"], v["@language"])
		}
		// Keep anything else by its JSON text rather than reject the graph
		return jsonLiteral(v, "")
	case nil:
		return ldmatch.Value{}, fmt.Errorf("null value")
	default:
		return convertLiteral(v, nil, nil)
	}
}

func convertLiteral(value, datatype, language interface{}) (ldmatch.Value, error) {
	if lang, ok := language.(string); ok {
		s, ok := value.(string)
		if !ok {
			return ldmatch.Value{}, fmt.Errorf("language-tagged value is %T, expected a string", value)
		}
		return ldmatch.NewLangString(s, lang), nil
	}

	// JSON numbers without a fractional part are integers
	if f, ok := value.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		value = int64(f)
	}

	dt, _ := datatype.(string)
	switch value.(type) {
	case string, bool, int64, float64:
	default:
		return jsonLiteral(value, dt)
	}

	if dt != "" {
		return ldmatch.NewTypedLiteral(value, dt), nil
	}
	return ldmatch.NewLiteral(value), nil
}

// jsonLiteral keeps value as its JSON text. Object keys are sorted, so equal
// JSON values produce equal literals.
func jsonLiteral(value interface{}, datatype string) (ldmatch.Value, error) {
	text, err := json.Marshal(value)
	if err != nil {
		return ldmatch.Value{}, fmt.Errorf("encoding JSON literal: %w", err)
	}
	if datatype == "" {
		return ldmatch.NewLiteral(string(text)), nil
	}
	return ldmatch.NewTypedLiteral(string(text), datatype), nil
}

func asList(v interface{}) []interface{} {
	if list, ok := v.([]interface{}); ok {
		return list
	}
	return []interface{}{v}
}

func isKeyword(key string) bool {
	return len(key) > 0 && key[0] == '@'
}
