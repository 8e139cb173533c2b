package ldmatch

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// LiteralType identifies the native payload of an encoded literal
type LiteralType byte

const (
	TypeString LiteralType = iota
	TypeInt
	TypeFloat
	TypeBool
)

// ErrTruncated is returned when encoded data ends early
var ErrTruncated = errors.New("encoded value truncated")

// literalType returns the type of a literal payload
func literalType(v interface{}) LiteralType {
	switch val := v.(type) {
	case string:
		return TypeString
	case int64:
		return TypeInt
	case float64:
		return TypeFloat
	case bool:
		return TypeBool
	default:
		panic(fmt.Sprintf("unknown literal type: %T", val))
	}
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func readString(data []byte) (string, []byte, error) {
	n, size := binary.Uvarint(data)
	if size <= 0 {
		return "", nil, ErrTruncated
	}
	data = data[size:]
	if uint64(len(data)) < n {
		return "", nil, ErrTruncated
	}
	return string(data[:n]), data[n:], nil
}

func readCount(data []byte) (int, []byte, error) {
	n, size := binary.Uvarint(data)
	if size <= 0 {
		return 0, nil, ErrTruncated
	}
	// Every counted element needs at least one byte
	if n > uint64(len(data)) {
		return 0, nil, ErrTruncated
	}
	return int(n), data[size:], nil
}

// AppendValue appends the binary encoding of v to buf
func AppendValue(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.kind))
	switch v.kind {
	case KindIRI, KindBlank:
		buf = appendString(buf, v.id)
	case KindLiteral:
		lt := literalType(v.lit)
		buf = append(buf, byte(lt))
		switch lt {
		case TypeString:
			buf = appendString(buf, v.lit.(string))
		case TypeInt:
			buf = binary.BigEndian.AppendUint64(buf, uint64(v.lit.(int64)))
		case TypeFloat:
			buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(v.lit.(float64)))
		case TypeBool:
			if v.lit.(bool) {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		}
		buf = appendString(buf, v.datatype)
		buf = appendString(buf, v.language)
	case KindList:
		buf = binary.AppendUvarint(buf, uint64(len(v.items)))
		for _, item := range v.items {
			buf = AppendValue(buf, item)
		}
	default:
		panic(fmt.Sprintf("cannot encode value kind: %v", v.kind))
	}
	return buf
}

// ReadValue decodes one value from data and returns the remaining bytes
func ReadValue(data []byte) (Value, []byte, error) {
	if len(data) == 0 {
		return Value{}, nil, ErrTruncated
	}
	kind := Kind(data[0])
	data = data[1:]

	switch kind {
	case KindIRI, KindBlank:
		id, rest, err := readString(data)
		if err != nil {
			return Value{}, nil, err
		}
		return Value{kind: kind, id: id}, rest, nil

	case KindLiteral:
		if len(data) == 0 {
			return Value{}, nil, ErrTruncated
		}
		lt := LiteralType(data[0])
		data = data[1:]

		var lit interface{}
		switch lt {
		case TypeString:
			s, rest, err := readString(data)
			if err != nil {
				return Value{}, nil, err
			}
			lit, data = s, rest
		case TypeInt:
			if len(data) < 8 {
				return Value{}, nil, fmt.Errorf("int value must be 8 bytes, got %d", len(data))
			}
			lit, data = int64(binary.BigEndian.Uint64(data)), data[8:]
		case TypeFloat:
			if len(data) < 8 {
				return Value{}, nil, fmt.Errorf("float value must be 8 bytes, got %d", len(data))
			}
			lit, data = math.Float64frombits(binary.BigEndian.Uint64(data)), data[8:]
		case TypeBool:
			if len(data) < 1 {
				return Value{}, nil, fmt.Errorf("bool value must be 1 byte, got %d", len(data))
			}
			lit, data = data[0] != 0, data[1:]
		default:
			return Value{}, nil, fmt.Errorf("unknown literal type: %v", lt)
		}

		datatype, rest, err := readString(data)
		if err != nil {
			return Value{}, nil, err
		}
		language, rest, err := readString(rest)
		if err != nil {
			return Value{}, nil, err
		}
		return Value{kind: KindLiteral, lit: lit, datatype: datatype, language: language}, rest, nil

	case KindList:
		count, rest, err := readCount(data)
		if err != nil {
			return Value{}, nil, err
		}
		var items []Value
		for i := 0; i < count; i++ {
			var item Value
			item, rest, err = ReadValue(rest)
			if err != nil {
				return Value{}, nil, err
			}
			items = append(items, item)
		}
		return Value{kind: KindList, items: items}, rest, nil

	default:
		return Value{}, nil, fmt.Errorf("unknown value kind: %d", kind)
	}
}

// EncodeNode serializes a node with its predicates and values in order
func EncodeNode(n *Node) []byte {
	buf := appendString(nil, n.ID)
	buf = binary.AppendUvarint(buf, uint64(len(n.predicates)))
	for _, p := range n.predicates {
		buf = appendString(buf, p)
		values := n.values[p]
		buf = binary.AppendUvarint(buf, uint64(len(values)))
		for _, v := range values {
			buf = AppendValue(buf, v)
		}
	}
	return buf
}

// DecodeNode deserializes a node produced by EncodeNode
func DecodeNode(data []byte) (*Node, error) {
	id, rest, err := readString(data)
	if err != nil {
		return nil, fmt.Errorf("node id: %w", err)
	}
	node := NewNode(id)

	predCount, rest, err := readCount(rest)
	if err != nil {
		return nil, fmt.Errorf("node %s: predicate count: %w", id, err)
	}
	for i := 0; i < predCount; i++ {
		var pred string
		pred, rest, err = readString(rest)
		if err != nil {
			return nil, fmt.Errorf("node %s: predicate: %w", id, err)
		}
		var valueCount int
		valueCount, rest, err = readCount(rest)
		if err != nil {
			return nil, fmt.Errorf("node %s: %s: value count: %w", id, pred, err)
		}
		values := make([]Value, 0, valueCount)
		for j := 0; j < valueCount; j++ {
			var v Value
			v, rest, err = ReadValue(rest)
			if err != nil {
				return nil, fmt.Errorf("node %s: %s: %w", id, pred, err)
			}
			values = append(values, v)
		}
		node.Add(pred, values...)
	}

	if len(rest) != 0 {
		return nil, fmt.Errorf("node %s: %d trailing bytes", id, len(rest))
	}
	return node, nil
}
