package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Key layout:
//
//	g\x00<name>\x00<seq:8 bytes big-endian> -> encoded node
//	m\x00<name>                             -> node count (8 bytes big-endian)
//
// Sequence numbers keep subjects in insertion order under a prefix scan.
const (
	nodePrefix byte = 'g'
	metaPrefix byte = 'm'
	separator  byte = 0
)

// ErrInvalidGraphName is returned for names that cannot be encoded in a key
var ErrInvalidGraphName = errors.New("invalid graph name")

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidGraphName)
	}
	if strings.IndexByte(name, separator) >= 0 {
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidGraphName, name)
	}
	return nil
}

// nodeKeyPrefix returns the prefix shared by every node of a graph
func nodeKeyPrefix(name string) []byte {
	key := make([]byte, 0, len(name)+3)
	key = append(key, nodePrefix, separator)
	key = append(key, name...)
	return append(key, separator)
}

func nodeKey(name string, seq uint64) []byte {
	key := nodeKeyPrefix(name)
	return binary.BigEndian.AppendUint64(key, seq)
}

func metaKey(name string) []byte {
	key := make([]byte, 0, len(name)+2)
	key = append(key, metaPrefix, separator)
	return append(key, name...)
}

// metaKeyPrefix is the prefix shared by all graph metadata keys
func metaKeyPrefix() []byte {
	return []byte{metaPrefix, separator}
}

// nameFromMetaKey extracts the graph name from a metadata key
func nameFromMetaKey(key []byte) string {
	return string(key[2:])
}

func encodeCount(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}

func decodeCount(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("node count has %d bytes, expected 8", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}
