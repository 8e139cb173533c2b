// Package storage persists flattened graphs in BadgerDB so that patterns can
// be matched against them without normalizing the source document again.
package storage

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/wbrown/janus-ldmatch/ldmatch"
)

// Options configures a BadgerStore
type Options struct {
	// InMemory keeps all data in memory; path is ignored
	InMemory bool

	// ReadOnly opens an existing database without write access
	ReadOnly bool
}

// DefaultOptions returns the default store options
func DefaultOptions() Options {
	return Options{}
}

// BadgerStore keeps named graphs in BadgerDB
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens or creates a store at path
func NewBadgerStore(path string, options Options) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if options.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Disable BadgerDB logs
	opts.ReadOnly = options.ReadOnly

	// Nodes are small and read in full on every scan
	opts.ValueThreshold = 1 << 10

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// PutGraph stores the subjects of graph under name, replacing any graph
// previously stored under that name in the same transaction
func (s *BadgerStore) PutGraph(name string, graph ldmatch.Graph) error {
	if err := validateName(name); err != nil {
		return err
	}
	nodes, err := graph.Subjects()
	if err != nil {
		return fmt.Errorf("reading graph %s: %w", name, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := s.deleteGraph(txn, name); err != nil {
			return err
		}
		for i, node := range nodes {
			if err := txn.Set(nodeKey(name, uint64(i)), ldmatch.EncodeNode(node)); err != nil {
				return fmt.Errorf("failed to write node %s: %w", node.ID, err)
			}
		}
		if err := txn.Set(metaKey(name), encodeCount(uint64(len(nodes)))); err != nil {
			return fmt.Errorf("failed to write graph metadata: %w", err)
		}
		return nil
	})
}

// DeleteGraph removes the graph stored under name. Deleting a missing graph
// is not an error.
func (s *BadgerStore) DeleteGraph(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return s.deleteGraph(txn, name)
	})
}

func (s *BadgerStore) deleteGraph(txn *badger.Txn, name string) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false // Keys only
	opts.Prefix = nodeKeyPrefix(name)

	it := txn.NewIterator(opts)
	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("failed to delete node key: %w", err)
		}
	}
	if err := txn.Delete(metaKey(name)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete graph metadata: %w", err)
	}
	return nil
}

// Graphs lists the names of all stored graphs in key order
func (s *BadgerStore) Graphs() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = metaKeyPrefix()

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, nameFromMetaKey(it.Item().Key()))
		}
		return nil
	})
	return names, err
}

// Count returns the number of subjects stored under name; zero when the
// graph does not exist
func (s *BadgerStore) Count(name string) (int, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}

	var count uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			count, err = decodeCount(val)
			return err
		})
	})
	return int(count), err
}

// Graph returns a read view of the graph stored under name.
// A missing graph reads as an empty graph.
func (s *BadgerStore) Graph(name string) *StoredGraph {
	return &StoredGraph{store: s, name: name}
}

// Close closes the store
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
