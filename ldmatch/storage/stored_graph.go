package storage

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/wbrown/janus-ldmatch/ldmatch"
)

// StoredGraph is an ldmatch.Graph read from a BadgerStore.
// Every call to Subjects reads the graph again in a fresh transaction.
type StoredGraph struct {
	store *BadgerStore
	name  string
}

// Name returns the name the graph is stored under
func (g *StoredGraph) Name() string {
	return g.name
}

// Subjects implements ldmatch.Graph
func (g *StoredGraph) Subjects() ([]*ldmatch.Node, error) {
	if err := validateName(g.name); err != nil {
		return nil, err
	}

	it := g.Iterator()
	defer it.Close()

	var nodes []*ldmatch.Node
	for it.Next() {
		node, err := it.Node()
		if err != nil {
			return nil, fmt.Errorf("graph %s: %w", g.name, err)
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Iterator scans the subjects of the graph in insertion order
func (g *StoredGraph) Iterator() *NodeIterator {
	txn := g.store.db.NewTransaction(false)

	opts := badger.DefaultIteratorOptions
	opts.PrefetchSize = 1000
	opts.PrefetchValues = true // Values hold the nodes
	opts.Prefix = nodeKeyPrefix(g.name)

	return &NodeIterator{
		txn: txn,
		it:  txn.NewIterator(opts),
	}
}

// NodeIterator walks the stored nodes of one graph
type NodeIterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	started bool
}

// Next advances the iterator
func (i *NodeIterator) Next() bool {
	if !i.started {
		// First call - seek to the start of the prefix
		i.it.Rewind()
		i.started = true
	} else {
		i.it.Next()
	}
	return i.it.Valid()
}

// Node decodes the current node
func (i *NodeIterator) Node() (*ldmatch.Node, error) {
	var node *ldmatch.Node
	err := i.it.Item().Value(func(val []byte) error {
		var err error
		node, err = ldmatch.DecodeNode(val)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("decoding node at %x: %w", i.it.Item().Key(), err)
	}
	return node, nil
}

// Close closes the iterator
func (i *NodeIterator) Close() error {
	i.it.Close()
	i.txn.Discard()
	return nil
}
