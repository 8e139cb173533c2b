package storage

import (
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/wbrown/janus-ldmatch/ldmatch"
	"github.com/wbrown/janus-ldmatch/ldmatch/mocks"
	"github.com/wbrown/janus-ldmatch/ldmatch/pattern"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore("", Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testGraph() ldmatch.MemoryGraph {
	return ldmatch.MemoryGraph{
		ldmatch.NewNode("http://ex.org/alice").
			Add("http://ex.org/knows", ldmatch.NewIRI("http://ex.org/bob"), ldmatch.NewBlank("b0")).
			Add("http://ex.org/name", ldmatch.NewLangString("Alice", "en")),
		ldmatch.NewNode("http://ex.org/bob").
			Add("http://ex.org/age", ldmatch.NewLiteral(42)),
		ldmatch.NewNode("_:b0").
			Add("http://ex.org/tags", ldmatch.NewList(ldmatch.NewLiteral("x"), ldmatch.NewLiteral(true))),
	}
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	graph := testGraph()

	require.NoError(t, store.PutGraph("people", graph))

	nodes, err := store.Graph("people").Subjects()
	require.NoError(t, err)
	require.Len(t, nodes, len(graph))

	for i, want := range graph {
		got := nodes[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Predicates(), got.Predicates())
		for _, p := range want.Predicates() {
			assert.Equal(t, want.Values(p), got.Values(p), "predicate %s of %s", p, want.ID)
		}
	}

	count, err := store.Count("people")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestBadgerStoreReplaceGraph(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.PutGraph("g", testGraph()))
	require.NoError(t, store.PutGraph("g", ldmatch.MemoryGraph{ldmatch.NewNode("http://ex.org/only")}))

	nodes, err := store.Graph("g").Subjects()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "http://ex.org/only", nodes[0].ID)

	count, err := store.Count("g")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBadgerStoreGraphsAreIsolated(t *testing.T) {
	store := newTestStore(t)

	// "a" is a prefix of "ab"; the separator keeps their nodes apart
	require.NoError(t, store.PutGraph("a", ldmatch.MemoryGraph{ldmatch.NewNode("http://ex.org/1")}))
	require.NoError(t, store.PutGraph("ab", ldmatch.MemoryGraph{ldmatch.NewNode("http://ex.org/2")}))

	nodes, err := store.Graph("a").Subjects()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "http://ex.org/1", nodes[0].ID)

	names, err := store.Graphs()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "ab"}, names)
}

func TestBadgerStoreDeleteGraph(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutGraph("g", testGraph()))
	require.NoError(t, store.PutGraph("h", testGraph()))

	require.NoError(t, store.DeleteGraph("g"))
	require.NoError(t, store.DeleteGraph("missing"))

	nodes, err := store.Graph("g").Subjects()
	require.NoError(t, err)
	assert.Empty(t, nodes)

	names, err := store.Graphs()
	require.NoError(t, err)
	assert.Equal(t, []string{"h"}, names)
}

func TestBadgerStoreMissingGraphIsEmpty(t *testing.T) {
	store := newTestStore(t)

	nodes, err := store.Graph("nothing").Subjects()
	require.NoError(t, err)
	assert.Empty(t, nodes)

	count, err := store.Count("nothing")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestBadgerStoreInvalidNames(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"", "a\x00b"} {
		assert.ErrorIs(t, store.PutGraph(name, testGraph()), ErrInvalidGraphName)
		assert.ErrorIs(t, store.DeleteGraph(name), ErrInvalidGraphName)

		_, err := store.Graph(name).Subjects()
		assert.ErrorIs(t, err, ErrInvalidGraphName)
	}
}

func TestBadgerStorePutGraphSourceFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	boom := errors.New("source closed")

	source := mocks.NewMockGraph(ctrl)
	source.EXPECT().Subjects().Return(nil, boom)

	store := newTestStore(t)
	err := store.PutGraph("g", source)
	assert.ErrorIs(t, err, boom)

	names, err := store.Graphs()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestBadgerStoreOnDisk(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBadgerStore(dir, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, store.PutGraph("g", testGraph()))
	require.NoError(t, store.Close())

	reopened, err := NewBadgerStore(dir, DefaultOptions())
	require.NoError(t, err)
	defer reopened.Close()

	nodes, err := reopened.Graph("g").Subjects()
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
}

func TestNodeIterator(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutGraph("g", testGraph()))

	it := store.Graph("g").Iterator()
	defer it.Close()

	var ids []string
	for it.Next() {
		node, err := it.Node()
		require.NoError(t, err)
		ids = append(ids, node.ID)
	}
	assert.Equal(t, []string{"http://ex.org/alice", "http://ex.org/bob", "_:b0"}, ids)
}

func TestCorruptNodeIsMatchFault(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutGraph("g", testGraph()))

	// Length prefix promises five bytes, one follows
	err := store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(nodeKey("g", 1<<40), []byte{0x05, 'a'})
	})
	require.NoError(t, err)

	_, err = store.Graph("g").Subjects()
	assert.ErrorIs(t, err, ldmatch.ErrTruncated)

	m := pattern.NewMatcher(nil)
	p := pattern.NewPattern(
		[]*ldmatch.Node{ldmatch.NewNode("?x").Add("http://ex.org/age", ldmatch.NewLiteral("?a"))},
		[]string{"?x", "?a"})

	rows, err := m.Algebra().Collect(m.Match(store.Graph("g"), p))
	assert.Empty(t, rows)
	require.Error(t, err)
	assert.ErrorIs(t, err, ldmatch.ErrTruncated)
	assert.Contains(t, err.Error(), "reading graph subjects: graph g: decoding node")
}
