package driver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/wbrown/janus-ldmatch/ldmatch"
	"github.com/wbrown/janus-ldmatch/ldmatch/annotations"
	"github.com/wbrown/janus-ldmatch/ldmatch/jsonld"
	"github.com/wbrown/janus-ldmatch/ldmatch/mocks"
)

const (
	knows = "http://xmlns.com/foaf/0.1/knows"
	name  = "http://xmlns.com/foaf/0.1/name"
)

func iri(id string) ldmatch.Value { return ldmatch.NewIRI(id) }
func str(s string) ldmatch.Value  { return ldmatch.NewLiteral(s) }

func row(kv ...interface{}) string {
	m := make(map[string]ldmatch.Value)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1].(ldmatch.Value)
	}
	return ldmatch.NewBinding(m).String()
}

func peopleGraph() ldmatch.MemoryGraph {
	return ldmatch.MemoryGraph{
		ldmatch.NewNode("alice").
			Add(knows, iri("bob"), iri("carol")).
			Add(name, str("Alice")),
		ldmatch.NewNode("bob").
			Add(knows, iri("carol")).
			Add(name, str("Bob")),
		ldmatch.NewNode("carol").
			Add(name, str("Carol")),
	}
}

// fakeFlattener treats graphs as already flat and errors as failures
type fakeFlattener struct {
	mu       sync.Mutex
	contexts []interface{}

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (f *fakeFlattener) Flatten(ctx context.Context, document interface{}, expandContext interface{}) (ldmatch.MemoryGraph, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		m := f.maxInflight.Load()
		if n <= m || f.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	f.mu.Lock()
	f.contexts = append(f.contexts, expandContext)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch d := document.(type) {
	case ldmatch.MemoryGraph:
		return d, nil
	case error:
		return nil, d
	default:
		return nil, errors.New("unsupported document")
	}
}

// recorder collects the string form of delivered bindings per match
type recorder struct {
	rows []string
}

func (r *recorder) match(matchName string, p ldmatch.MemoryGraph, vars ...string) Match {
	return Match{
		Name:    matchName,
		Pattern: p,
		Vars:    vars,
		Action: func(b ldmatch.Binding) {
			r.rows = append(r.rows, matchName+" "+b.String())
		},
	}
}

func namesPattern() ldmatch.MemoryGraph {
	return ldmatch.MemoryGraph{ldmatch.NewNode("?x").Add(name, str("?n"))}
}

var namesVars = []string{"?x", "?n"}

func knowsPattern() ldmatch.MemoryGraph {
	return ldmatch.MemoryGraph{ldmatch.NewNode("?a").Add(knows, iri("?b"))}
}

func TestMatchAllSingleSubject(t *testing.T) {
	d := New(&fakeFlattener{}, DefaultOptions())

	var got []string
	doc := ldmatch.MemoryGraph{ldmatch.NewNode("s1").Add("p", str("v1"))}
	matches := []Match{{
		Name:    "m",
		Pattern: ldmatch.MemoryGraph{ldmatch.NewNode("?x").Add("p", str("?y"))},
		Vars:    []string{"?x", "?y"},
		Action:  func(b ldmatch.Binding) { got = append(got, b.String()) },
	}}

	require.NoError(t, d.MatchAll(context.Background(), doc, matches, nil))
	assert.Equal(t, []string{row("?x", iri("s1"), "?y", str("v1"))}, got)
}

func TestMatchAllRunsInRegistrationOrder(t *testing.T) {
	d := New(&fakeFlattener{}, DefaultOptions())
	rec := &recorder{}

	matches := []Match{
		rec.match("knows", knowsPattern(), "?a", "?b"),
		rec.match("names", namesPattern(), namesVars...),
	}
	require.NoError(t, d.MatchAll(context.Background(), peopleGraph(), matches, nil))

	assert.Equal(t, []string{
		"knows " + row("?a", iri("alice"), "?b", iri("bob")),
		"knows " + row("?a", iri("alice"), "?b", iri("carol")),
		"knows " + row("?a", iri("bob"), "?b", iri("carol")),
		"names " + row("?n", str("Alice"), "?x", iri("alice")),
		"names " + row("?n", str("Bob"), "?x", iri("bob")),
		"names " + row("?n", str("Carol"), "?x", iri("carol")),
	}, rec.rows)
}

func TestMatchAllProjectsOntoVars(t *testing.T) {
	d := New(&fakeFlattener{}, DefaultOptions())
	rec := &recorder{}

	p := ldmatch.MemoryGraph{ldmatch.NewNode("?a").Add(knows, ldmatch.NewBlank("k"))}
	matches := []Match{rec.match("who", p, "?a")}
	require.NoError(t, d.MatchAll(context.Background(), peopleGraph(), matches, nil))

	assert.Equal(t, []string{
		"who " + row("?a", iri("alice")),
		"who " + row("?a", iri("alice")),
		"who " + row("?a", iri("bob")),
	}, rec.rows)
}

func TestMatchAllPassesPatternContext(t *testing.T) {
	flattener := &fakeFlattener{}
	d := New(flattener, Options{MaxConcurrentFlatten: 1})
	patternContext := map[string]interface{}{"x": "urn:var:x"}

	rec := &recorder{}
	matches := []Match{rec.match("names", namesPattern(), namesVars...)}
	require.NoError(t, d.MatchAll(context.Background(), peopleGraph(), matches, patternContext))

	// The document is flattened without the pattern context
	assert.ElementsMatch(t, []interface{}{nil, patternContext}, flattener.contexts)
}

func TestMatchAllBoundsConcurrentFlatten(t *testing.T) {
	flattener := &fakeFlattener{}
	d := New(flattener, Options{MaxConcurrentFlatten: 1})

	matches := make([]Match, 8)
	for i := range matches {
		matches[i] = Match{Name: "names", Pattern: namesPattern(), Vars: namesVars}
	}
	require.NoError(t, d.MatchAll(context.Background(), peopleGraph(), matches, nil))
	assert.Equal(t, int32(1), flattener.maxInflight.Load())
}

func TestMatchAllNormalizationFailure(t *testing.T) {
	boom := errors.New("invalid JSON-LD")

	tests := []struct {
		name     string
		document interface{}
		pattern  interface{}
		contains string
	}{
		{"Document", boom, namesPattern(), "normalizing document"},
		{"Pattern", peopleGraph(), boom, "normalizing pattern bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(&fakeFlattener{}, DefaultOptions())

			called := 0
			matches := []Match{
				{Name: "good", Pattern: namesPattern(), Vars: namesVars, Action: func(ldmatch.Binding) { called++ }},
				{Name: "bad", Pattern: tt.pattern, Vars: []string{"?x"}, Action: func(ldmatch.Binding) { called++ }},
			}

			err := d.MatchAll(context.Background(), tt.document, matches, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNormalization)
			assert.ErrorIs(t, err, boom)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Zero(t, called, "no action may run after a normalization failure")
		})
	}
}

func TestMatchAllCancelledContext(t *testing.T) {
	d := New(&fakeFlattener{}, DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	matches := []Match{{
		Name: "names", Pattern: namesPattern(), Vars: namesVars,
		Action: func(ldmatch.Binding) { called = true },
	}}

	err := d.MatchAll(ctx, peopleGraph(), matches, nil)
	assert.ErrorIs(t, err, ErrNormalization)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestMatchAllNoMatches(t *testing.T) {
	d := New(&fakeFlattener{}, DefaultOptions())
	assert.NoError(t, d.MatchAll(context.Background(), peopleGraph(), nil, nil))
}

func TestMatchGraphFaultPolicies(t *testing.T) {
	boom := errors.New("subjects unavailable")

	t.Run("Collect", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		graph := mocks.NewMockGraph(ctrl)
		graph.EXPECT().Subjects().Return(nil, boom).Times(2)

		d := New(&fakeFlattener{}, Options{FaultPolicy: FaultCollect})
		err := d.MatchGraph(context.Background(), graph, []Match{
			{Name: "first", Pattern: namesPattern(), Vars: namesVars},
			{Name: "second", Pattern: knowsPattern(), Vars: []string{"?a"}},
		}, nil)

		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrNormalization)

		joined, ok := err.(interface{ Unwrap() []error })
		require.True(t, ok)
		faults := joined.Unwrap()
		require.Len(t, faults, 2)

		var names []string
		for _, f := range faults {
			var fe *FaultError
			require.ErrorAs(t, f, &fe)
			names = append(names, fe.Match)
		}
		assert.Equal(t, []string{"first", "second"}, names)
	})

	t.Run("LastWins", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		graph := mocks.NewMockGraph(ctrl)
		graph.EXPECT().Subjects().Return(nil, boom).Times(2)

		d := New(&fakeFlattener{}, Options{FaultPolicy: FaultLastWins})
		err := d.MatchGraph(context.Background(), graph, []Match{
			{Name: "first", Pattern: namesPattern(), Vars: namesVars},
			{Name: "second", Pattern: knowsPattern(), Vars: []string{"?a"}},
		}, nil)

		var fe *FaultError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "second", fe.Match)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "match second: reading graph subjects: subjects unavailable", err.Error())
	})

	t.Run("First", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		graph := mocks.NewMockGraph(ctrl)
		graph.EXPECT().Subjects().Return(nil, boom).Times(1)

		called := false
		d := New(&fakeFlattener{}, Options{FaultPolicy: FaultFirst})
		err := d.MatchGraph(context.Background(), graph, []Match{
			{Name: "first", Pattern: namesPattern(), Vars: namesVars},
			{
				Name: "second", Pattern: knowsPattern(), Vars: []string{"?a"},
				Action: func(ldmatch.Binding) { called = true },
			},
		}, nil)

		var fe *FaultError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "first", fe.Match)
		assert.False(t, called)
	})
}

func TestMatchGraphFaultDoesNotRetractBindings(t *testing.T) {
	boom := errors.New("subjects unavailable")
	ctrl := gomock.NewController(t)
	graph := mocks.NewMockGraph(ctrl)
	gomock.InOrder(
		graph.EXPECT().Subjects().Return(peopleGraph(), nil),
		graph.EXPECT().Subjects().Return(nil, boom),
		graph.EXPECT().Subjects().Return(peopleGraph(), nil),
	)

	rec := &recorder{}
	d := New(&fakeFlattener{}, DefaultOptions())
	err := d.MatchGraph(context.Background(), graph, []Match{
		rec.match("before", namesPattern(), namesVars...),
		rec.match("broken", namesPattern(), namesVars...),
		rec.match("after", namesPattern(), namesVars...),
	}, nil)

	var fe *FaultError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "broken", fe.Match)
	assert.Len(t, rec.rows, 6)
	assert.Equal(t, "before "+row("?n", str("Alice"), "?x", iri("alice")), rec.rows[0])
	assert.Equal(t, "after "+row("?n", str("Carol"), "?x", iri("carol")), rec.rows[5])
}

func TestMatchGraphStoredGraphIsNotFlattened(t *testing.T) {
	flattener := &fakeFlattener{}
	d := New(flattener, DefaultOptions())

	rec := &recorder{}
	err := d.MatchGraph(context.Background(), peopleGraph(), []Match{
		rec.match("names", namesPattern(), namesVars...),
	}, nil)
	require.NoError(t, err)

	assert.Len(t, flattener.contexts, 1, "only the pattern is flattened")
	assert.Len(t, rec.rows, 3)
}

func TestMetrics(t *testing.T) {
	boom := errors.New("subjects unavailable")
	ctrl := gomock.NewController(t)
	graph := mocks.NewMockGraph(ctrl)
	gomock.InOrder(
		graph.EXPECT().Subjects().Return(peopleGraph(), nil),
		graph.EXPECT().Subjects().Return(nil, boom),
	)

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	d := New(&fakeFlattener{}, Options{Metrics: metrics})

	err := d.MatchGraph(context.Background(), graph, []Match{
		{Name: "names", Pattern: namesPattern(), Vars: namesVars},
		{Name: "broken", Pattern: namesPattern(), Vars: namesVars},
	}, nil)
	require.Error(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Bindings.WithLabelValues("names")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Bindings.WithLabelValues("broken")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Faults.WithLabelValues("broken")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.Duration))

	count, err := testutil.GatherAndCount(reg, "ldmatch_bindings_total", "ldmatch_faults_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestAnnotationEvents(t *testing.T) {
	var events []annotations.Event
	d := New(&fakeFlattener{}, Options{
		Handler: func(e annotations.Event) { events = append(events, e) },
	})

	rec := &recorder{}
	err := d.MatchAll(context.Background(), peopleGraph(), []Match{
		rec.match("knows", knowsPattern(), "?a", "?b"),
		rec.match("names", namesPattern(), namesVars...),
	}, nil)
	require.NoError(t, err)

	var names []string
	for _, e := range events {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{
		annotations.MatchInvoked,
		annotations.MatchFlattened,
		annotations.PatternCompiled,
		annotations.PatternComplete,
		annotations.PatternCompiled,
		annotations.PatternComplete,
		annotations.MatchComplete,
	}, names)

	runID := events[0].Data["run.id"]
	assert.NotEmpty(t, runID)
	assert.Equal(t, runID, events[len(events)-1].Data["run.id"])

	assert.Equal(t, 3, events[1].Data["subject.count"])
	assert.Equal(t, 3, events[3].Data["binding.count"])
	assert.Equal(t, "knows", events[3].Data["match"])
	assert.Equal(t, 6, events[6].Data["binding.count"])
	assert.Equal(t, true, events[6].Data["success"])
}

func TestAnnotationEventsOnNormalizationFailure(t *testing.T) {
	var names []string
	d := New(&fakeFlattener{}, Options{
		Handler: func(e annotations.Event) { names = append(names, e.Name) },
	})

	err := d.MatchAll(context.Background(), errors.New("bad"), []Match{
		{Name: "names", Pattern: namesPattern(), Vars: namesVars},
	}, nil)
	require.Error(t, err)

	assert.Equal(t, []string{
		annotations.MatchInvoked,
		annotations.ErrorNormalization,
		annotations.MatchComplete,
	}, names)
}

func TestMatchAllWithJSONLDProcessor(t *testing.T) {
	d := New(jsonld.NewProcessor(jsonld.DefaultOptions()), DefaultOptions())

	doc := []interface{}{
		map[string]interface{}{
			"@id":                  "http://example.org/s1",
			"http://example.org/p": "v1",
		},
		map[string]interface{}{
			"@id":                  "http://example.org/s2",
			"http://example.org/q": "v2",
		},
	}
	pattern := map[string]interface{}{
		"@context": map[string]interface{}{"p": "http://example.org/p"},
		"@id":      "urn:var:x",
		"p":        "urn:var:y",
	}

	var got []string
	err := d.MatchAll(context.Background(), doc, []Match{{
		Name:    "p",
		Pattern: pattern,
		Vars:    []string{"urn:var:x", "urn:var:y"},
		Action:  func(b ldmatch.Binding) { got = append(got, b.String()) },
	}}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		row("urn:var:x", iri("http://example.org/s1"), "urn:var:y", str("v1")),
	}, got)
}

func TestMatchAllLargeIntegerLiterals(t *testing.T) {
	d := New(jsonld.NewProcessor(jsonld.DefaultOptions()), DefaultOptions())
	integer := ldmatch.XSD + "integer"

	doc := []interface{}{
		map[string]interface{}{
			"@id":             "http://ex.org/big",
			"http://ex.org/n": map[string]interface{}{"@value": "9007199254740993", "@type": integer},
		},
		map[string]interface{}{
			"@id":             "http://ex.org/exact",
			"http://ex.org/n": map[string]interface{}{"@value": "9007199254740992", "@type": integer},
		},
	}
	pattern := map[string]interface{}{
		"@id":             "urn:var:x",
		"http://ex.org/n": map[string]interface{}{"@value": "9007199254740992", "@type": integer},
	}

	var got []string
	err := d.MatchAll(context.Background(), doc, []Match{{
		Name:    "n",
		Pattern: pattern,
		Vars:    []string{"urn:var:x"},
		Action:  func(b ldmatch.Binding) { got = append(got, b.String()) },
	}}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{row("urn:var:x", iri("http://ex.org/exact"))}, got)
}

func TestParseFaultPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    FaultPolicy
		wantErr bool
	}{
		{"", FaultCollect, false},
		{"collect", FaultCollect, false},
		{"LAST", FaultLastWins, false},
		{"last-wins", FaultLastWins, false},
		{"first", FaultFirst, false},
		{"sometimes", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFaultPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "last", FaultLastWins.String())
	assert.Equal(t, "FaultPolicy(7)", FaultPolicy(7).String())
}
