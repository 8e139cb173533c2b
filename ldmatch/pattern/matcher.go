package pattern

import (
	"fmt"

	"github.com/wbrown/janus-ldmatch/ldmatch"
	"github.com/wbrown/janus-ldmatch/ldmatch/algebra"
)

// Matcher translates patterns into binding sources over a graph.
// The sources it builds are pure descriptions; the graph is only read when
// the matcher is called, never during enumeration.
//
// Graph lookups (literal objects and literal subjects) always use
// ldmatch.CompareValues. The algebra's equality only decides whether
// bindings agree on a shared variable.
type Matcher struct {
	alg *algebra.Algebra
}

// NewMatcher creates a matcher building sources with alg.
// A nil alg uses the default value equality.
func NewMatcher(alg *algebra.Algebra) *Matcher {
	if alg == nil {
		alg = algebra.New(nil)
	}
	return &Matcher{alg: alg}
}

// Algebra returns the algebra used to build and enumerate sources
func (m *Matcher) Algebra() *algebra.Algebra {
	return m.alg
}

// MatchObject matches one pattern object against the values subject has for
// predicate.
//
// A variable object binds to each value in turn. Any other object is a
// constraint: the result is compatible if the value is present, incompatible
// otherwise.
func (m *Matcher) MatchObject(subject *ldmatch.Node, predicate string, object ldmatch.Value, p *Pattern) *algebra.Source {
	if variable, ok := p.ObjectVariable(object); ok {
		values := subject.Values(predicate)
		sources := make([]*algebra.Source, len(values))
		for i, v := range values {
			sources[i] = m.alg.Single(ldmatch.Bind(variable, v))
		}
		return m.alg.Union(sources...)
	}

	if subject.HasValue(predicate, object, ldmatch.CompareValues) {
		return m.alg.Compatible()
	}
	return m.alg.Incompatible()
}

// MatchObjects joins the matches of every object in an object list, so all
// of them must hold for the same subject and predicate
func (m *Matcher) MatchObjects(subject *ldmatch.Node, predicate string, objects []ldmatch.Value, p *Pattern) *algebra.Source {
	sources := make([]*algebra.Source, len(objects))
	for i, object := range objects {
		sources[i] = m.MatchObject(subject, predicate, object, p)
	}
	return m.alg.Join(sources...)
}

// MatchPredicate matches one predicate of patternSubject against subject.
//
// A variable predicate ranges over every predicate of subject: each one is
// bound to the variable as an IRI and the pattern's objects are matched
// against the values of that concrete predicate. A concrete predicate must be
// present on subject.
func (m *Matcher) MatchPredicate(subject, patternSubject *ldmatch.Node, predicate string, p *Pattern) *algebra.Source {
	objects := patternSubject.Values(predicate)

	if p.IsVariable(predicate) {
		concrete := subject.Predicates()
		sources := make([]*algebra.Source, len(concrete))
		for i, pred := range concrete {
			sources[i] = m.alg.Extend(
				m.MatchObjects(subject, pred, objects, p),
				ldmatch.Bind(predicate, ldmatch.NewIRI(pred)))
		}
		return m.alg.Union(sources...)
	}

	if !subject.HasProperty(predicate) {
		return m.alg.Incompatible()
	}
	return m.MatchObjects(subject, predicate, objects, p)
}

// MatchPredicates joins the matches of predicates against subject
func (m *Matcher) MatchPredicates(subject, patternSubject *ldmatch.Node, predicates []string, p *Pattern) *algebra.Source {
	sources := make([]*algebra.Source, len(predicates))
	for i, predicate := range predicates {
		sources[i] = m.MatchPredicate(subject, patternSubject, predicate, p)
	}
	return m.alg.Join(sources...)
}

// MatchSubject matches one pattern subject against graph. A failure to read
// the graph becomes a fault of the returned source.
func (m *Matcher) MatchSubject(graph ldmatch.Graph, patternSubject *ldmatch.Node, p *Pattern) *algebra.Source {
	nodes, err := graph.Subjects()
	if err != nil {
		return m.alg.Fault(fmt.Errorf("reading graph subjects: %w", err))
	}
	return m.matchSubject(nodes, patternSubject, p)
}

func (m *Matcher) matchSubject(nodes []*ldmatch.Node, patternSubject *ldmatch.Node, p *Pattern) *algebra.Source {
	predicates := patternSubject.Predicates()

	if p.IsVariable(patternSubject.ID) {
		sources := make([]*algebra.Source, len(nodes))
		for i, node := range nodes {
			sources[i] = m.alg.Extend(
				m.MatchPredicates(node, patternSubject, predicates, p),
				ldmatch.Bind(patternSubject.ID, node.Ref()))
		}
		return m.alg.Union(sources...)
	}

	node := ldmatch.FindSubject(nodes, patternSubject.Ref(), ldmatch.CompareValues)
	if node == nil {
		return m.alg.Incompatible()
	}
	return m.MatchPredicates(node, patternSubject, predicates, p)
}

// MatchSubjects joins the matches of every subject of p against graph.
// The graph is read once for the whole subject list.
func (m *Matcher) MatchSubjects(graph ldmatch.Graph, p *Pattern) *algebra.Source {
	nodes, err := graph.Subjects()
	if err != nil {
		return m.alg.Fault(fmt.Errorf("reading graph subjects: %w", err))
	}

	sources := make([]*algebra.Source, len(p.Subjects))
	for i, subject := range p.Subjects {
		sources[i] = m.matchSubject(nodes, subject, p)
	}
	return m.alg.Join(sources...)
}

// Match compiles p against graph and projects the result onto the declared
// variables of p
func (m *Matcher) Match(graph ldmatch.Graph, p *Pattern) *algebra.Source {
	return m.alg.Project(m.MatchSubjects(graph, p), p.Vars)
}
