// Package driver runs registered patterns against a linked-data document.
//
// A run flattens the document and every pattern, then matches the patterns
// one after the other in registration order, calling each registration's
// action synchronously for every binding it produces.
package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/wbrown/janus-ldmatch/ldmatch"
	"github.com/wbrown/janus-ldmatch/ldmatch/algebra"
	"github.com/wbrown/janus-ldmatch/ldmatch/annotations"
	"github.com/wbrown/janus-ldmatch/ldmatch/pattern"
)

var tracer = otel.Tracer("ldmatch/driver")

// Match is one registration: a pattern document, its declared variables and
// the action invoked once per binding, projected onto Vars
type Match struct {
	Name    string
	Pattern interface{}
	Vars    []string
	Action  func(ldmatch.Binding)
}

// Flattener turns a JSON-LD document into a graph, expanding it with
// expandContext when non-nil
type Flattener interface {
	Flatten(ctx context.Context, document interface{}, expandContext interface{}) (ldmatch.MemoryGraph, error)
}

// Options configures a Driver
type Options struct {
	// FaultPolicy decides which enumeration faults a run reports
	FaultPolicy FaultPolicy

	// Equality compares graph values; nil uses ldmatch.CompareValues
	Equality ldmatch.Equality

	// Algebra controls how binding sources are enumerated
	Algebra algebra.Options

	// MaxConcurrentFlatten bounds the number of concurrent flatten calls,
	// 0 for no limit
	MaxConcurrentFlatten int

	// Handler receives annotation events; nil disables them
	Handler annotations.Handler

	// Metrics receives counters; nil disables them
	Metrics *Metrics
}

// DefaultOptions returns the default driver options
func DefaultOptions() Options {
	return Options{
		FaultPolicy: FaultCollect,
		Algebra:     algebra.DefaultOptions(),
	}
}

// Driver matches registrations against documents or graphs
type Driver struct {
	flattener Flattener
	matcher   *pattern.Matcher
	opts      Options
}

// New creates a driver normalizing documents with flattener
func New(flattener Flattener, opts Options) *Driver {
	return &Driver{
		flattener: flattener,
		matcher:   pattern.NewMatcher(algebra.NewWithOptions(opts.Equality, opts.Algebra)),
		opts:      opts,
	}
}

// MatchAll flattens document and the pattern of every match, then runs the
// matches in order against the flattened document.
//
// A normalization failure is returned wrapped in ErrNormalization before any
// action runs. Enumeration faults are reported under the fault policy once
// every match has run; bindings already delivered are never retracted.
func (d *Driver) MatchAll(ctx context.Context, document interface{}, matches []Match, patternContext interface{}) error {
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "driver.MatchAll", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("match_count", len(matches)),
	))
	defer span.End()

	mctx := NewContext(d.opts.Handler)
	mctx.RunBegin(runID, len(matches))

	start := time.Now()
	var graph ldmatch.MemoryGraph
	patterns, err := d.flattenAll(ctx, matches, patternContext, func(ctx context.Context, g *errgroup.Group) {
		g.Go(func() error {
			flattened, err := d.flattener.Flatten(ctx, document, nil)
			if err != nil {
				return fmt.Errorf("normalizing document: %w", err)
			}
			graph = flattened
			return nil
		})
	})
	if err != nil {
		return d.normalizationFailed(span, mctx, err, start)
	}
	mctx.Flattened(len(graph), len(patterns), start)

	return d.run(ctx, span, mctx, graph, matches, patterns)
}

// MatchGraph flattens the pattern of every match and runs the matches in
// order against graph, which is already flattened
func (d *Driver) MatchGraph(ctx context.Context, graph ldmatch.Graph, matches []Match, patternContext interface{}) error {
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "driver.MatchGraph", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("match_count", len(matches)),
	))
	defer span.End()

	mctx := NewContext(d.opts.Handler)
	mctx.RunBegin(runID, len(matches))

	start := time.Now()
	patterns, err := d.flattenAll(ctx, matches, patternContext, nil)
	if err != nil {
		return d.normalizationFailed(span, mctx, err, start)
	}
	mctx.Flattened(-1, len(patterns), start) // graph is already flat

	return d.run(ctx, span, mctx, graph, matches, patterns)
}

// flattenAll flattens every pattern concurrently. extra may schedule more
// work on the same group.
func (d *Driver) flattenAll(
	ctx context.Context,
	matches []Match,
	patternContext interface{},
	extra func(ctx context.Context, g *errgroup.Group),
) ([]ldmatch.MemoryGraph, error) {
	g, gctx := errgroup.WithContext(ctx)
	if d.opts.MaxConcurrentFlatten > 0 {
		g.SetLimit(d.opts.MaxConcurrentFlatten)
	}

	if extra != nil {
		extra(gctx, g)
	}

	patterns := make([]ldmatch.MemoryGraph, len(matches))
	for i, m := range matches {
		g.Go(func() error {
			flattened, err := d.flattener.Flatten(gctx, m.Pattern, patternContext)
			if err != nil {
				return fmt.Errorf("normalizing pattern %s: %w", m.Name, err)
			}
			patterns[i] = flattened
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return patterns, nil
}

func (d *Driver) normalizationFailed(span trace.Span, mctx Context, err error, start time.Time) error {
	err = fmt.Errorf("%w: %w", ErrNormalization, err)
	mctx.NormalizationFailed(err, start)
	mctx.RunComplete(0, err)
	traceError(span, err)
	return err
}

func (d *Driver) run(
	ctx context.Context,
	span trace.Span,
	mctx Context,
	graph ldmatch.Graph,
	matches []Match,
	patterns []ldmatch.MemoryGraph,
) error {
	faults := &faultTracker{policy: d.opts.FaultPolicy}
	total := 0

	for i, m := range matches {
		total += d.runMatch(ctx, mctx, graph, m, patterns[i], faults)
		if faults.stop() {
			break
		}
	}

	err := faults.err()
	mctx.RunComplete(total, err)
	span.SetAttributes(attribute.Int("binding_count", total))
	if err != nil {
		traceError(span, err)
	}
	return err
}

// runMatch compiles and fully enumerates one registration, returning the
// number of bindings delivered
func (d *Driver) runMatch(
	ctx context.Context,
	mctx Context,
	graph ldmatch.Graph,
	m Match,
	patternGraph ldmatch.MemoryGraph,
	faults *faultTracker,
) int {
	_, span := tracer.Start(ctx, "driver.match", trace.WithAttributes(
		attribute.String("match", m.Name),
	))
	defer span.End()

	start := time.Now()
	p := pattern.NewPattern(patternGraph, m.Vars)
	src := d.matcher.Match(graph, p)
	mctx.PatternCompiled(m, src, start)

	bindings, faultCount := 0, 0
	it := d.matcher.Algebra().Iterator(src)
	for it.Next() {
		if err := it.Err(); err != nil {
			faultCount++
			faults.add(m.Name, err)
			mctx.PatternFault(m, err)
			if d.opts.Metrics != nil {
				d.opts.Metrics.Faults.WithLabelValues(m.Name).Inc()
			}
			continue
		}

		bindings++
		if m.Action != nil {
			m.Action(it.Binding())
		}
	}
	it.Close()

	if d.opts.Metrics != nil {
		d.opts.Metrics.Bindings.WithLabelValues(m.Name).Add(float64(bindings))
		d.opts.Metrics.Duration.WithLabelValues(m.Name).Observe(time.Since(start).Seconds())
	}
	mctx.PatternComplete(m, bindings, faultCount, start)

	span.SetAttributes(
		attribute.Int("binding_count", bindings),
		attribute.Int("fault_count", faultCount),
	)
	if faultCount > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d faults", faultCount))
	}
	return bindings
}

func traceError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
