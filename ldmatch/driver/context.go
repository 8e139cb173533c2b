package driver

import (
	"time"

	"github.com/wbrown/janus-ldmatch/ldmatch/algebra"
	"github.com/wbrown/janus-ldmatch/ldmatch/annotations"
)

// Context provides annotation points for tracking a match run.
// A negative subject count means the document was not flattened in this run.
type Context interface {
	RunBegin(runID string, matchCount int)
	Flattened(subjectCount, patternCount int, start time.Time)
	NormalizationFailed(err error, start time.Time)
	PatternCompiled(m Match, src *algebra.Source, start time.Time)
	PatternFault(m Match, err error)
	PatternComplete(m Match, bindings, faults int, start time.Time)
	RunComplete(bindings int, err error)

	// Collector returns the underlying collector, nil when not annotating
	Collector() *annotations.Collector
}

// NewContext creates an appropriate context based on whether annotations are needed.
func NewContext(handler annotations.Handler) Context {
	if handler == nil {
		return &BaseContext{}
	}
	return &AnnotatedContext{
		collector: annotations.NewCollector(handler),
	}
}

// BaseContext provides a no-op implementation with zero overhead.
type BaseContext struct{}

func (c *BaseContext) RunBegin(runID string, matchCount int) {}

func (c *BaseContext) Flattened(subjectCount, patternCount int, start time.Time) {}

func (c *BaseContext) NormalizationFailed(err error, start time.Time) {}

func (c *BaseContext) PatternCompiled(m Match, src *algebra.Source, start time.Time) {}

func (c *BaseContext) PatternFault(m Match, err error) {}

func (c *BaseContext) PatternComplete(m Match, bindings, faults int, start time.Time) {}

func (c *BaseContext) RunComplete(bindings int, err error) {}

func (c *BaseContext) Collector() *annotations.Collector {
	return nil
}

// AnnotatedContext provides full annotation tracking
type AnnotatedContext struct {
	BaseContext
	collector *annotations.Collector
	runStart  time.Time
	runID     string
}

func (c *AnnotatedContext) RunBegin(runID string, matchCount int) {
	c.runStart = time.Now()
	c.runID = runID
	c.collector.Add(annotations.Event{
		Name:  annotations.MatchInvoked,
		Start: c.runStart,
		Data: map[string]interface{}{
			"run.id":      runID,
			"match.count": matchCount,
		},
	})
}

func (c *AnnotatedContext) Flattened(subjectCount, patternCount int, start time.Time) {
	data := map[string]interface{}{
		"run.id":        c.runID,
		"pattern.count": patternCount,
	}
	if subjectCount >= 0 {
		data["subject.count"] = subjectCount
	}
	c.collector.AddTiming(annotations.MatchFlattened, start, data)
}

func (c *AnnotatedContext) NormalizationFailed(err error, start time.Time) {
	c.collector.AddTiming(annotations.ErrorNormalization, start, map[string]interface{}{
		"run.id": c.runID,
		"error":  err,
	})
}

func (c *AnnotatedContext) PatternCompiled(m Match, src *algebra.Source, start time.Time) {
	c.collector.AddTiming(annotations.PatternCompiled, start, map[string]interface{}{
		"match":        m.Name,
		"vars":         m.Vars,
		"source.nodes": src.Nodes(),
	})
}

func (c *AnnotatedContext) PatternFault(m Match, err error) {
	c.collector.Add(annotations.Event{
		Name:  annotations.PatternFault,
		Start: time.Now(),
		Data: map[string]interface{}{
			"match": m.Name,
			"error": err,
		},
	})
}

func (c *AnnotatedContext) PatternComplete(m Match, bindings, faults int, start time.Time) {
	c.collector.AddTiming(annotations.PatternComplete, start, map[string]interface{}{
		"match":         m.Name,
		"vars":          m.Vars,
		"binding.count": bindings,
		"fault.count":   faults,
	})
}

func (c *AnnotatedContext) RunComplete(bindings int, err error) {
	data := map[string]interface{}{
		"run.id":        c.runID,
		"binding.count": bindings,
		"success":       err == nil,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	c.collector.AddTiming(annotations.MatchComplete, c.runStart, data)
}

func (c *AnnotatedContext) Collector() *annotations.Collector {
	return c.collector
}
