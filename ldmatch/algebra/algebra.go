package algebra

import (
	"errors"

	"github.com/wbrown/janus-ldmatch/ldmatch"
)

// Options controls how sources are enumerated. None of the options change
// the observable output of an enumeration.
type Options struct {
	// BufferJoinOperands records the left operand of every join the first
	// time it is walked and replays it for the remaining right-hand
	// bindings instead of recomputing it.
	BufferJoinOperands bool
}

// DefaultOptions returns the default enumeration options
func DefaultOptions() Options {
	return Options{
		BufferJoinOperands: false,
	}
}

// Algebra builds and enumerates binding sources. It carries the value
// equality used to decide binding compatibility.
type Algebra struct {
	equal ldmatch.Equality
	opts  Options
}

// New creates an algebra using equal to compare values.
// A nil equal falls back to ldmatch.CompareValues.
func New(equal ldmatch.Equality) *Algebra {
	return NewWithOptions(equal, DefaultOptions())
}

// NewWithOptions creates an algebra with explicit enumeration options
func NewWithOptions(equal ldmatch.Equality, opts Options) *Algebra {
	if equal == nil {
		equal = ldmatch.CompareValues
	}
	return &Algebra{equal: equal, opts: opts}
}

// Equality returns the value equality of this algebra
func (a *Algebra) Equality() ldmatch.Equality {
	return a.equal
}

// Options returns the enumeration options of this algebra
func (a *Algebra) Options() Options {
	return a.opts
}

// Single produces exactly one binding
func (a *Algebra) Single(b ldmatch.Binding) *Source {
	return &Source{op: OpSingle, rows: []ldmatch.Binding{b}}
}

// Table produces the given bindings in order
func (a *Algebra) Table(bindings ...ldmatch.Binding) *Source {
	rows := make([]ldmatch.Binding, len(bindings))
	copy(rows, bindings)
	return &Source{op: OpTable, rows: rows}
}

// Multiply produces times full enumerations of src, one after the other
func (a *Algebra) Multiply(src *Source, times int) *Source {
	if times < 0 {
		times = 0
	}
	return &Source{op: OpMultiply, children: []*Source{src}, times: times}
}

// Union concatenates the enumerations of sources in order.
// Union() is the incompatible source.
func (a *Algebra) Union(sources ...*Source) *Source {
	children := make([]*Source, len(sources))
	copy(children, sources)
	return &Source{op: OpUnion, children: children}
}

// Extend keeps the bindings of src that are compatible with b and merges
// the variables of b they lack into them
func (a *Algebra) Extend(src *Source, b ldmatch.Binding) *Source {
	return &Source{op: OpExtend, children: []*Source{src}, with: b}
}

// Join combines sources by compatible extension. The binary case extends the
// whole left source with every binding of the right source in turn; the
// n-ary case folds from the right, and Join() is Single({}).
func (a *Algebra) Join(sources ...*Source) *Source {
	if len(sources) == 0 {
		return a.Compatible()
	}
	return &Source{op: OpJoin, children: []*Source{sources[0], a.Join(sources[1:]...)}}
}

// Project restricts every binding of src to vars
func (a *Algebra) Project(src *Source, vars []string) *Source {
	kept := make([]string, len(vars))
	copy(kept, vars)
	return &Source{op: OpProject, children: []*Source{src}, vars: kept}
}

// Compatible is the source of the single empty binding, the identity of Join
func (a *Algebra) Compatible() *Source {
	return a.Single(ldmatch.EmptyBinding())
}

// Incompatible is the source of no bindings, the identity of Union
func (a *Algebra) Incompatible() *Source {
	return a.Union()
}

// Fault produces a single fault event carrying err
func (a *Algebra) Fault(err error) *Source {
	return &Source{op: OpFault, err: err}
}

// Iterator starts a fresh enumeration of src
func (a *Algebra) Iterator(src *Source) Iterator {
	switch src.op {
	case OpSingle, OpTable:
		return &sliceIterator{rows: src.rows, pos: -1}

	case OpMultiply:
		child := src.children[0]
		return &concatIterator{
			count: src.times,
			open:  func(int) Iterator { return a.Iterator(child) },
		}

	case OpUnion:
		children := src.children
		return &concatIterator{
			count: len(children),
			open:  func(i int) Iterator { return a.Iterator(children[i]) },
		}

	case OpExtend:
		return newExtendIterator(a.Iterator(src.children[0]), src.with, a.equal)

	case OpJoin:
		return a.newJoinIterator(src.children[0], src.children[1])

	case OpProject:
		return &projectIterator{source: a.Iterator(src.children[0]), vars: src.vars}

	case OpFault:
		return &faultIterator{err: src.err}

	default:
		panic("algebra: unknown source op " + src.op.String())
	}
}

// Collect enumerates src to completion. It returns every binding produced
// and the faults observed along the way, joined.
func (a *Algebra) Collect(src *Source) ([]ldmatch.Binding, error) {
	it := a.Iterator(src)
	defer it.Close()

	var rows []ldmatch.Binding
	var faults []error
	for it.Next() {
		if err := it.Err(); err != nil {
			faults = append(faults, err)
			continue
		}
		rows = append(rows, it.Binding())
	}
	return rows, errors.Join(faults...)
}

// ForEach enumerates src to completion, calling onBinding for each binding
// and onFault for each fault event, in stream order
func (a *Algebra) ForEach(src *Source, onBinding func(ldmatch.Binding), onFault func(error)) {
	it := a.Iterator(src)
	defer it.Close()

	for it.Next() {
		if err := it.Err(); err != nil {
			if onFault != nil {
				onFault(err)
			}
			continue
		}
		if onBinding != nil {
			onBinding(it.Binding())
		}
	}
}
