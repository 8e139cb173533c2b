package algebra

import (
	"github.com/wbrown/janus-ldmatch/ldmatch"
)

// Iterator walks one enumeration of a Source.
//
// Each successful Next positions the iterator on an item that is either a
// binding or, when Err returns non-nil, a fault event. Faults do not end the
// stream; the caller decides whether to keep reading.
type Iterator interface {
	// Next advances to the next item
	Next() bool

	// Binding returns the current binding; zero when the item is a fault
	Binding() ldmatch.Binding

	// Err returns the fault carried by the current item, nil for bindings
	Err() error

	// Close releases any resources
	Close() error
}

// sliceIterator replays a fixed list of bindings
type sliceIterator struct {
	rows []ldmatch.Binding
	pos  int
}

func (it *sliceIterator) Next() bool {
	if it.pos+1 >= len(it.rows) {
		it.pos = len(it.rows)
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Binding() ldmatch.Binding {
	if it.pos >= 0 && it.pos < len(it.rows) {
		return it.rows[it.pos]
	}
	return ldmatch.Binding{}
}

func (it *sliceIterator) Err() error {
	return nil
}

func (it *sliceIterator) Close() error {
	return nil
}

// faultIterator yields a single fault event
type faultIterator struct {
	err  error
	done bool
}

func (it *faultIterator) Next() bool {
	if it.done {
		return false
	}
	it.done = true
	return true
}

func (it *faultIterator) Binding() ldmatch.Binding {
	return ldmatch.Binding{}
}

func (it *faultIterator) Err() error {
	return it.err
}

func (it *faultIterator) Close() error {
	return nil
}

// concatIterator walks count iterators one after the other.
// Each iterator is opened only when the previous one is exhausted.
type concatIterator struct {
	count   int
	open    func(i int) Iterator
	next    int
	current Iterator
}

func (it *concatIterator) Next() bool {
	for {
		if it.current != nil {
			if it.current.Next() {
				return true
			}
			// Current iterator exhausted, move to next
			it.current.Close()
			it.current = nil
		}
		if it.next >= it.count {
			return false
		}
		it.current = it.open(it.next)
		it.next++
	}
}

func (it *concatIterator) Binding() ldmatch.Binding {
	if it.current == nil {
		return ldmatch.Binding{}
	}
	return it.current.Binding()
}

func (it *concatIterator) Err() error {
	if it.current == nil {
		return nil
	}
	return it.current.Err()
}

func (it *concatIterator) Close() error {
	if it.current != nil {
		err := it.current.Close()
		it.current = nil
		return err
	}
	return nil
}

// extendIterator drops source bindings incompatible with the extension and
// merges the extension into the rest. Faults pass through unchanged.
type extendIterator struct {
	source  Iterator
	with    ldmatch.Binding
	equal   ldmatch.Equality
	current ldmatch.Binding
	err     error
}

func newExtendIterator(source Iterator, with ldmatch.Binding, equal ldmatch.Equality) *extendIterator {
	return &extendIterator{source: source, with: with, equal: equal}
}

func (it *extendIterator) Next() bool {
	for it.source.Next() {
		if err := it.source.Err(); err != nil {
			it.current, it.err = ldmatch.Binding{}, err
			return true
		}
		b := it.source.Binding()
		if b.Compatible(it.with, it.equal) {
			it.current, it.err = b.Merge(it.with), nil
			return true
		}
	}
	return false
}

func (it *extendIterator) Binding() ldmatch.Binding {
	return it.current
}

func (it *extendIterator) Err() error {
	return it.err
}

func (it *extendIterator) Close() error {
	return it.source.Close()
}

// projectIterator restricts every binding to a set of variables
type projectIterator struct {
	source  Iterator
	vars    []string
	current ldmatch.Binding
}

func (it *projectIterator) Next() bool {
	if !it.source.Next() {
		return false
	}
	if it.source.Err() == nil {
		it.current = it.source.Binding().Project(it.vars)
	} else {
		it.current = ldmatch.Binding{}
	}
	return true
}

func (it *projectIterator) Binding() ldmatch.Binding {
	return it.current
}

func (it *projectIterator) Err() error {
	return it.source.Err()
}

func (it *projectIterator) Close() error {
	return it.source.Close()
}
