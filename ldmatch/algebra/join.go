package algebra

import (
	"github.com/wbrown/janus-ldmatch/ldmatch"
)

// joinIterator enumerates a binary join in left-major order: the outer loop
// walks the right operand, and for each right binding the whole left operand
// is walked again and extended with it.
type joinIterator struct {
	alg     *Algebra
	left    *Source
	right   Iterator
	buffer  *bufferedOperand // nil unless join operands are buffered
	inner   Iterator
	current ldmatch.Binding
	err     error
}

func (a *Algebra) newJoinIterator(left, right *Source) *joinIterator {
	it := &joinIterator{
		alg:   a,
		left:  left,
		right: a.Iterator(right),
	}
	if a.opts.BufferJoinOperands {
		it.buffer = &bufferedOperand{open: func() Iterator { return a.Iterator(left) }}
	}
	return it
}

func (it *joinIterator) leftIterator() Iterator {
	if it.buffer != nil {
		return it.buffer.replay()
	}
	return it.alg.Iterator(it.left)
}

func (it *joinIterator) Next() bool {
	for {
		if it.inner != nil {
			if it.inner.Next() {
				it.current, it.err = it.inner.Binding(), it.inner.Err()
				return true
			}
			it.inner.Close()
			it.inner = nil
		}

		if !it.right.Next() {
			return false
		}
		if err := it.right.Err(); err != nil {
			it.current, it.err = ldmatch.Binding{}, err
			return true
		}
		it.inner = newExtendIterator(it.leftIterator(), it.right.Binding(), it.alg.equal)
	}
}

func (it *joinIterator) Binding() ldmatch.Binding {
	return it.current
}

func (it *joinIterator) Err() error {
	return it.err
}

func (it *joinIterator) Close() error {
	var lastErr error
	if it.inner != nil {
		if err := it.inner.Close(); err != nil {
			lastErr = err
		}
		it.inner = nil
	}
	if err := it.right.Close(); err != nil {
		lastErr = err
	}
	if it.buffer != nil {
		if err := it.buffer.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// bufferedItem is one recorded item of a buffered operand
type bufferedItem struct {
	binding ldmatch.Binding
	err     error
}

// bufferedOperand records an enumeration as it is walked so that it can be
// replayed without recomputing the source. Recording is lazy: items are
// pulled from the underlying iterator only when a replay reaches them.
type bufferedOperand struct {
	open     func() Iterator
	source   Iterator
	items    []bufferedItem
	consumed bool
}

// fill pulls from the source until position pos is recorded
func (b *bufferedOperand) fill(pos int) bool {
	for pos >= len(b.items) && !b.consumed {
		if b.source == nil {
			b.source = b.open()
		}
		if b.source.Next() {
			b.items = append(b.items, bufferedItem{
				binding: b.source.Binding(),
				err:     b.source.Err(),
			})
			continue
		}
		// Source is exhausted
		b.consumed = true
		b.source.Close()
		b.source = nil
	}
	return pos < len(b.items)
}

func (b *bufferedOperand) replay() Iterator {
	return &replayIterator{buffer: b, pos: -1}
}

// Close releases the underlying iterator if it was not walked to the end
func (b *bufferedOperand) Close() error {
	if b.source != nil {
		err := b.source.Close()
		b.source = nil
		return err
	}
	return nil
}

// replayIterator walks a bufferedOperand from the beginning
type replayIterator struct {
	buffer *bufferedOperand
	pos    int
}

func (it *replayIterator) Next() bool {
	if !it.buffer.fill(it.pos + 1) {
		return false
	}
	it.pos++
	return true
}

func (it *replayIterator) Binding() ldmatch.Binding {
	if it.pos >= 0 && it.pos < len(it.buffer.items) {
		return it.buffer.items[it.pos].binding
	}
	return ldmatch.Binding{}
}

func (it *replayIterator) Err() error {
	if it.pos >= 0 && it.pos < len(it.buffer.items) {
		return it.buffer.items[it.pos].err
	}
	return nil
}

// Close leaves the shared buffer to the join that owns it
func (it *replayIterator) Close() error {
	return nil
}
