package storage

import (
	"context"
	"errors"
	"sync"

	"tagflow/internal/catalog"
)

var errIteratorClosed = errors.New("iterator closed")

// walkIterator streams entries produced by a walk goroutine. The walk blocks
// on every send, so entries are produced only as fast as they are consumed.
type walkIterator struct {
	ch   chan catalog.Entry
	done chan struct{}

	mu  sync.Mutex
	err error

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// newWalkIterator starts walk in a goroutine. walk calls emit for each entry
// and must return the error emit returns.
func newWalkIterator(ctx context.Context, walk func(emit func(catalog.Entry) error) error) *walkIterator {
	it := &walkIterator{
		ch:   make(chan catalog.Entry),
		done: make(chan struct{}),
	}
	emit := func(e catalog.Entry) error {
		select {
		case it.ch <- e:
			return nil
		case <-it.done:
			return errIteratorClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	it.wg.Add(1)
	go func() {
		defer it.wg.Done()
		defer close(it.ch)
		if err := walk(emit); err != nil && !errors.Is(err, errIteratorClosed) {
			it.mu.Lock()
			it.err = err
			it.mu.Unlock()
		}
	}()
	return it
}

func (it *walkIterator) Next() (catalog.Entry, bool) {
	e, ok := <-it.ch
	return e, ok
}

func (it *walkIterator) Err() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.err
}

func (it *walkIterator) Close() error {
	it.closeOnce.Do(func() { close(it.done) })
	it.wg.Wait()
	return nil
}

// sliceIterator yields a precomputed listing.
type sliceIterator struct {
	entries []catalog.Entry
	idx     int
	err     error
}

func (it *sliceIterator) Next() (catalog.Entry, bool) {
	if it.idx >= len(it.entries) {
		return catalog.Entry{}, false
	}
	e := it.entries[it.idx]
	it.idx++
	return e, true
}

func (it *sliceIterator) Err() error   { return it.err }
func (it *sliceIterator) Close() error { return nil }
