package cache

import "iter"

// Iterator walks a cache over a key snapshot taken when a traversal starts.
// Once exhausted it resets, so the next call to Next begins a new traversal
// over a fresh snapshot. Keys removed after the snapshot was taken are
// skipped. An Iterator is not safe for concurrent use; separate iterators
// never share a cursor.
type Iterator[V any] struct {
	snapshot func() []string
	resolve  func(key string) (V, bool)
	keys     []string
	pos      int
	active   bool
}

func newIterator[V any](snapshot func() []string, resolve func(string) (V, bool)) *Iterator[V] {
	return &Iterator[V]{snapshot: snapshot, resolve: resolve}
}

// Next returns the next key and value. ok is false when the traversal is
// complete.
func (it *Iterator[V]) Next() (key string, value V, ok bool) {
	if !it.active {
		it.keys = it.snapshot()
		it.pos = 0
		it.active = true
	}
	for it.pos < len(it.keys) {
		k := it.keys[it.pos]
		it.pos++
		if v, found := it.resolve(k); found {
			return k, v, true
		}
	}
	it.Reset()
	var zero V
	return "", zero, false
}

// Reset abandons the current traversal.
func (it *Iterator[V]) Reset() {
	it.keys = nil
	it.pos = 0
	it.active = false
}

func seq[V any](snapshot func() []string, resolve func(string) (V, bool)) iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range snapshot() {
			v, ok := resolve(k)
			if !ok {
				continue
			}
			if !yield(k, v) {
				return
			}
		}
	}
}
