// Package lru implements the exact-order recency index used by the memory tier.
//
// Nodes live in a slot arena owned by the Index. Links between nodes are slot
// handles, so the list never holds pointers into itself and a removed node's
// slot is recycled through a free list.
package lru

// Handle addresses a node slot inside an Index. Handles stay valid until the
// node is removed.
type Handle int32

// None is the handle of "no node".
const None Handle = -1

type node[V any] struct {
	key   string
	value V
	cost  int64
	prev  Handle
	next  Handle
}

// Entry is a node's payload as returned by removals.
type Entry[V any] struct {
	Key   string
	Value V
	Cost  int64
}

// Index is a doubly linked list (head = most recently used, tail = least
// recently used) plus a key lookup table. It is not safe for concurrent use.
type Index[V any] struct {
	slots  []node[V]
	free   []Handle
	lookup map[string]Handle
	head   Handle
	tail   Handle
	cost   int64
	count  int
}

// New returns an empty index.
func New[V any]() *Index[V] {
	return &Index[V]{
		lookup: make(map[string]Handle),
		head:   None,
		tail:   None,
	}
}

// Len returns the number of resident nodes.
func (x *Index[V]) Len() int { return x.count }

// TotalCost returns the sum of node costs.
func (x *Index[V]) TotalCost() int64 { return x.cost }

// Head returns the most recently used handle, or None.
func (x *Index[V]) Head() Handle { return x.head }

// Tail returns the least recently used handle, or None.
func (x *Index[V]) Tail() Handle { return x.tail }

// Lookup finds the node for key.
func (x *Index[V]) Lookup(key string) (Handle, bool) {
	h, ok := x.lookup[key]
	return h, ok
}

// Key returns the key stored at h.
func (x *Index[V]) Key(h Handle) string { return x.slots[h].key }

// Value returns the value stored at h.
func (x *Index[V]) Value(h Handle) V { return x.slots[h].value }

// Cost returns the cost stored at h.
func (x *Index[V]) Cost(h Handle) int64 { return x.slots[h].cost }

// Next returns the handle after h in recency order, or None.
func (x *Index[V]) Next(h Handle) Handle { return x.slots[h].next }

// Update replaces the value and cost at h, keeping the aggregate cost in step.
// It does not change the node's position.
func (x *Index[V]) Update(h Handle, value V, cost int64) {
	n := &x.slots[h]
	x.cost += cost - n.cost
	n.value = value
	n.cost = cost
}

// InsertAtHead adds a new node as the most recently used entry. The key must
// not already be present.
func (x *Index[V]) InsertAtHead(key string, value V, cost int64) Handle {
	h := x.alloc()
	x.slots[h] = node[V]{
		key:   key,
		value: value,
		cost:  cost,
		prev:  None,
		next:  x.head,
	}
	if x.head != None {
		x.slots[x.head].prev = h
	}
	x.head = h
	if x.tail == None {
		x.tail = h
	}
	x.lookup[key] = h
	x.cost += cost
	x.count++
	return h
}

// MoveToHead marks h as the most recently used entry.
func (x *Index[V]) MoveToHead(h Handle) {
	if x.head == h {
		return
	}
	n := &x.slots[h]

	// h is not the head, so it has a predecessor.
	x.slots[n.prev].next = n.next
	if n.next != None {
		x.slots[n.next].prev = n.prev
	}
	if x.tail == h {
		x.tail = n.prev
	}

	n.prev = None
	n.next = x.head
	x.slots[x.head].prev = h
	x.head = h
}

// RemoveTail unlinks the least recently used node. On an empty index it resets
// the aggregates and reports false.
func (x *Index[V]) RemoveTail() (Entry[V], bool) {
	if x.tail == None {
		x.head, x.tail = None, None
		x.cost, x.count = 0, 0
		return Entry[V]{}, false
	}
	return x.RemoveNode(x.tail), true
}

// RemoveNode unlinks h wherever it sits in the list and returns its payload.
func (x *Index[V]) RemoveNode(h Handle) Entry[V] {
	n := &x.slots[h]
	entry := Entry[V]{Key: n.key, Value: n.value, Cost: n.cost}

	switch {
	case x.head == h && x.tail == h:
		x.head, x.tail = None, None
	case x.head == h:
		x.head = n.next
		x.slots[n.next].prev = None
	case x.tail == h:
		x.tail = n.prev
		x.slots[n.prev].next = None
	default:
		x.slots[n.prev].next = n.next
		x.slots[n.next].prev = n.prev
	}

	delete(x.lookup, n.key)
	x.cost -= n.cost
	x.count--
	x.release(h)
	return entry
}

// RemoveAll drops every node.
func (x *Index[V]) RemoveAll() {
	x.slots = nil
	x.free = nil
	x.lookup = make(map[string]Handle)
	x.head, x.tail = None, None
	x.cost, x.count = 0, 0
}

// Keys returns the resident keys from head to tail.
func (x *Index[V]) Keys() []string {
	keys := make([]string, 0, x.count)
	for h := x.head; h != None; h = x.slots[h].next {
		keys = append(keys, x.slots[h].key)
	}
	return keys
}

func (x *Index[V]) alloc() Handle {
	if n := len(x.free); n > 0 {
		h := x.free[n-1]
		x.free = x.free[:n-1]
		return h
	}
	x.slots = append(x.slots, node[V]{})
	return Handle(len(x.slots) - 1)
}

func (x *Index[V]) release(h Handle) {
	// zero the slot so the value can be collected
	x.slots[h] = node[V]{prev: None, next: None}
	x.free = append(x.free, h)
}
