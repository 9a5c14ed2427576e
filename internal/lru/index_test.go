package lru

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// checkInvariants walks the list both ways and compares it with the lookup
// table and the aggregates.
func checkInvariants[V any](t *testing.T, x *Index[V]) {
	t.Helper()

	if (x.head == None) != (x.tail == None) {
		t.Fatalf("head = %d, tail = %d: exactly one is None", x.head, x.tail)
	}

	var count int
	var cost int64
	prev := None
	for h := x.head; h != None; h = x.slots[h].next {
		if x.slots[h].prev != prev {
			t.Fatalf("node %q prev = %d, want %d", x.slots[h].key, x.slots[h].prev, prev)
		}
		if got, ok := x.lookup[x.slots[h].key]; !ok || got != h {
			t.Fatalf("lookup[%q] = %d, %v; want %d", x.slots[h].key, got, ok, h)
		}
		count++
		cost += x.slots[h].cost
		prev = h
	}
	if prev != x.tail {
		t.Fatalf("last reachable node = %d, tail = %d", prev, x.tail)
	}
	if count != x.count || count != len(x.lookup) {
		t.Fatalf("reachable = %d, count = %d, lookup = %d", count, x.count, len(x.lookup))
	}
	if cost != x.cost {
		t.Fatalf("summed cost = %d, tracked cost = %d", cost, x.cost)
	}
}

func insertAll(x *Index[int], keys ...string) {
	for i, k := range keys {
		x.InsertAtHead(k, i, int64(i+1))
	}
}

func TestInsertAtHead(t *testing.T) {
	x := New[int]()
	insertAll(x, "a", "b", "c")

	if diff := cmp.Diff([]string{"c", "b", "a"}, x.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if x.Len() != 3 {
		t.Errorf("Len() = %d, want 3", x.Len())
	}
	if x.TotalCost() != 6 {
		t.Errorf("TotalCost() = %d, want 6", x.TotalCost())
	}
	if x.Key(x.Head()) != "c" || x.Key(x.Tail()) != "a" {
		t.Errorf("head = %s, tail = %s; want c, a", x.Key(x.Head()), x.Key(x.Tail()))
	}
	checkInvariants(t, x)
}

func TestMoveToHead(t *testing.T) {
	t.Run("head is a no-op", func(t *testing.T) {
		x := New[int]()
		insertAll(x, "a", "b", "c")
		x.MoveToHead(x.Head())
		if diff := cmp.Diff([]string{"c", "b", "a"}, x.Keys()); diff != "" {
			t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
		}
		checkInvariants(t, x)
	})

	t.Run("tail moves and predecessor becomes tail", func(t *testing.T) {
		x := New[int]()
		insertAll(x, "a", "b", "c")
		h, _ := x.Lookup("a")
		x.MoveToHead(h)
		if diff := cmp.Diff([]string{"a", "c", "b"}, x.Keys()); diff != "" {
			t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
		}
		if x.Key(x.Tail()) != "b" {
			t.Errorf("tail = %s, want b", x.Key(x.Tail()))
		}
		checkInvariants(t, x)
	})

	t.Run("interior node", func(t *testing.T) {
		x := New[int]()
		insertAll(x, "a", "b", "c", "d")
		h, _ := x.Lookup("b")
		x.MoveToHead(h)
		if diff := cmp.Diff([]string{"b", "d", "c", "a"}, x.Keys()); diff != "" {
			t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
		}
		checkInvariants(t, x)
	})

	t.Run("two nodes", func(t *testing.T) {
		x := New[int]()
		insertAll(x, "a", "b")
		h, _ := x.Lookup("a")
		x.MoveToHead(h)
		if diff := cmp.Diff([]string{"a", "b"}, x.Keys()); diff != "" {
			t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
		}
		checkInvariants(t, x)
	})
}

func TestRemoveTail(t *testing.T) {
	t.Run("empty index reports false and resets aggregates", func(t *testing.T) {
		x := New[int]()
		if _, ok := x.RemoveTail(); ok {
			t.Error("RemoveTail() ok = true on empty index")
		}
		if x.Len() != 0 || x.TotalCost() != 0 {
			t.Errorf("Len() = %d, TotalCost() = %d; want 0, 0", x.Len(), x.TotalCost())
		}
		checkInvariants(t, x)
	})

	t.Run("removes least recently used", func(t *testing.T) {
		x := New[int]()
		insertAll(x, "a", "b", "c")
		e, ok := x.RemoveTail()
		if !ok {
			t.Fatal("RemoveTail() ok = false")
		}
		if e.Key != "a" || e.Value != 0 || e.Cost != 1 {
			t.Errorf("RemoveTail() = %+v, want {a 0 1}", e)
		}
		if _, found := x.Lookup("a"); found {
			t.Error("a still in lookup table")
		}
		if x.TotalCost() != 5 {
			t.Errorf("TotalCost() = %d, want 5", x.TotalCost())
		}
		checkInvariants(t, x)
	})

	t.Run("sole node empties the list", func(t *testing.T) {
		x := New[int]()
		insertAll(x, "only")
		if _, ok := x.RemoveTail(); !ok {
			t.Fatal("RemoveTail() ok = false")
		}
		if x.Head() != None || x.Tail() != None {
			t.Errorf("head = %d, tail = %d; want None", x.Head(), x.Tail())
		}
		checkInvariants(t, x)
	})
}

func TestRemoveNode(t *testing.T) {
	tests := []struct {
		name   string
		remove string
		want   []string
	}{
		{"head", "d", []string{"c", "b", "a"}},
		{"tail", "a", []string{"d", "c", "b"}},
		{"interior", "b", []string{"d", "c", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := New[int]()
			insertAll(x, "a", "b", "c", "d")
			h, ok := x.Lookup(tt.remove)
			if !ok {
				t.Fatalf("Lookup(%q) missing", tt.remove)
			}
			e := x.RemoveNode(h)
			if e.Key != tt.remove {
				t.Errorf("RemoveNode().Key = %s, want %s", e.Key, tt.remove)
			}
			if diff := cmp.Diff(tt.want, x.Keys()); diff != "" {
				t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
			}
			checkInvariants(t, x)
		})
	}

	t.Run("sole node", func(t *testing.T) {
		x := New[int]()
		h := x.InsertAtHead("k", 1, 10)
		x.RemoveNode(h)
		if x.Head() != None || x.Tail() != None {
			t.Errorf("head = %d, tail = %d; want None", x.Head(), x.Tail())
		}
		if x.TotalCost() != 0 {
			t.Errorf("TotalCost() = %d, want 0", x.TotalCost())
		}
		checkInvariants(t, x)
	})
}

func TestSlotReuse(t *testing.T) {
	x := New[int]()
	insertAll(x, "a", "b", "c")
	h, _ := x.Lookup("b")
	x.RemoveNode(h)

	nh := x.InsertAtHead("d", 9, 4)
	if nh != h {
		t.Errorf("InsertAtHead() handle = %d, want recycled %d", nh, h)
	}
	if len(x.slots) != 3 {
		t.Errorf("len(slots) = %d, want 3", len(x.slots))
	}
	if diff := cmp.Diff([]string{"d", "c", "a"}, x.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	checkInvariants(t, x)
}

func TestUpdate(t *testing.T) {
	x := New[string]()
	h := x.InsertAtHead("k", "v1", 10)
	x.InsertAtHead("j", "w", 5)

	x.Update(h, "v2", 3)
	if x.Value(h) != "v2" || x.Cost(h) != 3 {
		t.Errorf("Value, Cost = %s, %d; want v2, 3", x.Value(h), x.Cost(h))
	}
	if x.TotalCost() != 8 {
		t.Errorf("TotalCost() = %d, want 8", x.TotalCost())
	}
	checkInvariants(t, x)
}

func TestRemoveAll(t *testing.T) {
	x := New[int]()
	insertAll(x, "a", "b", "c")

	x.RemoveAll()
	x.RemoveAll()

	if x.Len() != 0 || x.TotalCost() != 0 {
		t.Errorf("Len() = %d, TotalCost() = %d; want 0, 0", x.Len(), x.TotalCost())
	}
	if len(x.Keys()) != 0 {
		t.Errorf("Keys() = %v, want empty", x.Keys())
	}
	checkInvariants(t, x)

	insertAll(x, "z")
	checkInvariants(t, x)
}

func TestMixedOperations(t *testing.T) {
	x := New[int]()
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("k%d", i%37)
		switch {
		case i%5 == 0:
			if h, ok := x.Lookup(key); ok {
				x.RemoveNode(h)
			}
		case i%3 == 0:
			if h, ok := x.Lookup(key); ok {
				x.MoveToHead(h)
			} else {
				x.InsertAtHead(key, i, int64(i%7))
			}
		case i%11 == 0:
			x.RemoveTail()
		default:
			if h, ok := x.Lookup(key); ok {
				x.Update(h, i, int64(i%4))
				x.MoveToHead(h)
			} else {
				x.InsertAtHead(key, i, int64(i%7))
			}
		}
		checkInvariants(t, x)
	}
}

func BenchmarkInsertRemoveTail(b *testing.B) {
	x := New[int]()
	keys := make([]string, 1024)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		k := keys[i%len(keys)]
		if h, ok := x.Lookup(k); ok {
			x.MoveToHead(h)
			continue
		}
		x.InsertAtHead(k, i, 1)
		if x.Len() > 512 {
			x.RemoveTail()
		}
	}
}
