package vulkan

import "github.com/andewx/corporation/hal"

// table maps hal handles of one object kind onto native objects. Handles
// are drawn from a counter shared by every table of a device so that no
// two live objects share a handle.
type table[T any] struct {
	next  *hal.Handle
	items map[hal.Handle]T
}

func newTable[T any](next *hal.Handle) table[T] {
	return table[T]{next: next, items: make(map[hal.Handle]T)}
}

func (t *table[T]) add(v T) hal.Handle {
	*t.next++
	h := *t.next
	t.items[h] = v
	return h
}

func (t *table[T]) get(h hal.Handle) (T, bool) {
	v, ok := t.items[h]
	return v, ok
}

// remove deletes h and returns what it referred to. ok is false for the
// null handle and for handles already removed.
func (t *table[T]) remove(h hal.Handle) (v T, ok bool) {
	v, ok = t.items[h]
	if ok {
		delete(t.items, h)
	}
	return v, ok
}

func (t *table[T]) len() int { return len(t.items) }
