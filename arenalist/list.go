// Package arenalist provides a doubly linked list whose nodes live in a
// growable arena and are addressed by stable integer ids.
//
// Removing a node only unlinks it and marks it dead; its slot is never
// reused, so an id held elsewhere can always be checked with Contains.
package arenalist

import "fmt"

// NodeID is the stable handle of a node. Ids are assigned in creation order
// starting at 0.
type NodeID int

const none NodeID = -1

type node[T any] struct {
	value T
	prev  NodeID
	next  NodeID
	live  bool
}

type List[T any] struct {
	nodes []node[T]
	head  NodeID
	tail  NodeID
	size  int
}

// DanglingReferenceError reports access to a node that was removed or never
// existed.
type DanglingReferenceError struct {
	Id NodeID
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("arenalist: dangling reference to node %d", e.Id)
}

// New returns an empty list with room for capacity nodes.
func New[T any](capacity int) *List[T] {
	return &List[T]{
		nodes: make([]node[T], 0, capacity),
		head:  none,
		tail:  none,
	}
}

func (l *List[T]) live(id NodeID) bool {
	return id >= 0 && int(id) < len(l.nodes) && l.nodes[id].live
}

// Append links value as the new tail and returns its id.
func (l *List[T]) Append(value T) NodeID {
	if l.nodes == nil {
		l.head, l.tail = none, none
	}
	id := NodeID(len(l.nodes))
	l.nodes = append(l.nodes, node[T]{
		value: value,
		prev:  l.tail,
		next:  none,
		live:  true,
	})
	if l.tail != none {
		l.nodes[l.tail].next = id
	} else {
		l.head = id
	}
	l.tail = id
	l.size++
	return id
}

func (l *List[T]) Get(id NodeID) (value T, err error) {
	if !l.live(id) {
		return value, &DanglingReferenceError{id}
	}
	return l.nodes[id].value, nil
}

func (l *List[T]) Set(id NodeID, value T) error {
	if !l.live(id) {
		return &DanglingReferenceError{id}
	}
	l.nodes[id].value = value
	return nil
}

// Remove splices the node out of the chain. The id stays allocated but is
// no longer reported as present.
func (l *List[T]) Remove(id NodeID) error {
	if !l.live(id) {
		return &DanglingReferenceError{id}
	}
	n := &l.nodes[id]
	if n.prev != none {
		l.nodes[n.prev].next = n.next
	} else {
		l.head = n.next
	}
	if n.next != none {
		l.nodes[n.next].prev = n.prev
	} else {
		l.tail = n.prev
	}
	var zero T
	n.value = zero
	n.prev, n.next = none, none
	n.live = false
	l.size--
	return nil
}

func (l *List[T]) Contains(id NodeID) bool {
	return l.live(id)
}

// Prev returns the neighbor before id. ok is false at the head of the list
// or when id is not live.
func (l *List[T]) Prev(id NodeID) (prev NodeID, ok bool) {
	if !l.live(id) || l.nodes[id].prev == none {
		return none, false
	}
	return l.nodes[id].prev, true
}

// Next returns the neighbor after id. ok is false at the tail of the list
// or when id is not live.
func (l *List[T]) Next(id NodeID) (next NodeID, ok bool) {
	if !l.live(id) || l.nodes[id].next == none {
		return none, false
	}
	return l.nodes[id].next, true
}

func (l *List[T]) Head() (NodeID, bool) {
	if l.size == 0 {
		return none, false
	}
	return l.head, true
}

// Len is the number of live nodes.
func (l *List[T]) Len() int {
	return l.size
}

// Values returns the live payloads in list order.
func (l *List[T]) Values() []T {
	values := make([]T, 0, l.size)
	for id, ok := l.Head(); ok; id, ok = l.Next(id) {
		values = append(values, l.nodes[id].value)
	}
	return values
}
