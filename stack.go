// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import "code.hybscloud.com/atomix"

// DefaultMaxNodes is the arena node limit used when none is configured.
const DefaultMaxNodes = 1 << 24

// Stack is a lock-free unbounded LIFO (Treiber stack).
//
// Nodes live in an index-addressed arena; head is a single atomic index
// swung by CAS. Pop protects the head node through a [Reclaimer] before
// reading its link, and retires the node instead of freeing it, so a node
// is never recycled while another Pop may still read it. This also rules
// out the ABA problem on head: a protected index cannot be reused.
//
// Push and Pop are safe from any number of goroutines. Both are lock-free:
// a failed CAS means another goroutine succeeded.
//
// Memory: one arena node per element, up to MaxNodes (default 1<<24).
type Stack[T any] struct {
	_       pad
	head    atomix.Uint64 // Arena index of the top node
	_       pad
	nodes   *arena[T]
	reclaim Reclaimer
}

// NewStack creates an empty stack backed by a private hazard domain with
// DefaultHazardSlots slots.
// Use BuildStack to share a reclaimer or change limits.
func NewStack[T any]() *Stack[T] {
	return newStack[T](NewHazardDomain(DefaultHazardSlots), DefaultMaxNodes)
}

func newStack[T any](r Reclaimer, maxNodes int) *Stack[T] {
	if r == nil {
		panic("lockfree: nil reclaimer")
	}
	return &Stack[T]{
		nodes:   newArena[T](maxNodes),
		reclaim: r,
	}
}

// Push adds an element on top of the stack.
// Returns ErrExhausted if the arena holds MaxNodes live nodes.
func (s *Stack[T]) Push(elem *T) error {
	idx, err := s.nodes.alloc()
	if err != nil {
		return err
	}
	n := s.nodes.node(idx)
	n.value = *elem

	var b Backoff
	for {
		head := s.head.LoadRelaxed()
		n.next.StoreRelaxed(head)
		if s.head.CompareAndSwapAcqRel(head, idx) {
			return nil
		}
		b.Spin()
	}
}

// Pop removes and returns the top element.
// Returns (zero-value, ErrEmpty) if the stack is empty, or
// (zero-value, ErrExhausted) if the reclaimer has no free slot.
func (s *Stack[T]) Pop() (T, error) {
	var zero T
	g, err := s.reclaim.Acquire()
	if err != nil {
		return zero, err
	}

	var b Backoff
	for {
		head := s.head.LoadAcquire()
		if head == nilIndex {
			g.Release()
			return zero, ErrEmpty
		}

		g.Protect(head)
		if s.head.LoadAcquire() != head {
			continue
		}

		n := s.nodes.node(head)
		s.nodes.checkLive(n, head)
		next := n.next.LoadAcquire()
		if s.head.CompareAndSwapAcqRel(head, next) {
			elem := n.value
			s.reclaim.Retire(head, s.nodes)
			g.Release()
			return elem, nil
		}
		b.Spin()
	}
}

// IsEmpty reports whether the stack had no elements at the moment of the
// call. The answer may be stale by the time it is used.
func (s *Stack[T]) IsEmpty() bool {
	return s.head.LoadAcquire() == nilIndex
}

// Reclaimer returns the reclaimer that retires popped nodes.
func (s *Stack[T]) Reclaimer() Reclaimer {
	return s.reclaim
}
