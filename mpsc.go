// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MPSC is an unbounded multi-producer single-consumer linked queue.
//
// The list always starts with a sentinel node: head is the sentinel, the
// first element lives in head.next. Producers link a new node behind tail
// with a CAS on tail.next, then swing tail forward; any producer that finds
// tail lagging helps move it. The consumer owns head.
//
// A dequeued sentinel is retired through the [Reclaimer], not freed on the
// spot: a producer may still hold it as a lagging tail. Producers protect
// tail for the same reason.
//
// Enqueue is lock-free. Dequeue must only be called from one goroutine at a
// time; it is wait-free apart from retirement.
//
// Memory: one arena node per element plus the sentinel.
type MPSC[T any] struct {
	_       pad
	head    atomix.Uint64 // Sentinel index (consumer writes)
	_       pad
	tail    atomix.Uint64 // Last node index (producers CAS)
	_       pad
	nodes   *arena[T]
	reclaim Reclaimer
}

// NewMPSC creates an empty queue backed by a private hazard domain with
// DefaultHazardSlots slots.
// Use BuildMPSC to share a reclaimer or change limits.
func NewMPSC[T any]() *MPSC[T] {
	return newMPSC[T](NewHazardDomain(DefaultHazardSlots), DefaultMaxNodes)
}

func newMPSC[T any](r Reclaimer, maxNodes int) *MPSC[T] {
	if r == nil {
		panic("lockfree: nil reclaimer")
	}
	// One extra node for the sentinel.
	q := &MPSC[T]{
		nodes:   newArena[T](maxNodes + 1),
		reclaim: r,
	}
	sentinel, err := q.nodes.alloc()
	if err != nil {
		panic(err)
	}
	q.head.StoreRelaxed(sentinel)
	q.tail.StoreRelease(sentinel)
	return q
}

// Enqueue appends an element (multiple producers safe).
// Returns ErrExhausted if the arena or the reclaimer is out of capacity.
func (q *MPSC[T]) Enqueue(elem *T) error {
	g, err := q.reclaim.Acquire()
	if err != nil {
		return err
	}
	idx, err := q.nodes.alloc()
	if err != nil {
		g.Release()
		return err
	}
	q.nodes.node(idx).value = *elem

	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		g.Protect(tail)
		if q.tail.LoadAcquire() != tail {
			continue
		}

		t := q.nodes.node(tail)
		q.nodes.checkLive(t, tail)
		next := t.next.LoadAcquire()
		if next == nilIndex {
			if t.next.CompareAndSwapAcqRel(nilIndex, idx) {
				// Failure means another producer or the consumer already
				// moved tail past us.
				q.tail.CompareAndSwapAcqRel(tail, idx)
				g.Release()
				return nil
			}
		} else {
			q.tail.CompareAndSwapAcqRel(tail, next)
		}
		sw.Once()
	}
}

// Dequeue removes and returns the oldest element (single consumer only).
// Returns (zero-value, ErrEmpty) if the queue is empty.
func (q *MPSC[T]) Dequeue() (T, error) {
	var zero T
	head := q.head.LoadRelaxed()
	h := q.nodes.node(head)
	next := h.next.LoadAcquire()
	if next == nilIndex {
		return zero, ErrEmpty
	}

	// tail must not point at the sentinel about to be retired.
	if q.tail.LoadAcquire() == head {
		q.tail.CompareAndSwapAcqRel(head, next)
	}

	n := q.nodes.node(next)
	elem := n.value
	n.value = zero
	q.head.StoreRelease(next)
	q.reclaim.Retire(head, q.nodes)
	return elem, nil
}

// IsEmpty reports whether the queue had no elements at the moment of the
// call. Exact only from the consumer goroutine.
func (q *MPSC[T]) IsEmpty() bool {
	head := q.head.LoadAcquire()
	return q.nodes.node(head).next.LoadAcquire() == nilIndex
}

// Reclaimer returns the reclaimer that retires dequeued sentinels.
func (q *MPSC[T]) Reclaimer() Reclaimer {
	return q.reclaim
}
