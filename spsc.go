// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import "code.hybscloud.com/atomix"

// SPSC is a bounded single-producer single-consumer ring buffer.
//
// Based on Lamport's ring buffer with cached index optimization.
// The producer caches the consumer's dequeue index, and vice versa,
// reducing cross-core cache line traffic. No CAS is involved: each index
// has exactly one writer, which publishes it with a Release store.
//
// One slot is kept empty to tell full from empty, so a ring of capacity C
// holds at most C-1 elements.
//
// Memory: C slots of T
type SPSC[T any] struct {
	_          pad
	head       atomix.Uint64 // Consumer reads from here
	_          pad
	cachedTail uint64 // Consumer's cached view of tail
	_          pad
	tail       atomix.Uint64 // Producer writes here
	_          pad
	cachedHead uint64 // Producer's cached view of head
	_          pad
	buffer     []T
	capacity   uint64
}

// NewSPSC creates a ring of exactly capacity slots.
// Panics if capacity < 2.
func NewSPSC[T any](capacity int) *SPSC[T] {
	if capacity < 2 {
		panic("lockfree: capacity must be >= 2")
	}
	return &SPSC[T]{
		buffer:   make([]T, capacity),
		capacity: uint64(capacity),
	}
}

func (q *SPSC[T]) advance(i uint64) uint64 {
	i++
	if i == q.capacity {
		return 0
	}
	return i
}

// Enqueue adds an element to the ring (producer only).
// Returns ErrFull if C-1 elements are held; the caller keeps *elem.
func (q *SPSC[T]) Enqueue(elem *T) error {
	tail := q.tail.LoadRelaxed()
	next := q.advance(tail)
	if next == q.cachedHead {
		q.cachedHead = q.head.LoadAcquire()
		if next == q.cachedHead {
			return ErrFull
		}
	}

	q.buffer[tail] = *elem
	q.tail.StoreRelease(next)
	return nil
}

// Dequeue removes and returns the oldest element (consumer only).
// Returns (zero-value, ErrEmpty) if the ring is empty.
func (q *SPSC[T]) Dequeue() (T, error) {
	head := q.head.LoadRelaxed()
	if head == q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head == q.cachedTail {
			var zero T
			return zero, ErrEmpty
		}
	}

	elem := q.buffer[head]
	var zero T
	q.buffer[head] = zero
	q.head.StoreRelease(q.advance(head))
	return elem, nil
}

// Cap returns the ring capacity C. At most C-1 elements fit.
func (q *SPSC[T]) Cap() int {
	return int(q.capacity)
}

// Len returns the number of held elements.
// The result is a snapshot and may be stale outside the owning goroutines.
func (q *SPSC[T]) Len() int {
	head := q.head.LoadAcquire()
	tail := q.tail.LoadAcquire()
	if tail >= head {
		return int(tail - head)
	}
	return int(q.capacity - head + tail)
}

// IsEmpty reports whether the ring holds no elements.
// Exact from the consumer goroutine.
func (q *SPSC[T]) IsEmpty() bool {
	return q.head.LoadAcquire() == q.tail.LoadAcquire()
}

// IsFull reports whether the ring holds C-1 elements.
// Exact from the producer goroutine.
func (q *SPSC[T]) IsFull() bool {
	return q.advance(q.tail.LoadAcquire()) == q.head.LoadAcquire()
}
