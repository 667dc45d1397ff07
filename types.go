// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

// Queue is the combined producer-consumer interface for a FIFO queue.
//
// Queue provides non-blocking Enqueue and Dequeue operations. Dequeue
// returns [ErrEmpty] when there is nothing to take; bounded queues return
// [ErrFull] from Enqueue when saturated.
//
// The interface intentionally excludes length because accurate counts in
// lock-free algorithms require expensive cross-core synchronization.
// Track counts in application logic when needed.
//
// Example:
//
//	q := lockfree.Build[int](lockfree.New().SingleConsumer())
//
//	// Enqueue
//	val := 42
//	if err := q.Enqueue(&val); err != nil {
//	    // Handle full queue or exhausted reclaimer
//	}
//
//	// Dequeue
//	elem, err := q.Dequeue()
//	if err == nil {
//	    fmt.Println(elem)
//	}
type Queue[T any] interface {
	Producer[T]
	Consumer[T]
}

// Producer is the interface for enqueueing elements.
//
// The element is passed by pointer to avoid copying large structs. The
// queue stores a copy of the pointed-to value, so the original can be
// modified after Enqueue returns.
type Producer[T any] interface {
	// Enqueue adds an element to the queue (non-blocking).
	//
	// Thread safety depends on queue type:
	//   - SPSC: single producer only
	//   - MPSC: multiple producers safe
	Enqueue(elem *T) error
}

// Consumer is the interface for dequeueing elements.
//
// The element is returned by value. The slot or node it came from is
// cleared so referenced objects can be garbage collected.
type Consumer[T any] interface {
	// Dequeue removes and returns an element from the queue (non-blocking).
	// Returns (zero-value, ErrEmpty) if the queue is empty.
	//
	// Both SPSC and MPSC allow a single consumer only.
	Dequeue() (T, error)
}

// LIFO is the interface of a lock-free stack.
type LIFO[T any] interface {
	// Push adds an element on top (multiple goroutines safe).
	Push(elem *T) error

	// Pop removes and returns the top element (multiple goroutines safe).
	// Returns (zero-value, ErrEmpty) if the stack is empty.
	Pop() (T, error)
}

// Bounded is implemented by fixed-capacity structures.
type Bounded interface {
	Cap() int
}
