// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

// Options configures structure creation.
type Options struct {
	// Producer/Consumer constraints (determines queue type)
	singleProducer bool
	singleConsumer bool

	// Ring capacity, SPSC only
	capacity int

	// Linked structures
	hazardSlots int
	maxNodes    int
	epochBased  bool
	reclaimer   Reclaimer
}

// Builder creates structures with fluent configuration.
//
// All settings are fixed once a structure is built; the builder itself may
// be reused.
//
// Example:
//
//	// SPSC ring of 1024 slots
//	q := lockfree.BuildSPSC[Event](lockfree.New().Capacity(1024).SingleProducer().SingleConsumer())
//
//	// MPSC queue sharing a hazard domain with a stack
//	hp := lockfree.NewHazardDomain(64)
//	q := lockfree.BuildMPSC[Request](lockfree.New().SingleConsumer().Reclaimer(hp))
//	s := lockfree.BuildStack[Request](lockfree.New().Reclaimer(hp))
type Builder struct {
	opts Options
}

// New creates a builder with default settings:
// DefaultHazardSlots hazard slots, DefaultMaxNodes arena nodes, no
// producer/consumer constraints.
func New() *Builder {
	return &Builder{opts: Options{
		hazardSlots: DefaultHazardSlots,
		maxNodes:    DefaultMaxNodes,
	}}
}

// Capacity sets the SPSC ring capacity C. The ring holds at most C-1
// elements. Panics if n < 2.
func (b *Builder) Capacity(n int) *Builder {
	if n < 2 {
		panic("lockfree: capacity must be >= 2")
	}
	b.opts.capacity = n
	return b
}

// HazardSlots sets the slot count of the reclaimer created for the
// structure: the maximum number of goroutines operating on it at once.
// Ignored when Reclaimer is set. Panics if n < 1.
func (b *Builder) HazardSlots(n int) *Builder {
	if n < 1 {
		panic("lockfree: hazard slots must be >= 1")
	}
	b.opts.hazardSlots = n
	return b
}

// MaxNodes sets the arena limit of linked structures: the maximum number of
// elements held plus retired nodes awaiting reclamation.
// Panics if n < 1.
func (b *Builder) MaxNodes(n int) *Builder {
	if n < 1 {
		panic("lockfree: max nodes must be >= 1")
	}
	b.opts.maxNodes = n
	return b
}

// EpochBased selects an [EpochDomain] instead of a [HazardDomain] for the
// reclaimer created for the structure. Ignored when Reclaimer is set.
func (b *Builder) EpochBased() *Builder {
	b.opts.epochBased = true
	return b
}

// Reclaimer shares r instead of creating a private reclaimer.
func (b *Builder) Reclaimer(r Reclaimer) *Builder {
	b.opts.reclaimer = r
	return b
}

// SingleProducer declares that only one goroutine will enqueue.
func (b *Builder) SingleProducer() *Builder {
	b.opts.singleProducer = true
	return b
}

// SingleConsumer declares that only one goroutine will dequeue.
func (b *Builder) SingleConsumer() *Builder {
	b.opts.singleConsumer = true
	return b
}

func (b *Builder) newReclaimer() Reclaimer {
	switch {
	case b.opts.reclaimer != nil:
		return b.opts.reclaimer
	case b.opts.epochBased:
		return NewEpochDomain(b.opts.hazardSlots)
	default:
		return NewHazardDomain(b.opts.hazardSlots)
	}
}

// Build creates a Queue[T] with automatic algorithm selection.
//
// Algorithm selection:
//
//	SingleProducer + SingleConsumer → SPSC (Lamport ring buffer)
//	SingleConsumer only             → MPSC (linked, unbounded)
//
// Panics for other configurations: multi-consumer queues are not provided.
func Build[T any](b *Builder) Queue[T] {
	switch {
	case b.opts.singleProducer && b.opts.singleConsumer:
		return BuildSPSC[T](b)
	case b.opts.singleConsumer:
		return BuildMPSC[T](b)
	default:
		panic("lockfree: Build requires SingleConsumer()")
	}
}

// BuildSPSC creates an SPSC ring with compile-time type safety.
// Panics if builder is not configured with
// Capacity(n).SingleProducer().SingleConsumer().
func BuildSPSC[T any](b *Builder) *SPSC[T] {
	if !b.opts.singleProducer || !b.opts.singleConsumer {
		panic("lockfree: BuildSPSC requires SingleProducer().SingleConsumer()")
	}
	if b.opts.capacity == 0 {
		panic("lockfree: BuildSPSC requires Capacity(n)")
	}
	return NewSPSC[T](b.opts.capacity)
}

// BuildMPSC creates an MPSC queue with compile-time type safety.
// Panics if builder is not configured with SingleConsumer() only.
func BuildMPSC[T any](b *Builder) *MPSC[T] {
	if b.opts.singleProducer || !b.opts.singleConsumer {
		panic("lockfree: BuildMPSC requires SingleConsumer() without SingleProducer()")
	}
	return newMPSC[T](b.newReclaimer(), b.opts.maxNodes)
}

// BuildStack creates a Treiber stack. Producer/consumer constraints and
// Capacity are ignored.
func BuildStack[T any](b *Builder) *Stack[T] {
	return newStack[T](b.newReclaimer(), b.opts.maxNodes)
}
