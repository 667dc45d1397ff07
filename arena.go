// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

const (
	arenaChunkShift = 12
	arenaChunkSize  = 1 << arenaChunkShift
	arenaChunkMask  = arenaChunkSize - 1
)

// Node states. A node that was never handed out is nodeFree; a reclaimed
// node is poisoned until the free list hands it out again.
const (
	nodeFree uint64 = iota
	nodeLive
	nodePoisoned
)

// arenaNode is one linkable cell. next is the structure link while the
// node is live and the free-list link while it is not.
type arenaNode[T any] struct {
	next  atomix.Uint64
	state atomix.Uint64
	value T
}

type arenaChunk[T any] [arenaChunkSize]arenaNode[T]

// arena is chunked, index-addressed node storage.
//
// Index 0 is reserved as nil. Chunks are installed lazily with a CAS and
// never released, so a node address stays dereferenceable for the life of
// the arena; whether its contents are meaningful is decided by the
// reclaimer. Released nodes go to a Treiber free list whose head carries a
// version tag, so a recycled index cannot satisfy a stale CAS.
//
// Memory: (16 + sizeof(T)) bytes per node, allocated 4096 nodes at a time.
type arena[T any] struct {
	_      pad
	free   atomix.Uint64 // Tagged free-list head
	_      pad
	bump   atomix.Uint64 // Next never-used index
	_      pad
	chunks []atomic.Pointer[arenaChunk[T]]
	limit  uint64 // One past the highest usable index
}

// newArena creates an arena holding up to maxNodes live nodes.
func newArena[T any](maxNodes int) *arena[T] {
	if maxNodes < 1 {
		panic("lockfree: max nodes must be >= 1")
	}
	if uint64(maxNodes) >= maxIndex {
		panic("lockfree: max nodes must be < 2^32-1")
	}

	limit := uint64(maxNodes) + 1
	a := &arena[T]{
		chunks: make([]atomic.Pointer[arenaChunk[T]], (limit+arenaChunkMask)>>arenaChunkShift),
		limit:  limit,
	}
	a.bump.StoreRelaxed(1)
	return a
}

// node returns the cell at idx. idx must have been returned by alloc.
func (a *arena[T]) node(idx uint64) *arenaNode[T] {
	return &a.chunks[idx>>arenaChunkShift].Load()[idx&arenaChunkMask]
}

// alloc hands out a live node with a nil link.
// Returns ErrExhausted when maxNodes nodes are live.
func (a *arena[T]) alloc() (uint64, error) {
	sw := spin.Wait{}
	for {
		head := a.free.LoadAcquire()
		idx := tagIndex(head)
		if idx == nilIndex {
			break
		}

		n := a.node(idx)
		next := n.next.LoadAcquire()
		if a.free.CompareAndSwapAcqRel(head, packTagged(next, tagOf(head)+1)) {
			n.next.StoreRelaxed(nilIndex)
			n.state.StoreRelease(nodeLive)
			return idx, nil
		}
		sw.Once()
	}

	idx := a.bump.AddAcqRel(1) - 1
	if idx >= a.limit {
		return nilIndex, ErrExhausted
	}

	c := &a.chunks[idx>>arenaChunkShift]
	if c.Load() == nil {
		c.CompareAndSwap(nil, new(arenaChunk[T]))
	}

	n := a.node(idx)
	n.state.StoreRelease(nodeLive)
	return idx, nil
}

// Reclaim poisons the node at idx and pushes it onto the free list.
// It implements [Deleter] so retired nodes can be handed to a Reclaimer
// without a closure allocation.
func (a *arena[T]) Reclaim(idx uint64) {
	n := a.node(idx)
	var zero T
	n.value = zero

	if !n.state.CompareAndSwapAcqRel(nodeLive, nodePoisoned) && AssertEnabled {
		invariant("node %d reclaimed twice", idx)
	}

	sw := spin.Wait{}
	for {
		head := a.free.LoadAcquire()
		n.next.StoreRelaxed(tagIndex(head))
		if a.free.CompareAndSwapAcqRel(head, packTagged(idx, tagOf(head)+1)) {
			return
		}
		sw.Once()
	}
}

// checkLive asserts that n is not a reclaimed node.
// Callers invoke it after protecting and revalidating idx.
func (a *arena[T]) checkLive(n *arenaNode[T], idx uint64) {
	if AssertEnabled && n.state.LoadAcquire() != nodeLive {
		invariant("access to reclaimed node %d", idx)
	}
}
