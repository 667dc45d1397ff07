// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

// Reclaimer defers the release of unlinked nodes until no operation can
// still be reading them.
//
// Structures depend on this capability instead of freeing nodes
// themselves. [HazardDomain] implements it with hazard pointers and
// [EpochDomain] with epoch-based reclamation; either may back a [Stack] or
// an [MPSC].
//
// Usage protocol for a reader:
//
//	g, err := r.Acquire()
//	if err != nil {
//	    return err // ErrExhausted: reclaimer undersized
//	}
//	for {
//	    p := src.LoadAcquire()
//	    g.Protect(p)
//	    if src.LoadAcquire() != p {
//	        continue // p may already be unlinked
//	    }
//	    // p is safe to dereference until g.Release
//	    ...
//	}
//	g.Release()
//
// Addresses are opaque uint64 values; nil (0) is never retired.
type Reclaimer interface {
	// Acquire leases a slot for one operation.
	// Returns ErrExhausted when every slot is leased.
	Acquire() (Guard, error)

	// Protect publishes addr as in use by the guard's operation.
	Protect(g Guard, addr uint64)

	// Release returns the guard's slot. Releasing a zero Guard is a no-op.
	Release(g Guard)

	// Retire hands an unlinked addr to the reclaimer. d.Reclaim(addr) runs
	// exactly once, after no guard can still reference addr.
	Retire(addr uint64, d Deleter)

	// Scan reclaims every retired address that is provably unreferenced
	// and returns how many were reclaimed.
	Scan() int

	// Stats returns reclamation counters.
	Stats() ReclaimStats
}

// Guard is a leased reclaimer slot.
//
// Release it on every path, typically right before returning. The zero
// Guard owns nothing.
type Guard struct {
	owner Reclaimer
	slot  int
}

// Protect publishes addr through the owning reclaimer.
func (g Guard) Protect(addr uint64) {
	if g.owner != nil {
		g.owner.Protect(g, addr)
	}
}

// Release returns the slot to the owning reclaimer.
func (g Guard) Release() {
	if g.owner != nil {
		g.owner.Release(g)
	}
}

// Slot returns the leased slot number, or -1 for the zero Guard.
func (g Guard) Slot() int {
	if g.owner == nil {
		return -1
	}
	return g.slot
}

// Deleter releases a retired address.
type Deleter interface {
	Reclaim(addr uint64)
}

// DeleterFunc adapts a function to [Deleter].
type DeleterFunc func(addr uint64)

// Reclaim calls f(addr).
func (f DeleterFunc) Reclaim(addr uint64) {
	f(addr)
}

// ReclaimStats are cumulative reclamation counters.
// They are read with relaxed loads and are only a snapshot.
type ReclaimStats struct {
	Retired   int64 // Addresses handed to Retire
	Pending   int64 // Retired but not yet reclaimed
	Reclaimed int64 // Deleters invoked
	Scans     int64 // Completed scans
}

// retired is one record of the retired list.
type retired struct {
	addr    uint64
	epoch   uint64 // Global epoch at retirement, EpochDomain only
	deleter Deleter
	next    *retired
}

// retiredList is a lock-free LIFO of retired records with counters.
//
// Records are pushed one at a time by Retire and detached all at once by a
// scan, so the ABA problem does not arise: detaching compares against the
// head it just loaded and takes whatever chain hangs off it.
type retiredList struct {
	_         pad
	head      atomic.Pointer[retired] // sync/atomic: stores need the GC write barrier
	_         pad
	pending   atomix.Int64
	total     atomix.Int64
	reclaimed atomix.Int64
	scans     atomix.Int64
}

// push links the chain first..last in front of the current head.
func (l *retiredList) push(first, last *retired) {
	for {
		head := l.head.Load()
		last.next = head
		if l.head.CompareAndSwap(head, first) {
			return
		}
	}
}

// add pushes one record and returns the pending count after the push.
func (l *retiredList) add(r *retired) int64 {
	l.push(r, r)
	l.total.AddAcqRel(1)
	return l.pending.AddAcqRel(1)
}

// detach takes the whole list.
func (l *retiredList) detach() *retired {
	for {
		head := l.head.Load()
		if head == nil || l.head.CompareAndSwap(head, nil) {
			return head
		}
	}
}

// sweep runs the deleter of every record in chain that keep rejects,
// re-inserts the rest, and updates the counters.
func (l *retiredList) sweep(chain *retired, keep func(*retired) bool) int {
	var kept, keptTail *retired
	reclaimed := 0
	for r := chain; r != nil; {
		next := r.next
		if keep(r) {
			r.next = kept
			if kept == nil {
				keptTail = r
			}
			kept = r
		} else {
			r.deleter.Reclaim(r.addr)
			r.deleter = nil
			reclaimed++
		}
		r = next
	}

	if kept != nil {
		l.push(kept, keptTail)
	}
	if reclaimed > 0 {
		l.pending.AddAcqRel(-int64(reclaimed))
		l.reclaimed.AddAcqRel(int64(reclaimed))
	}
	l.scans.AddAcqRel(1)
	return reclaimed
}

func (l *retiredList) stats() ReclaimStats {
	return ReclaimStats{
		Retired:   l.total.LoadRelaxed(),
		Pending:   l.pending.LoadRelaxed(),
		Reclaimed: l.reclaimed.LoadRelaxed(),
		Scans:     l.scans.LoadRelaxed(),
	}
}
