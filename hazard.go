// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import (
	"slices"

	"code.hybscloud.com/atomix"
)

// DefaultHazardSlots is the slot count used when none is configured.
const DefaultHazardSlots = 128

// Hazard slot sentinels. Any other slot value is a protected address.
const (
	slotFree    uint64 = 0
	slotClaimed uint64 = 1 << 63
)

// HazardDomain is a hazard-pointer reclaimer.
//
// The domain owns a fixed array of N hazard slots, one per concurrently
// active operation, and a lock-free list of retired records. A reader
// publishes the address it is about to dereference in its slot; a scan
// reclaims only retired addresses that no slot publishes.
//
// A scan runs automatically when more than 2N records are pending, which
// bounds unreclaimed memory to O(N²) records across the domain.
//
// Capacity is fixed at construction. Acquire fails fast with ErrExhausted
// when all N slots are leased; size N for the largest number of goroutines
// that operate on structures sharing the domain at the same time.
//
// A domain may be shared by several structures. Addresses from different
// arenas may then collide, which only delays reclamation.
type HazardDomain struct {
	_         pad
	cursor    atomix.Uint64 // Rotating start position for Acquire
	_         pad
	list      retiredList
	slots     []hazardSlot
	threshold int64
}

type hazardSlot struct {
	addr atomix.Uint64
	_    padShort
}

// NewHazardDomain creates a hazard domain with the given slot count.
// Panics if slots < 1.
func NewHazardDomain(slots int) *HazardDomain {
	if slots < 1 {
		panic("lockfree: hazard slots must be >= 1")
	}
	return &HazardDomain{
		slots:     make([]hazardSlot, slots),
		threshold: 2 * int64(slots),
	}
}

// Acquire leases a free slot.
// Returns ErrExhausted when all slots are leased.
func (d *HazardDomain) Acquire() (Guard, error) {
	n := uint64(len(d.slots))
	start := d.cursor.AddAcqRel(1) - 1
	for i := range n {
		slot := int((start + i) % n)
		s := &d.slots[slot].addr
		if s.LoadRelaxed() == slotFree && s.CompareAndSwapAcqRel(slotFree, slotClaimed) {
			return Guard{owner: d, slot: slot}, nil
		}
	}
	return Guard{}, ErrExhausted
}

// Protect publishes addr in the guard's slot.
//
// The caller must reload the source of addr afterwards and retry if it
// changed; only then is addr safe from concurrent reclamation.
// Protecting nil keeps the slot leased without protecting anything.
func (d *HazardDomain) Protect(g Guard, addr uint64) {
	if addr == nilIndex {
		addr = slotClaimed
	}
	// Swap is a full barrier: the caller's reload of the source cannot be
	// satisfied before the hazard is visible to Scan.
	d.slots[g.slot].addr.Swap(addr)
}

// Release clears the guard's slot.
func (d *HazardDomain) Release(g Guard) {
	if g.owner == nil {
		return
	}
	d.slots[g.slot].addr.StoreRelease(slotFree)
}

// Retire queues addr for reclamation by d.
// Triggers a Scan once more than 2N records are pending.
func (d *HazardDomain) Retire(addr uint64, deleter Deleter) {
	if d.list.add(&retired{addr: addr, deleter: deleter}) > d.threshold {
		d.Scan()
	}
}

// Scan reclaims every retired address that no slot protects.
// Protected records stay queued for the next scan.
// Returns the number of deleters invoked.
func (d *HazardDomain) Scan() int {
	chain := d.list.detach()
	if chain == nil {
		return 0
	}

	// Pairs with the Swap in Protect. Every retired address was unlinked
	// before this point, so a reader that missed the unlink has its hazard
	// visible below.
	atomix.BarrierAcqRel()
	protected := make([]uint64, 0, len(d.slots))
	for i := range d.slots {
		if v := d.slots[i].addr.LoadAcquire(); v != slotFree && v != slotClaimed {
			protected = append(protected, v)
		}
	}
	slices.Sort(protected)

	return d.list.sweep(chain, func(r *retired) bool {
		_, found := slices.BinarySearch(protected, r.addr)
		return found
	})
}

// Slots returns the slot count N.
func (d *HazardDomain) Slots() int {
	return len(d.slots)
}

// Stats returns reclamation counters.
func (d *HazardDomain) Stats() ReclaimStats {
	return d.list.stats()
}
