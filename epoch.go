// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import "code.hybscloud.com/atomix"

// EpochDomain is an epoch-based reclaimer.
//
// Each operation pins the global epoch in a participant slot for its
// duration; Protect is a no-op. Retire stamps a record with the current
// global epoch. Scan advances the global epoch and reclaims every record
// stamped before the oldest pinned epoch, or every record when nothing is
// pinned.
//
// Compared to [HazardDomain], readers publish once per operation instead
// of once per dereference, but a single stalled participant holds back all
// reclamation.
//
// Participant count is fixed at construction. Acquire fails fast with
// ErrExhausted when every participant slot is pinned.
type EpochDomain struct {
	_         pad
	global    atomix.Uint64
	_         pad
	cursor    atomix.Uint64
	_         pad
	list      retiredList
	slots     []hazardSlot // 0 = unpinned, otherwise pinned epoch + 1
	threshold int64
}

// NewEpochDomain creates an epoch domain with the given participant count.
// Panics if participants < 1.
func NewEpochDomain(participants int) *EpochDomain {
	if participants < 1 {
		panic("lockfree: epoch participants must be >= 1")
	}
	return &EpochDomain{
		slots:     make([]hazardSlot, participants),
		threshold: 2 * int64(participants),
	}
}

// Acquire pins the current global epoch in a free participant slot.
// Returns ErrExhausted when every slot is pinned.
func (d *EpochDomain) Acquire() (Guard, error) {
	n := uint64(len(d.slots))
	start := d.cursor.AddAcqRel(1) - 1
	for i := range n {
		slot := int((start + i) % n)
		s := &d.slots[slot].addr
		if s.LoadRelaxed() != slotFree {
			continue
		}
		// A pin older than the true epoch is conservative: it only holds
		// back more records.
		if s.CompareAndSwapAcqRel(slotFree, d.global.LoadAcquire()+1) {
			return Guard{owner: d, slot: slot}, nil
		}
	}
	return Guard{}, ErrExhausted
}

// Protect is a no-op: the pin taken by Acquire covers every address the
// operation reaches.
func (d *EpochDomain) Protect(Guard, uint64) {}

// Release unpins the guard's slot.
func (d *EpochDomain) Release(g Guard) {
	if g.owner == nil {
		return
	}
	d.slots[g.slot].addr.StoreRelease(slotFree)
}

// Retire queues addr stamped with the current global epoch.
// Triggers a Scan once more than 2N records are pending.
func (d *EpochDomain) Retire(addr uint64, deleter Deleter) {
	// The unlink of addr must precede the epoch read.
	atomix.BarrierAcqRel()
	r := &retired{addr: addr, epoch: d.global.LoadAcquire(), deleter: deleter}
	if d.list.add(r) > d.threshold {
		d.Scan()
	}
}

// Scan advances the global epoch and reclaims every record retired before
// the oldest pinned epoch. Returns the number of deleters invoked.
func (d *EpochDomain) Scan() int {
	d.global.AddAcqRel(1)

	chain := d.list.detach()
	if chain == nil {
		return 0
	}

	atomix.BarrierAcqRel()
	oldest := ^uint64(0)
	for i := range d.slots {
		if v := d.slots[i].addr.LoadAcquire(); v != slotFree && v-1 < oldest {
			oldest = v - 1
		}
	}

	return d.list.sweep(chain, func(r *retired) bool {
		return r.epoch >= oldest
	})
}

// Epoch returns the current global epoch.
func (d *EpochDomain) Epoch() uint64 {
	return d.global.LoadAcquire()
}

// Participants returns the participant slot count.
func (d *EpochDomain) Participants() int {
	return len(d.slots)
}

// Stats returns reclamation counters.
func (d *EpochDomain) Stats() ReclaimStats {
	return d.list.stats()
}
