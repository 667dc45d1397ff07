// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree_test

import (
	"runtime"
	"slices"
	"sync"
	"testing"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lockfree"
)

// recorder is a Deleter that remembers what it reclaimed.
type recorder struct {
	freed []uint64
}

func (r *recorder) Reclaim(addr uint64) {
	r.freed = append(r.freed, addr)
}

// =============================================================================
// HazardDomain
// =============================================================================

func TestHazardAcquireExhausted(t *testing.T) {
	d := lockfree.NewHazardDomain(2)
	if d.Slots() != 2 {
		t.Fatalf("Slots: got %d, want 2", d.Slots())
	}

	g1, err := d.Acquire()
	if err != nil {
		t.Fatalf("Acquire 1: %v", err)
	}
	g2, err := d.Acquire()
	if err != nil {
		t.Fatalf("Acquire 2: %v", err)
	}
	if g1.Slot() == g2.Slot() {
		t.Fatalf("both guards hold slot %d", g1.Slot())
	}

	g3, err := d.Acquire()
	if !lockfree.IsExhausted(err) {
		t.Fatalf("Acquire 3: got %v, want ErrExhausted", err)
	}
	if g3.Slot() != -1 {
		t.Fatalf("failed Acquire: got slot %d, want -1", g3.Slot())
	}
	g3.Release() // zero Guard is a no-op

	g1.Release()
	g4, err := d.Acquire()
	if err != nil {
		t.Fatalf("Acquire after Release: %v", err)
	}
	if g4.Slot() != g1.Slot() {
		t.Fatalf("Acquire after Release: got slot %d, want %d", g4.Slot(), g1.Slot())
	}
	g2.Release()
	g4.Release()
}

// TestHazardProtectDefersReclaim verifies a protected address survives
// scans until its guard releases it.
func TestHazardProtectDefersReclaim(t *testing.T) {
	d := lockfree.NewHazardDomain(4)
	rec := &recorder{}

	g, _ := d.Acquire()
	g.Protect(7)

	d.Retire(7, rec)
	d.Retire(8, rec)

	if n := d.Scan(); n != 1 {
		t.Fatalf("Scan with 7 protected: got %d, want 1", n)
	}
	if !slices.Equal(rec.freed, []uint64{8}) {
		t.Fatalf("freed: got %v, want [8]", rec.freed)
	}

	// Re-protecting another address releases 7
	g.Protect(9)
	if n := d.Scan(); n != 1 {
		t.Fatalf("Scan after re-protect: got %d, want 1", n)
	}
	g.Release()

	if !slices.Equal(rec.freed, []uint64{8, 7}) {
		t.Fatalf("freed: got %v, want [8 7]", rec.freed)
	}
	if n := d.Scan(); n != 0 {
		t.Fatalf("Scan on empty list: got %d, want 0", n)
	}

	st := d.Stats()
	if st.Retired != 2 || st.Reclaimed != 2 || st.Pending != 0 {
		t.Fatalf("Stats: got %+v", st)
	}
}

// TestHazardProtectNil verifies protecting nil keeps the slot leased.
func TestHazardProtectNil(t *testing.T) {
	d := lockfree.NewHazardDomain(1)
	g, _ := d.Acquire()
	g.Protect(0)
	if _, err := d.Acquire(); !lockfree.IsExhausted(err) {
		t.Fatalf("Acquire after Protect(0): got %v, want ErrExhausted", err)
	}
	g.Release()
}

// TestHazardRetireThreshold verifies Retire scans once pending exceeds 2N.
func TestHazardRetireThreshold(t *testing.T) {
	d := lockfree.NewHazardDomain(1)
	rec := &recorder{}

	d.Retire(1, rec)
	d.Retire(2, rec)
	if st := d.Stats(); st.Scans != 0 || st.Pending != 2 {
		t.Fatalf("Stats before threshold: got %+v", st)
	}

	d.Retire(3, rec)
	st := d.Stats()
	if st.Scans != 1 || st.Reclaimed != 3 || st.Pending != 0 {
		t.Fatalf("Stats after threshold: got %+v", st)
	}
	slices.Sort(rec.freed)
	if !slices.Equal(rec.freed, []uint64{1, 2, 3}) {
		t.Fatalf("freed: got %v, want [1 2 3]", rec.freed)
	}
}

// TestHazardDeleterFunc exercises the function adapter.
func TestHazardDeleterFunc(t *testing.T) {
	d := lockfree.NewHazardDomain(1)
	var got uint64
	d.Retire(42, lockfree.DeleterFunc(func(addr uint64) { got = addr }))
	d.Scan()
	if got != 42 {
		t.Fatalf("DeleterFunc: got %d, want 42", got)
	}
}

// =============================================================================
// EpochDomain
// =============================================================================

// TestEpochPinDefersReclaim verifies a pinned participant holds back
// records retired at or after its epoch.
func TestEpochPinDefersReclaim(t *testing.T) {
	d := lockfree.NewEpochDomain(2)
	rec := &recorder{}

	g, err := d.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	e0 := d.Epoch()
	d.Retire(5, rec)

	if n := d.Scan(); n != 0 {
		t.Fatalf("Scan while pinned: got %d, want 0", n)
	}
	if d.Epoch() != e0+1 {
		t.Fatalf("Epoch after Scan: got %d, want %d", d.Epoch(), e0+1)
	}

	g.Release()
	if n := d.Scan(); n != 1 {
		t.Fatalf("Scan after Release: got %d, want 1", n)
	}
	if !slices.Equal(rec.freed, []uint64{5}) {
		t.Fatalf("freed: got %v, want [5]", rec.freed)
	}
}

// TestEpochOlderRecordsReclaimed verifies records retired before the
// oldest pin are freed while newer ones wait.
func TestEpochOlderRecordsReclaimed(t *testing.T) {
	d := lockfree.NewEpochDomain(4)
	rec := &recorder{}

	d.Retire(1, rec)
	d.Scan() // reclaims 1, epoch 0 → 1
	d.Retire(2, rec)
	d.Scan() // reclaims 2, epoch 1 → 2

	d.Retire(3, rec) // stamped 2
	g, _ := d.Acquire()
	d.Retire(4, rec) // stamped 2, pinned at 2

	if n := d.Scan(); n != 0 {
		t.Fatalf("Scan with pin at 2: got %d, want 0", n)
	}
	g.Release()
	if n := d.Scan(); n != 2 {
		t.Fatalf("Scan after Release: got %d, want 2", n)
	}

	slices.Sort(rec.freed)
	if !slices.Equal(rec.freed, []uint64{1, 2, 3, 4}) {
		t.Fatalf("freed: got %v, want [1 2 3 4]", rec.freed)
	}
}

func TestEpochAcquireExhausted(t *testing.T) {
	d := lockfree.NewEpochDomain(1)
	g, _ := d.Acquire()
	if _, err := d.Acquire(); !lockfree.IsExhausted(err) {
		t.Fatalf("Acquire 2: got %v, want ErrExhausted", err)
	}
	g.Protect(99) // no-op
	g.Release()
	if _, err := d.Acquire(); err != nil {
		t.Fatalf("Acquire after Release: %v", err)
	}
}

// TestStackWithEpochDomain runs the stack on the epoch reclaimer.
func TestStackWithEpochDomain(t *testing.T) {
	s := lockfree.BuildStack[int](lockfree.New().EpochBased().HazardSlots(2).MaxNodes(16))
	for round := range 1000 {
		for i := range 4 {
			v := round*4 + i
			if err := s.Push(&v); err != nil {
				t.Fatalf("round %d Push: %v", round, err)
			}
		}
		for i := 3; i >= 0; i-- {
			v, err := s.Pop()
			if err != nil {
				t.Fatalf("round %d Pop: %v", round, err)
			}
			if v != round*4+i {
				t.Fatalf("round %d Pop: got %d, want %d", round, v, round*4+i)
			}
		}
	}
	if st := s.Reclaimer().Stats(); st.Reclaimed == 0 {
		t.Fatalf("Reclaimed: got 0, want scans to recycle nodes")
	}
}

// =============================================================================
// Publication ordering
// =============================================================================

// TestReclaimProtectUnlinkRace races a reader that protects and revalidates
// the current address against a writer that unlinks it, retires it and
// scans. An address the reader validated must stay unreclaimed until the
// reader releases its guard.
func TestReclaimProtectUnlinkRace(t *testing.T) {
	if lockfree.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}
	if runtime.NumCPU() < 2 {
		t.Skip("skip: store/load reordering needs two CPUs")
	}
	if prev := runtime.GOMAXPROCS(0); prev < 2 {
		runtime.GOMAXPROCS(2)
		defer runtime.GOMAXPROCS(prev)
	}

	rounds := 200_000
	if testing.Short() {
		rounds = 20_000
	}

	domains := map[string]func() lockfree.Reclaimer{
		"hazard": func() lockfree.Reclaimer { return lockfree.NewHazardDomain(2) },
		"epoch":  func() lockfree.Reclaimer { return lockfree.NewEpochDomain(2) },
	}
	for name, newDomain := range domains {
		t.Run(name, func(t *testing.T) {
			d := newDomain()
			freed := make([]atomix.Bool, rounds+2)
			deleter := lockfree.DeleterFunc(func(addr uint64) {
				freed[addr].Store(true)
			})

			var src atomix.Uint64
			var stop atomix.Bool
			var validated, violations atomix.Int64
			src.StoreRelease(1)

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for !stop.Load() {
					g, err := d.Acquire()
					if err != nil {
						continue
					}
					addr := src.LoadAcquire()
					g.Protect(addr)
					if src.LoadAcquire() == addr {
						validated.Add(1)
						// Hold the address across a few of the writer's scans.
						for range 8 {
							if freed[addr].Load() {
								violations.Add(1)
								break
							}
						}
					}
					g.Release()
				}
			}()

			for addr := uint64(2); addr <= uint64(rounds)+1; addr++ {
				src.StoreRelease(addr)
				d.Retire(addr-1, deleter)
				d.Scan()
			}
			// src is stable now, so the reader validates eventually.
			for validated.Load() == 0 {
				runtime.Gosched()
			}
			stop.Store(true)
			wg.Wait()
			d.Scan()

			if n := violations.Load(); n != 0 {
				t.Fatalf("reclaimed while protected: %d times in %d validated reads", n, validated.Load())
			}
			st := d.Stats()
			if st.Retired != int64(rounds) || st.Pending != 0 {
				t.Fatalf("Stats: got retired=%d pending=%d, want %d and 0", st.Retired, st.Pending, rounds)
			}
		})
	}
}
