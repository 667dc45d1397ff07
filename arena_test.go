// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import (
	"errors"
	"testing"
)

// expectInvariant runs f and fails unless it panics with ErrInvariant.
func expectInvariant(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("%s: expected panic", name)
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrInvariant) {
			t.Fatalf("%s: panic %v, want ErrInvariant", name, r)
		}
	}()
	f()
}

// =============================================================================
// Tagged Index
// =============================================================================

func TestTaggedIndex(t *testing.T) {
	v := packTagged(12345, 7)
	if got := tagIndex(v); got != 12345 {
		t.Fatalf("tagIndex: got %d, want 12345", got)
	}
	if got := tagOf(v); got != 7 {
		t.Fatalf("tagOf: got %d, want 7", got)
	}

	// Index bits above 32 are dropped, tag wraps
	v = packTagged(1<<32|5, 1<<32-1)
	if got := tagIndex(v); got != 5 {
		t.Fatalf("tagIndex overflow: got %d, want 5", got)
	}
	if got := tagOf(packTagged(5, tagOf(v)+1)); got != 0 {
		t.Fatalf("tag wrap: got %d, want 0", got)
	}
}

// =============================================================================
// Arena
// =============================================================================

func TestArenaAllocReclaim(t *testing.T) {
	a := newArena[int](3)

	seen := make(map[uint64]bool)
	for i := range 3 {
		idx, err := a.alloc()
		if err != nil {
			t.Fatalf("alloc(%d): %v", i, err)
		}
		if idx == nilIndex {
			t.Fatalf("alloc(%d): got nil index", i)
		}
		if seen[idx] {
			t.Fatalf("alloc(%d): index %d handed out twice", i, idx)
		}
		seen[idx] = true
		a.node(idx).value = i
	}

	if _, err := a.alloc(); !errors.Is(err, ErrExhausted) {
		t.Fatalf("alloc past limit: got %v, want ErrExhausted", err)
	}

	// A reclaimed index is reused, cleared and live again
	a.Reclaim(2)
	if got := a.node(2).state.LoadAcquire(); got != nodePoisoned {
		t.Fatalf("state after Reclaim: got %d, want poisoned", got)
	}
	if got := a.node(2).value; got != 0 {
		t.Fatalf("value after Reclaim: got %d, want 0", got)
	}

	idx, err := a.alloc()
	if err != nil {
		t.Fatalf("alloc after Reclaim: %v", err)
	}
	if idx != 2 {
		t.Fatalf("alloc after Reclaim: got %d, want 2", idx)
	}
	n := a.node(idx)
	if n.next.LoadRelaxed() != nilIndex {
		t.Fatalf("reused node: next not cleared")
	}
	a.checkLive(n, idx)
}

func TestArenaFreeListLIFO(t *testing.T) {
	a := newArena[int](8)
	var idx [4]uint64
	for i := range idx {
		idx[i], _ = a.alloc()
	}
	for _, i := range idx {
		a.Reclaim(i)
	}
	for i := len(idx) - 1; i >= 0; i-- {
		got, err := a.alloc()
		if err != nil {
			t.Fatalf("alloc: %v", err)
		}
		if got != idx[i] {
			t.Fatalf("alloc: got %d, want %d", got, idx[i])
		}
	}
}

func TestArenaSpansChunks(t *testing.T) {
	a := newArena[uint64](arenaChunkSize + 10)
	for i := range arenaChunkSize + 10 {
		idx, err := a.alloc()
		if err != nil {
			t.Fatalf("alloc(%d): %v", i, err)
		}
		a.node(idx).value = idx
	}
	for idx := uint64(1); idx <= arenaChunkSize+10; idx++ {
		if got := a.node(idx).value; got != idx {
			t.Fatalf("node(%d): got %d", idx, got)
		}
	}
}

func TestArenaPoisonAssertions(t *testing.T) {
	if !AssertEnabled {
		t.Skip("skip: assertions disabled by lfrelease")
	}
	a := newArena[int](2)
	idx, _ := a.alloc()
	a.Reclaim(idx)

	expectInvariant(t, "checkLive", func() { a.checkLive(a.node(idx), idx) })
	expectInvariant(t, "double Reclaim", func() { a.Reclaim(idx) })
}

func TestNewArenaPanics(t *testing.T) {
	for _, n := range []int{0, -1, int(maxIndex)} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("newArena(%d): expected panic", n)
				}
			}()
			newArena[int](n)
		}()
	}
}

// =============================================================================
// Backoff
// =============================================================================

func TestBackoffDoubling(t *testing.T) {
	var b Backoff
	if got := b.Delay(); got != minBackoff {
		t.Fatalf("zero Backoff: got %d, want %d", got, minBackoff)
	}

	want := uint32(minBackoff)
	for range 20 {
		b.Spin()
		want = min(want*2, maxBackoff)
		if got := b.Delay(); got != want {
			t.Fatalf("Delay: got %d, want %d", got, want)
		}
	}
	if b.Delay() != maxBackoff {
		t.Fatalf("Delay after 20 spins: got %d, want %d", b.Delay(), maxBackoff)
	}

	b.Reset()
	if got := b.Delay(); got != minBackoff {
		t.Fatalf("Delay after Reset: got %d, want %d", got, minBackoff)
	}
}

// =============================================================================
// SeqLock writer assertion
// =============================================================================

func TestSeqLockConcurrentWriterAssertion(t *testing.T) {
	if !AssertEnabled {
		t.Skip("skip: assertions disabled by lfrelease")
	}
	l := NewSeqLock([2]uint64{1, 2})

	// Simulate a writer stuck mid-write
	l.seq.StoreRelease(3)
	expectInvariant(t, "Write during write", func() { l.Write([2]uint64{3, 4}) })

	if got := l.seq.LoadAcquire(); got != 3 {
		t.Fatalf("sequence after rejected Write: got %d, want 3", got)
	}
	if _, err := l.TryRead(); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("TryRead during write: got %v, want ErrWouldBlock", err)
	}

	l.seq.StoreRelease(4)
	if got := l.Read(); got != [2]uint64{1, 2} {
		t.Fatalf("Read: got %v, want [1 2]", got)
	}
}

func TestSeqLockPacking(t *testing.T) {
	type odd struct {
		A uint8
		B uint32
		C [3]byte
		D int64
		E bool
	}
	v := odd{A: 0xAB, B: 0xDEADBEEF, C: [3]byte{1, 2, 3}, D: -42, E: true}
	l := NewSeqLock(v)
	if got := l.Read(); got != v {
		t.Fatalf("Read: got %+v, want %+v", got, v)
	}

	v2 := odd{A: 1, B: 2, C: [3]byte{4, 5, 6}, D: 1 << 62}
	l.Write(v2)
	if got := l.Read(); got != v2 {
		t.Fatalf("Read after Write: got %+v, want %+v", got, v2)
	}

	// Sizes that do not fill the last word
	b := NewSeqLock([5]byte{9, 8, 7, 6, 5})
	if got := b.Read(); got != [5]byte{9, 8, 7, 6, 5} {
		t.Fatalf("Read [5]byte: got %v", got)
	}
	if len(b.words) != 1 {
		t.Fatalf("[5]byte words: got %d, want 1", len(b.words))
	}

	e := NewSeqLock(struct{}{})
	e.Write(struct{}{})
	e.Read()
}
