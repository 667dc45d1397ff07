// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lockfree provides lock-free concurrent primitives with safe
// memory reclamation.
//
// The package offers:
//
//   - Stack: Treiber stack, multi-producer multi-consumer LIFO
//   - MPSC: unbounded linked queue, multi-producer single-consumer FIFO
//   - SPSC: bounded ring buffer, single-producer single-consumer FIFO
//   - SeqLock: single-writer optimistic-read cell for pointer-free values
//   - HazardDomain, EpochDomain: reclaimers behind the Reclaimer interface
//   - Backoff: exponential CPU-pause spinning for CAS retry loops
//
// # Quick Start
//
// Direct constructors (private reclaimer, default limits):
//
//	s := lockfree.NewStack[Task]()
//	q := lockfree.NewMPSC[Event]()
//	r := lockfree.NewSPSC[Frame](1024)
//	l := lockfree.NewSeqLock(Point{})
//
// Builder API for shared reclaimers and limits:
//
//	hp := lockfree.NewHazardDomain(64)
//	s := lockfree.BuildStack[Task](lockfree.New().Reclaimer(hp).MaxNodes(1 << 20))
//	q := lockfree.Build[Event](lockfree.New().SingleConsumer().Reclaimer(hp))               // → MPSC
//	r := lockfree.Build[Frame](lockfree.New().Capacity(1024).SingleProducer().SingleConsumer()) // → SPSC
//
// # Basic Usage
//
//	s := lockfree.NewStack[int]()
//
//	value := 42
//	if err := s.Push(&value); err != nil {
//	    // ErrExhausted: arena limit reached
//	}
//
//	v, err := s.Pop()
//	if lockfree.IsEmpty(err) {
//	    // Nothing to pop - try again later
//	}
//
// # Memory Reclamation
//
// Linked structures keep their nodes in an index-addressed arena; links are
// arena indices and index 0 is nil. A node unlinked by one goroutine may
// still be read by another that loaded its index a moment earlier, so it is
// retired to a [Reclaimer] instead of being freed. The reclaimer returns it
// to the arena only when no operation can reach it.
//
// [HazardDomain] makes every reader publish the index it is about to read
// in a hazard slot. [EpochDomain] pins a global epoch for the duration of
// each operation. Both lease one slot per in-flight operation and return
// [ErrExhausted] when the slots are used up: size them for the number of
// goroutines that operate on the structures at once.
//
// A freed node is poisoned. With assertions enabled (the default) any later
// read of it panics with an error wrapping [ErrInvariant].
//
// # Error Handling
//
// Operations return [ErrEmpty] or [ErrFull] when they cannot proceed. Both
// wrap [ErrWouldBlock], sourced from [code.hybscloud.com/iox]:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := r.Enqueue(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !lockfree.IsWouldBlock(err) {
//	        return err // ErrExhausted
//	    }
//	    backoff.Wait()
//	}
//
// For semantic error classification (delegates to iox):
//
//	lockfree.IsWouldBlock(err)  // true if empty/full/overlapped read
//	lockfree.IsSemantic(err)    // true if control flow signal
//	lockfree.IsNonFailure(err)  // true if nil or ErrWouldBlock
//
// CAS contention is never reported; it is retried internally.
//
// # Thread Safety
//
//   - Stack: any number of goroutines
//   - MPSC: multiple producer goroutines, one consumer goroutine
//   - SPSC: one producer goroutine, one consumer goroutine
//   - SeqLock: one writer goroutine, any number of readers
//
// Violating these constraints causes undefined behavior including data
// corruption. A second concurrent SeqLock writer is detected by assertion.
//
// # Build Tags
//
//	lfrelease  disables assertions (poison checks, seqlock writer check)
//
// # Race Detection
//
// Go's race detector cannot observe happens-before relationships established
// through atomix acquire/release orderings. Payloads written before a
// Release store and read after the matching Acquire load are reported as
// races even though they are ordered.
//
// Concurrent tests skip themselves when [RaceEnabled] is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause instructions.
package lockfree
