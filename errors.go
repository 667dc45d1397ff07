// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// ErrWouldBlock is a control flow signal, not a failure. [ErrEmpty] and
// [ErrFull] wrap it, and [SeqLock.TryRead] returns it directly when a write
// overlapped the read.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrEmpty is returned by Pop and Dequeue when there is nothing to take.
// It is the expected steady state of an idle consumer.
//
// ErrEmpty wraps [ErrWouldBlock].
var ErrEmpty = fmt.Errorf("lockfree: empty: %w", iox.ErrWouldBlock)

// ErrFull is returned by bounded Enqueue when every usable slot holds
// unread data. The element was not consumed; the caller decides whether
// to retry or drop it.
//
// ErrFull wraps [ErrWouldBlock].
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Enqueue(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if lockfree.IsFull(err) {
//	        backoff.Wait()
//	        continue
//	    }
//	    return err
//	}
var ErrFull = fmt.Errorf("lockfree: full: %w", iox.ErrWouldBlock)

// ErrExhausted reports that a fixed-size resource ran out: every hazard or
// epoch slot is leased, or the node arena reached its MaxNodes limit.
//
// ErrExhausted is a sizing defect, not a transient condition. Size the
// reclaimer for the number of goroutines that operate concurrently.
var ErrExhausted = errors.New("lockfree: resource exhausted")

// ErrInvariant is the panic value (wrapped) raised by assertions, e.g. two
// concurrent seqlock writers or a read of a node that was already reclaimed.
//
// Assertions are enabled unless the package is built with the lfrelease tag.
var ErrInvariant = errors.New("lockfree: invariant violation")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic]; ErrEmpty and ErrFull are unwrapped first.
func IsSemantic(err error) bool {
	return iox.IsSemantic(err) || errors.Is(err, iox.ErrWouldBlock)
}

// IsNonFailure reports whether err represents a non-failure condition:
// nil, ErrWouldBlock (or an error wrapping it), or iox's ErrMore.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err) || errors.Is(err, iox.ErrWouldBlock)
}

// IsEmpty reports whether err is [ErrEmpty].
func IsEmpty(err error) bool {
	return errors.Is(err, ErrEmpty)
}

// IsFull reports whether err is [ErrFull].
func IsFull(err error) bool {
	return errors.Is(err, ErrFull)
}

// IsExhausted reports whether err is [ErrExhausted].
func IsExhausted(err error) bool {
	return errors.Is(err, ErrExhausted)
}

// invariant panics with an error wrapping ErrInvariant.
func invariant(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...)))
}
