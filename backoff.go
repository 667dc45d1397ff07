// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import "code.hybscloud.com/lockfree/internal/asm"

const (
	minBackoff = 1
	maxBackoff = 1024
)

// Backoff is an exponential spin delay for CAS retry loops.
//
// Each Spin executes the current delay in CPU pause hints and then doubles
// it, up to a ceiling of 1024. Reset returns to the minimum after a
// successful operation. Backoff never enters the Go scheduler, so a loop
// using it stays non-blocking; it only reduces cache-line contention.
//
// The zero value is ready to use. A Backoff must not be shared between
// goroutines.
//
// Example:
//
//	var b lockfree.Backoff
//	for !counter.CompareAndSwapAcqRel(old, old+1) {
//	    b.Spin()
//	    old = counter.LoadRelaxed()
//	}
type Backoff struct {
	delay uint32
}

// Spin pauses for the current delay and doubles it.
func (b *Backoff) Spin() {
	if b.delay < minBackoff {
		b.delay = minBackoff
	}
	asm.Pause(b.delay)
	if b.delay < maxBackoff {
		b.delay <<= 1
	}
}

// Reset restores the minimum delay.
func (b *Backoff) Reset() {
	b.delay = minBackoff
}

// Delay returns the number of pause hints the next Spin executes.
func (b *Backoff) Delay() uint32 {
	if b.delay < minBackoff {
		return minBackoff
	}
	return b.delay
}
