// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

// Memory ordering discipline
//
// Every atomic in this package is an atomix type accessed with an explicit
// ordering. The rules are:
//
//	publish a value another goroutine will dereference  StoreRelease / CompareAndSwapAcqRel
//	consume a published value                           LoadAcquire
//	owner-local index or statistics, never dereferenced LoadRelaxed / StoreRelaxed
//	hazard publish                                      Swap (full barrier)
//	hazard scan, epoch retire and scan                  BarrierAcqRel, then LoadAcquire
//	epoch pin                                           CompareAndSwapAcqRel
//
// Hazard publication is the one place acquire/release is not enough: a
// reader stores its hazard and then reloads the source, and a reclaimer
// unlinks and then loads every hazard. Both sides need store→load order.
// atomix Store and Load are relaxed, so the reader publishes with an RMW
// (XCHG on amd64, SWPAL on arm64) and the reclaimer issues a full fence
// (MFENCE, DMB ISH) before it reads the slots.

const (
	// nilIndex is the arena address that links to nothing.
	nilIndex uint64 = 0

	// indexBits is the width of an arena index inside a tagged word.
	indexBits = 32
	indexMask = 1<<indexBits - 1

	// maxIndex is the largest arena index a tagged word can carry.
	maxIndex = indexMask
)

// packTagged combines an arena index and a version tag into one word.
// The tag occupies the high 32 bits and wraps silently.
func packTagged(index, tag uint64) uint64 {
	return tag<<indexBits | index&indexMask
}

// tagIndex extracts the arena index from a tagged word.
func tagIndex(v uint64) uint64 {
	return v & indexMask
}

// tagOf extracts the version tag from a tagged word.
func tagOf(v uint64) uint64 {
	return v >> indexBits
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
