// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import (
	"encoding/binary"
	"reflect"
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// SeqLock publishes a small value to many readers without locking them out.
//
// The writer bumps the sequence to odd, stores the value, and bumps it back
// to even. A reader copies the value between two sequence loads and retries
// unless both loads return the same even number, so it never returns a value
// that was being written. Readers never block the writer.
//
// The value is held as atomic 64-bit words, so a torn read is discarded
// rather than being a data race. T must not contain pointers: a reader may
// copy words from two different writes before it detects the conflict.
//
// Exactly one goroutine may call Write at a time. With assertions enabled
// a second concurrent writer is detected and panics with ErrInvariant;
// building with the lfrelease tag removes the check.
type SeqLock[T any] struct {
	_     pad
	seq   atomix.Uint64
	_     pad
	words []atomix.Uint64
	size  int
}

// NewSeqLock creates a seqlock holding initial.
// Panics if T contains pointers.
func NewSeqLock[T any](initial T) *SeqLock[T] {
	if typ := reflect.TypeFor[T](); hasPointers(typ) {
		panic("lockfree: seqlock value type " + typ.String() + " contains pointers")
	}
	size := int(unsafe.Sizeof(initial))
	l := &SeqLock[T]{
		words: make([]atomix.Uint64, (size+7)/8),
		size:  size,
	}
	l.store(&initial)
	return l
}

// Write publishes v (single writer only).
func (l *SeqLock[T]) Write(v T) {
	if s := l.seq.AddAcqRel(1); s&1 == 0 && AssertEnabled {
		l.seq.AddAcqRel(^uint64(0))
		invariant("concurrent seqlock writers at sequence %d", s-1)
	}
	l.store(&v)
	l.seq.AddAcqRel(1)
}

// Read returns a consistent copy of the value, spinning while a write is
// in progress.
func (l *SeqLock[T]) Read() T {
	sw := spin.Wait{}
	for {
		if v, ok := l.read(); ok {
			return v
		}
		sw.Once()
	}
}

// TryRead makes one read attempt.
// Returns (zero-value, ErrWouldBlock) if a write overlapped the attempt.
func (l *SeqLock[T]) TryRead() (T, error) {
	v, ok := l.read()
	if !ok {
		var zero T
		return zero, ErrWouldBlock
	}
	return v, nil
}

// Sequence returns the current sequence number. It is even while no write
// is in progress and grows by two per completed write.
func (l *SeqLock[T]) Sequence() uint64 {
	return l.seq.LoadAcquire()
}

func (l *SeqLock[T]) read() (T, bool) {
	var v T
	s1 := l.seq.LoadAcquire()
	if s1&1 != 0 {
		return v, false
	}
	l.load(&v)
	if l.seq.LoadAcquire() != s1 {
		var zero T
		return zero, false
	}
	return v, true
}

// store packs *v little-endian into the word array.
func (l *SeqLock[T]) store(v *T) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(v)), l.size)
	for i := range l.words {
		var w uint64
		if off := i * 8; off+8 <= len(b) {
			w = binary.LittleEndian.Uint64(b[off:])
		} else {
			for j := len(b) - 1; j >= off; j-- {
				w = w<<8 | uint64(b[j])
			}
		}
		l.words[i].StoreRelease(w)
	}
}

// load unpacks the word array into *v.
func (l *SeqLock[T]) load(v *T) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(v)), l.size)
	for i := range l.words {
		w := l.words[i].LoadAcquire()
		if off := i * 8; off+8 <= len(b) {
			binary.LittleEndian.PutUint64(b[off:], w)
		} else {
			for j := off; j < len(b); j++ {
				b[j] = byte(w)
				w >>= 8
			}
		}
	}
}

// hasPointers reports whether values of t hold any Go pointer.
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.Slice, reflect.String:
		return true
	default:
		return false
	}
}
