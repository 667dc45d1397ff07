// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree_test

import (
	"errors"
	"fmt"

	"code.hybscloud.com/lockfree"
)

// ExampleNewStack demonstrates LIFO order on a Treiber stack.
func ExampleNewStack() {
	s := lockfree.NewStack[string]()

	for _, w := range []string{"first", "second", "third"} {
		s.Push(&w)
	}

	for {
		w, err := s.Pop()
		if lockfree.IsEmpty(err) {
			break
		}
		fmt.Println(w)
	}

	// Output:
	// third
	// second
	// first
}

// ExampleNewSPSC demonstrates that a ring of capacity C holds C-1 items.
func ExampleNewSPSC() {
	q := lockfree.NewSPSC[int](4)

	for i := 1; i <= 4; i++ {
		v := i * 10
		if err := q.Enqueue(&v); err != nil {
			fmt.Println("full at", v)
		}
	}

	for {
		v, err := q.Dequeue()
		if err != nil {
			break
		}
		fmt.Println(v)
	}

	// Output:
	// full at 40
	// 10
	// 20
	// 30
}

// ExampleNewMPSC demonstrates FIFO order on the linked MPSC queue.
func ExampleNewMPSC() {
	q := lockfree.NewMPSC[string]()

	for _, ev := range []string{"open", "write", "close"} {
		q.Enqueue(&ev)
	}

	for {
		ev, err := q.Dequeue()
		if err != nil {
			break
		}
		fmt.Println(ev)
	}

	// Output:
	// open
	// write
	// close
}

// ExampleNewSeqLock demonstrates publishing a small struct to readers.
func ExampleNewSeqLock() {
	type Position struct {
		X, Y, Z float64
	}

	l := lockfree.NewSeqLock(Position{})
	l.Write(Position{X: 1, Y: 2, Z: 3})

	fmt.Printf("%+v seq=%d\n", l.Read(), l.Sequence())

	// Output:
	// {X:1 Y:2 Z:3} seq=2
}

// ExampleNewHazardDomain demonstrates deferring reclamation while an
// address is protected.
func ExampleNewHazardDomain() {
	d := lockfree.NewHazardDomain(4)
	free := lockfree.DeleterFunc(func(addr uint64) {
		fmt.Println("reclaimed", addr)
	})

	g, _ := d.Acquire()
	g.Protect(1)

	d.Retire(1, free)
	d.Retire(2, free)
	d.Scan()

	g.Release()
	d.Scan()

	// Output:
	// reclaimed 2
	// reclaimed 1
}

// ExampleBuild demonstrates automatic algorithm selection.
func ExampleBuild() {
	spsc := lockfree.Build[int](lockfree.New().Capacity(16).SingleProducer().SingleConsumer())
	mpsc := lockfree.Build[int](lockfree.New().SingleConsumer())

	fmt.Printf("%T\n", spsc)
	fmt.Printf("%T\n", mpsc)

	// Output:
	// *lockfree.SPSC[int]
	// *lockfree.MPSC[int]
}

// ExampleIsWouldBlock demonstrates classifying control-flow errors.
func ExampleIsWouldBlock() {
	s := lockfree.NewStack[int]()
	_, err := s.Pop()

	fmt.Println(lockfree.IsWouldBlock(err))
	fmt.Println(lockfree.IsEmpty(err))
	fmt.Println(errors.Is(err, lockfree.ErrExhausted))

	// Output:
	// true
	// true
	// false
}
