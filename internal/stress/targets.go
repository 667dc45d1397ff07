// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"context"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lockfree"
)

// runStack mixes Push and Pop on every worker; each pushed value must be
// popped exactly once, during the run or by the final drain.
func runStack(ctx context.Context, cfg Config, m *Metrics) Report {
	t := newTally("stack", m)
	s := lockfree.BuildStack[int](builder(cfg))

	perWorker := cfg.Ops / cfg.Workers
	pushesPer := (perWorker + 1) / 2
	seen := make([]atomix.Int32, cfg.Workers*pushesPer)
	pushed := make([]int, cfg.Workers)
	var finished atomix.Int64
	var wg sync.WaitGroup

	for w := range cfg.Workers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			var pushes, pops int64
			defer func() {
				pushed[id] = int(pushes)
				t.done("push", pushes)
				t.done("pop", pops)
			}()
			defer t.recoverInvariant(ctx)

			backoff := iox.Backoff{}
			for i := range perWorker {
				if stopped(ctx, i) {
					return
				}
				// Out of phase by id so pushes and pops overlap.
				if (i+id)%2 == 0 && int(pushes) < pushesPer {
					v := id*pushesPer + int(pushes)
					if err := s.Push(&v); err != nil {
						backoff.Wait()
						continue
					}
					pushes++
					continue
				}
				v, err := s.Pop()
				if err != nil {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				seen[v].Add(1)
				pops++
			}
			finished.Add(1)
		}(w)
	}
	wg.Wait()

	var drained int64
	func() {
		defer t.recoverInvariant(ctx)
		for {
			v, err := s.Pop()
			if err != nil {
				return
			}
			seen[v].Add(1)
			drained++
		}
	}()
	t.done("pop", drained)

	var lost, dup int64
	for id, n := range pushed {
		for i := range n {
			switch seen[id*pushesPer+i].Load() {
			case 0:
				lost++
			case 1:
			default:
				dup++
			}
		}
	}
	t.violate("lost", lost)
	t.violate("duplicate", dup)

	r := t.report(finished.Load() == int64(cfg.Workers))
	r.Reclaim = s.Reclaimer().Stats()
	m.observeReclaim("stack", r.Reclaim)
	return r
}

// runMPSC runs Workers-1 producers against one consumer; each producer's
// values must arrive in order and none may be lost.
func runMPSC(ctx context.Context, cfg Config, m *Metrics) Report {
	t := newTally("mpsc", m)
	q := lockfree.BuildMPSC[int](builder(cfg).SingleConsumer())

	producers := cfg.Workers - 1
	perProd := max(cfg.Ops/2/producers, 1)
	produced := make([]atomix.Int64, producers)
	var finished atomix.Int64
	var wg sync.WaitGroup

	for p := range producers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer finished.Add(1)
			defer t.recoverInvariant(ctx)

			backoff := iox.Backoff{}
			for i := 0; i < perProd; {
				if stopped(ctx, i) {
					return
				}
				v := id*perProd + i
				if err := q.Enqueue(&v); err != nil {
					if ctx.Err() != nil {
						return
					}
					backoff.Wait()
					continue
				}
				backoff.Reset()
				produced[id].Add(1)
				i++
			}
		}(p)
	}

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	var received, outOfOrder int64
	func() {
		defer t.recoverInvariant(ctx)
		backoff := iox.Backoff{}
		for {
			done := finished.Load() == int64(producers)
			v, err := q.Dequeue()
			if err != nil {
				if done || ctx.Err() != nil {
					return
				}
				backoff.Wait()
				continue
			}
			backoff.Reset()
			p, seq := v/perProd, v%perProd
			if seq != last[p]+1 {
				outOfOrder++
			}
			last[p] = seq
			received++
		}
	}()
	wg.Wait()

	var sent, lost int64
	for p := range produced {
		n := produced[p].Load()
		sent += n
		if got := int64(last[p] + 1); got < n {
			lost += n - got
		}
	}
	t.done("enqueue", sent)
	t.done("dequeue", received)
	t.violate("order", outOfOrder)
	if ctx.Err() == nil {
		t.violate("lost", lost)
	}

	r := t.report(ctx.Err() == nil && sent == int64(producers*perProd))
	r.Reclaim = q.Reclaimer().Stats()
	m.observeReclaim("mpsc", r.Reclaim)
	return r
}

// runSPSC streams Ops/2 values through the ring; they must arrive in order.
func runSPSC(ctx context.Context, cfg Config, m *Metrics) Report {
	t := newTally("spsc", m)
	q := lockfree.NewSPSC[int](cfg.Capacity)
	n := cfg.Ops / 2

	var sent atomix.Int64
	var producerDone atomix.Bool
	go func() {
		defer producerDone.Store(true)
		backoff := iox.Backoff{}
		for i := 0; i < n; {
			if stopped(ctx, i) {
				return
			}
			if err := q.Enqueue(&i); err != nil {
				if ctx.Err() != nil {
					return
				}
				backoff.Wait()
				continue
			}
			backoff.Reset()
			i++
			sent.Add(1)
		}
	}()

	var want, outOfOrder int64
	backoff := iox.Backoff{}
	for want < int64(n) {
		done := producerDone.Load()
		v, err := q.Dequeue()
		if err != nil {
			if done || ctx.Err() != nil {
				break
			}
			backoff.Wait()
			continue
		}
		backoff.Reset()
		if int64(v) != want {
			outOfOrder++
		}
		want++
	}
	for !producerDone.Load() {
		backoff.Wait()
	}

	t.done("enqueue", sent.Load())
	t.done("dequeue", want)
	t.violate("order", outOfOrder)
	if ctx.Err() == nil {
		t.violate("lost", sent.Load()-want)
	}
	return t.report(want == int64(n))
}

// seqValue alternates between two self-consistent patterns.
type seqValue struct {
	A, B, C, D uint64
}

var seqPatterns = [2]seqValue{{1, 2, 3, 4}, {5, 6, 7, 8}}

// runSeqLock runs one writer alternating two patterns against Workers-1
// readers; no read may mix them.
func runSeqLock(ctx context.Context, cfg Config, m *Metrics) Report {
	t := newTally("seqlock", m)
	l := lockfree.NewSeqLock(seqPatterns[0])
	writes := cfg.Ops / 2

	var writerDone atomix.Bool
	var wg sync.WaitGroup
	for range cfg.Workers - 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var reads, torn int64
			for i := 0; !writerDone.Load(); i++ {
				if stopped(ctx, i) {
					break
				}
				if v := l.Read(); v != seqPatterns[0] && v != seqPatterns[1] {
					torn++
				}
				reads++
			}
			t.done("read", reads)
			t.violate("torn", torn)
		}()
	}

	written := 0
	for ; written < writes; written++ {
		if stopped(ctx, written) {
			break
		}
		l.Write(seqPatterns[(written+1)%2])
	}
	writerDone.Store(true)
	wg.Wait()

	t.done("write", int64(written))
	if l.Sequence() != uint64(2*written) {
		t.violate("sequence", 1)
	}
	return t.report(written == writes)
}
