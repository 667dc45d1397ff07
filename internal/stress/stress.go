// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stress exercises the lockfree structures at scale and checks
// their correctness properties: multiset preservation, per-producer FIFO
// order, ring order, and untorn seqlock reads. Poisoned-node assertions
// raised inside workers are counted as violations.
package stress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lockfree"
	"go.uber.org/zap"
)

// ErrViolation is returned by Run when any target violated a property.
var ErrViolation = errors.New("stress: property violated")

// Report summarizes one target run.
type Report struct {
	Target     string
	Ops        int64
	Violations int64
	Elapsed    time.Duration

	// Complete is false when the deadline cut the run short.
	Complete bool

	// Reclaim holds the reclaimer counters of linked targets.
	Reclaim lockfree.ReclaimStats
}

type runner func(ctx context.Context, cfg Config, m *Metrics) Report

var runners = map[string]runner{
	"stack":   runStack,
	"mpsc":    runMPSC,
	"spsc":    runSPSC,
	"seqlock": runSeqLock,
}

// Run exercises every configured target in order under cfg.Timeout.
// The logger is taken from ctx (see WithLogger).
//
// Returns ErrViolation if any property was violated, or the context error
// if the deadline expired first. Reports are returned in both cases.
func Run(ctx context.Context, cfg Config, m *Metrics) ([]Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	logger := Logger(ctx)

	reports := make([]Report, 0, len(cfg.Targets))
	violated := false
	for _, target := range cfg.Targets {
		logger.Info("target starting",
			zap.String("target", target),
			zap.Int("workers", cfg.Workers),
			zap.Int("ops", cfg.Ops),
			zap.String("reclaimer", cfg.Reclaimer),
		)

		start := time.Now()
		r := runners[target](ctx, cfg, m)
		r.Target = target
		r.Elapsed = time.Since(start)
		reports = append(reports, r)

		fields := []zap.Field{
			zap.String("target", target),
			zap.Int64("ops", r.Ops),
			zap.Int64("violations", r.Violations),
			zap.Duration("elapsed", r.Elapsed),
			zap.Bool("complete", r.Complete),
		}
		if r.Reclaim.Retired > 0 {
			fields = append(fields,
				zap.Int64("retired", r.Reclaim.Retired),
				zap.Int64("reclaimed", r.Reclaim.Reclaimed),
				zap.Int64("pending", r.Reclaim.Pending),
				zap.Int64("scans", r.Reclaim.Scans),
			)
		}
		if r.Violations > 0 {
			violated = true
			logger.Error("target violated properties", fields...)
		} else {
			logger.Info("target finished", fields...)
		}

		if err := ctx.Err(); err != nil {
			return reports, fmt.Errorf("stress: %s: %w", target, err)
		}
	}

	if violated {
		return reports, ErrViolation
	}
	return reports, nil
}

// tally accumulates per-target counts shared by workers.
type tally struct {
	target     string
	m          *Metrics
	ops        atomix.Int64
	violations atomix.Int64
}

func newTally(target string, m *Metrics) *tally {
	return &tally{target: target, m: m}
}

// done adds n completed operations of kind op.
func (t *tally) done(op string, n int64) {
	if n == 0 {
		return
	}
	t.ops.Add(n)
	t.m.Ops.WithLabelValues(t.target, op).Add(float64(n))
}

// violate records n violations of kind.
func (t *tally) violate(kind string, n int64) {
	if n == 0 {
		return
	}
	t.violations.Add(n)
	t.m.Violations.WithLabelValues(t.target, kind).Add(float64(n))
}

// recoverInvariant converts an assertion panic in a worker into a
// violation. Other panics propagate.
func (t *tally) recoverInvariant(ctx context.Context) {
	r := recover()
	if r == nil {
		return
	}
	err, ok := r.(error)
	if !ok || !errors.Is(err, lockfree.ErrInvariant) {
		panic(r)
	}
	Logger(ctx).Error("invariant violated", zap.String("target", t.target), zap.Error(err))
	t.violate("invariant", 1)
}

func (t *tally) report(complete bool) Report {
	return Report{
		Ops:        t.ops.Load(),
		Violations: t.violations.Load(),
		Complete:   complete,
	}
}

// stopped polls ctx every 1024 iterations.
func stopped(ctx context.Context, i int) bool {
	return i&1023 == 0 && ctx.Err() != nil
}

func builder(cfg Config) *lockfree.Builder {
	b := lockfree.New().HazardSlots(cfg.HazardSlots).MaxNodes(cfg.MaxNodes)
	if cfg.Reclaimer == "epoch" {
		b.EpochBased()
	}
	return b
}
