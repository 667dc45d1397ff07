// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"errors"
	"fmt"

	"code.hybscloud.com/lockfree"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "lockfree"
	subsystem = "stress"
)

// Metrics are the harness counters, labelled by target.
type Metrics struct {
	// Ops counts completed operations by target and op.
	Ops *prometheus.CounterVec

	// Violations counts property violations by target and kind.
	Violations *prometheus.CounterVec

	// Reclaim mirrors the reclaimer counters by target and stat.
	Reclaim *prometheus.GaugeVec
}

// NewMetrics creates the harness metrics and registers them with r.
// Collectors already registered with r are reused.
func NewMetrics(r prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ops_total",
			Help:      "Completed operations.",
		}, []string{"target", "op"}),
		Violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "violations_total",
			Help:      "Observed property violations.",
		}, []string{"target", "kind"}),
		Reclaim: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reclaim",
			Help:      "Reclaimer counters at the end of a run.",
		}, []string{"target", "stat"}),
	}

	var err error
	if m.Ops, err = register(r, m.Ops); err != nil {
		return nil, err
	}
	if m.Violations, err = register(r, m.Violations); err != nil {
		return nil, err
	}
	if m.Reclaim, err = register(r, m.Reclaim); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](r prometheus.Registerer, c C) (C, error) {
	if err := r.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return c, fmt.Errorf("stress: register metrics: %w", err)
		}
		existing, ok := already.ExistingCollector.(C)
		if !ok {
			return c, fmt.Errorf("stress: metric collides with a %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return c, nil
}

func (m *Metrics) observeReclaim(target string, st lockfree.ReclaimStats) {
	m.Reclaim.WithLabelValues(target, "retired").Set(float64(st.Retired))
	m.Reclaim.WithLabelValues(target, "pending").Set(float64(st.Pending))
	m.Reclaim.WithLabelValues(target, "reclaimed").Set(float64(st.Reclaimed))
	m.Reclaim.WithLabelValues(target, "scans").Set(float64(st.Scans))
}
