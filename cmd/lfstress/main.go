// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command lfstress runs the lockfree stress harness.
//
// Settings come from flags, LFSTRESS_* environment variables, and an
// optional lfstress.{yaml,json,toml} file in /etc/lfstress, $HOME/.lfstress
// or the working directory, in that order of precedence. On exit the
// harness metrics are logged; the exit status is 1 if any property was
// violated, 2 for configuration errors, and 3 if the deadline expired.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"code.hybscloud.com/lockfree/internal/stress"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const applicationName = "lfstress"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(arguments []string) int {
	v := stress.NewViper(applicationName)
	fs := stress.NewFlagSet(applicationName)
	if err := stress.ParseAndBind(v, fs, arguments); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := stress.Load(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	metrics, err := stress.NewMetrics(registry)
	if err != nil {
		logger.Error("metrics setup failed", zap.Error(err))
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = stress.WithLogger(ctx, logger)

	_, err = stress.Run(ctx, cfg, metrics)
	logMetrics(logger, registry)

	switch {
	case err == nil:
		logger.Info("all properties held")
		return 0
	case errors.Is(err, stress.ErrViolation):
		logger.Error("properties violated", zap.Error(err))
		return 1
	default:
		logger.Warn("run cut short", zap.Error(err))
		return 3
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// logMetrics writes every gathered sample as one log entry.
func logMetrics(logger *zap.Logger, g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		logger.Error("gather metrics failed", zap.Error(err))
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			logger.Info("metric",
				zap.String("name", mf.GetName()),
				zap.String("labels", labelString(m.GetLabel())),
				zap.Float64("value", sampleValue(mf.GetType(), m)),
			)
		}
	}
}

func labelString(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.GetName()+"="+p.GetValue())
	}
	return strings.Join(parts, ",")
}

func sampleValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	default:
		return m.GetUntyped().GetValue()
	}
}
