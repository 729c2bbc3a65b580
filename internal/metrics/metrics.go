// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics collects compilation statistics of the command-line tools.
package metrics

import (
	"time"

	"github.com/Gyoonus/deoptfuscator-sub021/compile/event"
	"github.com/Gyoonus/deoptfuscator-sub021/errors"
	"github.com/Gyoonus/deoptfuscator-sub021/hiddenapi"
	"github.com/Gyoonus/deoptfuscator-sub021/object"
	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "x64cc"

// Metrics is a registry of collectors.  The collectors are safe for
// concurrent use.
type Metrics struct {
	registry *prom.Registry

	Methods    *prom.CounterVec
	CodeBytes  prom.Histogram
	FrameBytes prom.Histogram
	SlowPaths  *prom.CounterVec
	Patches    *prom.CounterVec
	StackMaps  prom.Counter
	PhaseTime  *prom.HistogramVec
	Members    *prom.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prom.NewRegistry(),

		Methods: prom.NewCounterVec(
			prom.CounterOpts{
				Namespace: namespace,
				Name:      "methods_total",
				Help:      "Compiled methods by outcome",
			},
			[]string{"status"}),
		CodeBytes: prom.NewHistogram(
			prom.HistogramOpts{
				Namespace: namespace,
				Name:      "code_bytes",
				Help:      "Machine code size of compiled methods, including the constant area",
				Buckets:   prom.ExponentialBuckets(16, 2, 12),
			}),
		FrameBytes: prom.NewHistogram(
			prom.HistogramOpts{
				Namespace: namespace,
				Name:      "frame_bytes",
				Help:      "Stack frame size of compiled methods",
				Buckets:   prom.ExponentialBuckets(8, 2, 10),
			}),
		SlowPaths: prom.NewCounterVec(
			prom.CounterOpts{
				Namespace: namespace,
				Name:      "slow_paths_total",
				Help:      "Out-of-line code blocks by kind",
			},
			[]string{"kind"}),
		Patches: prom.NewCounterVec(
			prom.CounterOpts{
				Namespace: namespace,
				Name:      "patches_total",
				Help:      "Linker patches by kind",
			},
			[]string{"kind"}),
		StackMaps: prom.NewCounter(
			prom.CounterOpts{
				Namespace: namespace,
				Name:      "stack_maps_total",
				Help:      "Recorded safepoints",
			}),
		PhaseTime: prom.NewHistogramVec(
			prom.HistogramOpts{
				Namespace: namespace,
				Name:      "phase_duration_seconds",
				Help:      "Duration of compilation phases",
				Buckets:   prom.ExponentialBuckets(1e-6, 4, 10),
			},
			[]string{"phase"}),
		Members: prom.NewCounterVec(
			prom.CounterOpts{
				Namespace: "hiddenapi",
				Name:      "members_total",
				Help:      "Dex members by API list",
			},
			[]string{"list"}),
	}

	m.registry.MustRegister(
		m.Methods,
		m.CodeBytes,
		m.FrameBytes,
		m.SlowPaths,
		m.Patches,
		m.StackMaps,
		m.PhaseTime,
		m.Members,
	)
	return m
}

func (m *Metrics) Gatherer() prom.Gatherer {
	return m.registry
}

// ObserveMethod records a successful compilation.
func (m *Metrics) ObserveMethod(cm *object.CompiledMethod) {
	m.Methods.WithLabelValues("ok").Inc()
	m.CodeBytes.Observe(float64(len(cm.Code)))
	m.FrameBytes.Observe(float64(cm.FrameSize))
	m.StackMaps.Add(float64(len(cm.StackMaps)))

	for kind, n := range cm.SlowPaths.ByKind {
		m.SlowPaths.WithLabelValues(kind).Add(float64(n))
	}
	for _, p := range cm.Patches {
		m.Patches.WithLabelValues(p.Kind.String()).Inc()
	}
	if n := len(cm.JitRoots); n > 0 {
		m.Patches.WithLabelValues("jit-root").Add(float64(n))
	}
}

// ObserveFailure distinguishes malformed input from internal errors.
func (m *Metrics) ObserveFailure(err error) {
	if errors.IsInput(err) {
		m.Methods.WithLabelValues("input-error").Inc()
	} else {
		m.Methods.WithLabelValues("internal-error").Inc()
	}
}

func (m *Metrics) ObserveHiddenAPI(stats hiddenapi.Stats) {
	for l, n := range stats {
		m.Members.WithLabelValues(hiddenapi.List(l).String()).Add(float64(n))
	}
}

// PhaseTimer returns an event handler for one compilation, measuring the
// time from the previous event (or the call) to each event.
func (m *Metrics) PhaseTimer() func(event.Event) {
	last := time.Now()

	return func(e event.Event) {
		now := time.Now()
		m.PhaseTime.WithLabelValues(e.String()).Observe(now.Sub(last).Seconds())
		last = now
	}
}

// WriteFile writes the text exposition format.
func (m *Metrics) WriteFile(filename string) error {
	return prom.WriteToTextfile(filename, m.registry)
}
