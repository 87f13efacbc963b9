// Copyright 2026 The glusterfs-sub024 Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes the translator's counters and histograms as
// a prometheus.Registerer, for heal runs, lock waits, and migration
// replays.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every metric the translator records. A nil
// *Registry is valid and every method on it becomes a no-op, so
// instrumentation call sites never need a separate enabled/disabled
// branch.
type Registry struct {
	reg *prometheus.Registry

	healRunsTotal       *prometheus.CounterVec
	healDuration        prometheus.Histogram
	lockWaitDuration    *prometheus.HistogramVec
	migrationReplays    *prometheus.CounterVec
	layoutCacheHits     prometheus.Counter
	layoutCacheMisses   prometheus.Counter
}

// New builds a Registry with all metrics registered against a fresh
// prometheus.Registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		healRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dht",
			Subsystem: "heal",
			Name:      "runs_total",
			Help:      "Self-heal runs, partitioned by outcome.",
		}, []string{"outcome"}),
		healDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dht",
			Subsystem: "heal",
			Name:      "duration_seconds",
			Help:      "Wall-clock time spent in a single heal run.",
			Buckets:   prometheus.DefBuckets,
		}),
		lockWaitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dht",
			Subsystem: "lock",
			Name:      "wait_seconds",
			Help:      "Time spent blocked acquiring a backend lock, by lock type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"lock_type"}),
		migrationReplays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dht",
			Subsystem: "migrate",
			Name:      "replays_total",
			Help:      "FOP replays triggered by a migration redirect, by FOP name.",
		}, []string{"fop"}),
		layoutCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dht",
			Subsystem: "layout_cache",
			Name:      "hits_total",
			Help:      "LayoutCache lookups that found a cached layout.",
		}),
		layoutCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dht",
			Subsystem: "layout_cache",
			Name:      "misses_total",
			Help:      "LayoutCache lookups that found nothing cached.",
		}),
	}

	reg.MustRegister(
		r.healRunsTotal,
		r.healDuration,
		r.lockWaitDuration,
		r.migrationReplays,
		r.layoutCacheHits,
		r.layoutCacheMisses,
	)
	return r
}

// Handler returns the http.Handler serving this registry's metrics in
// the Prometheus text exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveHealRun records one completed heal run.
func (r *Registry) ObserveHealRun(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.healRunsTotal.WithLabelValues(outcome).Inc()
	r.healDuration.Observe(d.Seconds())
}

// ObserveLockWait records time spent blocked acquiring a lock of the
// given type ("inodelk" or "entrylk").
func (r *Registry) ObserveLockWait(lockType string, d time.Duration) {
	if r == nil {
		return
	}
	r.lockWaitDuration.WithLabelValues(lockType).Observe(d.Seconds())
}

// IncMigrationReplay records a single FOP replay after a migration
// redirect.
func (r *Registry) IncMigrationReplay(fop string) {
	if r == nil {
		return
	}
	r.migrationReplays.WithLabelValues(fop).Inc()
}

// IncLayoutCacheHit/IncLayoutCacheMiss record a dht.LayoutCache lookup
// outcome.
func (r *Registry) IncLayoutCacheHit() {
	if r == nil {
		return
	}
	r.layoutCacheHits.Inc()
}

func (r *Registry) IncLayoutCacheMiss() {
	if r == nil {
		return
	}
	r.layoutCacheMisses.Inc()
}
