/*
Copyright The Garage Operator Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics registers the reconcile-duration histogram and the
// success/failure counters exposed on the operator's /metrics endpoint,
// on a dedicated prometheus.Registry rather than the global default one.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Set bundles the three metrics every reconciler reports against.
type Set struct {
	ReconcileDuration *prometheus.HistogramVec
	ReconcileFailures *prometheus.CounterVec
	ReconcileSuccess  *prometheus.CounterVec
}

// MustRegister builds and registers the Set exactly once on reg. Panics on
// a registration conflict, which would indicate a programming error
// (double registration), not a runtime condition.
func MustRegister(reg *prometheus.Registry) *Set {
	set := &Set{
		ReconcileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "garage_operator",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of a single reconcile, by custom resource kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		ReconcileFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "garage_operator",
			Name:      "reconcile_failures_total",
			Help:      "Count of failed reconciles, by kind and namespace.",
		}, []string{"kind", "namespace"}),
		ReconcileSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "garage_operator",
			Name:      "reconcile_success_total",
			Help:      "Count of successful reconciles, by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(set.ReconcileDuration, set.ReconcileFailures, set.ReconcileSuccess)
	return set
}

// ObserveReconcile records the duration and outcome of one reconcile.
func (s *Set) ObserveReconcile(kind, namespace string, start time.Time, err error) {
	s.ReconcileDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		s.ReconcileFailures.WithLabelValues(kind, namespace).Inc()
		return
	}
	s.ReconcileSuccess.WithLabelValues(kind).Inc()
}
