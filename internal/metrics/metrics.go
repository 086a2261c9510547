/*
Copyright 2024 Blnk Finance Authors.

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

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pesquera"

// Registry holds every traceability collector. It is separate from the
// default registry so tests can read values without global state leaking in.
var Registry = prometheus.NewRegistry()

var (
	ConservationRejections = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "rejections_total",
		Help:      "Consumption ledger writes rejected, by reason.",
	}, []string{"reason"})

	TransientRetries = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "transient_retries_total",
		Help:      "Ledger transactions retried after a serialization or lock failure.",
	})

	ConsumptionsRecorded = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "consumptions_recorded_total",
		Help:      "Consumption rows written.",
	})

	BindFailures = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "inputs",
		Name:      "bind_failures_total",
		Help:      "Box scans that could not be bound to a step, by reason.",
	}, []string{"reason"})

	WebhooksEnqueued = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhooks",
		Name:      "enqueued_total",
		Help:      "Webhook tasks enqueued, by event.",
	}, []string{"event"})
)

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// RecordRejection counts a rejected ledger write. Empty reasons are folded into "other".
func RecordRejection(reason string) {
	if reason == "" {
		reason = "other"
	}
	ConservationRejections.WithLabelValues(reason).Inc()
}
