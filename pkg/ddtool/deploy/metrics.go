// SPDX-License-Identifier: AGPL-3.0-only

package deploy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type reconcilerMetrics struct {
	reconciled   *prometheus.CounterVec
	failures     prometheus.Counter
	listRequests prometheus.Counter
	duration     prometheus.Histogram
}

func newReconcilerMetrics(reg prometheus.Registerer) *reconcilerMetrics {
	return &reconcilerMetrics{
		reconciled: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "ddtool",
			Name:      "dashboards_reconciled_total",
			Help:      "Total number of dashboards created or updated, by action.",
		}, []string{"action"}),
		failures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "ddtool",
			Name:      "dashboard_reconcile_failures_total",
			Help:      "Total number of dashboards whose reconciliation failed.",
		}),
		listRequests: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "ddtool",
			Name:      "remote_list_requests_total",
			Help:      "Total number of remote dashboard inventory listings.",
		}),
		duration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "ddtool",
			Name:      "dashboard_reconcile_duration_seconds",
			Help:      "Time taken to reconcile a single dashboard.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

type deployerMetrics struct {
	deployments *prometheus.CounterVec
}

func newDeployerMetrics(reg prometheus.Registerer) *deployerMetrics {
	return &deployerMetrics{
		deployments: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "ddtool",
			Name:      "deployments_total",
			Help:      "Total number of deployments, by mode and result.",
		}, []string{"mode", "result"}),
	}
}
