// Package metrics exposes daemon counters over Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry         *prometheus.Registry
	reconciliations  *prometheus.CounterVec
	coalesced        *prometheus.CounterVec
	cacheGeneration  prometheus.Gauge
	cacheDevices     prometheus.Gauge
	ipcRequests      *prometheus.CounterVec
	actionDuration   *prometheus.HistogramVec
	notificationsOut prometheus.Counter
}

// New creates a fresh registry with all hyprconnect metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hyprconnect",
		Name:      "reconciliations_total",
		Help:      "Reconciliation attempts by result",
	}, []string{"result"})

	coalesced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hyprconnect",
		Name:      "triggers_coalesced_total",
		Help:      "Refresh triggers dropped because a reconciliation was already in flight",
	}, []string{"source"})

	cacheGeneration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hyprconnect",
		Name:      "cache_generation",
		Help:      "Generation of the currently published device cache",
	})

	cacheDevices := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hyprconnect",
		Name:      "cache_devices",
		Help:      "Number of devices in the published device cache",
	})

	ipcRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hyprconnect",
		Name:      "ipc_requests_total",
		Help:      "IPC requests served by command and outcome",
	}, []string{"command", "outcome"})

	actionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hyprconnect",
		Name:      "action_duration_seconds",
		Help:      "Duration of dispatched device actions",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"command"})

	notificationsOut := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hyprconnect",
		Name:      "notifications_total",
		Help:      "Transition notifications emitted",
	})

	registry.MustRegister(
		reconciliations,
		coalesced,
		cacheGeneration,
		cacheDevices,
		ipcRequests,
		actionDuration,
		notificationsOut,
	)

	return &Metrics{
		registry:         registry,
		reconciliations:  reconciliations,
		coalesced:        coalesced,
		cacheGeneration:  cacheGeneration,
		cacheDevices:     cacheDevices,
		ipcRequests:      ipcRequests,
		actionDuration:   actionDuration,
		notificationsOut: notificationsOut,
	}
}

// ObserveReconcile records a finished reconciliation attempt.
func (m *Metrics) ObserveReconcile(ok bool, generation uint64, devices int) {
	if m == nil {
		return
	}
	if !ok {
		m.reconciliations.WithLabelValues("failure").Inc()
		return
	}
	m.reconciliations.WithLabelValues("success").Inc()
	m.cacheGeneration.Set(float64(generation))
	m.cacheDevices.Set(float64(devices))
}

// IncCoalesced counts a trigger skipped by the in-flight gate.
func (m *Metrics) IncCoalesced(source string) {
	if m == nil {
		return
	}
	m.coalesced.WithLabelValues(source).Inc()
}

// ObserveIPC counts one served IPC request.
func (m *Metrics) ObserveIPC(command, outcome string) {
	if m == nil {
		return
	}
	m.ipcRequests.WithLabelValues(command, outcome).Inc()
}

// ObserveAction records how long a dispatched action took.
func (m *Metrics) ObserveAction(command string, duration time.Duration) {
	if m == nil {
		return
	}
	m.actionDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// IncNotification counts an emitted transition notification.
func (m *Metrics) IncNotification() {
	if m == nil {
		return
	}
	m.notificationsOut.Inc()
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
