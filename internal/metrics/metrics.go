package metrics

import (
	"net/http"
	"time"

	"github.com/ahmetk3436/powerboard/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "powerboard"

// Metrics is nil-safe: every method is a no-op on a nil receiver.
type Metrics struct {
	registry     *prometheus.Registry
	polls        *prometheus.CounterVec
	pollDuration prometheus.Histogram
	actions      *prometheus.CounterVec
	servers      *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Server list fetches by result.",
		}, []string{"result"}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Latency of server list fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Dispatched user actions by action and result.",
		}, []string{"action", "result"}),
		servers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "servers",
			Help:      "Servers in the last applied snapshot by power state.",
		}, []string{"power_state"}),
	}
	m.registry.MustRegister(
		m.polls,
		m.pollDuration,
		m.actions,
		m.servers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObservePoll(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(result(err == nil)).Inc()
	m.pollDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveAction(action string, ok bool) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, result(ok)).Inc()
}

func (m *Metrics) SetServers(servers []models.ServerView) {
	if m == nil {
		return
	}
	var on, off float64
	for _, s := range servers {
		if s.PowerState.IsOn() {
			on++
		} else {
			off++
		}
	}
	m.servers.WithLabelValues("on").Set(on)
	m.servers.WithLabelValues("off").Set(off)
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
