package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "g2ctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "g2ctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	sectionOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "g2ctl",
			Subsystem: "section",
			Name:      "operations_total",
			Help:      "Section decode and encode operations.",
		},
		[]string{"section", "op", "success"},
	)
	sectionBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "g2ctl",
			Subsystem: "section",
			Name:      "bytes_total",
			Help:      "Section payload bytes decoded and encoded.",
		},
		[]string{"section", "op"},
	)
	dispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "g2ctl",
			Subsystem: "device",
			Name:      "dispatched_total",
			Help:      "Inbound device messages by kind.",
		},
		[]string{"kind", "success"},
	)
	taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "g2ctl",
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "Device worker task duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"task", "success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, sectionOps, sectionBytes, dispatched, taskDuration)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordSection counts one section decode or encode ("decode"/"encode").
func RecordSection(section, op string, n int, success bool) {
	RegisterMetrics()
	sectionOps.WithLabelValues(section, op, strconv.FormatBool(success)).Inc()
	if success {
		sectionBytes.WithLabelValues(section, op).Add(float64(n))
	}
}

func RecordDispatch(kind string, success bool) {
	RegisterMetrics()
	dispatched.WithLabelValues(kind, strconv.FormatBool(success)).Inc()
}

func RecordTask(task string, duration time.Duration, success bool) {
	RegisterMetrics()
	taskDuration.WithLabelValues(task, strconv.FormatBool(success)).Observe(duration.Seconds())
}
