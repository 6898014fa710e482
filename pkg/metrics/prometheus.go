// Package metrics provides Prometheus metrics for the handnav gesture service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace       string
	subsystem       string
	enabled         bool
	refreshInterval time.Duration
	constLabels     map[string]string
	registry        *prometheus.Registry

	// Recognition and dispatch
	readings         *prometheus.CounterVec
	gesturesDetected *prometheus.CounterVec
	actionsExecuted  *prometheus.CounterVec
	accuracy         prometheus.Gauge
	sessionState     prometheus.Gauge
	tickLatency      prometheus.Histogram

	// Camera
	cameraAcquisitions *prometheus.CounterVec
	cameraHeld         prometheus.Gauge

	// Broadcast channel
	broadcastPublished   *prometheus.CounterVec
	broadcastDelivered   *prometheus.CounterVec
	broadcastDropped     *prometheus.CounterVec
	broadcastSubscribers *prometheus.GaugeVec
	mailboxSize          *prometheus.GaugeVec
	deliveryLatency      prometheus.Histogram

	// WebSocket bridge
	wsClients  prometheus.Gauge
	wsMessages *prometheus.CounterVec

	// History
	historySize prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// global is the manager the package-level recorders write to. Configure
// swaps it; metrics recorded before the swap stay on the old registry.
var global atomic.Pointer[Manager] //nolint:gochecknoglobals // process-wide metrics

func init() { //nolint:gochecknoinits // usable before Configure
	global.Store(NewManager())
}

func current() *Manager { return global.Load() }

// NewManager creates a manager on its own registry. Go runtime collectors are
// not registered; the system gauges cover what the service reports.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "handnav",
		subsystem:       "gestures",
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()

	return m
}

// Configure replaces the process-wide manager. Call it before handlers
// capture GetRegistry.
func Configure(opts ...Option) *Manager {
	m := NewManager(opts...)
	global.Store(m)
	return m
}

// RefreshInterval is how often background updaters should sample gauges.
func RefreshInterval() time.Duration {
	return current().refreshInterval
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)
	latencyBuckets := []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250}

	m.readings = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "readings_total",
		Help: "Recognition readings evaluated, by gesture and outcome (accepted, low_confidence, none, unknown)",
	}, []string{"gesture", "outcome"})

	m.gesturesDetected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "detected_total",
		Help: "Readings that cleared the confidence threshold",
	}, []string{"gesture"})

	m.actionsExecuted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "actions_executed_total",
		Help: "Actions executed by the registry, by gesture and origin (local, remote, manual)",
	}, []string{"gesture", "origin"})

	m.accuracy = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "accuracy_percent",
		Help: "Rolling session accuracy in percent",
	})

	m.sessionState = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "session", ConstLabels: labels,
		Name: "state",
		Help: "Session controller state (0 idle, 1 acquiring, 2 active)",
	})

	m.tickLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "session", ConstLabels: labels,
		Name:    "tick_duration_ms",
		Help:    "Time spent evaluating, dispatching and broadcasting one reading",
		Buckets: latencyBuckets,
	})

	m.cameraAcquisitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "camera", ConstLabels: labels,
		Name: "acquisitions_total",
		Help: "Camera acquisition attempts by result",
	}, []string{"result"})

	m.cameraHeld = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "camera", ConstLabels: labels,
		Name: "held",
		Help: "1 while a camera stream is held",
	})

	m.broadcastPublished = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "broadcast", ConstLabels: labels,
		Name: "published_total",
		Help: "Messages published per channel",
	}, []string{"channel", "transport"})

	m.broadcastDelivered = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "broadcast", ConstLabels: labels,
		Name: "delivered_total",
		Help: "Messages handed to subscriber callbacks",
	}, []string{"channel", "transport"})

	m.broadcastDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "broadcast", ConstLabels: labels,
		Name: "dropped_total",
		Help: "Messages dropped before delivery, by reason",
	}, []string{"channel", "reason"})

	m.broadcastSubscribers = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "broadcast", ConstLabels: labels,
		Name: "endpoints",
		Help: "Open endpoints per channel",
	}, []string{"channel"})

	m.mailboxSize = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "broadcast", ConstLabels: labels,
		Name: "mailbox_size",
		Help: "Pending messages per endpoint mailbox",
	}, []string{"endpoint"})

	m.deliveryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "broadcast", ConstLabels: labels,
		Name:    "delivery_latency_ms",
		Help:    "Time from publish to subscriber callback",
		Buckets: latencyBuckets,
	})

	m.wsClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "ws", ConstLabels: labels,
		Name: "clients",
		Help: "Connected WebSocket tabs",
	})

	m.wsMessages = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "ws", ConstLabels: labels,
		Name: "messages_total",
		Help: "WebSocket messages by direction (in, out) and result",
	}, []string{"direction", "result"})

	m.historySize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "history", ConstLabels: labels,
		Name: "events",
		Help: "Gesture events held in the history ring",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", ConstLabels: labels,
		Name: "requests_total",
		Help: "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http", ConstLabels: labels,
		Name:    "request_duration_ms",
		Help:    "HTTP request latency in milliseconds",
		Buckets: latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "errors", ConstLabels: labels,
		Name: "by_component_total",
		Help: "Errors by component and type",
	}, []string{"component", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "errors", ConstLabels: labels,
		Name: "by_type_total",
		Help: "Errors by type and severity",
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "errors", ConstLabels: labels,
		Name: "by_endpoint_total",
		Help: "Errors by HTTP endpoint",
	}, []string{"endpoint", "method", "error_type"})

	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "errors", ConstLabels: labels,
		Name:    "latency_ms",
		Help:    "Latency of failed operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: labels,
		Name: "memory_bytes",
		Help: "Allocated heap bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: labels,
		Name: "goroutines",
		Help: "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: labels,
		Name:    "gc_pause_ms",
		Help:    "Average GC pause in milliseconds",
		Buckets: latencyBuckets,
	})
}

// Package-level recorders operate on the global manager.

func RecordReading(gesture, outcome string) {
	if m := current(); m.enabled {
		m.readings.WithLabelValues(gesture, outcome).Inc()
	}
}

func RecordGestureDetected(gesture string) {
	if m := current(); m.enabled {
		m.gesturesDetected.WithLabelValues(gesture).Inc()
	}
}

func RecordActionExecuted(gesture, origin string) {
	if m := current(); m.enabled {
		m.actionsExecuted.WithLabelValues(gesture, origin).Inc()
	}
}

func UpdateAccuracy(percent float64) {
	if m := current(); m.enabled {
		m.accuracy.Set(percent)
	}
}

func UpdateSessionState(state int) {
	if m := current(); m.enabled {
		m.sessionState.Set(float64(state))
	}
}

func RecordTickLatency(latencyMs float64) {
	if m := current(); m.enabled {
		m.tickLatency.Observe(latencyMs)
	}
}

func RecordCameraAcquisition(result string) {
	if m := current(); m.enabled {
		m.cameraAcquisitions.WithLabelValues(result).Inc()
	}
}

func UpdateCameraHeld(held bool) {
	m := current()
	if !m.enabled {
		return
	}
	if held {
		m.cameraHeld.Set(1)
		return
	}
	m.cameraHeld.Set(0)
}

func RecordBroadcastPublished(channel, transport string) {
	if m := current(); m.enabled {
		m.broadcastPublished.WithLabelValues(channel, transport).Inc()
	}
}

func RecordBroadcastDelivered(channel, transport string) {
	if m := current(); m.enabled {
		m.broadcastDelivered.WithLabelValues(channel, transport).Inc()
	}
}

func RecordBroadcastDropped(channel, reason string) {
	if m := current(); m.enabled {
		m.broadcastDropped.WithLabelValues(channel, reason).Inc()
	}
}

func UpdateBroadcastEndpoints(channel string, count int) {
	if m := current(); m.enabled {
		m.broadcastSubscribers.WithLabelValues(channel).Set(float64(count))
	}
}

func UpdateMailboxSize(endpoint string, size int) {
	if m := current(); m.enabled {
		m.mailboxSize.WithLabelValues(endpoint).Set(float64(size))
	}
}

// DeleteMailbox drops the gauge series of a closed endpoint.
func DeleteMailbox(endpoint string) {
	if m := current(); m.enabled {
		m.mailboxSize.DeleteLabelValues(endpoint)
	}
}

func RecordDeliveryLatency(latencyMs float64) {
	if m := current(); m.enabled {
		m.deliveryLatency.Observe(latencyMs)
	}
}

func UpdateWSClients(count int) {
	if m := current(); m.enabled {
		m.wsClients.Set(float64(count))
	}
}

func RecordWSMessage(direction, result string) {
	if m := current(); m.enabled {
		m.wsMessages.WithLabelValues(direction, result).Inc()
	}
}

func UpdateHistorySize(count int) {
	if m := current(); m.enabled {
		m.historySize.Set(float64(count))
	}
}

func RecordHTTPRequest(endpoint, method, statusCode string) {
	if m := current(); m.enabled {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if m := current(); m.enabled {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

func RecordErrorByComponent(component, errorType string) {
	if m := current(); m.enabled {
		m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

func RecordErrorByType(errorType, severity string) {
	if m := current(); m.enabled {
		m.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m := current(); m.enabled {
		m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if m := current(); m.enabled {
		m.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
	}
}

func UpdateSystemMemoryUsage(bytes uint64) {
	if m := current(); m.enabled {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

func UpdateSystemGoroutineCount(count int) {
	if m := current(); m.enabled {
		m.systemGoroutineCount.Set(float64(count))
	}
}

func RecordSystemGCPauseTime(pauseMs float64) {
	if m := current(); m.enabled {
		m.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the registry backing the process-wide manager.
func GetRegistry() *prometheus.Registry {
	return current().registry
}
