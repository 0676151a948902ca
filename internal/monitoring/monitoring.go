package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	nuts "github.com/vaudience/go-nuts"
)

const namespace = "hivehub"

// Config holds monitoring configuration
type Config struct {
	MetricsPath string
}

// Service owns the hub's metrics. Every Service has its own registry so
// tests and multiple servers never collide on registration.
type Service struct {
	config   Config
	registry *prometheus.Registry

	events          *prometheus.CounterVec
	detections      *prometheus.CounterVec
	falseDetections prometheus.Counter
	resets          prometheus.Counter
	deactivations   prometheus.Counter
	sweepDuration   prometheus.Histogram
	sweepFailures   prometheus.Counter
	sweepsSkipped   prometheus.Counter
	notifications   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewService creates a new monitoring service
func NewService(config Config) *Service {
	s := &Service{
		config:   config,
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Domain events by name.",
		}, []string{"event"}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Recorded detections by resulting risk level.",
		}, []string{"risk_level"}),
		falseDetections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "false_detections_total",
			Help:      "Detections reported as false.",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hive_resets_total",
			Help:      "Hives whose images were cleared.",
		}),
		deactivations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hive_deactivations_total",
			Help:      "Hives deactivated by the sweeper.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of sweeper runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		sweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_failures_total",
			Help:      "Per-user or per-hive failures during sweeps.",
		}),
		sweepsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_skipped_total",
			Help:      "Sweeps skipped because another run held the lease.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification dispatches by type and result.",
		}, []string{"type", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.events,
		s.detections,
		s.falseDetections,
		s.resets,
		s.deactivations,
		s.sweepDuration,
		s.sweepFailures,
		s.sweepsSkipped,
		s.notifications,
		s.httpRequests,
		s.httpDuration,
	)
	return s
}

// RecordEvent records a monitored event with labels
func (s *Service) RecordEvent(eventName string, labels map[string]string) {
	s.events.WithLabelValues(eventName).Inc()
	nuts.L.Infof("[Monitoring] Event %s recorded with labels: %v", eventName, labels)
}

func (s *Service) DetectionRecorded(riskLevel string) {
	s.detections.WithLabelValues(riskLevel).Inc()
}

func (s *Service) FalseDetectionReported() {
	s.falseDetections.Inc()
}

func (s *Service) HiveReset() {
	s.resets.Inc()
}

// SweepCompleted records one finished sweep.
func (s *Service) SweepCompleted(duration time.Duration, deactivated, failures int) {
	s.sweepDuration.Observe(duration.Seconds())
	s.deactivations.Add(float64(deactivated))
	s.sweepFailures.Add(float64(failures))
}

func (s *Service) SweepSkipped() {
	s.sweepsSkipped.Inc()
}

func (s *Service) NotificationResult(notificationType, result string) {
	s.notifications.WithLabelValues(notificationType, result).Inc()
}

func (s *Service) ObserveHTTP(method, route string, status int, duration time.Duration) {
	s.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	s.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (s *Service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

func (s *Service) MetricsPath() string {
	if s.config.MetricsPath == "" {
		return "/metrics"
	}
	return s.config.MetricsPath
}
