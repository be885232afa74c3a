// Package metrics exposes Prometheus instruments for API calls and transfers.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Outcome labels for API calls.
const (
	OutcomeOK        = "ok"
	OutcomeService   = "service_error"
	OutcomeTransport = "transport_error"
)

// Metrics tracks client-side activity
type Metrics struct {
	// API metrics
	APICalls   *prometheus.CounterVec
	APILatency *prometheus.HistogramVec

	// Listing metrics
	ListPages      prometheus.Counter
	ThrottlePauses prometheus.Counter

	// Upload metrics
	UploadParts   prometheus.Counter
	UploadBytes   prometheus.Counter
	UploadsReused prometheus.Counter

	// Download metrics
	DownloadBytes      prometheus.Counter
	DownloadStrategies *prometheus.CounterVec

	// Task metrics
	TasksActive   prometheus.Gauge
	TasksFinished *prometheus.CounterVec
}

// New creates and registers the instruments. A nil registry means the
// default registerer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		APICalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pan123_api_calls_total",
			Help: "Vendor API calls by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		APILatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pan123_api_latency_seconds",
			Help:    "Vendor API call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		ListPages: factory.NewCounter(prometheus.CounterOpts{
			Name: "pan123_list_pages_total",
			Help: "Listing pages fetched",
		}),
		ThrottlePauses: factory.NewCounter(prometheus.CounterOpts{
			Name: "pan123_list_throttle_pauses_total",
			Help: "Pauses inserted while listing very large folders",
		}),

		UploadParts: factory.NewCounter(prometheus.CounterOpts{
			Name: "pan123_upload_parts_total",
			Help: "Multipart upload parts sent",
		}),
		UploadBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "pan123_upload_bytes_total",
			Help: "Bytes sent in upload parts",
		}),
		UploadsReused: factory.NewCounter(prometheus.CounterOpts{
			Name: "pan123_uploads_reused_total",
			Help: "Uploads completed by server-side dedupe",
		}),

		DownloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "pan123_download_bytes_total",
			Help: "Bytes written by downloads",
		}),
		DownloadStrategies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pan123_download_strategy_total",
			Help: "Downloads by transfer strategy",
		}, []string{"strategy"}),

		TasksActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pan123_tasks_active",
			Help: "Transfer tasks currently running or paused",
		}),
		TasksFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pan123_tasks_finished_total",
			Help: "Transfer tasks by terminal state",
		}, []string{"state"}),
	}
}

// ObserveAPICall records one vendor call.
func (m *Metrics) ObserveAPICall(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.APICalls.WithLabelValues(endpoint, outcome).Inc()
	m.APILatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) ListPage() {
	if m != nil {
		m.ListPages.Inc()
	}
}

func (m *Metrics) ThrottlePause() {
	if m != nil {
		m.ThrottlePauses.Inc()
	}
}

// UploadPart records a part that was accepted by storage.
func (m *Metrics) UploadPart(n int64) {
	if m == nil {
		return
	}
	m.UploadParts.Inc()
	m.UploadBytes.Add(float64(n))
}

func (m *Metrics) UploadReused() {
	if m != nil {
		m.UploadsReused.Inc()
	}
}

func (m *Metrics) Downloaded(n int64) {
	if m != nil && n > 0 {
		m.DownloadBytes.Add(float64(n))
	}
}

func (m *Metrics) DownloadStrategy(strategy string) {
	if m != nil {
		m.DownloadStrategies.WithLabelValues(strategy).Inc()
	}
}

func (m *Metrics) TaskStarted() {
	if m != nil {
		m.TasksActive.Inc()
	}
}

// TaskFinished records a task reaching a terminal state.
func (m *Metrics) TaskFinished(state string) {
	if m == nil {
		return
	}
	m.TasksActive.Dec()
	m.TasksFinished.WithLabelValues(state).Inc()
}

// StartServer serves /metrics for gatherer on addr until the returned
// server is shut down.
func StartServer(addr string, gatherer prometheus.Gatherer, logger *zap.Logger) *http.Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting metrics server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return server
}
