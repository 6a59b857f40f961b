package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"

	"github.com/inrs-ai/CBOE-VIX/job"
)

// Run results exported as the "result" label
const (
	ResultOK           = "ok"
	ResultFetchFailed  = "fetch_failed"
	ResultRecordFailed = "record_failed"
)

// HealthStatus represents the health status of the scheduler
type HealthStatus struct {
	Status        string     `json:"status"`
	LastRunTime   *time.Time `json:"lastRunTime,omitempty"`
	LastResult    string     `json:"lastResult,omitempty"`
	LastNotify    string     `json:"lastNotify,omitempty"`
	LastValue     *float64   `json:"lastValue,omitempty"`
	LastSuccessAt *time.Time `json:"lastSuccessTime,omitempty"`
}

// StatusServer serves /health and /metrics while the job runs on a schedule
type StatusServer struct {
	mu          sync.RWMutex
	lastRun     time.Time
	lastResult  string
	lastNotify  string
	lastValue   *float64
	lastSuccess time.Time
	staleAfter  time.Duration

	registry      *prometheus.Registry
	runs          *prometheus.CounterVec
	notifications *prometheus.CounterVec
	value         prometheus.Gauge
	lastSuccessTS prometheus.Gauge
	runDuration   prometheus.Histogram

	server *http.Server
	logger *zap.Logger
}

// NewStatusServer creates a StatusServer listening on port. The job is
// reported unhealthy when no run has succeeded for staleAfter; zero
// disables the check.
func NewStatusServer(port int, staleAfter time.Duration, logger *zap.Logger) *StatusServer {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	s := &StatusServer{
		staleAfter: staleAfter,
		registry:   registry,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vix_runs_total",
			Help: "Total number of report runs by result",
		}, []string{"result"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vix_notifications_total",
			Help: "Total number of notify attempts by outcome",
		}, []string{"outcome"}),
		value: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vix_last_value",
			Help: "Last fetched VIX close",
		}),
		lastSuccessTS: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vix_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vix_run_duration_seconds",
			Help:    "Duration of report runs",
			Buckets: prometheus.DefBuckets,
		}),
		logger: logger,
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the routed HTTP handler
func (s *StatusServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	accessLog := &zapio.Writer{Log: s.logger.Named("http"), Level: zap.DebugLevel}
	return handlers.RecoveryHandler()(handlers.CombinedLoggingHandler(accessLog, r))
}

// Observe records the outcome of a run
func (s *StatusServer) Observe(report job.Report, err error) {
	result := resultOf(err)

	s.runs.WithLabelValues(result).Inc()
	s.runDuration.Observe(report.Duration.Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastRun = report.Started
	s.lastResult = result
	s.lastNotify = ""

	if report.Reading != nil {
		v := report.Reading.Value
		s.lastValue = &v
		s.value.Set(v)
		s.lastNotify = string(report.Notify.Outcome)
		s.notifications.WithLabelValues(s.lastNotify).Inc()
	}

	if err == nil {
		s.lastSuccess = report.Started
		s.lastSuccessTS.Set(float64(report.Started.Unix()))
	}
}

// Start begins serving the status endpoints
func (s *StatusServer) Start() error {
	s.logger.Info("Starting status server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the status server
func (s *StatusServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *StatusServer) status(now time.Time) HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastRun.IsZero() {
		return HealthStatus{Status: "starting"}
	}

	lastRun := s.lastRun
	status := HealthStatus{
		Status:      "healthy",
		LastRunTime: &lastRun,
		LastResult:  s.lastResult,
		LastNotify:  s.lastNotify,
		LastValue:   s.lastValue,
	}
	if !s.lastSuccess.IsZero() {
		lastSuccess := s.lastSuccess
		status.LastSuccessAt = &lastSuccess
	}

	switch {
	case s.lastResult != ResultOK:
		status.Status = "unhealthy"
	case s.staleAfter > 0 && now.Sub(s.lastSuccess) > s.staleAfter:
		status.Status = "stale"
	}

	return status
}

// handleHealth responds to health check requests
func (s *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.status(time.Now())

	w.Header().Set("Content-Type", "application/json")
	if status.Status == "healthy" || status.Status == "starting" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, job.ErrFetchFailed):
		return ResultFetchFailed
	default:
		return ResultRecordFailed
	}
}
