package telemetry

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glowpress/glowpress/config"
)

// Telemetry tracks pipeline runs, stage executions and model calls. Each
// instance owns its prometheus registry so tests can construct them freely.
type Telemetry struct {
	config  config.TelemetryConfig
	logger  *log.Logger
	metrics *Metrics
	mu      sync.RWMutex

	registry       *prometheus.Registry
	runsTotal      *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	llmRequests    prometheus.Counter
	searchRequests prometheus.Counter
}

// Metrics holds aggregate counters, kept alongside the prometheus
// collectors for log reporting.
type Metrics struct {
	TotalRuns          int64
	SuccessfulRuns     int64
	FailedRuns         int64
	AverageRunTime     time.Duration
	StageExecutions    map[string]int64
	StageAverageTimes  map[string]time.Duration
	LLMRequests        int64
	WebSearchRequests  int64
	PublishedPosts     int64
	GeneratedImages    int64
	LastRunCompletedAt time.Time
}

// RunEvent represents one full pipeline run.
type RunEvent struct {
	ID       string
	Topic    string
	Duration time.Duration
	Success  bool
	Error    string
}

// StageEvent represents one stage execution within a run.
type StageEvent struct {
	Stage    string
	Duration time.Duration
	Success  bool
	Error    string
}

// NewTelemetry creates a telemetry instance with its own registry.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	reg := prometheus.NewRegistry()
	t := &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		metrics: &Metrics{
			StageExecutions:   make(map[string]int64),
			StageAverageTimes: make(map[string]time.Duration),
		},
		registry: reg,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glowpress_runs_total",
			Help: "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "glowpress_stage_duration_seconds",
			Help:    "Stage execution durations.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"stage"}),
		llmRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glowpress_llm_requests_total",
			Help: "Language model completion requests.",
		}),
		searchRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glowpress_web_search_requests_total",
			Help: "Web search requests.",
		}),
	}
	reg.MustRegister(t.runsTotal, t.stageDuration, t.llmRequests, t.searchRequests)
	return t
}

// MetricsHandler exposes this instance's registry for the /metrics route.
func (t *Telemetry) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// RecordRunEvent records a complete pipeline run.
func (t *Telemetry) RecordRunEvent(event RunEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.TotalRuns++
	outcome := "success"
	if event.Success {
		t.metrics.SuccessfulRuns++
	} else {
		t.metrics.FailedRuns++
		outcome = "failure"
	}
	t.runsTotal.WithLabelValues(outcome).Inc()

	if t.metrics.TotalRuns == 1 {
		t.metrics.AverageRunTime = event.Duration
	} else {
		total := t.metrics.AverageRunTime * time.Duration(t.metrics.TotalRuns-1)
		t.metrics.AverageRunTime = (total + event.Duration) / time.Duration(t.metrics.TotalRuns)
	}
	t.metrics.LastRunCompletedAt = time.Now()

	t.logger.Printf("Run Event: ID=%s, Success=%t, Duration=%v", event.ID, event.Success, event.Duration)
}

// RecordStageEvent records one stage execution.
func (t *Telemetry) RecordStageEvent(event StageEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.StageExecutions[event.Stage]++
	executions := t.metrics.StageExecutions[event.Stage]
	currentAvg := t.metrics.StageAverageTimes[event.Stage]
	if executions == 1 {
		t.metrics.StageAverageTimes[event.Stage] = event.Duration
	} else {
		total := currentAvg * time.Duration(executions-1)
		t.metrics.StageAverageTimes[event.Stage] = (total + event.Duration) / time.Duration(executions)
	}
	t.stageDuration.WithLabelValues(event.Stage).Observe(event.Duration.Seconds())

	t.logger.Printf("Stage Event: Stage=%s, Success=%t, Duration=%v", event.Stage, event.Success, event.Duration)
}

// RecordLLMRequest counts one completion call.
func (t *Telemetry) RecordLLMRequest() {
	if !t.config.Enabled {
		return
	}
	t.mu.Lock()
	t.metrics.LLMRequests++
	t.mu.Unlock()
	t.llmRequests.Inc()
}

// RecordWebSearch counts one web search call.
func (t *Telemetry) RecordWebSearch() {
	if !t.config.Enabled {
		return
	}
	t.mu.Lock()
	t.metrics.WebSearchRequests++
	t.mu.Unlock()
	t.searchRequests.Inc()
}

// RecordImageGenerated counts one saved image asset.
func (t *Telemetry) RecordImageGenerated() {
	if !t.config.Enabled {
		return
	}
	t.mu.Lock()
	t.metrics.GeneratedImages++
	t.mu.Unlock()
}

// RecordPublish counts one successful publish.
func (t *Telemetry) RecordPublish() {
	if !t.config.Enabled {
		return
	}
	t.mu.Lock()
	t.metrics.PublishedPosts++
	t.mu.Unlock()
}

// GetMetrics returns a snapshot of the aggregate counters.
func (t *Telemetry) GetMetrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := *t.metrics
	snapshot.StageExecutions = make(map[string]int64, len(t.metrics.StageExecutions))
	snapshot.StageAverageTimes = make(map[string]time.Duration, len(t.metrics.StageAverageTimes))
	for k, v := range t.metrics.StageExecutions {
		snapshot.StageExecutions[k] = v
	}
	for k, v := range t.metrics.StageAverageTimes {
		snapshot.StageAverageTimes[k] = v
	}
	return snapshot
}
