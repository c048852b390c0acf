package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/newswire-hq/newswire/internal/progress"
)

// PrometheusSink exports job and per-provider fetch metrics. It owns all
// collectors for jobs started/completed/running and source fetch counters.
type PrometheusSink struct {
	jobsStarted   prometheus.Counter
	jobsCompleted *prometheus.CounterVec
	jobsRunning   prometheus.Gauge
	jobRuntime    *prometheus.HistogramVec

	sourceFetches  *prometheus.CounterVec
	sourceDuration *prometheus.HistogramVec
	articlesStored prometheus.Counter

	tracker *jobTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newswire_jobs_started_total",
			Help: "Total fetch jobs that have started.",
		}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newswire_jobs_completed_total",
			Help: "Total fetch jobs completed partitioned by result.",
		}, []string{"result"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "newswire_jobs_running",
			Help: "Current number of running fetch jobs.",
		}),
		jobRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newswire_job_runtime_seconds",
			Help:    "Wall time per completed fetch job.",
			Buckets: []float64{0.5, 1, 2, 5, 15, 30, 60, 120},
		}, []string{"result"}),
		sourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newswire_source_fetches_total",
			Help: "Source fetch completions partitioned by provider and result.",
		}, []string{"provider", "result"}),
		sourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newswire_source_fetch_duration_seconds",
			Help:    "Source fetch duration partitioned by provider.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider"}),
		articlesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newswire_articles_stored_total",
			Help: "Total newly stored articles across all jobs.",
		}),
		tracker: newJobTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.jobsStarted,
		s.jobsCompleted,
		s.jobsRunning,
		s.jobRuntime,
		s.sourceFetches,
		s.sourceDuration,
		s.articlesStored,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageJobStart:
		s.jobsStarted.Inc()
		if s.tracker.start(evt.JobID) {
			s.jobsRunning.Inc()
		}
	case progress.StageJobDone:
		s.completeJob(evt, "success")
	case progress.StageJobError:
		s.completeJob(evt, "error")
	case progress.StageSourceDone:
		s.sourceFetches.WithLabelValues(evt.Provider, "success").Inc()
		s.observeSource(evt)
		if evt.Articles > 0 {
			s.articlesStored.Add(float64(evt.Articles))
		}
	case progress.StageSourceError:
		s.sourceFetches.WithLabelValues(evt.Provider, "error").Inc()
		s.observeSource(evt)
	}
}

func (s *PrometheusSink) completeJob(evt progress.Event, result string) {
	// Completion events for jobs this sink never saw start are dropped, so
	// the completed counters and the running gauge stay consistent.
	if !s.tracker.complete(evt.JobID) {
		return
	}
	s.jobsCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.jobRuntime.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
	s.jobsRunning.Dec()
}

func (s *PrometheusSink) observeSource(evt progress.Event) {
	if evt.Dur > 0 {
		s.sourceDuration.WithLabelValues(evt.Provider).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type jobTracker struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func newJobTracker() *jobTracker {
	return &jobTracker{running: make(map[string]struct{})}
}

func (t *jobTracker) start(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *jobTracker) complete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
