// Package metrics exports refresh coordinator state as Prometheus metrics.
//
// The collector reads the coordinator on every scrape instead of keeping its
// own counters, so the exported values always match GET /status.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jdziat/simple-refresh/pkg/activity"
	"github.com/jdziat/simple-refresh/pkg/coordinator"
	"github.com/jdziat/simple-refresh/pkg/core"
)

const namespace = "refresh"

// StatusSource is satisfied by *coordinator.Coordinator.
type StatusSource interface {
	Status() coordinator.Status
}

// Collector implements prometheus.Collector over a coordinator.
type Collector struct {
	src     StatusSource
	tracker *activity.Tracker

	paused    *prometheus.Desc
	remaining *prometheus.Desc
	maxPause  *prometheus.Desc
	inFlight  *prometheus.Desc
	attempts  *prometheus.Desc
	skipped   *prometheus.Desc
	discarded *prometheus.Desc
	lastOK    *prometheus.Desc
	observed  *prometheus.Desc
	noted     *prometheus.Desc
	resumed   *prometheus.Desc
}

// NewCollector creates a collector. tracker may be nil.
func NewCollector(src StatusSource, tracker *activity.Tracker) *Collector {
	kind := []string{"kind"}
	return &Collector{
		src:     src,
		tracker: tracker,
		paused: prometheus.NewDesc(namespace+"_paused",
			"1 while background refreshes are suppressed by user activity.", nil, nil),
		remaining: prometheus.NewDesc(namespace+"_pause_remaining_seconds",
			"Seconds until the pause window elapses.", nil, nil),
		maxPause: prometheus.NewDesc(namespace+"_max_pause_seconds",
			"Length of the pause window armed by one activity note.", nil, nil),
		inFlight: prometheus.NewDesc(namespace+"_in_flight",
			"1 while a fetch for the kind is outstanding.", kind, nil),
		attempts: prometheus.NewDesc(namespace+"_attempts_total",
			"Refresh attempts that reached the network, by result.", []string{"kind", "result"}, nil),
		skipped: prometheus.NewDesc(namespace+"_skipped_total",
			"Refresh attempts dropped by a guard, by reason.", []string{"kind", "reason"}, nil),
		discarded: prometheus.NewDesc(namespace+"_discarded_total",
			"Fetched results dropped because editing started mid-flight.", kind, nil),
		lastOK: prometheus.NewDesc(namespace+"_last_success_timestamp_seconds",
			"Unix time of the last applied refresh.", kind, nil),
		observed: prometheus.NewDesc(namespace+"_activity_events_total",
			"UI events seen by the activity tracker.", nil, nil),
		noted: prometheus.NewDesc(namespace+"_activity_noted_total",
			"UI events that armed the pause window.", nil, nil),
		resumed: prometheus.NewDesc(namespace+"_mutations_resumed_total",
			"Completed mutations that collapsed the pause window.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.paused, c.remaining, c.maxPause, c.inFlight, c.attempts,
		c.skipped, c.discarded, c.lastOK,
	} {
		ch <- d
	}
	if c.tracker != nil {
		ch <- c.observed
		ch <- c.noted
		ch <- c.resumed
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Status()

	ch <- prometheus.MustNewConstMetric(c.paused, prometheus.GaugeValue, boolToFloat(s.Paused))
	ch <- prometheus.MustNewConstMetric(c.remaining, prometheus.GaugeValue, s.Remaining.Seconds())
	ch <- prometheus.MustNewConstMetric(c.maxPause, prometheus.GaugeValue, s.MaxPause.Seconds())

	for _, r := range s.Refreshers {
		k := string(r.Kind)
		ch <- prometheus.MustNewConstMetric(c.inFlight, prometheus.GaugeValue,
			boolToFloat(r.State == core.StateInFlight), k)
		ch <- prometheus.MustNewConstMetric(c.attempts, prometheus.CounterValue, float64(r.Succeeded), k, "succeeded")
		ch <- prometheus.MustNewConstMetric(c.attempts, prometheus.CounterValue, float64(r.Failed), k, "failed")
		ch <- prometheus.MustNewConstMetric(c.skipped, prometheus.CounterValue,
			float64(r.SkippedPaused), k, string(core.OutcomeSkippedPaused))
		ch <- prometheus.MustNewConstMetric(c.skipped, prometheus.CounterValue,
			float64(r.SkippedInFlight), k, string(core.OutcomeSkippedInFlight))
		ch <- prometheus.MustNewConstMetric(c.discarded, prometheus.CounterValue, float64(r.Discarded), k)
		if r.LastSuccess != nil {
			ch <- prometheus.MustNewConstMetric(c.lastOK, prometheus.GaugeValue,
				float64(r.LastSuccess.UnixNano())/1e9, k)
		}
	}

	if c.tracker != nil {
		a := c.tracker.Stats()
		ch <- prometheus.MustNewConstMetric(c.observed, prometheus.CounterValue, float64(a.Observed))
		ch <- prometheus.MustNewConstMetric(c.noted, prometheus.CounterValue, float64(a.Noted))
		ch <- prometheus.MustNewConstMetric(c.resumed, prometheus.CounterValue, float64(a.Resumed))
	}
}

// NewRegistry returns a registry holding the refresh collector plus the
// standard Go runtime and process collectors.
func NewRegistry(src StatusSource, tracker *activity.Tracker) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCollector(src, tracker),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
