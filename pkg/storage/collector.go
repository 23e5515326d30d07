package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/jdziat/simple-refresh/pkg/core"
)

// EventSource is the coordinator's event stream.
type EventSource interface {
	Events() <-chan core.Event
	Unsubscribe(ch <-chan core.Event)
}

// StatsCollector subscribes to refresh events and flushes per-kind
// counters to storage once a minute.
type StatsCollector struct {
	source    EventSource
	stats     Storage
	retention time.Duration
	interval  time.Duration
	clock     clock.WithTicker
	logger    *slog.Logger

	mu       sync.Mutex
	counters map[core.Kind]*Counters

	// ready is closed once the collector has subscribed to events and is processing.
	ready     chan struct{}
	readyOnce sync.Once
}

// StatsCollectorOption configures the StatsCollector.
type StatsCollectorOption interface {
	apply(*StatsCollector)
}

type statsCollectorOptionFunc func(*StatsCollector)

func (f statsCollectorOptionFunc) apply(sc *StatsCollector) { f(sc) }

// WithRetention sets how long stats rows are kept. Zero disables pruning.
func WithRetention(d time.Duration) StatsCollectorOption {
	return statsCollectorOptionFunc(func(sc *StatsCollector) {
		sc.retention = d
	})
}

// WithFlushInterval sets how often counters are written.
func WithFlushInterval(d time.Duration) StatsCollectorOption {
	return statsCollectorOptionFunc(func(sc *StatsCollector) {
		if d > 0 {
			sc.interval = d
		}
	})
}

// WithCollectorClock sets the clock used for the flush ticker and bucket times.
func WithCollectorClock(c clock.WithTicker) StatsCollectorOption {
	return statsCollectorOptionFunc(func(sc *StatsCollector) {
		sc.clock = c
	})
}

// WithCollectorLogger sets the logger.
func WithCollectorLogger(l *slog.Logger) StatsCollectorOption {
	return statsCollectorOptionFunc(func(sc *StatsCollector) {
		if l != nil {
			sc.logger = l
		}
	})
}

// NewStatsCollector creates a new StatsCollector.
func NewStatsCollector(source EventSource, stats Storage, opts ...StatsCollectorOption) *StatsCollector {
	sc := &StatsCollector{
		source:    source,
		stats:     stats,
		retention: 7 * 24 * time.Hour,
		interval:  time.Minute,
		clock:     clock.RealClock{},
		logger:    slog.Default(),
		counters:  make(map[core.Kind]*Counters),
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt.apply(sc)
	}
	return sc
}

// WaitReady blocks until the collector has subscribed to events.
func (sc *StatsCollector) WaitReady() {
	<-sc.ready
}

// Start consumes events and flushes periodically. Blocks until ctx is
// cancelled, then performs a final flush.
func (sc *StatsCollector) Start(ctx context.Context) {
	events := sc.source.Events()
	defer sc.source.Unsubscribe(events)

	sc.readyOnce.Do(func() { close(sc.ready) })

	ticker := sc.clock.NewTicker(sc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sc.drain(events)
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			sc.Flush(flushCtx)
			cancel()
			return
		case e := <-events:
			sc.handleEvent(e)
		case <-ticker.C():
			sc.Flush(ctx)
			sc.prune(ctx)
		}
	}
}

// drain handles events already buffered at shutdown.
func (sc *StatsCollector) drain(events <-chan core.Event) {
	for {
		select {
		case e := <-events:
			sc.handleEvent(e)
		default:
			return
		}
	}
}

func (sc *StatsCollector) handleEvent(e core.Event) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	switch ev := e.(type) {
	case *core.RefreshStarted:
		sc.getCounters(ev.Kind).Started++
	case *core.RefreshSucceeded:
		sc.getCounters(ev.Kind).Succeeded++
	case *core.RefreshFailed:
		sc.getCounters(ev.Kind).Failed++
	case *core.RefreshDiscarded:
		sc.getCounters(ev.Kind).Discarded++
	case *core.RefreshSkipped:
		switch ev.Reason {
		case core.OutcomeSkippedPaused:
			sc.getCounters(ev.Kind).SkippedPaused++
		case core.OutcomeSkippedInFlight:
			sc.getCounters(ev.Kind).SkippedInFlight++
		}
	}
}

func (sc *StatsCollector) getCounters(kind core.Kind) *Counters {
	c, ok := sc.counters[kind]
	if !ok {
		c = &Counters{}
		sc.counters[kind] = c
	}
	return c
}

// Flush writes accumulated counters to the stats storage.
func (sc *StatsCollector) Flush(ctx context.Context) {
	sc.mu.Lock()
	batch := sc.counters
	sc.counters = make(map[core.Kind]*Counters)
	sc.mu.Unlock()

	ts := sc.clock.Now().Truncate(time.Minute)
	for kind, c := range batch {
		if c.IsZero() {
			continue
		}
		if err := sc.stats.UpsertStatCounters(ctx, kind, ts, *c); err != nil {
			sc.logger.Warn("failed to flush refresh stats", "kind", string(kind), "error", err)
		}
	}
}

func (sc *StatsCollector) prune(ctx context.Context) {
	if sc.retention <= 0 {
		return
	}
	n, err := sc.stats.PruneStats(ctx, sc.clock.Now().Add(-sc.retention))
	if err != nil {
		sc.logger.Warn("failed to prune refresh stats", "error", err)
		return
	}
	if n > 0 {
		sc.logger.Debug("pruned refresh stats", "rows", n)
	}
}
