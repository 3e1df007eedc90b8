// Package driver runs the geoparsing loop: it advances the analysis window
// in timesteps, feeds messages through the scorer into the window cache,
// invokes the resolver, and commits assignments downstream. After historical
// catch-up it can switch to realtime tagging on wall-clock ticks.
package driver

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/tweet-geoparser/internal/analyzer"
	"github.com/couchcryptid/tweet-geoparser/internal/domain"
	"github.com/couchcryptid/tweet-geoparser/internal/observability"
	"github.com/couchcryptid/tweet-geoparser/internal/resolver"
)

// MessageStore reads messages from the persistent store in a time range.
type MessageStore interface {
	EachMessage(ctx context.Context, start, end time.Time, fn func(domain.Message) error) error
}

// CommitSink accepts the per-message resolved locations.
type CommitSink interface {
	CommitAssignments(ctx context.Context, assignments map[string][]domain.ResolvedLocation) error
}

// ResolutionExporter replaces the realtime toponym-resolution table.
type ResolutionExporter interface {
	ExportResolutionTable(ctx context.Context, table map[string]int64) error
}

// Config holds the window parameters.
type Config struct {
	Start           time.Time
	End             time.Time // zero: run until now, then realtime if enabled
	TimestepLength  time.Duration
	AnalysisLength  time.Duration
	Realtime        bool
	RealtimeRefresh time.Duration
}

// Driver owns the window cache and coordinates scorer and resolver. The
// scorer writes during the scoring phase and the resolver reads afterwards,
// all on the driver's goroutine, so no further synchronization is needed.
type Driver struct {
	analyzer *analyzer.Analyzer
	resolver *resolver.Resolver
	cache    *resolver.Cache
	store    MessageStore
	sink     CommitSink
	exporter ResolutionExporter
	clock    clockwork.Clock
	cfg      Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// New creates a Driver. exporter may be nil when realtime export is not
// configured.
func New(a *analyzer.Analyzer, r *resolver.Resolver, store MessageStore, sink CommitSink, exporter ResolutionExporter, clock clockwork.Clock, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Driver {
	return &Driver{
		analyzer: a,
		resolver: r,
		cache:    resolver.NewCache(),
		store:    store,
		sink:     sink,
		exporter: exporter,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once at least one timestep has completed.
func (d *Driver) CheckReadiness(_ context.Context) error {
	if !d.ready.Load() {
		return errors.New("no timestep completed yet")
	}
	return nil
}

// Run executes the historical catch-up and, when configured, the realtime
// loop. It returns nil on context cancellation.
func (d *Driver) Run(ctx context.Context) error {
	d.metrics.DriverRunning.Set(1)
	defer d.metrics.DriverRunning.Set(0)

	spinupStart := d.cfg.Start.Add(-d.cfg.AnalysisLength + d.cfg.TimestepLength)
	d.logger.Info("building spinup", "from", spinupStart, "to", d.cfg.Start)
	if err := d.withRetries(ctx, func() error {
		batch, err := d.scoreRange(ctx, spinupStart, d.cfg.Start)
		if err != nil {
			return err
		}
		d.cache.UpdateBulk(batch)
		return nil
	}); err != nil {
		return err
	}

	for step := 1; ; step++ {
		if ctx.Err() != nil {
			return nil
		}
		windowEnd := d.cfg.Start.Add(time.Duration(step) * d.cfg.TimestepLength)
		if windowEnd.After(d.clock.Now()) {
			break
		}
		if !d.cfg.End.IsZero() && windowEnd.After(d.cfg.End) {
			d.logger.Info("reached configured end", "end", d.cfg.End)
			return nil
		}

		err := d.withRetries(ctx, func() error {
			return d.runTimestep(ctx, windowEnd, windowEnd.Add(-d.cfg.TimestepLength), false)
		})
		if err != nil {
			return err
		}
	}

	if !d.cfg.Realtime || !d.cfg.End.IsZero() {
		d.logger.Info("historical analysis complete")
		return nil
	}
	return d.runRealtime(ctx)
}

// runRealtime re-runs the window operation on wall-clock ticks, querying
// only messages that arrived since the previous pass.
func (d *Driver) runRealtime(ctx context.Context) error {
	d.logger.Info("entering realtime tagging", "refresh", d.cfg.RealtimeRefresh)
	lastEnd := d.clock.Now().Add(-d.cfg.TimestepLength)
	for {
		windowEnd := d.clock.Now()
		err := d.withRetries(ctx, func() error {
			return d.runTimestep(ctx, windowEnd, lastEnd, true)
		})
		if err != nil {
			return err
		}
		lastEnd = windowEnd

		select {
		case <-ctx.Done():
			return nil
		case <-d.clock.After(d.cfg.RealtimeRefresh):
		}
	}
}

// runTimestep performs one window operation. The cache is only mutated once
// scoring succeeded, and commit results are recorded on cached messages
// only after the sink accepted them, so a failed step can be retried
// against consistent state.
func (d *Driver) runTimestep(ctx context.Context, windowEnd, queryStart time.Time, realtime bool) error {
	started := time.Now()
	windowStart := windowEnd.Add(-d.cfg.AnalysisLength)
	d.logger.Info("analyzing timestep", "window_end", windowEnd, "realtime", realtime)

	batch, err := d.scoreRange(ctx, queryStart, windowEnd)
	if err != nil {
		return err
	}

	d.cache.DeleteOlderThan(windowStart)
	d.cache.UpdateBulk(batch)
	d.metrics.WindowSize.Set(float64(d.cache.Len()))

	final, resolutions := d.resolver.Assign(d.cache)
	d.metrics.ToponymsResolved.Add(float64(len(resolutions)))

	type pendingCommit struct {
		msg    *domain.ScoredMessage
		merged []domain.ResolvedLocation
	}
	assignments := make(map[string][]domain.ResolvedLocation)
	var pending []pendingCommit
	for id, locations := range final {
		msg, ok := d.cache.Get(id)
		if !ok {
			continue
		}
		merged, changed := resolver.MergeAssignments(msg.Locations, locations)
		if !changed {
			continue
		}
		assignments[id] = merged
		pending = append(pending, pendingCommit{msg: msg, merged: merged})
	}

	if len(assignments) > 0 {
		if err := d.sink.CommitAssignments(ctx, assignments); err != nil {
			d.metrics.CommitErrors.Inc()
			return err
		}
		for _, p := range pending {
			p.msg.Locations = p.merged
		}
		d.metrics.AssignmentsCommitted.Add(float64(len(assignments)))
	}

	if realtime && d.exporter != nil {
		if err := d.exporter.ExportResolutionTable(ctx, resolver.ResolutionTable(resolutions)); err != nil {
			return err
		}
	}

	d.metrics.TimestepDuration.Observe(time.Since(started).Seconds())
	d.metrics.TimestepsCompleted.Inc()
	d.ready.Store(true)
	return nil
}

// scoreRange loads and scores all messages in [start, end]. Invalid
// messages are skipped; transient scorer errors abort the batch without
// touching the cache.
func (d *Driver) scoreRange(ctx context.Context, start, end time.Time) (map[string]*domain.ScoredMessage, error) {
	batch := make(map[string]*domain.ScoredMessage)
	err := d.store.EachMessage(ctx, start, end, func(msg domain.Message) error {
		d.metrics.MessagesConsumed.Inc()
		scored, err := d.analyzer.AnalyzeMessage(ctx, msg)
		if err != nil {
			return err
		}
		if scored == nil {
			d.metrics.MessagesDropped.Inc()
			return nil
		}
		d.metrics.MessagesScored.Inc()
		batch[scored.ID] = scored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// withRetries runs fn with exponential backoff until it succeeds or the
// context is cancelled. Cancellation is reported as success so shutdown
// stays clean.
func (d *Driver) withRetries(ctx context.Context, fn func() error) error {
	backoff := 200 * time.Millisecond
	maxBackoff := 30 * time.Second

	for {
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		d.logger.Error("timestep failed, retrying", "error", err, "backoff", backoff)
		if !d.sleep(ctx, backoff) {
			return nil
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

func (d *Driver) sleep(ctx context.Context, duration time.Duration) bool {
	if duration <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-d.clock.After(duration):
		return true
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
