// Package service owns the latest derived snapshot state and the refresh
// discipline around it.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"epochwatch/internal/chart"
	"epochwatch/internal/lookup"
	"epochwatch/internal/metrics"
	"epochwatch/internal/scanner"
	"epochwatch/internal/snapshot"
)

// Options tune the service.
type Options struct {
	Chart chart.Options
	// MinRefreshInterval is the local floor on the refresh cadence. The
	// effective delay also honors the snapshot's own minRefreshSeconds.
	MinRefreshInterval time.Duration
}

// Service fetches, normalizes, and serves the latest snapshot. All read
// paths are pure functions of the applied snapshot; a refresh replaces the
// state wholesale and never merges across fetches.
type Service struct {
	fetcher    scanner.SnapshotFetcher
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	chartOpts  chart.Options
	minRefresh time.Duration

	// seq orders refreshes so a newer result always supersedes an older
	// in-flight one, even when their fetches complete out of order.
	seq atomic.Uint64

	mu         sync.RWMutex
	snap       *snapshot.Snapshot
	fetchedAt  time.Time
	appliedSeq uint64
}

// New constructs the service. metrics may be nil for one-shot CLI use.
func New(fetcher scanner.SnapshotFetcher, opts Options, m *metrics.Metrics, logger zerolog.Logger) *Service {
	minRefresh := opts.MinRefreshInterval
	if minRefresh <= 0 {
		minRefresh = snapshot.DefaultMinRefreshSeconds * time.Second
	}
	return &Service{
		fetcher:    fetcher,
		metrics:    m,
		logger:     logger.With().Str("component", "service").Logger(),
		chartOpts:  opts.Chart,
		minRefresh: minRefresh,
	}
}

// ChartOptions returns the configured chart geometry options.
func (s *Service) ChartOptions() chart.Options {
	return s.chartOpts
}

// Refresh fetches one snapshot and applies it, returning the suggested delay
// before the next refresh. On upstream failure the previously applied state
// is kept untouched and the error is retryable.
func (s *Service) Refresh(ctx context.Context) (time.Duration, error) {
	seq := s.seq.Add(1)
	started := time.Now()

	body, err := s.fetcher.FetchSnapshot(ctx)
	if err != nil {
		s.countRefresh(metrics.OutcomeError)
		return s.minRefresh, fmt.Errorf("fetch snapshot: %w", err)
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		s.countRefresh(metrics.OutcomeError)
		return s.minRefresh, fmt.Errorf("decode snapshot: %w", err)
	}

	snap, stats := snapshot.Normalize(raw)

	s.mu.Lock()
	if seq <= s.appliedSeq {
		s.mu.Unlock()
		s.countRefresh(metrics.OutcomeStale)
		s.logger.Debug().Uint64("seq", seq).Msg("refresh superseded by a newer one")
		return s.nextDelay(snap), nil
	}
	s.snap = snap
	s.fetchedAt = time.Now().UTC()
	s.appliedSeq = seq
	s.mu.Unlock()

	s.observeApplied(snap, stats, time.Since(started))

	s.logger.Info().
		Int64("epoch", snap.Epoch).
		Int64("flips_seen", snap.Counts.FlipsSeen).
		Int64("unique_authors", snap.Counts.UniqueAuthors).
		Int("dropped_records", stats.Total()).
		Msg("snapshot applied")

	return s.nextDelay(snap), nil
}

// Latest returns the applied snapshot, its fetch time, and whether one
// exists yet.
func (s *Service) Latest() (*snapshot.Snapshot, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.fetchedAt, s.snap != nil
}

// Overlay builds the chart overlay for the given metric from the applied
// snapshot. A missing current series renders as an empty line, not an error.
func (s *Service) Overlay(metric chart.Metric) (chart.Overlay, bool) {
	snap, _, ok := s.Latest()
	if !ok {
		return chart.Overlay{}, false
	}
	return chart.Build(snap.Progress.Current, snap.Progress.Previous, metric, s.chartOpts), true
}

// Lookup resolves a user query against the applied identity lookup rows.
func (s *Service) Lookup(query string) (lookup.Result, bool) {
	snap, _, ok := s.Latest()
	if !ok {
		return lookup.Result{}, false
	}
	return lookup.Resolve(query, snap.Leaderboard.IdentityLookup), true
}

// nextDelay honors the upstream refresh contract: never poll more often than
// the snapshot's minRefreshSeconds, and prefer its own schedule when stated.
func (s *Service) nextDelay(snap *snapshot.Snapshot) time.Duration {
	secs := snap.Progress.MinRefreshSeconds
	if snap.Progress.SecondsUntilNextRefresh > 0 {
		secs = snap.Progress.SecondsUntilNextRefresh
	}
	delay := time.Duration(secs) * time.Second
	if delay < s.minRefresh {
		delay = s.minRefresh
	}
	return delay
}

func (s *Service) countRefresh(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RefreshTotal.WithLabelValues(outcome).Inc()
}

func (s *Service) observeApplied(snap *snapshot.Snapshot, stats snapshot.Stats, took time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.RefreshTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	s.metrics.RefreshSeconds.Observe(took.Seconds())
	s.metrics.LastRefreshUnix.SetToCurrentTime()
	s.metrics.SnapshotEpoch.Set(float64(snap.Epoch))
	s.metrics.DroppedRecords.WithLabelValues("identity").Add(float64(stats.DroppedIdentities))
	s.metrics.DroppedRecords.WithLabelValues("flip").Add(float64(stats.DroppedFlips))
	s.metrics.DroppedRecords.WithLabelValues("point").Add(float64(stats.DroppedPoints))
	s.metrics.DroppedRecords.WithLabelValues("series").Add(float64(stats.DroppedSeries))
}
