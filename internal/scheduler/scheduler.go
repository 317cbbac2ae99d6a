// Package scheduler drives the recurring snapshot refresh.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc runs one refresh and suggests the delay before the next run.
type TickFunc func(ctx context.Context) (time.Duration, error)

// Options tune scheduler behaviour.
type Options struct {
	// Floor is the minimum delay between ticks regardless of what the
	// tick suggests, honoring the upstream minRefreshSeconds contract.
	Floor        time.Duration
	StartupDelay time.Duration
}

// Scheduler runs ticks back to back, separated by the suggested delay.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Floor <= 0 {
		opts.Floor = time.Second
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, ticking until ctx is cancelled. The first tick fires after the
// startup delay; tick errors are logged and retried on the next cycle.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	for {
		next, err := tick(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error().Err(err).Msg("refresh tick failed")
		}
		if next < s.opts.Floor {
			next = s.opts.Floor
		}

		timer := time.NewTimer(next)
		s.logger.Debug().Dur("delay", next).Msg("waiting for next refresh")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
