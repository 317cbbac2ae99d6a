package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"epochwatch/internal/chart"
	"epochwatch/internal/config"
	"epochwatch/internal/countdown"
	"epochwatch/internal/metrics"
	"epochwatch/internal/scanner"
	"epochwatch/internal/scheduler"
	"epochwatch/internal/server"
	"epochwatch/internal/service"
	"epochwatch/internal/snapshot"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newScanner() *scanner.Client {
	return scanner.NewClient(scanner.Options{
		BaseURL:    a.Config.Scanner.BaseURL,
		StatusPath: a.Config.Scanner.StatusPath,
		Timeout:    a.Config.Scanner.RequestTimeout,
		UserAgent:  a.Config.Scanner.UserAgent,
	}, a.Logger)
}

func (a *App) chartOptions() chart.Options {
	return chart.Options{
		Width:             a.Config.Chart.Width,
		Height:            a.Config.Chart.Height,
		TrailingOpacities: a.Config.Chart.TrailingOpacities,
	}
}

func (a *App) newService(m *metrics.Metrics) *service.Service {
	return service.New(a.newScanner(), service.Options{
		Chart:              a.chartOptions(),
		MinRefreshInterval: a.Config.Refresh.MinInterval,
	}, m, a.Logger)
}

// fetchOnce pulls and normalizes a single snapshot for one-shot commands.
func (a *App) fetchOnce(ctx context.Context) (*snapshot.Snapshot, error) {
	body, err := a.newScanner().FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	snap, stats := snapshot.Normalize(raw)
	if dropped := stats.Total(); dropped > 0 {
		a.Logger.Warn().Int("dropped_records", dropped).Msg("snapshot contained malformed records")
	}
	return snap, nil
}

// Run executes the long-running watcher: the refresh scheduler, the freshness
// clock, and the HTTP API, all stopping together on SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New("epochwatch")

	clock := countdown.NewClock(0)
	clock.Start()
	defer clock.Stop()

	svc := a.newService(m)

	sched := scheduler.New(scheduler.Options{
		Floor:        a.Config.Refresh.MinInterval,
		StartupDelay: a.Config.Refresh.StartupDelay,
	}, a.Logger)

	srv := server.New(a.Config.Server, svc, clock, m, a.Logger)

	serverErr := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", a.Config.Server.ListenAddr).Msg("http server listening")
		serverErr <- srv.Start(a.Config.Server.ListenAddr)
	}()

	schedErr := make(chan error, 1)
	go func() {
		schedErr <- sched.Run(ctx, svc.Refresh)
	}()

	a.Logger.Info().Msg("starting epoch watcher")

	var err error
	select {
	case err = <-serverErr:
		cancel()
		<-schedErr
	case err = <-schedErr:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer shutdownCancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && !errors.Is(shutdownErr, http.ErrServerClosed) {
		a.Logger.Error().Err(shutdownErr).Msg("http server shutdown failed")
	}

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		a.Logger.Error().Err(err).Msg("watcher terminated with error")
		return err
	}

	a.Logger.Info().Msg("epoch watcher stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// LookupOptions configure the lookup command.
type LookupOptions struct {
	Address string
}

// ExportOptions hold parameters for exporting progress series.
type ExportOptions struct {
	Metric    string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
