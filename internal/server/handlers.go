package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"epochwatch/internal/chart"
	"epochwatch/internal/countdown"
	"epochwatch/internal/snapshot"
)

// noSnapshotResponse tells clients the upstream scan has produced nothing
// usable yet; retrying the same request later is the intended recovery.
type noSnapshotResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func noSnapshot(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, noSnapshotResponse{
		Error:     "no snapshot available yet",
		Retryable: true,
	})
}

type countdownView struct {
	State   string  `json:"state"`
	Label   string  `json:"label,omitempty"`
	Seconds float64 `json:"seconds,omitempty"`
}

func viewOf(cd countdown.Countdown) countdownView {
	return countdownView{
		State:   cd.State.String(),
		Label:   cd.Label,
		Seconds: cd.Remaining.Seconds(),
	}
}

type statusResponse struct {
	Epoch          int64           `json:"epoch"`
	Threshold      float64         `json:"threshold"`
	Counts         snapshot.Counts `json:"counts"`
	Note           string          `json:"note,omitempty"`
	Timestamp      string          `json:"timestamp"`
	FetchedAt      time.Time       `json:"fetchedAt"`
	NextValidation countdownView   `json:"nextValidation"`
	NextRefresh    countdownView   `json:"nextRefresh"`
}

// GetHealth reports process liveness regardless of snapshot availability.
func (s *Server) GetHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// GetStatus returns epoch counters plus the live countdowns.
func (s *Server) GetStatus(c echo.Context) error {
	snap, fetchedAt, ok := s.svc.Latest()
	if !ok {
		return noSnapshot(c)
	}
	now := s.clock.Now()
	return c.JSON(http.StatusOK, statusResponse{
		Epoch:          snap.Epoch,
		Threshold:      snap.Threshold,
		Counts:         snap.Counts,
		Note:           snap.Note,
		Timestamp:      snap.Timestamp,
		FetchedAt:      fetchedAt,
		NextValidation: viewOf(countdown.Until(snap.Session.NextValidationTime, now)),
		NextRefresh:    viewOf(countdown.Until(snap.Progress.NextRefreshAt, now)),
	})
}

type leaderboardResponse struct {
	Epoch       int64                     `json:"epoch"`
	FetchedAt   time.Time                 `json:"fetchedAt"`
	Leaderboard snapshot.GradeLeaderboard `json:"gradeLeaderboard"`
}

// GetLeaderboard returns the ranked identities and flips.
func (s *Server) GetLeaderboard(c echo.Context) error {
	snap, fetchedAt, ok := s.svc.Latest()
	if !ok {
		return noSnapshot(c)
	}
	return c.JSON(http.StatusOK, leaderboardResponse{
		Epoch:       snap.Epoch,
		FetchedAt:   fetchedAt,
		Leaderboard: snap.Leaderboard,
	})
}

type lookupResponse struct {
	State    string                `json:"state"`
	Query    string                `json:"query,omitempty"`
	Identity *snapshot.IdentityRow `json:"identity,omitempty"`
}

// GetLookup resolves ?address= against the identity lookup rows. The three
// query states (none, invalid, resolved) are distinct response bodies, never
// error pages; only a well-formed unmatched address yields not_found.
func (s *Server) GetLookup(c echo.Context) error {
	res, ok := s.svc.Lookup(c.QueryParam("address"))
	if !ok {
		return noSnapshot(c)
	}
	return c.JSON(http.StatusOK, lookupResponse{
		State:    res.State.String(),
		Query:    res.Query,
		Identity: res.Identity,
	})
}

// GetProgress returns the normalized progress series as-is.
func (s *Server) GetProgress(c echo.Context) error {
	snap, _, ok := s.svc.Latest()
	if !ok {
		return noSnapshot(c)
	}
	return c.JSON(http.StatusOK, snap.Progress)
}

type chartResponse struct {
	Metric  string        `json:"metric"`
	Epoch   int64         `json:"epoch"`
	Overlay chart.Overlay `json:"overlay"`
}

// overlayFor reads the applied snapshot exactly once and derives the overlay
// from it, so the geometry and the epoch it is reported under can never come
// from different refreshes. A nil snapshot means none is applied yet.
func (s *Server) overlayFor(c echo.Context) (chart.Overlay, string, *snapshot.Snapshot, error) {
	name := c.QueryParam("metric")
	metric, ok := chart.MetricByName(name)
	if !ok {
		return chart.Overlay{}, "", nil, echo.NewHTTPError(http.StatusBadRequest, "unknown metric; use flips or authors")
	}
	if name == "" {
		name = "flips"
	}
	snap, _, ok := s.svc.Latest()
	if !ok {
		return chart.Overlay{}, "", nil, nil
	}
	overlay := chart.Build(snap.Progress.Current, snap.Progress.Previous, metric, s.svc.ChartOptions())
	return overlay, name, snap, nil
}

// GetChart returns the overlay geometry as JSON.
func (s *Server) GetChart(c echo.Context) error {
	overlay, name, snap, err := s.overlayFor(c)
	if err != nil {
		return err
	}
	if snap == nil {
		return noSnapshot(c)
	}
	return c.JSON(http.StatusOK, chartResponse{
		Metric:  name,
		Epoch:   snap.Epoch,
		Overlay: overlay,
	})
}

// GetChartSVG renders the overlay as a standalone SVG document.
func (s *Server) GetChartSVG(c echo.Context) error {
	overlay, _, snap, err := s.overlayFor(c)
	if err != nil {
		return err
	}
	if snap == nil {
		return noSnapshot(c)
	}
	doc := renderSVG(overlay, s.svc.ChartOptions())
	return c.Blob(http.StatusOK, "image/svg+xml", doc)
}
