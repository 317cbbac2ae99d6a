package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"epochwatch/internal/config"
	"epochwatch/internal/countdown"
	"epochwatch/internal/metrics"
	"epochwatch/internal/service"
)

type staticFetcher struct {
	body json.RawMessage
}

func (f *staticFetcher) FetchSnapshot(ctx context.Context) (json.RawMessage, error) {
	return f.body, nil
}

const fixture = `{
	"epoch": 162,
	"counts": {"flipsSeen": 120, "uniqueAuthors": 37},
	"session": {"nextValidationTime": "2030-01-01T00:00:00Z"},
	"gradeLeaderboard": {
		"topIdentities": [{"rank": 1, "address": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}]
	},
	"progress": {
		"nextRefreshAt": "not-a-timestamp",
		"series": {"currentEpoch": {"epoch": 162, "points": [
			{"timestamp": "2026-08-01T10:00:00Z", "flipsSeen": 50, "uniqueAuthors": 20},
			{"timestamp": "2026-08-01T10:05:00Z", "flipsSeen": 120, "uniqueAuthors": 37}
		]}}
	}
}`

func newTestServer(t *testing.T, refreshed bool) *Server {
	t.Helper()
	svc := service.New(&staticFetcher{body: json.RawMessage(fixture)}, service.Options{
		MinRefreshInterval: time.Second,
	}, nil, zerolog.Nop())
	if refreshed {
		if _, err := svc.Refresh(context.Background()); err != nil {
			t.Fatalf("seed refresh failed: %v", err)
		}
	}
	clock := countdown.NewClock(time.Second)
	return New(config.ServerConfig{}, svc, clock, metrics.New("epochwatch_test"), zerolog.Nop())
}

func do(s *Server, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestStatusBeforeFirstSnapshot(t *testing.T) {
	s := newTestServer(t, false)
	rec := do(s, "/api/status")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first snapshot, got %d", rec.Code)
	}
	var body noSnapshotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.Retryable {
		t.Fatal("missing snapshot must be presented as retryable")
	}
}

func TestStatusCountdowns(t *testing.T) {
	s := newTestServer(t, true)
	rec := do(s, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Epoch != 162 {
		t.Fatalf("epoch: got %d", body.Epoch)
	}
	if body.NextValidation.State != "pending" || body.NextValidation.Label == "" {
		t.Fatalf("next validation countdown: %+v", body.NextValidation)
	}
	// The fixture's nextRefreshAt is unparsable; that is a distinct state,
	// not a zero duration.
	if body.NextRefresh.State != "unavailable" {
		t.Fatalf("next refresh countdown: %+v", body.NextRefresh)
	}
}

func TestLookupStates(t *testing.T) {
	s := newTestServer(t, true)

	cases := []struct {
		target string
		state  string
	}{
		{"/api/lookup", "none"},
		{"/api/lookup?address=0x123", "invalid"},
		{"/api/lookup?address=0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", "found"},
		{"/api/lookup?address=0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "not_found"},
	}
	for _, tc := range cases {
		rec := do(s, tc.target)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.target, rec.Code)
		}
		var body lookupResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode body: %v", tc.target, err)
		}
		if body.State != tc.state {
			t.Fatalf("%s: state %q, want %q", tc.target, body.State, tc.state)
		}
		if tc.state == "found" && (body.Identity == nil || body.Identity.Rank != 1) {
			t.Fatalf("%s: identity %+v", tc.target, body.Identity)
		}
	}
}

func TestChartJSON(t *testing.T) {
	s := newTestServer(t, true)
	rec := do(s, "/api/chart?metric=authors")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body chartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Metric != "authors" {
		t.Fatalf("metric: got %q", body.Metric)
	}
	if body.Epoch != 162 {
		t.Fatalf("epoch should come from the same snapshot as the overlay, got %d", body.Epoch)
	}
	if body.Overlay.Latest != 37 {
		t.Fatalf("latest: got %v", body.Overlay.Latest)
	}
	if !strings.HasPrefix(body.Overlay.CurrentPath, "M ") {
		t.Fatalf("current path: %q", body.Overlay.CurrentPath)
	}
}

func TestChartBeforeFirstSnapshot(t *testing.T) {
	s := newTestServer(t, false)
	for _, target := range []string{"/api/chart", "/chart.svg"} {
		rec := do(s, target)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected 503 before first snapshot, got %d", target, rec.Code)
		}
	}
}

func TestChartRejectsUnknownMetric(t *testing.T) {
	s := newTestServer(t, true)
	rec := do(s, "/api/chart?metric=velocity")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChartSVG(t *testing.T) {
	s := newTestServer(t, true)
	rec := do(s, "/chart.svg")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "image/svg+xml") {
		t.Fatalf("content type: %q", ct)
	}
	svg := rec.Body.String()
	if !strings.Contains(svg, "<path d=\"M ") {
		t.Fatalf("svg should contain the current path: %s", svg)
	}
	if !strings.Contains(svg, `viewBox="0 0 720 220"`) {
		t.Fatalf("svg should use the default logical size: %s", svg)
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	s := newTestServer(t, false)
	if rec := do(s, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthz: got %d", rec.Code)
	}
	if rec := do(s, "/metrics"); rec.Code != http.StatusOK {
		t.Fatalf("metrics: got %d", rec.Code)
	}
}
