package snapshot

import (
	"encoding/json"
	"math"
	"testing"
)

func decode(t *testing.T, body string) any {
	t.Helper()
	var raw any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		t.Fatalf("test fixture is not valid JSON: %v", err)
	}
	return raw
}

func TestNormalizeGarbageInput(t *testing.T) {
	for _, raw := range []any{nil, "nonsense", 42.0, []any{1, 2}, true} {
		snap, _ := Normalize(raw)
		if snap == nil {
			t.Fatalf("Normalize(%v) returned nil snapshot", raw)
		}
		if snap.Epoch != 0 || len(snap.Leaderboard.TopIdentities) != 0 {
			t.Fatalf("garbage input should yield an empty snapshot, got %+v", snap)
		}
		if snap.Progress.MinRefreshSeconds != DefaultMinRefreshSeconds {
			t.Fatalf("minRefreshSeconds default not applied: %d", snap.Progress.MinRefreshSeconds)
		}
	}
}

func TestNormalizePointsRequireTimestamp(t *testing.T) {
	raw := decode(t, `{
		"progress": {"series": {"currentEpoch": {"epoch": 7, "points": [
			{"timestamp": "2026-08-01T10:00:00Z", "flipsSeen": 5, "uniqueAuthors": 2},
			{"flipsSeen": 6, "uniqueAuthors": 3},
			{"timestamp": 12345, "flipsSeen": 7},
			"not-an-object",
			{"timestamp": "2026-08-01T10:05:00Z", "flipsSeen": "11", "uniqueAuthors": null}
		]}}}
	}`)

	snap, stats := Normalize(raw)
	points := snap.Progress.Current.Points
	if len(points) != 2 {
		t.Fatalf("expected 2 surviving points, got %d", len(points))
	}
	if points[0].FlipsSeen != 5 || points[0].UniqueAuthors != 2 {
		t.Fatalf("first point mangled: %+v", points[0])
	}
	if points[1].FlipsSeen != 11 {
		t.Fatalf("stringified counter should coerce, got %d", points[1].FlipsSeen)
	}
	if points[1].UniqueAuthors != 0 {
		t.Fatalf("null counter should default to 0, got %d", points[1].UniqueAuthors)
	}
	if stats.DroppedPoints != 3 {
		t.Fatalf("expected 3 dropped points, got %d", stats.DroppedPoints)
	}
}

func TestNormalizeNonFiniteCounters(t *testing.T) {
	raw := map[string]any{
		"counts": map[string]any{
			"flipsSeen":     math.Inf(1),
			"uniqueAuthors": math.NaN(),
		},
		"threshold": math.Inf(-1),
	}
	snap, _ := Normalize(raw)
	if snap.Counts.FlipsSeen != 0 || snap.Counts.UniqueAuthors != 0 {
		t.Fatalf("non-finite counters should become 0: %+v", snap.Counts)
	}
	if snap.Threshold != 0 {
		t.Fatalf("non-finite threshold should become 0, got %v", snap.Threshold)
	}
}

func TestNormalizePreviousEpochsFilterThenCap(t *testing.T) {
	raw := decode(t, `{
		"progress": {"series": {"previousEpochs": [
			{"epoch": -3, "points": []},
			{"epoch": 161, "points": [{"timestamp": "2026-08-01T00:00:00Z"}]},
			{"epoch": "bogus", "points": []},
			{"epoch": 160, "points": []},
			{"epoch": 159, "points": []}
		]}}
	}`)

	snap, stats := Normalize(raw)
	prev := snap.Progress.Previous
	if len(prev) != 2 {
		t.Fatalf("expected cap at 2 trailing series, got %d", len(prev))
	}
	// Cap applies after filtering, so 160 survives even though it sits
	// behind two invalid entries in the source.
	if prev[0].Epoch != 161 || prev[1].Epoch != 160 {
		t.Fatalf("relative order not preserved: %d, %d", prev[0].Epoch, prev[1].Epoch)
	}
	if stats.DroppedSeries != 2 {
		t.Fatalf("expected 2 dropped series, got %d", stats.DroppedSeries)
	}
}

func TestNormalizeIdentityLookupFallback(t *testing.T) {
	top := `[{"rank": 1, "address": "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", "totalGradeScore": 9.5}]`

	t.Run("absent", func(t *testing.T) {
		raw := decode(t, `{"gradeLeaderboard": {"topIdentities": `+top+`}}`)
		snap, _ := Normalize(raw)
		lb := snap.Leaderboard
		if len(lb.IdentityLookup) != 1 || lb.IdentityLookup[0].Rank != 1 {
			t.Fatalf("lookup should fall back to topIdentities: %+v", lb.IdentityLookup)
		}
	})

	t.Run("explicitly empty", func(t *testing.T) {
		raw := decode(t, `{"gradeLeaderboard": {"topIdentities": `+top+`, "identityLookup": []}}`)
		snap, _ := Normalize(raw)
		if len(snap.Leaderboard.IdentityLookup) != 1 {
			t.Fatal("empty lookup array means no override, not no data")
		}
	})

	t.Run("override", func(t *testing.T) {
		raw := decode(t, `{"gradeLeaderboard": {"topIdentities": `+top+`, "identityLookup": [
			{"rank": 1, "address": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
			{"rank": 2, "address": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"}
		]}}`)
		snap, _ := Normalize(raw)
		if len(snap.Leaderboard.IdentityLookup) != 2 {
			t.Fatalf("non-empty lookup should be used verbatim, got %d rows", len(snap.Leaderboard.IdentityLookup))
		}
	})
}

func TestNormalizeIdentityRows(t *testing.T) {
	raw := decode(t, `{"gradeLeaderboard": {"topIdentities": [
		{"rank": 1, "address": "0xABCDEF0123456789abcdef0123456789abcdef01", "flipCount": 3, "avgGradeScore": "4.5"},
		{"rank": 0, "address": "0xcccccccccccccccccccccccccccccccccccccccc"},
		{"rank": 2},
		17,
		{"rank": 3, "address": "0xdddddddddddddddddddddddddddddddddddddddd", "totalGradeScore": "wat"}
	]}}`)

	snap, stats := Normalize(raw)
	rows := snap.Leaderboard.TopIdentities
	if len(rows) != 2 {
		t.Fatalf("expected 2 surviving identity rows, got %d", len(rows))
	}
	if rows[0].Address != "0xabcdef0123456789abcdef0123456789abcdef01" {
		t.Fatalf("address should be lowercased: %s", rows[0].Address)
	}
	if rows[0].AvgGradeScore != 4.5 {
		t.Fatalf("stringified score should coerce, got %v", rows[0].AvgGradeScore)
	}
	if rows[1].TotalGradeScore != 0 {
		t.Fatalf("unparsable score should default to 0, got %v", rows[1].TotalGradeScore)
	}
	if stats.DroppedIdentities != 3 {
		t.Fatalf("expected 3 dropped identities, got %d", stats.DroppedIdentities)
	}
}

func TestNormalizeFlipRows(t *testing.T) {
	raw := decode(t, `{"gradeLeaderboard": {"topFlips": [
		{"rank": 1, "cid": "bafy1", "author": "0xAA", "authorRank": 4, "gradeScore": 5.25, "status": "Qualified"},
		{"rank": 2, "cid": "bafy2", "authorRank": -1},
		{"rank": 3}
	]}}`)

	snap, stats := Normalize(raw)
	flips := snap.Leaderboard.TopFlips
	if len(flips) != 2 {
		t.Fatalf("expected 2 surviving flips, got %d", len(flips))
	}
	if flips[0].AuthorRank == nil || *flips[0].AuthorRank != 4 {
		t.Fatalf("authorRank should be kept: %+v", flips[0].AuthorRank)
	}
	if flips[0].Author != "0xaa" {
		t.Fatalf("author should be lowercased: %s", flips[0].Author)
	}
	if flips[1].AuthorRank != nil {
		t.Fatal("non-positive authorRank should be treated as absent")
	}
	if stats.DroppedFlips != 1 {
		t.Fatalf("expected 1 dropped flip, got %d", stats.DroppedFlips)
	}
}

func TestNormalizeLimitsTruncateLists(t *testing.T) {
	raw := decode(t, `{"gradeLeaderboard": {
		"topLimit": 1,
		"topIdentities": [
			{"rank": 1, "address": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
			{"rank": 2, "address": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"}
		]
	}}`)
	snap, _ := Normalize(raw)
	if len(snap.Leaderboard.TopIdentities) != 1 {
		t.Fatalf("topIdentities should honor topLimit, got %d", len(snap.Leaderboard.TopIdentities))
	}
}

func TestNormalizeProgressScalars(t *testing.T) {
	raw := decode(t, `{"progress": {
		"cacheUsed": true,
		"minRefreshSeconds": "not-a-number",
		"secondsUntilNextRefresh": 42,
		"nextRefreshAt": "2026-08-01T10:05:00Z"
	}}`)
	snap, _ := Normalize(raw)
	p := snap.Progress
	if !p.CacheUsed {
		t.Fatal("cacheUsed should be true")
	}
	if p.MinRefreshSeconds != DefaultMinRefreshSeconds {
		t.Fatalf("invalid minRefreshSeconds should use default, got %d", p.MinRefreshSeconds)
	}
	if p.SecondsUntilNextRefresh != 42 {
		t.Fatalf("secondsUntilNextRefresh: got %d", p.SecondsUntilNextRefresh)
	}
	if p.NextRefreshAt != "2026-08-01T10:05:00Z" {
		t.Fatalf("nextRefreshAt: got %s", p.NextRefreshAt)
	}
}

func TestNormalizeLeaderboardEpochFallsBackToTopLevel(t *testing.T) {
	raw := decode(t, `{"epoch": 162, "gradeLeaderboard": {}}`)
	snap, _ := Normalize(raw)
	if snap.Leaderboard.Epoch != 162 {
		t.Fatalf("leaderboard epoch should fall back to top-level epoch, got %d", snap.Leaderboard.Epoch)
	}
}
