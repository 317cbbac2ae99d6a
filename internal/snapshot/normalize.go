// Package snapshot turns the untyped JSON body produced by the external scan
// process into typed entities. Normalization never fails: structurally
// invalid list elements are dropped, invalid optional fields fall back to
// defaults, and the worst possible input yields an empty snapshot.
package snapshot

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultMinRefreshSeconds applies when the source omits or mangles
	// progress.minRefreshSeconds.
	DefaultMinRefreshSeconds = 30

	// DefaultTopLimit and DefaultTopFlipsLimit bound the displayed
	// leaderboards when the source does not state its own limits.
	DefaultTopLimit      = 20
	DefaultTopFlipsLimit = 20

	// MaxPreviousSeries caps how many completed epochs are kept for the
	// trailing chart overlay.
	MaxPreviousSeries = 2
)

// Stats counts records dropped during normalization. Drops are recoverable
// by definition and are reported only for observability.
type Stats struct {
	DroppedIdentities int
	DroppedFlips      int
	DroppedPoints     int
	DroppedSeries     int
}

// Total returns the number of dropped records of all kinds.
func (s Stats) Total() int {
	return s.DroppedIdentities + s.DroppedFlips + s.DroppedPoints + s.DroppedSeries
}

// Normalize converts an arbitrary decoded JSON value into a Snapshot.
// It tolerates any subset of fields being absent or malformed.
func Normalize(raw any) (*Snapshot, Stats) {
	var st Stats
	obj, _ := asObject(raw)

	snap := &Snapshot{
		Epoch:     asCount(obj["epoch"]),
		Threshold: asFiniteNumber(obj["threshold"]),
		Note:      asStringOr(obj["note"], ""),
		Timestamp: asStringOr(obj["timestamp"], ""),
	}

	if counts, ok := asObject(obj["counts"]); ok {
		snap.Counts = Counts{
			AuthorsOverThreshold: asCount(counts["authorsOverThreshold"]),
			TotalExtraFlips:      asCount(counts["totalExtraFlips"]),
			FlipsSeen:            asCount(counts["flipsSeen"]),
			UniqueAuthors:        asCount(counts["uniqueAuthors"]),
		}
	}

	if session, ok := asObject(obj["session"]); ok {
		snap.Session.NextValidationTime = asStringOr(session["nextValidationTime"], "")
	}

	snap.Leaderboard = normalizeLeaderboard(obj["gradeLeaderboard"], snap.Epoch, &st)
	snap.Progress = normalizeProgress(obj["progress"], &st)

	return snap, st
}

func normalizeLeaderboard(raw any, fallbackEpoch int64, st *Stats) GradeLeaderboard {
	obj, _ := asObject(raw)

	lb := GradeLeaderboard{
		Epoch:                     fallbackEpoch,
		TopLimit:                  asLimit(obj["topLimit"], DefaultTopLimit),
		TopFlipsLimit:             asLimit(obj["topFlipsLimit"], DefaultTopFlipsLimit),
		ExcludedWrongWordsAuthors: int(asCount(obj["excludedWrongWordsAuthorsCount"])),
	}
	if epoch, ok := asPositiveInt(obj["epoch"]); ok {
		lb.Epoch = epoch
	}

	if filters, ok := asObject(obj["filters"]); ok {
		if list, ok := asList(filters["status"]); ok {
			for _, v := range list {
				if s, ok := v.(string); ok && s != "" {
					lb.StatusFilters = append(lb.StatusFilters, s)
				}
			}
		}
	}

	lb.TopIdentities = normalizeIdentities(obj["topIdentities"], st)
	if len(lb.TopIdentities) > lb.TopLimit {
		lb.TopIdentities = lb.TopIdentities[:lb.TopLimit]
	}

	// An absent or empty identityLookup means "no override", not "no data":
	// full-rank search then falls back to the displayed top rows.
	lb.IdentityLookup = normalizeIdentities(obj["identityLookup"], st)
	if len(lb.IdentityLookup) == 0 {
		lb.IdentityLookup = lb.TopIdentities
	}

	lb.TopFlips = normalizeFlips(obj["topFlips"], st)
	if len(lb.TopFlips) > lb.TopFlipsLimit {
		lb.TopFlips = lb.TopFlips[:lb.TopFlipsLimit]
	}

	return lb
}

func normalizeIdentities(raw any, st *Stats) []IdentityRow {
	list, ok := asList(raw)
	if !ok {
		return nil
	}
	rows := make([]IdentityRow, 0, len(list))
	for _, v := range list {
		obj, ok := asObject(v)
		if !ok {
			st.DroppedIdentities++
			continue
		}
		rank, rankOK := asPositiveInt(obj["rank"])
		addr := strings.ToLower(strings.TrimSpace(asStringOr(obj["address"], "")))
		// Rank and address identify the row; neither has a safe default.
		if !rankOK || addr == "" {
			st.DroppedIdentities++
			continue
		}
		rows = append(rows, IdentityRow{
			Rank:              int(rank),
			Address:           addr,
			TotalGradeScore:   asFiniteNumber(obj["totalGradeScore"]),
			FlipCount:         int(asCount(obj["flipCount"])),
			AvgGradeScore:     asFiniteNumber(obj["avgGradeScore"]),
			MaxFlipGradeScore: asFiniteNumber(obj["maxFlipGradeScore"]),
			ScanURL:           asStringOr(obj["scanUrl"], ""),
		})
	}
	return rows
}

func normalizeFlips(raw any, st *Stats) []FlipRow {
	list, ok := asList(raw)
	if !ok {
		return nil
	}
	rows := make([]FlipRow, 0, len(list))
	for _, v := range list {
		obj, ok := asObject(v)
		if !ok {
			st.DroppedFlips++
			continue
		}
		rank, rankOK := asPositiveInt(obj["rank"])
		cid := asStringOr(obj["cid"], "")
		if !rankOK || cid == "" {
			st.DroppedFlips++
			continue
		}
		row := FlipRow{
			Rank:          int(rank),
			CID:           cid,
			Author:        strings.ToLower(strings.TrimSpace(asStringOr(obj["author"], ""))),
			GradeScore:    asFiniteNumber(obj["gradeScore"]),
			Status:        asStringOr(obj["status"], ""),
			Word1:         asStringOr(obj["word1"], ""),
			Word2:         asStringOr(obj["word2"], ""),
			ScanURL:       asStringOr(obj["scanUrl"], ""),
			AuthorScanURL: asStringOr(obj["authorScanUrl"], ""),
		}
		if authorRank, ok := asPositiveInt(obj["authorRank"]); ok {
			r := int(authorRank)
			row.AuthorRank = &r
		}
		rows = append(rows, row)
	}
	return rows
}

func normalizeProgress(raw any, st *Stats) Progress {
	obj, _ := asObject(raw)

	p := Progress{
		CacheUsed:         asBool(obj["cacheUsed"]),
		MinRefreshSeconds: asLimit(obj["minRefreshSeconds"], DefaultMinRefreshSeconds),
		NextRefreshAt:     asStringOr(obj["nextRefreshAt"], ""),
	}
	p.SecondsUntilNextRefresh = int(asCount(obj["secondsUntilNextRefresh"]))

	series, _ := asObject(obj["series"])
	if cur, ok := asObject(series["currentEpoch"]); ok {
		p.Current = normalizeSeries(cur, st)
	}
	if list, ok := asList(series["previousEpochs"]); ok {
		for _, v := range list {
			entry, ok := asObject(v)
			if !ok {
				st.DroppedSeries++
				continue
			}
			epoch, ok := asPositiveInt(entry["epoch"])
			if !ok {
				st.DroppedSeries++
				continue
			}
			s := normalizeSeries(entry, st)
			s.Epoch = epoch
			p.Previous = append(p.Previous, s)
		}
		// Source order already puts the most recent epoch first; cap after
		// filtering, never re-sort.
		if len(p.Previous) > MaxPreviousSeries {
			p.Previous = p.Previous[:MaxPreviousSeries]
		}
	}

	return p
}

func normalizeSeries(obj map[string]any, st *Stats) Series {
	s := Series{Epoch: asCount(obj["epoch"])}
	list, ok := asList(obj["points"])
	if !ok {
		return s
	}
	s.Points = make([]Point, 0, len(list))
	for _, v := range list {
		point, ok := asObject(v)
		if !ok {
			st.DroppedPoints++
			continue
		}
		ts, ok := point["timestamp"].(string)
		if !ok || ts == "" {
			// Unlike counters a timestamp has no safe default.
			st.DroppedPoints++
			continue
		}
		s.Points = append(s.Points, Point{
			Timestamp:     ts,
			FlipsSeen:     asCount(point["flipsSeen"]),
			UniqueAuthors: asCount(point["uniqueAuthors"]),
		})
	}
	return s
}

func asObject(v any) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	return obj, ok
}

func asList(v any) ([]any, bool) {
	list, ok := v.([]any)
	return list, ok
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asStringOr(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// asNumber coerces the usual JSON decodings of a number. Strings are
// accepted because upstream has been observed to stringify counters.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// asFiniteNumber substitutes 0 for anything that does not coerce to a
// finite number.
func asFiniteNumber(v any) float64 {
	f, ok := asNumber(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// asCount coerces a non-negative integer counter, substituting 0.
func asCount(v any) int64 {
	f := asFiniteNumber(v)
	if f <= 0 {
		return 0
	}
	return int64(f)
}

// asPositiveInt reports whether v coerces to a finite integer >= 1.
func asPositiveInt(v any) (int64, bool) {
	f, ok := asNumber(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		return 0, false
	}
	return int64(f), true
}

// asLimit coerces a positive integer with a stated default.
func asLimit(v any, def int) int {
	if n, ok := asPositiveInt(v); ok {
		return int(n)
	}
	return def
}
