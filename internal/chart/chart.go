// Package chart maps per-epoch progress series onto a shared coordinate
// system and renders them as SVG-style path strings. Everything here is a
// pure function of its inputs; callers recompute on every snapshot or clock
// change instead of patching state.
package chart

import (
	"fmt"
	"strings"
	"time"

	"epochwatch/internal/snapshot"
)

const (
	// DefaultWidth and DefaultHeight define the logical drawing area.
	DefaultWidth  = 720.0
	DefaultHeight = 220.0
)

// defaultTrailingOpacities dims previous epochs by recency: index 0 is the
// most recent completed epoch. Exact levels are presentation choices; the
// strict decay toward older epochs is an invariant.
var defaultTrailingOpacities = []float64{0.45, 0.24}

// Metric selects the charted value from a progress point.
type Metric func(p snapshot.Point) float64

// FlipsSeen charts the cumulative number of observed submissions.
func FlipsSeen(p snapshot.Point) float64 { return float64(p.FlipsSeen) }

// UniqueAuthors charts the number of distinct submitters.
func UniqueAuthors(p snapshot.Point) float64 { return float64(p.UniqueAuthors) }

// MetricByName resolves the user-facing metric names.
func MetricByName(name string) (Metric, bool) {
	switch name {
	case "", "flips":
		return FlipsSeen, true
	case "authors":
		return UniqueAuthors, true
	default:
		return nil, false
	}
}

// Options tune the logical chart size and trailing-line opacities.
type Options struct {
	Width             float64
	Height            float64
	TrailingOpacities []float64
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if len(o.TrailingOpacities) == 0 {
		o.TrailingOpacities = defaultTrailingOpacities
	}
	return o
}

// Sample is one chart point: seconds elapsed since the first point of its
// own series, and the metric value there.
type Sample struct {
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	Value          float64 `json:"value"`
}

// Line is the rendered path of one trailing epoch.
type Line struct {
	Epoch   int64   `json:"epoch"`
	Path    string  `json:"path"`
	Opacity float64 `json:"opacity"`
}

// Overlay is the rendered multi-epoch chart: the current epoch's path plus
// dimmed trailing lines, all sharing one coordinate system.
type Overlay struct {
	CurrentPath string  `json:"currentPath"`
	Trailing    []Line  `json:"trailing"`
	MaxValue    float64 `json:"maxValue"`
	MaxElapsed  float64 `json:"maxElapsedSeconds"`
	Latest      float64 `json:"latestValue"`
}

// Samples derives the elapsed/value pairs for one series. Elapsed time is
// measured against the series' own first plottable point so epochs that
// started at different wall-clock times overlay on one axis. Points whose
// timestamp does not parse are skipped; points are never re-sorted.
func Samples(s snapshot.Series, metric Metric) []Sample {
	out := make([]Sample, 0, len(s.Points))
	var origin time.Time
	haveOrigin := false
	for _, p := range s.Points {
		t, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			continue
		}
		if !haveOrigin {
			origin = t
			haveOrigin = true
		}
		out = append(out, Sample{
			ElapsedSeconds: t.Sub(origin).Seconds(),
			Value:          metric(p),
		})
	}
	return out
}

// Build renders the current series and up to two trailing series into one
// overlay. The shared maxima span every series being rendered, floored at 1
// so flat or empty charts never divide by zero.
func Build(current snapshot.Series, previous []snapshot.Series, metric Metric, opts Options) Overlay {
	opts = opts.withDefaults()

	cur := Samples(current, metric)
	trailing := make([][]Sample, len(previous))
	for i, s := range previous {
		trailing[i] = Samples(s, metric)
	}

	maxElapsed, maxValue := 1.0, 1.0
	scan := func(samples []Sample) {
		for _, s := range samples {
			if s.ElapsedSeconds > maxElapsed {
				maxElapsed = s.ElapsedSeconds
			}
			if s.Value > maxValue {
				maxValue = s.Value
			}
		}
	}
	scan(cur)
	for _, samples := range trailing {
		scan(samples)
	}

	o := Overlay{
		CurrentPath: pathFor(cur, maxElapsed, maxValue, opts),
		MaxValue:    maxValue,
		MaxElapsed:  maxElapsed,
	}
	if len(cur) > 0 {
		o.Latest = cur[len(cur)-1].Value
	}

	prev := 1.0
	for i, samples := range trailing {
		// Past the end of the configured list, halve the previous level so
		// decay stays strict no matter how short the list is.
		opacity := prev / 2
		if i < len(opts.TrailingOpacities) {
			opacity = opts.TrailingOpacities[i]
		}
		o.Trailing = append(o.Trailing, Line{
			Epoch:   previous[i].Epoch,
			Path:    pathFor(samples, maxElapsed, maxValue, opts),
			Opacity: opacity,
		})
		prev = opacity
	}

	return o
}

// pathFor emits the drawing commands for one series. An empty series renders
// nothing; a single sample renders as a full-width horizontal line so it
// stays visible; two or more samples connect as a polyline in input order.
func pathFor(samples []Sample, maxElapsed, maxValue float64, opts Options) string {
	switch len(samples) {
	case 0:
		return ""
	case 1:
		y := scaleY(samples[0].Value, maxValue, opts.Height)
		return fmt.Sprintf("M %s %s L %s %s", coord(0), coord(y), coord(opts.Width), coord(y))
	}

	var b strings.Builder
	for i, s := range samples {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		} else {
			b.WriteByte(' ')
		}
		x := s.ElapsedSeconds / maxElapsed * opts.Width
		fmt.Fprintf(&b, "%s %s %s", cmd, coord(x), coord(scaleY(s.Value, maxValue, opts.Height)))
	}
	return b.String()
}

// scaleY inverts the axis screen-style: value 0 sits at the bottom edge.
func scaleY(value, maxValue, height float64) float64 {
	return height - value/maxValue*height
}

func coord(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
