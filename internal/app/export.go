package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	gochart "github.com/wcharczuk/go-chart/v2"

	"epochwatch/internal/chart"
	"epochwatch/internal/snapshot"
)

// epochSeries is one epoch's sampled progress line, ready for export.
type epochSeries struct {
	Epoch   int64
	Samples []chart.Sample
}

// Export fetches one snapshot and writes its progress series as CSV and/or a
// PNG chart. Every series shares the elapsed-seconds axis, so completed
// epochs overlay the running one the same way the live chart draws them.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	metric, ok := chart.MetricByName(opts.Metric)
	if !ok {
		return fmt.Errorf("unknown metric %q; use flips or authors", opts.Metric)
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	snap, err := a.fetchOnce(ctx)
	if err != nil {
		return err
	}

	series := collectSeries(snap, metric, opts.MaxPoints)
	total := 0
	for _, s := range series {
		total += len(s.Samples)
	}
	if total == 0 {
		a.Logger.Info().Msg("snapshot carries no plottable progress points")
		return nil
	}

	a.Logger.Info().Int64("epoch", snap.Epoch).Int("points", total).Msg("exporting progress series")

	if opts.CSVPath != "" {
		if err := writeSeriesCSV(opts.CSVPath, series); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSeriesPNG(opts.PNGPath, series); err != nil {
			return err
		}
	}

	return nil
}

func collectSeries(snap *snapshot.Snapshot, metric chart.Metric, maxPoints int) []epochSeries {
	out := make([]epochSeries, 0, 1+len(snap.Progress.Previous))
	out = append(out, epochSeries{
		Epoch:   snap.Progress.Current.Epoch,
		Samples: downsample(chart.Samples(snap.Progress.Current, metric), maxPoints),
	})
	for _, prev := range snap.Progress.Previous {
		out = append(out, epochSeries{
			Epoch:   prev.Epoch,
			Samples: downsample(chart.Samples(prev, metric), maxPoints),
		})
	}
	return out
}

func downsample(samples []chart.Sample, max int) []chart.Sample {
	if max <= 0 || len(samples) <= max {
		return samples
	}

	result := make([]chart.Sample, 0, max)
	step := float64(len(samples)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(samples) {
			idx = len(samples) - 1
		}
		result = append(result, samples[idx])
	}
	return result
}

func writeSeriesCSV(path string, series []epochSeries) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"epoch", "elapsed_seconds", "value"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, s := range series {
		epoch := strconv.FormatInt(s.Epoch, 10)
		for _, sample := range s.Samples {
			record := []string{
				epoch,
				strconv.FormatFloat(sample.ElapsedSeconds, 'f', 0, 64),
				strconv.FormatFloat(sample.Value, 'f', -1, 64),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	return writer.Error()
}

func writeSeriesPNG(path string, series []epochSeries) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	graphSeries := make([]gochart.Series, 0, len(series))
	for _, s := range series {
		if len(s.Samples) < 2 {
			continue
		}
		x := make([]float64, len(s.Samples))
		y := make([]float64, len(s.Samples))
		for i, sample := range s.Samples {
			x[i] = sample.ElapsedSeconds
			y[i] = sample.Value
		}
		graphSeries = append(graphSeries, gochart.ContinuousSeries{
			Name:    fmt.Sprintf("Epoch %d", s.Epoch),
			XValues: x,
			YValues: y,
		})
	}
	if len(graphSeries) == 0 {
		return errors.New("no series has enough points to chart")
	}

	graph := gochart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: gochart.XAxis{
			Name: "Seconds since epoch start",
		},
		Series: graphSeries,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(gochart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
