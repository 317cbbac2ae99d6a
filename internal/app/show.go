package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"epochwatch/internal/countdown"
)

// Show fetches one snapshot and prints the epoch summary plus the grade
// leaderboard.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	snap, err := a.fetchOnce(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	validation := countdown.Until(snap.Session.NextValidationTime, now)
	refresh := countdown.Until(snap.Progress.NextRefreshAt, now)

	fmt.Fprintf(os.Stdout, "epoch: %d\n", snap.Epoch)
	fmt.Fprintf(os.Stdout, "flips seen: %d\n", snap.Counts.FlipsSeen)
	fmt.Fprintf(os.Stdout, "unique authors: %d\n", snap.Counts.UniqueAuthors)
	fmt.Fprintf(os.Stdout, "next validation: %s\n", countdownLabel(validation))
	fmt.Fprintf(os.Stdout, "next refresh: %s\n", countdownLabel(refresh))
	if snap.Note != "" {
		fmt.Fprintf(os.Stdout, "note: %s\n", sanitizeInline(snap.Note))
	}

	rows := snap.Leaderboard.TopIdentities
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "no ranked identities in this snapshot")
		return nil
	}

	fmt.Fprintln(os.Stdout)
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Rank\tAddress\tGrade Score\tFlips\tAvg\tBest Flip")

	for _, row := range rows {
		fmt.Fprintf(
			writer,
			"%d\t%s\t%.2f\t%d\t%.2f\t%.2f\n",
			row.Rank,
			row.Address,
			row.TotalGradeScore,
			row.FlipCount,
			row.AvgGradeScore,
			row.MaxFlipGradeScore,
		)
	}

	return writer.Flush()
}

func countdownLabel(cd countdown.Countdown) string {
	switch cd.State {
	case countdown.StatePending:
		return cd.Label
	case countdown.StateElapsed:
		return "elapsed"
	default:
		return "unavailable"
	}
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
