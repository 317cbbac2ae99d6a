package app

import (
	"context"
	"fmt"
	"os"

	"epochwatch/internal/lookup"
)

// Lookup fetches one snapshot and resolves a single address against its
// identity lookup rows.
func (a *App) Lookup(ctx context.Context, opts LookupOptions) error {
	snap, err := a.fetchOnce(ctx)
	if err != nil {
		return err
	}

	res := lookup.Resolve(opts.Address, snap.Leaderboard.IdentityLookup)
	switch res.State {
	case lookup.StateNone:
		fmt.Fprintln(os.Stdout, "no address provided")
	case lookup.StateInvalid:
		fmt.Fprintf(os.Stdout, "%s is not a valid address (expected 0x followed by 40 hex characters)\n", res.Query)
	case lookup.StateNotFound:
		fmt.Fprintf(os.Stdout, "%s is not ranked in epoch %d\n", res.Query, snap.Epoch)
	case lookup.StateFound:
		row := res.Identity
		fmt.Fprintf(os.Stdout, "address: %s\n", row.Address)
		fmt.Fprintf(os.Stdout, "rank: %d\n", row.Rank)
		fmt.Fprintf(os.Stdout, "grade score: %.2f\n", row.TotalGradeScore)
		fmt.Fprintf(os.Stdout, "flips: %d\n", row.FlipCount)
		fmt.Fprintf(os.Stdout, "avg grade score: %.2f\n", row.AvgGradeScore)
		fmt.Fprintf(os.Stdout, "best flip score: %.2f\n", row.MaxFlipGradeScore)
		if row.ScanURL != "" {
			fmt.Fprintf(os.Stdout, "scan url: %s\n", row.ScanURL)
		}
	}

	return nil
}
