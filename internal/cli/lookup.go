package cli

import (
	"github.com/spf13/cobra"

	"epochwatch/internal/app"
)

var (
	lookupAddress string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Resolve an address against the current leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.LookupOptions{
			Address: lookupAddress,
		}

		return getApp().Lookup(cmd.Context(), opts)
	},
}

func init() {
	lookupCmd.Flags().StringVar(&lookupAddress, "address", "", "Address to look up (0x-prefixed)")
}
