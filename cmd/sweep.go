package cmd

import (
	"fmt"

	"stampxl/repositories"
	"stampxl/services"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reject pending trades whose badges have changed hands, once",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		engine := services.NewTradeEngine(repositories.NewTradeRepository(db), log)
		n, err := engine.SweepStale(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rejected %d stale trade(s)\n", n)
		return nil
	},
}
