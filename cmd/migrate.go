package cmd

import (
	"stampxl/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the schema and seed roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		if err := models.Migrate(db); err != nil {
			return err
		}
		log.Info("database migrated", zap.Int("roles", len(models.DefaultRoles)))
		return nil
	},
}
