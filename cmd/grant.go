package cmd

import (
	"fmt"

	"stampxl/models"
	"stampxl/services"

	"github.com/spf13/cobra"
)

const roleFlagName = "role"

func init() {
	rootCmd.AddCommand(grantCmd)
	grantCmd.Flags().String(roleFlagName, models.RoleCreator, "Role to grant")
}

var grantCmd = &cobra.Command{
	Use:   "grant <user-id>",
	Short: "Grant a role to an existing user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := cmd.Flags().GetString(roleFlagName)
		if err != nil {
			return err
		}
		_, log, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		if err := services.NewUserService(db, log).GrantRole(cmd.Context(), args[0], role); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "granted %q to %s\n", role, args[0])
		return nil
	},
}
