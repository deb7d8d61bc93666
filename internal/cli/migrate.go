package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nishant-jng/shopify-backend-sub000/pkg/database"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the portal tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			if err := database.Migrate(e.db, e.log); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date (%s)\n", ok("✓"), dim(e.cfg.DB.Host+"/"+e.cfg.DB.Name))
			return nil
		},
	}
}
