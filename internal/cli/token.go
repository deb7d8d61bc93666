package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nishant-jng/shopify-backend-sub000/pkg/config"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/jwtutil"
)

// TokenCmd returns the command that mints back-office tokens
func TokenCmd() *cobra.Command {
	var email, name, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an admin token for the back-office routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != jwtutil.RoleAdmin && role != jwtutil.RoleMerchant {
				return fmt.Errorf("unknown role %q (want %s or %s)", role, jwtutil.RoleAdmin, jwtutil.RoleMerchant)
			}
			cfg := config.FromEnv()
			token, err := jwtutil.New(&cfg.JWT).GenerateToken(email, name, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Operator email (required)")
	cmd.Flags().StringVar(&name, "name", "", "Operator display name")
	cmd.Flags().StringVar(&role, "role", jwtutil.RoleAdmin, "Token role")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
