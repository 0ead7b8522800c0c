package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-line-login/internal/config"
	"github.com/jrsteele09/go-line-login/token"
)

// newMintTokenCmd prints a bearer token for exercising the /api/me guard.
func newMintTokenCmd() *cobra.Command {
	var (
		userID      string
		displayName string
		ttl         time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mint-token",
		Short: "Print a signed bearer token for a user id",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.New()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = c.GetBearerTTL()
			}
			raw, err := token.Issue(token.NewHMACSigner(c.GetJWTSecret()), userID, displayName, ttl)
			if err != nil {
				return fmt.Errorf("signing token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "provider user id to put in the token (required)")
	cmd.Flags().StringVar(&displayName, "display-name", "", "display name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to BEARER_TTL)")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
