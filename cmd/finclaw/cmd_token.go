package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/finclaw/internal/api"
	"github.com/user/finclaw/internal/types"
)

var tokenTTL time.Duration

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token <advisor-id>",
	Short: "Mint an API access token for an advisor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if cfg.HTTP.JWTSecret == "" {
			return fmt.Errorf("http.jwt_secret is required (or set JWT_SECRET)")
		}

		owner, err := types.ParseOwnerID(args[0])
		if err != nil {
			return fmt.Errorf("invalid advisor id: %w", err)
		}

		token, err := api.NewAccessToken(owner, cfg.HTTP.JWTSecret, tokenTTL)
		if err != nil {
			return fmt.Errorf("mint token: %w", err)
		}
		fmt.Println(token)
		return nil
	},
}
