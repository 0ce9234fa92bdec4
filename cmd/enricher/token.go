package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/octobees/contact-enricher/internal/auth"
)

var (
	tokenSubject string
	tokenRole    string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a service token for the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL).GenerateToken(tokenSubject, tokenRole)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "token subject, usually the calling service")
	tokenCmd.Flags().StringVar(&tokenRole, "role", auth.RoleService, "role claim (service or admin)")
	_ = tokenCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(tokenCmd)
}
