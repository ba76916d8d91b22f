package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/barangay-rbi/registry/internal/shared/auth"
	"github.com/barangay-rbi/registry/internal/shared/config"
	"github.com/barangay-rbi/registry/internal/shared/types"
)

func newTokenCmd() *cobra.Command {
	var (
		name     string
		barangay string
		roles    string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed JWT for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			user := auth.User{
				ID:           types.NewID(),
				Name:         name,
				BarangayCode: barangay,
				Roles:        strings.Split(roles, ","),
			}
			now := time.Now()
			token, err := auth.IssueToken(cfg.Auth, user, jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "official's display name")
	f.StringVar(&barangay, "barangay", "", "barangay PSGC code the official belongs to")
	f.StringVar(&roles, "roles", auth.RoleEncoder, "comma-separated roles")
	f.DurationVar(&ttl, "ttl", 8*time.Hour, "token lifetime")
	return cmd
}
