package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/booking-engine/api"
)

func tokenCmd() *cobra.Command {
	var subject string
	var role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for staff or admin endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET must be set to the server's secret")
			}
			if err := requireFlag("subject", subject); err != nil {
				return err
			}
			raw, err := api.NewAuth(cfg.JWTSecret).IssueToken(subject, role, ttl)
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(map[string]string{"token": raw, "role": role})
			}
			fmt.Println(raw)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Token subject (staff member)")
	cmd.Flags().StringVar(&role, "role", api.RoleStaff, "Role: staff or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	return cmd
}
