package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/complaint-workcenter/internal/auth"
	"github.com/spec-kit/complaint-workcenter/internal/config"
	"github.com/spec-kit/complaint-workcenter/internal/domain"
)

func newTokenCmd() *cobra.Command {
	var (
		agentID int64
		role    string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development bearer token for an agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if agentID <= 0 {
				return fmt.Errorf("--agent must be a positive id")
			}
			agentRole := domain.AgentRole(strings.ToUpper(role))
			if agentRole != domain.AgentRoleAgent && agentRole != domain.AgentRoleAdmin {
				return fmt.Errorf("unknown role %q", role)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
			token, expiresAt, err := tokens.GenerateToken(agentID, agentRole)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}
	cmd.Flags().Int64Var(&agentID, "agent", 0, "agent id carried in the token subject")
	cmd.Flags().StringVar(&role, "role", string(domain.AgentRoleAgent), "AGENT or ADMIN")
	return cmd
}
