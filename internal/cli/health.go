package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the server is up and whether a session is saved",
		RunE: func(cmd *cobra.Command, args []string) error {
			result := HealthResult{
				Server:   cfg.ServerURL,
				LoggedIn: cfg.Token != "",
			}
			if err := client.Get(cmd.Context(), "/api/v1/health", &result); err != nil {
				return fmt.Errorf("server %s unreachable: %w", cfg.ServerURL, err)
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			if result.Status != "ok" {
				return fmt.Errorf("server %s reports status %q", cfg.ServerURL, result.Status)
			}
			return nil
		},
	}
}
