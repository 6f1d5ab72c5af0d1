package main

import (
	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the kiosk session",
		Long: `Notify the backend that the session is ending (best-effort) and remove
the locally stored session. Safe to run when already logged out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := resolveConfig()
			if err != nil {
				return err
			}

			logger := newLogger(cfg)
			ctx := cmd.Context()

			mgr, _ := buildSessionManager(ctx, cfg, logger)

			// Load whatever session exists so remote logout can be attempted.
			if err := mgr.RestoreAtStartup(ctx); err != nil {
				logger.Warn("restore before logout failed", "error", err.Error())
			}

			if err := mgr.Logout(ctx); err != nil {
				return err
			}

			statusf("Logged out\n")

			return nil
		},
	}
}
