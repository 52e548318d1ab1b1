// @title           Outstaff API
// @version         1.0.0
// @description     Multi-tenant workforce management: organizations, memberships, invitations, timesheets with approvals, certificates, notes, expenses and leave.
// @basePath        /
// @schemes         http https
// @securityDefinitions.apiKey  Bearer
// @in                          header
// @name                         Authorization
// @description                  "JWT bearer token: 'Bearer {token}'"
//
// @tag.name         System
// @tag.description  Health, readiness and version endpoints.
//
// @tag.name         Observability
// @tag.description  Prometheus metrics and pprof are served on dedicated side ports, never through the API router. Configure them with OUTSTAFF_TELEMETRY_METRICS_PROMETHEUS_PORT and OUTSTAFF_TELEMETRY_PROFILING_PORT.

// Package main is the entry point for the outstaff server binary. Subcommands:
// serve (default), migrate up|down|force, init-db, check-db, hash-password and
// version. serve runs migrations on startup so a fresh deployment needs no
// separate schema step.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/outstaff/outstaff/internal/api"
	"github.com/outstaff/outstaff/internal/config"

	// Import storage backends to register them
	_ "github.com/outstaff/outstaff/internal/storage/azure"
	_ "github.com/outstaff/outstaff/internal/storage/gcs"
	_ "github.com/outstaff/outstaff/internal/storage/local"
	_ "github.com/outstaff/outstaff/internal/storage/s3"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. serve is also the default action.
func newRootCmd() *cobra.Command {
	var configPath string

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	root := &cobra.Command{
		Use:           "outstaff",
		Short:         "Outstaff workforce management backend",
		Version:       api.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"),
		"path to config.yaml (defaults to $CONFIG_PATH, then ./config.yaml, ./config/ and /etc/outstaff/)")

	root.AddCommand(
		serveCmd(loadConfig, &configPath),
		migrateCmd(loadConfig),
		initDBCmd(loadConfig),
		checkDBCmd(loadConfig),
		hashPasswordCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Outstaff v%s\n", api.Version)
		},
	}
}
