package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/outstaff/outstaff/internal/config"
	"github.com/outstaff/outstaff/internal/db"
)

type configLoader func() (*config.Config, error)

// connectDB opens the configured database
func connectDB(cfg *config.Config) (*sql.DB, error) {
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, nil
}

func migrateCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate <up|down>",
		Short:     "Apply or roll back schema migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runMigrations(cmd, cfg, args[0])
		},
	}
	cmd.AddCommand(migrateForceCmd(load))
	return cmd
}

// migrateForceCmd clears a dirty schema after an interrupted migration so the
// next serve or migrate run can retry it.
func migrateForceCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Mark a schema version as applied and clear the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil || version < 0 {
				return fmt.Errorf("invalid migration version %q", args[0])
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			database, err := connectDB(cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			before, dirty, err := db.GetMigrationVersion(database)
			if err != nil {
				return err
			}
			slog.Info("forcing migration version", "from", before, "dirty", dirty, "to", version)
			if err := db.ForceMigrationVersion(database, version); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migration version forced to %d (was %d, dirty: %v)\n", version, before, dirty)
			return nil
		},
	}
}

func runMigrations(cmd *cobra.Command, cfg *config.Config, direction string) error {
	database, err := connectDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	slog.Info("running migrations", "direction", direction)
	if err := db.RunMigrations(database, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Migration completed. Current version: %d (dirty: %v)\n", version, dirty)
	return nil
}

// initDBCmd creates every missing table. Running it again is harmless.
func initDBCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the database schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			database, err := connectDB(cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.Init(database); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database initialized.")
			return nil
		},
	}
}
