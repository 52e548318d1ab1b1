package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/outstaff/outstaff/internal/auth"
	"github.com/outstaff/outstaff/internal/db"
)

// checkDBCmd verifies connectivity and prints the schema version and a row
// count per core table. It exits non-zero on any failure so deploy pipelines
// can gate on it.
func checkDBCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "check-db",
		Short: "Check database connectivity and summarize its contents",
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

			version, dirty, err := db.GetMigrationVersion(database)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			counts, err := db.TableCounts(ctx, database)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Schema version: %d (dirty: %v)\n", version, dirty)
			return writeTableCounts(out, counts)
		},
	}
}

func writeTableCounts(w io.Writer, counts []db.TableCount) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tROWS")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Table, c.Rows)
	}
	return tw.Flush()
}

// hashPasswordCmd prints the bcrypt hash stored in users.password_hash. It is
// used to seed or reset accounts directly in the database. The password is
// read from stdin so it stays out of shell history.
func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password from stdin and print its bcrypt hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("failed to read password: %w", err)
			}
			hash, err := auth.HashPassword(strings.TrimRight(line, "\r\n"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
