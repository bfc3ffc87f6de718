package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fixit/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations for the configured DB_DRIVER",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var (
			applied []string
			err     error
		)
		switch cfg.DBDriver {
		case "postgres":
			pool, openErr := database.Open(ctx, cfg)
			if openErr != nil {
				return openErr
			}
			defer pool.Close()
			applied, err = database.MigratePostgres(ctx, pool)
		case "sqlite":
			db, openErr := database.OpenSQLite(cfg.SQLitePath)
			if openErr != nil {
				return openErr
			}
			defer db.Close()
			applied, err = database.MigrateSQLite(ctx, db)
		default:
			return fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
		}
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		}
		for _, name := range applied {
			fmt.Fprintln(cmd.OutOrStdout(), "applied", name)
		}
		return nil
	},
}
