package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"seatrotation/config"
	"seatrotation/internal/migrate"
)

func newMigrateCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				files, err := migrate.Files()
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StoreDriver != config.StoreDriverPostgres {
				return errors.New("migrate requires STORE_DRIVER=postgres")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			db, err := openDB(ctx, cfg.DBUrl)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := migrate.Up(ctx, db)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
				return nil
			}
			for _, f := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list embedded migrations without touching the database")
	return cmd
}
