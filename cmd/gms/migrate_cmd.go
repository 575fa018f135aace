package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/gcir/gms/internal/server"
	"github.com/gcir/gms/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the database schema",
	}
	cmd.AddCommand(
		migrateSubcommand("up", "Apply pending migrations", func(ctx context.Context, rt *server.Runtime, _ io.Writer) error {
			return rt.App.Migrations().Up(ctx, rt.Conf.Database.Opts)
		}),
		migrateSubcommand("down", "Roll back the latest migration", func(ctx context.Context, rt *server.Runtime, _ io.Writer) error {
			return rt.App.Migrations().Down(ctx, rt.Conf.Database.Opts)
		}),
		migrateSubcommand("status", "List migrations and whether they are applied", func(ctx context.Context, rt *server.Runtime, out io.Writer) error {
			statuses, err := rt.App.Migrations().Status(ctx, rt.Conf.Database.Opts)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				fmt.Fprintf(out, "%-40s %05d %s\n", s.Source, s.Version, state)
			}
			return nil
		}),
	)
	return cmd
}

func migrateSubcommand(use, short string, run func(ctx context.Context, rt *server.Runtime, out io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configuration.Use().Store != configuration.StorePostgres {
				return withCode(exitUsage, errors.New("migrations require GMS_STORE=postgres"))
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *server.Runtime) error {
				if err := run(ctx, rt, cmd.OutOrStdout()); err != nil {
					return withCode(exitDB, errors.Wrapf(err, "migrate %s", use))
				}
				return nil
			})
		},
	}
}
