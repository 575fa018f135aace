package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gcir/gms/internal/server"
	"github.com/gcir/gms/modules/proposals/seed"
	"github.com/gcir/gms/modules/proposals/services"
	"github.com/gcir/gms/pkg/configuration"
)

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert departments, project types, funding agencies and internal investigators",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.Load(file)
			if err != nil {
				return withCode(exitUsage, err)
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *server.Runtime) error {
				if rt.Conf.Store == configuration.StoreMemory {
					rt.Logger.Warn("seed: GMS_STORE=memory, seeded rows are discarded on exit")
				}
				seeder := seed.NewSeeder(
					rt.App.Service(services.LookupService{}).(*services.LookupService),
					rt.App.Service(services.InvestigatorService{}).(*services.InvestigatorService),
					rt.Logger,
				)
				res, err := seeder.Apply(ctx, f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d lookups and %d investigators from %s\n",
					res.Lookups, res.Investigators, file)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Seed file (.yaml, .yml or .toml)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
