package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gcir/gms/internal/server"
	"github.com/gcir/gms/pkg/configuration"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gms",
		Short:         "GCIR grant management: proposals, codes and weekly changelog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newAllocateCmd())
	cmd.AddCommand(newReportCmd())
	return cmd
}

func Execute() {
	err := newRootCmd().Execute()
	configuration.Use().Unload()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitCode(err))
	}
}

// withRuntime bootstraps the application for a single command run.
func withRuntime(ctx context.Context, fn func(ctx context.Context, rt *server.Runtime) error) error {
	rt, err := server.Bootstrap(ctx, configuration.Use())
	if err != nil {
		return withCode(exitDB, err)
	}
	defer rt.Close()
	return fn(rt.Context(ctx), rt)
}
