package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gcir/gms/internal/server"
	"github.com/gcir/gms/modules/proposals/services"
)

func newAllocateCmd() *cobra.Command {
	var (
		year        int
		department  string
		projectType string
	)

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Print the next GCIR code for a year, department and project type without reserving it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *server.Runtime) error {
				svc := rt.App.Service(services.ProposalService{}).(*services.ProposalService)
				code, err := svc.AllocateCode(ctx, year, department, projectType)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), code)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "Calendar year")
	cmd.Flags().StringVar(&department, "department", "", "Department code (required)")
	cmd.Flags().StringVar(&projectType, "type", "", "Project type code (required)")
	_ = cmd.MarkFlagRequired("department")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
