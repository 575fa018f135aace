package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/gcir/gms/internal/server"
	"github.com/gcir/gms/modules/proposals/domain/aggregates/proposal"
	"github.com/gcir/gms/modules/proposals/presentation/controllers/dtos"
	"github.com/gcir/gms/modules/proposals/services"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Changelog reports",
	}
	cmd.AddCommand(newWeeklyReportCmd())
	return cmd
}

func newWeeklyReportCmd() *cobra.Command {
	var (
		weekStart string
		format    string
		out       string
	)

	cmd := &cobra.Command{
		Use:   "weekly",
		Short: "Render the changelog for the Monday to Sunday week containing --week-start",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", "json", "xlsx":
			default:
				return withCode(exitUsage, fmt.Errorf("unsupported --format %q (text, json or xlsx)", format))
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *server.Runtime) error {
				svc := rt.App.Service(services.ChangeLogService{}).(*services.ChangeLogService)
				loc := svc.Settings().Location
				day := time.Now().In(loc)
				if weekStart != "" {
					parsed, err := time.ParseInLocation(proposal.DateLayout, weekStart, loc)
					if err != nil {
						return withCode(exitUsage, fmt.Errorf("invalid --week-start %q: want YYYY-MM-DD", weekStart))
					}
					day = parsed
				}

				report, err := svc.WeeklyReport(ctx, day)
				if err != nil {
					return err
				}

				target := out
				if target == "" && format == "xlsx" {
					target = report.Filename("xlsx")
				}
				w, closeFn, err := openOutput(target)
				if err != nil {
					return withCode(exitUsage, err)
				}
				if err := renderReport(w, report, format); err != nil {
					_ = closeFn()
					return err
				}
				if err := closeFn(); err != nil {
					return err
				}
				if target != "" && target != "-" {
					fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d changes to %s\n", len(report.Entries), target)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&weekStart, "week-start", "", "Any day of the week, YYYY-MM-DD (defaults to the current week)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or xlsx")
	cmd.Flags().StringVar(&out, "out", "", "Output file (stdout when empty; xlsx defaults to the report filename)")
	return cmd
}

func renderReport(w io.Writer, report *services.WeeklyReport, format string) error {
	switch format {
	case "json":
		return writeJSON(w, dtos.WeeklyChangeLog{
			WeekStart: report.Start,
			WeekEnd:   report.End,
			Entries:   dtos.ChangeLogEntriesFrom(report.Entries),
		})
	case "xlsx":
		return report.WriteXLSX(w)
	default:
		return report.WriteText(w)
	}
}
