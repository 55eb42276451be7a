package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/tasktimer/internal/cli/formatter"
	"github.com/alexanderramin/tasktimer/internal/domain"
)

func newListCmd(a *App) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks with their tracked time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if refresh {
				if err := a.svc.Cache.Invalidate(ctx, domain.TasksKey()); err != nil {
					return err
				}
			}
			tasks, err := a.svc.Cache.Tasks(ctx)
			if err != nil {
				return fmt.Errorf("listing tasks: %w", err)
			}

			lines := make([]formatter.TaskLine, 0, len(tasks))
			for _, t := range tasks {
				lines = append(lines, formatter.TaskLine{
					Task: t,
					View: a.svc.Gateway.Sync(t.ID, t.TimeLogs),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTaskList(lines, a.now()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore cached snapshots")

	return cmd
}

func newDashboardCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summarize tracked time across all tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.svc.Cache.Dashboard(cmd.Context())
			if err != nil {
				return fmt.Errorf("building dashboard: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatDashboard(d))
			return nil
		},
	}
}
