package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/tasktimer/internal/cli/formatter"
	"github.com/alexanderramin/tasktimer/internal/domain"
)

// ActionError is returned when the gateway reports a failed transition.
// Its message is the localized reason shown to the user.
type ActionError struct {
	Result domain.TimerActionResult
}

func (e *ActionError) Error() string { return e.Result.ErrorReason }

func newStartCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "start ID",
		Short: "Start the timer of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAction(cmd, args[0], true)
		},
	}
}

func newPauseCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pause ID",
		Short: "Pause the running timer of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAction(cmd, args[0], false)
		},
	}
}

func newStatusCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status ID",
		Short: "Show the timer of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := a.svc.Cache.Task(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetching task %s: %w", args[0], err)
			}
			a.svc.Gateway.Sync(task.ID, task.TimeLogs)
			a.printTimer(cmd.OutOrStdout(), task)
			return nil
		},
	}
}

// runAction refetches the task, checks whether it may start, reconciles the
// gateway with the fresh ledger and performs the transition.
func (a *App) runAction(cmd *cobra.Command, taskID string, start bool) error {
	ctx := cmd.Context()
	svc := a.svc

	task, err := svc.Cache.Refresh(ctx, taskID)
	if err != nil {
		return fmt.Errorf("fetching task %s: %w", taskID, err)
	}
	if start && !task.CanStartTimer() {
		return errors.New(svc.Msgs.CannotStart(task.ID, task.Status))
	}
	svc.Gateway.Sync(task.ID, task.TimeLogs)

	verb, act := "paused", svc.Gateway.Pause
	if start {
		verb, act = "started", svc.Gateway.Start
	}
	res := a.withSpinner(cmd.ErrOrStderr(), "Updating timer...", func() domain.TimerActionResult {
		return act(ctx, task.ID)
	})
	if !res.Success {
		return &ActionError{Result: res}
	}

	// The transition invalidated the snapshot; a failed refetch still
	// leaves the confirmed gateway state to print.
	if fresh, err := svc.Cache.Task(ctx, task.ID); err == nil {
		task = fresh
		svc.Gateway.Sync(task.ID, task.TimeLogs)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, formatter.FormatActionResult(verb, res))
	a.printTimer(out, task)
	return nil
}

// printTimer renders the gateway's current view of task.
func (a *App) printTimer(w io.Writer, task *domain.Task) {
	gw := a.svc.Gateway
	fmt.Fprintln(w, formatter.FormatTimer(task, gw.View(task.ID), gw.State(task.ID)))
}

func (a *App) withSpinner(w io.Writer, msg string, fn func() domain.TimerActionResult) domain.TimerActionResult {
	if !a.interactive() {
		return fn()
	}
	stop := formatter.StartSpinner(w, msg)
	defer stop()
	return fn()
}
