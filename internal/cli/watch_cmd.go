package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/alexanderramin/tasktimer/internal/cli/formatter"
	"github.com/alexanderramin/tasktimer/internal/domain"
	"github.com/alexanderramin/tasktimer/internal/timer"
)

var errTaskIDRequired = errors.New("task id is required")

func newWatchCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [ID]",
		Short: "Live view of a task timer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var taskID string
			if len(args) == 1 {
				taskID = args[0]
			}
			if taskID == "" {
				if !a.interactive() {
					return errTaskIDRequired
				}
				id, err := promptTaskID()
				if err != nil {
					return err
				}
				taskID = id
			}
			return a.watch(cmd, taskID)
		},
	}
}

func (a *App) watch(cmd *cobra.Command, taskID string) error {
	ctx := cmd.Context()
	svc := a.svc

	m := newWatchModel(ctx, svc.Gateway.Timer(taskID), a.taskLoader(taskID), svc.Msgs,
		timer.NewTicker(timer.WithTickInterval(svc.Config.TickInterval()), timer.WithTickerClock(svc.Now)))
	defer m.Close()

	unsubscribe := svc.Bus.Subscribe(m.notifyChanged)
	defer unsubscribe()
	stopListening := svc.Cache.OnInvalidate(m.notifyInvalidated(taskID))
	defer stopListening()
	defer svc.Gateway.Forget(taskID)

	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running watch view: %w", err)
	}
	return nil
}

// taskLoader reads taskID through the cache and reconciles the gateway with
// the fetched ledger.
func (a *App) taskLoader(taskID string) TaskLoader {
	svc := a.svc
	return func(ctx context.Context, force bool) (*domain.Task, error) {
		fetch := svc.Cache.Task
		if force {
			fetch = svc.Cache.Refresh
		}
		task, err := fetch(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("fetching task %s: %w", taskID, err)
		}
		svc.Gateway.Sync(task.ID, task.TimeLogs)
		return task, nil
	}
}

func promptTaskID() (string, error) {
	var id string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Task ID").
				Placeholder("e.g. 42").
				Value(&id).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errTaskIDRequired
					}
					return nil
				}),
		),
	).WithTheme(tasktimerHuhTheme()).WithShowHelp(false)

	if err := form.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(id), nil
}

// tasktimerHuhTheme returns a huh theme matching the formatter palette.
func tasktimerHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.ErrorMessage = lipgloss.NewStyle().Foreground(formatter.ColorRed)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}
