package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/tasktimer/internal/domain"
	"github.com/alexanderramin/tasktimer/internal/query"
)

// TaskLine pairs a task with its derived timer view for list rendering.
type TaskLine struct {
	Task *domain.Task
	View domain.TimerView
}

// FormatTimer renders one task's timer as a boxed card.
func FormatTimer(task *domain.Task, view domain.TimerView, state domain.TimerState) string {
	var b strings.Builder

	title := task.Title
	if title == "" {
		title = task.ID
	}
	b.WriteString(Bold(title) + "  " + TruncID(task.ID) + "\n")
	b.WriteString(TaskStatusPill(task.Status) + "  " + TimerStatePill(state) + "\n\n")

	live := Dim(FormatSeconds(0))
	if view.IsRunning {
		live = StyleClock.Render(FormatSeconds(view.LiveElapsedSeconds))
	}
	b.WriteString(fmt.Sprintf("  %s  %s\n", StyleDim.Render("SESSION  "), live))
	b.WriteString(fmt.Sprintf("  %s  %s\n", StyleDim.Render("COMPLETED"), StyleFg.Render(FormatSeconds(view.TotalCompletedSeconds))))
	b.WriteString(fmt.Sprintf("  %s  %s", StyleDim.Render("TOTAL    "), Bold(FormatSeconds(view.TotalSeconds()))))

	return RenderBox("Timer", b.String())
}

// FormatTaskList renders tasks as a table with their tracked time.
func FormatTaskList(lines []TaskLine, now time.Time) string {
	if len(lines) == 0 {
		return Dim("No tasks.") + "\n"
	}

	headers := []string{"ID", "TITLE", "STATUS", "TIMER", "TRACKED", "UPDATED"}
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []string{
			TruncID(l.Task.ID),
			Bold(l.Task.Title),
			TaskStatusPill(l.Task.Status),
			ViewPill(l.View),
			FormatSeconds(l.View.TotalSeconds()),
			Dim(HumanTimestampFrom(l.Task.UpdatedAt, now)),
		})
	}
	return RenderTable(headers, rows)
}

// FormatDashboard renders the aggregate summary.
func FormatDashboard(d query.Dashboard) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("  %s  %d\n", StyleDim.Render("TASKS    "), d.Tasks))
	running := StyleDim.Render("0")
	if d.Running > 0 {
		running = StyleGreen.Render(fmt.Sprintf("%d", d.Running))
	}
	b.WriteString(fmt.Sprintf("  %s  %s\n", StyleDim.Render("RUNNING  "), running))
	b.WriteString(fmt.Sprintf("  %s  %s\n", StyleDim.Render("TRACKED  "), Bold(FormatSeconds(d.TotalSeconds()))))

	finished := d.ByStatus[domain.TaskDone] + d.ByStatus[domain.TaskClosed]
	pct := 0.0
	if d.Tasks > 0 {
		pct = float64(finished) / float64(d.Tasks)
	}
	b.WriteString(fmt.Sprintf("  %s  %s\n\n", StyleDim.Render("FINISHED "), RenderProgress(pct, 10)))

	b.WriteString(Header("By status") + "\n")
	for _, s := range []domain.TaskStatus{domain.TaskTodo, domain.TaskInProgress, domain.TaskDone, domain.TaskClosed} {
		b.WriteString(fmt.Sprintf("  %s  %d\n", TaskStatusPill(s), d.ByStatus[s]))
	}

	return RenderBox("Dashboard", strings.TrimRight(b.String(), "\n"))
}

// FormatActionResult renders the outcome of a start or pause.
func FormatActionResult(verb string, res domain.TimerActionResult) string {
	if res.Success {
		return StyleGreen.Render("✔ Timer "+verb) + "\n"
	}
	return Error("✖ "+res.ErrorReason) + "\n"
}
