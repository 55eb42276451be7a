package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexanderramin/tasktimer/internal/cli/formatter"
	"github.com/alexanderramin/tasktimer/internal/domain"
	"github.com/alexanderramin/tasktimer/internal/event"
	"github.com/alexanderramin/tasktimer/internal/i18n"
	"github.com/alexanderramin/tasktimer/internal/timer"
)

// TaskLoader fetches the watched task and reconciles the timer with its
// ledger. force bypasses cached snapshots.
type TaskLoader func(ctx context.Context, force bool) (*domain.Task, error)

type watchKeyMap struct {
	Start   key.Binding
	Pause   key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func defaultWatchKeys() watchKeyMap {
	return watchKeyMap{
		Start:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
		Pause:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Pause, k.Refresh, k.Quit}
}

func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

type (
	tickMsg         struct{ elapsed int64 }
	timerChangedMsg struct{}
	taskLoadedMsg   struct {
		task *domain.Task
		err  error
	}
	actionDoneMsg struct {
		verb   string
		result domain.TimerActionResult
	}
)

// watchModel shows one task's timer and lets the user start and pause it.
// The live counter is driven by a timer.Ticker; the displayed values are
// always read back from the Controller.
type watchModel struct {
	ctx    context.Context
	timer  timer.Controller
	load   TaskLoader
	msgs   *i18n.Messages
	ticker *timer.Ticker

	ticks   chan int64
	changes chan struct{}
	anchor  time.Time

	task    *domain.Task
	view    domain.TimerView
	pending bool
	flash   string
	notice  string
	loadErr error

	spinner spinner.Model
	help    help.Model
	keys    watchKeyMap
}

func newWatchModel(ctx context.Context, ctrl timer.Controller, load TaskLoader, msgs *i18n.Messages, ticker *timer.Ticker) watchModel {
	if msgs == nil {
		msgs = i18n.Default()
	}
	if ticker == nil {
		ticker = timer.NewTicker()
	}
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(formatter.StylePurple),
	)
	return watchModel{
		ctx:     ctx,
		timer:   ctrl,
		load:    load,
		msgs:    msgs,
		ticker:  ticker,
		ticks:   make(chan int64, 1),
		changes: make(chan struct{}, 1),
		view:    ctrl.View(),
		spinner: sp,
		help:    help.New(),
		keys:    defaultWatchKeys(),
	}
}

// notifyChanged is the event bus handler. It never blocks the publisher.
func (m watchModel) notifyChanged(event.TimerChanged) {
	m.wake()
}

// notifyInvalidated returns a cache invalidation listener that wakes the
// view when a key covering taskID goes stale.
func (m watchModel) notifyInvalidated(taskID string) func(domain.QueryKey) {
	watched := domain.TaskKey(taskID)
	return func(k domain.QueryKey) {
		if k.Matches(watched) {
			m.wake()
		}
	}
}

// wake queues one refetch; signals arriving before the view catches up
// coalesce.
func (m watchModel) wake() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m watchModel) onTick(elapsed int64) {
	select {
	case m.ticks <- elapsed:
	default:
	}
}

// Close stops the ticker goroutine.
func (m watchModel) Close() {
	m.ticker.Stop()
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(false), m.waitForTick(), m.waitForChange())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case taskLoadedMsg:
		m.loadErr = msg.err
		if msg.err == nil {
			m.task = msg.task
		}
		m = m.refresh()
		return m, nil

	case actionDoneMsg:
		m.pending = false
		if msg.result.Success {
			m.flash = "Timer " + msg.verb
		} else {
			m.notice = msg.result.ErrorReason
		}
		m = m.refresh()
		return m, nil

	case tickMsg:
		m = m.refresh()
		return m, m.waitForTick()

	case timerChangedMsg:
		return m, tea.Batch(m.loadCmd(false), m.waitForChange())

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.ticker.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Start):
		if m.busy() {
			return m, nil
		}
		if m.task != nil && !m.task.CanStartTimer() {
			m.notice = m.msgs.CannotStart(m.task.ID, m.task.Status)
			return m, nil
		}
		m.flash, m.notice = "", ""
		m.pending = true
		return m, tea.Batch(m.actionCmd("started", m.timer.Start), m.spinner.Tick)

	case key.Matches(msg, m.keys.Pause):
		if m.busy() {
			return m, nil
		}
		m.flash, m.notice = "", ""
		m.pending = true
		return m, tea.Batch(m.actionCmd("paused", m.timer.Pause), m.spinner.Tick)

	case key.Matches(msg, m.keys.Refresh):
		m.notice = ""
		return m, m.loadCmd(true)
	}
	return m, nil
}

// refresh reads the controller's view and keeps the ticker in step with it:
// running when the view runs, restarted when the anchor moves.
func (m watchModel) refresh() watchModel {
	m.view = m.timer.View()

	anchor, ok := m.timer.Anchor()
	if !ok {
		m.ticker.Stop()
		m.anchor = time.Time{}
		return m
	}
	if !anchor.Equal(m.anchor) {
		m.ticker.Stop()
		m.anchor = anchor
	}
	m.ticker.Start(anchor, m.onTick)
	return m
}

func (m watchModel) busy() bool {
	return m.pending || m.timer.IsTransitioning()
}

func (m watchModel) state() domain.TimerState {
	switch {
	case m.busy():
		return domain.TimerTransitioning
	case m.view.IsRunning:
		return domain.TimerRunning
	default:
		return domain.TimerStopped
	}
}

func (m watchModel) loadCmd(force bool) tea.Cmd {
	ctx, load := m.ctx, m.load
	return func() tea.Msg {
		task, err := load(ctx, force)
		return taskLoadedMsg{task: task, err: err}
	}
}

func (m watchModel) actionCmd(verb string, act func(context.Context) domain.TimerActionResult) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{verb: verb, result: act(ctx)}
	}
}

func (m watchModel) waitForTick() tea.Cmd {
	ticks := m.ticks
	return func() tea.Msg {
		return tickMsg{elapsed: <-ticks}
	}
}

func (m watchModel) waitForChange() tea.Cmd {
	changes := m.changes
	return func() tea.Msg {
		<-changes
		return timerChangedMsg{}
	}
}

func (m watchModel) View() string {
	var b strings.Builder

	if m.task != nil {
		title := m.task.Title
		if title == "" {
			title = m.task.ID
		}
		b.WriteString(formatter.Bold(title) + "  " + formatter.TruncID(m.task.ID) + "\n")
		b.WriteString(formatter.TaskStatusPill(m.task.Status) + "  ")
	}
	b.WriteString(formatter.TimerStatePill(m.state()) + "\n\n")

	live := formatter.Dim(formatter.FormatSeconds(0))
	if m.view.IsRunning {
		live = formatter.StyleClock.Render(formatter.FormatSeconds(m.view.LiveElapsedSeconds))
	}
	b.WriteString(fmt.Sprintf("  %s  %s\n", formatter.Dim("SESSION  "), live))
	b.WriteString(fmt.Sprintf("  %s  %s\n", formatter.Dim("COMPLETED"), formatter.FormatSeconds(m.view.TotalCompletedSeconds)))
	b.WriteString(fmt.Sprintf("  %s  %s", formatter.Dim("TOTAL    "), formatter.Bold(formatter.FormatSeconds(m.view.TotalSeconds()))))

	out := formatter.RenderBox("Timer", b.String()) + "\n"

	if m.busy() {
		out += m.spinner.View() + " " + formatter.Dim("Updating timer...") + "\n"
	}
	if m.flash != "" {
		out += formatter.StyleGreen.Render(m.flash) + "\n"
	}
	if m.notice != "" {
		out += formatter.Error(m.notice) + "\n"
	}
	if m.loadErr != nil {
		out += formatter.Error(m.loadErr.Error()) + "\n"
	}
	out += m.help.View(m.keys)
	return out
}
