package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/tasktimer/internal/app"
	"github.com/alexanderramin/tasktimer/internal/config"
)

type backendLog struct {
	ID    string     `json:"id"`
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end"`
}

type backendTask struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Status   string       `json:"status"`
	TimeLogs []backendLog `json:"timeLogs"`
}

// fakeBackend serves the task API from memory.
type fakeBackend struct {
	mu          sync.Mutex
	tasks       map[string]*backendTask
	order       []string
	starts      int
	pauses      int
	startStatus int
	pauseStatus int
}

func newFakeBackend(tasks ...*backendTask) *fakeBackend {
	b := &fakeBackend{tasks: make(map[string]*backendTask)}
	for _, t := range tasks {
		b.tasks[t.ID] = t
		b.order = append(b.order, t.ID)
	}
	return b
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tasks", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		out := make([]*backendTask, 0, len(b.order))
		for _, id := range b.order {
			out = append(out, b.tasks[id])
		}
		writeJSON(w, out)
	})
	mux.HandleFunc("GET /tasks/task/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		t, ok := b.tasks[r.PathValue("id")]
		if !ok {
			http.Error(w, "no such task", http.StatusNotFound)
			return
		}
		writeJSON(w, t)
	})
	mux.HandleFunc("GET /tasks/start/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.starts++
		if b.startStatus != 0 {
			http.Error(w, "start refused", b.startStatus)
			return
		}
		t := b.tasks[r.PathValue("id")]
		t.Status = "in_progress"
		t.TimeLogs = append(t.TimeLogs, backendLog{ID: "log-new", Start: time.Now().UTC()})
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /tasks/pause/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.pauses++
		if b.pauseStatus != 0 {
			http.Error(w, "pause refused", b.pauseStatus)
			return
		}
		t := b.tasks[r.PathValue("id")]
		now := time.Now().UTC()
		for i := range t.TimeLogs {
			if t.TimeLogs[i].End == nil {
				t.TimeLogs[i].End = &now
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func (b *fakeBackend) counts() (starts, pauses int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.starts, b.pauses
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func closedLog(id string, start time.Time, d time.Duration) backendLog {
	end := start.Add(d)
	return backendLog{ID: id, Start: start, End: &end}
}

// testApp wires a full App against an httptest backend and an in-memory
// snapshot database.
func testApp(t *testing.T, b *fakeBackend) *App {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.API.Endpoint = srv.URL
	cfg.API.Token = "test-token"
	cfg.API.MaxRetries = 0
	a := &App{
		Config: cfg,
		Open:   func(cfg config.Config) (*app.Services, error) { return app.Wire(cfg) },
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// executeCmd runs a cobra command and captures stdout/stderr.
func executeCmd(t *testing.T, a *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(a)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return plain(buf.String()), err
}

func TestStartCmd_StartsTimer(t *testing.T) {
	b := newFakeBackend(&backendTask{ID: "t1", Title: "Write report", Status: "todo"})
	a := testApp(t, b)

	out, err := executeCmd(t, a, "start", "t1")

	require.NoError(t, err)
	assert.Contains(t, out, "Timer started")
	assert.Contains(t, out, "Write report")
	assert.Contains(t, out, "Running")
	starts, _ := b.counts()
	assert.Equal(t, 1, starts)
}

func TestStartCmd_RejectsFinishedTask(t *testing.T) {
	b := newFakeBackend(&backendTask{ID: "t1", Title: "Shipped", Status: "done"})
	a := testApp(t, b)

	_, err := executeCmd(t, a, "start", "t1")

	require.Error(t, err)
	assert.Equal(t, "Task t1 cannot be started (status done)", err.Error())
	starts, _ := b.counts()
	assert.Zero(t, starts, "backend is not called for a finished task")
}

func TestStartCmd_UnknownTask(t *testing.T) {
	a := testApp(t, newFakeBackend())

	_, err := executeCmd(t, a, "start", "missing")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching task missing")
}

func TestPauseCmd_PausesRunningTimer(t *testing.T) {
	started := time.Now().UTC().Add(-2 * time.Minute)
	b := newFakeBackend(&backendTask{
		ID: "t1", Title: "Write report", Status: "in_progress",
		TimeLogs: []backendLog{{ID: "l1", Start: started}},
	})
	a := testApp(t, b)

	out, err := executeCmd(t, a, "pause", "t1")

	require.NoError(t, err)
	assert.Contains(t, out, "Timer paused")
	assert.Contains(t, out, "Stopped")
	assert.Contains(t, out, "02:0", "two minutes folded into the total")
}

func TestPauseCmd_BackendFailureReturnsLocalizedError(t *testing.T) {
	b := newFakeBackend(&backendTask{
		ID: "t1", Title: "Write report", Status: "in_progress",
		TimeLogs: []backendLog{{ID: "l1", Start: time.Now().UTC().Add(-time.Minute)}},
	})
	b.pauseStatus = http.StatusInternalServerError
	a := testApp(t, b)

	_, err := executeCmd(t, a, "pause", "t1")

	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "Failed to pause timer: rejected by server", err.Error())
	_, pauses := b.counts()
	assert.Equal(t, 1, pauses, "pause is sent exactly once")
}

func TestPauseCmd_LocaleFlag(t *testing.T) {
	b := newFakeBackend(&backendTask{
		ID: "t1", Title: "Informe", Status: "in_progress",
		TimeLogs: []backendLog{{ID: "l1", Start: time.Now().UTC().Add(-time.Minute)}},
	})
	b.pauseStatus = http.StatusConflict
	a := testApp(t, b)

	_, err := executeCmd(t, a, "--locale", "es", "pause", "t1")

	require.Error(t, err)
	assert.Equal(t, "No se pudo pausar el temporizador: rechazado por el servidor", err.Error())
}

func TestPauseCmd_NotRunning(t *testing.T) {
	b := newFakeBackend(&backendTask{ID: "t1", Title: "Idle", Status: "todo"})
	a := testApp(t, b)

	_, err := executeCmd(t, a, "pause", "t1")

	require.Error(t, err)
	assert.Equal(t, "Timer is not running", err.Error())
	_, pauses := b.counts()
	assert.Zero(t, pauses)
}

func TestStartCmd_UnauthorizedIsTransportFailure(t *testing.T) {
	b := newFakeBackend(&backendTask{ID: "t1", Title: "Write report", Status: "todo"})
	b.startStatus = http.StatusUnauthorized
	a := testApp(t, b)

	_, err := executeCmd(t, a, "start", "t1")

	require.Error(t, err)
	// A static token cannot be refreshed, which counts as a network failure.
	assert.Equal(t, "Failed to start timer: network error", err.Error())
}

func TestStatusCmd_ShowsTrackedTime(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b := newFakeBackend(&backendTask{
		ID: "t1", Title: "Write report", Status: "in_progress",
		TimeLogs: []backendLog{closedLog("l1", base, 90*time.Second)},
	})
	a := testApp(t, b)

	out, err := executeCmd(t, a, "status", "t1")

	require.NoError(t, err)
	assert.Contains(t, out, "Write report")
	assert.Contains(t, out, "Stopped")
	assert.Contains(t, out, "01:30")
}

func TestListCmd_ShowsAllTasks(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b := newFakeBackend(
		&backendTask{ID: "t1", Title: "Write report", Status: "todo"},
		&backendTask{ID: "t2", Title: "Review PR", Status: "done",
			TimeLogs: []backendLog{closedLog("l1", base, time.Hour+5*time.Second)}},
	)
	a := testApp(t, b)

	out, err := executeCmd(t, a, "list")

	require.NoError(t, err)
	assert.Contains(t, out, "Write report")
	assert.Contains(t, out, "Review PR")
	assert.Contains(t, out, "1:00:05")
}

func TestListCmd_Empty(t *testing.T) {
	a := testApp(t, newFakeBackend())

	out, err := executeCmd(t, a, "list", "--refresh")

	require.NoError(t, err)
	assert.Contains(t, out, "No tasks.")
}

func TestDashboardCmd_Aggregates(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b := newFakeBackend(
		&backendTask{ID: "t1", Title: "A", Status: "done",
			TimeLogs: []backendLog{closedLog("l1", base, time.Minute)}},
		&backendTask{ID: "t2", Title: "B", Status: "todo",
			TimeLogs: []backendLog{closedLog("l2", base, 2*time.Minute)}},
	)
	a := testApp(t, b)

	out, err := executeCmd(t, a, "dashboard")

	require.NoError(t, err)
	assert.Contains(t, out, "TRACKED")
	assert.Contains(t, out, "03:00")
}

func TestWatchCmd_RequiresIDWhenNotInteractive(t *testing.T) {
	a := testApp(t, newFakeBackend())

	_, err := executeCmd(t, a, "watch")

	assert.ErrorIs(t, err, errTaskIDRequired)
}

func TestRootCmd_EndpointFlagOverridesConfig(t *testing.T) {
	b := newFakeBackend(&backendTask{ID: "t1", Title: "Write report", Status: "todo"})
	a := testApp(t, b)
	endpoint := a.Config.API.Endpoint
	a.Config.API.Endpoint = "http://127.0.0.1:1"

	out, err := executeCmd(t, a, "--endpoint", endpoint, "status", "t1")

	require.NoError(t, err)
	assert.Contains(t, out, "Write report")
}
