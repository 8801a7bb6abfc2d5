package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/me/ticksched/internal/action"
	"github.com/me/ticksched/internal/clock"
	"github.com/me/ticksched/internal/config"
	"github.com/me/ticksched/internal/logging"
	"github.com/me/ticksched/internal/scheduler"
	"github.com/me/ticksched/internal/server"
	"github.com/me/ticksched/internal/store"
	"github.com/me/ticksched/pkg/model"
)

const testPlan = `
plan:
  name: cli-test
  tick_period_ms: 10
  capacity: 3
  tasks:
    - name: beat
      kind: periodic
      interval_ms: 30
    - name: later
      kind: single
      interval_ms: 1000
`

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--log-format", "none"}, args...))

	err := root.Execute()
	return buf.String(), err
}

// startTestDaemon runs a scheduler loop on a manual clock behind a test HTTP
// server and returns the server URL and a function that advances the clock.
func startTestDaemon(t *testing.T) (string, func(n int), *scheduler.Loop) {
	t.Helper()
	logger := logging.Discard()

	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	p := &model.Plan{Name: "daemon-test", TickPeriodMs: 10, Capacity: 3, Tasks: []model.TaskSpec{
		{Name: "beat", Kind: model.TaskKindPeriodic, IntervalMs: 20},
	}}
	loop, err := scheduler.NewLoop(p, action.NewDefaultRegistry(logger), st, scheduler.DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	clk := clock.NewManual(loop)
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Start(context.Background(), clk) }()
	if err := loop.Do(context.Background(), func(scheduler.Controller) error { return nil }); err != nil {
		t.Fatalf("loop not running: %v", err)
	}

	srv := server.New(config.DefaultDaemonConfig(), st, loop, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		loop.Stop()
		<-errCh
	})

	advance := func(n int) {
		t.Helper()
		want := loop.Snapshot().Stats.Ticks + uint64(n)
		clk.Advance(n)
		deadline := time.Now().Add(2 * time.Second)
		for loop.Snapshot().Stats.Ticks < want {
			if time.Now().After(deadline) {
				t.Fatalf("timed out waiting for tick %d", want)
			}
			time.Sleep(time.Millisecond)
		}
	}
	return ts.URL, advance, loop
}

func TestValidateCommand(t *testing.T) {
	out, err := runCLI(t, "validate", writePlan(t, testPlan))
	if err != nil {
		t.Fatalf("validate error: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "Plan cli-test is valid.") || !strings.Contains(out, "Tasks:       2") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestValidateCommand_Invalid(t *testing.T) {
	bad := strings.Replace(testPlan, "capacity: 3", "capacity: 1", 1)
	out, err := runCLI(t, "validate", writePlan(t, bad))
	if err == nil {
		t.Fatalf("expected error, output: %s", out)
	}
	if !strings.Contains(out, "is invalid") || !strings.Contains(out, "tasks") {
		t.Errorf("expected field errors in output, got: %s", out)
	}
}

func TestSimulateCommand(t *testing.T) {
	out, err := runCLI(t, "simulate", writePlan(t, testPlan), "--ticks", "10")
	if err != nil {
		t.Fatalf("simulate error: %v\noutput: %s", err, out)
	}
	// Tick 1 activates the plan; beat fires every 3 ticks after that.
	for _, tick := range []string{"tick      4", "tick      7", "tick     10"} {
		if !strings.Contains(out, tick+"  slot   0  beat") {
			t.Errorf("missing fire at %q in output:\n%s", tick, out)
		}
	}
	if !strings.Contains(out, "10 ticks, 3 fires, 0 overruns, 2/3 slots occupied") {
		t.Errorf("unexpected summary:\n%s", out)
	}
}

func TestSimulateCommand_BurstAndJournal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	out, err := runCLI(t, "--db", db, "simulate", writePlan(t, testPlan), "--ticks", "10", "--burst", "5", "--quiet")
	if err != nil {
		t.Fatalf("simulate error: %v\noutput: %s", err, out)
	}
	if strings.Contains(out, "beat") {
		t.Errorf("--quiet printed fires:\n%s", out)
	}
	if !strings.Contains(out, "10 ticks, 3 fires, 8 overruns") {
		t.Errorf("unexpected summary:\n%s", out)
	}

	st, err := store.NewSQLiteStore(db, logging.Discard())
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer st.Close()
	runs, total, err := st.ListRuns(context.Background(), model.ListOptions{Limit: 10})
	if err != nil || total != 1 {
		t.Fatalf("list runs: total=%d err=%v", total, err)
	}
	if runs[0].State != model.RunStateCompleted || runs[0].Overruns != 8 {
		t.Errorf("run = %+v", runs[0])
	}
}

func TestDaemonCommands(t *testing.T) {
	url, advance, loop := startTestDaemon(t)
	advance(5)

	out, err := runCLI(t, "--server", url, "slots")
	if err != nil {
		t.Fatalf("slots error: %v", err)
	}
	if !strings.Contains(out, "beat") || !strings.Contains(out, "1/3 slots occupied") {
		t.Errorf("unexpected slots output:\n%s", out)
	}

	out, err = runCLI(t, "--server", url, "stats")
	if err != nil {
		t.Fatalf("stats error: %v", err)
	}
	if !strings.Contains(out, "Ticks:          5") {
		t.Errorf("unexpected stats output:\n%s", out)
	}

	out, err = runCLI(t, "--server", url, "add", "--name", "ping", "--kind", "single", "--interval-ms", "10")
	if err != nil {
		t.Fatalf("add error: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "Task ping registered in slot 1") {
		t.Errorf("unexpected add output: %s", out)
	}

	if _, err := runCLI(t, "--server", url, "pause", "beat"); err != nil {
		t.Fatalf("pause error: %v", err)
	}
	if _, err := runCLI(t, "--server", url, "pause", "ghost"); err == nil {
		t.Error("expected error pausing an unknown task")
	}

	out, err = runCLI(t, "--server", url, "tasks")
	if err != nil {
		t.Fatalf("tasks error: %v", err)
	}
	if !strings.Contains(out, "ping") || !strings.Contains(out, "beat") {
		t.Errorf("unexpected tasks output:\n%s", out)
	}

	out, err = runCLI(t, "--server", url, "runs")
	if err != nil {
		t.Fatalf("runs error: %v", err)
	}
	if !strings.Contains(out, loop.RunID()) || !strings.Contains(out, "daemon-test") {
		t.Errorf("unexpected runs output:\n%s", out)
	}

	out, err = runCLI(t, "--server", url, "fires", loop.RunID())
	if err != nil {
		t.Fatalf("fires error: %v", err)
	}
	if !strings.Contains(out, "beat") {
		t.Errorf("unexpected fires output:\n%s", out)
	}
}

func TestDefaultServer_Env(t *testing.T) {
	t.Setenv("TICKSCHED_SERVER", "http://example:9000")
	if got := defaultServer(); got != "http://example:9000" {
		t.Errorf("defaultServer() = %q", got)
	}
}
