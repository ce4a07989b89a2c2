package service

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"market-attention/internal/supervisor/config"
	"market-attention/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helperEnv = "SUPERVISOR_HELPER_MODE"

// TestHelperProcess is not a real test; supervised children re-exec the test binary into it.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv(helperEnv)
	if mode == "" {
		return
	}

	switch mode {
	case "crash":
		os.Exit(3)
	case "serve":
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGTERM)
		markReady()
		<-quit
		os.Exit(0)
	case "stubborn":
		signal.Ignore(syscall.SIGTERM)
		markReady()
		time.Sleep(time.Hour)
	}
	os.Exit(0)
}

func markReady() {
	if path := os.Getenv("SUPERVISOR_HELPER_READY"); path != "" {
		_ = os.WriteFile(path, []byte("ok"), 0o644)
	}
}

func helperProcess(name, mode, readyFile string) config.Process {
	return config.Process{
		Name:    name,
		Command: os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess"},
		Env:     []string{helperEnv + "=" + mode, "SUPERVISOR_HELPER_READY=" + readyFile},
	}
}

type fakeNotifier struct {
	messages chan string
}

func (f *fakeNotifier) SendMessage(_ context.Context, text string) error {
	f.messages <- text
	return nil
}

func startSupervisor(t *testing.T, svc SupervisorService) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return cancel, stopped
}

func fileExists(path string) func() bool {
	return func() bool {
		_, err := os.Stat(path)
		return err == nil
	}
}

func TestSupervisor_RestartsExitedProcess(t *testing.T) {
	notifier := &fakeNotifier{messages: make(chan string, 16)}
	svc := NewSupervisorService(config.Supervisor{
		PollInterval: 10 * time.Millisecond,
		Backoff:      50 * time.Millisecond,
		GracePeriod:  time.Second,
		Processes:    []config.Process{helperProcess("collector_gdelt", "crash", "")},
	}, notifier, logger.NewNop())

	startSupervisor(t, svc)

	require.Eventually(t, func() bool {
		return svc.Processes()[0].Restarts >= 2
	}, 10*time.Second, 20*time.Millisecond)

	select {
	case msg := <-notifier.messages:
		assert.Contains(t, msg, "collector\\_gdelt")
		assert.Contains(t, msg, "exit status 3")
	case <-time.After(5 * time.Second):
		t.Fatal("expected a restart alert")
	}
}

func TestSupervisor_WaitsBackoffBeforeRestart(t *testing.T) {
	svc := NewSupervisorService(config.Supervisor{
		PollInterval: 10 * time.Millisecond,
		Backoff:      time.Hour,
		GracePeriod:  time.Second,
		Processes:    []config.Process{helperProcess("collector_rss", "crash", "")},
	}, nil, logger.NewNop())

	startSupervisor(t, svc)

	require.Eventually(t, func() bool {
		return svc.Processes()[0].State == StateExited
	}, 10*time.Second, 20*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	proc := svc.Processes()[0]
	assert.Equal(t, StateExited, proc.State)
	assert.Zero(t, proc.Restarts)
	assert.Equal(t, "exit status 3", proc.LastExit)
}

func TestSupervisor_TerminatesChildrenOnShutdown(t *testing.T) {
	ready := filepath.Join(t.TempDir(), "ready")
	svc := NewSupervisorService(config.Supervisor{
		PollInterval: 10 * time.Millisecond,
		Backoff:      50 * time.Millisecond,
		GracePeriod:  5 * time.Second,
		Processes:    []config.Process{helperProcess("writer", "serve", ready)},
	}, nil, logger.NewNop())

	cancel, stopped := startSupervisor(t, svc)
	require.Eventually(t, fileExists(ready), 10*time.Second, 20*time.Millisecond)

	proc := svc.Processes()[0]
	assert.Equal(t, StateRunning, proc.State)
	assert.NotZero(t, proc.PID)
	assert.NotNil(t, proc.StartedAt)

	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
	}

	proc = svc.Processes()[0]
	assert.Equal(t, StateStopped, proc.State)
	assert.Equal(t, "exit status 0", proc.LastExit)
	assert.Zero(t, proc.Restarts)
}

func TestSupervisor_KillsSurvivorsAfterGracePeriod(t *testing.T) {
	ready := filepath.Join(t.TempDir(), "ready")
	svc := NewSupervisorService(config.Supervisor{
		PollInterval: 10 * time.Millisecond,
		Backoff:      50 * time.Millisecond,
		GracePeriod:  200 * time.Millisecond,
		Processes:    []config.Process{helperProcess("collector_binance", "stubborn", ready)},
	}, nil, logger.NewNop())

	cancel, stopped := startSupervisor(t, svc)
	require.Eventually(t, fileExists(ready), 10*time.Second, 20*time.Millisecond)

	started := time.Now()
	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
	}

	assert.GreaterOrEqual(t, time.Since(started), 200*time.Millisecond)
	proc := svc.Processes()[0]
	assert.Equal(t, StateStopped, proc.State)
	assert.Equal(t, "signal: killed", proc.LastExit)
}

func TestSupervisor_StartFailureIsRetried(t *testing.T) {
	svc := NewSupervisorService(config.Supervisor{
		PollInterval: 10 * time.Millisecond,
		Backoff:      20 * time.Millisecond,
		GracePeriod:  time.Second,
		Processes:    []config.Process{{Name: "broken", Command: filepath.Join(t.TempDir(), "missing-binary")}},
	}, nil, logger.NewNop())

	startSupervisor(t, svc)

	require.Eventually(t, func() bool {
		return svc.Processes()[0].Restarts >= 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, StateExited, svc.Processes()[0].State)
}
