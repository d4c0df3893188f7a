package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/evolvinglmms-lab/docsync/internal/config"
	"github.com/evolvinglmms-lab/docsync/internal/syncer"
	"github.com/evolvinglmms-lab/docsync/internal/trigger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingPipeline struct {
	name  string
	calls atomic.Int32
}

func (p *countingPipeline) Name() string      { return p.name }
func (p *countingPipeline) RoutePath() string { return "/docs/" + p.name }
func (p *countingPipeline) Sync(context.Context, syncer.Options) (*syncer.Report, error) {
	p.calls.Add(1)
	return &syncer.Report{Pipeline: p.name}, nil
}

type fakeServer struct {
	mu      sync.Mutex
	started bool
	stopped bool
	err     error
}

func (f *fakeServer) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return f.err
}

func (f *fakeServer) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

const baseConfig = `
pipelines:
  - name: lmms-eval
    owner: EvolvingLMMs-Lab
    repo: lmms-eval
`

func parseConfig(t *testing.T, src string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(src))
	require.NoError(t, err)
	return cfg
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestNew_InvalidCron(t *testing.T) {
	cfg := parseConfig(t, baseConfig)
	cfg.Schedule.Cron = "not a cron"
	_, err := New(Options{Config: cfg, Service: trigger.New(nil), Server: &fakeServer{}})
	assert.Error(t, err)
}

func TestRun_StartsAndStopsComponents(t *testing.T) {
	cfg := parseConfig(t, baseConfig)
	cfg.Schedule.Cron = "0 3 * * *"
	srv := &fakeServer{}
	d, err := New(Options{Config: cfg, Service: trigger.New(nil), Server: srv})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return srv.started
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "0 3 * * *", d.scheduler.Expr())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
	assert.True(t, srv.stopped)
}

func TestRun_ServerStartFailure(t *testing.T) {
	cfg := parseConfig(t, baseConfig)
	srv := &fakeServer{err: assert.AnError}
	d, err := New(Options{Config: cfg, Service: trigger.New(nil), Server: srv})
	require.NoError(t, err)

	assert.ErrorIs(t, d.Run(t.Context()), assert.AnError)
}

func TestScheduledSync_RunsAllPipelines(t *testing.T) {
	eval := &countingPipeline{name: "lmms-eval"}
	cfg := parseConfig(t, baseConfig)
	d, err := New(Options{Config: cfg, Service: trigger.New([]syncer.Pipeline{eval}), Server: &fakeServer{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.scheduler.Stop() })

	d.scheduler.run()
	assert.Equal(t, int32(1), eval.calls.Load())
}

func TestScheduler_SkipsAfterContextDone(t *testing.T) {
	var calls atomic.Int32
	s, err := NewScheduler(func(context.Context) { calls.Add(1) })
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	s.run()
	cancel()
	s.run()

	assert.Equal(t, int32(1), calls.Load())
}

func TestScheduler_Reschedule(t *testing.T) {
	s, err := NewScheduler(func(context.Context) {})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	require.NoError(t, s.Schedule("*/5 * * * *"))
	assert.Equal(t, "*/5 * * * *", s.Expr())
	require.NoError(t, s.Schedule("0 * * * *"))
	assert.Equal(t, "0 * * * *", s.Expr())
	require.NoError(t, s.Schedule(""))
	assert.Empty(t, s.Expr())
	assert.Error(t, s.Schedule("61 * * * *"))
}

func TestReloadConfig_SwapsPipelinesAndSchedule(t *testing.T) {
	cfg := parseConfig(t, baseConfig)
	svc := trigger.New([]syncer.Pipeline{&countingPipeline{name: "lmms-eval"}})
	engine := &countingPipeline{name: "lmms-engine"}
	factory := func(c *config.Config) ([]syncer.Pipeline, error) {
		return []syncer.Pipeline{&countingPipeline{name: "lmms-eval"}, engine}, nil
	}
	d, err := New(Options{Config: cfg, Service: svc, Server: &fakeServer{}, Pipelines: factory})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.scheduler.Stop() })

	next := parseConfig(t, baseConfig)
	next.Schedule.Cron = "15 * * * *"
	require.NoError(t, d.ReloadConfig(t.Context(), next))

	assert.Equal(t, []string{"lmms-eval", "lmms-engine"}, svc.PipelineNames())
	assert.Equal(t, "15 * * * *", d.scheduler.Expr())
	assert.Same(t, next, d.Config())

	res := svc.SyncPipeline(t.Context(), "lmms-engine", false)
	require.True(t, res.Success)
	assert.Equal(t, int32(1), engine.calls.Load())
}

func TestReloadConfig_WithoutFactory(t *testing.T) {
	cfg := parseConfig(t, baseConfig)
	d, err := New(Options{Config: cfg, Service: trigger.New(nil), Server: &fakeServer{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.scheduler.Stop() })

	assert.Error(t, d.ReloadConfig(t.Context(), cfg))
}

func TestConfigWatcher_ReloadsAfterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(baseConfig), 0o600))

	reloaded := make(chan *config.Config, 4)
	w, err := NewConfigWatcher(path, func(_ context.Context, cfg *config.Config) error {
		reloaded <- cfg
		return nil
	})
	require.NoError(t, err)
	w.debounceTime = 20 * time.Millisecond
	require.NoError(t, w.Start(t.Context()))
	t.Cleanup(func() { _ = w.Stop() })

	updated := baseConfig + "schedule:\n  cron: \"0 4 * * *\"\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "0 4 * * *", cfg.Schedule.Cron)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestConfigWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(baseConfig), 0o600))

	var calls atomic.Int32
	w, err := NewConfigWatcher(path, func(context.Context, *config.Config) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	w.debounceTime = 10 * time.Millisecond
	require.NoError(t, w.Start(t.Context()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o600))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop(), "stop is idempotent")

	assert.Zero(t, calls.Load())
}
