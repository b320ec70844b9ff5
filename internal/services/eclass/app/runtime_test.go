package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/eclassroom/eclass/internal/services/eclass/domain"
)

func TestRuntimeConfigNormalizedDefaults(t *testing.T) {
	t.Parallel()

	cfg := RuntimeConfig{StorageDriver: " SQLite "}.normalized()
	if cfg.HTTPPort != defaultHTTPPort || cfg.HealthPort != defaultHealthPort {
		t.Fatalf("ports = %d/%d", cfg.HTTPPort, cfg.HealthPort)
	}
	if cfg.StorageDriver != DriverSQLite {
		t.Fatalf("driver = %q, want %q", cfg.StorageDriver, DriverSQLite)
	}
	if cfg.DBPath != defaultDBPath {
		t.Fatalf("db path = %q, want %q", cfg.DBPath, defaultDBPath)
	}
}

func TestRunValidatesConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  RuntimeConfig
	}{
		{name: "missing bridge", cfg: RuntimeConfig{JWTSecret: "s"}},
		{name: "missing secret", cfg: RuntimeConfig{BridgeURL: "ws://bridge"}},
		{name: "postgres without dsn", cfg: RuntimeConfig{BridgeURL: "ws://bridge", JWTSecret: "s", StorageDriver: DriverPostgres}},
		{name: "bad timezone", cfg: RuntimeConfig{BridgeURL: "ws://bridge", JWTSecret: "s", Timezone: "Mars/Olympus"}},
		{name: "bad directory", cfg: RuntimeConfig{
			BridgeURL:            "ws://bridge",
			JWTSecret:            "s",
			AnnouncementChannels: map[string]string{"M2": "chan"},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := Run(context.Background(), tc.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestOpenStoreSQLite(t *testing.T) {
	t.Parallel()

	cfg := RuntimeConfig{DBPath: filepath.Join(t.TempDir(), "nested", "eclass.db")}.normalized()
	store, err := openStore(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get error = %v, want %v", err, domain.ErrNotFound)
	}
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := openStore(RuntimeConfig{StorageDriver: "mongo"}); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

type recordingHandler struct {
	mu        sync.Mutex
	reactions []domain.Reaction
}

func (h *recordingHandler) HandleReaction(_ context.Context, reaction domain.Reaction) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reactions = append(h.reactions, reaction)
	if reaction.UserID == "bad" {
		return false, errors.New("boom")
	}
	return true, nil
}

func TestPumpReactionsForwardsUntilClosed(t *testing.T) {
	t.Parallel()

	reactions := make(chan domain.Reaction, 3)
	reactions <- domain.Reaction{MessageID: "m-1", UserID: "bad", Emoji: "✅", Added: true}
	reactions <- domain.Reaction{MessageID: "m-1", UserID: "u-1", Emoji: "✅", Added: true}
	close(reactions)

	handler := &recordingHandler{}
	done := make(chan struct{})
	go func() {
		pumpReactions(context.Background(), reactions, handler)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop after the stream closed")
	}
	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.reactions) != 2 {
		t.Fatalf("forwarded = %d, want 2", len(handler.reactions))
	}
}

func TestPumpReactionsStopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		pumpReactions(ctx, make(chan domain.Reaction), &recordingHandler{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump ignored canceled context")
	}
}

func TestStartBackgroundWaitsForJobsToReturn(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	failed := make(chan error, 1)
	var mu sync.Mutex
	finished := false
	group := startBackground(ctx, failed, backgroundJob{name: "slow", run: func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		finished = true
		mu.Unlock()
		return nil
	}})

	cancel()
	group.Wait()
	mu.Lock()
	defer mu.Unlock()
	if !finished {
		t.Fatal("expected Wait to return after the job finished")
	}
	select {
	case err := <-failed:
		t.Fatalf("unexpected failure: %v", err)
	default:
	}
}

func TestStartBackgroundReportsJobErrors(t *testing.T) {
	t.Parallel()

	failed := make(chan error, 1)
	group := startBackground(context.Background(), failed,
		backgroundJob{name: "bridge", run: func(context.Context) error { return errors.New("closed") }},
		backgroundJob{name: "scheduler", run: func(context.Context) error { return errors.New("bad interval") }},
	)
	group.Wait()

	err := <-failed
	if err == nil || (err.Error() != "bridge: closed" && err.Error() != "scheduler: bad interval") {
		t.Fatalf("failed = %v", err)
	}
}
