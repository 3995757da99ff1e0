package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/watchtowerx/beacon/internal/config"
	"github.com/watchtowerx/beacon/internal/probe"
)

func sessionConfig(driver string) config.SessionConfig {
	return config.SessionConfig{
		Driver:       driver,
		Table:        "sessions",
		RedisPrefix:  "session:",
		ActiveWindow: config.Duration{Duration: 5 * time.Minute},
	}
}

func TestSessionProbe_Files(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"fresh", "stale", ".gitignore"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "stale"), old, old); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o700); err != nil {
		t.Fatal(err)
	}

	cfg := sessionConfig("file")
	cfg.Path = dir
	res := NewSessionProbe(cfg, nil, "", time.Second).Collect(context.Background())
	if res.Degraded() || res.Value.Active != 1 {
		t.Errorf("Collect() = %+v, want 1 active", res)
	}
}

func TestSessionProbe_MissingDirectory(t *testing.T) {
	cfg := sessionConfig("file")
	cfg.Path = filepath.Join(t.TempDir(), "absent")
	res := NewSessionProbe(cfg, nil, "", time.Second).Collect(context.Background())
	if res.Value.Active != 0 || res.Reason != probe.ReasonUnavailable {
		t.Errorf("Collect() = %+v, want 0 unavailable", res)
	}
}

func TestSessionProbe_Database(t *testing.T) {
	conns, db := sqliteConns(t, "collector_sessions")
	now := time.Now()
	mustExec(t, db,
		"CREATE TABLE sessions (id TEXT PRIMARY KEY, last_activity INTEGER)",
		fmt.Sprintf("INSERT INTO sessions VALUES ('a', %d)", now.Add(-time.Minute).Unix()),
		fmt.Sprintf("INSERT INTO sessions VALUES ('b', %d)", now.Add(-2*time.Minute).Unix()),
		fmt.Sprintf("INSERT INTO sessions VALUES ('c', %d)", now.Add(-time.Hour).Unix()),
	)

	p := NewSessionProbe(sessionConfig("database"), conns, "app", time.Second)
	p.now = func() time.Time { return now }
	res := p.Collect(context.Background())
	if res.Degraded() || res.Value.Active != 2 {
		t.Errorf("Collect() = %+v, want 2 active", res)
	}
}

func TestSessionProbe_UnsupportedDriver(t *testing.T) {
	for _, driver := range []string{"cookie", "array", ""} {
		res := NewSessionProbe(sessionConfig(driver), nil, "", time.Second).Collect(context.Background())
		if res.Value.Active != 0 || res.Reason != probe.ReasonUnsupported {
			t.Errorf("%q: Collect() = %+v, want 0 unsupported", driver, res)
		}
	}
}

func TestSessionProbe_RedisUnreachable(t *testing.T) {
	cfg := sessionConfig("redis")
	cfg.RedisURL = "127.0.0.1:1"
	res := NewSessionProbe(cfg, nil, "", 200*time.Millisecond).Collect(context.Background())
	if res.Value.Active != 0 || !res.Reason.Expected() {
		t.Errorf("Collect() = %+v, want silent 0", res)
	}
}
