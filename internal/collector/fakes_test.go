package collector

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/watchtowerx/beacon/internal/config"
	"github.com/watchtowerx/beacon/internal/database"
	"github.com/watchtowerx/beacon/internal/platform"
	"github.com/watchtowerx/beacon/internal/probe"
)

type fakePlatform struct {
	disk, mem, cpu float64
	counters       platform.Counters
	rates          platform.Rates
	uptime         uint64
	err            map[string]error
}

func (f *fakePlatform) Name() string { return "fake" }

func (f *fakePlatform) DiskPercent(context.Context) (float64, error) {
	return f.disk, f.err["disk"]
}

func (f *fakePlatform) MemoryPercent(context.Context) (float64, error) {
	return f.mem, f.err["ram"]
}

func (f *fakePlatform) CPUPercent(context.Context) (float64, error) {
	return f.cpu, f.err["cpu"]
}

func (f *fakePlatform) NetworkIO(context.Context) (platform.Counters, error) {
	return f.counters, f.err["network"]
}

func (f *fakePlatform) DiskIO(context.Context) (platform.Rates, error) {
	return f.rates, f.err["disk_io"]
}

func (f *fakePlatform) Uptime(context.Context) (uint64, error) {
	return f.uptime, f.err["uptime"]
}

// fakeConns hands out connections without a live database.
type fakeConns struct {
	family database.Family
	err    error
}

func (f fakeConns) Family(string) (database.Family, error) { return f.family, f.err }

func (f fakeConns) Connection(_ context.Context, name string) (*database.Connection, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &database.Connection{Name: name, Family: f.family}, nil
}

// scriptedCount answers queries from a table and records what was asked.
type scriptedCount struct {
	answers map[string]countAnswer
	asked   []string
}

type countAnswer struct {
	n   int64
	err error
}

func (s *scriptedCount) count(_ context.Context, _ *gorm.DB, query string, _ ...interface{}) (int64, error) {
	s.asked = append(s.asked, query)
	a, ok := s.answers[query]
	if !ok {
		return 0, probe.ErrUnavailable
	}
	return a.n, a.err
}

// sqliteConns opens a private in-memory sqlite database named after the test.
func sqliteConns(t *testing.T, name string) (*database.Resolver, *gorm.DB) {
	t.Helper()
	r := database.NewResolver(config.DatabaseConfig{Connections: map[string]config.ConnectionConfig{
		"app": {Driver: "sqlite", DSN: "file:" + name + "?mode=memory&cache=shared"},
	}}, nil)
	t.Cleanup(func() { r.Close() })

	conn, err := r.Connection(context.Background(), "app")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return r, conn.DB
}

func mustExec(t *testing.T, db *gorm.DB, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
}
