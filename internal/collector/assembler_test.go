package collector

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/watchtowerx/beacon/internal/config"
	"github.com/watchtowerx/beacon/internal/database"
	"github.com/watchtowerx/beacon/internal/models"
	"github.com/watchtowerx/beacon/internal/probe"
)

type stubProbe[T any] struct {
	name  string
	res   probe.Result[T]
	panic bool
	calls int
}

func (s *stubProbe[T]) Name() string { return s.name }

func (s *stubProbe[T]) Collect(context.Context) probe.Result[T] {
	s.calls++
	if s.panic {
		panic("boom")
	}
	return s.res
}

func isolatedConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.App.Name = "shop"
	cfg.Session.Path = filepath.Join(dir, "sessions")
	cfg.Logs.Dir = filepath.Join(dir, "logs")
	cfg.Security.CriticalPaths = map[string]string{
		"env":     filepath.Join(dir, ".env"),
		"storage": dir,
		"logs":    filepath.Join(dir, "logs"),
	}
	return cfg
}

func newTestAssembler(t *testing.T, p *fakePlatform, core zapcore.Core) *Assembler {
	t.Helper()
	cfg := isolatedConfig(t)
	a := NewAssembler(Options{
		Config:    cfg,
		Platform:  p,
		Databases: database.NewResolver(cfg.Database, nil),
		Logger:    zap.New(core),
		Version:   "test",
	})
	rp := NewRuntimeProbe("test", p.Name())
	rp.info = func(context.Context) (*host.InfoStat, error) {
		return &host.InfoStat{Platform: "debian", PlatformVersion: "12"}, nil
	}
	a.runtime = rp
	return a
}

func TestAssembler_AllKeysPresent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := &fakePlatform{disk: 42.5, cpu: 12, err: map[string]error{"ram": probe.ErrUnavailable}}
	a := newTestAssembler(t, p, core)

	r := a.Collect(context.Background())
	if r.System.Disk != 42.5 || r.System.RAM != 0 || r.System.CPU != 12 {
		t.Errorf("system = %+v", r.System)
	}
	if r.Identity != "shop" {
		t.Errorf("Identity = %q", r.Identity)
	}
	if r.Database.Status != models.StatusUnhealthy || r.Database.LockCount != nil {
		t.Errorf("database = %+v, want unhealthy without lock count", r.Database)
	}
	if r.Security.SSLExpirySeconds != nil {
		t.Errorf("ssl_expiry_seconds = %d, want nil", *r.Security.SSLExpirySeconds)
	}
	if r.Meta.CollectionID == "" || r.Meta.CollectedAt.IsZero() {
		t.Errorf("meta = %+v", r.Meta)
	}

	data, err := jsoniter.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]jsoniter.RawMessage
	if err := jsoniter.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{
		"identity", "system", "workload", "database", "cache", "performance",
		"security", "logs", "sessions", "runtime",
	} {
		raw, ok := out[key]
		if !ok {
			t.Errorf("key %q missing", key)
			continue
		}
		if key == "logs" && string(raw) != "{}" {
			t.Errorf("logs = %s, want {}", raw)
		}
	}

	// Every degradation above is expected on a bare host.
	if n := logs.Len(); n != 0 {
		t.Errorf("logged %d entries, want none: %v", n, logs.All())
	}
}

func TestAssembler_FaultIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := newTestAssembler(t, &fakePlatform{}, core)
	a.disk = &stubProbe[float64]{name: "disk", res: probe.DegradeWith(0.0, probe.ReasonFault, errors.New("statfs: bad"))}

	a.Collect(context.Background())

	entries := logs.FilterField(zap.String("probe", "disk")).All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries for disk, want 1", len(entries))
	}
	if entries[0].ContextMap()["reason"] != string(probe.ReasonFault) {
		t.Errorf("entry fields = %v", entries[0].ContextMap())
	}
}

func TestAssembler_PanicKeepsDefault(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	a := newTestAssembler(t, &fakePlatform{cpu: 50}, core)
	a.logs = &stubProbe[map[string]int64]{name: "logs", panic: true}

	r := a.Collect(context.Background())
	if r.Logs == nil {
		t.Error("logs should keep its empty default after a panic")
	}
	if r.System.CPU != 50 {
		t.Errorf("CPU = %v, other probes must still complete", r.System.CPU)
	}
}

type slowDisk struct {
	delay time.Duration
	value float64
}

func (s slowDisk) Name() string { return "disk" }

func (s slowDisk) Collect(context.Context) probe.Result[float64] {
	time.Sleep(s.delay)
	return probe.OK(s.value)
}

func TestAssembler_CancelledContextStillCollects(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	a := newTestAssembler(t, &fakePlatform{}, core)
	a.disk = slowDisk{delay: 30 * time.Millisecond, value: 77}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := a.Collect(ctx)
	if r.System.Disk != 77 {
		t.Errorf("Disk = %v, want the slow result collected", r.System.Disk)
	}
}

func TestAssembler_LocksRunOnlyWhenHealthy(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := newTestAssembler(t, &fakePlatform{}, core)

	locks := &stubProbe[*int64]{name: "locks", res: probe.OK(ptr(3))}
	a.locks = locks
	a.database = &stubProbe[models.Database]{name: "database", res: probe.OK(models.Database{Status: models.StatusHealthy, LatencyMS: 1.5})}

	r := a.Collect(context.Background())
	if r.Database.LockCount == nil || *r.Database.LockCount != 3 {
		t.Errorf("lock_count = %v, want 3", r.Database.LockCount)
	}

	a.database = &stubProbe[models.Database]{name: "database", res: probe.DegradeWith(
		models.Database{Status: models.StatusUnhealthy, Error: "refused"}, probe.ReasonUnavailable, errors.New("refused"))}
	r = a.Collect(context.Background())
	if r.Database.LockCount != nil || r.Database.Error != "refused" {
		t.Errorf("database = %+v", r.Database)
	}
	if locks.calls != 1 {
		t.Errorf("lock probe ran %d times, want 1", locks.calls)
	}

	if n := logs.Len(); n != 0 {
		t.Errorf("logged %d entries, want none", n)
	}
}

func TestAssembler_SQLServerDeniedIsSilent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := newTestAssembler(t, &fakePlatform{}, core)

	lp := NewLockProbe(fakeConns{family: database.FamilySQLServer}, "system", time.Second)
	lp.count = (&scriptedCount{answers: map[string]countAnswer{
		sqlServerLockWaits: {err: errors.New("mssql: Login failed for user 'monitor'.")},
	}}).count
	a.locks = lp
	a.database = &stubProbe[models.Database]{name: "database", res: probe.OK(models.Database{Status: models.StatusHealthy})}

	r := a.Collect(context.Background())
	if r.Database.LockCount != nil {
		t.Errorf("lock_count = %d, want nil", *r.Database.LockCount)
	}
	if n := logs.Len(); n != 0 {
		t.Errorf("logged %d entries, want none: %v", n, logs.All())
	}
}
