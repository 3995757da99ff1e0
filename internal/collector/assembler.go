package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/watchtowerx/beacon/internal/config"
	"github.com/watchtowerx/beacon/internal/models"
	"github.com/watchtowerx/beacon/internal/platform"
)

// Assembler runs every probe concurrently and merges the results into one
// report. A probe that fails or panics leaves its block at the degraded
// default; the other probes are unaffected.
type Assembler struct {
	identity string
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string

	disk        Probe[float64]
	ram         Probe[float64]
	cpu         Probe[float64]
	network     Probe[models.NetworkIO]
	diskIO      Probe[models.DiskIO]
	uptime      Probe[uint64]
	database    Probe[models.Database]
	locks       Probe[*int64]
	workload    Probe[models.Workload]
	cache       Probe[models.Cache]
	performance Probe[models.Performance]
	tls         Probe[*int64]
	permissions Probe[map[string]models.PathAccess]
	logs        Probe[map[string]int64]
	sessions    Probe[models.Sessions]
	runtime     Probe[map[string]string]
}

// Options wires the assembler to its collaborators.
type Options struct {
	Config    *config.Config
	Platform  platform.Platform
	Databases Connections
	Logger    *zap.Logger
	Version   string
}

// NewAssembler builds the full probe set from configuration.
func NewAssembler(opts Options) *Assembler {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	p := opts.Platform
	db := cfg.Database.Default
	timeout := cfg.Database.QueryTimeout.Duration

	return &Assembler{
		identity: cfg.App.Name,
		logger:   logger.Named("collector"),
		now:      time.Now,
		newID:    uuid.NewString,

		disk:        NewDiskProbe(p),
		ram:         NewMemoryProbe(p),
		cpu:         NewCPUProbe(p),
		network:     NewNetworkProbe(p),
		diskIO:      NewDiskIOProbe(p),
		uptime:      NewUptimeProbe(p),
		database:    NewDatabaseProbe(opts.Databases, db, cfg.Database.HealthThreshold.Duration, timeout),
		locks:       NewLockProbe(opts.Databases, cfg.SystemConnection(), timeout),
		workload:    NewWorkloadProbe(opts.Databases, db, cfg.Workload, timeout),
		cache:       NewCacheProbe(cfg.Cache.Driver, cfg.Cache.RedisURL, timeout),
		performance: NewPerformanceProbe(opts.Databases, db, cfg.Performance, timeout),
		tls:         NewTLSProbe(cfg.TLSHost(), cfg.Security.TLSPort, cfg.Security.TLSTimeout.Duration),
		permissions: NewPermissionProbe(cfg.Security.CriticalPaths),
		logs:        NewLogProbe(cfg.Logs.Dir, cfg.Logs.Pattern),
		sessions:    NewSessionProbe(cfg.Session, opts.Databases, db, timeout),
		runtime:     NewRuntimeProbe(opts.Version, p.Name()),
	}
}

// Collect produces a report. It never fails and returns once every probe
// has completed.
func (a *Assembler) Collect(ctx context.Context) *models.Report {
	start := a.now()
	r := models.NewReport(a.identity)

	g, gctx := errgroup.WithContext(ctx)
	spawn(g, gctx, a, a.disk, &r.System.Disk)
	spawn(g, gctx, a, a.ram, &r.System.RAM)
	spawn(g, gctx, a, a.cpu, &r.System.CPU)
	spawn(g, gctx, a, a.network, &r.System.Network)
	spawn(g, gctx, a, a.diskIO, &r.System.DiskIO)
	spawn(g, gctx, a, a.uptime, &r.System.Uptime)
	spawn(g, gctx, a, a.workload, &r.Workload)
	spawn(g, gctx, a, a.cache, &r.Cache)
	spawn(g, gctx, a, a.performance, &r.Performance)
	spawn(g, gctx, a, a.tls, &r.Security.SSLExpirySeconds)
	spawn(g, gctx, a, a.permissions, &r.Security.Permissions)
	spawn(g, gctx, a, a.logs, &r.Logs)
	spawn(g, gctx, a, a.sessions, &r.Sessions)
	spawn(g, gctx, a, a.runtime, &r.Runtime)

	// Lock introspection only runs once the database answered.
	g.Go(func() error {
		health, ok := run(gctx, a, a.database)
		if !ok {
			return nil
		}
		if health.Status == models.StatusHealthy {
			if locks, ok := run(gctx, a, a.locks); ok {
				health.LockCount = locks
			}
		}
		r.Database = health
		return nil
	})
	_ = g.Wait()

	r.Meta = models.Meta{
		CollectionID: a.newID(),
		CollectedAt:  start.UTC(),
		DurationMS:   a.now().Sub(start).Milliseconds(),
	}
	return r
}

// spawn runs p on the group and stores its value in dst. dst keeps its
// current value if p panics.
func spawn[T any](g *errgroup.Group, ctx context.Context, a *Assembler, p Probe[T], dst *T) {
	g.Go(func() error {
		if v, ok := run(ctx, a, p); ok {
			*dst = v
		}
		return nil
	})
}

// run invokes one probe, logging unexpected degradations. ok is false when
// the probe panicked.
func run[T any](ctx context.Context, a *Assembler, p Probe[T]) (v T, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("Probe panicked",
				zap.String("probe", p.Name()),
				zap.String("panic", fmt.Sprint(rec)))
			ok = false
		}
	}()

	res := p.Collect(ctx)
	if !res.Reason.Expected() {
		a.logger.Info("Probe degraded",
			zap.String("probe", p.Name()),
			zap.String("reason", string(res.Reason)),
			zap.Error(res.Err))
	}
	return res.Value, true
}
