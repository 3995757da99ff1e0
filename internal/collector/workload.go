package collector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/watchtowerx/beacon/internal/config"
	"github.com/watchtowerx/beacon/internal/models"
	"github.com/watchtowerx/beacon/internal/probe"
)

// errTableAbsent marks a table the application has not migrated.
var errTableAbsent = fmt.Errorf("table absent: %w", probe.ErrUnavailable)

// hasTable reports whether table exists on db.
func hasTable(ctx context.Context, db *gorm.DB, table string) error {
	if table == "" || !db.WithContext(ctx).Migrator().HasTable(table) {
		return fmt.Errorf("%q: %w", table, errTableAbsent)
	}
	return nil
}

// WorkloadProbe counts background jobs in the application's queue tables.
type WorkloadProbe struct {
	conns   Connections
	name    string
	tables  config.WorkloadConfig
	timeout time.Duration
	now     func() time.Time
}

// NewWorkloadProbe creates a job queue probe on the named connection.
func NewWorkloadProbe(conns Connections, name string, tables config.WorkloadConfig, timeout time.Duration) *WorkloadProbe {
	return &WorkloadProbe{
		conns:   conns,
		name:    name,
		tables:  tables,
		timeout: timeout,
		now:     time.Now,
	}
}

// Name returns the probe identifier.
func (w *WorkloadProbe) Name() string { return "workload" }

// Collect returns failed, pending, and processed-today job counts. Each
// counter degrades to 0 independently when its table is absent.
func (w *WorkloadProbe) Collect(ctx context.Context) probe.Result[models.Workload] {
	conn, err := w.conns.Connection(ctx, w.name)
	if err != nil {
		return probe.Degrade(models.Workload{}, err)
	}
	ctx, cancel := withTimeout(ctx, w.timeout)
	defer cancel()

	failed, failedErr := rowCount(ctx, conn.DB, w.tables.FailedTable)
	pending, pendingErr := rowCount(ctx, conn.DB, w.tables.PendingTable)
	done, doneErr := w.processedToday(ctx, conn.DB)
	out := models.Workload{FailedJobs: failed, PendingJobs: pending, ProcessedToday: done}
	return probe.Join(out, failedErr, pendingErr, doneErr)
}

// processedToday sums completed jobs of batches finished since local midnight.
func (w *WorkloadProbe) processedToday(ctx context.Context, db *gorm.DB) (int64, error) {
	table := w.tables.ProcessedTable
	if err := hasTable(ctx, db, table); err != nil {
		return 0, err
	}
	now := w.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var n sql.NullInt64
	err := db.WithContext(ctx).
		Table(table).
		Select("SUM(total_jobs - pending_jobs)").
		Where("finished_at IS NOT NULL AND finished_at >= ?", midnight.Unix()).
		Row().
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sum %s: %w", table, err)
	}
	return n.Int64, nil
}

func rowCount(ctx context.Context, db *gorm.DB, table string) (int64, error) {
	if err := hasTable(ctx, db, table); err != nil {
		return 0, err
	}
	var n int64
	if err := db.WithContext(ctx).Table(table).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// PerformanceProbe averages recorded response times.
type PerformanceProbe struct {
	conns   Connections
	name    string
	cfg     config.PerformanceConfig
	timeout time.Duration
	now     func() time.Time
}

// NewPerformanceProbe creates a response time probe on the named connection.
func NewPerformanceProbe(conns Connections, name string, cfg config.PerformanceConfig, timeout time.Duration) *PerformanceProbe {
	return &PerformanceProbe{
		conns:   conns,
		name:    name,
		cfg:     cfg,
		timeout: timeout,
		now:     time.Now,
	}
}

// Name returns the probe identifier.
func (p *PerformanceProbe) Name() string { return "performance" }

// Collect returns the mean response time over the configured window, or 0
// when no samples were recorded.
func (p *PerformanceProbe) Collect(ctx context.Context) probe.Result[models.Performance] {
	conn, err := p.conns.Connection(ctx, p.name)
	if err != nil {
		return probe.Degrade(models.Performance{}, err)
	}
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	table := p.cfg.SamplesTable
	if err := hasTable(ctx, conn.DB, table); err != nil {
		return probe.Degrade(models.Performance{}, err)
	}

	since := p.now().Add(-p.cfg.Window.Duration)
	var avg sql.NullFloat64
	err = conn.DB.WithContext(ctx).
		Table(table).
		Select("AVG(duration_ms)").
		Where("recorded_at >= ?", since.Unix()).
		Row().
		Scan(&avg)
	if err != nil {
		return probe.Degrade(models.Performance{}, fmt.Errorf("average %s: %w", table, err))
	}
	return probe.OK(models.Performance{AvgResponseTimeMS: probe.Round2(avg.Float64)})
}
