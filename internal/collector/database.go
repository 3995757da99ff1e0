package collector

import (
	"context"
	"errors"
	"time"

	"github.com/watchtowerx/beacon/internal/database"
	"github.com/watchtowerx/beacon/internal/models"
	"github.com/watchtowerx/beacon/internal/probe"
)

// DatabaseProbe round-trips a trivial query on the default connection.
type DatabaseProbe struct {
	conns     Connections
	name      string
	threshold time.Duration
	timeout   time.Duration
	count     countFunc
}

// NewDatabaseProbe creates a health probe for the named connection.
// Latency above threshold marks the database unhealthy; timeout bounds the
// query itself.
func NewDatabaseProbe(conns Connections, name string, threshold, timeout time.Duration) *DatabaseProbe {
	return &DatabaseProbe{
		conns:     conns,
		name:      name,
		threshold: threshold,
		timeout:   timeout,
		count:     database.Count,
	}
}

// Name returns the probe identifier.
func (d *DatabaseProbe) Name() string { return "database" }

// Collect returns the health status and latency. LockCount is left nil;
// the assembler fills it in when the database is healthy.
func (d *DatabaseProbe) Collect(ctx context.Context) probe.Result[models.Database] {
	unhealthy := models.Database{Status: models.StatusUnhealthy}

	conn, err := d.conns.Connection(ctx, d.name)
	if err != nil {
		unhealthy.Error = err.Error()
		return probe.Degrade(unhealthy, err)
	}

	qctx, cancel := withTimeout(ctx, d.timeout)
	start := time.Now()
	_, err = d.count(qctx, conn.DB, "SELECT 1")
	elapsed := time.Since(start)
	cancel()

	if err != nil {
		unhealthy.Error = err.Error()
		return probe.DegradeWith(unhealthy, database.Reason(err), err)
	}

	result := models.Database{
		Status:    models.StatusHealthy,
		LatencyMS: probe.Round2(float64(elapsed) / float64(time.Millisecond)),
	}
	if d.threshold > 0 && elapsed > d.threshold {
		result.Status = models.StatusUnhealthy
	}
	return probe.OK(result)
}

// Lock introspection queries per driver family.
const (
	mysqlLockWaits       = "SELECT COUNT(*) FROM performance_schema.data_lock_waits"
	mysqlLegacyLockWaits = "SELECT COUNT(*) FROM information_schema.innodb_lock_waits"
	postgresLockWaits    = "SELECT COUNT(*) FROM pg_locks WHERE NOT granted"
	sqlServerLockWaits   = "SELECT COUNT(*) FROM sys.dm_tran_locks WHERE request_status = 'WAIT'"
)

// LockProbe counts sessions waiting on a lock. It runs against the system
// connection, which may carry elevated privileges.
type LockProbe struct {
	conns   Connections
	name    string
	timeout time.Duration
	count   countFunc
}

// NewLockProbe creates a lock contention probe for the named connection.
func NewLockProbe(conns Connections, name string, timeout time.Duration) *LockProbe {
	return &LockProbe{
		conns:   conns,
		name:    name,
		timeout: timeout,
		count:   database.Count,
	}
}

// Name returns the probe identifier.
func (l *LockProbe) Name() string { return "locks" }

// Collect returns the number of waiting locks, or nil when contention
// cannot be determined for the driver or with the granted privileges.
func (l *LockProbe) Collect(ctx context.Context) probe.Result[*int64] {
	family, err := l.conns.Family(l.name)
	if err != nil {
		return probe.Degrade[*int64](nil, err)
	}
	switch family {
	case database.FamilyMySQL, database.FamilyPostgres, database.FamilySQLServer:
	default:
		return probe.DegradeWith[*int64](nil, probe.ReasonUnsupported, nil)
	}

	conn, err := l.conns.Connection(ctx, l.name)
	if err != nil {
		return probe.Degrade[*int64](nil, err)
	}

	qctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	switch family {
	case database.FamilyMySQL:
		return l.mysql(qctx, conn)
	case database.FamilyPostgres:
		n, err := l.count(qctx, conn.DB, postgresLockWaits)
		if err != nil {
			return probe.DegradeWith[*int64](nil, database.Reason(err), err)
		}
		return probe.OK(ptr(n))
	default:
		n, err := l.count(qctx, conn.DB, sqlServerLockWaits)
		if err != nil {
			if database.Denied(err) {
				return probe.DegradeWith[*int64](nil, probe.ReasonDenied, err)
			}
			return probe.DegradeWith[*int64](nil, probe.ReasonFault, err)
		}
		return probe.OK(ptr(n))
	}
}

// mysql tries the 8.0 performance schema view, then the pre-8.0
// information schema table. When neither exists the server is assumed to
// have no contention.
func (l *LockProbe) mysql(ctx context.Context, conn *database.Connection) probe.Result[*int64] {
	n, err := l.count(ctx, conn.DB, mysqlLockWaits)
	if err == nil {
		return probe.OK(ptr(n))
	}
	n, legacyErr := l.count(ctx, conn.DB, mysqlLegacyLockWaits)
	if legacyErr == nil {
		return probe.OK(ptr(n))
	}
	if database.Denied(legacyErr) {
		return probe.DegradeWith[*int64](nil, probe.ReasonDenied, legacyErr)
	}
	return probe.DegradeWith(ptr(0), probe.ReasonUnavailable, errors.Join(err, legacyErr))
}
