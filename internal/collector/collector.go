// Package collector implements the metric probes and the assembler that
// runs them concurrently into a single report.
package collector

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/watchtowerx/beacon/internal/database"
	"github.com/watchtowerx/beacon/internal/probe"
)

// Probe is the interface every metric probe implements. Collect never
// fails: a probe that cannot measure returns its degraded default together
// with the reason.
type Probe[T any] interface {
	// Name returns the unique identifier for this probe.
	Name() string

	// Collect measures the metric. The context bounds any blocking call.
	Collect(ctx context.Context) probe.Result[T]
}

// Connections resolves named database connections. *database.Resolver
// satisfies it.
type Connections interface {
	Family(name string) (database.Family, error)
	Connection(ctx context.Context, name string) (*database.Connection, error)
}

// countFunc runs a single-value query. database.Count in production.
type countFunc func(ctx context.Context, db *gorm.DB, query string, args ...interface{}) (int64, error)

// withTimeout bounds a query context; a zero timeout leaves ctx unchanged.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func ptr(n int64) *int64 { return &n }
