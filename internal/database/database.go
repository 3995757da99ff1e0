// Package database opens gorm connections for the configured driver families
// and classifies driver errors the probes need to tell apart.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/watchtowerx/beacon/internal/config"
	"github.com/watchtowerx/beacon/internal/probe"
)

// Family groups driver identifiers that share SQL dialect and introspection views.
type Family string

const (
	FamilyMySQL     Family = "mysql"
	FamilyPostgres  Family = "pgsql"
	FamilySQLServer Family = "sqlsrv"
	FamilySQLite    Family = "sqlite"
	FamilyUnknown   Family = ""
)

// FamilyOf resolves a configured driver name.
func FamilyOf(driver string) Family {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql", "mariadb":
		return FamilyMySQL
	case "pgsql", "postgres", "postgresql":
		return FamilyPostgres
	case "sqlsrv", "sqlserver", "mssql":
		return FamilySQLServer
	case "sqlite", "sqlite3":
		return FamilySQLite
	default:
		return FamilyUnknown
	}
}

var (
	// ErrUnknownConnection is returned for names absent from database.connections.
	ErrUnknownConnection = fmt.Errorf("connection not configured: %w", probe.ErrUnavailable)
	// ErrUnsupportedDriver is returned for drivers outside the known families.
	ErrUnsupportedDriver = fmt.Errorf("database driver: %w", probe.ErrUnsupported)
)

// Connection is an opened, named database connection.
type Connection struct {
	Name   string
	Driver string
	Family Family
	DB     *gorm.DB
}

// dialector builds the gorm dialector for a family.
func dialector(family Family, dsn string) (gorm.Dialector, error) {
	switch family {
	case FamilyMySQL:
		// Skip the version query gorm issues at open time; it is not bound to a context.
		return mysql.New(mysql.Config{DSN: dsn, SkipInitializeWithVersion: true}), nil
	case FamilyPostgres:
		return postgres.Open(dsn), nil
	case FamilySQLServer:
		return sqlserver.Open(dsn), nil
	case FamilySQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, ErrUnsupportedDriver
	}
}

// Open opens a connection without pinging it. Every later query carries its
// own context deadline, so no call here can block on a stalled server.
func Open(name string, cc config.ConnectionConfig) (*Connection, error) {
	family := FamilyOf(cc.Driver)
	d, err := dialector(family, cc.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s (%s): %w", name, cc.Driver, err)
	}
	db, err := gorm.Open(d, &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(1)
	return &Connection{Name: name, Driver: cc.Driver, Family: family, DB: db}, nil
}

// Resolver opens named connections lazily and shares them between probes
// for the lifetime of one collection cycle.
type Resolver struct {
	defs   map[string]config.ConnectionConfig
	logger *zap.Logger

	mu   sync.Mutex
	open map[string]*Connection
}

// NewResolver creates a resolver over the configured connections.
func NewResolver(cfg config.DatabaseConfig, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		defs:   cfg.Connections,
		logger: logger.Named("database"),
		open:   make(map[string]*Connection),
	}
}

// Family returns the driver family of a named connection without opening it.
func (r *Resolver) Family(name string) (Family, error) {
	def, ok := r.defs[name]
	if !ok {
		return FamilyUnknown, fmt.Errorf("%q: %w", name, ErrUnknownConnection)
	}
	return FamilyOf(def.Driver), nil
}

// Connection returns the named connection, opening it on first use.
func (r *Resolver) Connection(_ context.Context, name string) (*Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.open[name]; ok {
		return c, nil
	}
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownConnection)
	}
	c, err := Open(name, def)
	if err != nil {
		return nil, err
	}
	r.open[name] = c
	r.logger.Debug("Opened connection",
		zap.String("connection", name),
		zap.String("driver", def.Driver))
	return c, nil
}

// Close releases every opened connection.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, c := range r.open {
		sqlDB, err := c.DB.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(r.open, name)
	}
	return errors.Join(errs...)
}

// Count runs a single-value COUNT/SUM query and returns the integer result.
func Count(ctx context.Context, db *gorm.DB, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := db.WithContext(ctx).Raw(query, args...).Row().Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
