package collector

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/watchtowerx/beacon/internal/cache"
	"github.com/watchtowerx/beacon/internal/config"
	"github.com/watchtowerx/beacon/internal/models"
	"github.com/watchtowerx/beacon/internal/probe"
)

// SessionProbe estimates active user sessions from the session backend.
type SessionProbe struct {
	cfg     config.SessionConfig
	conns   Connections
	dbName  string
	timeout time.Duration
	now     func() time.Time
}

// NewSessionProbe creates a session probe. conns and dbName are used only
// by the database driver.
func NewSessionProbe(cfg config.SessionConfig, conns Connections, dbName string, timeout time.Duration) *SessionProbe {
	return &SessionProbe{
		cfg:     cfg,
		conns:   conns,
		dbName:  dbName,
		timeout: timeout,
		now:     time.Now,
	}
}

// Name returns the probe identifier.
func (s *SessionProbe) Name() string { return "sessions" }

// Collect returns the number of sessions active within the window.
// Unsupported drivers report 0.
func (s *SessionProbe) Collect(ctx context.Context) probe.Result[models.Sessions] {
	var (
		n   int64
		err error
	)
	switch strings.ToLower(s.cfg.Driver) {
	case "database":
		n, err = s.database(ctx)
	case "file":
		n, err = s.files()
	case "redis":
		n, err = s.redis(ctx)
	default:
		return probe.DegradeWith(models.Sessions{}, probe.ReasonUnsupported, nil)
	}
	if err != nil {
		return probe.Degrade(models.Sessions{}, err)
	}
	return probe.OK(models.Sessions{Active: n})
}

func (s *SessionProbe) since() time.Time {
	return s.now().Add(-s.cfg.ActiveWindow.Duration)
}

func (s *SessionProbe) database(ctx context.Context) (int64, error) {
	conn, err := s.conns.Connection(ctx, s.dbName)
	if err != nil {
		return 0, err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := hasTable(ctx, conn.DB, s.cfg.Table); err != nil {
		return 0, err
	}
	var n int64
	err = conn.DB.WithContext(ctx).
		Table(s.cfg.Table).
		Where("last_activity >= ?", s.since().Unix()).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", s.cfg.Table, err)
	}
	return n, nil
}

// files counts session files modified within the window.
func (s *SessionProbe) files() (int64, error) {
	entries, err := os.ReadDir(s.cfg.Path)
	if err != nil {
		return 0, err
	}
	since := s.since()
	var n int64
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *SessionProbe) redis(ctx context.Context) (int64, error) {
	if s.cfg.RedisURL == "" {
		return 0, fmt.Errorf("session redis url: %w", probe.ErrUnavailable)
	}
	client, err := cache.Connect(s.cfg.RedisURL, s.timeout)
	if err != nil {
		return 0, err
	}
	defer client.Close()
	return cache.CountKeys(ctx, client, s.cfg.RedisPrefix)
}
