// Package sender delivers a collected report to the hub. It marshals the
// report to JSON, optionally compresses it with gzip, and issues a single
// POST. Retrying is left to the caller.
package sender

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/watchtowerx/beacon/internal/config"
	"github.com/watchtowerx/beacon/internal/models"
)

const (
	// defaultTimeout bounds the request when the hub timeout is unset.
	defaultTimeout = 10 * time.Second

	// maxBodyExcerpt is how much of a rejection body is kept for the caller.
	maxBodyExcerpt = 500

	// TokenHeader carries the hub token.
	TokenHeader = "X-Beacon-Token"

	// CollectionHeader carries the report's collection id.
	CollectionHeader = "X-Beacon-Collection"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RejectedError means the hub answered with a non-2xx status.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("hub rejected report: status %d: %s", e.StatusCode, e.Body)
}

// TransportError means the request never produced a response: DNS
// failure, refused connection, TLS failure, or timeout.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("hub unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Sender posts reports to the hub endpoint.
type Sender struct {
	client   *http.Client
	url      string
	token    string
	compress bool
	logger   *zap.Logger
}

// New creates a Sender for the configured hub.
func New(cfg config.HubConfig, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		// Self-signed hub certificates are only accepted when opted in.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Sender{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		url:      cfg.URL,
		token:    cfg.Token,
		compress: cfg.Compress,
		logger:   logger.Named("sender"),
	}
}

// Send transmits the report once. It returns *RejectedError for a non-2xx
// response and *TransportError when no response was received.
func (s *Sender) Send(ctx context.Context, report *models.Report) error {
	body, err := s.encode(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(TokenHeader, s.token)
	req.Header.Set(CollectionHeader, report.Meta.CollectionID)
	if s.compress {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyExcerpt))
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RejectedError{StatusCode: resp.StatusCode, Body: string(excerpt)}
	}

	s.logger.Debug("Report delivered",
		zap.String("collection_id", report.Meta.CollectionID),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)))
	return nil
}

func (s *Sender) encode(report *models.Report) ([]byte, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	if !s.compress {
		return data, nil
	}

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return compressed.Bytes(), nil
}
