package collector

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/watchtowerx/beacon/internal/probe"
)

// TLSProbe measures how long the application's certificate remains valid.
type TLSProbe struct {
	host    string
	port    int
	timeout time.Duration
	now     func() time.Time
}

// NewTLSProbe creates a certificate expiry probe for host:port.
func NewTLSProbe(host string, port int, timeout time.Duration) *TLSProbe {
	if port == 0 {
		port = 443
	}
	return &TLSProbe{host: host, port: port, timeout: timeout, now: time.Now}
}

// Name returns the probe identifier.
func (t *TLSProbe) Name() string { return "tls" }

// Collect returns the seconds until the leaf certificate expires, floored
// at 0. Any connection or handshake failure yields nil.
func (t *TLSProbe) Collect(ctx context.Context) probe.Result[*int64] {
	if t.host == "" {
		return probe.DegradeWith[*int64](nil, probe.ReasonUnavailable, nil)
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: t.timeout},
		Config: &tls.Config{
			ServerName: t.host,
			// Only the certificate dates are read; trust is not evaluated.
			InsecureSkipVerify: true,
		},
	}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(t.host, strconv.Itoa(t.port)))
	if err != nil {
		return probe.DegradeWith[*int64](nil, probe.ReasonUnavailable, err)
	}
	defer conn.Close()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return probe.DegradeWith[*int64](nil, probe.ReasonUnavailable, errors.New("no peer certificate"))
	}

	remaining := int64(certs[0].NotAfter.Sub(t.now()) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return probe.OK(ptr(remaining))
}
