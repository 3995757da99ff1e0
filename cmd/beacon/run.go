package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/watchtowerx/beacon/internal/config"
	"github.com/watchtowerx/beacon/internal/models"
	"github.com/watchtowerx/beacon/internal/sender"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Process exit codes.
const (
	exitOK          = 0
	exitConfig      = 1
	exitRejected    = 2
	exitUnreachable = 3
)

// runner performs one collect-and-transmit cycle.
type runner struct {
	cfg     *config.Config
	logger  *zap.Logger
	out     io.Writer
	collect func(ctx context.Context) *models.Report
	send    func(ctx context.Context, report *models.Report) error
}

// transmit validates the hub settings, collects a report, and sends it once.
// Nothing is collected when the hub URL or token is missing.
func (r *runner) transmit(ctx context.Context) int {
	if err := r.cfg.Validate(); err != nil {
		r.logger.Error("Hub URL or token not configured", zap.Error(err))
		return exitConfig
	}

	report := r.collect(ctx)
	log := r.logger.With(zap.String("collection_id", report.Meta.CollectionID))

	err := r.send(ctx, report)
	var (
		rejected  *sender.RejectedError
		transport *sender.TransportError
	)
	switch {
	case err == nil:
		log.Info("Signal received by hub",
			zap.String("hub", r.cfg.Hub.URL),
			zap.Int64("duration_ms", report.Meta.DurationMS))
		return exitOK
	case errors.As(err, &rejected):
		log.Error("Signal lost",
			zap.Int("status", rejected.StatusCode),
			zap.String("body", rejected.Body))
		return exitRejected
	case errors.As(err, &transport):
		log.Error("Hub unreachable", zap.Error(transport.Err))
		return exitUnreachable
	default:
		log.Error("Transmission failed", zap.Error(err))
		return exitUnreachable
	}
}

type format int

const (
	formatText format = iota
	formatJSON
)

// preview collects a report and writes it to out without contacting the hub.
func (r *runner) preview(ctx context.Context, f format) int {
	report := r.collect(ctx)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		r.logger.Error("Failed to encode report", zap.Error(err))
		return exitConfig
	}
	if f == formatJSON {
		fmt.Fprintf(r.out, "%s\n", data)
		return exitOK
	}
	writeText(r.out, data)
	return exitOK
}

// writeText prints the report one category per block, keeping field order.
func writeText(w io.Writer, data []byte) {
	fmt.Fprintln(w, "Beacon Report")
	fmt.Fprintln(w, "=============")
	fmt.Fprintln(w)

	gjson.ParseBytes(data).ForEach(func(category, block gjson.Result) bool {
		fmt.Fprintf(w, "%s:\n", title(category.String()))
		if !block.IsObject() {
			fmt.Fprintf(w, "  %s\n", block.String())
			fmt.Fprintln(w)
			return true
		}
		block.ForEach(func(key, value gjson.Result) bool {
			switch {
			case value.IsObject(), value.IsArray():
				fmt.Fprintf(w, "  %s: %s\n", key.String(), gjson.Get(value.Raw, "@ugly").Raw)
			case value.Type == gjson.Null:
				fmt.Fprintf(w, "  %s: null\n", key.String())
			default:
				fmt.Fprintf(w, "  %s: %s\n", key.String(), value.String())
			}
			return true
		})
		fmt.Fprintln(w)
		return true
	})
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
