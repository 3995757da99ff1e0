// Package main is the entry point for the beacon health probe. Each
// invocation collects one report and transmits it to the hub, or prints it
// when run as a dry run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/watchtowerx/beacon/internal/collector"
	"github.com/watchtowerx/beacon/internal/config"
	"github.com/watchtowerx/beacon/internal/database"
	"github.com/watchtowerx/beacon/internal/models"
	"github.com/watchtowerx/beacon/internal/platform"
	"github.com/watchtowerx/beacon/internal/sender"
	"github.com/watchtowerx/beacon/internal/setup"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath  = flag.String("config", "", "Path to configuration file (default: search standard locations)")
	showVersion = flag.Bool("version", false, "Show version and exit")
	printReport = flag.Bool("print", false, "Collect and print the report grouped by category without sending it")
	printJSON   = flag.Bool("json", false, "Collect and print the JSON payload without sending it")
	initConfig  = flag.Bool("init", false, "Write a config file and exit")
	initMode    = flag.String("mode", "", "Config location for -init: local, user or system")
	force       = flag.Bool("force", false, "Overwrite an existing config file with -init")
	hubURL      = flag.String("url", "", "Hub URL (overrides config and WATCHTOWER_HUB_URL)")
	hubToken    = flag.String("token", "", "Hub token (overrides config and WATCHTOWER_API_TOKEN)")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("beacon %s\n", version)
		os.Exit(exitOK)
	}

	if *initConfig {
		opts := setup.Options{Mode: *initMode, URL: *hubURL, Token: *hubToken, Path: *configPath, Force: *force}
		if _, err := setup.Run(version, opts, os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
			os.Exit(exitConfig)
		}
		os.Exit(exitOK)
	}

	// Load configuration
	var paths []string
	if *configPath != "" {
		paths = append(paths, *configPath)
	}
	cfg, err := config.LoadLayered(config.CLIOverrides{URL: *hubURL, Token: *hubToken}, paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(exitConfig)
	}

	// Initialize logger
	logger := initLogger(cfg)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &runner{
		cfg:     cfg,
		logger:  logger,
		out:     os.Stdout,
		collect: collectFunc(cfg, logger),
		send:    sender.New(cfg.Hub, logger).Send,
	}

	var code int
	switch {
	case *printJSON:
		code = r.preview(ctx, formatJSON)
	case *printReport:
		code = r.preview(ctx, formatText)
	default:
		code = r.transmit(ctx)
	}
	stop()
	logger.Sync()
	os.Exit(code)
}

// collectFunc wires the probes to the host and the configured connections.
// Connections are opened lazily and closed once the report is assembled.
func collectFunc(cfg *config.Config, logger *zap.Logger) func(context.Context) *models.Report {
	return func(ctx context.Context) *models.Report {
		dbs := database.NewResolver(cfg.Database, logger)
		defer dbs.Close()

		asm := collector.NewAssembler(collector.Options{
			Config:    cfg,
			Platform:  platform.New(),
			Databases: dbs,
			Logger:    logger,
			Version:   version,
		})
		return asm.Collect(ctx)
	}
}

// initLogger creates a zap logger based on the configuration.
// It writes human-readable output to stderr, keeping stdout for reports,
// and optionally tees structured JSON to a log file.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	// File output (structured JSON, if configured)
	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
