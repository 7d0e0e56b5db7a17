package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/vortex-catalog/internal/config"
	"github.com/dshills/vortex-catalog/internal/directory"
	"github.com/dshills/vortex-catalog/internal/events"
	"github.com/dshills/vortex-catalog/internal/ledger"
	"github.com/dshills/vortex-catalog/internal/mcp"
	"github.com/dshills/vortex-catalog/internal/observability"
	"github.com/dshills/vortex-catalog/internal/orders"
	"github.com/dshills/vortex-catalog/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("Vortex Catalog MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vortex: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := observability.Setup(ctx, cfg.ServiceName, cfg.Otel)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}

	// Logs go to stderr; stdout is reserved for the MCP protocol
	logger, err := observability.NewLogger(cfg.ServiceName, cfg.LogLevel, cfg.Otel.Enabled())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting",
		zap.String("version", version),
		zap.String("build_mode", storage.BuildMode),
		zap.String("driver", storage.DriverName),
		zap.String("db_path", cfg.DatabasePath),
		zap.Bool("kafka", cfg.Kafka.Enabled()),
		zap.Bool("otel", cfg.Otel.Enabled()),
	)

	if cfg.DatabasePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled() {
		publisher, err = events.DialKafka(cfg.Kafka, otel.GetTracerProvider(), cfg.ServiceName)
		if err != nil {
			_ = store.Close()
			return fmt.Errorf("failed to initialize kafka publisher: %w", err)
		}
	}

	dir := directory.New(store, cfg.DirectoryCacheSize)
	l := ledger.New(store, ledger.Options{
		Logger:    logger.Named("ledger"),
		Publisher: publisher,
	})
	engine := orders.NewEngine(store, dir, l, orders.Options{
		Logger:    logger.Named("orders"),
		Publisher: publisher,
	})
	server := mcp.NewServer(
		mcp.Services{Orders: engine, Ledger: l, Directory: dir},
		mcp.Options{Logger: logger.Named("mcp"), PageSize: cfg.DefaultPageSize},
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// stdin closing ends the session the same way a signal does
		defer stop()
		logger.Info("MCP server ready, listening on stdio")
		err := server.Serve(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return nil
	})
	serveErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = errors.Join(
		serveErr,
		publisher.Close(),
		store.Close(),
		shutdownOtel(shutdownCtx),
	)
	if err != nil {
		logger.Error("server stopped with errors", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
