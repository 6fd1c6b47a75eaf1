package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stonefell/slate/filesystem"
	"github.com/stonefell/slate/manifest"
	"github.com/stonefell/slate/static"
	"github.com/stonefell/slate/telemetry"
	"github.com/stonefell/slate/worker"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var (
	name        = flag.String("name", "slate", "Application identifier, used in logs and telemetry")
	listenAddr  = flag.String("addr", "0.0.0.0:8080", "Listen address (host:port)")
	workerCount = flag.Int("workers", 4, "Number of workers accepting on the shared socket")
	assetRoot   = flag.String("root", "www", "Asset root directory")
	gzRoot      = flag.String("gzroot", "wwwgz", "Precompressed asset directory (parallel tree)")
	mimeTable   = flag.String("mimetypes", "mimetypes.json", "Extension to MIME type table")
	gzManifest  = flag.String("gzmanifest", "wwwgz.json", "Gzip variant manifest")
	idleTimeout = flag.Duration("idle-timeout", 5*time.Second, "Keep-alive idle timeout")
)

func main() {
	flag.Parse()

	if err := run(context.Background()); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Telemetry is wired up only when an OTLP endpoint is configured;
	// without one the process logs to stderr and nothing else.
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		shutdownTelemetry, err := telemetry.Setup(ctx, *name)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(shutdownCtx); err != nil {
				logger.Error("telemetry shutdown error", "error", err)
			}
		}()

		logger = otelslog.NewLogger(*name)
	}

	fs := filesystem.NewLocalFilesystem()

	m, err := manifest.Load(fs, *mimeTable, *gzManifest, *assetRoot, *gzRoot)
	if err != nil {
		// ConfigError is fatal: a stale or malformed build must not
		// begin serving.
		return err
	}
	logger.Info("manifest loaded", "assets", m.Len(), "root", *assetRoot)

	handler := static.NewHandler(m, fs, logger)

	pool, err := worker.NewPool(*listenAddr, *workerCount, handler.HandleFunc(), logger)
	if err != nil {
		return err
	}
	pool.IdleTimeout = *idleTimeout

	logger.Info("listening", "addr", *listenAddr, "workers", *workerCount)
	return pool.Run(ctx)
}
