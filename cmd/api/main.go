package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"invoicescan/internal/config"
	"invoicescan/internal/database"
	"invoicescan/internal/database/migration"
	handlers "invoicescan/internal/http/handler"
	"invoicescan/internal/http/middleware"
	"invoicescan/internal/logger"
	tracing "invoicescan/internal/otel"
	"invoicescan/internal/recordstore"
	"invoicescan/internal/repository"
	"invoicescan/internal/repository/bolt"
	"invoicescan/internal/repository/postgres"
	"invoicescan/internal/service"
	"invoicescan/internal/storage"
	"invoicescan/internal/textextract"
)

// multipart framing on top of the file itself
const multipartOverhead = 1 << 20

func main() {
	// Load configuration (.env auto-loaded if present, CONFIG_FILE optional)
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, logger.Location(cfg.Timezone))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// Object storage for uploads and processed records (local directory or MinIO)
	objects, err := storage.New(cfg.Storage, cfg.MinIO)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}
	records := recordstore.New(objects, cfg.Storage.RecordsPrefix)

	index, closeIndex, err := openIndex(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeIndex()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register service metrics: %w", err)
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	engine := textextract.NewEngine(textextract.Config{
		Pdftoppm:    cfg.OCR.Pdftoppm,
		Tesseract:   cfg.OCR.Tesseract,
		Lang:        cfg.OCR.Lang,
		TessdataDir: cfg.OCR.TessdataDir,
		DPI:         cfg.OCR.DPI,
		MaxPages:    cfg.OCR.MaxPages,
		Preprocess:  cfg.OCR.Preprocess,
		Timeout:     time.Duration(cfg.OCR.TimeoutSec) * time.Second,
	}, log.Named("textextract"))

	svc := service.NewInvoiceService(service.Deps{
		Objects:        objects,
		Records:        records,
		Text:           engine,
		Index:          index,
		Metrics:        metrics,
		Logger:         log.Named("service"),
		MaxUploadBytes: int64(cfg.MaxUploadBytes),
		UploadsPrefix:  cfg.Storage.UploadsPrefix,
	})

	app := fiber.New(fiber.Config{
		AppName:      "invoicescan",
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.MaxUploadBytes + multipartOverhead,
	})

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	handlers.RegisterRoutes(app, svc)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", ":"+cfg.Port),
			zap.String("storage_backend", cfg.Storage.Backend),
			zap.String("index_backend", cfg.Index.Backend),
		)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}

// openIndex builds the optional record index selected by configuration.
func openIndex(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (repository.InvoiceIndex, func(), error) {
	switch cfg.Index.Backend {
	case "", config.IndexBackendNone:
		return nil, func() {}, nil

	case config.IndexBackendBolt:
		idx, err := bolt.Open(cfg.Index.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return idx, func() { _ = idx.Close() }, nil

	case config.IndexBackendPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return postgres.NewInvoicePostgres(db), func() { _ = db.Close() }, nil

	default:
		return nil, nil, errors.New("unknown index backend " + cfg.Index.Backend)
	}
}
