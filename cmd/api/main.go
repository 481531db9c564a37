package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"acadrive/docs"
	"acadrive/internal/config"
	"acadrive/internal/database"
	"acadrive/internal/database/migration"
	handlers "acadrive/internal/http/handler"
	"acadrive/internal/http/middleware"
	"acadrive/internal/identity"
	"acadrive/internal/logger"
	"acadrive/internal/otel"
	"acadrive/internal/repository/postgres"
	"acadrive/internal/service"
	"acadrive/internal/storage"
	"acadrive/internal/vote"
)

// @title AcaDrive Resource Catalog API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	loc := logger.Location(cfg.Log.Timezone)
	log := logger.Init(cfg.Log.IsDev(), cfg.Log.SentryDSN, loc)
	defer logger.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, "acadrive-api", log)
	if err != nil {
		log.Error("failed to initialize tracing", "error", err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, database.HostOf(cfg.Database)); err != nil {
		log.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	objStore, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("failed to initialize object storage", "error", err, "driver", cfg.Storage.Driver)
		os.Exit(1)
	}

	// Identity comes from X-Client-ID per request; one vote per voter is
	// enforced by the votes table rather than a local ledger.
	svc := service.NewCatalogService(service.Deps{
		Repo:     postgres.NewResourcePostgres(db),
		Store:    objStore,
		Identity: identity.Context{},
		Ledger:   vote.NopLedger{},
		Upload:   cfg.Upload,
		Logger:   log,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.Upload.BodyLimit(),
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(loc))
	app.Use(metrics.Handler())
	app.Use(middleware.ClientID())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, db, svc)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("server shutdown", "error", err)
		}
		if shutdownTracing != nil {
			if err := shutdownTracing(shutdownCtx); err != nil {
				log.Error("tracer shutdown", "error", err)
			}
		}
	}()

	addr := ":" + cfg.Port
	log.Info("server starting", "addr", addr, "storage_driver", cfg.Storage.Driver)

	if err := app.Listen(addr); err != nil {
		log.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}
