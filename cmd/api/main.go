package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/spatialtiles/internal/adapters/gsigeo"
	"github.com/samirrijal/spatialtiles/internal/adapters/http"
	natsadapter "github.com/samirrijal/spatialtiles/internal/adapters/nats"
	"github.com/samirrijal/spatialtiles/internal/adapters/postgres"
	"github.com/samirrijal/spatialtiles/internal/adapters/valkey"
	"github.com/samirrijal/spatialtiles/internal/core/cuboid"
	"github.com/samirrijal/spatialtiles/internal/core/geoid"
	"github.com/samirrijal/spatialtiles/internal/core/ports"
	"github.com/samirrijal/spatialtiles/internal/core/usecases"
	"github.com/samirrijal/spatialtiles/internal/pkg/config"
	"github.com/samirrijal/spatialtiles/internal/pkg/logging"
	"github.com/samirrijal/spatialtiles/internal/pkg/metrics"
	"github.com/samirrijal/spatialtiles/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("spatialtiles-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr,
		cfg.Telemetry.Enabled, cfg.Telemetry.SampleRatio)
	if err != nil {
		slog.Warn("telemetry init failed", "error", err)
	} else {
		defer telemetry.Shutdown(shutdownTracer)
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	deps := &http.Dependencies{
		MaxAddresses: cfg.Tileset.MaxAddresses,
		DB:           db,
	}

	// Cache
	var tileCache usecases.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, "spatialtiles:")
	if err != nil {
		slog.Warn("valkey unavailable, tilesets are rebuilt per request", "error", err)
	} else {
		defer cache.Close()
		tileCache = cache
		deps.Cache = cache
	}

	// NATS
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for WebSocket relay
	var natsConn *nats.Conn
	if nc, err := natsadapter.RawConn(cfg.NATS.URL); err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer nc.Close()
		natsConn = nc
	}
	deps.NATS = natsConn

	// Geometry
	sampler := geoid.NewSampler(gsigeo.NewLoader(cfg.Geoid.Path), cfg.Geoid.DefaultHeight)
	go func() {
		// load the raster ahead of the first request
		if _, err := sampler.Raster(ctx); err != nil {
			slog.Error("geoid raster load failed", "path", cfg.Geoid.Path, "error", err)
		}
	}()
	engine := cuboid.NewEngine(sampler, cfg.Tileset.Workers)

	// Use cases
	tilesetSvc := usecases.NewTilesetService(engine, tileCache, cfg.Tileset.CacheTTL, usecases.AltitudeSpan{
		Bottom: cfg.Barriers.BottomAltitude,
		Top:    cfg.Barriers.TopAltitude,
	})
	deps.Tilesets = tilesetSvc
	deps.Barriers = usecases.NewBarrierService(postgres.NewBarrierRepo(db), tilesetSvc, publisher)
	deps.Geoid = sampler

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    8 * 1024 * 1024, // large tileset requests carry thousands of ids
		AppName:      "Spatial Tiles API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		ExposeHeaders:    "ETag, Link, Location",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// reportPoolStats copies pgx pool stats into the db gauges until ctx ends.
func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
