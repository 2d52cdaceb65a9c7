package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/spatialtiles/internal/adapters/gsigeo"
	natsadapter "github.com/samirrijal/spatialtiles/internal/adapters/nats"
	"github.com/samirrijal/spatialtiles/internal/adapters/postgres"
	"github.com/samirrijal/spatialtiles/internal/adapters/valkey"
	"github.com/samirrijal/spatialtiles/internal/core/cuboid"
	"github.com/samirrijal/spatialtiles/internal/core/geoid"
	"github.com/samirrijal/spatialtiles/internal/core/ports"
	"github.com/samirrijal/spatialtiles/internal/core/usecases"
	"github.com/samirrijal/spatialtiles/internal/pkg/config"
	"github.com/samirrijal/spatialtiles/internal/pkg/logging"
	"github.com/samirrijal/spatialtiles/internal/pkg/telemetry"
	"github.com/samirrijal/spatialtiles/internal/workflows"
)

func main() {
	cfg, err := config.Load("spatialtiles-prebuilder")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr,
		cfg.Telemetry.Enabled, cfg.Telemetry.SampleRatio)
	if err != nil {
		slog.Warn("telemetry init failed", "error", err)
	} else {
		defer telemetry.Shutdown(shutdownTracer)
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Prebuilt payloads land in the cache the API reads.
	cache, err := valkey.New(cfg.Valkey.Addr, "spatialtiles:")
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, prebuilt events are not announced", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	sampler := geoid.NewSampler(gsigeo.NewLoader(cfg.Geoid.Path), cfg.Geoid.DefaultHeight)
	tilesets := usecases.NewTilesetService(cuboid.NewEngine(sampler, cfg.Tileset.Workers), cache, cfg.Tileset.CacheTTL,
		usecases.AltitudeSpan{Bottom: cfg.Barriers.BottomAltitude, Top: cfg.Barriers.TopAltitude})
	barriers := usecases.NewBarrierService(postgres.NewBarrierRepo(db), tilesets, publisher)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
		Logger:   temporallog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	// Barrier upserts start a prebuild run.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "spatialtiles-prebuilder")
	if err != nil {
		slog.Warn("nats subscriber unavailable, prebuilds must be started by hand", "error", err)
	} else {
		defer sub.Close()
		d := &dispatcher{starter: c, taskQueue: cfg.Temporal.TaskQueue}
		if err := sub.SubscribeBarrierEvents(ctx, d.HandleBarrierEvent); err != nil {
			log.Fatalf("subscribe barrier events: %v", err)
		}
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.PrebuildBarrierTilesetWorkflow)
	w.RegisterActivity(&workflows.PrebuildActivities{Barriers: barriers})

	slog.Info("prebuilder worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
