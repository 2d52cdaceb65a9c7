package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	natsadapter "github.com/samirrijal/spatialtiles/internal/adapters/nats"
	"github.com/samirrijal/spatialtiles/internal/adapters/postgres"
	"github.com/samirrijal/spatialtiles/internal/core/domain"
	"github.com/samirrijal/spatialtiles/internal/core/ports"
	"github.com/samirrijal/spatialtiles/internal/core/usecases"
	"github.com/samirrijal/spatialtiles/internal/pkg/config"
	"github.com/samirrijal/spatialtiles/internal/pkg/logging"
)

// importer loads barrier exports into the store.
//
//	importer <file.json|file.csv|url> [barrier-id,...]
func main() {
	cfg, err := config.Load("spatialtiles-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	if len(os.Args) < 2 {
		log.Fatal("usage: importer <file.json|file.csv|url> [barrier-id,...]")
	}
	src := os.Args[1]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	data, err := readSource(ctx, &http.Client{Timeout: 120 * time.Second}, src)
	if err != nil {
		log.Fatalf("read %s: %v", src, err)
	}
	barriers, err := parseBarriers(src, data)
	if err != nil {
		log.Fatalf("%s: %v", src, err)
	}
	if len(os.Args) > 2 {
		barriers = filterBarriers(barriers, os.Args[2])
	}
	slog.Info("importing barriers", "source", src, "count", len(barriers))

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Events are optional.
	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, importing without events", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	svc := usecases.NewBarrierService(postgres.NewBarrierRepo(db), nil, publisher)
	imported, failed := importAll(ctx, svc, barriers, 4)

	slog.Info("import complete", "imported", imported, "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// barrierUpserter is the part of BarrierService the import needs.
type barrierUpserter interface {
	Upsert(ctx context.Context, b *domain.Barrier) error
}

// importAll upserts barriers with at most workers in flight. A rejected
// barrier is logged and counted; it does not stop the others.
func importAll(ctx context.Context, svc barrierUpserter, barriers []domain.Barrier, workers int) (imported, failed int) {
	var ok, bad atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range barriers {
		b := &barriers[i]
		g.Go(func() error {
			if err := svc.Upsert(gctx, b); err != nil {
				slog.Error("barrier rejected", "barrier_id", b.ID, "error", err)
				bad.Add(1)
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return int(ok.Load()), int(bad.Load())
}

func filterBarriers(barriers []domain.Barrier, list string) []domain.Barrier {
	want := make(map[string]bool)
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			want[id] = true
		}
	}

	var out []domain.Barrier
	for _, b := range barriers {
		if want[b.ID] {
			out = append(out, b)
		}
	}
	return out
}
