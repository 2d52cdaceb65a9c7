package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/spatialtiles/internal/core/ports"
	"github.com/samirrijal/spatialtiles/internal/core/usecases"
)

// Pinger is a backend the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Tilesets     *usecases.TilesetService
	Barriers     *usecases.BarrierService
	Geoid        ports.GeoidSampler
	MaxAddresses int
	NATS         *nats.Conn
	DB           Pinger
	Cache        Pinger
	DocsPath     string
}
