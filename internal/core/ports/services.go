package ports

import (
	"context"
)

// BarrierEvent is broadcast whenever a barrier is created, replaced or removed.
type BarrierEvent struct {
	BarrierID string `json:"barrierId"`
	Action    string `json:"action"` // "upserted" | "deleted" | "prebuilt"
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishBarrierEvent(ctx context.Context, event BarrierEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeBarrierEvents(ctx context.Context, handler func(ctx context.Context, event BarrierEvent) error) error
}

// GeoidSampler answers geoid undulation queries in metres for a point in degrees.
type GeoidSampler interface {
	Height(ctx context.Context, lon, lat float64) (float64, error)
}
