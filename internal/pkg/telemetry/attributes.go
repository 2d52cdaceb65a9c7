package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span names.
const (
	SpanBuildCuboids  = "cuboid.build"
	SpanEncodeI3DM    = "tileset.encode_i3dm"
	SpanEncodeTileset = "tileset.encode_manifest"
	SpanLoadGeoid     = "geoid.load"
	SpanRenderBarrier = "barrier.render"
)

// Attribute keys.
const (
	AttrAddressCount = attribute.Key("spatialtiles.address_count")
	AttrBarrierID    = attribute.Key("spatialtiles.barrier_id")
	AttrPayloadBytes = attribute.Key("spatialtiles.payload_bytes")
	AttrCacheHit     = attribute.Key("spatialtiles.cache_hit")
)
