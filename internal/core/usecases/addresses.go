package usecases

import (
	"github.com/samirrijal/spatialtiles/internal/core/cuboid"
	"github.com/samirrijal/spatialtiles/internal/core/domain"
)

// AddressInput is a textual address plus the metadata to carry into the
// batch table.
type AddressInput struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// InternalBarrierKey is a 5-field internal barrier address. Barrier, when
// set, is expanded into typed batch-table metadata on top of Metadata.
type InternalBarrierKey struct {
	ID       string                      `json:"id"`
	Barrier  *domain.InternalBarrierInfo `json:"barrier,omitempty"`
	Metadata map[string]any              `json:"metadata,omitempty"`
}

// InternalBarrierRequest lists internal barrier keys sharing one global
// altitude span. Nil altitudes fall back to the configured defaults.
type InternalBarrierRequest struct {
	BottomAltitude *float64       `json:"bottomAltitude,omitempty"`
	TopAltitude    *float64       `json:"topAltitude,omitempty"`
	Keys           []InternalBarrierKey `json:"keys"`
}

// TilesetRequest names the cells of one tileset. Spatial IDs come first,
// internal barrier keys after them, each group in the given order.
type TilesetRequest struct {
	SpatialIDs       []AddressInput          `json:"spatialIds"`
	InternalBarriers *InternalBarrierRequest `json:"internalBarriers,omitempty"`
}

// Len returns the number of addresses in the request.
func (r TilesetRequest) Len() int {
	n := len(r.SpatialIDs)
	if r.InternalBarriers != nil {
		n += len(r.InternalBarriers.Keys)
	}
	return n
}

// AltitudeSpan is the default global altitude span for internal barrier keys.
type AltitudeSpan struct {
	Bottom float64
	Top    float64
}

// ParseSpatialIDs parses every input. The first malformed ID is returned as a
// *domain.ParseError.
func ParseSpatialIDs(inputs []AddressInput) ([]cuboid.Address, error) {
	out := make([]cuboid.Address, 0, len(inputs))
	for _, in := range inputs {
		id, err := domain.ParseSpatialID(in.ID, in.Metadata)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// ParseInternalBarriers parses internal barrier keys. Each key's metadata is
// copied, merged with its barrier info and tagged with internalBarrierId, the
// canonical address string.
func ParseInternalBarriers(req *InternalBarrierRequest, defaults AltitudeSpan) ([]cuboid.Address, error) {
	if req == nil {
		return nil, nil
	}
	bottom, top := defaults.Bottom, defaults.Top
	if req.BottomAltitude != nil {
		bottom = *req.BottomAltitude
	}
	if req.TopAltitude != nil {
		top = *req.TopAltitude
	}

	out := make([]cuboid.Address, 0, len(req.Keys))
	for _, k := range req.Keys {
		meta := make(map[string]any, len(k.Metadata)+1)
		for key, v := range k.Metadata {
			meta[key] = v
		}
		id, err := domain.ParseInternalBarrierID(k.ID, bottom, top, meta)
		if err != nil {
			return nil, err
		}
		if k.Barrier != nil {
			for key, v := range k.Barrier.Metadata(id.String()) {
				meta[key] = v
			}
		}
		meta["internalBarrierId"] = id.String()
		out = append(out, id)
	}
	return out, nil
}
