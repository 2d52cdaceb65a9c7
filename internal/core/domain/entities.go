package domain

import "time"

// BarrierStatus mirrors the lifecycle reported by the route service.
type BarrierStatus string

const (
	BarrierStatusActive   BarrierStatus = "ACTIVE"
	BarrierStatusInactive BarrierStatus = "INACTIVE"
)

// Barrier is a no-fly volume made of one or more spatial-ID cells.
type Barrier struct {
	ID          string              `json:"id"`
	Definitions []BarrierDefinition `json:"barrierDefinitions"`
	Status      BarrierStatus       `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// BarrierDefinition is one cell of a barrier with its risk level.
type BarrierDefinition struct {
	SpatialID string `json:"spatialId"`
	Risk      int    `json:"risk"`
}

// SpatialIDs parses every definition into a SpatialID carrying
// {barrierId, spatialId, risk} metadata.
func (b *Barrier) SpatialIDs() ([]SpatialID, error) {
	ids := make([]SpatialID, 0, len(b.Definitions))
	for _, d := range b.Definitions {
		id, err := ParseSpatialID(d.SpatialID, map[string]any{
			"barrierId": b.ID,
			"spatialId": d.SpatialID,
			"risk":      d.Risk,
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// InternalBarrierInfo is the metadata shown for an internal barrier model.
type InternalBarrierInfo struct {
	ID        string `json:"id"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
	GroupID   string `json:"groupId,omitempty"`
}

// Metadata converts the info into batch-table metadata. internalBarrierId is
// the address string of the cell the model lives in; empty optional fields
// are left out.
func (i InternalBarrierInfo) Metadata(address string) map[string]any {
	m := map[string]any{
		"id":                i.ID,
		"internalBarrierId": address,
	}
	if i.StartTime != "" {
		m["startTime"] = i.StartTime
	}
	if i.EndTime != "" {
		m["endTime"] = i.EndTime
	}
	if i.GroupID != "" {
		m["groupId"] = i.GroupID
	}
	return m
}
