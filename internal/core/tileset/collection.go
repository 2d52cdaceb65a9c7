// Package tileset encodes cuboids as an instanced 3D model tile (i3dm) and a
// 3D Tiles tileset manifest.
package tileset

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"math"

	"github.com/samirrijal/spatialtiles/internal/core/domain"
)

// Collection is an immutable, ordered set of cuboids.
type Collection struct {
	cuboids []domain.Cuboid
}

// New creates a Collection from a finished list of cuboids.
func New(cuboids []domain.Cuboid) *Collection {
	return &Collection{cuboids: append([]domain.Cuboid(nil), cuboids...)}
}

// Len returns the number of cuboids.
func (c *Collection) Len() int {
	return len(c.cuboids)
}

// Cuboids returns a copy of the cuboids in order.
func (c *Collection) Cuboids() []domain.Cuboid {
	return append([]domain.Cuboid(nil), c.cuboids...)
}

// Region returns the union of all cuboid regions. An empty collection yields
// the zero region.
func (c *Collection) Region() domain.Region {
	if len(c.cuboids) == 0 {
		return domain.Region{}
	}

	r := c.cuboids[0].Region
	for _, cb := range c.cuboids[1:] {
		r[0] = math.Min(r[0], cb.Region[0]) // west
		r[1] = math.Min(r[1], cb.Region[1]) // south
		r[2] = math.Max(r[2], cb.Region[2]) // east
		r[3] = math.Max(r[3], cb.Region[3]) // north
		r[4] = math.Min(r[4], cb.Region[4]) // minHeight
		r[5] = math.Max(r[5], cb.Region[5]) // maxHeight
	}
	return r
}

// I3DMDataURL returns the i3dm payload as a base64 data URI.
func (c *Collection) I3DMDataURL() (string, error) {
	b, err := c.I3DM()
	if err != nil {
		return "", err
	}
	return DataURL(b, "application/octet-stream"), nil
}

// DataURL encodes data as a base64 "data:" URI of the given content type.
func DataURL(data []byte, contentType string) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// marshalJSON encodes v like encoding/json without escaping HTML characters
// and without a trailing newline.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
