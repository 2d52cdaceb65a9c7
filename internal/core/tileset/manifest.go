package tileset

import "github.com/samirrijal/spatialtiles/internal/core/domain"

const (
	rootGeometricError = 1000
	refineAdd          = "ADD"
)

// Tileset is a 3D Tiles tileset manifest.
type Tileset struct {
	Asset      Asset          `json:"asset"`
	Properties map[string]any `json:"properties"`
	Root       Tile           `json:"root"`
}

// Asset carries the 3D Tiles version.
type Asset struct {
	Version string `json:"version"`
}

// Tile is a node of the tileset hierarchy.
type Tile struct {
	BoundingVolume BoundingVolume `json:"boundingVolume"`
	GeometricError float64        `json:"geometricError"`
	Refine         string         `json:"refine,omitempty"`
	Content        *Content       `json:"content,omitempty"`
	Children       []Tile         `json:"children,omitempty"`
}

// BoundingVolume is a geodetic region volume.
type BoundingVolume struct {
	Region domain.Region `json:"region"`
}

// Content points at a tile payload.
type Content struct {
	URI string `json:"uri"`
}

// Tileset builds the manifest: a root spanning the collection's region with a
// single child whose content is contentURL. An empty contentURL embeds the
// i3dm payload as a data URI.
func (c *Collection) Tileset(contentURL string) (*Tileset, error) {
	region := c.Region()

	if contentURL == "" {
		u, err := c.I3DMDataURL()
		if err != nil {
			return nil, err
		}
		contentURL = u
	}

	return &Tileset{
		Asset:      Asset{Version: "1.0"},
		Properties: map[string]any{},
		Root: Tile{
			BoundingVolume: BoundingVolume{Region: region},
			GeometricError: rootGeometricError,
			Refine:         refineAdd,
			Children: []Tile{{
				BoundingVolume: BoundingVolume{Region: region},
				GeometricError: 0,
				Content:        &Content{URI: contentURL},
			}},
		},
	}, nil
}

// TilesetJSON returns the encoded manifest.
func (c *Collection) TilesetJSON(contentURL string) ([]byte, error) {
	ts, err := c.Tileset(contentURL)
	if err != nil {
		return nil, err
	}
	return marshalJSON(ts)
}

// TilesetDataURL returns the encoded manifest as a JSON data URI.
func (c *Collection) TilesetDataURL(contentURL string) (string, error) {
	b, err := c.TilesetJSON(contentURL)
	if err != nil {
		return "", err
	}
	return DataURL(b, "application/json"), nil
}
