package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/spatialtiles/internal/core/cuboid"
	"github.com/samirrijal/spatialtiles/internal/core/domain"
	"github.com/samirrijal/spatialtiles/internal/core/usecases"
)

const mimeOctetStream = "application/octet-stream"

// CuboidResponse is the geometry of one spatial ID.
type CuboidResponse struct {
	SpatialID string `json:"spatialId"`
	domain.Cuboid
}

// GeoidResponse is a geoid height lookup.
type GeoidResponse struct {
	Lon    float64 `json:"lon"`
	Lat    float64 `json:"lat"`
	Height float64 `json:"height"`
}

// TilesetBody is the POST /v1/tilesets request.
type TilesetBody struct {
	usecases.TilesetRequest
	ContentURL string `json:"contentUrl,omitempty"`
	Format     string `json:"format,omitempty"` // "json" (default) | "dataurl"
}

// CuboidHandler returns the cuboid of the spatial ID in the path.
func CuboidHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.Join([]string{c.Params("z"), c.Params("f"), c.Params("x"), c.Params("y")}, "/")
		id, err := domain.ParseSpatialID(raw, nil)
		if err != nil {
			return errFrom(c, err)
		}

		cb, err := deps.Tilesets.Cuboid(c.UserContext(), id)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(CuboidResponse{SpatialID: id.String(), Cuboid: cb})
	}
}

// SpatialIDTilesetHandler returns the tileset manifest of ?ids=. Without
// ?content_url= the i3dm payload is embedded as a data URI.
func SpatialIDTilesetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		addrs, ok, err := queryAddresses(c, deps)
		if !ok {
			return err
		}

		b, err := deps.Tilesets.TilesetJSON(c.UserContext(), addrs, c.Query("content_url"))
		if err != nil {
			return errFrom(c, err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(b)
	}
}

// SpatialIDContentHandler returns the raw i3dm payload of ?ids=.
func SpatialIDContentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		addrs, ok, err := queryAddresses(c, deps)
		if !ok {
			return err
		}

		b, err := deps.Tilesets.I3DM(c.UserContext(), addrs)
		if err != nil {
			return errFrom(c, err)
		}
		c.Set(fiber.HeaderContentType, mimeOctetStream)
		return c.Send(b)
	}
}

// CreateTilesetHandler builds a tileset from spatial IDs and internal barrier
// keys posted as JSON.
func CreateTilesetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body TilesetBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if n := body.Len(); n == 0 {
			return errBadRequest(c, "at least one spatial id or internal barrier key is required")
		} else if deps.MaxAddresses > 0 && n > deps.MaxAddresses {
			return errBadRequest(c, fmt.Sprintf("too many addresses: %d (max %d)", n, deps.MaxAddresses))
		}

		addrs, err := deps.Tilesets.Addresses(body.TilesetRequest)
		if err != nil {
			return errFrom(c, err)
		}

		switch body.Format {
		case "", "json":
			b, err := deps.Tilesets.TilesetJSON(c.UserContext(), addrs, body.ContentURL)
			if err != nil {
				return errFrom(c, err)
			}
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(b)
		case "dataurl":
			u, err := deps.Tilesets.TilesetDataURL(c.UserContext(), addrs, body.ContentURL)
			if err != nil {
				return errFrom(c, err)
			}
			return c.JSON(fiber.Map{"dataUrl": u})
		default:
			return errBadRequest(c, "format must be json or dataurl")
		}
	}
}

// GeoidHandler returns the geoid height at ?lon=&lat= (degrees).
func GeoidHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lon, err := strconv.ParseFloat(c.Query("lon"), 64)
		if err != nil {
			return errBadRequest(c, "lon must be a number")
		}
		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			return errBadRequest(c, "lat must be a number")
		}

		h, err := deps.Geoid.Height(c.UserContext(), lon, lat)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(GeoidResponse{Lon: lon, Lat: lat, Height: h})
	}
}

// queryAddresses parses the comma-separated ?ids= list. When ok is false the
// error response has been written and err is what the handler returns.
func queryAddresses(c *fiber.Ctx, deps *Dependencies) (addrs []cuboid.Address, ok bool, err error) {
	raw := strings.TrimSpace(c.Query("ids"))
	if raw == "" {
		return nil, false, errBadRequest(c, "ids is required")
	}

	parts := strings.Split(raw, ",")
	if deps.MaxAddresses > 0 && len(parts) > deps.MaxAddresses {
		return nil, false, errBadRequest(c, fmt.Sprintf("too many addresses: %d (max %d)", len(parts), deps.MaxAddresses))
	}

	inputs := make([]usecases.AddressInput, len(parts))
	for i, p := range parts {
		inputs[i] = usecases.AddressInput{ID: strings.TrimSpace(p)}
	}
	addrs, err = usecases.ParseSpatialIDs(inputs)
	if err != nil {
		return nil, false, errFrom(c, err)
	}
	return addrs, true, nil
}
