package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/spatialtiles/internal/core/domain"
)

// UpsertBarrierHandler stores the posted barrier.
func UpsertBarrierHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var b domain.Barrier
		if err := c.BodyParser(&b); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if deps.MaxAddresses > 0 && len(b.Definitions) > deps.MaxAddresses {
			return errBadRequest(c, "too many barrier definitions")
		}

		if err := deps.Barriers.Upsert(c.UserContext(), &b); err != nil {
			return errFrom(c, err)
		}
		c.Location("/v1/barriers/" + b.ID)
		return c.Status(fiber.StatusCreated).JSON(b)
	}
}

// ListBarriersHandler returns a page of barriers.
func ListBarriersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 20)
		offset := c.QueryInt("offset", 0)
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		if offset < 0 {
			offset = 0
		}

		barriers, err := deps.Barriers.List(c.UserContext(), limit, offset)
		if err != nil {
			return errFrom(c, err)
		}
		if barriers == nil {
			barriers = []domain.Barrier{}
		}

		pg := Pagination{Offset: offset, Limit: limit, HasMore: len(barriers) == limit}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: barriers, Pagination: pg})
	}
}

// GetBarrierHandler returns one barrier.
func GetBarrierHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		b, err := deps.Barriers.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(b)
	}
}

// DeleteBarrierHandler removes a barrier.
func DeleteBarrierHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Barriers.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errFrom(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// BarrierTilesetHandler renders a stored barrier's tileset manifest.
func BarrierTilesetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		b, err := deps.Barriers.RenderTileset(c.UserContext(), c.Params("id"), c.Query("content_url"))
		if err != nil {
			return errFrom(c, err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(b)
	}
}

// BarrierContentHandler renders a stored barrier's i3dm payload.
func BarrierContentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		b, err := deps.Barriers.RenderI3DM(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		c.Set(fiber.HeaderContentType, mimeOctetStream)
		return c.Send(b)
	}
}
