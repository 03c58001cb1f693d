package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pulseboard/publisher/internal/models"
	"github.com/pulseboard/publisher/internal/service"
)

// PublishHandler exposes the two dispatch entry points: the per-platform
// batch trigger and the manual "publish now" for a single post.
type PublishHandler struct {
	dispatch service.DispatchService
}

func NewPublishHandler(dispatch service.DispatchService) *PublishHandler {
	return &PublishHandler{dispatch: dispatch}
}

func (h *PublishHandler) RunDue(c *fiber.Ctx) error {
	platform := models.Platform(c.Params("platform"))
	if !platform.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown platform",
		})
	}

	report, err := h.dispatch.RunDue(c.Context(), platform)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(report)
}

func (h *PublishHandler) PublishNow(c *fiber.Ctx) error {
	var body struct {
		PostID int64 `json:"postId"`
	}
	if err := c.BodyParser(&body); err != nil || body.PostID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing post id",
		})
	}

	report, err := h.dispatch.PublishNow(c.Context(), body.PostID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(report)
}
