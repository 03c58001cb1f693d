package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/pulseboard/publisher/internal/models"
	"github.com/pulseboard/publisher/internal/queue"
	"github.com/pulseboard/publisher/internal/service"
	"github.com/pulseboard/publisher/internal/transfer"
)

type PostHandler struct {
	s           service.PostService
	rc          service.RecurrenceService
	AsynqClient *asynq.Client
}

func NewPostHandler(s service.PostService, rc service.RecurrenceService, asynqClient *asynq.Client) *PostHandler {
	return &PostHandler{s: s, rc: rc, AsynqClient: asynqClient}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	form, err := c.MultipartForm()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	files := form.File["files"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No files selected",
		})
	}

	postID, delay, err := h.s.CreatePost(c.Context(), userID, &transfer.PostCreation{
		AccountID:         c.FormValue("account_id"),
		Platform:          c.FormValue("platform"),
		Content:           c.FormValue("content"),
		MediaType:         c.FormValue("media_type"),
		ScheduledFor:      c.FormValue("scheduled_for"),
		IsRecurring:       c.FormValue("is_recurring") == "true",
		RecurrencePattern: c.FormValue("recurrence_pattern"),
		RecurrenceEndDate: c.FormValue("recurrence_end_date"),
	}, files)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	err = queue.EnqueuePost(h.AsynqClient, queue.PublishPostPayload{PostID: postID}, delay)
	if err != nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"error": "Error scheduling post",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post scheduled successfully",
		"post_id": postID,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postID), userID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to get post",
			})
		}
		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) EditPost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var body struct {
		PostID    int64    `json:"post_id"`
		Content   string   `json:"content"`
		MediaURLs []string `json:"media_urls"`
		MediaType string   `json:"media_type"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	err := h.s.Edit(c.Context(), userID, body.PostID, body.Content, body.MediaURLs, models.MediaType(body.MediaType))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) RetryPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	err := h.s.Retry(c.Context(), userID, int64(postID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// ReschedulePost handles a calendar drag-drop: only the date moves, the
// time-of-day is preserved.
func (h *PostHandler) ReschedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var body struct {
		PostID int64  `json:"post_id"`
		Date   string `json:"date"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	date, err := time.Parse("2006-01-02", body.Date)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid date format",
		})
	}

	if err := h.rc.RescheduleDate(c.Context(), userID, body.PostID, date); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), userID, int64(postID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
