package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/crosscast/crosscast/internal/queue"
	"github.com/crosscast/crosscast/internal/service"
	"github.com/crosscast/crosscast/internal/transfer"
)

type PostHandler struct {
	s           service.PostService
	pub         service.Publisher
	AsynqClient *asynq.Client
}

func NewPostHandler(service service.PostService, pub service.Publisher, asynqClient *asynq.Client) *PostHandler {
	return &PostHandler{s: service, pub: pub, AsynqClient: asynqClient}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	workspaceID := GetWorkspaceID(c)

	var pc transfer.PostCreation
	if err := c.BodyParser(&pc); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	postID, delay, err := h.s.CreatePost(c.Context(), workspaceID, &pc)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if !pc.Draft {
		err = queue.EnqueuePost(h.AsynqClient, queue.PublishPostPayload{PostID: postID}, delay)
		if err != nil {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"error": "Error scheduling post",
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post scheduled successfully",
		"post_id": postID,
	})
}

// PublishNow runs the fan-out inline and reports per-platform outcomes in
// the response. Partial failure comes back as 200 with a failed list.
func (h *PostHandler) PublishNow(c *fiber.Ctx) error {
	workspaceID := GetWorkspaceID(c)

	var req transfer.PublishNow
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	result, err := h.pub.PublishNow(c.Context(), workspaceID, &req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(transfer.FanoutResponse{
		PlatformPostIDs: result.PlatformPostIDs,
		Failed:          result.Failed,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	workspaceID := GetWorkspaceID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postID), workspaceID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to list posts",
			})
		}

		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), workspaceID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	workspaceID := GetWorkspaceID(c)
	postID := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), workspaceID, int64(postID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
