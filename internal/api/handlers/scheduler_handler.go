package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/crosscast/crosscast/internal/service"
	"github.com/crosscast/crosscast/internal/transfer"
)

type SchedulerHandler struct {
	pub service.Publisher
}

func NewSchedulerHandler(pub service.Publisher) *SchedulerHandler {
	return &SchedulerHandler{pub: pub}
}

// PublishDue is the pull-model trigger: an external timer hits this
// endpoint and one sweep over due posts runs. Safe to call repeatedly.
func (h *SchedulerHandler) PublishDue(c *fiber.Ctx) error {
	processed, err := h.pub.ProcessDue(c.Context(), time.Now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to process due posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(transfer.ScanResponse{
		Processed: processed,
		Message:   "due posts processed",
	})
}
