package handlers

import (
	"github.com/gofiber/fiber/v2"
	job "github.com/postpilothq/postpilot/internal/jobs"
	"github.com/postpilothq/postpilot/internal/service"
)

type ScheduleHandler struct {
	planner  service.PlannerService
	sweepJob *job.SweepJob
}

func NewScheduleHandler(planner service.PlannerService, sweepJob *job.SweepJob) *ScheduleHandler {
	return &ScheduleHandler{planner: planner, sweepJob: sweepJob}
}

// AutoSchedule assigns every unscheduled draft of the caller to a slot.
func (h *ScheduleHandler) AutoSchedule(c *fiber.Ctx) error {
	userID := GetUserID(c)

	result, err := h.planner.AutoSchedule(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to auto-schedule drafts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// RunPublish triggers one publish sweep on demand. Shares the in-flight
// guard with the cron tick, so concurrent triggers cannot double-publish.
func (h *ScheduleHandler) RunPublish(c *fiber.Ctx) error {
	result, ok := h.sweepJob.TryRun(c.Context())
	if !ok {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A publish sweep is already running",
		})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
