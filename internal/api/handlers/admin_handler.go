package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/coordinator"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/pkg/logger"
)

type AdminHandler struct {
	coord *coordinator.Coordinator
}

func NewAdminHandler(coord *coordinator.Coordinator) *AdminHandler {
	return &AdminHandler{coord: coord}
}

// GetHealth aggregates collaborator health into an overall status: one
// unhealthy collaborator makes the service unhealthy, one degraded makes
// it degraded.
func (h *AdminHandler) GetHealth(c *fiber.Ctx) error {
	statuses := h.coord.GetHealthStatus()

	overall := coordinator.HealthHealthy
	for _, status := range statuses {
		if status.Status == coordinator.HealthUnhealthy {
			overall = coordinator.HealthUnhealthy
			break
		}
		if status.Status == coordinator.HealthDegraded {
			overall = coordinator.HealthDegraded
		}
	}

	httpStatus := fiber.StatusOK
	if overall == coordinator.HealthUnhealthy {
		httpStatus = fiber.StatusServiceUnavailable
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":        overall,
		"collaborators": statuses,
	})
}

func (h *AdminHandler) GetMetrics(c *fiber.Ctx) error {
	return c.JSON(h.coord.GetMetrics())
}

func (h *AdminHandler) ClearCache(c *fiber.Ctx) error {
	if err := h.coord.ClearCache(c.Context()); err != nil {
		logger.Error("Failed to clear cache", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear cache",
		})
	}
	return c.JSON(fiber.Map{"cleared": true})
}

func (h *AdminHandler) GetActiveFlows(c *fiber.Ctx) error {
	flows := h.coord.GetActiveFlows()
	return c.JSON(fiber.Map{
		"count": len(flows),
		"flows": flows,
	})
}
