package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/coordinator"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/metrics"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/pkg/logger"
)

type QueryHandler struct {
	coord *coordinator.Coordinator
}

func NewQueryHandler(coord *coordinator.Coordinator) *QueryHandler {
	return &QueryHandler{coord: coord}
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var req models.QueryRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// The header is authoritative for tenancy; a body value cannot widen it.
	if tenant := c.Get("X-Tenant-ID"); tenant != "" {
		req.TenantID = tenant
	}

	start := time.Now()
	resp := h.coord.Coordinate(c.Context(), &req)
	observe(resp, time.Since(start))

	return c.Status(statusFor(resp)).JSON(resp)
}

func observe(resp *models.QueryResponse, elapsed time.Duration) {
	domain := "unknown"
	if resp.Routing != nil && resp.Routing.Domain != "" {
		domain = resp.Routing.Domain
	}
	metrics.QueryDuration.WithLabelValues(domain).Observe(elapsed.Seconds())

	switch {
	case resp.ClarificationNeeded:
		metrics.QueryTotal.WithLabelValues("clarification").Inc()
		metrics.ClarificationsTotal.Inc()
	case resp.Success:
		metrics.QueryTotal.WithLabelValues("success").Inc()
		metrics.ConfidenceScore.Observe(resp.Confidence)
	case resp.Error != nil && resp.Error.Code == coordinator.ErrCodeTimeout:
		metrics.QueryTotal.WithLabelValues("timeout").Inc()
	default:
		metrics.QueryTotal.WithLabelValues("failed").Inc()
	}
}

func statusFor(resp *models.QueryResponse) int {
	if resp.Error == nil {
		return fiber.StatusOK
	}
	switch resp.Error.Code {
	case coordinator.ErrCodeInvalidRequest:
		return fiber.StatusBadRequest
	case coordinator.ErrCodeTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusBadGateway
	}
}
