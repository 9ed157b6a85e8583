package health

import (
	"github.com/gofiber/fiber/v2"
)

type FiberHandler struct {
	service *Service
}

func NewFiberHandler(service *Service) *FiberHandler {
	return &FiberHandler{service: service}
}

// RegisterRoutes mounts the probes plus the Kubernetes-style aliases.
func (h *FiberHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health/live", h.Live)
	router.Get("/healthz", h.Live)
	router.Get("/health/ready", h.Ready)
	router.Get("/readyz", h.Ready)
}

func (h *FiberHandler) Live(c *fiber.Ctx) error {
	return c.JSON(h.service.Live())
}

func (h *FiberHandler) Ready(c *fiber.Ctx) error {
	report := h.service.Ready(c.UserContext())

	status := fiber.StatusOK
	if !report.Ready {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(report)
}
