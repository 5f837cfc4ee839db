package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-ve/internal/ports"
)

// ChargePointHandler exposes read-only charge point listing over HTTP
// (SPEC_FULL.md §4.9), backed directly by C2.
type ChargePointHandler struct {
	chargePoints ports.ChargePointRepository
	log          *zap.Logger
}

func NewChargePointHandler(chargePoints ports.ChargePointRepository, log *zap.Logger) *ChargePointHandler {
	return &ChargePointHandler{chargePoints: chargePoints, log: log}
}

// List handles GET /charge-points.
func (h *ChargePointHandler) List(c *fiber.Ctx) error {
	cps, err := h.chargePoints.List(c.Context())
	if err != nil {
		h.log.Error("failed to list charge points", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(cps)
}

// Get handles GET /charge-points/:id.
func (h *ChargePointHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	cp, err := h.chargePoints.Get(c.Context(), id)
	if err != nil {
		h.log.Error("failed to get charge point", zap.String("charge_point_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if cp == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "charge point not found"})
	}
	return c.JSON(cp)
}
