package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-ve/internal/ocpp"
)

// CommandHandler exposes the C7 operator command path over HTTP
// (spec.md §6's "operator-facing command interface", SPEC_FULL.md §4.9).
type CommandHandler struct {
	commands *ocpp.CommandService
	log      *zap.Logger
}

func NewCommandHandler(commands *ocpp.CommandService, log *zap.Logger) *CommandHandler {
	return &CommandHandler{commands: commands, log: log}
}

type remoteStartRequest struct {
	CpID            string      `json:"cpId"`
	IdTag           string      `json:"idTag"`
	ConnectorID     *int        `json:"connectorId,omitempty"`
	ChargingProfile interface{} `json:"chargingProfile,omitempty"`
}

// RemoteStart handles POST /commands/remote-start.
func (h *CommandHandler) RemoteStart(c *fiber.Ctx) error {
	var req remoteStartRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.CpID == "" || req.IdTag == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cpId and idTag are required"})
	}

	result := h.commands.RemoteStartTransaction(c.Context(), req.CpID, req.IdTag, req.ConnectorID, req.ChargingProfile)
	return c.JSON(result)
}

type remoteStopRequest struct {
	CpID          string `json:"cpId"`
	TransactionID int    `json:"transactionId"`
}

// RemoteStop handles POST /commands/remote-stop.
func (h *CommandHandler) RemoteStop(c *fiber.Ctx) error {
	var req remoteStopRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.CpID == "" || req.TransactionID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cpId and transactionId are required"})
	}

	result := h.commands.RemoteStopTransaction(c.Context(), req.CpID, req.TransactionID)
	return c.JSON(result)
}

type changeAvailabilityRequest struct {
	CpID        string `json:"cpId"`
	ConnectorID int    `json:"connectorId"`
	Type        string `json:"type"`
}

// ChangeAvailabilityHTTP handles POST /commands/change-availability.
func (h *CommandHandler) ChangeAvailabilityHTTP(c *fiber.Ctx) error {
	var req changeAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.CpID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cpId is required"})
	}

	result := h.commands.ChangeAvailability(c.Context(), req.CpID, req.ConnectorID, req.Type)
	return c.JSON(result)
}
