package ocpp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/sigec-ve/internal/domain"
	"github.com/seu-repo/sigec-ve/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/sigec-ve/internal/observability/telemetry"
	"github.com/seu-repo/sigec-ve/internal/ports"
)

// CommandService is the operator command path (C7): RemoteStartTransaction,
// RemoteStopTransaction, ChangeAvailability, each pre-validated before any
// network I/O and each routed through a per-charge-point circuit breaker
// (spec.md §4.7, SPEC_FULL.md §4.7 [NEW]).
type CommandService struct {
	registry     *Registry
	chargePoints ports.ChargePointRepository
	sessionsRepo ports.SessionRepository
	tags         *TagResolver
	breakers     *circuitbreaker.Manager
	breakerCfg   circuitbreaker.Settings
	log          *zap.Logger
}

func NewCommandService(
	registry *Registry,
	chargePoints ports.ChargePointRepository,
	sessionsRepo ports.SessionRepository,
	tags *TagResolver,
	breakers *circuitbreaker.Manager,
	breakerCfg circuitbreaker.Settings,
	log *zap.Logger,
) *CommandService {
	return &CommandService{
		registry:     registry,
		chargePoints: chargePoints,
		sessionsRepo: sessionsRepo,
		tags:         tags,
		breakers:     breakers,
		breakerCfg:   breakerCfg,
		log:          log,
	}
}

func (c *CommandService) breakerFor(cpID string) *circuitbreaker.CircuitBreaker {
	return c.breakers.Get("ocpp-command:"+cpID, c.breakerCfg)
}

// RemoteStartResult is the outcome of RemoteStartTransaction.
type RemoteStartResult struct {
	Success     bool       `json:"success"`
	Status      string     `json:"status"`
	CpID        string     `json:"cpId"`
	IdTag       string     `json:"idTag"`
	ConnectorID *int       `json:"connectorId,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Error       string     `json:"error,omitempty"`
	IdTagStatus string     `json:"idTagStatus,omitempty"`
}

type remoteStartTransactionReq struct {
	ConnectorID     *int        `json:"connectorId,omitempty"`
	IdTag           string      `json:"idTag"`
	ChargingProfile interface{} `json:"chargingProfile,omitempty"`
}

type remoteStartTransactionResp struct {
	Status string `json:"status"`
}

// RemoteStartTransaction pre-validates the tag, resolves the live session,
// and sends the Call, per spec.md §4.7.
func (c *CommandService) RemoteStartTransaction(ctx context.Context, cpID, idTag string, connectorID *int, chargingProfile interface{}) RemoteStartResult {
	start := time.Now()
	resolved := c.tags.Resolve(ctx, idTag)
	if resolved.Status != domain.IdTagStatusAccepted {
		telemetry.RecordCommand("RemoteStartTransaction", "rejected", time.Since(start).Seconds())
		return RemoteStartResult{
			Success:     false,
			Status:      "Rejected",
			CpID:        cpID,
			IdTag:       idTag,
			ConnectorID: connectorID,
			IdTagStatus: string(resolved.Status),
		}
	}

	session, err := c.registry.Lookup(ctx, cpID)
	if err != nil {
		outcome := "offline"
		telemetry.RecordCommand("RemoteStartTransaction", outcome, time.Since(start).Seconds())
		return RemoteStartResult{Success: false, Status: "Rejected", CpID: cpID, IdTag: idTag, ConnectorID: connectorID, Error: err.Error()}
	}

	result, err := c.breakerFor(cpID).ExecuteCtx(ctx, func(ctx context.Context) (interface{}, error) {
		return session.SendCall(ctx, "RemoteStartTransaction", remoteStartTransactionReq{
			ConnectorID:     connectorID,
			IdTag:           idTag,
			ChargingProfile: chargingProfile,
		})
	})
	if err != nil {
		outcome := commandFailureOutcome(err)
		telemetry.RecordCommand("RemoteStartTransaction", outcome, time.Since(start).Seconds())
		return RemoteStartResult{Success: false, Status: "Rejected", CpID: cpID, IdTag: idTag, ConnectorID: connectorID, Error: err.Error()}
	}

	var resp remoteStartTransactionResp
	if err := unmarshalCallResult(result, &resp); err != nil {
		telemetry.RecordCommand("RemoteStartTransaction", "protocol_error", time.Since(start).Seconds())
		return RemoteStartResult{Success: false, Status: "Rejected", CpID: cpID, IdTag: idTag, ConnectorID: connectorID, Error: err.Error()}
	}

	now := Now()
	telemetry.RecordCommand("RemoteStartTransaction", "accepted", time.Since(start).Seconds())
	return RemoteStartResult{
		Success:     true,
		Status:      resp.Status,
		CpID:        cpID,
		IdTag:       idTag,
		ConnectorID: connectorID,
		Timestamp:   &now,
	}
}

// RemoteStopResult is the outcome of RemoteStopTransaction.
type RemoteStopResult struct {
	Success       bool       `json:"success"`
	Status        string     `json:"status"`
	CpID          string     `json:"cpId"`
	TransactionID int        `json:"transactionId"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	Error         string     `json:"error,omitempty"`
}

type remoteStopTransactionReq struct {
	TransactionID int `json:"transactionId"`
}

type remoteStopTransactionResp struct {
	Status string `json:"status"`
}

// RemoteStopTransaction pre-validates the transaction belongs to cpID and is
// active, then sends the Call, per spec.md §4.7.
func (c *CommandService) RemoteStopTransaction(ctx context.Context, cpID string, transactionID int) RemoteStopResult {
	start := time.Now()

	existing, err := c.sessionsRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		telemetry.RecordCommand("RemoteStopTransaction", "lookup_error", time.Since(start).Seconds())
		return RemoteStopResult{Success: false, Status: "Rejected", CpID: cpID, TransactionID: transactionID, Error: err.Error()}
	}
	if existing == nil || existing.ChargePointID != cpID || existing.Status != domain.SessionStatusActive {
		telemetry.RecordCommand("RemoteStopTransaction", "rejected", time.Since(start).Seconds())
		return RemoteStopResult{Success: false, Status: "Rejected", CpID: cpID, TransactionID: transactionID}
	}

	session, err := c.registry.Lookup(ctx, cpID)
	if err != nil {
		telemetry.RecordCommand("RemoteStopTransaction", "offline", time.Since(start).Seconds())
		return RemoteStopResult{Success: false, Status: "Rejected", CpID: cpID, TransactionID: transactionID, Error: err.Error()}
	}

	result, err := c.breakerFor(cpID).ExecuteCtx(ctx, func(ctx context.Context) (interface{}, error) {
		return session.SendCall(ctx, "RemoteStopTransaction", remoteStopTransactionReq{TransactionID: transactionID})
	})
	if err != nil {
		outcome := commandFailureOutcome(err)
		telemetry.RecordCommand("RemoteStopTransaction", outcome, time.Since(start).Seconds())
		return RemoteStopResult{Success: false, Status: "Rejected", CpID: cpID, TransactionID: transactionID, Error: err.Error()}
	}

	var resp remoteStopTransactionResp
	if err := unmarshalCallResult(result, &resp); err != nil {
		telemetry.RecordCommand("RemoteStopTransaction", "protocol_error", time.Since(start).Seconds())
		return RemoteStopResult{Success: false, Status: "Rejected", CpID: cpID, TransactionID: transactionID, Error: err.Error()}
	}

	now := Now()
	telemetry.RecordCommand("RemoteStopTransaction", "accepted", time.Since(start).Seconds())
	return RemoteStopResult{Success: true, Status: resp.Status, CpID: cpID, TransactionID: transactionID, Timestamp: &now}
}

// ChangeAvailabilityResult is the outcome of ChangeAvailability.
type ChangeAvailabilityResult struct {
	Status      string     `json:"status"`
	CpID        string     `json:"cpId"`
	ConnectorID int        `json:"connectorId"`
	Type        string     `json:"type"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Error       string     `json:"error,omitempty"`
}

type changeAvailabilityReq struct {
	ConnectorID int    `json:"connectorId"`
	Type        string `json:"type"`
}

type changeAvailabilityResp struct {
	Status string `json:"status"`
}

// ChangeAvailability validates inputs, requires both the DB row and the
// registry to agree the CP is online, then sends the Call, per spec.md §4.7.
func (c *CommandService) ChangeAvailability(ctx context.Context, cpID string, connectorID int, availabilityType string) ChangeAvailabilityResult {
	start := time.Now()

	if availabilityType != "Operative" && availabilityType != "Inoperative" {
		telemetry.RecordCommand("ChangeAvailability", "rejected", time.Since(start).Seconds())
		return ChangeAvailabilityResult{Status: "Rejected", CpID: cpID, ConnectorID: connectorID, Type: availabilityType, Error: "invalid type"}
	}
	if connectorID != 0 && connectorID != 1 {
		telemetry.RecordCommand("ChangeAvailability", "rejected", time.Since(start).Seconds())
		return ChangeAvailabilityResult{Status: "Rejected", CpID: cpID, ConnectorID: connectorID, Type: availabilityType, Error: "invalid connectorId"}
	}

	cp, err := c.chargePoints.Get(ctx, cpID)
	if err != nil || cp == nil || !cp.IsOnline {
		telemetry.RecordCommand("ChangeAvailability", "offline", time.Since(start).Seconds())
		return ChangeAvailabilityResult{Status: "Rejected", CpID: cpID, ConnectorID: connectorID, Type: availabilityType, Error: "charge point not online"}
	}

	session, err := c.registry.Lookup(ctx, cpID)
	if err != nil {
		telemetry.RecordCommand("ChangeAvailability", "offline", time.Since(start).Seconds())
		return ChangeAvailabilityResult{Status: "Rejected", CpID: cpID, ConnectorID: connectorID, Type: availabilityType, Error: err.Error()}
	}

	result, err := c.breakerFor(cpID).ExecuteCtx(ctx, func(ctx context.Context) (interface{}, error) {
		return session.SendCall(ctx, "ChangeAvailability", changeAvailabilityReq{ConnectorID: connectorID, Type: availabilityType})
	})
	if err != nil {
		outcome := commandFailureOutcome(err)
		telemetry.RecordCommand("ChangeAvailability", outcome, time.Since(start).Seconds())
		return ChangeAvailabilityResult{Status: "Rejected", CpID: cpID, ConnectorID: connectorID, Type: availabilityType, Error: err.Error()}
	}

	var resp changeAvailabilityResp
	if err := unmarshalCallResult(result, &resp); err != nil {
		telemetry.RecordCommand("ChangeAvailability", "protocol_error", time.Since(start).Seconds())
		return ChangeAvailabilityResult{Status: "Rejected", CpID: cpID, ConnectorID: connectorID, Type: availabilityType, Error: err.Error()}
	}

	now := Now()
	telemetry.RecordCommand("ChangeAvailability", resp.Status, time.Since(start).Seconds())
	return ChangeAvailabilityResult{Status: resp.Status, CpID: cpID, ConnectorID: connectorID, Type: availabilityType, Timestamp: &now}
}

// commandFailureOutcome labels a C7 failure for the outcome metric: an open
// breaker is a distinct fast-fail path from a genuine wire timeout.
func commandFailureOutcome(err error) string {
	if circuitbreaker.IsCircuitOpen(err) {
		return "circuit_open"
	}
	if errors.Is(err, ErrTimeout) {
		return "timeout"
	}
	return "send_error"
}

func unmarshalCallResult(raw interface{}, out interface{}) error {
	b, ok := raw.(json.RawMessage)
	if !ok {
		return errUnexpectedCallResult
	}
	return json.Unmarshal(b, out)
}

var errUnexpectedCallResult = errors.New("ocpp: unexpected CallResult payload shape")
