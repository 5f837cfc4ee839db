package ocpp

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/sigec-ve/internal/domain"
	"github.com/seu-repo/sigec-ve/internal/observability/telemetry"
	"github.com/seu-repo/sigec-ve/internal/ports"
)

// Handlers implements the seven inbound domain handlers (C6, spec.md §4.4).
// Every write sequence is: compute response payload, mutate via the
// repositories, return payload; a storage failure is logged but still
// answered with a valid OCPP response, except where StartTransaction and
// StopTransaction carry their own rules.
type Handlers struct {
	chargePoints      ports.ChargePointRepository
	sessionsRepo      ports.SessionRepository
	meterValues       ports.MeterValueRepository
	connectorStatuses ports.ConnectorStatusRepository
	tags              *TagResolver
	events            *EventPublisher
	meterRate         *meterValueLimiter
	log               *zap.Logger
}

func NewHandlers(
	chargePoints ports.ChargePointRepository,
	sessionsRepo ports.SessionRepository,
	meterValues ports.MeterValueRepository,
	connectorStatuses ports.ConnectorStatusRepository,
	tags *TagResolver,
	events *EventPublisher,
	cache ports.Cache,
	log *zap.Logger,
) *Handlers {
	return &Handlers{
		chargePoints:      chargePoints,
		sessionsRepo:      sessionsRepo,
		meterValues:       meterValues,
		connectorStatuses: connectorStatuses,
		tags:              tags,
		events:            events,
		meterRate:         newMeterValueLimiter(cache),
		log:               log,
	}
}

// Register binds all seven inbound actions onto d.
func (h *Handlers) Register(d *Dispatcher) {
	d.Register("BootNotification", ActionHandlerFunc(h.BootNotification))
	d.Register("Heartbeat", ActionHandlerFunc(h.Heartbeat))
	d.Register("Authorize", ActionHandlerFunc(h.Authorize))
	d.Register("StartTransaction", ActionHandlerFunc(h.StartTransaction))
	d.Register("StopTransaction", ActionHandlerFunc(h.StopTransaction))
	d.Register("MeterValues", ActionHandlerFunc(h.MeterValues))
	d.Register("StatusNotification", ActionHandlerFunc(h.StatusNotification))
}

type idTagInfo struct {
	Status      domain.IdTagStatus `json:"status"`
	ExpiryDate  string             `json:"expiryDate,omitempty"`
	ParentIdTag string             `json:"parentIdTag,omitempty"`
}

func toIdTagInfo(r ResolvedTag) idTagInfo {
	info := idTagInfo{Status: r.Status}
	if r.ExpiryDate != nil {
		info.ExpiryDate = FormatTime(*r.ExpiryDate)
	}
	if r.ParentIdTag != nil {
		info.ParentIdTag = *r.ParentIdTag
	}
	return info
}

// --- BootNotification ---

type bootNotificationReq struct {
	ChargePointVendor       string `json:"chargePointVendor"`
	ChargePointModel        string `json:"chargePointModel"`
	ChargePointSerialNumber string `json:"chargePointSerialNumber,omitempty"`
	ChargeBoxSerialNumber   string `json:"chargeBoxSerialNumber,omitempty"`
	FirmwareVersion         string `json:"firmwareVersion,omitempty"`
	Iccid                   string `json:"iccid,omitempty"`
	Imsi                    string `json:"imsi,omitempty"`
	MeterType               string `json:"meterType,omitempty"`
	MeterSerialNumber       string `json:"meterSerialNumber,omitempty"`
}

type bootNotificationResp struct {
	Status      string `json:"status"`
	CurrentTime string `json:"currentTime"`
	Interval    int    `json:"interval"`
}

func (h *Handlers) BootNotification(ctx context.Context, cpID string, session *Session, payload json.RawMessage) (interface{}, *CallError) {
	telemetry.RecordOCPPMessage("BootNotification", true)
	var req bootNotificationReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, NewCallError(ErrorFormationViolation, "invalid BootNotification payload")
	}

	now := Now()
	existing, err := h.chargePoints.Get(ctx, cpID)
	if err != nil {
		h.log.Error("BootNotification: lookup failed", zap.String("charge_point_id", cpID), zap.Error(err))
	}

	cp := domain.ChargePoint{
		ID:                      cpID,
		Vendor:                  req.ChargePointVendor,
		Model:                   req.ChargePointModel,
		ChargePointSerialNumber: req.ChargePointSerialNumber,
		ChargeBoxSerialNumber:   req.ChargeBoxSerialNumber,
		FirmwareVersion:         req.FirmwareVersion,
		ICCID:                   req.Iccid,
		IMSI:                    req.Imsi,
		MeterType:               req.MeterType,
		MeterSerialNumber:       req.MeterSerialNumber,
		IsOnline:                true,
		LastSeen:                now,
		BootStatus:              domain.BootStatusAccepted,
	}
	if existing != nil {
		cp.Status = existing.Status
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.Status = domain.ChargePointStatusAvailable
	}

	if err := h.chargePoints.Upsert(ctx, &cp); err != nil {
		h.log.Error("BootNotification: upsert failed", zap.String("charge_point_id", cpID), zap.Error(err))
	} else {
		h.events.ChargePointConnected(cpID, req.ChargePointVendor, req.ChargePointModel, now)
	}

	return bootNotificationResp{
		Status:      "Accepted",
		CurrentTime: FormatTime(now),
		Interval:    300,
	}, nil
}

// --- Heartbeat ---

type heartbeatResp struct {
	CurrentTime string `json:"currentTime"`
}

func (h *Handlers) Heartbeat(ctx context.Context, cpID string, session *Session, payload json.RawMessage) (interface{}, *CallError) {
	telemetry.RecordOCPPMessage("Heartbeat", true)
	now := Now()
	if err := h.chargePoints.SetOnline(ctx, cpID, true, now); err != nil {
		h.log.Warn("Heartbeat: failed to update charge point", zap.String("charge_point_id", cpID), zap.Error(err))
	}
	return heartbeatResp{CurrentTime: FormatTime(now)}, nil
}

// --- Authorize ---

type authorizeReq struct {
	IdTag string `json:"idTag"`
}

type authorizeResp struct {
	IdTagInfo idTagInfo `json:"idTagInfo"`
}

func (h *Handlers) Authorize(ctx context.Context, cpID string, session *Session, payload json.RawMessage) (interface{}, *CallError) {
	telemetry.RecordOCPPMessage("Authorize", true)
	var req authorizeReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, NewCallError(ErrorFormationViolation, "invalid Authorize payload")
	}
	resolved := h.tags.Resolve(ctx, req.IdTag)
	return authorizeResp{IdTagInfo: toIdTagInfo(resolved)}, nil
}

// --- StartTransaction ---

type startTransactionReq struct {
	ConnectorID   int    `json:"connectorId"`
	IdTag         string `json:"idTag"`
	MeterStart    int    `json:"meterStart"`
	Timestamp     string `json:"timestamp"`
	ReservationID *int   `json:"reservationId,omitempty"`
}

type startTransactionResp struct {
	TransactionID int       `json:"transactionId"`
	IdTagInfo     idTagInfo `json:"idTagInfo"`
}

const (
	txIDMin      = 100000
	txIDMax      = 999999
	txIDMaxTries = 20
)

func (h *Handlers) StartTransaction(ctx context.Context, cpID string, session *Session, payload json.RawMessage) (interface{}, *CallError) {
	telemetry.RecordOCPPMessage("StartTransaction", true)
	var req startTransactionReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, NewCallError(ErrorFormationViolation, "invalid StartTransaction payload")
	}

	startTime, err := ParseTime(req.Timestamp)
	if err != nil {
		startTime = Now()
	}

	var txID int
	var reservationID *int
	if req.ReservationID != nil {
		reservationID = req.ReservationID
	}

	var resolved ResolvedTag
	txErr := h.sessionsRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		resolved = h.tags.Resolve(ctx, req.IdTag)
		if resolved.Status != domain.IdTagStatusAccepted {
			return nil
		}
		for i := 0; i < txIDMaxTries; i++ {
			candidate := txIDMin + rand.Intn(txIDMax-txIDMin+1)
			taken, err := h.sessionsRepo.IsTxIDTaken(ctx, candidate)
			if err != nil {
				return err
			}
			if !taken {
				txID = candidate
				break
			}
		}
		if txID == 0 {
			return errTxIDExhausted
		}

		newSession := &domain.Session{
			TransactionID:  txID,
			ChargePointID:  cpID,
			IdTagID:        resolved.IdTagID,
			ConnectorID:    req.ConnectorID,
			MeterStart:     req.MeterStart,
			StartTimestamp: startTime,
			Status:         domain.SessionStatusActive,
			ReservationID:  reservationID,
		}
		return h.sessionsRepo.CreateSession(ctx, newSession)
	})

	if txErr != nil {
		h.log.Error("StartTransaction: failed to allocate session", zap.String("charge_point_id", cpID), zap.Error(txErr))
		return startTransactionResp{
			TransactionID: 0,
			IdTagInfo:     idTagInfo{Status: domain.IdTagStatusInvalid},
		}, nil
	}
	if resolved.Status != domain.IdTagStatusAccepted {
		return startTransactionResp{TransactionID: 0, IdTagInfo: toIdTagInfo(resolved)}, nil
	}

	h.events.SessionStarted(cpID, txID, req.ConnectorID, req.IdTag, startTime)

	return startTransactionResp{
		TransactionID: txID,
		IdTagInfo:     idTagInfo{Status: domain.IdTagStatusAccepted},
	}, nil
}

var errTxIDExhausted = NewCallError(ErrorInternalError, "could not allocate a unique transaction id")

// --- StopTransaction ---

type transactionDataEntry struct {
	Timestamp     string              `json:"timestamp"`
	SampledValue  []sampledValueEntry `json:"sampledValue"`
}

type stopTransactionReq struct {
	TransactionID   int                    `json:"transactionId"`
	Timestamp       string                 `json:"timestamp"`
	MeterStop       int                    `json:"meterStop"`
	IdTag           string                 `json:"idTag,omitempty"`
	Reason          string                 `json:"reason,omitempty"`
	TransactionData []transactionDataEntry `json:"transactionData,omitempty"`
}

type stopTransactionResp struct {
	IdTagInfo *idTagInfo `json:"idTagInfo,omitempty"`
}

func (h *Handlers) StopTransaction(ctx context.Context, cpID string, session *Session, payload json.RawMessage) (interface{}, *CallError) {
	telemetry.RecordOCPPMessage("StopTransaction", true)
	var req stopTransactionReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, NewCallError(ErrorFormationViolation, "invalid StopTransaction payload")
	}

	existing, err := h.sessionsRepo.GetByTransactionID(ctx, req.TransactionID)
	if err != nil {
		h.log.Error("StopTransaction: lookup failed", zap.Int("transaction_id", req.TransactionID), zap.Error(err))
	}

	resp := stopTransactionResp{}
	if req.IdTag != "" {
		resolved := h.tags.Resolve(ctx, req.IdTag)
		info := toIdTagInfo(resolved)
		resp.IdTagInfo = &info
	}

	if existing == nil || existing.Status != domain.SessionStatusActive {
		// OCPP requires the CS to accept the stop unconditionally even when
		// no matching active session is known.
		return resp, nil
	}

	stopTime, err := ParseTime(req.Timestamp)
	if err != nil {
		stopTime = Now()
	}
	reason := domain.StopReason(req.Reason)
	if reason == "" {
		reason = domain.StopReasonLocal
	}
	energyConsumed := float64(req.MeterStop-existing.MeterStart) / 1000.0

	fields := ports.SessionStopFields{
		MeterStop:      req.MeterStop,
		StopTimestamp:  stopTime,
		Status:         domain.SessionStatusCompleted,
		StopReason:     reason,
		EnergyConsumed: &energyConsumed,
	}
	if err := h.sessionsRepo.UpdateStop(ctx, req.TransactionID, fields); err != nil {
		h.log.Error("StopTransaction: update failed", zap.Int("transaction_id", req.TransactionID), zap.Error(err))
	} else {
		h.events.SessionStopped(cpID, req.TransactionID, &energyConsumed, stopTime)
	}

	if len(req.TransactionData) > 0 {
		rows := make([]domain.MeterValue, 0, len(req.TransactionData))
		sessionID := existing.ID
		for _, entry := range req.TransactionData {
			ts, err := ParseTime(entry.Timestamp)
			if err != nil {
				ts = stopTime
			}
			rows = append(rows, sampledValuesToRows(&sessionID, ts, entry.SampledValue, "Transaction.End")...)
		}
		if len(rows) > 0 {
			if err := h.meterValues.Append(ctx, rows); err != nil {
				h.log.Warn("StopTransaction: failed to append transactionData meter values", zap.Error(err))
			}
		}
	}

	return resp, nil
}

// --- MeterValues ---

type sampledValueEntry struct {
	Value     string `json:"value"`
	Measurand string `json:"measurand,omitempty"`
	Phase     string `json:"phase,omitempty"`
	Unit      string `json:"unit,omitempty"`
	Location  string `json:"location,omitempty"`
	Format    string `json:"format,omitempty"`
	Context   string `json:"context,omitempty"`
}

type meterValueEntry struct {
	Timestamp    string              `json:"timestamp"`
	SampledValue []sampledValueEntry `json:"sampledValue"`
}

type meterValuesReq struct {
	ConnectorID   int               `json:"connectorId"`
	TransactionID *int              `json:"transactionId,omitempty"`
	MeterValue    []meterValueEntry `json:"meterValue"`
}

func sampledValuesToRows(sessionID *uint, ts time.Time, values []sampledValueEntry, defaultContext string) []domain.MeterValue {
	rows := make([]domain.MeterValue, 0, len(values))
	for _, sv := range values {
		val, err := strconv.ParseFloat(sv.Value, 64)
		if err != nil {
			continue
		}
		rows = append(rows, domain.MeterValue{
			SessionID: sessionID,
			Timestamp: ts,
			Value:     val,
			Unit:      orDefault(sv.Unit, "Wh"),
			Measurand: orDefault(sv.Measurand, "Energy.Active.Import.Register"),
			Phase:     sv.Phase,
			Location:  orDefault(sv.Location, "Outlet"),
			Context:   orDefault(sv.Context, defaultContext),
			Format:    orDefault(sv.Format, "Raw"),
		})
	}
	return rows
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func (h *Handlers) MeterValues(ctx context.Context, cpID string, session *Session, payload json.RawMessage) (interface{}, *CallError) {
	telemetry.RecordOCPPMessage("MeterValues", true)
	var req meterValuesReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, NewCallError(ErrorFormationViolation, "invalid MeterValues payload")
	}

	if !h.meterRate.Allow(ctx, cpID) {
		h.log.Warn("MeterValues: rate limit exceeded, dropping sample", zap.String("charge_point_id", cpID))
		telemetry.RecordMeterValueDropped(cpID)
		return map[string]interface{}{}, nil
	}

	var sessionID *uint
	if req.TransactionID != nil {
		s, err := h.sessionsRepo.GetByTransactionID(ctx, *req.TransactionID)
		if err != nil {
			h.log.Warn("MeterValues: session lookup failed", zap.Error(err))
		}
		if s != nil {
			id := s.ID
			sessionID = &id
		} else {
			h.log.Warn("MeterValues: unknown transactionId, storing without session",
				zap.String("charge_point_id", cpID), zap.Int("transaction_id", *req.TransactionID))
		}
	}

	var rows []domain.MeterValue
	for _, mv := range req.MeterValue {
		ts, err := ParseTime(mv.Timestamp)
		if err != nil {
			ts = Now()
		}
		rows = append(rows, sampledValuesToRows(sessionID, ts, mv.SampledValue, "Sample.Periodic")...)
	}

	if len(rows) > 0 {
		if err := h.meterValues.Append(ctx, rows); err != nil {
			h.log.Error("MeterValues: append failed", zap.String("charge_point_id", cpID), zap.Error(err))
		}
	}

	return map[string]interface{}{}, nil
}

// --- StatusNotification ---

type statusNotificationReq struct {
	ConnectorID     int    `json:"connectorId"`
	ErrorCode       string `json:"errorCode"`
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp,omitempty"`
	Info            string `json:"info,omitempty"`
	VendorID        string `json:"vendorId,omitempty"`
	VendorErrorCode string `json:"vendorErrorCode,omitempty"`
}

func (h *Handlers) StatusNotification(ctx context.Context, cpID string, session *Session, payload json.RawMessage) (interface{}, *CallError) {
	telemetry.RecordOCPPMessage("StatusNotification", true)
	var req statusNotificationReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, NewCallError(ErrorFormationViolation, "invalid StatusNotification payload")
	}

	parsedTime := Now()
	var ts *time.Time
	if req.Timestamp != "" {
		if t, err := ParseTime(req.Timestamp); err == nil {
			parsedTime = t
			ts = &t
		}
	}

	row := &domain.ConnectorStatus{
		ChargePointID:   cpID,
		ConnectorID:     req.ConnectorID,
		Status:          req.Status,
		ErrorCode:       req.ErrorCode,
		Timestamp:       ts,
		Info:            req.Info,
		VendorID:        req.VendorID,
		VendorErrorCode: req.VendorErrorCode,
	}

	appendErr := h.connectorStatuses.Append(ctx, row)
	if appendErr != nil {
		h.log.Error("StatusNotification: append failed", zap.String("charge_point_id", cpID), zap.Error(appendErr))
	}

	if req.ConnectorID == 0 {
		if err := h.chargePoints.SetStatus(ctx, cpID, domain.ChargePointStatus(req.Status), Now()); err != nil {
			h.log.Warn("StatusNotification: failed to mirror status onto charge point", zap.Error(err))
		}
	}

	if appendErr == nil {
		h.events.ConnectorStatusChanged(cpID, req.ConnectorID, req.Status, parsedTime)
	}

	return map[string]interface{}{}, nil
}
