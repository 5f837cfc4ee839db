package ocpp

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/sigec-ve/internal/ports"
)

// EventPublisher wraps the domain event bus so handlers publish best-effort
// notifications without their own marshal/log boilerplate. A publish
// failure is logged and never changes the OCPP response (spec.md §4.4/§7,
// SPEC_FULL.md §4.4 [NEW]).
type EventPublisher struct {
	queue ports.MessageQueue
	log   *zap.Logger
}

func NewEventPublisher(queue ports.MessageQueue, log *zap.Logger) *EventPublisher {
	return &EventPublisher{queue: queue, log: log}
}

const (
	SubjectSessionStarted         = "session.started"
	SubjectSessionStopped         = "session.stopped"
	SubjectConnectorStatusChanged = "connector.status_changed"
	SubjectChargePointConnected   = "chargepoint.connected"
)

func (p *EventPublisher) publish(subject string, event interface{}) {
	if p.queue == nil {
		return
	}
	b, err := json.Marshal(event)
	if err != nil {
		p.log.Error("event: failed to marshal", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := p.queue.Publish(subject, b); err != nil {
		p.log.Warn("event: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

type sessionStartedEvent struct {
	ChargePointID string    `json:"charge_point_id"`
	TransactionID int       `json:"transaction_id"`
	ConnectorID   int       `json:"connector_id"`
	IdTag         string    `json:"id_tag"`
	StartedAt     time.Time `json:"started_at"`
}

func (p *EventPublisher) SessionStarted(cpID string, txID, connectorID int, idTag string, startedAt time.Time) {
	p.publish(SubjectSessionStarted, sessionStartedEvent{cpID, txID, connectorID, idTag, startedAt})
}

type sessionStoppedEvent struct {
	ChargePointID  string    `json:"charge_point_id"`
	TransactionID  int       `json:"transaction_id"`
	EnergyConsumed *float64  `json:"energy_consumed,omitempty"`
	StoppedAt      time.Time `json:"stopped_at"`
}

func (p *EventPublisher) SessionStopped(cpID string, txID int, energyConsumed *float64, stoppedAt time.Time) {
	p.publish(SubjectSessionStopped, sessionStoppedEvent{cpID, txID, energyConsumed, stoppedAt})
}

type connectorStatusChangedEvent struct {
	ChargePointID string    `json:"charge_point_id"`
	ConnectorID   int       `json:"connector_id"`
	Status        string    `json:"status"`
	At            time.Time `json:"at"`
}

func (p *EventPublisher) ConnectorStatusChanged(cpID string, connectorID int, status string, at time.Time) {
	p.publish(SubjectConnectorStatusChanged, connectorStatusChangedEvent{cpID, connectorID, status, at})
}

type chargePointConnectedEvent struct {
	ChargePointID string    `json:"charge_point_id"`
	Vendor        string    `json:"vendor"`
	Model         string    `json:"model"`
	At            time.Time `json:"at"`
}

func (p *EventPublisher) ChargePointConnected(cpID, vendor, model string, at time.Time) {
	p.publish(SubjectChargePointConnected, chargePointConnectedEvent{cpID, vendor, model, at})
}
