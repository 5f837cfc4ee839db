package ports

import (
	"context"
	"time"

	"github.com/seu-repo/sigec-ve/internal/domain"
)

// ChargePointRepository is the narrow persistence interface (C2) over the
// ChargePoint entity (spec.md §3, §4.6).
type ChargePointRepository interface {
	Get(ctx context.Context, id string) (*domain.ChargePoint, error)
	Upsert(ctx context.Context, cp *domain.ChargePoint) error
	SetOnline(ctx context.Context, id string, online bool, now time.Time) error
	SetStatus(ctx context.Context, id string, status domain.ChargePointStatus, now time.Time) error
	List(ctx context.Context) ([]domain.ChargePoint, error)
}

// IdTagRepository resolves credentials for Authorize/StartTransaction.
type IdTagRepository interface {
	Get(ctx context.Context, tag string) (*domain.IdTag, error)
}

// SessionRepository is the transactional boundary around Session rows.
// StartTransaction runs tag resolution, transaction-id allocation, and the
// CreateSession insert inside one DB transaction via WithinTransaction
// (spec.md §4.6).
//
// WithinTransaction runs fn with a derived context that every other method
// on this interface recognizes as "already inside a transaction", so a
// caller can wrap IsTxIDTaken + CreateSession (and an IdTagRepository.Get)
// in a single atomic unit without this interface leaking a storage-engine
// type.
type SessionRepository interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	IsTxIDTaken(ctx context.Context, txID int) (bool, error)
	CreateSession(ctx context.Context, session *domain.Session) error
	GetByTransactionID(ctx context.Context, txID int) (*domain.Session, error)
	GetActive(ctx context.Context, chargePointID string, connectorID int) (*domain.Session, error)
	UpdateStop(ctx context.Context, txID int, fields SessionStopFields) error
}

// SessionStopFields carries the mutable fields StopTransaction writes.
type SessionStopFields struct {
	MeterStop      int
	StopTimestamp  time.Time
	Status         domain.SessionStatus
	StopReason     domain.StopReason
	EnergyConsumed *float64
}

// MeterValueRepository appends sampled readings.
type MeterValueRepository interface {
	Append(ctx context.Context, values []domain.MeterValue) error
}

// ConnectorStatusRepository appends the status-notification log.
type ConnectorStatusRepository interface {
	Append(ctx context.Context, row *domain.ConnectorStatus) error
}
