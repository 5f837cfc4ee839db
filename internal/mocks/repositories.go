package mocks

import (
	"context"
	"time"

	"github.com/seu-repo/sigec-ve/internal/domain"
	"github.com/seu-repo/sigec-ve/internal/ports"
)

// MockChargePointRepository is a mock implementation of ports.ChargePointRepository.
type MockChargePointRepository struct {
	GetFunc       func(ctx context.Context, id string) (*domain.ChargePoint, error)
	UpsertFunc    func(ctx context.Context, cp *domain.ChargePoint) error
	SetOnlineFunc func(ctx context.Context, id string, online bool, now time.Time) error
	SetStatusFunc func(ctx context.Context, id string, status domain.ChargePointStatus, now time.Time) error
	ListFunc      func(ctx context.Context) ([]domain.ChargePoint, error)
}

func (m *MockChargePointRepository) Get(ctx context.Context, id string) (*domain.ChargePoint, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockChargePointRepository) Upsert(ctx context.Context, cp *domain.ChargePoint) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, cp)
	}
	return nil
}

func (m *MockChargePointRepository) SetOnline(ctx context.Context, id string, online bool, now time.Time) error {
	if m.SetOnlineFunc != nil {
		return m.SetOnlineFunc(ctx, id, online, now)
	}
	return nil
}

func (m *MockChargePointRepository) SetStatus(ctx context.Context, id string, status domain.ChargePointStatus, now time.Time) error {
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, id, status, now)
	}
	return nil
}

func (m *MockChargePointRepository) List(ctx context.Context) ([]domain.ChargePoint, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []domain.ChargePoint{}, nil
}

// MockIdTagRepository is a mock implementation of ports.IdTagRepository.
type MockIdTagRepository struct {
	GetFunc func(ctx context.Context, tag string) (*domain.IdTag, error)
}

func (m *MockIdTagRepository) Get(ctx context.Context, tag string) (*domain.IdTag, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, tag)
	}
	return nil, nil
}

// MockSessionRepository is a mock implementation of ports.SessionRepository.
// WithinTransaction runs fn directly against the same context, matching the
// real repository's contract without requiring a database.
type MockSessionRepository struct {
	IsTxIDTakenFunc        func(ctx context.Context, txID int) (bool, error)
	CreateSessionFunc      func(ctx context.Context, session *domain.Session) error
	GetByTransactionIDFunc func(ctx context.Context, txID int) (*domain.Session, error)
	GetActiveFunc          func(ctx context.Context, chargePointID string, connectorID int) (*domain.Session, error)
	UpdateStopFunc         func(ctx context.Context, txID int, fields ports.SessionStopFields) error
}

func (m *MockSessionRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *MockSessionRepository) IsTxIDTaken(ctx context.Context, txID int) (bool, error) {
	if m.IsTxIDTakenFunc != nil {
		return m.IsTxIDTakenFunc(ctx, txID)
	}
	return false, nil
}

func (m *MockSessionRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, session)
	}
	return nil
}

func (m *MockSessionRepository) GetByTransactionID(ctx context.Context, txID int) (*domain.Session, error) {
	if m.GetByTransactionIDFunc != nil {
		return m.GetByTransactionIDFunc(ctx, txID)
	}
	return nil, nil
}

func (m *MockSessionRepository) GetActive(ctx context.Context, chargePointID string, connectorID int) (*domain.Session, error) {
	if m.GetActiveFunc != nil {
		return m.GetActiveFunc(ctx, chargePointID, connectorID)
	}
	return nil, nil
}

func (m *MockSessionRepository) UpdateStop(ctx context.Context, txID int, fields ports.SessionStopFields) error {
	if m.UpdateStopFunc != nil {
		return m.UpdateStopFunc(ctx, txID, fields)
	}
	return nil
}

// MockMeterValueRepository is a mock implementation of ports.MeterValueRepository.
type MockMeterValueRepository struct {
	AppendFunc func(ctx context.Context, values []domain.MeterValue) error
	Appended   []domain.MeterValue
}

func (m *MockMeterValueRepository) Append(ctx context.Context, values []domain.MeterValue) error {
	m.Appended = append(m.Appended, values...)
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, values)
	}
	return nil
}

// MockConnectorStatusRepository is a mock implementation of ports.ConnectorStatusRepository.
type MockConnectorStatusRepository struct {
	AppendFunc func(ctx context.Context, row *domain.ConnectorStatus) error
	Appended   []domain.ConnectorStatus
}

func (m *MockConnectorStatusRepository) Append(ctx context.Context, row *domain.ConnectorStatus) error {
	m.Appended = append(m.Appended, *row)
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, row)
	}
	return nil
}
