package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/sigec-ve/internal/domain"
	"github.com/seu-repo/sigec-ve/internal/ports"
)

type SessionRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewSessionRepository(db *gorm.DB, log *zap.Logger) ports.SessionRepository {
	return &SessionRepository{db: db, log: log}
}

type txDBKey struct{}

// WithinTransaction opens a GORM transaction and stashes its *gorm.DB on the
// context so every other method on this repository (and IdTagRepository,
// when given the same underlying db) picks it up via conn(ctx) instead of
// r.db, keeping the tag-resolution + tx-id allocation + insert atomic
// (spec.md §4.6) without exposing gorm.DB on the ports interface.
func (r *SessionRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txDBKey{}, tx))
	})
}

func (r *SessionRepository) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txDBKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *SessionRepository) IsTxIDTaken(ctx context.Context, txID int) (bool, error) {
	var count int64
	err := r.conn(ctx).Model(&domain.Session{}).Where("transaction_id = ?", txID).Count(&count).Error
	return count > 0, err
}

func (r *SessionRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	return r.conn(ctx).Create(session).Error
}

func (r *SessionRepository) GetByTransactionID(ctx context.Context, txID int) (*domain.Session, error) {
	var s domain.Session
	err := r.conn(ctx).First(&s, "transaction_id = ?", txID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) GetActive(ctx context.Context, chargePointID string, connectorID int) (*domain.Session, error) {
	var s domain.Session
	err := r.conn(ctx).
		Where("charge_point_id = ? AND connector_id = ? AND status = ?", chargePointID, connectorID, domain.SessionStatusActive).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) UpdateStop(ctx context.Context, txID int, fields ports.SessionStopFields) error {
	updates := map[string]interface{}{
		"meter_stop":     fields.MeterStop,
		"stop_timestamp": fields.StopTimestamp,
		"status":         fields.Status,
		"stop_reason":    fields.StopReason,
	}
	if fields.EnergyConsumed != nil {
		updates["energy_consumed"] = *fields.EnergyConsumed
	}
	result := r.conn(ctx).Model(&domain.Session{}).Where("transaction_id = ?", txID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		r.log.Warn("UpdateStop: no matching session row", zap.Int("transaction_id", txID))
	}
	return nil
}
