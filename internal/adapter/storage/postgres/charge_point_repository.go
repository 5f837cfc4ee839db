package postgres

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/sigec-ve/internal/domain"
	"github.com/seu-repo/sigec-ve/internal/ports"
)

type ChargePointRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewChargePointRepository(db *gorm.DB, log *zap.Logger) ports.ChargePointRepository {
	return &ChargePointRepository{db: db, log: log}
}

func (r *ChargePointRepository) Get(ctx context.Context, id string) (*domain.ChargePoint, error) {
	var cp domain.ChargePoint
	err := r.db.WithContext(ctx).First(&cp, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// Upsert writes every field of cp, creating the row on first
// BootNotification and overwriting it wholesale on every later call.
// Partial updates that leave some columns untouched are not attempted
// here: callers always populate the full struct first.
func (r *ChargePointRepository) Upsert(ctx context.Context, cp *domain.ChargePoint) error {
	return r.db.WithContext(ctx).Save(cp).Error
}

func (r *ChargePointRepository) SetOnline(ctx context.Context, id string, online bool, now time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.ChargePoint{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_online": online, "last_seen": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		r.log.Warn("SetOnline: no matching charge point row", zap.String("id", id))
	}
	return nil
}

func (r *ChargePointRepository) SetStatus(ctx context.Context, id string, status domain.ChargePointStatus, now time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.ChargePoint{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "last_seen": now}).Error
}

func (r *ChargePointRepository) List(ctx context.Context) ([]domain.ChargePoint, error) {
	var cps []domain.ChargePoint
	err := r.db.WithContext(ctx).Order("id").Find(&cps).Error
	return cps, err
}
