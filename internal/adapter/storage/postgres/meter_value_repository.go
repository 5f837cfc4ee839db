package postgres

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/sigec-ve/internal/domain"
	"github.com/seu-repo/sigec-ve/internal/ports"
)

type MeterValueRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewMeterValueRepository(db *gorm.DB, log *zap.Logger) ports.MeterValueRepository {
	return &MeterValueRepository{db: db, log: log}
}

func (r *MeterValueRepository) Append(ctx context.Context, values []domain.MeterValue) error {
	if len(values) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&values).Error
}
