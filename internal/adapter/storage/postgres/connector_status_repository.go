package postgres

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/sigec-ve/internal/domain"
	"github.com/seu-repo/sigec-ve/internal/ports"
)

type ConnectorStatusRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewConnectorStatusRepository(db *gorm.DB, log *zap.Logger) ports.ConnectorStatusRepository {
	return &ConnectorStatusRepository{db: db, log: log}
}

func (r *ConnectorStatusRepository) Append(ctx context.Context, row *domain.ConnectorStatus) error {
	return r.db.WithContext(ctx).Create(row).Error
}
