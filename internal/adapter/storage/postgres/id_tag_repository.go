package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/sigec-ve/internal/domain"
	"github.com/seu-repo/sigec-ve/internal/ports"
)

type IdTagRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewIdTagRepository(db *gorm.DB, log *zap.Logger) ports.IdTagRepository {
	return &IdTagRepository{db: db, log: log}
}

// Get honors a transaction stashed on ctx by SessionRepository.WithinTransaction
// so StartTransaction's tag resolution participates in the same atomic unit
// as tx-id allocation and the session insert.
func (r *IdTagRepository) Get(ctx context.Context, tag string) (*domain.IdTag, error) {
	conn := r.db.WithContext(ctx)
	if tx, ok := ctx.Value(txDBKey{}).(*gorm.DB); ok {
		conn = tx
	}
	var t domain.IdTag
	err := conn.First(&t, "tag = ?", tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
