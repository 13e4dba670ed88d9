package idemledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/motogo-vn/motogo-payments/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an idempotency ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.IdempotencyKeyRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindForUpdate loads the ledger row under a row lock. Two concurrent
// deliveries of the same external event serialize here; the second sees
// whatever outcome the first committed.
func (r *repository) FindForUpdate(ctx context.Context, scope, key string) (*models.IdempotencyKeyRecord, error) {
	var record models.IdempotencyKeyRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("scope = ?", scope).
		Where("key = ?", key).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.IdempotencyKeyRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
}
