package idemledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motogo-vn/motogo-payments/pkg/db/models"
)

// Repository defines persistence operations for the idempotency ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.IdempotencyKeyRecord) error
	FindForUpdate(ctx context.Context, scope, key string) (*models.IdempotencyKeyRecord, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}
