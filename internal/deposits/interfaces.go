package deposits

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motogo-vn/motogo-payments/pkg/db/models"
)

// Repository defines persistence operations for deposits.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, deposit *models.Deposit) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Deposit, error)
	ListByBooking(ctx context.Context, bookingID string) ([]models.Deposit, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}
