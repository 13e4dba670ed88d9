package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motogo-vn/motogo-payments/pkg/db/models"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	"github.com/motogo-vn/motogo-payments/pkg/pagination"
)

// Repository defines persistence operations for payments and their audit rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	CreateTransaction(ctx context.Context, txn *models.PaymentTransaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByTxnRef(ctx context.Context, txnRef string) (*models.Payment, error)
	FindPendingByBooking(ctx context.Context, bookingID string, method *enums.PaymentMethod) ([]models.Payment, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListTransactions(ctx context.Context, paymentID uuid.UUID) ([]models.PaymentTransaction, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*PaymentList, error)
}
