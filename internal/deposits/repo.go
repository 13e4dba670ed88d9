package deposits

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

// NewRepository builds a deposits repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, deposit *models.Deposit) error {
	return r.db.WithContext(ctx).Create(deposit).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error) {
	var deposit models.Deposit
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&deposit).Error
	if err != nil {
		return nil, err
	}
	return &deposit, nil
}

// FindByIDForUpdate loads the row under a row lock so concurrent settlement
// attempts serialize. Only valid inside a transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Deposit, error) {
	var deposit models.Deposit
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&deposit).Error
	if err != nil {
		return nil, err
	}
	return &deposit, nil
}

func (r *repository) ListByBooking(ctx context.Context, bookingID string) ([]models.Deposit, error) {
	var rows []models.Deposit
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Deposit{}).
		Where("id = ?", id).
		Updates(updates).Error
}
