package payments

import (
	"github.com/google/uuid"

	"github.com/motogo-vn/motogo-payments/pkg/db/models"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	"github.com/motogo-vn/motogo-payments/pkg/pagination"
)

// CreateInput captures the data required to open a payment intent.
type CreateInput struct {
	BookingID   string
	RenterID    *uuid.UUID
	StationID   *uuid.UUID
	Type        enums.PaymentType
	Method      enums.PaymentMethod
	AmountCents int64
	Description string
	TxnRef      *string
	CreatedBy   *uuid.UUID

	// AllowNegative is set by internal callers creating refund rows; public
	// creation paths always reject non-positive amounts.
	AllowNegative bool
}

// TransitionOptions carries the optional data recorded with a transition.
type TransitionOptions struct {
	Actor           *uuid.UUID
	Metadata        map[string]any
	GatewayMetadata map[string]any
}

// ListFilters narrows the payments listing.
type ListFilters struct {
	BookingID *string
	StationID *uuid.UUID
	Status    *enums.PaymentStatus
	Method    *enums.PaymentMethod
	Type      *enums.PaymentType
}

// PaymentList is one cursor page of payments.
type PaymentList struct {
	Items      []models.Payment
	NextCursor *string
}

func nextCursorFor(items []models.Payment, limit int) ([]models.Payment, *string) {
	if len(items) <= limit {
		return items, nil
	}
	trimmed := items[:limit]
	last := trimmed[len(trimmed)-1]
	cursor := pagination.Cursor{
		CreatedAt: last.CreatedAt,
		ID:        last.ID,
	}.Encode()
	return trimmed, &cursor
}
