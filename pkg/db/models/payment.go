package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/motogo-vn/motogo-payments/pkg/enums"
)

// Payment represents one money movement attempt. Refunds are modeled as new
// rows with a negative amount, never as a sign flip on the original.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID       string              `gorm:"column:booking_id;not null;index"`
	RenterID        *uuid.UUID          `gorm:"column:renter_id;type:uuid"`
	StationID       *uuid.UUID          `gorm:"column:station_id;type:uuid;index"`
	Type            enums.PaymentType   `gorm:"column:type;type:payment_type;not null"`
	Method          enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	AmountCents     int64               `gorm:"column:amount_cents;not null"`
	Description     string              `gorm:"column:description"`
	Status          enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'PENDING'"`
	TxnRef          *string             `gorm:"column:txn_ref;uniqueIndex:ux_payments_txn_ref"`
	GatewayMetadata json.RawMessage     `gorm:"column:gateway_metadata;type:jsonb"`
	CreatedBy       *uuid.UUID          `gorm:"column:created_by;type:uuid"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Payment) TableName() string {
	return "payments"
}
