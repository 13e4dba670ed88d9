package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/motogo-vn/motogo-payments/pkg/enums"
)

// Deposit represents a held security deposit, linked to the Payment that
// collected the hold. HeldAmountCents is the remainder still held; release
// and forfeit draw it down and must never exceed it.
type Deposit struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID       string              `gorm:"column:booking_id;not null;index"`
	RenterID        *uuid.UUID          `gorm:"column:renter_id;type:uuid"`
	StationID       *uuid.UUID          `gorm:"column:station_id;type:uuid"`
	AmountCents     int64               `gorm:"column:amount_cents;not null"`
	HeldAmountCents int64               `gorm:"column:held_amount_cents;not null"`
	Status          enums.DepositStatus `gorm:"column:status;type:deposit_status;not null;default:'HELD'"`
	HoldPaymentID   uuid.UUID           `gorm:"column:hold_payment_id;type:uuid;not null"`
	Note            string              `gorm:"column:note"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Deposit) TableName() string {
	return "deposits"
}
