package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/motogo-vn/motogo-payments/pkg/enums"
)

// PaymentTransaction is the append-only audit record of one transition. One
// row per transition, including the initial creation (from null). Never
// updated or deleted.
type PaymentTransaction struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID   uuid.UUID            `gorm:"column:payment_id;type:uuid;not null;index"`
	FromStatus  *enums.PaymentStatus `gorm:"column:from_status;type:payment_status"`
	ToStatus    enums.PaymentStatus  `gorm:"column:to_status;type:payment_status;not null"`
	AmountCents int64                `gorm:"column:amount_cents;not null"`
	ActorID     *uuid.UUID           `gorm:"column:actor_id;type:uuid"`
	Metadata    json.RawMessage      `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
