package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/motogo-vn/motogo-payments/pkg/enums"
)

// IdempotencyKeyRecord tracks the processing outcome of one externally caused
// operation, keyed by (scope, key). Rows are never deleted; they serve as the
// replay log. A SUCCEEDED row is permanently terminal for its scope.
type IdempotencyKeyRecord struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Scope     string                  `gorm:"column:scope;not null;uniqueIndex:ux_idempotency_scope_key,priority:1"`
	Key       string                  `gorm:"column:key;not null;uniqueIndex:ux_idempotency_scope_key,priority:2"`
	Status    enums.IdempotencyStatus `gorm:"column:status;type:idempotency_status;not null;default:'PENDING'"`
	Context   json.RawMessage         `gorm:"column:context;type:jsonb"`
	LastError *string                 `gorm:"column:last_error"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (IdempotencyKeyRecord) TableName() string {
	return "idempotency_keys"
}
