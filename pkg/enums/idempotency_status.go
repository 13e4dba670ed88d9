package enums

import "fmt"

// IdempotencyStatus records the outcome of one externally caused operation.
type IdempotencyStatus string

const (
	IdempotencyStatusPending   IdempotencyStatus = "PENDING"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

var validIdempotencyStatuses = []IdempotencyStatus{
	IdempotencyStatusPending,
	IdempotencyStatusSucceeded,
	IdempotencyStatusFailed,
}

// String implements fmt.Stringer.
func (s IdempotencyStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known IdempotencyStatus.
func (s IdempotencyStatus) IsValid() bool {
	for _, candidate := range validIdempotencyStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseIdempotencyStatus converts raw input into an IdempotencyStatus.
func ParseIdempotencyStatus(value string) (IdempotencyStatus, error) {
	for _, candidate := range validIdempotencyStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid idempotency status %q", value)
}
