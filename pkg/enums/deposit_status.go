package enums

import "fmt"

// DepositStatus tracks the disposition of a held security deposit.
type DepositStatus string

const (
	DepositStatusHeld           DepositStatus = "HELD"
	DepositStatusReleased       DepositStatus = "RELEASED"
	DepositStatusPartialForfeit DepositStatus = "PARTIAL_FORFEIT"
	DepositStatusForfeit        DepositStatus = "FORFEIT"
	DepositStatusCanceled       DepositStatus = "CANCELED"
)

var validDepositStatuses = []DepositStatus{
	DepositStatusHeld,
	DepositStatusReleased,
	DepositStatusPartialForfeit,
	DepositStatusForfeit,
	DepositStatusCanceled,
}

// String implements fmt.Stringer.
func (d DepositStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DepositStatus.
func (d DepositStatus) IsValid() bool {
	for _, candidate := range validDepositStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the deposit can still move. PARTIAL_FORFEIT may
// continue to RELEASED or FORFEIT for the remainder.
func (d DepositStatus) IsTerminal() bool {
	switch d {
	case DepositStatusReleased, DepositStatusForfeit, DepositStatusCanceled:
		return true
	}
	return false
}

// ParseDepositStatus converts raw input into a DepositStatus.
func ParseDepositStatus(value string) (DepositStatus, error) {
	for _, candidate := range validDepositStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deposit status %q", value)
}
