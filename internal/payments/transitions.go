package payments

import "github.com/motogo-vn/motogo-payments/pkg/enums"

// allowedTransitions is the static edge table for the payment state machine.
// SUCCEEDED→REFUNDED is the only edge out of a terminal-ish state; FAILED,
// CANCELED and REFUNDED are frozen.
var allowedTransitions = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusPending: {
		enums.PaymentStatusSucceeded,
		enums.PaymentStatusFailed,
		enums.PaymentStatusCanceled,
		enums.PaymentStatusRefunded,
	},
	enums.PaymentStatusSucceeded: {
		enums.PaymentStatusRefunded,
	},
	enums.PaymentStatusFailed:   {},
	enums.PaymentStatusCanceled: {},
	enums.PaymentStatusRefunded: {},
}

// CanTransition reports whether from→to is in the allowed-edge table.
func CanTransition(from, to enums.PaymentStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
