package payments

import (
	"time"

	"github.com/motogo-vn/motogo-payments/pkg/db/models"
	"github.com/motogo-vn/motogo-payments/pkg/outbox/payloads"
)

// SucceededEventData builds the payment.succeeded payload for a payment that
// just transitioned. Exposed so the collection flows emit a uniform shape.
func SucceededEventData(payment *models.Payment) payloads.PaymentSucceededEvent {
	return payloads.PaymentSucceededEvent{
		PaymentID:   payment.ID,
		BookingID:   payment.BookingID,
		AmountCents: payment.AmountCents,
		Type:        payment.Type,
		Method:      payment.Method,
		Status:      payment.Status,
		At:          time.Now().UTC(),
	}
}

func statusEventData(payment *models.Payment, reason string) payloads.PaymentStatusEvent {
	return payloads.PaymentStatusEvent{
		PaymentID:   payment.ID,
		BookingID:   payment.BookingID,
		AmountCents: payment.AmountCents,
		Status:      payment.Status,
		Reason:      reason,
		At:          time.Now().UTC(),
	}
}

func refundedEventData(original, companion *models.Payment, reason string) payloads.PaymentRefundedEvent {
	return payloads.PaymentRefundedEvent{
		PaymentID:         companion.ID,
		OriginalPaymentID: original.ID,
		BookingID:         original.BookingID,
		AmountCents:       companion.AmountCents,
		Reason:            reason,
		At:                time.Now().UTC(),
	}
}
