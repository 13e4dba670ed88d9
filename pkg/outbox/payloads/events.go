package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/motogo-vn/motogo-payments/pkg/enums"
)

// PaymentSucceededEvent is published on payment.succeeded when a payment
// reaches its success state. Booking consumes it to mark the rental paid.
type PaymentSucceededEvent struct {
	PaymentID   uuid.UUID           `json:"paymentId"`
	BookingID   string              `json:"bookingId"`
	AmountCents int64               `json:"amountCents"`
	Type        enums.PaymentType   `json:"type"`
	Method      enums.PaymentMethod `json:"method"`
	Status      enums.PaymentStatus `json:"status"`
	At          time.Time           `json:"at"`
}

// PaymentStatusEvent covers the non-success terminal transitions.
type PaymentStatusEvent struct {
	PaymentID   uuid.UUID           `json:"paymentId"`
	BookingID   string              `json:"bookingId"`
	AmountCents int64               `json:"amountCents"`
	Status      enums.PaymentStatus `json:"status"`
	Reason      string              `json:"reason,omitempty"`
	At          time.Time           `json:"at"`
}

// PaymentRefundedEvent reports a refund row created against a succeeded payment.
type PaymentRefundedEvent struct {
	PaymentID         uuid.UUID `json:"paymentId"`
	OriginalPaymentID uuid.UUID `json:"originalPaymentId"`
	BookingID         string    `json:"bookingId"`
	AmountCents       int64     `json:"amountCents"`
	Reason            string    `json:"reason,omitempty"`
	At                time.Time `json:"at"`
}

// DepositHeldEvent signals a new security deposit hold on a booking.
type DepositHeldEvent struct {
	DepositID     uuid.UUID `json:"depositId"`
	BookingID     string    `json:"bookingId"`
	HoldPaymentID uuid.UUID `json:"holdPaymentId"`
	AmountCents   int64     `json:"amountCents"`
	At            time.Time `json:"at"`
}

// DepositSettledEvent covers release and forfeiture outcomes.
type DepositSettledEvent struct {
	DepositID        uuid.UUID           `json:"depositId"`
	BookingID        string              `json:"bookingId"`
	Status           enums.DepositStatus `json:"status"`
	ReleasedCents    int64               `json:"releasedCents"`
	ForfeitedCents   int64               `json:"forfeitedCents"`
	ForfeitPaymentID *uuid.UUID          `json:"forfeitPaymentId,omitempty"`
	Note             string              `json:"note,omitempty"`
	At               time.Time           `json:"at"`
}
