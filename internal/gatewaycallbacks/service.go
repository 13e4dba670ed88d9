package gatewaycallbacks

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motogo-vn/motogo-payments/internal/idemledger"
	"github.com/motogo-vn/motogo-payments/internal/payments"
	"github.com/motogo-vn/motogo-payments/pkg/db/models"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	pkgerrors "github.com/motogo-vn/motogo-payments/pkg/errors"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
	"github.com/motogo-vn/motogo-payments/pkg/outbox"
	"github.com/motogo-vn/motogo-payments/pkg/vnpay"
)

const (
	ScopeReturn = "gateway-return"
	ScopeIPN    = "gateway-ipn"
)

// Outcome classifies what a verified callback did to the payment.
type Outcome string

const (
	// OutcomeConfirmed means this delivery performed the SUCCEEDED transition.
	OutcomeConfirmed Outcome = "CONFIRMED"
	// OutcomeReplayed means a prior delivery already settled this key; no side
	// effects were repeated.
	OutcomeReplayed Outcome = "REPLAYED"
	// OutcomeFailed means the gateway reported failure or the payment was no
	// longer confirmable.
	OutcomeFailed Outcome = "FAILED"
)

// Result is what the callback controllers render from.
type Result struct {
	Outcome      Outcome
	Payment      *models.Payment
	TxnRef       string
	ResponseCode string
}

// Succeeded reports whether the caller should present the payment as settled.
func (r *Result) Succeeded() bool {
	return r.Outcome == OutcomeConfirmed || r.Outcome == OutcomeReplayed
}

type verifier interface {
	VerifyReturn(query url.Values) (vnpay.Callback, bool)
	VerifyIPN(query url.Values) (vnpay.Callback, bool)
}

type bookingNotifier interface {
	NotifyPaid(ctx context.Context, bookingID string, paymentID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service reconciles gateway return redirects and IPN notifications with the
// payment engine. The two channels run the same protocol under separate
// idempotency scopes because the gateway may deliver both for one
// transaction.
type Service interface {
	HandleReturn(ctx context.Context, query url.Values) (*Result, error)
	HandleIPN(ctx context.Context, query url.Values) (*Result, error)
}

type service struct {
	gateway  verifier
	payments payments.Service
	ledger   idemledger.Service
	booking  bookingNotifier
	tx       txRunner
	outbox   outboxEmitter
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(gateway verifier, paymentsSvc payments.Service, ledger idemledger.Service, booking bookingNotifier, tx txRunner, emitter outboxEmitter, logg *logger.Logger) (Service, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway verifier required")
	}
	if paymentsSvc == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("idempotency ledger required")
	}
	if booking == nil {
		return nil, fmt.Errorf("booking notifier required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		gateway:  gateway,
		payments: paymentsSvc,
		ledger:   ledger,
		booking:  booking,
		tx:       tx,
		outbox:   emitter,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) HandleReturn(ctx context.Context, query url.Values) (*Result, error) {
	callback, ok := s.gateway.VerifyReturn(query)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeSignatureInvalid, "return signature verification failed")
	}
	return s.process(ctx, ScopeReturn, callback)
}

func (s *service) HandleIPN(ctx context.Context, query url.Values) (*Result, error) {
	callback, ok := s.gateway.VerifyIPN(query)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeSignatureInvalid, "ipn signature verification failed")
	}
	return s.process(ctx, ScopeIPN, callback)
}

// process runs the callback protocol: claim the idempotency key, apply the
// transition, close the key, all in one transaction. The booking callback
// fires after commit and is best effort.
func (s *service) process(ctx context.Context, scope string, callback vnpay.Callback) (*Result, error) {
	if callback.TxnRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback missing transaction reference")
	}
	if _, err := s.payments.GetByTxnRef(ctx, callback.TxnRef); err != nil {
		return nil, err
	}

	key := s.idempotencyKey(callback)
	result := &Result{
		TxnRef:       callback.TxnRef,
		ResponseCode: callback.ResponseCode,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.ledger.Ensure(ctx, tx, scope, key); err != nil {
			return err
		}
		if callback.Success() {
			return s.confirm(ctx, tx, scope, key, callback, result)
		}
		return s.fail(ctx, tx, scope, key, callback, result)
	})
	if err != nil {
		if pkgerrors.IsAlreadyProcessed(err) {
			result.Outcome = OutcomeReplayed
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"scope":   scope,
				"txn_ref": callback.TxnRef,
			}), "gateway callback replayed; side effects skipped")
			return result, nil
		}
		return nil, err
	}

	if result.Outcome == OutcomeConfirmed {
		s.notifyBooking(ctx, result.Payment)
	}
	return result, nil
}

func (s *service) confirm(ctx context.Context, tx *gorm.DB, scope, key string, callback vnpay.Callback, result *Result) error {
	payment, err := s.payments.GetByTxnRef(ctx, callback.TxnRef)
	if err != nil {
		return err
	}

	updated, err := s.payments.TransitionTx(ctx, tx, payment.ID, enums.PaymentStatusSucceeded, payments.TransitionOptions{
		Metadata: map[string]any{"cause": scope},
		GatewayMetadata: map[string]any{
			"responseCode":  callback.ResponseCode,
			"transactionNo": callback.TransactionNo,
			"bankCode":      callback.BankCode,
			"payDate":       callback.PayDate,
			"amountCents":   callback.AmountCents,
		},
	})
	if err != nil {
		typed := pkgerrors.As(err)
		if typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
			// Success code for a payment that is no longer confirmable.
			result.Outcome = OutcomeFailed
			result.Payment = payment
			return s.ledger.MarkFailed(ctx, tx, scope, key,
				fmt.Sprintf("payment %s not PENDING", payment.Status))
		}
		return err
	}

	if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentSucceeded,
		AggregateType: enums.AggregatePayment,
		AggregateID:   updated.ID,
		Version:       1,
		Data:          payments.SucceededEventData(updated),
	}); err != nil {
		return err
	}

	if err := s.ledger.MarkSucceeded(ctx, tx, scope, key, map[string]string{
		"paymentId": updated.ID.String(),
	}); err != nil {
		return err
	}

	result.Outcome = OutcomeConfirmed
	result.Payment = updated
	return nil
}

func (s *service) fail(ctx context.Context, tx *gorm.DB, scope, key string, callback vnpay.Callback, result *Result) error {
	payment, err := s.payments.GetByTxnRef(ctx, callback.TxnRef)
	if err != nil {
		return err
	}

	reason := fmt.Sprintf("gateway response code %s", callback.ResponseCode)
	updated, err := s.payments.TransitionTx(ctx, tx, payment.ID, enums.PaymentStatusFailed, payments.TransitionOptions{
		Metadata: map[string]any{"cause": scope, "reason": reason},
		GatewayMetadata: map[string]any{
			"responseCode":  callback.ResponseCode,
			"transactionNo": callback.TransactionNo,
		},
	})
	if err != nil {
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			return err
		}
		// Already terminal; record the failed delivery and move on.
		updated = payment
	}

	result.Outcome = OutcomeFailed
	result.Payment = updated
	return s.ledger.MarkFailed(ctx, tx, scope, key, reason)
}

func (s *service) notifyBooking(ctx context.Context, payment *models.Payment) {
	if payment == nil {
		return
	}
	if err := s.booking.NotifyPaid(ctx, payment.BookingID, payment.ID); err != nil {
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"payment_id": payment.ID.String(),
			"booking_id": payment.BookingID,
		}), "booking mark-paid callback failed; queue event remains authoritative", err)
	}
}

func (s *service) idempotencyKey(callback vnpay.Callback) string {
	providerID := callback.TransactionNo
	if providerID == "" {
		providerID = callback.PayDate
	}
	if providerID == "" {
		providerID = s.now().UTC().Format(time.RFC3339)
	}
	return callback.TxnRef + "|" + providerID
}
