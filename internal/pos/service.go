package pos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motogo-vn/motogo-payments/internal/payments"
	"github.com/motogo-vn/motogo-payments/pkg/db/models"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	pkgerrors "github.com/motogo-vn/motogo-payments/pkg/errors"
	"github.com/motogo-vn/motogo-payments/pkg/identity"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
	"github.com/motogo-vn/motogo-payments/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type bookingNotifier interface {
	NotifyPaid(ctx context.Context, bookingID string, paymentID uuid.UUID) error
}

// CollectInput is a staff-entered counter payment.
type CollectInput struct {
	BookingID   string
	RenterID    *uuid.UUID
	StationID   uuid.UUID
	Type        enums.PaymentType
	Method      enums.PaymentMethod
	AmountCents int64
	Description string
}

// PublicIntentInput is a renter-initiated cash intent; no authentication is
// attached, so the renter reference is whatever the booking flow supplied.
type PublicIntentInput struct {
	BookingID   string
	RenterID    *uuid.UUID
	AmountCents int64
	Description string
}

// Service implements the two-phase collection flows. Collection creates a
// PENDING payment; only an explicit confirm step moves it to SUCCEEDED and
// triggers the downstream vehicle-release notification.
type Service interface {
	CollectAtPOS(ctx context.Context, input CollectInput, actor identity.Principal) (*models.Payment, error)
	ConfirmPOS(ctx context.Context, paymentID uuid.UUID, actor identity.Principal) (*models.Payment, error)
	CreatePublicCashIntent(ctx context.Context, input PublicIntentInput) (*models.Payment, error)
	ConfirmPublicCash(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
}

type service struct {
	payments     payments.Service
	paymentsRepo payments.Repository
	tx           txRunner
	outbox       outboxEmitter
	booking      bookingNotifier
	logg         *logger.Logger
}

func NewService(paymentsSvc payments.Service, paymentsRepo payments.Repository, tx txRunner, emitter outboxEmitter, booking bookingNotifier, logg *logger.Logger) (Service, error) {
	if paymentsSvc == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if paymentsRepo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if booking == nil {
		return nil, fmt.Errorf("booking notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		payments:     paymentsSvc,
		paymentsRepo: paymentsRepo,
		tx:           tx,
		outbox:       emitter,
		booking:      booking,
		logg:         logg,
	}, nil
}

func (s *service) CollectAtPOS(ctx context.Context, input CollectInput, actor identity.Principal) (*models.Payment, error) {
	if input.StationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "station id required")
	}
	if !actor.CanOperateStation(input.StationID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "station not in assignment set")
	}
	if !input.Method.IsInPerson() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pos collections are cash or card")
	}

	actorID := actor.UserID
	stationID := input.StationID
	payment, err := s.payments.Create(ctx, payments.CreateInput{
		BookingID:   input.BookingID,
		RenterID:    input.RenterID,
		StationID:   &stationID,
		Type:        input.Type,
		Method:      input.Method,
		AmountCents: input.AmountCents,
		Description: input.Description,
		CreatedBy:   &actorID,
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payment_id": payment.ID.String(),
		"booking_id": payment.BookingID,
		"station_id": stationID.String(),
	}), "pos collection opened")
	return payment, nil
}

func (s *service) ConfirmPOS(ctx context.Context, paymentID uuid.UUID, actor identity.Principal) (*models.Payment, error) {
	payment, err := s.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.StationID != nil && !actor.CanOperateStation(*payment.StationID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "station not in assignment set")
	}
	actorID := actor.UserID
	return s.confirm(ctx, payment, &actorID, "pos-confirm")
}

// CreatePublicCashIntent reuses an open cash intent for the booking when one
// exists. PENDING gateway payments for the booking are canceled first so a
// method switch never leaves two live intents.
func (s *service) CreatePublicCashIntent(ctx context.Context, input PublicIntentInput) (*models.Payment, error) {
	if input.BookingID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive integer")
	}

	var intent *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.paymentsRepo.WithTx(tx)

		cash := enums.PaymentMethodCash
		existing, err := repo.FindPendingByBooking(ctx, input.BookingID, &cash)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending cash payments")
		}
		if len(existing) > 0 {
			intent = &existing[0]
			return nil
		}

		gateway := enums.PaymentMethodVNPay
		stale, err := repo.FindPendingByBooking(ctx, input.BookingID, &gateway)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending gateway payments")
		}
		for i := range stale {
			if _, err := s.payments.TransitionTx(ctx, tx, stale[i].ID, enums.PaymentStatusCanceled, payments.TransitionOptions{
				Metadata: map[string]any{"cause": "public-cash-intent", "reason": "payment method switched to cash"},
			}); err != nil {
				return err
			}
		}

		intent, err = s.payments.CreateTx(ctx, tx, payments.CreateInput{
			BookingID:   input.BookingID,
			RenterID:    input.RenterID,
			Type:        enums.PaymentTypeRentalFee,
			Method:      enums.PaymentMethodCash,
			AmountCents: input.AmountCents,
			Description: input.Description,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return intent, nil
}

// ConfirmPublicCash confirms a renter-initiated intent. Restricted to cash;
// gateway payments are only ever settled by a verified callback.
func (s *service) ConfirmPublicCash(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Method != enums.PaymentMethodCash {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only cash payments can be confirmed publicly")
	}
	return s.confirm(ctx, payment, nil, "public-confirm")
}

// confirm settles a pending payment. No status check happens here: the
// transition runs against a row locked FOR UPDATE, which is the only check
// that holds under concurrent confirms.
func (s *service) confirm(ctx context.Context, payment *models.Payment, actor *uuid.UUID, cause string) (*models.Payment, error) {
	var confirmed *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.payments.TransitionTx(ctx, tx, payment.ID, enums.PaymentStatusSucceeded, payments.TransitionOptions{
			Actor:    actor,
			Metadata: map[string]any{"cause": cause},
		})
		if err != nil {
			return err
		}

		if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSucceeded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   updated.ID,
			Version:       1,
			Actor:         actorRef(actor),
			Data:          payments.SucceededEventData(updated),
		}); err != nil {
			return err
		}
		confirmed = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.booking.NotifyPaid(ctx, confirmed.BookingID, confirmed.ID); err != nil {
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"payment_id": confirmed.ID.String(),
			"booking_id": confirmed.BookingID,
		}), "booking mark-paid callback failed; queue event remains authoritative", err)
	}
	return confirmed, nil
}

func actorRef(actor *uuid.UUID) *outbox.ActorRef {
	if actor == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *actor}
}
