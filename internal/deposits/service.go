package deposits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motogo-vn/motogo-payments/internal/payments"
	"github.com/motogo-vn/motogo-payments/pkg/db/models"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	pkgerrors "github.com/motogo-vn/motogo-payments/pkg/errors"
	"github.com/motogo-vn/motogo-payments/pkg/identity"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
	"github.com/motogo-vn/motogo-payments/pkg/outbox"
	"github.com/motogo-vn/motogo-payments/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// HoldInput captures a staff-collected security deposit.
type HoldInput struct {
	BookingID   string
	RenterID    *uuid.UUID
	StationID   *uuid.UUID
	AmountCents int64
	Method      enums.PaymentMethod
	Note        string
}

// SettleInput covers release and forfeit requests. A zero AmountCents means
// the full remaining held amount.
type SettleInput struct {
	AmountCents int64
	Note        string
}

// Service manages the deposit lifecycle: hold at pickup, then release the
// remainder back to the renter or forfeit part of it against damages.
type Service interface {
	Hold(ctx context.Context, input HoldInput, actor identity.Principal) (*models.Deposit, error)
	Release(ctx context.Context, id uuid.UUID, input SettleInput, actor identity.Principal) (*models.Deposit, error)
	Forfeit(ctx context.Context, id uuid.UUID, input SettleInput, actor identity.Principal) (*models.Deposit, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Deposit, error)
	ListByBooking(ctx context.Context, bookingID string) ([]models.Deposit, error)
}

type service struct {
	repo     Repository
	payments payments.Service
	tx       txRunner
	outbox   outboxEmitter
	logg     *logger.Logger
}

func NewService(repo Repository, paymentsSvc payments.Service, tx txRunner, emitter outboxEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deposits repository required")
	}
	if paymentsSvc == nil {
		return nil, fmt.Errorf("payments service required")
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
		repo:     repo,
		payments: paymentsSvc,
		tx:       tx,
		outbox:   emitter,
		logg:     logg,
	}, nil
}

// Hold collects a deposit at the counter: the hold payment and the deposit
// row are committed together, and the hold payment is confirmed in the same
// transaction since the staff member has the money in hand.
func (s *service) Hold(ctx context.Context, input HoldInput, actor identity.Principal) (*models.Deposit, error) {
	if input.BookingID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit amount must be a positive integer")
	}
	if !input.Method.IsInPerson() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposits are collected in person (cash or card)")
	}
	if input.StationID != nil && !actor.CanOperateStation(*input.StationID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "station not in assignment set")
	}

	actorID := actor.UserID
	var deposit *models.Deposit
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		hold, err := s.payments.CreateTx(ctx, tx, payments.CreateInput{
			BookingID:   input.BookingID,
			RenterID:    input.RenterID,
			StationID:   input.StationID,
			Type:        enums.PaymentTypeDeposit,
			Method:      input.Method,
			AmountCents: input.AmountCents,
			Description: fmt.Sprintf("Security deposit for booking %s", input.BookingID),
			CreatedBy:   &actorID,
		})
		if err != nil {
			return err
		}
		if _, err := s.payments.TransitionTx(ctx, tx, hold.ID, enums.PaymentStatusSucceeded, payments.TransitionOptions{
			Actor:    &actorID,
			Metadata: map[string]any{"cause": "deposit_hold"},
		}); err != nil {
			return err
		}

		deposit = &models.Deposit{
			BookingID:       input.BookingID,
			RenterID:        input.RenterID,
			StationID:       input.StationID,
			AmountCents:     input.AmountCents,
			HeldAmountCents: input.AmountCents,
			Status:          enums.DepositStatusHeld,
			HoldPaymentID:   hold.ID,
			Note:            input.Note,
		}
		if err := s.repo.WithTx(tx).Create(ctx, deposit); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create deposit")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDepositHeld,
			AggregateType: enums.AggregateDeposit,
			AggregateID:   deposit.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actorID, StationID: input.StationID, Role: string(actor.Role)},
			Data: payloads.DepositHeldEvent{
				DepositID:     deposit.ID,
				BookingID:     deposit.BookingID,
				HoldPaymentID: hold.ID,
				AmountCents:   deposit.AmountCents,
				At:            time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"deposit_id": deposit.ID.String(),
		"booking_id": deposit.BookingID,
	}), "deposit held")
	return deposit, nil
}

// Release returns held money to the renter as a negative deposit payment.
// Releasing the full remainder settles the deposit.
func (s *service) Release(ctx context.Context, id uuid.UUID, input SettleInput, actor identity.Principal) (*models.Deposit, error) {
	return s.settle(ctx, id, input, actor, false)
}

// Forfeit keeps held money against damages or fees, recorded as a fine
// payment. Forfeiting part of the remainder leaves the deposit open for the
// rest.
func (s *service) Forfeit(ctx context.Context, id uuid.UUID, input SettleInput, actor identity.Principal) (*models.Deposit, error) {
	return s.settle(ctx, id, input, actor, true)
}

func (s *service) settle(ctx context.Context, id uuid.UUID, input SettleInput, actor identity.Principal, forfeit bool) (*models.Deposit, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit id required")
	}
	if input.AmountCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}

	actorID := actor.UserID
	var settled *models.Deposit
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		deposit, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "deposit not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deposit")
		}
		if deposit.StationID != nil && !actor.CanOperateStation(*deposit.StationID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "station not in assignment set")
		}
		if deposit.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("deposit already settled with status %s", deposit.Status))
		}

		amount := input.AmountCents
		if amount == 0 {
			amount = deposit.HeldAmountCents
		}
		if amount > deposit.HeldAmountCents {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("amount %d exceeds held remainder %d", amount, deposit.HeldAmountCents))
		}

		remainder := deposit.HeldAmountCents - amount
		event := payloads.DepositSettledEvent{
			DepositID: deposit.ID,
			BookingID: deposit.BookingID,
			Note:      input.Note,
			At:        time.Now().UTC(),
		}
		eventType := enums.EventDepositReleased
		next := deposit.Status

		if forfeit {
			fine, err := s.payments.CreateTx(ctx, tx, payments.CreateInput{
				BookingID:   deposit.BookingID,
				RenterID:    deposit.RenterID,
				StationID:   deposit.StationID,
				Type:        enums.PaymentTypeFine,
				Method:      enums.PaymentMethodCash,
				AmountCents: amount,
				Description: fmt.Sprintf("Forfeited deposit %s", deposit.ID),
				CreatedBy:   &actorID,
			})
			if err != nil {
				return err
			}
			if _, err := s.payments.TransitionTx(ctx, tx, fine.ID, enums.PaymentStatusSucceeded, payments.TransitionOptions{
				Actor:    &actorID,
				Metadata: map[string]any{"cause": "deposit_forfeit", "deposit_id": deposit.ID.String()},
			}); err != nil {
				return err
			}
			if remainder == 0 {
				next = enums.DepositStatusForfeit
			} else {
				next = enums.DepositStatusPartialForfeit
			}
			eventType = enums.EventDepositForfeited
			event.ForfeitedCents = amount
			event.ForfeitPaymentID = &fine.ID
		} else {
			if _, err := s.payments.CreateTx(ctx, tx, payments.CreateInput{
				BookingID:     deposit.BookingID,
				RenterID:      deposit.RenterID,
				StationID:     deposit.StationID,
				Type:          enums.PaymentTypeDeposit,
				Method:        enums.PaymentMethodCash,
				AmountCents:   -amount,
				Description:   fmt.Sprintf("Release of deposit %s", deposit.ID),
				CreatedBy:     &actorID,
				AllowNegative: true,
			}); err != nil {
				return err
			}
			if remainder == 0 {
				next = enums.DepositStatusReleased
			}
			event.ReleasedCents = amount
		}

		updates := map[string]any{
			"held_amount_cents": remainder,
			"status":            next,
		}
		if input.Note != "" {
			updates["note"] = input.Note
		}
		if err := repo.Update(ctx, deposit.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update deposit")
		}
		deposit.HeldAmountCents = remainder
		deposit.Status = next
		event.Status = next

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateDeposit,
			AggregateID:   deposit.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actorID, StationID: deposit.StationID, Role: string(actor.Role)},
			Data:          event,
		}); err != nil {
			return err
		}

		settled = deposit
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Deposit, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit id required")
	}
	deposit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "deposit not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deposit")
	}
	return deposit, nil
}

func (s *service) ListByBooking(ctx context.Context, bookingID string) ([]models.Deposit, error) {
	if bookingID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	rows, err := s.repo.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deposits")
	}
	return rows, nil
}
