package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motogo-vn/motogo-payments/pkg/db/models"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	pkgerrors "github.com/motogo-vn/motogo-payments/pkg/errors"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
	"github.com/motogo-vn/motogo-payments/pkg/metrics"
	"github.com/motogo-vn/motogo-payments/pkg/outbox"
	"github.com/motogo-vn/motogo-payments/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the payment aggregate's only write surface. Every status change
// goes through the transition engine; callers that orchestrate larger units
// of work use the Tx variants inside their own transaction.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Payment, error)
	CreateTx(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Payment, error)
	Transition(ctx context.Context, id uuid.UUID, to enums.PaymentStatus, opts TransitionOptions) (*models.Payment, error)
	TransitionTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, to enums.PaymentStatus, opts TransitionOptions) (*models.Payment, error)
	Refund(ctx context.Context, id uuid.UUID, actor *uuid.UUID, reason string) (*models.Payment, error)
	Cancel(ctx context.Context, id uuid.UUID, actor *uuid.UUID, reason string) (*models.Payment, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByTxnRef(ctx context.Context, txnRef string) (*models.Payment, error)
	GetTransactions(ctx context.Context, paymentID uuid.UUID) ([]models.PaymentTransaction, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*PaymentList, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxEmitter
	logg    *logger.Logger
	metrics *metrics.PaymentMetrics
}

// NewService wires the payments engine. The outbox emitter is used only by
// Refund and Cancel; plain transitions never publish from inside the engine.
func NewService(repo Repository, tx txRunner, emitter outboxEmitter, logg *logger.Logger, pm *metrics.PaymentMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
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
		repo:    repo,
		tx:      tx,
		outbox:  emitter,
		logg:    logg,
		metrics: pm,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Payment, error) {
	var created *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.CreateTx(ctx, tx, input)
		if err != nil {
			return err
		}
		created = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) CreateTx(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Payment, error) {
	if input.BookingID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment type %q", input.Type))
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}
	if input.AmountCents <= 0 && !input.AllowNegative {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive integer")
	}
	if input.AmountCents == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be zero")
	}

	repo := s.repo.WithTx(tx)
	payment := &models.Payment{
		BookingID:   input.BookingID,
		RenterID:    input.RenterID,
		StationID:   input.StationID,
		Type:        input.Type,
		Method:      input.Method,
		AmountCents: input.AmountCents,
		Description: input.Description,
		Status:      enums.PaymentStatusPending,
		TxnRef:      input.TxnRef,
		CreatedBy:   input.CreatedBy,
	}
	if err := repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}

	txn := &models.PaymentTransaction{
		PaymentID:   payment.ID,
		FromStatus:  nil,
		ToStatus:    payment.Status,
		AmountCents: payment.AmountCents,
		ActorID:     input.CreatedBy,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment creation")
	}
	return payment, nil
}

func (s *service) Transition(ctx context.Context, id uuid.UUID, to enums.PaymentStatus, opts TransitionOptions) (*models.Payment, error) {
	var updated *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.TransitionTx(ctx, tx, id, to, opts)
		if err != nil {
			return err
		}
		updated = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// TransitionTx applies one edge of the state machine inside the caller's
// transaction. The row is loaded FOR UPDATE so concurrent attempts serialize;
// the loser observes the new status and is rejected by the edge table.
func (s *service) TransitionTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, to enums.PaymentStatus, opts TransitionOptions) (*models.Payment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment status %q", to))
	}

	repo := s.repo.WithTx(tx)
	payment, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	from := payment.Status
	if !CanTransition(from, to) {
		if s.metrics != nil {
			s.metrics.IncRejection(string(from), string(to))
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("transition %s -> %s is not allowed", from, to))
	}

	updates := map[string]any{"status": to}
	if opts.GatewayMetadata != nil {
		encoded, marshalErr := json.Marshal(opts.GatewayMetadata)
		if marshalErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, marshalErr, "encode gateway metadata")
		}
		updates["gateway_metadata"] = json.RawMessage(encoded)
		payment.GatewayMetadata = json.RawMessage(encoded)
	}
	if err := repo.Update(ctx, payment.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
	}

	txn := &models.PaymentTransaction{
		PaymentID:   payment.ID,
		FromStatus:  &from,
		ToStatus:    to,
		AmountCents: payment.AmountCents,
		ActorID:     opts.Actor,
	}
	if opts.Metadata != nil {
		encoded, marshalErr := json.Marshal(opts.Metadata)
		if marshalErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, marshalErr, "encode transition metadata")
		}
		txn.Metadata = json.RawMessage(encoded)
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transition")
	}

	payment.Status = to
	if s.metrics != nil {
		s.metrics.IncTransition(string(from), string(to))
	}
	return payment, nil
}

// Refund moves a SUCCEEDED payment to REFUNDED and records a companion row
// with a negative amount. The original row is never sign-flipped.
func (s *service) Refund(ctx context.Context, id uuid.UUID, actor *uuid.UUID, reason string) (*models.Payment, error) {
	var refunded *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		// The engine edge table admits PENDING->REFUNDED for other callers;
		// the refund operation only ever reverses collected money.
		if current.Status != enums.PaymentStatusSucceeded {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("refund requires a SUCCEEDED payment, current status %s", current.Status))
		}

		payment, err := s.TransitionTx(ctx, tx, id, enums.PaymentStatusRefunded, TransitionOptions{
			Actor:    actor,
			Metadata: map[string]any{"cause": "refund", "reason": reason},
		})
		if err != nil {
			return err
		}

		companion, err := s.CreateTx(ctx, tx, CreateInput{
			BookingID:     payment.BookingID,
			RenterID:      payment.RenterID,
			StationID:     payment.StationID,
			Type:          payment.Type,
			Method:        payment.Method,
			AmountCents:   -payment.AmountCents,
			Description:   fmt.Sprintf("Refund of payment %s", payment.ID),
			CreatedBy:     actor,
			AllowNegative: true,
		})
		if err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentRefunded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Actor:         actorRef(actor),
			Data:          refundedEventData(payment, companion, reason),
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		refunded = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refunded, nil
}

// Cancel moves a PENDING payment to CANCELED.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, actor *uuid.UUID, reason string) (*models.Payment, error) {
	var canceled *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.TransitionTx(ctx, tx, id, enums.PaymentStatusCanceled, TransitionOptions{
			Actor:    actor,
			Metadata: map[string]any{"cause": "cancel", "reason": reason},
		})
		if err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentCanceled,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Actor:         actorRef(actor),
			Data:          statusEventData(payment, reason),
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		canceled = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return canceled, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

func (s *service) GetByTxnRef(ctx context.Context, txnRef string) (*models.Payment, error) {
	if txnRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference required")
	}
	payment, err := s.repo.FindByTxnRef(ctx, txnRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment by txn ref")
	}
	return payment, nil
}

func (s *service) GetTransactions(ctx context.Context, paymentID uuid.UUID) ([]models.PaymentTransaction, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	rows, err := s.repo.ListTransactions(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment transactions")
	}
	return rows, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*PaymentList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return list, nil
}

func actorRef(actor *uuid.UUID) *outbox.ActorRef {
	if actor == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *actor}
}
