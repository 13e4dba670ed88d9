package intents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motogo-vn/motogo-payments/internal/idemledger"
	"github.com/motogo-vn/motogo-payments/internal/payments"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	pkgerrors "github.com/motogo-vn/motogo-payments/pkg/errors"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
	"github.com/motogo-vn/motogo-payments/pkg/metrics"
)

const (
	consumerName = "payment-intents"
	ledgerScope  = "intent-request"
)

// IntentRequest is the booking-originated queue message asking this service
// to open a payment intent for a rental.
type IntentRequest struct {
	RequestID   string     `json:"requestId"`
	BookingID   string     `json:"bookingId"`
	RenterID    *uuid.UUID `json:"renterId,omitempty"`
	StationID   *uuid.UUID `json:"stationId,omitempty"`
	StationName string     `json:"stationName,omitempty"`
	AmountCents int64      `json:"amountCents"`
	Description string     `json:"description,omitempty"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// processedGuard is the Redis front-line duplicate filter. The DB ledger
// remains authoritative; the guard only saves a transaction on hot replays.
type processedGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type processResult struct {
	ack  bool
	nack bool
}

// Consumer turns payment.intent.request messages into PENDING gateway
// payments. Manual ack discipline: ack after a durable effect or a deliberate
// no-op, nack on unexpected errors so the broker redelivers.
type Consumer struct {
	payments     payments.Service
	ledger       idemledger.Service
	tx           txRunner
	guard        processedGuard
	subscription *pubsub.Subscriber
	logg         *logger.Logger
	metrics      *metrics.ConsumerMetrics
}

func NewConsumer(paymentsSvc payments.Service, ledger idemledger.Service, tx txRunner, guard processedGuard, subscription *pubsub.Subscriber, logg *logger.Logger, cm *metrics.ConsumerMetrics) (*Consumer, error) {
	if paymentsSvc == nil {
		return nil, errors.New("payments service is required")
	}
	if ledger == nil {
		return nil, errors.New("idempotency ledger is required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	if subscription == nil {
		return nil, errors.New("intent subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		payments:     paymentsSvc,
		ledger:       ledger,
		tx:           tx,
		guard:        guard,
		subscription: subscription,
		logg:         logg,
		metrics:      cm,
	}, nil
}

// Run processes intent requests until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		started := time.Now()
		result := c.process(ctx, msg)
		if c.metrics != nil {
			c.metrics.ObserveDuration(consumerName, time.Since(started))
		}
		if result.nack {
			if c.metrics != nil {
				c.metrics.IncNack(consumerName)
			}
			msg.Nack()
			return
		}
		if c.metrics != nil {
			c.metrics.IncAck(consumerName)
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{"message_id": msg.ID})

	var request IntentRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		c.logg.Error(logCtx, "failed to unmarshal intent request", err)
		return processResult{ack: true}
	}

	key := strings.TrimSpace(request.RequestID)
	if key == "" {
		// No sender key; the message id still dedupes broker redeliveries.
		key = msg.ID
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"request_id": key,
		"booking_id": request.BookingID,
	})

	if request.BookingID == "" || request.AmountCents <= 0 {
		c.logg.Error(logCtx, "discarding malformed intent request",
			fmt.Errorf("bookingId=%q amountCents=%d", request.BookingID, request.AmountCents))
		return processResult{ack: true}
	}

	guardID, guardOK := c.checkGuard(logCtx, key)
	if guardOK {
		c.logg.Info(logCtx, "intent request already processed (cache)")
		return processResult{ack: true}
	}

	err := c.tx.WithTx(logCtx, func(tx *gorm.DB) error {
		if _, err := c.ledger.Ensure(logCtx, tx, ledgerScope, key); err != nil {
			return err
		}

		txnRef := "MGP-" + uuid.NewString()
		payment, err := c.payments.CreateTx(logCtx, tx, payments.CreateInput{
			BookingID:   request.BookingID,
			RenterID:    request.RenterID,
			StationID:   request.StationID,
			Type:        enums.PaymentTypeRentalFee,
			Method:      enums.PaymentMethodVNPay,
			AmountCents: request.AmountCents,
			Description: intentDescription(request),
			TxnRef:      &txnRef,
		})
		if err != nil {
			return err
		}

		return c.ledger.MarkSucceeded(logCtx, tx, ledgerScope, key, map[string]string{
			"paymentId": payment.ID.String(),
		})
	})
	if err != nil {
		if pkgerrors.IsAlreadyProcessed(err) {
			c.logg.Info(logCtx, "intent request already processed (ledger)")
			return processResult{ack: true}
		}
		typed := pkgerrors.As(err)
		if typed != nil && typed.Code() == pkgerrors.CodeValidation {
			c.logg.Error(logCtx, "discarding invalid intent request", err)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "intent request processing failed", err)
		c.releaseGuard(logCtx, guardID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "payment intent opened from queue request")
	return processResult{ack: true}
}

// checkGuard consults the Redis duplicate filter when the key is a UUID the
// guard can track. Guard errors degrade to the DB ledger.
func (c *Consumer) checkGuard(ctx context.Context, key string) (uuid.UUID, bool) {
	if c.guard == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(key)
	if err != nil {
		return uuid.Nil, false
	}
	seen, err := c.guard.CheckAndMarkProcessed(ctx, consumerName, id)
	if err != nil {
		c.logg.Warn(ctx, "idempotency cache unavailable; relying on ledger")
		return uuid.Nil, false
	}
	return id, seen
}

func (c *Consumer) releaseGuard(ctx context.Context, id uuid.UUID) {
	if c.guard == nil || id == uuid.Nil {
		return
	}
	if err := c.guard.Delete(ctx, consumerName, id); err != nil {
		c.logg.Warn(ctx, "failed to release idempotency cache marker")
	}
}

func intentDescription(request IntentRequest) string {
	if request.Description != "" {
		return request.Description
	}
	if request.StationName != "" {
		return fmt.Sprintf("Rental fee for booking %s at %s", request.BookingID, request.StationName)
	}
	return fmt.Sprintf("Rental fee for booking %s", request.BookingID)
}
