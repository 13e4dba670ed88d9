package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/motogo-vn/motogo-payments/api/responses"
	"github.com/motogo-vn/motogo-payments/api/validators"
	possvc "github.com/motogo-vn/motogo-payments/internal/pos"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
)

// PublicCashIntent lets an unauthenticated renter switch a booking to pay by
// cash at pickup. An existing pending cash intent is reused; pending gateway
// intents for the booking are voided.
func PublicCashIntent(svc possvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload publicCashIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.CreatePublicCashIntent(r.Context(), possvc.PublicIntentInput{
			BookingID:   payload.BookingID,
			RenterID:    payload.RenterID,
			AmountCents: payload.AmountCents,
			Description: payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPaymentResponse(payment))
	}
}

// PublicCashConfirm settles a pending cash intent from the renter-facing flow.
func PublicCashConfirm(svc possvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(chi.URLParam(r, "paymentId"), "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.ConfirmPublicCash(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

type publicCashIntentRequest struct {
	BookingID   string     `json:"bookingId" validate:"required"`
	RenterID    *uuid.UUID `json:"renterId,omitempty"`
	AmountCents int64      `json:"amountCents" validate:"required,gt=0"`
	Description string     `json:"description,omitempty"`
}
