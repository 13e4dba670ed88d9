package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/motogo-vn/motogo-payments/api/middleware"
	"github.com/motogo-vn/motogo-payments/api/responses"
	"github.com/motogo-vn/motogo-payments/api/validators"
	possvc "github.com/motogo-vn/motogo-payments/internal/pos"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	pkgerrors "github.com/motogo-vn/motogo-payments/pkg/errors"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
)

// POSCollect opens a pending in-person payment at a station counter. Nothing
// is published until the staff member confirms the money changed hands.
func POSCollect(svc possvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.PrincipalFromContext(r.Context())
		if principal == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var payload posCollectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentType, err := enums.ParsePaymentType(payload.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment type"))
			return
		}
		method, err := enums.ParsePaymentMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		payment, err := svc.CollectAtPOS(r.Context(), possvc.CollectInput{
			BookingID:   payload.BookingID,
			RenterID:    payload.RenterID,
			StationID:   payload.StationID,
			Type:        paymentType,
			Method:      method,
			AmountCents: payload.AmountCents,
			Description: payload.Description,
		}, *principal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPaymentResponse(payment))
	}
}

// POSConfirm settles a pending in-person payment and triggers the succeeded
// side effects.
func POSConfirm(svc possvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.PrincipalFromContext(r.Context())
		if principal == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "paymentId"), "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.ConfirmPOS(r.Context(), id, *principal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

type posCollectRequest struct {
	BookingID   string     `json:"bookingId" validate:"required"`
	RenterID    *uuid.UUID `json:"renterId,omitempty"`
	StationID   uuid.UUID  `json:"stationId" validate:"required"`
	Type        string     `json:"type" validate:"required"`
	Method      string     `json:"method" validate:"required"`
	AmountCents int64      `json:"amountCents" validate:"required,gt=0"`
	Description string     `json:"description,omitempty"`
}
