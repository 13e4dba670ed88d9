package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/motogo-vn/motogo-payments/api/middleware"
	"github.com/motogo-vn/motogo-payments/api/responses"
	"github.com/motogo-vn/motogo-payments/api/validators"
	depositsvc "github.com/motogo-vn/motogo-payments/internal/deposits"
	"github.com/motogo-vn/motogo-payments/pkg/db/models"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	pkgerrors "github.com/motogo-vn/motogo-payments/pkg/errors"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
)

// HoldDeposit collects a security deposit at the counter and records the hold.
func HoldDeposit(svc depositsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.PrincipalFromContext(r.Context())
		if principal == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var payload holdDepositRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		stationID := payload.StationID
		deposit, err := svc.Hold(r.Context(), depositsvc.HoldInput{
			BookingID:   payload.BookingID,
			RenterID:    payload.RenterID,
			StationID:   &stationID,
			AmountCents: payload.AmountCents,
			Method:      method,
			Note:        payload.Note,
		}, *principal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newDepositResponse(deposit))
	}
}

// ReleaseDeposit returns held funds to the renter, fully or in part.
func ReleaseDeposit(svc depositsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return settleDeposit(svc, logg, false)
}

// ForfeitDeposit keeps held funds against damages or fines.
func ForfeitDeposit(svc depositsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return settleDeposit(svc, logg, true)
}

func settleDeposit(svc depositsvc.Service, logg *logger.Logger, forfeit bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.PrincipalFromContext(r.Context())
		if principal == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "depositId"), "depositId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload settleDepositRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := depositsvc.SettleInput{AmountCents: payload.AmountCents, Note: payload.Note}
		var deposit *models.Deposit
		if forfeit {
			deposit, err = svc.Forfeit(r.Context(), id, input, *principal)
		} else {
			deposit, err = svc.Release(r.Context(), id, input, *principal)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDepositResponse(deposit))
	}
}

// GetDeposit returns a single deposit by id.
func GetDeposit(svc depositsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(chi.URLParam(r, "depositId"), "depositId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deposit, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDepositResponse(deposit))
	}
}

// ListBookingDeposits returns all deposits recorded against one booking.
func ListBookingDeposits(svc depositsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID := strings.TrimSpace(r.URL.Query().Get("bookingId"))
		if bookingID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "bookingId query parameter is required"))
			return
		}

		deposits, err := svc.ListByBooking(r.Context(), bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]depositResponse, 0, len(deposits))
		for i := range deposits {
			items = append(items, newDepositResponse(&deposits[i]))
		}
		responses.WriteSuccess(w, depositListResponse{Items: items})
	}
}

type holdDepositRequest struct {
	BookingID   string     `json:"bookingId" validate:"required"`
	RenterID    *uuid.UUID `json:"renterId,omitempty"`
	StationID   uuid.UUID  `json:"stationId" validate:"required"`
	AmountCents int64      `json:"amountCents" validate:"required,gt=0"`
	Method      string     `json:"method" validate:"required"`
	Note        string     `json:"note,omitempty"`
}

type settleDepositRequest struct {
	AmountCents int64  `json:"amountCents,omitempty" validate:"omitempty,gt=0"`
	Note        string `json:"note,omitempty"`
}

type depositResponse struct {
	ID              uuid.UUID  `json:"id"`
	BookingID       string     `json:"bookingId"`
	RenterID        *uuid.UUID `json:"renterId,omitempty"`
	StationID       *uuid.UUID `json:"stationId,omitempty"`
	AmountCents     int64      `json:"amountCents"`
	HeldAmountCents int64      `json:"heldAmountCents"`
	Status          string     `json:"status"`
	HoldPaymentID   uuid.UUID  `json:"holdPaymentId"`
	Note            string     `json:"note,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type depositListResponse struct {
	Items []depositResponse `json:"items"`
}

func newDepositResponse(deposit *models.Deposit) depositResponse {
	if deposit == nil {
		return depositResponse{}
	}
	return depositResponse{
		ID:              deposit.ID,
		BookingID:       deposit.BookingID,
		RenterID:        deposit.RenterID,
		StationID:       deposit.StationID,
		AmountCents:     deposit.AmountCents,
		HeldAmountCents: deposit.HeldAmountCents,
		Status:          string(deposit.Status),
		HoldPaymentID:   deposit.HoldPaymentID,
		Note:            deposit.Note,
		CreatedAt:       deposit.CreatedAt,
		UpdatedAt:       deposit.UpdatedAt,
	}
}
