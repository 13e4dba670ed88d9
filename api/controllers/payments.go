package controllers

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/motogo-vn/motogo-payments/api/middleware"
	"github.com/motogo-vn/motogo-payments/api/responses"
	"github.com/motogo-vn/motogo-payments/api/validators"
	paymentsvc "github.com/motogo-vn/motogo-payments/internal/payments"
	"github.com/motogo-vn/motogo-payments/pkg/db/models"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	pkgerrors "github.com/motogo-vn/motogo-payments/pkg/errors"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
	"github.com/motogo-vn/motogo-payments/pkg/pagination"
	"github.com/motogo-vn/motogo-payments/pkg/vnpay"
)

// RedirectBuilder composes the signed gateway redirect for a pending payment.
type RedirectBuilder interface {
	BuildRedirect(req vnpay.RedirectRequest, clientIP string, opts vnpay.RedirectOptions) (string, error)
}

// CreatePayment opens a payment intent. Gateway intents come back with the
// signed redirect URL; cash and card intents settle later at the counter.
func CreatePayment(svc paymentsvc.Service, gateway RedirectBuilder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload createPaymentRequest
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

		input := paymentsvc.CreateInput{
			BookingID:   payload.BookingID,
			RenterID:    payload.RenterID,
			StationID:   payload.StationID,
			Type:        paymentType,
			Method:      method,
			AmountCents: payload.AmountCents,
			Description: payload.Description,
		}
		if principal := middleware.PrincipalFromContext(r.Context()); principal != nil {
			createdBy := principal.UserID
			input.CreatedBy = &createdBy
		}

		var redirectURL string
		if method == enums.PaymentMethodVNPay {
			txnRef := newTxnRef()
			input.TxnRef = &txnRef
		}

		payment, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if method == enums.PaymentMethodVNPay {
			if gateway == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeGatewayConfig, "payment gateway unavailable"))
				return
			}
			redirectURL, err = gateway.BuildRedirect(vnpay.RedirectRequest{
				TxnRef:      *payment.TxnRef,
				AmountCents: payment.AmountCents,
				OrderInfo:   payment.Description,
			}, requestClientIP(r), vnpay.RedirectOptions{
				Locale:   payload.Locale,
				BankCode: payload.BankCode,
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		resp := createPaymentResponse{
			Payment:     newPaymentResponse(payment),
			RedirectURL: redirectURL,
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// GetPayment returns a single payment by id.
func GetPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(chi.URLParam(r, "paymentId"), "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

// ListPayments returns a cursor page of payments with optional filters.
func ListPayments(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := paymentsvc.ListFilters{}
		if bookingID := strings.TrimSpace(r.URL.Query().Get("bookingId")); bookingID != "" {
			filters.BookingID = &bookingID
		}
		stationID, err := validators.ParseQueryUUID(r, "stationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.StationID = stationID
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParsePaymentStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("method")); raw != "" {
			method, parseErr := enums.ParsePaymentMethod(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid method filter"))
				return
			}
			filters.Method = &method
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			paymentType, parseErr := enums.ParsePaymentType(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid type filter"))
				return
			}
			filters.Type = &paymentType
		}

		page, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]paymentResponse, 0, len(page.Items))
		for i := range page.Items {
			items = append(items, newPaymentResponse(&page.Items[i]))
		}
		responses.WriteSuccess(w, paymentListResponse{Items: items, NextCursor: page.NextCursor})
	}
}

// ListPaymentTransactions returns the audit trail for one payment.
func ListPaymentTransactions(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(chi.URLParam(r, "paymentId"), "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transactions, err := svc.GetTransactions(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]transactionResponse, 0, len(transactions))
		for i := range transactions {
			items = append(items, newTransactionResponse(&transactions[i]))
		}
		responses.WriteSuccess(w, transactionListResponse{Items: items})
	}
}

// CancelPayment voids a pending payment.
func CancelPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(chi.URLParam(r, "paymentId"), "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Cancel(r.Context(), id, actorID(r), payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

// RefundPayment reverses a succeeded payment and records the compensating row.
func RefundPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(chi.URLParam(r, "paymentId"), "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Refund(r.Context(), id, actorID(r), payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

type createPaymentRequest struct {
	BookingID   string     `json:"bookingId" validate:"required"`
	RenterID    *uuid.UUID `json:"renterId,omitempty"`
	StationID   *uuid.UUID `json:"stationId,omitempty"`
	Type        string     `json:"type" validate:"required"`
	Method      string     `json:"method" validate:"required"`
	AmountCents int64      `json:"amountCents" validate:"required,gt=0"`
	Description string     `json:"description,omitempty"`
	Locale      string     `json:"locale,omitempty"`
	BankCode    string     `json:"bankCode,omitempty"`
}

type reasonRequest struct {
	Reason string `json:"reason,omitempty"`
}

type createPaymentResponse struct {
	Payment     paymentResponse `json:"payment"`
	RedirectURL string          `json:"redirectUrl,omitempty"`
}

type paymentResponse struct {
	ID          uuid.UUID  `json:"id"`
	BookingID   string     `json:"bookingId"`
	RenterID    *uuid.UUID `json:"renterId,omitempty"`
	StationID   *uuid.UUID `json:"stationId,omitempty"`
	Type        string     `json:"type"`
	Method      string     `json:"method"`
	AmountCents int64      `json:"amountCents"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	TxnRef      *string    `json:"txnRef,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type paymentListResponse struct {
	Items      []paymentResponse `json:"items"`
	NextCursor *string           `json:"nextCursor,omitempty"`
}

type transactionResponse struct {
	ID          uuid.UUID  `json:"id"`
	FromStatus  *string    `json:"fromStatus,omitempty"`
	ToStatus    string     `json:"toStatus"`
	AmountCents int64      `json:"amountCents"`
	Actor       *uuid.UUID `json:"actor,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type transactionListResponse struct {
	Items []transactionResponse `json:"items"`
}

func newPaymentResponse(payment *models.Payment) paymentResponse {
	if payment == nil {
		return paymentResponse{}
	}
	return paymentResponse{
		ID:          payment.ID,
		BookingID:   payment.BookingID,
		RenterID:    payment.RenterID,
		StationID:   payment.StationID,
		Type:        string(payment.Type),
		Method:      string(payment.Method),
		AmountCents: payment.AmountCents,
		Description: payment.Description,
		Status:      string(payment.Status),
		TxnRef:      payment.TxnRef,
		CreatedAt:   payment.CreatedAt,
		UpdatedAt:   payment.UpdatedAt,
	}
}

func newTransactionResponse(txn *models.PaymentTransaction) transactionResponse {
	if txn == nil {
		return transactionResponse{}
	}
	resp := transactionResponse{
		ID:          txn.ID,
		ToStatus:    string(txn.ToStatus),
		AmountCents: txn.AmountCents,
		Actor:       txn.ActorID,
		CreatedAt:   txn.CreatedAt,
	}
	if txn.FromStatus != nil {
		from := string(*txn.FromStatus)
		resp.FromStatus = &from
	}
	return resp
}

func actorID(r *http.Request) *uuid.UUID {
	principal := middleware.PrincipalFromContext(r.Context())
	if principal == nil {
		return nil
	}
	id := principal.UserID
	return &id
}

func newTxnRef() string {
	return "MGP-" + uuid.NewString()
}

func requestClientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
