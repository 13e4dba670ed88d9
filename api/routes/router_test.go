package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	depositsvc "github.com/motogo-vn/motogo-payments/internal/deposits"
	callbacksvc "github.com/motogo-vn/motogo-payments/internal/gatewaycallbacks"
	paymentsvc "github.com/motogo-vn/motogo-payments/internal/payments"
	possvc "github.com/motogo-vn/motogo-payments/internal/pos"
	"github.com/motogo-vn/motogo-payments/pkg/config"
	"github.com/motogo-vn/motogo-payments/pkg/db/models"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	pkgerrors "github.com/motogo-vn/motogo-payments/pkg/errors"
	"github.com/motogo-vn/motogo-payments/pkg/identity"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
	"github.com/motogo-vn/motogo-payments/pkg/pagination"
	"github.com/motogo-vn/motogo-payments/pkg/vnpay"
)

type stubPayments struct{}

func (stubPayments) Create(_ context.Context, input paymentsvc.CreateInput) (*models.Payment, error) {
	return &models.Payment{ID: uuid.New(), BookingID: input.BookingID, Method: input.Method, Type: input.Type, AmountCents: input.AmountCents, Status: enums.PaymentStatusPending, TxnRef: input.TxnRef}, nil
}

func (s stubPayments) CreateTx(ctx context.Context, _ *gorm.DB, input paymentsvc.CreateInput) (*models.Payment, error) {
	return s.Create(ctx, input)
}

func (stubPayments) Transition(_ context.Context, _ uuid.UUID, _ enums.PaymentStatus, _ paymentsvc.TransitionOptions) (*models.Payment, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (stubPayments) TransitionTx(_ context.Context, _ *gorm.DB, _ uuid.UUID, _ enums.PaymentStatus, _ paymentsvc.TransitionOptions) (*models.Payment, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (stubPayments) Refund(_ context.Context, id uuid.UUID, _ *uuid.UUID, _ string) (*models.Payment, error) {
	return &models.Payment{ID: id, Status: enums.PaymentStatusRefunded}, nil
}

func (stubPayments) Cancel(_ context.Context, id uuid.UUID, _ *uuid.UUID, _ string) (*models.Payment, error) {
	return &models.Payment{ID: id, Status: enums.PaymentStatusCanceled}, nil
}

func (stubPayments) Get(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	return &models.Payment{ID: id, Status: enums.PaymentStatusPending}, nil
}

func (stubPayments) GetByTxnRef(_ context.Context, _ string) (*models.Payment, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
}

func (stubPayments) GetTransactions(_ context.Context, _ uuid.UUID) ([]models.PaymentTransaction, error) {
	return nil, nil
}

func (stubPayments) List(_ context.Context, _ pagination.Params, _ paymentsvc.ListFilters) (*paymentsvc.PaymentList, error) {
	return &paymentsvc.PaymentList{}, nil
}

type stubPOS struct{}

func (stubPOS) CollectAtPOS(_ context.Context, input possvc.CollectInput, _ identity.Principal) (*models.Payment, error) {
	return &models.Payment{ID: uuid.New(), BookingID: input.BookingID, Status: enums.PaymentStatusPending}, nil
}

func (stubPOS) ConfirmPOS(_ context.Context, id uuid.UUID, _ identity.Principal) (*models.Payment, error) {
	return &models.Payment{ID: id, Status: enums.PaymentStatusSucceeded}, nil
}

func (stubPOS) CreatePublicCashIntent(_ context.Context, input possvc.PublicIntentInput) (*models.Payment, error) {
	return &models.Payment{ID: uuid.New(), BookingID: input.BookingID, Method: enums.PaymentMethodCash, Status: enums.PaymentStatusPending}, nil
}

func (stubPOS) ConfirmPublicCash(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	return &models.Payment{ID: id, Status: enums.PaymentStatusSucceeded}, nil
}

type stubDeposits struct{}

func (stubDeposits) Hold(_ context.Context, input depositsvc.HoldInput, _ identity.Principal) (*models.Deposit, error) {
	return &models.Deposit{ID: uuid.New(), BookingID: input.BookingID, Status: enums.DepositStatusHeld}, nil
}

func (stubDeposits) Release(_ context.Context, id uuid.UUID, _ depositsvc.SettleInput, _ identity.Principal) (*models.Deposit, error) {
	return &models.Deposit{ID: id, Status: enums.DepositStatusReleased}, nil
}

func (stubDeposits) Forfeit(_ context.Context, id uuid.UUID, _ depositsvc.SettleInput, _ identity.Principal) (*models.Deposit, error) {
	return &models.Deposit{ID: id, Status: enums.DepositStatusForfeit}, nil
}

func (stubDeposits) Get(_ context.Context, id uuid.UUID) (*models.Deposit, error) {
	return &models.Deposit{ID: id, Status: enums.DepositStatusHeld}, nil
}

func (stubDeposits) ListByBooking(_ context.Context, _ string) ([]models.Deposit, error) {
	return nil, nil
}

type stubCallbacks struct{}

func (stubCallbacks) HandleReturn(_ context.Context, _ url.Values) (*callbacksvc.Result, error) {
	return &callbacksvc.Result{Outcome: callbacksvc.OutcomeConfirmed, TxnRef: "MGP-1"}, nil
}

func (stubCallbacks) HandleIPN(_ context.Context, _ url.Values) (*callbacksvc.Result, error) {
	return &callbacksvc.Result{Outcome: callbacksvc.OutcomeConfirmed, TxnRef: "MGP-1"}, nil
}

type stubGateway struct{}

func (stubGateway) BuildRedirect(_ vnpay.RedirectRequest, _ string, _ vnpay.RedirectOptions) (string, error) {
	return "https://sandbox.vnpayment.vn/pay", nil
}

func newTestRouter() http.Handler {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT.Secret = "secret"
	cfg.JWT.Issuer = "motogo-identity"

	return NewRouter(Dependencies{
		Config:    cfg,
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Payments:  stubPayments{},
		POS:       stubPOS{},
		Deposits:  stubDeposits{},
		Callbacks: stubCallbacks{},
		Gateway:   stubGateway{},
	})
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter()
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterRejectsAnonymousPrivateRoute(t *testing.T) {
	router := newTestRouter()
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRouterAllowsTrustedHeaderAuth(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil)
	req.Header.Set("X-User-Id", uuid.NewString())
	req.Header.Set("X-User-Role", "STAFF")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRouterRefundRequiresStaff(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/"+uuid.NewString()+"/refund", strings.NewReader(`{}`))
	req.Header.Set("X-User-Id", uuid.NewString())
	req.Header.Set("X-User-Role", "RENTER")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestRouterPublicCashIntentIsOpen(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/api/public/payments/intents", strings.NewReader(`{"bookingId":"bk-1","amountCents":100000}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRouterMountsGatewayCallbacks(t *testing.T) {
	router := newTestRouter()
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/public/gateway/vnpay/ipn", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "RspCode") {
		t.Fatalf("expected gateway contract body, got %s", resp.Body.String())
	}
}
