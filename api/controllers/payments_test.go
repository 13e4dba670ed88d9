package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motogo-vn/motogo-payments/api/middleware"
	paymentsvc "github.com/motogo-vn/motogo-payments/internal/payments"
	"github.com/motogo-vn/motogo-payments/pkg/db/models"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	pkgerrors "github.com/motogo-vn/motogo-payments/pkg/errors"
	"github.com/motogo-vn/motogo-payments/pkg/identity"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
	"github.com/motogo-vn/motogo-payments/pkg/pagination"
	"github.com/motogo-vn/motogo-payments/pkg/vnpay"
)

type testPaymentsService struct {
	createFn          func(ctx context.Context, input paymentsvc.CreateInput) (*models.Payment, error)
	refundFn          func(ctx context.Context, id uuid.UUID, actor *uuid.UUID, reason string) (*models.Payment, error)
	cancelFn          func(ctx context.Context, id uuid.UUID, actor *uuid.UUID, reason string) (*models.Payment, error)
	getFn             func(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	listFn            func(ctx context.Context, params pagination.Params, filters paymentsvc.ListFilters) (*paymentsvc.PaymentList, error)
	getTransactionsFn func(ctx context.Context, paymentID uuid.UUID) ([]models.PaymentTransaction, error)
}

func (s *testPaymentsService) Create(ctx context.Context, input paymentsvc.CreateInput) (*models.Payment, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *testPaymentsService) CreateTx(ctx context.Context, _ *gorm.DB, input paymentsvc.CreateInput) (*models.Payment, error) {
	return s.Create(ctx, input)
}

func (s *testPaymentsService) Transition(_ context.Context, _ uuid.UUID, _ enums.PaymentStatus, _ paymentsvc.TransitionOptions) (*models.Payment, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *testPaymentsService) TransitionTx(_ context.Context, _ *gorm.DB, _ uuid.UUID, _ enums.PaymentStatus, _ paymentsvc.TransitionOptions) (*models.Payment, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *testPaymentsService) Refund(ctx context.Context, id uuid.UUID, actor *uuid.UUID, reason string) (*models.Payment, error) {
	if s.refundFn != nil {
		return s.refundFn(ctx, id, actor, reason)
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *testPaymentsService) Cancel(ctx context.Context, id uuid.UUID, actor *uuid.UUID, reason string) (*models.Payment, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, id, actor, reason)
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *testPaymentsService) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
}

func (s *testPaymentsService) GetByTxnRef(_ context.Context, _ string) (*models.Payment, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
}

func (s *testPaymentsService) GetTransactions(ctx context.Context, paymentID uuid.UUID) ([]models.PaymentTransaction, error) {
	if s.getTransactionsFn != nil {
		return s.getTransactionsFn(ctx, paymentID)
	}
	return nil, nil
}

func (s *testPaymentsService) List(ctx context.Context, params pagination.Params, filters paymentsvc.ListFilters) (*paymentsvc.PaymentList, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params, filters)
	}
	return &paymentsvc.PaymentList{}, nil
}

type testRedirectBuilder struct {
	url string
	err error
}

func (b *testRedirectBuilder) BuildRedirect(_ vnpay.RedirectRequest, _ string, _ vnpay.RedirectOptions) (string, error) {
	return b.url, b.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func requestWithParam(method, target, key, value string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCreatePaymentCashIntent(t *testing.T) {
	var captured paymentsvc.CreateInput
	svc := &testPaymentsService{
		createFn: func(_ context.Context, input paymentsvc.CreateInput) (*models.Payment, error) {
			captured = input
			return &models.Payment{
				ID:          uuid.New(),
				BookingID:   input.BookingID,
				Type:        input.Type,
				Method:      input.Method,
				AmountCents: input.AmountCents,
				Status:      enums.PaymentStatusPending,
			}, nil
		},
	}

	body := `{"bookingId":"bk-100","type":"RENTAL_FEE","method":"CASH","amountCents":350000}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/intents", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CreatePayment(svc, &testRedirectBuilder{}, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Method != enums.PaymentMethodCash {
		t.Fatalf("unexpected method %s", captured.Method)
	}
	if captured.TxnRef != nil {
		t.Fatal("cash intent must not carry a gateway txn ref")
	}

	var envelope struct {
		Data createPaymentResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.RedirectURL != "" {
		t.Fatal("cash intent must not include a redirect url")
	}
}

func TestCreatePaymentGatewayIntentReturnsRedirect(t *testing.T) {
	svc := &testPaymentsService{
		createFn: func(_ context.Context, input paymentsvc.CreateInput) (*models.Payment, error) {
			if input.TxnRef == nil || !strings.HasPrefix(*input.TxnRef, "MGP-") {
				t.Fatalf("expected generated txn ref got %v", input.TxnRef)
			}
			return &models.Payment{
				ID:          uuid.New(),
				BookingID:   input.BookingID,
				Type:        input.Type,
				Method:      input.Method,
				AmountCents: input.AmountCents,
				Status:      enums.PaymentStatusPending,
				TxnRef:      input.TxnRef,
			}, nil
		},
	}

	body := `{"bookingId":"bk-100","type":"RENTAL_FEE","method":"VNPAY","amountCents":350000}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/intents", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CreatePayment(svc, &testRedirectBuilder{url: "https://sandbox.vnpayment.vn/pay?x=1"}, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data createPaymentResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.RedirectURL == "" {
		t.Fatal("expected a redirect url for gateway intent")
	}
}

func TestCreatePaymentRejectsUnknownMethod(t *testing.T) {
	svc := &testPaymentsService{
		createFn: func(_ context.Context, _ paymentsvc.CreateInput) (*models.Payment, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	body := `{"bookingId":"bk-100","type":"RENTAL_FEE","method":"CHECK","amountCents":350000}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/intents", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CreatePayment(svc, &testRedirectBuilder{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetPaymentNotFound(t *testing.T) {
	svc := &testPaymentsService{}
	req := requestWithParam(http.MethodGet, "/api/v1/payments/"+uuid.NewString(), "paymentId", uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	GetPayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestListPaymentsAppliesFilters(t *testing.T) {
	var captured paymentsvc.ListFilters
	svc := &testPaymentsService{
		listFn: func(_ context.Context, params pagination.Params, filters paymentsvc.ListFilters) (*paymentsvc.PaymentList, error) {
			captured = filters
			if params.Limit != 10 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			return &paymentsvc.PaymentList{Items: []models.Payment{{ID: uuid.New(), Status: enums.PaymentStatusSucceeded}}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments?limit=10&bookingId=bk-7&status=SUCCEEDED", nil)
	resp := httptest.NewRecorder()
	ListPayments(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if captured.BookingID == nil || *captured.BookingID != "bk-7" {
		t.Fatalf("booking filter not applied: %v", captured.BookingID)
	}
	if captured.Status == nil || *captured.Status != enums.PaymentStatusSucceeded {
		t.Fatalf("status filter not applied: %v", captured.Status)
	}
}

func TestListPaymentsRejectsBadStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments?status=BOGUS", nil)
	resp := httptest.NewRecorder()
	ListPayments(&testPaymentsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRefundPaymentCarriesActor(t *testing.T) {
	actor := uuid.New()
	paymentID := uuid.New()
	svc := &testPaymentsService{
		refundFn: func(_ context.Context, id uuid.UUID, got *uuid.UUID, reason string) (*models.Payment, error) {
			if id != paymentID {
				t.Fatalf("unexpected payment %s", id)
			}
			if got == nil || *got != actor {
				t.Fatalf("expected actor %s got %v", actor, got)
			}
			if reason != "vehicle unavailable" {
				t.Fatalf("unexpected reason %q", reason)
			}
			return &models.Payment{ID: id, Status: enums.PaymentStatusRefunded}, nil
		},
	}

	req := requestWithParam(http.MethodPost, "/api/v1/payments/"+paymentID.String()+"/refund", "paymentId", paymentID.String(), strings.NewReader(`{"reason":"vehicle unavailable"}`))
	req = req.WithContext(middleware.WithPrincipal(req.Context(), &identity.Principal{UserID: actor, Role: enums.RoleStaff}))
	resp := httptest.NewRecorder()
	RefundPayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCancelPaymentStateConflict(t *testing.T) {
	svc := &testPaymentsService{
		cancelFn: func(_ context.Context, _ uuid.UUID, _ *uuid.UUID, _ string) (*models.Payment, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not pending")
		},
	}

	id := uuid.NewString()
	req := requestWithParam(http.MethodPost, "/api/v1/payments/"+id+"/cancel", "paymentId", id, strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	CancelPayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}
