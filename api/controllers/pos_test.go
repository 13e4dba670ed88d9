package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/motogo-vn/motogo-payments/api/middleware"
	possvc "github.com/motogo-vn/motogo-payments/internal/pos"
	"github.com/motogo-vn/motogo-payments/pkg/db/models"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	pkgerrors "github.com/motogo-vn/motogo-payments/pkg/errors"
	"github.com/motogo-vn/motogo-payments/pkg/identity"
)

type testPOSService struct {
	collectFn       func(ctx context.Context, input possvc.CollectInput, actor identity.Principal) (*models.Payment, error)
	confirmFn       func(ctx context.Context, paymentID uuid.UUID, actor identity.Principal) (*models.Payment, error)
	publicIntentFn  func(ctx context.Context, input possvc.PublicIntentInput) (*models.Payment, error)
	publicConfirmFn func(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
}

func (s *testPOSService) CollectAtPOS(ctx context.Context, input possvc.CollectInput, actor identity.Principal) (*models.Payment, error) {
	if s.collectFn != nil {
		return s.collectFn(ctx, input, actor)
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *testPOSService) ConfirmPOS(ctx context.Context, paymentID uuid.UUID, actor identity.Principal) (*models.Payment, error) {
	if s.confirmFn != nil {
		return s.confirmFn(ctx, paymentID, actor)
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *testPOSService) CreatePublicCashIntent(ctx context.Context, input possvc.PublicIntentInput) (*models.Payment, error) {
	if s.publicIntentFn != nil {
		return s.publicIntentFn(ctx, input)
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *testPOSService) ConfirmPublicCash(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	if s.publicConfirmFn != nil {
		return s.publicConfirmFn(ctx, paymentID)
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func staffPrincipal(stationID uuid.UUID) *identity.Principal {
	return &identity.Principal{UserID: uuid.New(), Role: enums.RoleStaff, StationIDs: []uuid.UUID{stationID}}
}

func TestPOSCollectCreatesPendingPayment(t *testing.T) {
	stationID := uuid.New()
	principal := staffPrincipal(stationID)
	var captured possvc.CollectInput
	svc := &testPOSService{
		collectFn: func(_ context.Context, input possvc.CollectInput, actor identity.Principal) (*models.Payment, error) {
			captured = input
			if actor.UserID != principal.UserID {
				t.Fatalf("unexpected actor %s", actor.UserID)
			}
			return &models.Payment{ID: uuid.New(), Status: enums.PaymentStatusPending, Method: input.Method}, nil
		},
	}

	body := `{"bookingId":"bk-9","stationId":"` + stationID.String() + `","type":"RENTAL_FEE","method":"CASH","amountCents":250000}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pos/collect", strings.NewReader(body))
	req = req.WithContext(middleware.WithPrincipal(req.Context(), principal))
	resp := httptest.NewRecorder()
	POSCollect(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if captured.StationID != stationID {
		t.Fatalf("unexpected station %s", captured.StationID)
	}
}

func TestPOSCollectRequiresPrincipal(t *testing.T) {
	svc := &testPOSService{
		collectFn: func(_ context.Context, _ possvc.CollectInput, _ identity.Principal) (*models.Payment, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pos/collect", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	POSCollect(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestPOSConfirmForbiddenOutsideStation(t *testing.T) {
	paymentID := uuid.New()
	svc := &testPOSService{
		confirmFn: func(_ context.Context, _ uuid.UUID, _ identity.Principal) (*models.Payment, error) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "station not assigned to caller")
		},
	}

	req := requestWithParam(http.MethodPost, "/api/v1/pos/"+paymentID.String()+"/confirm", "paymentId", paymentID.String(), nil)
	req = req.WithContext(middleware.WithPrincipal(req.Context(), staffPrincipal(uuid.New())))
	resp := httptest.NewRecorder()
	POSConfirm(svc, testLogger())(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestPublicCashIntent(t *testing.T) {
	var captured possvc.PublicIntentInput
	svc := &testPOSService{
		publicIntentFn: func(_ context.Context, input possvc.PublicIntentInput) (*models.Payment, error) {
			captured = input
			return &models.Payment{ID: uuid.New(), Status: enums.PaymentStatusPending, Method: enums.PaymentMethodCash}, nil
		},
	}

	body := `{"bookingId":"bk-2","amountCents":480000}`
	req := httptest.NewRequest(http.MethodPost, "/api/public/payments/intents", strings.NewReader(body))
	resp := httptest.NewRecorder()
	PublicCashIntent(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if captured.BookingID != "bk-2" || captured.AmountCents != 480000 {
		t.Fatalf("unexpected input %+v", captured)
	}
}

func TestPublicCashConfirmRejectsDoubleConfirm(t *testing.T) {
	paymentID := uuid.New()
	svc := &testPOSService{
		publicConfirmFn: func(_ context.Context, id uuid.UUID) (*models.Payment, error) {
			if id != paymentID {
				t.Fatalf("unexpected payment %s", id)
			}
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not pending")
		},
	}

	req := requestWithParam(http.MethodPost, "/api/public/payments/"+paymentID.String()+"/confirm", "paymentId", paymentID.String(), nil)
	resp := httptest.NewRecorder()
	PublicCashConfirm(svc, testLogger())(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}
