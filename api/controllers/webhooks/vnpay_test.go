package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	callbacksvc "github.com/motogo-vn/motogo-payments/internal/gatewaycallbacks"
	pkgerrors "github.com/motogo-vn/motogo-payments/pkg/errors"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
)

type testCallbackService struct {
	returnFn func(ctx context.Context, query url.Values) (*callbacksvc.Result, error)
	ipnFn    func(ctx context.Context, query url.Values) (*callbacksvc.Result, error)
}

func (s *testCallbackService) HandleReturn(ctx context.Context, query url.Values) (*callbacksvc.Result, error) {
	if s.returnFn != nil {
		return s.returnFn(ctx, query)
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *testCallbackService) HandleIPN(ctx context.Context, query url.Values) (*callbacksvc.Result, error) {
	if s.ipnFn != nil {
		return s.ipnFn(ctx, query)
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func decodeIPN(t *testing.T, resp *httptest.ResponseRecorder) ipnResponse {
	t.Helper()
	var body ipnResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal ipn response: %v", err)
	}
	return body
}

func TestVNPayIPNConfirmSuccess(t *testing.T) {
	svc := &testCallbackService{
		ipnFn: func(_ context.Context, _ url.Values) (*callbacksvc.Result, error) {
			return &callbacksvc.Result{Outcome: callbacksvc.OutcomeConfirmed, TxnRef: "MGP-1", ResponseCode: "00"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/public/gateway/vnpay/ipn?vnp_TxnRef=MGP-1", nil)
	resp := httptest.NewRecorder()
	VNPayIPN(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	body := decodeIPN(t, resp)
	if body.RspCode != "00" {
		t.Fatalf("expected RspCode 00 got %s", body.RspCode)
	}
}

func TestVNPayIPNReplayedOrder(t *testing.T) {
	svc := &testCallbackService{
		ipnFn: func(_ context.Context, _ url.Values) (*callbacksvc.Result, error) {
			return &callbacksvc.Result{Outcome: callbacksvc.OutcomeReplayed, TxnRef: "MGP-1"}, nil
		},
	}

	resp := httptest.NewRecorder()
	VNPayIPN(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/ipn", nil))

	body := decodeIPN(t, resp)
	if body.RspCode != "02" {
		t.Fatalf("expected RspCode 02 got %s", body.RspCode)
	}
}

func TestVNPayIPNInvalidSignature(t *testing.T) {
	svc := &testCallbackService{
		ipnFn: func(_ context.Context, _ url.Values) (*callbacksvc.Result, error) {
			return nil, pkgerrors.New(pkgerrors.CodeSignatureInvalid, "signature verification failed")
		},
	}

	resp := httptest.NewRecorder()
	VNPayIPN(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/ipn", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("gateway contract requires 200, got %d", resp.Code)
	}
	body := decodeIPN(t, resp)
	if body.RspCode != "97" {
		t.Fatalf("expected RspCode 97 got %s", body.RspCode)
	}
}

func TestVNPayIPNUnknownOrder(t *testing.T) {
	svc := &testCallbackService{
		ipnFn: func(_ context.Context, _ url.Values) (*callbacksvc.Result, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		},
	}

	resp := httptest.NewRecorder()
	VNPayIPN(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/ipn", nil))

	body := decodeIPN(t, resp)
	if body.RspCode != "01" {
		t.Fatalf("expected RspCode 01 got %s", body.RspCode)
	}
}

func TestVNPayReturnRendersOutcome(t *testing.T) {
	svc := &testCallbackService{
		returnFn: func(_ context.Context, _ url.Values) (*callbacksvc.Result, error) {
			return &callbacksvc.Result{Outcome: callbacksvc.OutcomeFailed, TxnRef: "MGP-9", ResponseCode: "24"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/public/gateway/vnpay/return?vnp_TxnRef=MGP-9", nil)
	resp := httptest.NewRecorder()
	VNPayReturn(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data returnResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Outcome != string(callbacksvc.OutcomeFailed) {
		t.Fatalf("unexpected outcome %s", envelope.Data.Outcome)
	}
	if envelope.Data.Succeeded {
		t.Fatal("failed outcome must not report success")
	}
}

func TestVNPayReturnInvalidSignature(t *testing.T) {
	svc := &testCallbackService{
		returnFn: func(_ context.Context, _ url.Values) (*callbacksvc.Result, error) {
			return nil, pkgerrors.New(pkgerrors.CodeSignatureInvalid, "signature verification failed")
		},
	}

	resp := httptest.NewRecorder()
	VNPayReturn(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/return", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
