package webhooks

import (
	"encoding/json"
	"net/http"

	"github.com/motogo-vn/motogo-payments/api/responses"
	callbacksvc "github.com/motogo-vn/motogo-payments/internal/gatewaycallbacks"
	pkgerrors "github.com/motogo-vn/motogo-payments/pkg/errors"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
)

// VNPayReturn handles the browser redirect after the renter leaves the
// gateway's payment page. The outcome is rendered for the frontend; the IPN
// remains the authoritative confirmation channel.
func VNPayReturn(svc callbacksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.HandleReturn(r.Context(), r.URL.Query())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newReturnResponse(result))
	}
}

// VNPayIPN handles the server-to-server notification. The gateway retries
// until it reads one of its own response codes, so every branch answers 200
// with the contract body.
func VNPayIPN(svc callbacksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.HandleIPN(r.Context(), r.URL.Query())
		if err != nil {
			writeIPN(w, ipnResponseFor(err))
			return
		}
		switch result.Outcome {
		case callbacksvc.OutcomeReplayed:
			writeIPN(w, ipnResponse{RspCode: "02", Message: "Order already confirmed"})
		default:
			writeIPN(w, ipnResponse{RspCode: "00", Message: "Confirm success"})
		}
	}
}

type ipnResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

func ipnResponseFor(err error) ipnResponse {
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeSignatureInvalid:
			return ipnResponse{RspCode: "97", Message: "Invalid signature"}
		case pkgerrors.CodeNotFound:
			return ipnResponse{RspCode: "01", Message: "Order not found"}
		case pkgerrors.CodeValidation:
			return ipnResponse{RspCode: "04", Message: "Invalid data"}
		}
	}
	return ipnResponse{RspCode: "99", Message: "Unknown error"}
}

func writeIPN(w http.ResponseWriter, resp ipnResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

type returnResponse struct {
	Outcome      string `json:"outcome"`
	TxnRef       string `json:"txnRef"`
	ResponseCode string `json:"responseCode,omitempty"`
	Succeeded    bool   `json:"succeeded"`
}

func newReturnResponse(result *callbacksvc.Result) returnResponse {
	if result == nil {
		return returnResponse{}
	}
	return returnResponse{
		Outcome:      string(result.Outcome),
		TxnRef:       result.TxnRef,
		ResponseCode: result.ResponseCode,
		Succeeded:    result.Succeeded(),
	}
}
