package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/motogo-vn/motogo-payments/pkg/config"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
)

const defaultTimeout = 5 * time.Second

var errLoggerRequired = errors.New("booking logger is required")

// Client calls the booking service's mark-paid endpoint. Failures are the
// caller's to log and swallow; the queue event remains the authoritative
// notification path.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
}

// NewClient builds the booking collaborator client. An empty base URL is
// allowed; NotifyPaid then becomes a logged no-op so local setups work
// without a booking service.
func NewClient(cfg config.BookingConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logg,
	}, nil
}

type markPaidRequest struct {
	PaymentID uuid.UUID `json:"paymentId"`
	Timestamp time.Time `json:"timestamp"`
}

// NotifyPaid POSTs {paymentId, timestamp} to the booking service. The caller
// decides whether a failure is fatal; in this service it never is.
func (c *Client) NotifyPaid(ctx context.Context, bookingID string, paymentID uuid.UUID) error {
	if c.baseURL == "" {
		c.logger.Warn(c.logger.WithPaymentID(ctx, paymentID.String()), "booking base url not configured, skipping mark-paid callback")
		return nil
	}

	body, err := json.Marshal(markPaidRequest{
		PaymentID: paymentID,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal mark-paid request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/internal/bookings/%s/mark-paid", c.baseURL, bookingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mark-paid request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call booking service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("booking service returned status %d", resp.StatusCode)
	}
	return nil
}
