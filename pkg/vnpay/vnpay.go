package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/motogo-vn/motogo-payments/pkg/config"
	"github.com/motogo-vn/motogo-payments/pkg/errors"
)

const (
	version = "2.1.0"
	command = "pay"

	// ResponseCodeSuccess is the gateway's code for a settled transaction.
	ResponseCodeSuccess = "00"

	currencyCode     = "VND"
	defaultLocale    = "vn"
	defaultOrderType = "other"
	maxOrderInfoLen  = 255
	linkLifetime     = 24 * time.Hour
	timeLayout       = "20060102150405"
)

// The gateway timestamps everything in Indochina time regardless of where the
// caller runs.
var gatewayZone = time.FixedZone("ICT", 7*60*60)

var allowedLocales = map[string]bool{
	"vn": true,
	"en": true,
}

var allowedOrderTypes = map[string]bool{
	"other":       true,
	"billpayment": true,
	"topup":       true,
	"rental":      true,
}

// Client holds the merchant credentials and endpoint configuration. It is
// constructed once at startup and injected; there is no package-level state.
type Client struct {
	tmnCode    string
	hashSecret string
	payURL     string
	returnURL  string
	now        func() time.Time
}

func New(cfg config.VNPayConfig) *Client {
	return &Client{
		tmnCode:    cfg.TmnCode,
		hashSecret: cfg.HashSecret,
		payURL:     cfg.PayURL,
		returnURL:  cfg.ReturnURL,
		now:        time.Now,
	}
}

// RedirectRequest carries the payment fields embedded in the signed link.
type RedirectRequest struct {
	TxnRef      string
	AmountCents int64
	OrderInfo   string
}

// RedirectOptions tunes optional gateway parameters.
type RedirectOptions struct {
	Locale    string
	OrderType string
	BankCode  string
}

// BuildRedirect composes the signed browser redirect URL for a pending
// payment. The link expires after 24 hours.
func (c *Client) BuildRedirect(req RedirectRequest, clientIP string, opts RedirectOptions) (string, error) {
	if c.tmnCode == "" || c.hashSecret == "" {
		return "", errors.New(errors.CodeGatewayConfig, "gateway credentials are not configured")
	}
	if c.payURL == "" || c.returnURL == "" {
		return "", errors.New(errors.CodeGatewayConfig, "gateway pay/return URL is not configured")
	}
	if req.TxnRef == "" {
		return "", errors.New(errors.CodeValidation, "transaction reference is required")
	}
	if req.AmountCents <= 0 {
		return "", errors.New(errors.CodeValidation, "amount must be a positive integer")
	}

	locale := opts.Locale
	if !allowedLocales[locale] {
		locale = defaultLocale
	}
	orderType := opts.OrderType
	if !allowedOrderTypes[orderType] {
		orderType = defaultOrderType
	}

	createdAt := c.now().In(gatewayZone)
	params := url.Values{}
	params.Set("vnp_Version", version)
	params.Set("vnp_Command", command)
	params.Set("vnp_TmnCode", c.tmnCode)
	// The gateway expects the amount multiplied by 100.
	params.Set("vnp_Amount", strconv.FormatInt(req.AmountCents*100, 10))
	params.Set("vnp_CurrCode", currencyCode)
	params.Set("vnp_TxnRef", req.TxnRef)
	params.Set("vnp_OrderInfo", normalizeOrderInfo(req.OrderInfo, req.TxnRef))
	params.Set("vnp_OrderType", orderType)
	params.Set("vnp_Locale", locale)
	params.Set("vnp_ReturnUrl", c.returnURL)
	params.Set("vnp_IpAddr", clientIP)
	params.Set("vnp_CreateDate", createdAt.Format(timeLayout))
	params.Set("vnp_ExpireDate", createdAt.Add(linkLifetime).Format(timeLayout))
	if opts.BankCode != "" {
		params.Set("vnp_BankCode", opts.BankCode)
	}

	query := signedQuery(params)
	signature := c.sign(query)
	return fmt.Sprintf("%s?%s&vnp_SecureHash=%s", c.payURL, query, signature), nil
}

// Callback is the verified view of an inbound return/IPN request.
type Callback struct {
	TxnRef        string
	ResponseCode  string
	TransactionNo string
	AmountCents   int64
	BankCode      string
	PayDate       string
	Raw           url.Values
}

// Success reports whether the gateway settled the transaction.
func (cb Callback) Success() bool {
	return cb.ResponseCode == ResponseCodeSuccess
}

// VerifyReturn validates the signature on a browser return redirect. It
// returns ok=false rather than an error so callers branch before trusting
// any field.
func (c *Client) VerifyReturn(query url.Values) (Callback, bool) {
	return c.verify(query)
}

// VerifyIPN validates the signature on a server-to-server notification.
func (c *Client) VerifyIPN(query url.Values) (Callback, bool) {
	return c.verify(query)
}

func (c *Client) verify(query url.Values) (Callback, bool) {
	if c.hashSecret == "" {
		return Callback{}, false
	}
	supplied := query.Get("vnp_SecureHash")
	if supplied == "" {
		return Callback{}, false
	}

	params := url.Values{}
	for key, values := range query {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		if len(values) > 0 {
			params.Set(key, values[0])
		}
	}

	expected := c.sign(signedQuery(params))
	if !hmac.Equal([]byte(strings.ToLower(supplied)), []byte(expected)) {
		return Callback{}, false
	}

	rawAmount, _ := strconv.ParseInt(params.Get("vnp_Amount"), 10, 64)
	return Callback{
		TxnRef:        params.Get("vnp_TxnRef"),
		ResponseCode:  params.Get("vnp_ResponseCode"),
		TransactionNo: params.Get("vnp_TransactionNo"),
		AmountCents:   rawAmount / 100,
		BankCode:      params.Get("vnp_BankCode"),
		PayDate:       params.Get("vnp_PayDate"),
		Raw:           params,
	}, true
}

// signedQuery renders the parameters in the exact byte order the gateway
// signs: keys sorted, values query-escaped.
func signedQuery(params url.Values) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(key)))
	}
	return b.String()
}

func (c *Client) sign(query string) string {
	mac := hmac.New(sha512.New, []byte(c.hashSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func normalizeOrderInfo(info, txnRef string) string {
	trimmed := strings.TrimSpace(info)
	if trimmed == "" {
		trimmed = "MotoGo payment " + txnRef
	}
	if len(trimmed) > maxOrderInfoLen {
		trimmed = trimmed[:maxOrderInfoLen]
	}
	return trimmed
}
