package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"edupay/internal/domain"
	"edupay/internal/domain/ports/adapter"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

var _ adapter.PaymentGateway = (*RazorpayGateway)(nil)

// RazorpayGateway implements the PaymentGateway port using direct HTTP calls
// against the Razorpay Orders API, authenticated with key id/secret basic auth.
type RazorpayGateway struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

// NewRazorpayGateway constructs the gateway. Missing credentials are not an
// error here: the server still boots and checkout surfaces ErrConfigMissing,
// so a misconfigured deployment fails loudly per-request instead of silently.
func NewRazorpayGateway(keyID, keySecret, baseURL string) *RazorpayGateway {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *RazorpayGateway) Name() string  { return "razorpay" }
func (g *RazorpayGateway) KeyID() string { return g.keyID }

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

type razorpayPaymentList struct {
	Count int `json:"count"`
	Items []struct {
		ID      string `json:"id"`
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
		Amount  int64  `json:"amount"`
	} `json:"items"`
}

// CreateOrder implements PaymentGateway.CreateOrder.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*adapter.Order, error) {
	if g.keyID == "" || g.keySecret == "" {
		return nil, fmt.Errorf("razorpay credentials not set: %w", domain.ErrConfigMissing)
	}

	requestData := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if notes != nil {
		requestData["notes"] = notes
	}

	var out razorpayOrderResponse
	if err := g.post(ctx, "/orders", requestData, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("razorpay returned empty order id: %w", domain.ErrGatewayUnavailable)
	}

	return &adapter.Order{
		ID:       out.ID,
		Amount:   out.Amount,
		Currency: out.Currency,
		Receipt:  out.Receipt,
	}, nil
}

// FetchOrderPayments implements PaymentGateway.FetchOrderPayments.
func (g *RazorpayGateway) FetchOrderPayments(ctx context.Context, orderID string) ([]adapter.GatewayPayment, error) {
	if g.keyID == "" || g.keySecret == "" {
		return nil, fmt.Errorf("razorpay credentials not set: %w", domain.ErrConfigMissing)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/orders/"+orderID+"/payments", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay list payments: %v: %w", err, domain.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, gatewayError(resp.StatusCode, body)
	}

	var list razorpayPaymentList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}

	out := make([]adapter.GatewayPayment, 0, len(list.Items))
	for _, it := range list.Items {
		out = append(out, adapter.GatewayPayment{
			ID:      it.ID,
			OrderID: it.OrderID,
			Status:  it.Status,
			Amount:  it.Amount,
		})
	}
	return out, nil
}

func (g *RazorpayGateway) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("razorpay request: %v: %w", err, domain.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return gatewayError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}
	return nil
}

func gatewayError(status int, body []byte) error {
	var e razorpayErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Description != "" {
		return fmt.Errorf("razorpay error: status %d, code %s: %s: %w", status, e.Error.Code, e.Error.Description, domain.ErrGatewayUnavailable)
	}
	return fmt.Errorf("razorpay error: status %d: %w", status, domain.ErrGatewayUnavailable)
}
