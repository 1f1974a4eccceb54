// File: internal/infra/payment/razorpay_gateway_test.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"edupay/internal/domain"
)

func TestCreateOrder(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       "order_abc",
			"amount":   99900,
			"currency": "INR",
			"receipt":  gotBody["receipt"],
			"status":   "created",
		})
	}))
	defer srv.Close()

	g := NewRazorpayGateway("rzp_test_key", "key_secret", srv.URL)
	order, err := g.CreateOrder(context.Background(), 99900, "INR", "rcpt_1", map[string]string{"user_id": "user-1"})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.ID != "order_abc" || order.Amount != 99900 || order.Currency != "INR" {
		t.Fatalf("order = %+v", order)
	}
	if gotPath != "/orders" {
		t.Fatalf("path = %q, want /orders", gotPath)
	}
	if gotUser != "rzp_test_key" || gotPass != "key_secret" {
		t.Fatal("basic auth credentials not sent")
	}
	if notes, ok := gotBody["notes"].(map[string]interface{}); !ok || notes["user_id"] != "user-1" {
		t.Fatalf("notes not forwarded: %v", gotBody["notes"])
	}
}

func TestCreateOrderGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": "BAD_REQUEST_ERROR", "description": "amount too small"},
		})
	}))
	defer srv.Close()

	g := NewRazorpayGateway("rzp_test_key", "key_secret", srv.URL)
	_, err := g.CreateOrder(context.Background(), 1, "INR", "rcpt_1", nil)
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}
}

func TestCreateOrderWithoutCredentials(t *testing.T) {
	g := NewRazorpayGateway("", "", "")
	if _, err := g.CreateOrder(context.Background(), 99900, "INR", "rcpt_1", nil); !errors.Is(err, domain.ErrConfigMissing) {
		t.Fatalf("err = %v, want ErrConfigMissing", err)
	}
	if _, err := g.FetchOrderPayments(context.Background(), "order_abc"); !errors.Is(err, domain.ErrConfigMissing) {
		t.Fatalf("err = %v, want ErrConfigMissing", err)
	}
}

func TestFetchOrderPayments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/order_abc/payments" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"count": 2,
			"items": []map[string]interface{}{
				{"id": "pay_fail", "order_id": "order_abc", "status": "failed", "amount": 99900},
				{"id": "pay_123", "order_id": "order_abc", "status": "captured", "amount": 99900},
			},
		})
	}))
	defer srv.Close()

	g := NewRazorpayGateway("rzp_test_key", "key_secret", srv.URL)
	payments, err := g.FetchOrderPayments(context.Background(), "order_abc")
	if err != nil {
		t.Fatalf("FetchOrderPayments: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("payments = %d, want 2", len(payments))
	}
	if payments[1].ID != "pay_123" || payments[1].Status != "captured" {
		t.Fatalf("payment = %+v", payments[1])
	}
}
