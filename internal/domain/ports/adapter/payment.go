package adapter

import "context"

// Order is the remote order handle returned by the gateway.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
}

// GatewayPayment is a payment attempt the gateway reports against an order.
type GatewayPayment struct {
	ID      string
	OrderID string
	Status  string // e.g. "captured", "failed"
	Amount  int64
}

// PaymentGateway is the hex port for the remote payment provider. The adapter
// creates and inspects remote orders and nothing else; it owns no state.
type PaymentGateway interface {
	Name() string
	// KeyID is the public key identifier the paying client needs to open the
	// gateway's own checkout UI.
	KeyID() string

	// CreateOrder opens a remote order sized to the plan. Notes travel to the
	// gateway as opaque tags and come back on webhooks.
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error)

	// FetchOrderPayments lists payment attempts recorded against an order.
	// Used by the reconciler to finalize purchases whose confirmations never
	// arrived.
	FetchOrderPayments(ctx context.Context, orderID string) ([]GatewayPayment, error)
}

// SignatureVerifier is the confirmation contract both entry points resolve to:
// the client confirmation call and the server-to-server webhook must pass the
// same HMAC check before fulfillment runs.
type SignatureVerifier interface {
	// VerifyCheckout checks the client-path signature over (orderID, paymentID).
	VerifyCheckout(orderID, paymentID, signature string) error
	// VerifyWebhook checks the webhook signature over the raw payload body.
	// A verifier without a configured webhook secret skips the check.
	VerifyWebhook(body []byte, signature string) error
	// WebhookConfigured reports whether a webhook secret is present.
	WebhookConfigured() bool
}
