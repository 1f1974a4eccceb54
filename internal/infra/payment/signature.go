package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"edupay/internal/domain"
	"edupay/internal/domain/ports/adapter"
)

var _ adapter.SignatureVerifier = (*HMACVerifier)(nil)

// HMACVerifier implements both halves of the confirmation contract.
//
// Client path: signature = HMAC-SHA256(keySecret, orderID + "|" + paymentID),
// as handed to the paying client by the gateway's checkout UI.
// Webhook path: signature = HMAC-SHA256(webhookSecret, raw payload body).
type HMACVerifier struct {
	keySecret     []byte
	webhookSecret []byte
}

func NewHMACVerifier(keySecret, webhookSecret string) *HMACVerifier {
	return &HMACVerifier{
		keySecret:     []byte(keySecret),
		webhookSecret: []byte(webhookSecret),
	}
}

func (v *HMACVerifier) VerifyCheckout(orderID, paymentID, signature string) error {
	expected := SignCheckout(string(v.keySecret), orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return domain.ErrSignatureMismatch
	}
	return nil
}

func (v *HMACVerifier) VerifyWebhook(body []byte, signature string) error {
	if len(v.webhookSecret) == 0 {
		// Deployment posture: no secret configured means the check is skipped;
		// fulfillment idempotence is what bounds the blast radius.
		return nil
	}
	mac := hmac.New(sha256.New, v.webhookSecret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return domain.ErrSignatureMismatch
	}
	return nil
}

func (v *HMACVerifier) WebhookConfigured() bool { return len(v.webhookSecret) > 0 }

// SignCheckout computes the client-path signature. Exported for tests and
// local tooling that simulate the gateway.
func SignCheckout(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignWebhook computes the webhook-path signature over a raw body.
func SignWebhook(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
