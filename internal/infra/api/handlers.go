package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"edupay/internal/domain"
	"edupay/internal/domain/model"
	"edupay/internal/infra/logging"
	"edupay/internal/infra/metrics"
	"edupay/internal/usecase"
)

const maxWebhookBody = 1 << 20 // 1 MiB

type checkoutRequest struct {
	PlanKey string `json:"plan_key"`
}

type confirmRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// purchaseView is the wire shape of a fulfilled purchase.
type purchaseView struct {
	Provider   string     `json:"provider"`
	OrderID    string     `json:"order_id"`
	PaymentID  string     `json:"payment_id"`
	PlanID     string     `json:"plan_id"`
	BatchID    string     `json:"batch_id"`
	Amount     int64      `json:"amount"`
	Currency   string     `json:"currency"`
	Status     string     `json:"status"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

func viewOf(p *model.Purchase) purchaseView {
	return purchaseView{
		Provider:   p.Provider,
		OrderID:    p.ProviderCheckoutID,
		PaymentID:  p.ProviderPaymentID,
		PlanID:     p.PlanID,
		BatchID:    p.BatchID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		Status:     string(p.Status),
		PaidAt:     p.PaidAt,
		ValidUntil: p.ValidUntil,
	}
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := IdentityFrom(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanKey == "" {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.checkoutUC.Checkout(ctx, identity.UserID, req.PlanKey)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrForbidden):
			respondError(w, http.StatusForbidden, "this account cannot purchase plans")
		case errors.Is(err, domain.ErrNotFound):
			respondError(w, http.StatusNotFound, "plan not found")
		case errors.Is(err, domain.ErrConfigMissing):
			logging.With(ctx, s.log).Error().Err(err).Msg("checkout with unconfigured gateway")
			respondError(w, http.StatusInternalServerError, "payment gateway not configured")
		case errors.Is(err, domain.ErrGatewayUnavailable):
			respondError(w, http.StatusBadGateway, "payment gateway unavailable")
		default:
			logging.With(ctx, s.log).Error().Err(err).Msg("checkout failed")
			respondError(w, http.StatusInternalServerError, "checkout failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := IdentityFrom(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" || req.PaymentID == "" {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := s.fulfillUC.Confirm(ctx, identity.UserID, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			respondError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, domain.ErrForbidden):
			respondError(w, http.StatusForbidden, "order belongs to another user")
		case errors.Is(err, domain.ErrSignatureMismatch):
			respondError(w, http.StatusBadRequest, "invalid signature")
		case errors.Is(err, domain.ErrInvalidStatusTransition):
			respondError(w, http.StatusConflict, "purchase is no longer payable")
		default:
			logging.With(ctx, s.log).Error().Err(err).Msg("confirmation failed")
			respondError(w, http.StatusInternalServerError, "confirmation failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"purchase": viewOf(p),
	})
}

// webhookEvent mirrors the slice of the gateway event envelope this pipeline
// consumes.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string            `json:"id"`
				OrderID string            `json:"order_id"`
				Status  string            `json:"status"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// capturedPayment reports whether a webhook delivery represents money actually
// captured for an order. "order.paid" fires once the order is fully paid; for
// payment.* events the entity status is authoritative.
func capturedPayment(event, status string) bool {
	switch event {
	case "payment.captured", "order.paid":
		return true
	}
	return status == "captured"
}

// handleWebhook accepts at-least-once, possibly duplicated, possibly
// out-of-order gateway notifications. Internal failure detail never leaks to
// the gateway; a non-2xx status is the only signal, and the gateway's retry
// policy provides eventual delivery.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.With(ctx, s.log)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if s.verifier.WebhookConfigured() {
		if err := s.verifier.VerifyWebhook(body, r.Header.Get("X-Razorpay-Signature")); err != nil {
			l.Warn().Msg("webhook signature mismatch")
			metrics.IncWebhook("fail", "bad_signature")
			respondError(w, http.StatusBadRequest, "invalid signature")
			return
		}
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		metrics.IncWebhook("fail", "bad_json")
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	entity := ev.Payload.Payment.Entity
	if entity.OrderID == "" || entity.ID == "" {
		metrics.IncWebhook("fail", "bad_json")
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	// The gateway signs every subscribed event with the same secret, so failed
	// and authorized-only deliveries arrive here too. Only a captured payment
	// fulfills; everything else is acknowledged and dropped, since a retry of a
	// non-captured event can never become actionable.
	if !capturedPayment(ev.Event, entity.Status) {
		l.Debug().Str("event", ev.Event).Str("order_id", entity.OrderID).Str("status", entity.Status).
			Msg("webhook event does not represent a captured payment")
		metrics.IncWebhook("ok", "ignored_event")
		respondJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	eventID := r.Header.Get("X-Razorpay-Event-Id")
	if s.dedup != nil && eventID != "" {
		seen, err := s.dedup.IsProcessed(ctx, eventID)
		if err != nil {
			l.Warn().Err(err).Msg("webhook dedup lookup failed; continuing")
		} else if seen {
			metrics.IncWebhook("ok", "duplicate")
			respondJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}
	}

	_, err = s.fulfillUC.HandleGatewayConfirmation(ctx, usecase.SourceWebhook, entity.OrderID, entity.ID, entity.Notes)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// No matching purchase yet: reject so the gateway retries once the
			// pending insert is visible.
			metrics.IncWebhook("fail", "unmatched_order")
			respondError(w, http.StatusNotFound, "unknown order")
		case errors.Is(err, domain.ErrInvalidStatusTransition):
			// Terminal row; a retry will never succeed, acknowledge.
			metrics.IncWebhook("ok", "stale")
			respondJSON(w, http.StatusOK, map[string]bool{"received": true})
		default:
			l.Error().Err(err).Str("order_id", entity.OrderID).Msg("webhook fulfillment failed")
			metrics.IncWebhook("fail", "fulfill_error")
			respondError(w, http.StatusInternalServerError, "processing failed")
		}
		return
	}

	if s.dedup != nil && eventID != "" {
		if err := s.dedup.MarkProcessed(ctx, eventID); err != nil {
			l.Warn().Err(err).Msg("webhook dedup mark failed")
		}
	}

	metrics.IncWebhook("ok", "fulfilled")
	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
