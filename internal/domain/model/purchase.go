package model

import "time"

type PurchaseStatus string

const (
	PurchaseStatusPending  PurchaseStatus = "pending"  // remote order opened; awaiting confirmation
	PurchaseStatusPaid     PurchaseStatus = "paid"     // payment verified and fulfilled
	PurchaseStatusFailed   PurchaseStatus = "failed"   // gateway reported failure
	PurchaseStatusCanceled PurchaseStatus = "canceled" // administrative cancel
)

// Purchase is one checkout attempt against the payment gateway.
// (Provider, ProviderCheckoutID) is globally unique and serves as the
// idempotency key for fulfillment.
type Purchase struct {
	ID                 string // UUID
	Provider           string // e.g. "razorpay"
	ProviderCheckoutID string // remote order id returned by the gateway
	UserID             string // UUID
	PlanID             string // UUID
	BatchID            string // UUID, copied from the plan at checkout time
	Amount             int64  // integer minor currency units
	Currency           string
	Status             PurchaseStatus
	ProviderPaymentID  string     // set exactly once, on the transition into paid
	PaidAt             *time.Time // set exactly once, on the transition into paid
	ValidUntil         *time.Time // nil for perpetual plans
	Metadata           map[string]string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (p *Purchase) IsZero() bool { return p == nil || p.ID == "" }

// NewPendingPurchase constructs the row written by checkout initiation.
func NewPendingPurchase(id, provider, checkoutID, userID string, plan *Plan) *Purchase {
	now := time.Now()
	return &Purchase{
		ID:                 id,
		Provider:           provider,
		ProviderCheckoutID: checkoutID,
		UserID:             userID,
		PlanID:             plan.ID,
		BatchID:            plan.BatchID,
		Amount:             plan.Amount,
		Currency:           plan.Currency,
		Status:             PurchaseStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
