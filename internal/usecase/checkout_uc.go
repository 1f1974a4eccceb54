package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"edupay/internal/domain"
	"edupay/internal/domain/model"
	"edupay/internal/domain/ports/adapter"
	"edupay/internal/domain/ports/repository"
	"edupay/internal/infra/metrics"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutSession is what the paying client needs to complete payment on the
// gateway's own UI.
type CheckoutSession struct {
	Provider string `json:"provider"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

type CheckoutUseCase interface {
	// Checkout validates the caller and plan, opens a remote order, and writes
	// a pending purchase row keyed by the remote order id.
	Checkout(ctx context.Context, userID, planKey string) (*CheckoutSession, error)
}

type checkoutUC struct {
	users     repository.UserRepository
	plans     repository.PlanRepository
	purchases repository.PurchaseRepository
	gateway   adapter.PaymentGateway
	log       *zerolog.Logger
}

func NewCheckoutUseCase(
	users repository.UserRepository,
	plans repository.PlanRepository,
	purchases repository.PurchaseRepository,
	gateway adapter.PaymentGateway,
	logger *zerolog.Logger,
) *checkoutUC {
	return &checkoutUC{users: users, plans: plans, purchases: purchases, gateway: gateway, log: logger}
}

func (uc *checkoutUC) Checkout(ctx context.Context, userID, planKey string) (*CheckoutSession, error) {
	user, err := uc.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, fmt.Errorf("checkout: resolve user %s: %w", userID, err)
	}
	if !user.Role.CanPurchase() {
		metrics.IncCheckout("rejected")
		return nil, fmt.Errorf("checkout: role %s: %w", user.Role, domain.ErrForbidden)
	}

	plan, err := uc.plans.FindActiveByKey(ctx, repository.NoTX, planKey)
	if err != nil {
		metrics.IncCheckout("rejected")
		return nil, fmt.Errorf("checkout: resolve plan %s: %w", planKey, err)
	}

	// The remote order must exist before any row is persisted: a gateway
	// failure here leaves no partial purchase behind.
	receipt := newReceipt()
	order, err := uc.gateway.CreateOrder(ctx, plan.Amount, plan.Currency, receipt, map[string]string{
		"user_id":  user.ID,
		"plan_key": plan.Key,
	})
	if err != nil {
		metrics.IncCheckout("gateway_error")
		return nil, fmt.Errorf("checkout: create order: %w", err)
	}

	p := model.NewPendingPurchase(uuid.NewString(), uc.gateway.Name(), order.ID, user.ID, plan)
	if err := uc.purchases.Create(ctx, repository.NoTX, p); err != nil {
		metrics.IncCheckout("ledger_error")
		return nil, fmt.Errorf("checkout: persist purchase for order %s: %w", order.ID, err)
	}

	uc.log.Info().
		Str("user_id", user.ID).
		Str("plan_key", plan.Key).
		Str("order_id", order.ID).
		Int64("amount", plan.Amount).
		Msg("checkout initiated")
	metrics.IncCheckout("ok")

	return &CheckoutSession{
		Provider: uc.gateway.Name(),
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    uc.gateway.KeyID(),
	}, nil
}

// newReceipt returns a lexically sortable receipt identifier for the remote
// order, so gateway dashboards list orders in creation order.
func newReceipt() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return "rcpt_" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
