// File: internal/infra/sched/reconciler_test.go
package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"edupay/internal/domain/model"
	"edupay/internal/domain/ports/adapter"
	"edupay/internal/domain/ports/repository"
	"edupay/internal/usecase"
)

type stubPurchases struct {
	pending []*model.Purchase
	err     error
}

func (s *stubPurchases) Create(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	return errors.New("not used")
}
func (s *stubPurchases) FindByCheckoutID(ctx context.Context, tx repository.Tx, provider, checkoutID string) (*model.Purchase, error) {
	return nil, errors.New("not used")
}
func (s *stubPurchases) UpsertPaid(ctx context.Context, tx repository.Tx, p *model.Purchase) (*model.Purchase, error) {
	return nil, errors.New("not used")
}
func (s *stubPurchases) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Purchase, error) {
	return s.pending, s.err
}

type stubGateway struct {
	payments map[string][]adapter.GatewayPayment
	err      error
}

func (s *stubGateway) Name() string  { return "razorpay" }
func (s *stubGateway) KeyID() string { return "rzp_test_key" }
func (s *stubGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*adapter.Order, error) {
	return nil, errors.New("not used")
}
func (s *stubGateway) FetchOrderPayments(ctx context.Context, orderID string) ([]adapter.GatewayPayment, error) {
	return s.payments[orderID], s.err
}

type recordedConfirmation struct {
	source    usecase.FulfillmentSource
	orderID   string
	paymentID string
}

type stubFulfillUC struct {
	confirmations []recordedConfirmation
	err           error
}

func (s *stubFulfillUC) Confirm(ctx context.Context, userID, orderID, paymentID, signature string) (*model.Purchase, error) {
	return nil, errors.New("not used")
}
func (s *stubFulfillUC) HandleGatewayConfirmation(ctx context.Context, source usecase.FulfillmentSource, orderID, paymentID string, meta map[string]string) (*model.Purchase, error) {
	s.confirmations = append(s.confirmations, recordedConfirmation{source, orderID, paymentID})
	if s.err != nil {
		return nil, s.err
	}
	return &model.Purchase{Status: model.PurchaseStatusPaid}, nil
}
func (s *stubFulfillUC) Fulfill(ctx context.Context, req usecase.FulfillmentRequest) (*model.Purchase, error) {
	return nil, errors.New("not used")
}

func pendingPurchase(orderID string) *model.Purchase {
	return &model.Purchase{
		ID:                 "pur-" + orderID,
		Provider:           "razorpay",
		ProviderCheckoutID: orderID,
		Status:             model.PurchaseStatusPending,
		CreatedAt:          time.Now().Add(-time.Hour),
	}
}

func newTestReconciler(uc usecase.FulfillmentUseCase, purchases repository.PurchaseRepository, gw adapter.PaymentGateway) *Reconciler {
	l := zerolog.Nop()
	return NewReconciler(uc, purchases, gw, time.Minute, 10*time.Minute, 100, &l)
}

func TestTickFulfillsCapturedPayments(t *testing.T) {
	uc := &stubFulfillUC{}
	purchases := &stubPurchases{pending: []*model.Purchase{pendingPurchase("order_a"), pendingPurchase("order_b")}}
	gw := &stubGateway{payments: map[string][]adapter.GatewayPayment{
		"order_a": {
			{ID: "pay_fail", OrderID: "order_a", Status: "failed"},
			{ID: "pay_a", OrderID: "order_a", Status: "captured"},
		},
		// order_b was never paid; nothing to do.
		"order_b": {{ID: "pay_b", OrderID: "order_b", Status: "created"}},
	}}

	newTestReconciler(uc, purchases, gw).tick(context.Background())

	if len(uc.confirmations) != 1 {
		t.Fatalf("confirmations = %d, want 1", len(uc.confirmations))
	}
	got := uc.confirmations[0]
	if got.source != usecase.SourceReconciler || got.orderID != "order_a" || got.paymentID != "pay_a" {
		t.Fatalf("confirmation = %+v", got)
	}
}

func TestTickSkipsOrdersTheGatewayCannotReport(t *testing.T) {
	uc := &stubFulfillUC{}
	purchases := &stubPurchases{pending: []*model.Purchase{pendingPurchase("order_a")}}
	gw := &stubGateway{err: errors.New("gateway down")}

	newTestReconciler(uc, purchases, gw).tick(context.Background())

	if len(uc.confirmations) != 0 {
		t.Fatalf("confirmations = %d, want 0 when the gateway is unreachable", len(uc.confirmations))
	}
}

func TestTickContinuesPastFulfillmentErrors(t *testing.T) {
	uc := &stubFulfillUC{err: errors.New("db down")}
	purchases := &stubPurchases{pending: []*model.Purchase{pendingPurchase("order_a"), pendingPurchase("order_b")}}
	gw := &stubGateway{payments: map[string][]adapter.GatewayPayment{
		"order_a": {{ID: "pay_a", OrderID: "order_a", Status: "captured"}},
		"order_b": {{ID: "pay_b", OrderID: "order_b", Status: "captured"}},
	}}

	newTestReconciler(uc, purchases, gw).tick(context.Background())

	if len(uc.confirmations) != 2 {
		t.Fatalf("confirmations = %d, want both orders attempted", len(uc.confirmations))
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	uc := &stubFulfillUC{}
	purchases := &stubPurchases{}
	gw := &stubGateway{}
	l := zerolog.Nop()
	rec := NewReconciler(uc, purchases, gw, 5*time.Millisecond, time.Minute, 10, &l)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Start(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop after context cancellation")
	}
}
