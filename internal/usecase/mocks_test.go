// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"edupay/internal/domain"
	"edupay/internal/domain/model"
	"edupay/internal/domain/ports/adapter"
	"edupay/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memUserRepo is a small in-memory implementation used by unit tests.
type memUserRepo struct {
	mu    sync.RWMutex
	store map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[string]*model.User)}
}

func (m *memUserRepo) add(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
}

func (m *memUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) SetActiveBatch(ctx context.Context, tx repository.Tx, userID, batchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[userID]
	if !ok {
		return domain.ErrNotFound
	}
	b := batchID
	u.ActiveBatchID = &b
	return nil
}

func (m *memUserRepo) activeBatch(userID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[userID]
	if !ok || u.ActiveBatchID == nil {
		return ""
	}
	return *u.ActiveBatchID
}

// memPlanRepo holds plans by id and key.
type memPlanRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Plan // by id
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{store: make(map[string]*model.Plan)}
}

func (m *memPlanRepo) add(p *model.Plan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
}

func (m *memPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPlanRepo) FindActiveByKey(ctx context.Context, tx repository.Tx, key string) (*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.Key == key && p.Active {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// memPurchaseRepo enforces the (provider, checkoutID) uniqueness and the
// upsert semantics of the Postgres implementation under a single mutex, which
// stands in for row-level atomicity in concurrency tests.
type memPurchaseRepo struct {
	mu        sync.Mutex
	rows      map[string]*model.Purchase
	CreateErr error
}

func newMemPurchaseRepo() *memPurchaseRepo {
	return &memPurchaseRepo{rows: make(map[string]*model.Purchase)}
}

func purchaseKey(provider, checkoutID string) string { return provider + "|" + checkoutID }

func (m *memPurchaseRepo) Create(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := purchaseKey(p.Provider, p.ProviderCheckoutID)
	if _, ok := m.rows[k]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	m.rows[k] = &cp
	return nil
}

func (m *memPurchaseRepo) FindByCheckoutID(ctx context.Context, tx repository.Tx, provider, checkoutID string) (*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[purchaseKey(provider, checkoutID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPurchaseRepo) UpsertPaid(ctx context.Context, tx repository.Tx, p *model.Purchase) (*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := purchaseKey(p.Provider, p.ProviderCheckoutID)
	existing, ok := m.rows[k]
	if !ok {
		cp := *p
		cp.Status = model.PurchaseStatusPaid
		m.rows[k] = &cp
		out := cp
		return &out, nil
	}
	switch existing.Status {
	case model.PurchaseStatusFailed, model.PurchaseStatusCanceled:
		return nil, domain.ErrInvalidStatusTransition
	}
	existing.Status = model.PurchaseStatusPaid
	existing.ProviderPaymentID = p.ProviderPaymentID
	if existing.PaidAt == nil {
		existing.PaidAt = p.PaidAt
	}
	if existing.ValidUntil == nil {
		existing.ValidUntil = p.ValidUntil
	}
	if p.Metadata != nil {
		existing.Metadata = p.Metadata
	}
	existing.UpdatedAt = time.Now()
	out := *existing
	return &out, nil
}

func (m *memPurchaseRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Purchase
	for _, p := range m.rows {
		if p.Status == model.PurchaseStatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memPurchaseRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// memEnrollmentRepo enforces the (student, course) uniqueness constraint.
type memEnrollmentRepo struct {
	mu         sync.Mutex
	rows       map[string]*model.Enrollment
	failCourse string // simulate a datastore fault for one course
}

func newMemEnrollmentRepo() *memEnrollmentRepo {
	return &memEnrollmentRepo{rows: make(map[string]*model.Enrollment)}
}

func enrollmentKey(studentID, courseID string) string { return studentID + "|" + courseID }

func (m *memEnrollmentRepo) CreateIfAbsent(ctx context.Context, tx repository.Tx, e *model.Enrollment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCourse != "" && e.CourseID == m.failCourse {
		return false, domain.ErrOperationFailed
	}
	k := enrollmentKey(e.StudentID, e.CourseID)
	if _, ok := m.rows[k]; ok {
		return false, nil
	}
	cp := *e
	m.rows[k] = &cp
	return true, nil
}

func (m *memEnrollmentRepo) ListByStudent(ctx context.Context, tx repository.Tx, studentID string) ([]*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Enrollment
	for _, e := range m.rows {
		if e.StudentID == studentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memEnrollmentRepo) countFor(studentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.rows {
		if e.StudentID == studentID {
			n++
		}
	}
	return n
}

// fakeGateway implements the PaymentGateway port with overridable behavior.
type fakeGateway struct {
	mu              sync.Mutex
	orderSeq        int
	CreateOrderFunc func(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*adapter.Order, error)
	FetchFunc       func(ctx context.Context, orderID string) ([]adapter.GatewayPayment, error)
}

func (g *fakeGateway) Name() string  { return "razorpay" }
func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*adapter.Order, error) {
	if g.CreateOrderFunc != nil {
		return g.CreateOrderFunc(ctx, amount, currency, receipt, notes)
	}
	g.mu.Lock()
	g.orderSeq++
	id := fmt.Sprintf("order_test%03d", g.orderSeq)
	g.mu.Unlock()
	return &adapter.Order{ID: id, Amount: amount, Currency: currency, Receipt: receipt}, nil
}

func (g *fakeGateway) FetchOrderPayments(ctx context.Context, orderID string) ([]adapter.GatewayPayment, error) {
	if g.FetchFunc != nil {
		return g.FetchFunc(ctx, orderID)
	}
	return nil, nil
}

// fakeVerifier lets tests force either verification outcome.
type fakeVerifier struct {
	checkoutErr error
	webhookErr  error
	configured  bool
}

func (v *fakeVerifier) VerifyCheckout(orderID, paymentID, signature string) error {
	return v.checkoutErr
}
func (v *fakeVerifier) VerifyWebhook(body []byte, signature string) error { return v.webhookErr }
func (v *fakeVerifier) WebhookConfigured() bool                          { return v.configured }

// memTxManager runs the callback without a real transaction; atomicity in
// tests comes from the in-memory repos' mutexes.
type memTxManager struct{}

func (memTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}
