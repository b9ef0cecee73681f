package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/idempotency"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/gateway/momo"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/repository"
)

// memDB 인메모리 쓰기 저장소. 트랜잭션은 sqlmock 이 검증한다.
type memDB struct {
	nextID     int64
	accounts   map[int64]*domain.Account
	categories map[int64]*domain.Category
	orchids    map[int64]*domain.Orchid
	orders     map[int64]*domain.Order
	outbox     []*repository.OutboxEvent
	payments   []*domain.PaymentAttempt
}

func newMemDB() *memDB {
	return &memDB{
		accounts:   map[int64]*domain.Account{},
		categories: map[int64]*domain.Category{},
		orchids:    map[int64]*domain.Orchid{},
		orders:     map[int64]*domain.Order{},
	}
}

func (m *memDB) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memDB) eventTypes() []string {
	types := make([]string, 0, len(m.outbox))
	for _, e := range m.outbox {
		types = append(types, e.EventType)
	}
	return types
}

type memAccounts struct{ m *memDB }

func (r memAccounts) WithTx(*sql.Tx) repository.AccountRepository { return r }

func (r memAccounts) Create(_ context.Context, a *domain.Account) error {
	a.ID = r.m.id()
	c := *a
	r.m.accounts[a.ID] = &c
	return nil
}

func (r memAccounts) FindByID(_ context.Context, id int64) (*domain.Account, error) {
	a, ok := r.m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (r memAccounts) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, a := range r.m.accounts {
		if strings.EqualFold(a.Email, email) {
			c := *a
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memCategories struct{ m *memDB }

func (r memCategories) WithTx(*sql.Tx) repository.CategoryRepository { return r }

func (r memCategories) Create(_ context.Context, c *domain.Category) error {
	c.ID = r.m.id()
	cp := *c
	r.m.categories[c.ID] = &cp
	return nil
}

func (r memCategories) Update(_ context.Context, c *domain.Category) error {
	if _, ok := r.m.categories[c.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *c
	r.m.categories[c.ID] = &cp
	return nil
}

func (r memCategories) FindByID(_ context.Context, id int64) (*domain.Category, error) {
	c, ok := r.m.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	cp.ParentName = ""
	if c.ParentID != nil {
		if p, ok := r.m.categories[*c.ParentID]; ok {
			cp.ParentName = p.Name
		}
	}
	return &cp, nil
}

func (r memCategories) ExistsByName(_ context.Context, name string, excludeID int64) (bool, error) {
	for _, c := range r.m.categories {
		if c.IsActive && c.ID != excludeID && strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r memCategories) CountActiveChildren(_ context.Context, id int64) (int, error) {
	count := 0
	for _, c := range r.m.categories {
		if c.IsActive && c.ParentID != nil && *c.ParentID == id {
			count++
		}
	}
	return count, nil
}

type memOrchids struct{ m *memDB }

func (r memOrchids) WithTx(*sql.Tx) repository.OrchidRepository { return r }

func (r memOrchids) Create(_ context.Context, o *domain.Orchid) error {
	o.ID = r.m.id()
	cp := *o
	r.m.orchids[o.ID] = &cp
	return nil
}

func (r memOrchids) Update(_ context.Context, o *domain.Orchid) error {
	if _, ok := r.m.orchids[o.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *o
	r.m.orchids[o.ID] = &cp
	return nil
}

func (r memOrchids) FindByID(_ context.Context, id int64) (*domain.Orchid, error) {
	o, ok := r.m.orchids[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r memOrchids) FindForOrder(ctx context.Context, id int64) (*domain.Orchid, error) {
	return r.FindByID(ctx, id)
}

func (r memOrchids) ExistsByName(_ context.Context, name string, excludeID int64) (bool, error) {
	for _, o := range r.m.orchids {
		if o.IsActive && o.ID != excludeID && strings.EqualFold(o.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r memOrchids) CountActiveByCategory(_ context.Context, categoryID int64) (int, error) {
	count := 0
	for _, o := range r.m.orchids {
		if o.IsActive && o.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

type memOrders struct{ m *memDB }

func (r memOrders) WithTx(*sql.Tx) repository.OrderRepository { return r }

func (r memOrders) Create(_ context.Context, o *domain.Order) error {
	o.ID = r.m.id()
	cp := *o
	cp.Details = nil
	r.m.orders[o.ID] = &cp
	return nil
}

func (r memOrders) AddDetail(_ context.Context, d *domain.OrderDetail) error {
	d.ID = r.m.id()
	o := r.m.orders[d.OrderID]
	o.Details = append(o.Details, *d)
	return nil
}

func (r memOrders) UpdateTotal(_ context.Context, id int64, total decimal.Decimal) error {
	r.m.orders[id].Total = total
	return nil
}

func (r memOrders) FindByID(_ context.Context, id int64) (*domain.Order, error) {
	o, ok := r.m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	cp.Details = append([]domain.OrderDetail(nil), o.Details...)
	return &cp, nil
}

func (r memOrders) UpdateStatus(_ context.Context, id int64, from, to domain.OrderStatus, actor string, now time.Time) (bool, error) {
	o, ok := r.m.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.Touch(actor, now)
	return true, nil
}

type memOutbox struct{ m *memDB }

func (r memOutbox) InsertTx(_ context.Context, _ *sql.Tx, e *repository.OutboxEvent) error {
	e.ID = int64(len(r.m.outbox) + 1)
	r.m.outbox = append(r.m.outbox, e)
	return nil
}

func (r memOutbox) FindPending(context.Context, int) ([]*repository.OutboxEvent, error) {
	return r.m.outbox, nil
}

func (r memOutbox) MarkSent(context.Context, int64) error { return nil }

func (r memOutbox) MarkAttemptFailed(context.Context, int64, string, int) error { return nil }

type memPayments struct{ m *memDB }

func (r memPayments) WithTx(*sql.Tx) repository.PaymentRepository { return r }

func (r memPayments) Create(_ context.Context, p *domain.PaymentAttempt) error {
	for _, existing := range r.m.payments {
		if existing.GatewayOrderID == p.GatewayOrderID {
			return repository.ErrDuplicatePayment
		}
	}
	p.ID = r.m.id()
	cp := *p
	r.m.payments = append(r.m.payments, &cp)
	return nil
}

func (r memPayments) FindByGatewayOrderID(_ context.Context, gatewayOrderID string) (*domain.PaymentAttempt, error) {
	for _, p := range r.m.payments {
		if p.GatewayOrderID == gatewayOrderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memPayments) ListByOrderID(_ context.Context, orderID int64) ([]*domain.PaymentAttempt, error) {
	var out []*domain.PaymentAttempt
	for i := len(r.m.payments) - 1; i >= 0; i-- {
		if p := r.m.payments[i]; p.OrderID == orderID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memPayments) RecordResult(_ context.Context, gatewayOrderID string, result repository.PaymentResult, now time.Time) (bool, error) {
	for _, p := range r.m.payments {
		if p.GatewayOrderID == gatewayOrderID && p.Status == domain.PaymentStatusPending {
			p.Status = result.Status
			code, transID := result.ResultCode, result.TransID
			p.ResultCode = &code
			p.TransID = &transID
			p.Message = result.Message
			p.UpdatedAt = now
			return true, nil
		}
	}
	return false, nil
}

type mockGateway struct {
	mock.Mock
}

func (g *mockGateway) CreatePayment(ctx context.Context, req momo.PaymentRequest) (*momo.PaymentResult, error) {
	args := g.Called(ctx, req)
	result, _ := args.Get(0).(*momo.PaymentResult)
	return result, args.Error(1)
}

const (
	testAccessKey = "test-access-key"
	testSecretKey = "test-secret-key"
)

// VerifyCallback 실제 HMAC 검증을 테스트 키로 수행
func (g *mockGateway) VerifyCallback(cb momo.Callback) bool {
	return momo.Verify(testSecretKey, cb.SignaturePayload(testAccessKey), cb.Signature)
}

func signed(cb momo.Callback) momo.Callback {
	cb.Signature = momo.Sign(testSecretKey, cb.SignaturePayload(testAccessKey))
	return cb
}

type mockScheduler struct {
	mock.Mock
}

func (s *mockScheduler) Schedule(ctx context.Context, orderID int64) error {
	return s.Called(ctx, orderID).Error(0)
}

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	t         *testing.T
	db        *sql.DB
	sql       sqlmock.Sqlmock
	mem       *memDB
	gateway   *mockGateway
	scheduler *mockScheduler
	idem      idempotency.Store
	redis     *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	f := &fixture{
		t:         t,
		db:        db,
		sql:       sqlMock,
		mem:       newMemDB(),
		gateway:   &mockGateway{},
		scheduler: &mockScheduler{},
		idem:      idempotency.NewRedisStore(client, "test"),
		redis:     mr,
	}
	t.Cleanup(func() {
		assert.NoError(t, sqlMock.ExpectationsWereMet())
		f.gateway.AssertExpectations(t)
		f.scheduler.AssertExpectations(t)
		_ = client.Close()
		db.Close()
	})
	return f
}

func (f *fixture) expectCommit() {
	f.sql.ExpectBegin()
	f.sql.ExpectCommit()
}

func (f *fixture) expectRollback() {
	f.sql.ExpectBegin()
	f.sql.ExpectRollback()
}

func (f *fixture) accountService() AccountService {
	svc := NewAccountService(f.db, memAccounts{f.mem}, memOutbox{f.mem}, zap.NewNop()).(*accountService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func (f *fixture) categoryService() CategoryService {
	svc := NewCategoryService(f.db, memCategories{f.mem}, memOrchids{f.mem}, memOutbox{f.mem}, zap.NewNop()).(*categoryService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func (f *fixture) orchidService() OrchidService {
	svc := NewOrchidService(f.db, memOrchids{f.mem}, memCategories{f.mem}, memOutbox{f.mem}, zap.NewNop()).(*orchidService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func (f *fixture) orderService() OrderService {
	svc := NewOrderService(f.db, memOrders{f.mem}, memOrchids{f.mem}, memAccounts{f.mem}, memOutbox{f.mem},
		memPayments{f.mem}, f.gateway, f.scheduler, zap.NewNop()).(*orderService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func (f *fixture) paymentService() PaymentService {
	svc := NewPaymentService(f.db, memOrders{f.mem}, memOutbox{f.mem}, memPayments{f.mem}, f.gateway, f.idem, zap.NewNop()).(*paymentService)
	svc.now = func() time.Time { return testNow }
	return svc
}

// seed helpers write straight into memDB without going through services.

func (f *fixture) seedAccount(email string, role domain.Role) *domain.Account {
	a := &domain.Account{Email: email, Name: "User " + email, Role: role, Audit: domain.NewAudit("seed", testNow)}
	_ = memAccounts{f.mem}.Create(context.Background(), a)
	return a
}

func (f *fixture) seedCategory(name string, parentID *int64) *domain.Category {
	c := &domain.Category{Name: name, ParentID: parentID, Audit: domain.NewAudit("seed", testNow)}
	_ = memCategories{f.mem}.Create(context.Background(), c)
	return c
}

func (f *fixture) seedOrchid(name, price string, categoryID int64) *domain.Orchid {
	o := &domain.Orchid{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		CategoryID: categoryID,
		Audit:      domain.NewAudit("seed", testNow),
	}
	_ = memOrchids{f.mem}.Create(context.Background(), o)
	return o
}

func (f *fixture) seedOrder(accountID int64, status domain.OrderStatus, total string) *domain.Order {
	o := &domain.Order{
		AccountID: accountID,
		OrderDate: testNow,
		Status:    status,
		Total:     decimal.RequireFromString(total),
		Audit:     domain.NewAudit("seed", testNow),
	}
	_ = memOrders{f.mem}.Create(context.Background(), o)
	return o
}

func int64Ref(v int64) *int64 {
	return &v
}
