package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusProcessing, OrderStatusCompleted, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusProcessing, false},
		{OrderStatusCompleted, OrderStatusProcessing, false},
		{OrderStatusProcessing, OrderStatusProcessing, false},
	}

	for _, tt := range tests {
		order := &Order{Status: tt.from}
		assert.Equal(t, tt.want, order.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}

	assert.True(t, OrderStatusCompleted.IsFinal())
	assert.True(t, OrderStatusCancelled.IsFinal())
	assert.False(t, OrderStatusProcessing.IsFinal())
}

func TestParseOrderStatus(t *testing.T) {
	s, ok := ParseOrderStatus("Completed")
	assert.True(t, ok)
	assert.Equal(t, OrderStatusCompleted, s)

	_, ok = ParseOrderStatus("completed")
	assert.False(t, ok)
}

func TestSumLines(t *testing.T) {
	details := []OrderDetail{
		{Price: decimal.RequireFromString("120000.50"), Quantity: 2},
		{Price: decimal.RequireFromString("99.99"), Quantity: 3},
	}

	assert.True(t, decimal.RequireFromString("240300.97").Equal(SumLines(details)))
	assert.True(t, decimal.Zero.Equal(SumLines(nil)))
}

func TestMergeCart(t *testing.T) {
	merged := MergeCart([]CartLine{
		{OrchidID: 3, Quantity: 1},
		{OrchidID: 1, Quantity: 2},
		{OrchidID: 3, Quantity: 4},
	})

	assert.Equal(t, []CartLine{{OrchidID: 3, Quantity: 5}, {OrchidID: 1, Quantity: 2}}, merged)
}

func ptr(v int64) *int64 { return &v }

func TestCreatesCycle(t *testing.T) {
	// 1 <- 2 <- 3 (3 의 부모는 2, 2 의 부모는 1)
	parents := map[int64]*int64{1: nil, 2: ptr(1), 3: ptr(2)}
	lookup := func(id int64) (*int64, bool, error) {
		p, ok := parents[id]
		return p, ok, nil
	}

	cycle, err := CreatesCycle(1, 1, lookup)
	require.NoError(t, err)
	assert.True(t, cycle, "self parent")

	cycle, err = CreatesCycle(1, 3, lookup)
	require.NoError(t, err)
	assert.True(t, cycle, "descendant as parent")

	cycle, err = CreatesCycle(3, 1, lookup)
	require.NoError(t, err)
	assert.False(t, cycle)

	cycle, err = CreatesCycle(4, 99, lookup)
	require.NoError(t, err)
	assert.False(t, cycle, "unknown parent is not a cycle")

	boom := errors.New("boom")
	_, err = CreatesCycle(1, 2, func(int64) (*int64, bool, error) { return nil, false, boom })
	assert.ErrorIs(t, err, boom)
}

func TestAccountHelpers(t *testing.T) {
	assert.Equal(t, "buyer@orchid.vn", NormalizeEmail("  Buyer@Orchid.VN "))
	assert.True(t, ValidEmail("buyer@orchid.vn"))
	assert.False(t, ValidEmail("not-an-email"))
	assert.False(t, ValidEmail("Name <buyer@orchid.vn>"))
	assert.True(t, (&Account{Role: RoleAdmin}).IsAdmin())
}

func TestAudit(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	audit := NewAudit("admin@orchid.vn", now)
	assert.True(t, audit.IsActive)

	later := now.Add(time.Hour)
	audit.Deactivate("ops@orchid.vn", later)
	assert.False(t, audit.IsActive)
	assert.Equal(t, later, audit.UpdatedAt)
	assert.Equal(t, "ops@orchid.vn", audit.UpdatedBy)
	assert.Equal(t, "admin@orchid.vn", audit.CreatedBy)
}
