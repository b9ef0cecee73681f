package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("ICT", 7*3600))

	evt := NewBaseEvent(EventOrderUpserted, "corr-1", now)
	assert.NotEmpty(t, evt.EventID)
	assert.Equal(t, "corr-1", evt.CorrelationID)
	assert.Equal(t, 1, evt.SchemaVersion)
	assert.Equal(t, time.UTC, evt.OccurredAt.Location())

	generated := NewBaseEvent(EventOrderUpserted, "", now)
	assert.NotEmpty(t, generated.CorrelationID)
	assert.NotEqual(t, evt.EventID, generated.EventID)
}

func TestCorrelationIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, CorrelationID(ctx))
	assert.Equal(t, ctx, WithCorrelationID(ctx, ""))
	assert.Equal(t, "req-9", CorrelationID(WithCorrelationID(ctx, "req-9")))
}

func TestOrderUpsertedEvent_JSONShape(t *testing.T) {
	evt := OrderUpsertedEvent{
		BaseEvent: NewBaseEvent(EventOrderUpserted, "corr", time.Now()),
		Order: OrderSnapshot{
			ID:     5,
			Status: "Processing",
			Total:  decimal.RequireFromString("300000.00"),
			Lines: []OrderLineSnapshot{
				{OrchidID: 3, Price: decimal.RequireFromString("150000"), Quantity: 2, LineTotal: decimal.RequireFromString("300000")},
			},
		},
	}

	raw, err := json.Marshal(evt)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, "order.upserted.v1", generic["eventType"])
	order := generic["order"].(map[string]any)
	assert.Equal(t, "300000", order["total"])
	assert.Contains(t, order, "isActive")
}
