package projection

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/events"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/idempotency"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/messaging"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*RedisStore, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test"), client
}

func audit(active bool, at time.Time) events.Audit {
	return events.Audit{IsActive: active, CreatedAt: t0, CreatedBy: "seed", UpdatedAt: at, UpdatedBy: "seed"}
}

func order(id, accountID int64, status string, at time.Time) events.OrderSnapshot {
	return events.OrderSnapshot{
		ID:        id,
		AccountID: accountID,
		OrderDate: t0.Add(time.Duration(id) * time.Minute),
		Status:    status,
		Total:     decimal.RequireFromString("350000.50"),
		Lines: []events.OrderLineSnapshot{
			{OrchidID: 1, Price: decimal.RequireFromString("100000.25"), Quantity: 2, LineTotal: decimal.RequireFromString("200000.50")},
			{OrchidID: 2, Price: decimal.RequireFromString("150000"), Quantity: 1, LineTotal: decimal.RequireFromString("150000")},
		},
		Audit: audit(true, at),
	}
}

func TestRedisStore_CatalogDocuments(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ApplyCategory(ctx, events.CategorySnapshot{ID: 1, Name: "Orchids", Audit: audit(true, t0)}))
	require.NoError(t, store.ApplyOrchid(ctx, events.OrchidSnapshot{
		ID: 1, Name: "White Moth", Price: decimal.NewFromInt(100000), CategoryID: 1, Audit: audit(true, t0),
	}))
	require.NoError(t, store.ApplyOrchid(ctx, events.OrchidSnapshot{
		ID: 2, Name: "Pink Lady", Price: decimal.NewFromInt(150000), CategoryID: 1, Audit: audit(true, t0),
	}))

	orchid, err := store.GetOrchid(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Pink Lady", orchid.Name)

	_, err = store.GetOrchid(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	// soft delete keeps the document but drops it from the active set
	require.NoError(t, store.ApplyOrchid(ctx, events.OrchidSnapshot{
		ID: 2, Name: "Pink Lady", Price: decimal.NewFromInt(150000), CategoryID: 1, Audit: audit(false, t0.Add(time.Hour)),
	}))

	all, err := store.ListOrchids(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.False(t, all[1].IsActive)

	stats, err := store.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ActiveOrchids)
	assert.Equal(t, int64(1), stats.ActiveCategories)
}

func TestRedisStore_StaleSnapshotIgnored(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ApplyCategory(ctx, events.CategorySnapshot{ID: 1, Name: "Renamed", Audit: audit(true, t0.Add(time.Hour))}))
	require.NoError(t, store.ApplyCategory(ctx, events.CategorySnapshot{ID: 1, Name: "Original", Audit: audit(true, t0)}))

	category, err := store.GetCategory(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", category.Name)
}

func TestRedisStore_CountersMoveOnFirstCompletionOnly(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ApplyOrchid(ctx, events.OrchidSnapshot{ID: 1, Name: "White Moth", Audit: audit(true, t0)}))
	require.NoError(t, store.ApplyOrchid(ctx, events.OrchidSnapshot{ID: 2, Name: "Pink Lady", Audit: audit(true, t0)}))

	require.NoError(t, store.ApplyOrder(ctx, order(10, 7, "Processing", t0)))

	sellers, err := store.BestSellers(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, sellers)

	completed := order(10, 7, "Completed", t0.Add(time.Minute))
	require.NoError(t, store.ApplyOrder(ctx, completed))
	require.NoError(t, store.ApplyOrder(ctx, completed), "replaying the same snapshot")

	stats, err := store.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.OrdersByStatus["Processing"])
	assert.Equal(t, int64(1), stats.OrdersByStatus["Completed"])
	assert.Equal(t, int64(1), stats.TotalOrders)
	assert.True(t, decimal.RequireFromString("350000.50").Equal(stats.CompletedRevenue))

	sellers, err = store.BestSellers(ctx, 5)
	require.NoError(t, err)
	require.Len(t, sellers, 2)
	assert.Equal(t, int64(1), sellers[0].OrchidID)
	assert.Equal(t, "White Moth", sellers[0].OrchidName)
	assert.Equal(t, int64(2), sellers[0].Quantity)
	assert.True(t, decimal.RequireFromString("200000.50").Equal(sellers[0].Revenue))

	top, err := store.BestSellers(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestRedisStore_ListOrdersByAccount(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ApplyOrder(ctx, order(1, 7, "Processing", t0)))
	require.NoError(t, store.ApplyOrder(ctx, order(2, 8, "Processing", t0)))
	require.NoError(t, store.ApplyOrder(ctx, order(3, 7, "Cancelled", t0)))

	mine, err := store.ListOrders(ctx, 7)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, int64(3), mine[0].ID, "newest first")

	all, err := store.ListOrders(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

type countingWriter struct {
	Writer
	orchids int
}

func (w *countingWriter) ApplyOrchid(ctx context.Context, doc events.OrchidSnapshot) error {
	w.orchids++
	return w.Writer.ApplyOrchid(ctx, doc)
}

func TestProjector_HandleIsIdempotent(t *testing.T) {
	store, client := newTestStore(t)
	writer := &countingWriter{Writer: store}
	projector := NewProjector(writer, idempotency.NewRedisStore(client, "test"), zap.NewNop())
	ctx := context.Background()

	evt := events.OrchidUpsertedEvent{
		BaseEvent: events.NewBaseEvent(events.EventOrchidUpserted, "corr", t0),
		Orchid:    events.OrchidSnapshot{ID: 4, Name: "Blue Vanda", Audit: audit(true, t0)},
	}
	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	msg := &messaging.Message{
		Topic:   string(events.EventOrchidUpserted),
		Value:   payload,
		Headers: map[string]string{messaging.HeaderEventType: string(events.EventOrchidUpserted)},
	}

	require.NoError(t, projector.Handle(ctx, msg))
	require.NoError(t, projector.Handle(ctx, msg))
	assert.Equal(t, 1, writer.orchids)

	doc, err := store.GetOrchid(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Blue Vanda", doc.Name)
}

func TestProjector_UnknownEventFailsFast(t *testing.T) {
	store, client := newTestStore(t)
	projector := NewProjector(store, idempotency.NewRedisStore(client, "test"), zap.NewNop())

	err := projector.Handle(context.Background(), &messaging.Message{
		Topic: "payment.refunded.v1",
		Value: []byte(`{"eventId":"e-1"}`),
	})
	assert.ErrorIs(t, err, errPermanent)
	assert.ErrorIs(t, err, messaging.ErrUnprocessable)
}

type failingWriter struct {
	Writer
	failures int
	calls    int
}

func (w *failingWriter) ApplyOrchid(ctx context.Context, doc events.OrchidSnapshot) error {
	w.calls++
	if w.calls <= w.failures {
		return errors.New("redis unavailable")
	}
	return w.Writer.ApplyOrchid(ctx, doc)
}

func TestProjector_TransientFailureAllowsRedelivery(t *testing.T) {
	store, client := newTestStore(t)
	writer := &failingWriter{Writer: store, failures: 2}
	projector := NewProjector(writer, idempotency.NewRedisStore(client, "test"), zap.NewNop())
	projector.retry.MaxAttempts = 2
	projector.retry.InitialInterval = time.Millisecond
	ctx := context.Background()

	payload, err := json.Marshal(events.OrchidUpsertedEvent{
		BaseEvent: events.NewBaseEvent(events.EventOrchidUpserted, "corr", t0),
		Orchid:    events.OrchidSnapshot{ID: 9, Name: "Dendrobium", Audit: audit(true, t0)},
	})
	require.NoError(t, err)
	msg := &messaging.Message{Topic: string(events.EventOrchidUpserted), Value: payload}

	err = projector.Handle(ctx, msg)
	require.Error(t, err)
	assert.NotErrorIs(t, err, messaging.ErrUnprocessable, "transient failures must not be skipped")

	require.NoError(t, projector.Handle(ctx, msg), "redelivered event is projected")
	doc, err := store.GetOrchid(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "Dendrobium", doc.Name)
}
