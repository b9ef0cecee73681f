package service

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"go.uber.org/zap"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/events"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/repository"
)

// orderTransitioner 주문 상태 전이 공통 처리 (조건부 UPDATE + Outbox)
type orderTransitioner struct {
	db         *sql.DB
	orderRepo  repository.OrderRepository
	outboxRepo repository.OutboxRepository
	logger     *zap.Logger
	now        func() time.Time
}

// guard 전이 전에 주문을 검사. 에러를 반환하면 전이 중단.
type guard func(order *domain.Order) error

func (t *orderTransitioner) transition(ctx context.Context, orderID int64, to domain.OrderStatus, actor string, check guard) (*domain.Order, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	orders := t.orderRepo.WithTx(tx)

	order, err := orders.FindByID(ctx, orderID)
	if stderrors.Is(err, repository.ErrNotFound) || (err == nil && !order.IsActive) {
		return nil, errors.New(errors.ErrCodeOrderNotFound, "order not found")
	}
	if err != nil {
		return nil, dbError("failed to load order", err)
	}

	if check != nil {
		if err := check(order); err != nil {
			return nil, err
		}
	}

	if order.Status.IsFinal() {
		return nil, errors.New(errors.ErrCodeOrderAlreadyFinalized, "the order is already "+string(order.Status))
	}
	if !order.CanTransitionTo(to) {
		return nil, errors.New(errors.ErrCodeInvalidStatusTransition,
			"cannot change order status from "+string(order.Status)+" to "+string(to))
	}

	now := t.now()
	from := order.Status
	updated, err := orders.UpdateStatus(ctx, order.ID, from, to, actor, now)
	if err != nil {
		return nil, dbError("failed to update order status", err)
	}
	if !updated {
		return nil, errors.New(errors.ErrCodeConcurrency, "the order was modified concurrently")
	}

	order.Status = to
	order.Touch(actor, now)

	if err := appendEvent(ctx, tx, t.outboxRepo, "order", order.ID,
		events.EventOrderUpserted, orderEvent(ctx, order, now), now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, dbError("failed to commit transaction", err)
	}

	t.logger.Info("Order status changed",
		zap.Int64("orderId", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", actor))

	return order, nil
}
