package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/events"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/repository"
)

// PaymentExpiryScheduler 미결제 주문 자동 취소 예약
type PaymentExpiryScheduler interface {
	Schedule(ctx context.Context, orderID int64) error
}

type noopScheduler struct{}

// NewNoopScheduler 만료 워크플로우 비활성화 시 사용
func NewNoopScheduler() PaymentExpiryScheduler {
	return noopScheduler{}
}

func (noopScheduler) Schedule(context.Context, int64) error {
	return nil
}

// dbError 저장소 에러를 도메인 에러로 변환. PostgreSQL 코드 매핑은 유지한다.
func dbError(message string, err error) error {
	if errors.CodeOf(err) != "" {
		return err
	}
	code := errors.FromError(err).Code
	if code == errors.ErrCodeUnknownError {
		code = errors.ErrCodeDatabaseError
	}
	return errors.Wrap(code, message, err)
}

// appendEvent 커맨드 트랜잭션 안에서 Outbox 이벤트 기록
func appendEvent(
	ctx context.Context,
	tx *sql.Tx,
	outboxRepo repository.OutboxRepository,
	aggregateType string,
	aggregateID int64,
	eventType events.EventType,
	event interface{},
	now time.Time,
) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSerializationError, "failed to marshal event", err)
	}

	outboxEvent := &repository.OutboxEvent{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     string(eventType),
		Payload:       payload,
		Status:        repository.OutboxStatusPending,
		CreatedAt:     now,
	}
	if err := outboxRepo.InsertTx(ctx, tx, outboxEvent); err != nil {
		return dbError("failed to insert outbox event", err)
	}
	return nil
}

func auditSnapshot(a domain.Audit) events.Audit {
	return events.Audit{
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		CreatedBy: a.CreatedBy,
		UpdatedAt: a.UpdatedAt,
		UpdatedBy: a.UpdatedBy,
	}
}

func accountEvent(ctx context.Context, a *domain.Account, now time.Time) events.AccountUpsertedEvent {
	return events.AccountUpsertedEvent{
		BaseEvent: events.NewBaseEvent(events.EventAccountUpserted, events.CorrelationID(ctx), now),
		Account: events.AccountSnapshot{
			ID:    a.ID,
			Email: a.Email,
			Name:  a.Name,
			Role:  string(a.Role),
			Audit: auditSnapshot(a.Audit),
		},
	}
}

func categoryEvent(ctx context.Context, c *domain.Category, now time.Time) events.CategoryUpsertedEvent {
	return events.CategoryUpsertedEvent{
		BaseEvent: events.NewBaseEvent(events.EventCategoryUpserted, events.CorrelationID(ctx), now),
		Category: events.CategorySnapshot{
			ID:         c.ID,
			Name:       c.Name,
			ParentID:   c.ParentID,
			ParentName: c.ParentName,
			Audit:      auditSnapshot(c.Audit),
		},
	}
}

func orchidEvent(ctx context.Context, o *domain.Orchid, now time.Time) events.OrchidUpsertedEvent {
	return events.OrchidUpsertedEvent{
		BaseEvent: events.NewBaseEvent(events.EventOrchidUpserted, events.CorrelationID(ctx), now),
		Orchid: events.OrchidSnapshot{
			ID:           o.ID,
			Name:         o.Name,
			Description:  o.Description,
			ImageURL:     o.ImageURL,
			Price:        o.Price,
			IsNatural:    o.IsNatural,
			CategoryID:   o.CategoryID,
			CategoryName: o.CategoryName,
			Audit:        auditSnapshot(o.Audit),
		},
	}
}

func orderEvent(ctx context.Context, o *domain.Order, now time.Time) events.OrderUpsertedEvent {
	lines := make([]events.OrderLineSnapshot, 0, len(o.Details))
	for _, d := range o.Details {
		lines = append(lines, events.OrderLineSnapshot{
			ID:         d.ID,
			OrchidID:   d.OrchidID,
			OrchidName: d.OrchidName,
			Price:      d.Price,
			Quantity:   d.Quantity,
			LineTotal:  d.LineTotal(),
		})
	}
	return events.OrderUpsertedEvent{
		BaseEvent: events.NewBaseEvent(events.EventOrderUpserted, events.CorrelationID(ctx), now),
		Order: events.OrderSnapshot{
			ID:           o.ID,
			AccountID:    o.AccountID,
			AccountEmail: o.AccountEmail,
			AccountName:  o.AccountName,
			OrderDate:    o.OrderDate,
			Status:       string(o.Status),
			Total:        o.Total,
			Lines:        lines,
			Audit:        auditSnapshot(o.Audit),
		},
	}
}
