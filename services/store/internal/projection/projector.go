package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/events"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/idempotency"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/messaging"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/retry"
)

const processedTTL = 7 * 24 * time.Hour

// errPermanent 재시도해도 성공할 수 없는 이벤트 (컨슈머는 건너뛴다)
var errPermanent = fmt.Errorf("event cannot be projected: %w", messaging.ErrUnprocessable)

// Projector Kafka 이벤트를 문서 저장소에 반영하는 컨슈머 핸들러
type Projector struct {
	writer      Writer
	idempotency idempotency.Store
	retry       retry.Config
	logger      *zap.Logger
}

// NewProjector 프로젝터 생성
func NewProjector(writer Writer, idem idempotency.Store, logger *zap.Logger) *Projector {
	cfg := retry.DefaultConfig()
	cfg.ShouldRetry = func(err error) bool {
		return !errors.Is(err, errPermanent)
	}
	return &Projector{
		writer:      writer,
		idempotency: idem,
		retry:       cfg,
		logger:      logger,
	}
}

// Handle messaging.MessageHandler 구현
func (p *Projector) Handle(ctx context.Context, msg *messaging.Message) error {
	eventType := msg.Headers[messaging.HeaderEventType]
	if eventType == "" {
		eventType = msg.Topic
	}

	var base events.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return fmt.Errorf("%w: failed to decode event envelope: %v", errPermanent, err)
	}

	key := "projection:" + base.EventID
	processed, err := p.idempotency.IsProcessed(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check idempotency: %w", err)
	}
	if processed {
		p.logger.Debug("Event already projected", zap.String("eventId", base.EventID))
		return nil
	}

	err = retry.Do(ctx, p.retry, p.logger, func(ctx context.Context) error {
		return p.apply(ctx, events.EventType(eventType), msg.Value)
	})
	if err != nil {
		return fmt.Errorf("failed to project %s %s: %w", eventType, base.EventID, err)
	}

	if _, err := p.idempotency.Reserve(ctx, key, processedTTL); err != nil {
		p.logger.Warn("Failed to mark event as projected", zap.String("eventId", base.EventID), zap.Error(err))
	}

	p.logger.Debug("Event projected",
		zap.String("eventId", base.EventID),
		zap.String("eventType", eventType),
		zap.String("correlationId", base.CorrelationID))
	return nil
}

func decode[T any](payload []byte) (T, error) {
	var evt T
	if err := json.Unmarshal(payload, &evt); err != nil {
		return evt, fmt.Errorf("%w: %v", errPermanent, err)
	}
	return evt, nil
}

func (p *Projector) apply(ctx context.Context, eventType events.EventType, payload []byte) error {
	switch eventType {
	case events.EventAccountUpserted:
		evt, err := decode[events.AccountUpsertedEvent](payload)
		if err != nil {
			return err
		}
		return p.writer.ApplyAccount(ctx, evt.Account)
	case events.EventCategoryUpserted:
		evt, err := decode[events.CategoryUpsertedEvent](payload)
		if err != nil {
			return err
		}
		return p.writer.ApplyCategory(ctx, evt.Category)
	case events.EventOrchidUpserted:
		evt, err := decode[events.OrchidUpsertedEvent](payload)
		if err != nil {
			return err
		}
		return p.writer.ApplyOrchid(ctx, evt.Orchid)
	case events.EventOrderUpserted:
		evt, err := decode[events.OrderUpsertedEvent](payload)
		if err != nil {
			return err
		}
		return p.writer.ApplyOrder(ctx, evt.Order)
	default:
		return fmt.Errorf("%w: unknown event type %s", errPermanent, eventType)
	}
}
