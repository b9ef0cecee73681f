package worker

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/messaging"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/repository"
)

// MaxPublishAttempts 이 횟수만큼 실패하면 FAILED 로 격리
const MaxPublishAttempts = 10

// OutboxWorker Outbox 릴레이 워커.
// 같은 애그리거트의 이벤트는 같은 파티션으로 가도록 aggregateId 를 키로 발행한다.
type OutboxWorker struct {
	outboxRepo repository.OutboxRepository
	publisher  messaging.Publisher
	logger     *zap.Logger
	interval   time.Duration
	batchSize  int
}

// NewOutboxWorker Outbox 워커 생성
func NewOutboxWorker(
	outboxRepo repository.OutboxRepository,
	publisher messaging.Publisher,
	logger *zap.Logger,
	interval time.Duration,
	batchSize int,
) *OutboxWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxWorker{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		logger:     logger,
		interval:   interval,
		batchSize:  batchSize,
	}
}

// Start 워커 시작 (ctx 취소 시 종료)
func (w *OutboxWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("outbox worker started",
		zap.Duration("interval", w.interval),
		zap.Int("batchSize", w.batchSize))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("outbox worker stopped")
			return
		case <-ticker.C:
			if _, err := w.ProcessOnce(ctx); err != nil {
				w.logger.Error("failed to process outbox events", zap.Error(err))
			}
		}
	}
}

// ProcessOnce 대기 이벤트를 한 번 발행하고 성공 건수를 반환.
// 실패한 이벤트 뒤의 같은 애그리거트 이벤트는 순서 보장을 위해 이번 배치에서 건너뛴다.
func (w *OutboxWorker) ProcessOnce(ctx context.Context) (int, error) {
	pending, err := w.outboxRepo.FindPending(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.Debug("processing outbox events", zap.Int("count", len(pending)))

	blocked := make(map[string]bool)
	sent := 0
	for _, event := range pending {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		key := strconv.FormatInt(event.AggregateID, 10)
		aggregate := event.AggregateType + ":" + key
		if blocked[aggregate] {
			continue
		}

		if err := w.publisher.Publish(ctx, event.EventType, key, json.RawMessage(event.Payload)); err != nil {
			blocked[aggregate] = true
			w.logger.Error("failed to publish event",
				zap.Int64("eventId", event.ID),
				zap.String("eventType", event.EventType),
				zap.Int("attempts", event.Attempts+1),
				zap.Error(err))

			if err := w.outboxRepo.MarkAttemptFailed(ctx, event.ID, err.Error(), MaxPublishAttempts); err != nil {
				w.logger.Error("failed to record publish failure",
					zap.Int64("eventId", event.ID),
					zap.Error(err))
			}
			continue
		}

		if err := w.outboxRepo.MarkSent(ctx, event.ID); err != nil {
			// 재발행되더라도 프로젝터가 eventId 로 중복을 걸러낸다
			w.logger.Error("failed to mark event as sent",
				zap.Int64("eventId", event.ID),
				zap.Error(err))
			continue
		}
		sent++
	}

	return sent, nil
}
