package expiry

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
)

// WorkflowID 주문당 하나의 만료 워크플로
func WorkflowID(orderID int64) string {
	return fmt.Sprintf("payment-expiry-%d", orderID)
}

// Scheduler Temporal 기반 결제 만료 예약
type Scheduler struct {
	client    client.Client
	taskQueue string
	window    time.Duration
	logger    *zap.Logger
}

// NewScheduler 스케줄러 생성
func NewScheduler(c client.Client, taskQueue string, window time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		client:    c,
		taskQueue: taskQueue,
		window:    window,
		logger:    logger,
	}
}

// Schedule 이미 실행 중인 같은 ID 의 워크플로가 있으면 그대로 둔다
func (s *Scheduler) Schedule(ctx context.Context, orderID int64) error {
	options := client.StartWorkflowOptions{
		ID:                       WorkflowID(orderID),
		TaskQueue:                s.taskQueue,
		WorkflowExecutionTimeout: s.window + time.Hour,
	}

	if _, err := s.client.ExecuteWorkflow(ctx, options, WorkflowName, Input{OrderID: orderID, Window: s.window}); err != nil {
		return fmt.Errorf("failed to start payment expiry workflow: %w", err)
	}

	s.logger.Debug("payment expiry scheduled",
		zap.Int64("orderId", orderID),
		zap.String("workflowId", options.ID),
		zap.Duration("window", s.window))
	return nil
}

// NewWorker 만료 워크플로와 액티비티를 등록한 워커
func NewWorker(c client.Client, taskQueue string, activities *Activities) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(PaymentExpiryWorkflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivity(activities)
	return w
}
