package expiry

import (
	"context"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	apperrors "github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
)

const (
	WorkflowName         = "PaymentExpiryWorkflow"
	ExpireOrderActivity  = "ExpireOrder"
	activityStartToClose = 30 * time.Second
)

// Input 결제 만료 워크플로 입력
type Input struct {
	OrderID int64         `json:"orderId"`
	Window  time.Duration `json:"window"`
}

// Result 워크플로 결과. Cancelled=false 면 이미 결제/취소된 주문
type Result struct {
	OrderID   int64 `json:"orderId"`
	Cancelled bool  `json:"cancelled"`
}

// OrderExpirer 결제 창이 지난 주문을 취소하는 쪽
type OrderExpirer interface {
	ExpireOrder(ctx context.Context, orderID int64) (bool, error)
}

// PaymentExpiryWorkflow 결제 창만큼 대기한 뒤 아직 Processing 인 주문을 취소
func PaymentExpiryWorkflow(ctx workflow.Context, input Input) (*Result, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("payment expiry timer started", "orderId", input.OrderID, "window", input.Window)

	if err := workflow.Sleep(ctx, input.Window); err != nil {
		return nil, err
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: activityStartToClose,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    10,
		},
	})

	var cancelled bool
	if err := workflow.ExecuteActivity(ctx, ExpireOrderActivity, input.OrderID).Get(ctx, &cancelled); err != nil {
		logger.Error("payment expiry failed", "orderId", input.OrderID, "error", err)
		return nil, err
	}

	logger.Info("payment expiry finished", "orderId", input.OrderID, "cancelled", cancelled)
	return &Result{OrderID: input.OrderID, Cancelled: cancelled}, nil
}

// Activities 결제 만료 액티비티
type Activities struct {
	expirer OrderExpirer
	logger  *zap.Logger
}

// NewActivities 액티비티 생성
func NewActivities(expirer OrderExpirer, logger *zap.Logger) *Activities {
	return &Activities{expirer: expirer, logger: logger}
}

// ExpireOrder 비즈니스 에러는 재시도하지 않는다
func (a *Activities) ExpireOrder(ctx context.Context, orderID int64) (bool, error) {
	cancelled, err := a.expirer.ExpireOrder(ctx, orderID)
	if err != nil {
		a.logger.Error("failed to expire order", zap.Int64("orderId", orderID), zap.Error(err))
		if apperrors.IsBusinessError(err) {
			return false, temporal.NewNonRetryableApplicationError(err.Error(), string(apperrors.CodeOf(err)), err)
		}
		return false, err
	}

	if cancelled {
		a.logger.Info("order cancelled after payment window", zap.Int64("orderId", orderID))
	}
	return cancelled, nil
}
