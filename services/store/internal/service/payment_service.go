package service

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/idempotency"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/gateway/momo"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/repository"
)

const (
	// PaymentActor 결제 완료 시 감사 컬럼에 기록되는 이름
	PaymentActor = "momo"

	callbackDedupTTL = 24 * time.Hour
)

// CallbackResult 결제 콜백 처리 결과
type CallbackResult struct {
	OrderID int64
	Status  domain.OrderStatus
	// Duplicate 이미 처리된 콜백 (상태 변경 없음)
	Duplicate bool
	// Retry 결제 실패로 새 결제 URL 을 발급한 경우
	Retry     bool
	PayURL    string
	QRCodeURL string
	Deeplink  string
}

// PaymentService 결제 콜백 서비스 인터페이스
type PaymentService interface {
	HandleCallback(ctx context.Context, cb momo.Callback) (*CallbackResult, error)
}

type paymentService struct {
	orderTransitioner
	paymentRepo repository.PaymentRepository
	gateway     momo.Gateway
	idempotency idempotency.Store
}

// NewPaymentService 결제 콜백 서비스 생성
func NewPaymentService(
	db *sql.DB,
	orderRepo repository.OrderRepository,
	outboxRepo repository.OutboxRepository,
	paymentRepo repository.PaymentRepository,
	gateway momo.Gateway,
	idem idempotency.Store,
	logger *zap.Logger,
) PaymentService {
	return &paymentService{
		orderTransitioner: orderTransitioner{
			db:         db,
			orderRepo:  orderRepo,
			outboxRepo: outboxRepo,
			logger:     logger,
			now:        time.Now,
		},
		paymentRepo: paymentRepo,
		gateway:     gateway,
		idempotency: idem,
	}
}

// HandleCallback 게이트웨이 IPN/redirect 처리
func (s *paymentService) HandleCallback(ctx context.Context, cb momo.Callback) (*CallbackResult, error) {
	if cb.Signature == "" || !s.gateway.VerifyCallback(cb) {
		s.logger.Warn("Payment callback signature mismatch",
			zap.String("gatewayOrderId", cb.OrderID),
			zap.String("requestId", cb.RequestID))
		return nil, errors.New(errors.ErrCodeInvalidSignature, "the callback signature is invalid")
	}

	orderID, ok := momo.ParseOrderID(cb)
	if !ok {
		return nil, errors.Validation(errors.FieldError{Field: "orderInfo", Message: "the order id could not be recovered"})
	}

	key := cb.DedupKey()
	reserved, err := s.idempotency.Reserve(ctx, key, callbackDedupTTL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetworkError, "failed to check callback idempotency", err)
	}
	if !reserved {
		s.logger.Info("Duplicate payment callback ignored",
			zap.Int64("orderId", orderID),
			zap.Int64("transId", cb.TransID))
		order, err := s.loadOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		result := &CallbackResult{OrderID: order.ID, Status: order.Status, Duplicate: true}
		if !cb.Succeeded() && order.Status == domain.OrderStatusProcessing {
			s.attachPendingAttempt(ctx, result)
		}
		return result, nil
	}

	result, err := s.process(ctx, orderID, cb)
	if err != nil {
		if releaseErr := s.idempotency.Release(ctx, key); releaseErr != nil {
			s.logger.Warn("Failed to release callback idempotency key",
				zap.String("key", key),
				zap.Error(releaseErr))
		}
		return nil, err
	}
	return result, nil
}

func (s *paymentService) process(ctx context.Context, orderID int64, cb momo.Callback) (*CallbackResult, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsFinal() {
		if cb.Succeeded() {
			s.logger.Error("Payment captured for a finalized order, refund required",
				zap.Int64("orderId", order.ID),
				zap.String("status", string(order.Status)),
				zap.Int64("transId", cb.TransID),
				zap.Int64("amount", cb.Amount))
			s.recordResult(ctx, order.ID, cb, domain.PaymentStatusSucceeded)
		} else {
			s.recordResult(ctx, order.ID, cb, domain.PaymentStatusFailed)
		}
		return nil, errors.New(errors.ErrCodeOrderAlreadyFinalized, "the order is already "+string(order.Status))
	}

	if !cb.Succeeded() {
		s.logger.Warn("Payment failed, issuing a new payment request",
			zap.Int64("orderId", order.ID),
			zap.Int("resultCode", cb.ResultCode),
			zap.String("message", cb.Message))

		s.recordResult(ctx, order.ID, cb, domain.PaymentStatusFailed)

		payment, err := s.gateway.CreatePayment(ctx, momo.PaymentRequest{OrderID: order.ID, Amount: order.Total})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodePaymentGateway, "the payment service is unavailable, please try again later", err)
		}
		if err := s.paymentRepo.Create(ctx, newAttempt(order.ID, order.Total, payment, s.now())); err != nil {
			s.logger.Warn("Failed to record payment attempt",
				zap.Int64("orderId", order.ID),
				zap.String("gatewayOrderId", payment.GatewayOrderID),
				zap.Error(err))
		}
		return &CallbackResult{
			OrderID:   order.ID,
			Status:    order.Status,
			Retry:     true,
			PayURL:    payment.PayURL,
			QRCodeURL: payment.QRCodeURL,
			Deeplink:  payment.Deeplink,
		}, nil
	}

	expected := order.Total.Round(0)
	if !decimal.NewFromInt(cb.Amount).Equal(expected) {
		s.logger.Warn("Payment amount mismatch",
			zap.Int64("orderId", order.ID),
			zap.Int64("amount", cb.Amount),
			zap.String("expected", expected.String()))
		return nil, errors.New(errors.ErrCodePaymentAmountMismatch, "the paid amount does not match the order total")
	}

	completed, err := s.transition(ctx, order.ID, domain.OrderStatusCompleted, PaymentActor, nil)
	if err != nil {
		return nil, err
	}

	s.recordResult(ctx, completed.ID, cb, domain.PaymentStatusSucceeded)

	s.logger.Info("Payment completed",
		zap.Int64("orderId", completed.ID),
		zap.Int64("transId", cb.TransID))

	return &CallbackResult{OrderID: completed.ID, Status: completed.Status}, nil
}

// attachPendingAttempt 중복 실패 콜백에도 재결제 링크를 돌려준다 (IPN 과 redirect 가 같은 거래를 보고하는 경우)
func (s *paymentService) attachPendingAttempt(ctx context.Context, result *CallbackResult) {
	attempts, err := s.paymentRepo.ListByOrderID(ctx, result.OrderID)
	if err != nil {
		s.logger.Warn("Failed to load payment attempts",
			zap.Int64("orderId", result.OrderID),
			zap.Error(err))
		return
	}
	for _, attempt := range attempts {
		if attempt.Status != domain.PaymentStatusPending || attempt.PayURL == "" {
			continue
		}
		result.Retry = true
		result.PayURL = attempt.PayURL
		result.QRCodeURL = attempt.QRCodeURL
		result.Deeplink = attempt.Deeplink
		return
	}
}

func newAttempt(orderID int64, amount decimal.Decimal, payment *momo.PaymentResult, now time.Time) *domain.PaymentAttempt {
	attempt := domain.NewPaymentAttempt(orderID, payment.RequestID, payment.GatewayOrderID, payment.PayURL, amount, now)
	attempt.QRCodeURL = payment.QRCodeURL
	attempt.Deeplink = payment.Deeplink
	return attempt
}

// recordResult 결제 시도 원장 갱신. 주문 상태가 기준이므로 실패해도 콜백 처리는 계속한다.
func (s *paymentService) recordResult(ctx context.Context, orderID int64, cb momo.Callback, status domain.PaymentStatus) {
	result := repository.PaymentResult{
		Status:     status,
		ResultCode: cb.ResultCode,
		TransID:    cb.TransID,
		Message:    cb.Message,
	}
	recorded, err := s.paymentRepo.RecordResult(ctx, cb.OrderID, result, s.now())
	if err != nil {
		s.logger.Warn("Failed to record payment result",
			zap.Int64("orderId", orderID),
			zap.String("gatewayOrderId", cb.OrderID),
			zap.Error(err))
		return
	}
	if !recorded {
		s.logger.Debug("No pending payment attempt for callback",
			zap.Int64("orderId", orderID),
			zap.String("gatewayOrderId", cb.OrderID))
	}
}

func (s *paymentService) loadOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if stderrors.Is(err, repository.ErrNotFound) || (err == nil && !order.IsActive) {
		return nil, errors.New(errors.ErrCodeOrderNotFound, "order not found")
	}
	if err != nil {
		return nil, dbError("failed to load order", err)
	}
	return order, nil
}
