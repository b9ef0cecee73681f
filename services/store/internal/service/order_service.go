package service

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/events"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/gateway/momo"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/repository"
)

// ExpiryActor 결제 만료 자동 취소 시 감사 컬럼에 기록되는 이름
const ExpiryActor = "payment-expiry"

// PlaceOrderCommand 주문 생성 커맨드
type PlaceOrderCommand struct {
	AccountID int64
	Lines     []domain.CartLine
}

// PlaceOrderResult 주문 생성 결과 (결제 URL 포함)
type PlaceOrderResult struct {
	OrderID   int64
	Status    domain.OrderStatus
	Total     decimal.Decimal
	PayURL    string
	QRCodeURL string
	Deeplink  string
}

// CancelOrderCommand 주문 취소 커맨드
type CancelOrderCommand struct {
	OrderID   int64
	AccountID int64
	IsAdmin   bool
	Actor     string
}

// ChangeStatusCommand 관리자 상태 변경 커맨드
type ChangeStatusCommand struct {
	OrderID int64
	Status  string
	Actor   string
}

// OrderService 주문 서비스 인터페이스
type OrderService interface {
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (*PlaceOrderResult, error)
	CancelOrder(ctx context.Context, cmd CancelOrderCommand) (*domain.Order, error)
	ChangeStatus(ctx context.Context, cmd ChangeStatusCommand) (*domain.Order, error)
	// ExpireOrder 결제 기한이 지난 Processing 주문 취소. 이미 종료된 주문이면 false.
	ExpireOrder(ctx context.Context, orderID int64) (bool, error)
}

type orderService struct {
	orderTransitioner
	accountRepo repository.AccountRepository
	orchidRepo  repository.OrchidRepository
	paymentRepo repository.PaymentRepository
	gateway     momo.Gateway
	scheduler   PaymentExpiryScheduler
}

// NewOrderService 주문 서비스 생성
func NewOrderService(
	db *sql.DB,
	orderRepo repository.OrderRepository,
	orchidRepo repository.OrchidRepository,
	accountRepo repository.AccountRepository,
	outboxRepo repository.OutboxRepository,
	paymentRepo repository.PaymentRepository,
	gateway momo.Gateway,
	scheduler PaymentExpiryScheduler,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderTransitioner: orderTransitioner{
			db:         db,
			orderRepo:  orderRepo,
			outboxRepo: outboxRepo,
			logger:     logger,
			now:        time.Now,
		},
		accountRepo: accountRepo,
		orchidRepo:  orchidRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		scheduler:   scheduler,
	}
}

// validateCart 장바구니 검증 후 같은 난초 줄을 합쳐 반환
func validateCart(lines []domain.CartLine) ([]domain.CartLine, error) {
	if len(lines) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidOrder, "the cart is empty")
	}
	var details []errors.FieldError
	for i, line := range lines {
		if line.OrchidID <= 0 {
			details = append(details, errors.FieldError{
				Field: fmt.Sprintf("items[%d].orchidId", i), Message: "orchid id is required"})
		}
		if line.Quantity <= 0 {
			details = append(details, errors.FieldError{
				Field: fmt.Sprintf("items[%d].quantity", i), Message: "quantity must be greater than zero"})
		} else if line.Quantity > domain.MaxLineQuantity {
			details = append(details, errors.FieldError{
				Field: fmt.Sprintf("items[%d].quantity", i), Message: fmt.Sprintf("quantity must not exceed %d", domain.MaxLineQuantity)})
		}
	}
	if len(details) > 0 {
		return nil, &errors.DomainError{
			Code:    errors.ErrCodeInvalidOrder,
			Message: "the cart contains invalid lines",
			Details: details,
		}
	}

	merged := domain.MergeCart(lines)
	for _, line := range merged {
		if line.Quantity > domain.MaxLineQuantity {
			return nil, &errors.DomainError{
				Code:    errors.ErrCodeInvalidOrder,
				Message: "the cart contains invalid lines",
				Details: []errors.FieldError{{
					Field:   "items",
					Message: fmt.Sprintf("total quantity of orchid %d must not exceed %d", line.OrchidID, domain.MaxLineQuantity),
				}},
			}
		}
	}
	return merged, nil
}

// PlaceOrder 주문 생성 + 결제 URL 발급.
// 게이트웨이 호출이 실패하면 주문 전체를 롤백한다.
func (s *orderService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (*PlaceOrderResult, error) {
	lines, err := validateCart(cmd.Lines)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	account, err := s.accountRepo.WithTx(tx).FindByID(ctx, cmd.AccountID)
	if stderrors.Is(err, repository.ErrNotFound) || (err == nil && !account.IsActive) {
		return nil, errors.New(errors.ErrCodeAccountNotFound, "account not found")
	}
	if err != nil {
		return nil, dbError("failed to load account", err)
	}

	now := s.now()
	actor := account.Email
	order := &domain.Order{
		AccountID:    account.ID,
		AccountEmail: account.Email,
		AccountName:  account.Name,
		OrderDate:    now,
		Status:       domain.OrderStatusProcessing,
		Total:        decimal.Zero,
		Audit:        domain.NewAudit(actor, now),
	}

	orders := s.orderRepo.WithTx(tx)
	if err := orders.Create(ctx, order); err != nil {
		return nil, dbError("failed to create order", err)
	}

	orchids := s.orchidRepo.WithTx(tx)
	for _, line := range lines {
		orchid, err := orchids.FindForOrder(ctx, line.OrchidID)
		if stderrors.Is(err, repository.ErrNotFound) || (err == nil && !orchid.IsActive) {
			return nil, errors.New(errors.ErrCodeOrchidNotFound, fmt.Sprintf("orchid %d not found", line.OrchidID))
		}
		if err != nil {
			return nil, dbError("failed to load orchid", err)
		}

		detail := domain.OrderDetail{
			OrderID:    order.ID,
			OrchidID:   orchid.ID,
			OrchidName: orchid.Name,
			Price:      orchid.Price,
			Quantity:   line.Quantity,
			Audit:      domain.NewAudit(actor, now),
		}
		if err := orders.AddDetail(ctx, &detail); err != nil {
			return nil, dbError("failed to create order detail", err)
		}
		order.Details = append(order.Details, detail)
	}

	order.Total = domain.SumLines(order.Details)
	if order.Total.GreaterThan(domain.MaxOrderTotal) {
		return nil, errors.New(errors.ErrCodeInvalidOrder, "the order total exceeds the maximum allowed amount")
	}
	if err := orders.UpdateTotal(ctx, order.ID, order.Total); err != nil {
		return nil, dbError("failed to update order total", err)
	}

	payment, err := s.gateway.CreatePayment(ctx, momo.PaymentRequest{OrderID: order.ID, Amount: order.Total})
	if err != nil {
		s.logger.Error("Payment request failed, rolling back order",
			zap.Int64("orderId", order.ID),
			zap.Error(err))
		return nil, errors.Wrap(errors.ErrCodePaymentGateway, "the payment service is unavailable, please try again later", err)
	}

	if err := s.paymentRepo.WithTx(tx).Create(ctx, newAttempt(order.ID, order.Total, payment, now)); err != nil {
		return nil, dbError("failed to record payment attempt", err)
	}

	if err := appendEvent(ctx, tx, s.outboxRepo, "order", order.ID,
		events.EventOrderUpserted, orderEvent(ctx, order, now), now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, dbError("failed to commit transaction", err)
	}

	if err := s.scheduler.Schedule(ctx, order.ID); err != nil {
		s.logger.Warn("Failed to schedule payment expiry",
			zap.Int64("orderId", order.ID),
			zap.Error(err))
	}

	s.logger.Info("Order placed",
		zap.Int64("orderId", order.ID),
		zap.Int64("accountId", account.ID),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Int("lines", len(order.Details)))

	return &PlaceOrderResult{
		OrderID:   order.ID,
		Status:    order.Status,
		Total:     order.Total,
		PayURL:    payment.PayURL,
		QRCodeURL: payment.QRCodeURL,
		Deeplink:  payment.Deeplink,
	}, nil
}

// CancelOrder 고객 본인의 Processing 주문 취소 (관리자는 모든 주문)
func (s *orderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (*domain.Order, error) {
	return s.transition(ctx, cmd.OrderID, domain.OrderStatusCancelled, cmd.Actor, func(order *domain.Order) error {
		if !cmd.IsAdmin && order.AccountID != cmd.AccountID {
			return errors.New(errors.ErrCodeOrderNotFound, "order not found")
		}
		return nil
	})
}

// ChangeStatus 관리자 상태 변경 (전이 테이블 적용)
func (s *orderService) ChangeStatus(ctx context.Context, cmd ChangeStatusCommand) (*domain.Order, error) {
	status, ok := domain.ParseOrderStatus(cmd.Status)
	if !ok {
		return nil, errors.Validation(errors.FieldError{Field: "status", Message: "unknown order status " + cmd.Status})
	}
	return s.transition(ctx, cmd.OrderID, status, cmd.Actor, nil)
}

// ExpireOrder 결제 만료 처리
func (s *orderService) ExpireOrder(ctx context.Context, orderID int64) (bool, error) {
	_, err := s.transition(ctx, orderID, domain.OrderStatusCancelled, ExpiryActor, nil)
	if err == nil {
		s.logger.Info("Unpaid order expired", zap.Int64("orderId", orderID))
		return true, nil
	}
	switch errors.CodeOf(err) {
	case errors.ErrCodeOrderAlreadyFinalized, errors.ErrCodeConcurrency:
		return false, nil
	}
	return false, err
}
