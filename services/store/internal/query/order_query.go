package query

import (
	"context"
	stderrors "errors"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/events"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/projection"
)

// OrderFilter 주문 목록 필터. AccountID 0 = 전체 (관리자)
type OrderFilter struct {
	AccountID int64
	Status    string
	Page      int
	PageSize  int
}

// OrderQuery 주문 조회 인터페이스
type OrderQuery interface {
	ListOrders(ctx context.Context, filter OrderFilter) (*Page[events.OrderSnapshot], error)
	// GetOrder 관리자가 아니면 본인 주문만 조회 가능
	GetOrder(ctx context.Context, id, accountID int64, isAdmin bool) (*events.OrderSnapshot, error)
}

type orderQuery struct {
	reader projection.Reader
}

// NewOrderQuery 주문 조회 생성
func NewOrderQuery(reader projection.Reader) OrderQuery {
	return &orderQuery{reader: reader}
}

func (q *orderQuery) ListOrders(ctx context.Context, filter OrderFilter) (*Page[events.OrderSnapshot], error) {
	if filter.Status != "" {
		if _, ok := domain.ParseOrderStatus(filter.Status); !ok {
			return nil, errors.Validation(errors.FieldError{Field: "status", Message: "unknown order status " + filter.Status})
		}
	}

	orders, err := q.reader.ListOrders(ctx, filter.AccountID)
	if err != nil {
		return nil, readError(err)
	}

	matched := make([]events.OrderSnapshot, 0, len(orders))
	for _, o := range orders {
		if !o.IsActive {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, o)
	}

	page := paginate(matched, filter.Page, filter.PageSize)
	return &page, nil
}

func (q *orderQuery) GetOrder(ctx context.Context, id, accountID int64, isAdmin bool) (*events.OrderSnapshot, error) {
	order, err := q.reader.GetOrder(ctx, id)
	if stderrors.Is(err, projection.ErrNotFound) {
		return nil, errors.New(errors.ErrCodeOrderNotFound, "order not found")
	}
	if err != nil {
		return nil, readError(err)
	}
	if !isAdmin && order.AccountID != accountID {
		return nil, errors.New(errors.ErrCodeOrderNotFound, "order not found")
	}
	return order, nil
}
