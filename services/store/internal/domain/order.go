package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// MaxLineQuantity 주문 상세 한 줄의 최대 수량 (order_details.quantity INT)
const MaxLineQuantity = math.MaxInt32

// MaxOrderTotal orders.total NUMERIC(18, 2) 의 최댓값
var MaxOrderTotal = decimal.RequireFromString("9999999999999999.99")

// OrderStatus 주문 상태
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// ParseOrderStatus 문자열을 주문 상태로 변환
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return OrderStatus(s), true
	}
	return "", false
}

// IsFinal 더 이상 전이할 수 없는 상태
func (s OrderStatus) IsFinal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusProcessing: {
		OrderStatusCompleted,
		OrderStatusCancelled,
	},
}

// CanTransition 상태 전이 가능 여부 확인
func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Order 주문 도메인 모델
type Order struct {
	ID           int64
	AccountID    int64
	AccountEmail string
	AccountName  string
	OrderDate    time.Time
	Status       OrderStatus
	Total        decimal.Decimal
	Details      []OrderDetail
	Audit
}

// OrderDetail 주문 상세 (주문 시점 가격 보존)
type OrderDetail struct {
	ID         int64
	OrderID    int64
	OrchidID   int64
	OrchidName string
	Price      decimal.Decimal
	Quantity   int
	Audit
}

// LineTotal 가격 × 수량
func (d OrderDetail) LineTotal() decimal.Decimal {
	return d.Price.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// SumLines 주문 상세 합계
func SumLines(details []OrderDetail) decimal.Decimal {
	total := decimal.Zero
	for _, d := range details {
		total = total.Add(d.LineTotal())
	}
	return total
}

// CanTransitionTo 상태 전이 가능 여부 확인
func (o *Order) CanTransitionTo(newStatus OrderStatus) bool {
	return CanTransition(o.Status, newStatus)
}

// CartLine 주문 요청 라인
type CartLine struct {
	OrchidID int64
	Quantity int
}

// MergeCart 같은 상품 라인을 합치고 첫 등장 순서를 유지
func MergeCart(lines []CartLine) []CartLine {
	index := make(map[int64]int, len(lines))
	merged := make([]CartLine, 0, len(lines))
	for _, line := range lines {
		if i, ok := index[line.OrchidID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.OrchidID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}
