package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus 결제 시도 상태
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// PaymentAttempt 게이트웨이에 요청한 결제 한 건.
// 주문 하나에 실패 후 재발급된 시도가 여러 건 쌓일 수 있다.
type PaymentAttempt struct {
	ID             int64
	OrderID        int64
	RequestID      string
	GatewayOrderID string
	Amount         decimal.Decimal
	PayURL         string
	QRCodeURL      string
	Deeplink       string
	Status         PaymentStatus
	ResultCode     *int
	TransID        *int64
	Message        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewPaymentAttempt 대기 상태의 결제 시도 생성
func NewPaymentAttempt(orderID int64, requestID, gatewayOrderID, payURL string, amount decimal.Decimal, now time.Time) *PaymentAttempt {
	return &PaymentAttempt{
		OrderID:        orderID,
		RequestID:      requestID,
		GatewayOrderID: gatewayOrderID,
		Amount:         amount,
		PayURL:         payURL,
		Status:         PaymentStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
