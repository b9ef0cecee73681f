package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType 이벤트 타입 정의
type EventType string

const (
	EventAccountUpserted  EventType = "account.upserted.v1"
	EventCategoryUpserted EventType = "category.upserted.v1"
	EventOrchidUpserted   EventType = "orchid.upserted.v1"
	EventOrderUpserted    EventType = "order.upserted.v1"
)

// ProjectionTopics 프로젝션이 구독하는 토픽 목록
var ProjectionTopics = []string{
	string(EventAccountUpserted),
	string(EventCategoryUpserted),
	string(EventOrchidUpserted),
	string(EventOrderUpserted),
}

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	EventID       string    `json:"eventId"`
	EventType     EventType `json:"eventType"`
	SchemaVersion int       `json:"schemaVersion"`
	OccurredAt    time.Time `json:"occurredAt"`
	CorrelationID string    `json:"correlationId"`
}

// NewBaseEvent 새 이벤트 헤더 생성
func NewBaseEvent(eventType EventType, correlationID string, now time.Time) BaseEvent {
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	return BaseEvent{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		SchemaVersion: 1,
		OccurredAt:    now.UTC(),
		CorrelationID: correlationID,
	}
}

// Audit 감사 컬럼 스냅샷
type Audit struct {
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
}

// AccountSnapshot 계정 문서 (비밀번호 해시 제외)
type AccountSnapshot struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Audit
}

// CategorySnapshot 카테고리 문서
type CategorySnapshot struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ParentID   *int64 `json:"parentId,omitempty"`
	ParentName string `json:"parentName,omitempty"`
	Audit
}

// OrchidSnapshot 난초(상품) 문서
type OrchidSnapshot struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	ImageURL     string          `json:"imageUrl"`
	Price        decimal.Decimal `json:"price"`
	IsNatural    bool            `json:"isNatural"`
	CategoryID   int64           `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Audit
}

// OrderLineSnapshot 주문 상세 문서
type OrderLineSnapshot struct {
	ID         int64           `json:"id"`
	OrchidID   int64           `json:"orchidId"`
	OrchidName string          `json:"orchidName"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	LineTotal  decimal.Decimal `json:"lineTotal"`
}

// OrderSnapshot 주문 문서
type OrderSnapshot struct {
	ID           int64               `json:"id"`
	AccountID    int64               `json:"accountId"`
	AccountEmail string              `json:"accountEmail"`
	AccountName  string              `json:"accountName"`
	OrderDate    time.Time           `json:"orderDate"`
	Status       string              `json:"status"`
	Total        decimal.Decimal     `json:"total"`
	Lines        []OrderLineSnapshot `json:"lines"`
	Audit
}

// AccountUpsertedEvent 계정 생성/변경 이벤트
type AccountUpsertedEvent struct {
	BaseEvent
	Account AccountSnapshot `json:"account"`
}

// CategoryUpsertedEvent 카테고리 생성/변경/삭제 이벤트
type CategoryUpsertedEvent struct {
	BaseEvent
	Category CategorySnapshot `json:"category"`
}

// OrchidUpsertedEvent 난초 생성/변경/삭제 이벤트
type OrchidUpsertedEvent struct {
	BaseEvent
	Orchid OrchidSnapshot `json:"orchid"`
}

// OrderUpsertedEvent 주문 생성/상태 변경 이벤트
type OrderUpsertedEvent struct {
	BaseEvent
	Order OrderSnapshot `json:"order"`
}
