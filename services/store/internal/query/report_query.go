package query

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/projection"
)

const (
	DefaultBestSellerLimit = 10
	MaxBestSellerLimit     = 100
)

// BestSellerView 판매 순위 응답
type BestSellerView struct {
	Rank       int             `json:"rank"`
	OrchidID   int64           `json:"orchidId"`
	OrchidName string          `json:"orchidName"`
	Quantity   int64           `json:"quantitySold"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// StatisticsView 관리자 통계 응답
type StatisticsView struct {
	TotalOrders      int64            `json:"totalOrders"`
	OrdersByStatus   map[string]int64 `json:"ordersByStatus"`
	CompletedRevenue decimal.Decimal  `json:"completedRevenue"`
	ActiveOrchids    int64            `json:"activeOrchids"`
	ActiveCategories int64            `json:"activeCategories"`
	ActiveAccounts   int64            `json:"activeAccounts"`
}

// ReportQuery 관리자 보고서 조회 인터페이스
type ReportQuery interface {
	BestSellers(ctx context.Context, limit int) ([]BestSellerView, error)
	Statistics(ctx context.Context) (*StatisticsView, error)
}

type reportQuery struct {
	reader projection.Reader
}

// NewReportQuery 보고서 조회 생성
func NewReportQuery(reader projection.Reader) ReportQuery {
	return &reportQuery{reader: reader}
}

func (q *reportQuery) BestSellers(ctx context.Context, limit int) ([]BestSellerView, error) {
	if limit <= 0 {
		limit = DefaultBestSellerLimit
	}
	if limit > MaxBestSellerLimit {
		limit = MaxBestSellerLimit
	}

	ranked, err := q.reader.BestSellers(ctx, limit)
	if err != nil {
		return nil, readError(err)
	}

	views := make([]BestSellerView, len(ranked))
	for i, r := range ranked {
		views[i] = BestSellerView{
			Rank:       i + 1,
			OrchidID:   r.OrchidID,
			OrchidName: r.OrchidName,
			Quantity:   r.Quantity,
			Revenue:    r.Revenue,
		}
	}
	return views, nil
}

func (q *reportQuery) Statistics(ctx context.Context) (*StatisticsView, error) {
	stats, err := q.reader.Statistics(ctx)
	if err != nil {
		return nil, readError(err)
	}
	return &StatisticsView{
		TotalOrders:      stats.TotalOrders,
		OrdersByStatus:   stats.OrdersByStatus,
		CompletedRevenue: stats.CompletedRevenue,
		ActiveOrchids:    stats.ActiveOrchids,
		ActiveCategories: stats.ActiveCategories,
		ActiveAccounts:   stats.ActiveAccounts,
	}, nil
}
