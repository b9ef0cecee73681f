package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/events"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
)

const (
	kindAccount  = "account"
	kindCategory = "category"
	kindOrchid   = "orchid"
	kindOrder    = "order"

	maxWatchRetries = 5
)

// ErrNotFound 프로젝션 문서 없음
var ErrNotFound = errors.New("projection document not found")

// Writer 이벤트 스냅샷을 문서 저장소에 반영
type Writer interface {
	ApplyAccount(ctx context.Context, doc events.AccountSnapshot) error
	ApplyCategory(ctx context.Context, doc events.CategorySnapshot) error
	ApplyOrchid(ctx context.Context, doc events.OrchidSnapshot) error
	ApplyOrder(ctx context.Context, doc events.OrderSnapshot) error
}

// Reader 조회 전용 문서 접근
type Reader interface {
	GetAccount(ctx context.Context, id int64) (*events.AccountSnapshot, error)
	ListAccounts(ctx context.Context) ([]events.AccountSnapshot, error)
	GetCategory(ctx context.Context, id int64) (*events.CategorySnapshot, error)
	ListCategories(ctx context.Context) ([]events.CategorySnapshot, error)
	GetOrchid(ctx context.Context, id int64) (*events.OrchidSnapshot, error)
	ListOrchids(ctx context.Context) ([]events.OrchidSnapshot, error)
	GetOrder(ctx context.Context, id int64) (*events.OrderSnapshot, error)
	// ListOrders accountID 가 0 이면 전체, 최신 주문 먼저
	ListOrders(ctx context.Context, accountID int64) ([]events.OrderSnapshot, error)
	BestSellers(ctx context.Context, limit int) ([]BestSeller, error)
	Statistics(ctx context.Context) (*Statistics, error)
}

// BestSeller 판매량 순위 항목
type BestSeller struct {
	OrchidID   int64
	OrchidName string
	Quantity   int64
	Revenue    decimal.Decimal
}

// Statistics 관리자 통계
type Statistics struct {
	OrdersByStatus   map[string]int64
	TotalOrders      int64
	CompletedRevenue decimal.Decimal
	ActiveOrchids    int64
	ActiveCategories int64
	ActiveAccounts   int64
}

// RedisStore Redis 문서 저장소.
//
// 문서는 <prefix>:doc:<kind>:<id> 에 JSON 으로 저장하고
// <prefix>:idx:<kind> (ZSET) 와 <prefix>:idx:<kind>:active (SET) 로 색인한다.
// 보고서 카운터는 주문이 처음 Completed 가 될 때만 증가한다.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore 문서 저장소 생성
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) docKey(kind string, id int64) string {
	return fmt.Sprintf("%s:doc:%s:%d", s.prefix, kind, id)
}

func (s *RedisStore) indexKey(kind string) string {
	return s.prefix + ":idx:" + kind
}

func (s *RedisStore) activeKey(kind string) string {
	return s.prefix + ":idx:" + kind + ":active"
}

func (s *RedisStore) accountOrdersKey(accountID int64) string {
	return fmt.Sprintf("%s:idx:order:account:%d", s.prefix, accountID)
}

func (s *RedisStore) reportKey(name string) string {
	return s.prefix + ":report:" + name
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getJSON(ctx context.Context, c getter, key string, v interface{}) (bool, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// watch 낙관적 트랜잭션. 다른 쓰기와 충돌하면 재시도.
func (s *RedisStore) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("too many concurrent updates on %s", key)
}

type versioned struct {
	UpdatedAt time.Time `json:"updatedAt"`
}

// upsert 카탈로그/계정 문서 반영. 더 오래된 스냅샷은 무시.
func (s *RedisStore) upsert(ctx context.Context, kind string, id int64, updatedAt time.Time, active bool, doc interface{}) error {
	key := s.docKey(kind, id)
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", kind, err)
	}

	return s.watch(ctx, key, func(tx *redis.Tx) error {
		var prev versioned
		found, err := getJSON(ctx, tx, key, &prev)
		if err != nil {
			return err
		}
		if found && prev.UpdatedAt.After(updatedAt) {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.ZAdd(ctx, s.indexKey(kind), redis.Z{Score: float64(id), Member: id})
			if active {
				pipe.SAdd(ctx, s.activeKey(kind), id)
			} else {
				pipe.SRem(ctx, s.activeKey(kind), id)
			}
			return nil
		})
		return err
	})
}

func (s *RedisStore) ApplyAccount(ctx context.Context, doc events.AccountSnapshot) error {
	return s.upsert(ctx, kindAccount, doc.ID, doc.UpdatedAt, doc.IsActive, doc)
}

func (s *RedisStore) ApplyCategory(ctx context.Context, doc events.CategorySnapshot) error {
	return s.upsert(ctx, kindCategory, doc.ID, doc.UpdatedAt, doc.IsActive, doc)
}

func (s *RedisStore) ApplyOrchid(ctx context.Context, doc events.OrchidSnapshot) error {
	return s.upsert(ctx, kindOrchid, doc.ID, doc.UpdatedAt, doc.IsActive, doc)
}

func cents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

// ApplyOrder 주문 문서 반영 + 상태별 카운터/판매 순위 갱신
func (s *RedisStore) ApplyOrder(ctx context.Context, doc events.OrderSnapshot) error {
	key := s.docKey(kindOrder, doc.ID)
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode order document: %w", err)
	}
	completed := string(domain.OrderStatusCompleted)

	return s.watch(ctx, key, func(tx *redis.Tx) error {
		var prev events.OrderSnapshot
		found, err := getJSON(ctx, tx, key, &prev)
		if err != nil {
			return err
		}
		if found && prev.UpdatedAt.After(doc.UpdatedAt) {
			return nil
		}
		firstCompletion := doc.Status == completed && (!found || prev.Status != completed)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			score := float64(doc.OrderDate.Unix())
			pipe.Set(ctx, key, payload, 0)
			pipe.ZAdd(ctx, s.indexKey(kindOrder), redis.Z{Score: score, Member: doc.ID})
			pipe.ZAdd(ctx, s.accountOrdersKey(doc.AccountID), redis.Z{Score: score, Member: doc.ID})

			statusKey := s.reportKey("order-status")
			if !found {
				pipe.HIncrBy(ctx, statusKey, doc.Status, 1)
			} else if prev.Status != doc.Status {
				pipe.HIncrBy(ctx, statusKey, prev.Status, -1)
				pipe.HIncrBy(ctx, statusKey, doc.Status, 1)
			}

			if firstCompletion {
				for _, line := range doc.Lines {
					member := strconv.FormatInt(line.OrchidID, 10)
					pipe.ZIncrBy(ctx, s.reportKey("best-sellers"), float64(line.Quantity), member)
					pipe.HIncrBy(ctx, s.reportKey("revenue-by-orchid"), member, cents(line.LineTotal))
				}
				pipe.IncrBy(ctx, s.reportKey("revenue"), cents(doc.Total))
			}
			return nil
		})
		return err
	})
}

func getDoc[T any](ctx context.Context, s *RedisStore, kind string, id int64) (*T, error) {
	var doc T
	found, err := getJSON(ctx, s.client, s.docKey(kind, id), &doc)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func listDocs[T any](ctx context.Context, s *RedisStore, kind string, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.prefix + ":doc:" + kind + ":" + id
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s documents: %w", kind, err)
	}

	docs := make([]T, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var doc T
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", keys[i], err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *RedisStore) allIDs(ctx context.Context, kind string) ([]string, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(kind), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s index: %w", kind, err)
	}
	return ids, nil
}

func (s *RedisStore) GetAccount(ctx context.Context, id int64) (*events.AccountSnapshot, error) {
	return getDoc[events.AccountSnapshot](ctx, s, kindAccount, id)
}

func (s *RedisStore) ListAccounts(ctx context.Context) ([]events.AccountSnapshot, error) {
	ids, err := s.allIDs(ctx, kindAccount)
	if err != nil {
		return nil, err
	}
	return listDocs[events.AccountSnapshot](ctx, s, kindAccount, ids)
}

func (s *RedisStore) GetCategory(ctx context.Context, id int64) (*events.CategorySnapshot, error) {
	return getDoc[events.CategorySnapshot](ctx, s, kindCategory, id)
}

func (s *RedisStore) ListCategories(ctx context.Context) ([]events.CategorySnapshot, error) {
	ids, err := s.allIDs(ctx, kindCategory)
	if err != nil {
		return nil, err
	}
	return listDocs[events.CategorySnapshot](ctx, s, kindCategory, ids)
}

func (s *RedisStore) GetOrchid(ctx context.Context, id int64) (*events.OrchidSnapshot, error) {
	return getDoc[events.OrchidSnapshot](ctx, s, kindOrchid, id)
}

func (s *RedisStore) ListOrchids(ctx context.Context) ([]events.OrchidSnapshot, error) {
	ids, err := s.allIDs(ctx, kindOrchid)
	if err != nil {
		return nil, err
	}
	return listDocs[events.OrchidSnapshot](ctx, s, kindOrchid, ids)
}

func (s *RedisStore) GetOrder(ctx context.Context, id int64) (*events.OrderSnapshot, error) {
	return getDoc[events.OrderSnapshot](ctx, s, kindOrder, id)
}

func (s *RedisStore) ListOrders(ctx context.Context, accountID int64) ([]events.OrderSnapshot, error) {
	index := s.indexKey(kindOrder)
	if accountID > 0 {
		index = s.accountOrdersKey(accountID)
	}
	ids, err := s.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read order index: %w", err)
	}
	return listDocs[events.OrderSnapshot](ctx, s, kindOrder, ids)
}

// BestSellers 완료 주문 기준 판매량 상위 limit 개
func (s *RedisStore) BestSellers(ctx context.Context, limit int) ([]BestSeller, error) {
	if limit <= 0 {
		return []BestSeller{}, nil
	}
	ranked, err := s.client.ZRevRangeWithScores(ctx, s.reportKey("best-sellers"), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read best sellers: %w", err)
	}
	if len(ranked) == 0 {
		return []BestSeller{}, nil
	}

	ids := make([]string, len(ranked))
	for i, z := range ranked {
		ids[i] = fmt.Sprint(z.Member)
	}

	revenues, err := s.client.HMGet(ctx, s.reportKey("revenue-by-orchid"), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read orchid revenue: %w", err)
	}
	orchids, err := listDocs[events.OrchidSnapshot](ctx, s, kindOrchid, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(orchids))
	for _, o := range orchids {
		names[o.ID] = o.Name
	}

	result := make([]BestSeller, 0, len(ranked))
	for i, z := range ranked {
		id, err := strconv.ParseInt(ids[i], 10, 64)
		if err != nil {
			continue
		}
		var revenue int64
		if raw, ok := revenues[i].(string); ok {
			revenue, _ = strconv.ParseInt(raw, 10, 64)
		}
		result = append(result, BestSeller{
			OrchidID:   id,
			OrchidName: names[id],
			Quantity:   int64(z.Score),
			Revenue:    fromCents(revenue),
		})
	}
	return result, nil
}

// Statistics 주문 상태별 건수, 매출, 활성 엔티티 수
func (s *RedisStore) Statistics(ctx context.Context) (*Statistics, error) {
	pipe := s.client.Pipeline()
	statusCmd := pipe.HGetAll(ctx, s.reportKey("order-status"))
	revenueCmd := pipe.Get(ctx, s.reportKey("revenue"))
	ordersCmd := pipe.ZCard(ctx, s.indexKey(kindOrder))
	orchidsCmd := pipe.SCard(ctx, s.activeKey(kindOrchid))
	categoriesCmd := pipe.SCard(ctx, s.activeKey(kindCategory))
	accountsCmd := pipe.SCard(ctx, s.activeKey(kindAccount))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read statistics: %w", err)
	}

	byStatus := map[string]int64{
		string(domain.OrderStatusProcessing): 0,
		string(domain.OrderStatusCompleted):  0,
		string(domain.OrderStatusCancelled):  0,
	}
	for status, raw := range statusCmd.Val() {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		byStatus[status] = n
	}

	revenue, err := revenueCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read revenue: %w", err)
	}

	return &Statistics{
		OrdersByStatus:   byStatus,
		TotalOrders:      ordersCmd.Val(),
		CompletedRevenue: fromCents(revenue),
		ActiveOrchids:    orchidsCmd.Val(),
		ActiveCategories: categoriesCmd.Val(),
		ActiveAccounts:   accountsCmd.Val(),
	}, nil
}
