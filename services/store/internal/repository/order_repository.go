package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
)

// OrderRepository 주문 레포지토리 인터페이스
type OrderRepository interface {
	WithTx(tx *sql.Tx) OrderRepository
	Create(ctx context.Context, order *domain.Order) error
	AddDetail(ctx context.Context, detail *domain.OrderDetail) error
	UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) error
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	// UpdateStatus 현재 상태가 from 일 때만 to 로 변경 (변경 여부 반환)
	UpdateStatus(ctx context.Context, id int64, from, to domain.OrderStatus, actor string, now time.Time) (bool, error)
}

type orderRepository struct {
	db DBTX
}

// NewOrderRepository 주문 레포지토리 생성
func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) WithTx(tx *sql.Tx) OrderRepository {
	return &orderRepository{db: tx}
}

// Create 주문 생성 (합계는 상세 입력 후 UpdateTotal 로 확정)
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (account_id, order_date, status, total, is_active, created_at, created_by, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		order.AccountID,
		order.OrderDate,
		order.Status,
		order.Total,
		order.IsActive,
		order.CreatedAt,
		order.CreatedBy,
		order.UpdatedAt,
		order.UpdatedBy,
	).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// AddDetail 주문 상세 생성
func (r *orderRepository) AddDetail(ctx context.Context, detail *domain.OrderDetail) error {
	query := `
		INSERT INTO order_details (order_id, orchid_id, price, quantity, is_active, created_at, created_by, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		detail.OrderID,
		detail.OrchidID,
		detail.Price,
		detail.Quantity,
		detail.IsActive,
		detail.CreatedAt,
		detail.CreatedBy,
		detail.UpdatedAt,
		detail.UpdatedBy,
	).Scan(&detail.ID)
	if err != nil {
		return fmt.Errorf("failed to create order detail: %w", err)
	}

	return nil
}

// UpdateTotal 주문 합계 확정
func (r *orderRepository) UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	query := `UPDATE orders SET total = $1 WHERE id = $2`

	if _, err := r.db.ExecContext(ctx, query, total, id); err != nil {
		return fmt.Errorf("failed to update order total: %w", err)
	}
	return nil
}

// FindByID ID로 주문 조회 (상세 포함)
func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `
		SELECT o.id, o.account_id, a.email, a.name, o.order_date, o.status, o.total,
		       o.is_active, o.created_at, o.created_by, o.updated_at, o.updated_by
		FROM orders o
		JOIN accounts a ON a.id = o.account_id
		WHERE o.id = $1
	`

	order := &domain.Order{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.AccountID,
		&order.AccountEmail,
		&order.AccountName,
		&order.OrderDate,
		&order.Status,
		&order.Total,
		&order.IsActive,
		&order.CreatedAt,
		&order.CreatedBy,
		&order.UpdatedAt,
		&order.UpdatedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	details, err := r.findDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Details = details

	return order, nil
}

func (r *orderRepository) findDetails(ctx context.Context, orderID int64) ([]domain.OrderDetail, error) {
	query := `
		SELECT d.id, d.order_id, d.orchid_id, o.name, d.price, d.quantity,
		       d.is_active, d.created_at, d.created_by, d.updated_at, d.updated_by
		FROM order_details d
		JOIN orchids o ON o.id = d.orchid_id
		WHERE d.order_id = $1
		ORDER BY d.id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to find order details: %w", err)
	}
	defer rows.Close()

	var details []domain.OrderDetail
	for rows.Next() {
		var d domain.OrderDetail
		if err := rows.Scan(
			&d.ID,
			&d.OrderID,
			&d.OrchidID,
			&d.OrchidName,
			&d.Price,
			&d.Quantity,
			&d.IsActive,
			&d.CreatedAt,
			&d.CreatedBy,
			&d.UpdatedAt,
			&d.UpdatedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order detail: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order details: %w", err)
	}

	return details, nil
}

// UpdateStatus 조건부 상태 변경 (Semantic Lock)
func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.OrderStatus, actor string, now time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2, updated_by = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.db.ExecContext(ctx, query, to, now, actor, id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected > 0, nil
}
