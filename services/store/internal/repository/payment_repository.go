package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
)

// ErrDuplicatePayment 같은 게이트웨이 주문 ID 로 이미 기록된 결제 시도
var ErrDuplicatePayment = errors.New("duplicate payment attempt")

// PaymentResult 게이트웨이 콜백으로 확정된 결제 결과
type PaymentResult struct {
	Status     domain.PaymentStatus
	ResultCode int
	TransID    int64
	Message    string
}

// PaymentRepository 결제 시도 레포지토리 인터페이스
type PaymentRepository interface {
	WithTx(tx *sql.Tx) PaymentRepository
	Create(ctx context.Context, attempt *domain.PaymentAttempt) error
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.PaymentAttempt, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]*domain.PaymentAttempt, error)
	// RecordResult 대기 중인 시도에만 결과를 기록 (기록 여부 반환)
	RecordResult(ctx context.Context, gatewayOrderID string, result PaymentResult, now time.Time) (bool, error)
}

type paymentRepository struct {
	db DBTX
}

// NewPaymentRepository 결제 시도 레포지토리 생성
func NewPaymentRepository(db DBTX) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) WithTx(tx *sql.Tx) PaymentRepository {
	return &paymentRepository{db: tx}
}

const paymentColumns = `id, order_id, request_id, gateway_order_id, amount, pay_url, qr_code_url, deeplink, status,
		       result_code, trans_id, message, created_at, updated_at`

// Create 결제 시도 생성
func (r *paymentRepository) Create(ctx context.Context, attempt *domain.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (order_id, request_id, gateway_order_id, amount, pay_url, qr_code_url, deeplink,
		                              status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		attempt.OrderID,
		attempt.RequestID,
		attempt.GatewayOrderID,
		attempt.Amount,
		attempt.PayURL,
		attempt.QRCodeURL,
		attempt.Deeplink,
		attempt.Status,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	).Scan(&attempt.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrDuplicatePayment, attempt.GatewayOrderID)
		}
		return fmt.Errorf("failed to create payment attempt: %w", err)
	}

	return nil
}

// FindByGatewayOrderID 게이트웨이 주문 ID 로 결제 시도 조회
func (r *paymentRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.PaymentAttempt, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_attempts WHERE gateway_order_id = $1`

	attempt, err := scanPayment(r.db.QueryRowContext(ctx, query, gatewayOrderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment attempt: %w", err)
	}
	return attempt, nil
}

// ListByOrderID 주문의 결제 시도 목록 (최신순)
func (r *paymentRepository) ListByOrderID(ctx context.Context, orderID int64) ([]*domain.PaymentAttempt, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_attempts WHERE order_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*domain.PaymentAttempt
	for rows.Next() {
		attempt, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

// RecordResult 결제 결과 기록
func (r *paymentRepository) RecordResult(ctx context.Context, gatewayOrderID string, result PaymentResult, now time.Time) (bool, error) {
	query := `
		UPDATE payment_attempts
		SET status = $1, result_code = $2, trans_id = $3, message = $4, updated_at = $5
		WHERE gateway_order_id = $6 AND status = $7
	`

	res, err := r.db.ExecContext(ctx, query,
		result.Status,
		result.ResultCode,
		result.TransID,
		result.Message,
		now,
		gatewayOrderID,
		domain.PaymentStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record payment result: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*domain.PaymentAttempt, error) {
	attempt := &domain.PaymentAttempt{}
	var (
		resultCode sql.NullInt32
		transID    sql.NullInt64
		message    sql.NullString
	)

	err := row.Scan(
		&attempt.ID,
		&attempt.OrderID,
		&attempt.RequestID,
		&attempt.GatewayOrderID,
		&attempt.Amount,
		&attempt.PayURL,
		&attempt.QRCodeURL,
		&attempt.Deeplink,
		&attempt.Status,
		&resultCode,
		&transID,
		&message,
		&attempt.CreatedAt,
		&attempt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if resultCode.Valid {
		code := int(resultCode.Int32)
		attempt.ResultCode = &code
	}
	if transID.Valid {
		attempt.TransID = &transID.Int64
	}
	attempt.Message = message.String
	return attempt, nil
}
