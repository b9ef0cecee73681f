package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
)

// AccountRepository 계정 레포지토리 인터페이스
type AccountRepository interface {
	WithTx(tx *sql.Tx) AccountRepository
	Create(ctx context.Context, account *domain.Account) error
	FindByID(ctx context.Context, id int64) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type accountRepository struct {
	db DBTX
}

// NewAccountRepository 계정 레포지토리 생성
func NewAccountRepository(db DBTX) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) WithTx(tx *sql.Tx) AccountRepository {
	return &accountRepository{db: tx}
}

const accountColumns = `id, email, password_hash, name, role, is_active, created_at, created_by, updated_at, updated_by`

// Create 계정 생성
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (email, password_hash, name, role, is_active, created_at, created_by, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		account.Email,
		account.PasswordHash,
		account.Name,
		account.Role,
		account.IsActive,
		account.CreatedAt,
		account.CreatedBy,
		account.UpdatedAt,
		account.UpdatedBy,
	).Scan(&account.ID)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// FindByID ID로 계정 조회
func (r *accountRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByEmail 이메일로 계정 조회 (대소문자 무시)
func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *accountRepository) scanOne(row *sql.Row) (*domain.Account, error) {
	account := &domain.Account{}
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.Name,
		&account.Role,
		&account.IsActive,
		&account.CreatedAt,
		&account.CreatedBy,
		&account.UpdatedAt,
		&account.UpdatedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return account, nil
}
