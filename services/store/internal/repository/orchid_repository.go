package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
)

// OrchidRepository 난초 레포지토리 인터페이스
type OrchidRepository interface {
	WithTx(tx *sql.Tx) OrchidRepository
	Create(ctx context.Context, orchid *domain.Orchid) error
	Update(ctx context.Context, orchid *domain.Orchid) error
	FindByID(ctx context.Context, id int64) (*domain.Orchid, error)
	// FindForOrder 주문 트랜잭션 동안 가격이 바뀌지 않도록 FOR SHARE 잠금
	FindForOrder(ctx context.Context, id int64) (*domain.Orchid, error)
	ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error)
	CountActiveByCategory(ctx context.Context, categoryID int64) (int, error)
}

type orchidRepository struct {
	db DBTX
}

// NewOrchidRepository 난초 레포지토리 생성
func NewOrchidRepository(db DBTX) OrchidRepository {
	return &orchidRepository{db: db}
}

func (r *orchidRepository) WithTx(tx *sql.Tx) OrchidRepository {
	return &orchidRepository{db: tx}
}

const orchidSelect = `
	SELECT o.id, o.name, o.description, o.image_url, o.price, o.is_natural, o.category_id,
	       c.name, o.is_active, o.created_at, o.created_by, o.updated_at, o.updated_by
	FROM orchids o
	JOIN categories c ON c.id = o.category_id
	WHERE o.id = $1
`

// Create 난초 생성
func (r *orchidRepository) Create(ctx context.Context, orchid *domain.Orchid) error {
	query := `
		INSERT INTO orchids (name, description, image_url, price, is_natural, category_id,
		                     is_active, created_at, created_by, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		orchid.Name,
		orchid.Description,
		orchid.ImageURL,
		orchid.Price,
		orchid.IsNatural,
		orchid.CategoryID,
		orchid.IsActive,
		orchid.CreatedAt,
		orchid.CreatedBy,
		orchid.UpdatedAt,
		orchid.UpdatedBy,
	).Scan(&orchid.ID)
	if err != nil {
		return fmt.Errorf("failed to create orchid: %w", err)
	}

	return nil
}

// Update 난초 수정 (soft delete 포함)
func (r *orchidRepository) Update(ctx context.Context, orchid *domain.Orchid) error {
	query := `
		UPDATE orchids
		SET name = $1, description = $2, image_url = $3, price = $4, is_natural = $5,
		    category_id = $6, is_active = $7, updated_at = $8, updated_by = $9
		WHERE id = $10
	`

	result, err := r.db.ExecContext(ctx, query,
		orchid.Name,
		orchid.Description,
		orchid.ImageURL,
		orchid.Price,
		orchid.IsNatural,
		orchid.CategoryID,
		orchid.IsActive,
		orchid.UpdatedAt,
		orchid.UpdatedBy,
		orchid.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update orchid: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// FindByID ID로 난초 조회
func (r *orchidRepository) FindByID(ctx context.Context, id int64) (*domain.Orchid, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, orchidSelect, id))
}

// FindForOrder 주문용 난초 조회
func (r *orchidRepository) FindForOrder(ctx context.Context, id int64) (*domain.Orchid, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, orchidSelect+` FOR SHARE OF o`, id))
}

func (r *orchidRepository) scanOne(row *sql.Row) (*domain.Orchid, error) {
	orchid := &domain.Orchid{}
	err := row.Scan(
		&orchid.ID,
		&orchid.Name,
		&orchid.Description,
		&orchid.ImageURL,
		&orchid.Price,
		&orchid.IsNatural,
		&orchid.CategoryID,
		&orchid.CategoryName,
		&orchid.IsActive,
		&orchid.CreatedAt,
		&orchid.CreatedBy,
		&orchid.UpdatedAt,
		&orchid.UpdatedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find orchid: %w", err)
	}
	return orchid, nil
}

// ExistsByName 활성 난초 중 같은 이름 존재 여부 (excludeID 제외)
func (r *orchidRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM orchids
			WHERE LOWER(name) = LOWER($1) AND is_active AND id <> $2
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, name, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check orchid name: %w", err)
	}
	return exists, nil
}

// CountActiveByCategory 카테고리에 속한 활성 난초 수
func (r *orchidRepository) CountActiveByCategory(ctx context.Context, categoryID int64) (int, error) {
	query := `SELECT COUNT(*) FROM orchids WHERE category_id = $1 AND is_active`

	var count int
	if err := r.db.QueryRowContext(ctx, query, categoryID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count orchids: %w", err)
	}
	return count, nil
}
