package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
)

// CategoryRepository 카테고리 레포지토리 인터페이스
type CategoryRepository interface {
	WithTx(tx *sql.Tx) CategoryRepository
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	FindByID(ctx context.Context, id int64) (*domain.Category, error)
	ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error)
	CountActiveChildren(ctx context.Context, id int64) (int, error)
}

type categoryRepository struct {
	db DBTX
}

// NewCategoryRepository 카테고리 레포지토리 생성
func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) WithTx(tx *sql.Tx) CategoryRepository {
	return &categoryRepository{db: tx}
}

// Create 카테고리 생성
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (name, parent_id, is_active, created_at, created_by, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		category.Name,
		nullableInt64(category.ParentID),
		category.IsActive,
		category.CreatedAt,
		category.CreatedBy,
		category.UpdatedAt,
		category.UpdatedBy,
	).Scan(&category.ID)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// Update 카테고리 수정 (soft delete 포함)
func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	query := `
		UPDATE categories
		SET name = $1, parent_id = $2, is_active = $3, updated_at = $4, updated_by = $5
		WHERE id = $6
	`

	result, err := r.db.ExecContext(ctx, query,
		category.Name,
		nullableInt64(category.ParentID),
		category.IsActive,
		category.UpdatedAt,
		category.UpdatedBy,
		category.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
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

// FindByID ID로 카테고리 조회 (부모 이름 포함)
func (r *categoryRepository) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `
		SELECT c.id, c.name, c.parent_id, COALESCE(p.name, ''), c.is_active,
		       c.created_at, c.created_by, c.updated_at, c.updated_by
		FROM categories c
		LEFT JOIN categories p ON p.id = c.parent_id
		WHERE c.id = $1
	`

	category := &domain.Category{}
	var parentID sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&parentID,
		&category.ParentName,
		&category.IsActive,
		&category.CreatedAt,
		&category.CreatedBy,
		&category.UpdatedAt,
		&category.UpdatedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}

	category.ParentID = int64Ptr(parentID)
	return category, nil
}

// ExistsByName 활성 카테고리 중 같은 이름 존재 여부 (excludeID 제외)
func (r *categoryRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM categories
			WHERE LOWER(name) = LOWER($1) AND is_active AND id <> $2
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, name, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check category name: %w", err)
	}
	return exists, nil
}

// CountActiveChildren 활성 하위 카테고리 수
func (r *categoryRepository) CountActiveChildren(ctx context.Context, id int64) (int, error) {
	query := `SELECT COUNT(*) FROM categories WHERE parent_id = $1 AND is_active`

	var count int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count child categories: %w", err)
	}
	return count, nil
}
