package service

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"go.uber.org/zap"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/events"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/repository"
)

const maxNameLength = 200

// CreateCategoryCommand 카테고리 생성 커맨드
type CreateCategoryCommand struct {
	Name     string
	ParentID *int64
	Actor    string
}

// UpdateCategoryCommand 카테고리 수정 커맨드
type UpdateCategoryCommand struct {
	ID       int64
	Name     string
	ParentID *int64
	Actor    string
}

// CategoryService 카테고리 서비스 인터페이스
type CategoryService interface {
	Create(ctx context.Context, cmd CreateCategoryCommand) (*domain.Category, error)
	Update(ctx context.Context, cmd UpdateCategoryCommand) (*domain.Category, error)
	Delete(ctx context.Context, id int64, actor string) error
}

type categoryService struct {
	db           *sql.DB
	categoryRepo repository.CategoryRepository
	orchidRepo   repository.OrchidRepository
	outboxRepo   repository.OutboxRepository
	logger       *zap.Logger
	now          func() time.Time
}

// NewCategoryService 카테고리 서비스 생성
func NewCategoryService(
	db *sql.DB,
	categoryRepo repository.CategoryRepository,
	orchidRepo repository.OrchidRepository,
	outboxRepo repository.OutboxRepository,
	logger *zap.Logger,
) CategoryService {
	return &categoryService{
		db:           db,
		categoryRepo: categoryRepo,
		orchidRepo:   orchidRepo,
		outboxRepo:   outboxRepo,
		logger:       logger,
		now:          time.Now,
	}
}

func validateName(name string) *errors.DomainError {
	if name == "" {
		return errors.Validation(errors.FieldError{Field: "name", Message: "name is required"})
	}
	if len(name) > maxNameLength {
		return errors.Validation(errors.FieldError{Field: "name", Message: "name must be at most 200 characters"})
	}
	return nil
}

// Create 카테고리 생성
func (s *categoryService) Create(ctx context.Context, cmd CreateCategoryCommand) (*domain.Category, error) {
	name := domain.NormalizeName(cmd.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	categories := s.categoryRepo.WithTx(tx)

	if err := s.ensureUniqueName(ctx, categories, name, 0); err != nil {
		return nil, err
	}

	now := s.now()
	category := &domain.Category{
		Name:     name,
		ParentID: cmd.ParentID,
		Audit:    domain.NewAudit(cmd.Actor, now),
	}
	if cmd.ParentID != nil {
		parent, err := s.activeParent(ctx, categories, *cmd.ParentID)
		if err != nil {
			return nil, err
		}
		category.ParentName = parent.Name
	}

	if err := categories.Create(ctx, category); err != nil {
		if errors.IsUniqueViolation(err) {
			return nil, errors.Wrap(errors.ErrCodeDuplicate, "a category with this name already exists", err)
		}
		return nil, dbError("failed to create category", err)
	}

	if err := appendEvent(ctx, tx, s.outboxRepo, "category", category.ID,
		events.EventCategoryUpserted, categoryEvent(ctx, category, now), now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, dbError("failed to commit transaction", err)
	}

	s.logger.Info("Category created", zap.Int64("categoryId", category.ID), zap.String("actor", cmd.Actor))
	return category, nil
}

// Update 카테고리 수정. 자기 자신이나 하위 카테고리를 부모로 지정할 수 없다.
func (s *categoryService) Update(ctx context.Context, cmd UpdateCategoryCommand) (*domain.Category, error) {
	name := domain.NormalizeName(cmd.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if cmd.ParentID != nil && *cmd.ParentID == cmd.ID {
		return nil, errors.Validation(errors.FieldError{Field: "parentId", Message: "a category cannot be its own parent"})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	categories := s.categoryRepo.WithTx(tx)

	category, err := s.activeCategory(ctx, categories, cmd.ID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureUniqueName(ctx, categories, name, cmd.ID); err != nil {
		return nil, err
	}

	category.ParentName = ""
	if cmd.ParentID != nil {
		parent, err := s.activeParent(ctx, categories, *cmd.ParentID)
		if err != nil {
			return nil, err
		}

		cycle, err := domain.CreatesCycle(cmd.ID, parent.ID, func(id int64) (*int64, bool, error) {
			c, err := categories.FindByID(ctx, id)
			if stderrors.Is(err, repository.ErrNotFound) {
				return nil, false, nil
			}
			if err != nil {
				return nil, false, err
			}
			return c.ParentID, true, nil
		})
		if err != nil {
			return nil, dbError("failed to walk category tree", err)
		}
		if cycle {
			return nil, errors.Validation(errors.FieldError{Field: "parentId", Message: "a category cannot be moved under its own descendant"})
		}
		category.ParentName = parent.Name
	}

	now := s.now()
	category.Name = name
	category.ParentID = cmd.ParentID
	category.Touch(cmd.Actor, now)

	if err := categories.Update(ctx, category); err != nil {
		if errors.IsUniqueViolation(err) {
			return nil, errors.Wrap(errors.ErrCodeDuplicate, "a category with this name already exists", err)
		}
		return nil, dbError("failed to update category", err)
	}

	if err := appendEvent(ctx, tx, s.outboxRepo, "category", category.ID,
		events.EventCategoryUpserted, categoryEvent(ctx, category, now), now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, dbError("failed to commit transaction", err)
	}

	s.logger.Info("Category updated", zap.Int64("categoryId", category.ID), zap.String("actor", cmd.Actor))
	return category, nil
}

// Delete soft delete. 활성 하위 카테고리나 난초가 있으면 거부.
func (s *categoryService) Delete(ctx context.Context, id int64, actor string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	categories := s.categoryRepo.WithTx(tx)

	category, err := s.activeCategory(ctx, categories, id)
	if err != nil {
		return err
	}

	children, err := categories.CountActiveChildren(ctx, id)
	if err != nil {
		return dbError("failed to count child categories", err)
	}
	if children > 0 {
		return errors.New(errors.ErrCodeConflict, "the category still has active sub-categories")
	}

	orchids, err := s.orchidRepo.WithTx(tx).CountActiveByCategory(ctx, id)
	if err != nil {
		return dbError("failed to count orchids", err)
	}
	if orchids > 0 {
		return errors.New(errors.ErrCodeConflict, "the category still has active orchids")
	}

	now := s.now()
	category.Deactivate(actor, now)
	if err := categories.Update(ctx, category); err != nil {
		return dbError("failed to delete category", err)
	}

	if err := appendEvent(ctx, tx, s.outboxRepo, "category", category.ID,
		events.EventCategoryUpserted, categoryEvent(ctx, category, now), now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return dbError("failed to commit transaction", err)
	}

	s.logger.Info("Category deleted", zap.Int64("categoryId", id), zap.String("actor", actor))
	return nil
}

func (s *categoryService) ensureUniqueName(ctx context.Context, categories repository.CategoryRepository, name string, excludeID int64) error {
	exists, err := categories.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return dbError("failed to check category name", err)
	}
	if exists {
		return errors.New(errors.ErrCodeDuplicate, "a category with this name already exists")
	}
	return nil
}

func (s *categoryService) activeCategory(ctx context.Context, categories repository.CategoryRepository, id int64) (*domain.Category, error) {
	category, err := categories.FindByID(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) || (err == nil && !category.IsActive) {
		return nil, errors.New(errors.ErrCodeCategoryNotFound, "category not found")
	}
	if err != nil {
		return nil, dbError("failed to load category", err)
	}
	return category, nil
}

func (s *categoryService) activeParent(ctx context.Context, categories repository.CategoryRepository, id int64) (*domain.Category, error) {
	parent, err := categories.FindByID(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) || (err == nil && !parent.IsActive) {
		return nil, errors.Validation(errors.FieldError{Field: "parentId", Message: "parent category does not exist"})
	}
	if err != nil {
		return nil, dbError("failed to load parent category", err)
	}
	return parent, nil
}
