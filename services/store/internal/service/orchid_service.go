package service

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/events"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/repository"
)

// OrchidCommand 난초 생성/수정 커맨드. ID 는 수정 시에만 사용.
type OrchidCommand struct {
	ID          int64
	Name        string
	Description string
	ImageURL    string
	Price       decimal.Decimal
	IsNatural   bool
	CategoryID  int64
	Actor       string
}

// OrchidService 난초 서비스 인터페이스
type OrchidService interface {
	Create(ctx context.Context, cmd OrchidCommand) (*domain.Orchid, error)
	Update(ctx context.Context, cmd OrchidCommand) (*domain.Orchid, error)
	Delete(ctx context.Context, id int64, actor string) error
}

type orchidService struct {
	db           *sql.DB
	orchidRepo   repository.OrchidRepository
	categoryRepo repository.CategoryRepository
	outboxRepo   repository.OutboxRepository
	logger       *zap.Logger
	now          func() time.Time
}

// NewOrchidService 난초 서비스 생성
func NewOrchidService(
	db *sql.DB,
	orchidRepo repository.OrchidRepository,
	categoryRepo repository.CategoryRepository,
	outboxRepo repository.OutboxRepository,
	logger *zap.Logger,
) OrchidService {
	return &orchidService{
		db:           db,
		orchidRepo:   orchidRepo,
		categoryRepo: categoryRepo,
		outboxRepo:   outboxRepo,
		logger:       logger,
		now:          time.Now,
	}
}

func validateOrchid(cmd *OrchidCommand) error {
	cmd.Name = domain.NormalizeName(cmd.Name)
	cmd.Description = strings.TrimSpace(cmd.Description)
	cmd.ImageURL = strings.TrimSpace(cmd.ImageURL)

	var details []errors.FieldError
	if cmd.Name == "" {
		details = append(details, errors.FieldError{Field: "name", Message: "name is required"})
	} else if len(cmd.Name) > maxNameLength {
		details = append(details, errors.FieldError{Field: "name", Message: "name must be at most 200 characters"})
	}
	if !cmd.Price.IsPositive() {
		details = append(details, errors.FieldError{Field: "price", Message: "price must be greater than zero"})
	} else if !cmd.Price.Equal(cmd.Price.Round(2)) {
		details = append(details, errors.FieldError{Field: "price", Message: "price supports at most 2 decimal places"})
	}
	if cmd.CategoryID <= 0 {
		details = append(details, errors.FieldError{Field: "categoryId", Message: "category is required"})
	}
	if len(details) > 0 {
		return errors.Validation(details...)
	}
	return nil
}

// Create 난초 생성
func (s *orchidService) Create(ctx context.Context, cmd OrchidCommand) (*domain.Orchid, error) {
	if err := validateOrchid(&cmd); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	orchids := s.orchidRepo.WithTx(tx)

	category, err := s.activeCategory(ctx, tx, cmd.CategoryID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, orchids, cmd.Name, 0); err != nil {
		return nil, err
	}

	now := s.now()
	orchid := &domain.Orchid{
		Name:         cmd.Name,
		Description:  cmd.Description,
		ImageURL:     cmd.ImageURL,
		Price:        cmd.Price,
		IsNatural:    cmd.IsNatural,
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Audit:        domain.NewAudit(cmd.Actor, now),
	}

	if err := orchids.Create(ctx, orchid); err != nil {
		if errors.IsUniqueViolation(err) {
			return nil, errors.Wrap(errors.ErrCodeDuplicate, "an orchid with this name already exists", err)
		}
		return nil, dbError("failed to create orchid", err)
	}

	if err := appendEvent(ctx, tx, s.outboxRepo, "orchid", orchid.ID,
		events.EventOrchidUpserted, orchidEvent(ctx, orchid, now), now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, dbError("failed to commit transaction", err)
	}

	s.logger.Info("Orchid created", zap.Int64("orchidId", orchid.ID), zap.String("actor", cmd.Actor))
	return orchid, nil
}

// Update 난초 수정. 기존 주문의 가격/합계에는 영향 없음.
func (s *orchidService) Update(ctx context.Context, cmd OrchidCommand) (*domain.Orchid, error) {
	if err := validateOrchid(&cmd); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	orchids := s.orchidRepo.WithTx(tx)

	orchid, err := s.activeOrchid(ctx, orchids, cmd.ID)
	if err != nil {
		return nil, err
	}
	category, err := s.activeCategory(ctx, tx, cmd.CategoryID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, orchids, cmd.Name, cmd.ID); err != nil {
		return nil, err
	}

	now := s.now()
	orchid.Name = cmd.Name
	orchid.Description = cmd.Description
	orchid.ImageURL = cmd.ImageURL
	orchid.Price = cmd.Price
	orchid.IsNatural = cmd.IsNatural
	orchid.CategoryID = category.ID
	orchid.CategoryName = category.Name
	orchid.Touch(cmd.Actor, now)

	if err := orchids.Update(ctx, orchid); err != nil {
		if errors.IsUniqueViolation(err) {
			return nil, errors.Wrap(errors.ErrCodeDuplicate, "an orchid with this name already exists", err)
		}
		return nil, dbError("failed to update orchid", err)
	}

	if err := appendEvent(ctx, tx, s.outboxRepo, "orchid", orchid.ID,
		events.EventOrchidUpserted, orchidEvent(ctx, orchid, now), now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, dbError("failed to commit transaction", err)
	}

	s.logger.Info("Orchid updated", zap.Int64("orchidId", orchid.ID), zap.String("actor", cmd.Actor))
	return orchid, nil
}

// Delete soft delete
func (s *orchidService) Delete(ctx context.Context, id int64, actor string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	orchids := s.orchidRepo.WithTx(tx)

	orchid, err := s.activeOrchid(ctx, orchids, id)
	if err != nil {
		return err
	}

	now := s.now()
	orchid.Deactivate(actor, now)
	if err := orchids.Update(ctx, orchid); err != nil {
		return dbError("failed to delete orchid", err)
	}

	if err := appendEvent(ctx, tx, s.outboxRepo, "orchid", orchid.ID,
		events.EventOrchidUpserted, orchidEvent(ctx, orchid, now), now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return dbError("failed to commit transaction", err)
	}

	s.logger.Info("Orchid deleted", zap.Int64("orchidId", id), zap.String("actor", actor))
	return nil
}

func (s *orchidService) ensureUniqueName(ctx context.Context, orchids repository.OrchidRepository, name string, excludeID int64) error {
	exists, err := orchids.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return dbError("failed to check orchid name", err)
	}
	if exists {
		return errors.New(errors.ErrCodeDuplicate, "an orchid with this name already exists")
	}
	return nil
}

func (s *orchidService) activeOrchid(ctx context.Context, orchids repository.OrchidRepository, id int64) (*domain.Orchid, error) {
	orchid, err := orchids.FindByID(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) || (err == nil && !orchid.IsActive) {
		return nil, errors.New(errors.ErrCodeOrchidNotFound, "orchid not found")
	}
	if err != nil {
		return nil, dbError("failed to load orchid", err)
	}
	return orchid, nil
}

func (s *orchidService) activeCategory(ctx context.Context, tx *sql.Tx, id int64) (*domain.Category, error) {
	category, err := s.categoryRepo.WithTx(tx).FindByID(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) || (err == nil && !category.IsActive) {
		return nil, errors.Validation(errors.FieldError{Field: "categoryId", Message: "category does not exist"})
	}
	if err != nil {
		return nil, dbError("failed to load category", err)
	}
	return category, nil
}
