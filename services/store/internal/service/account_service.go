package service

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/events"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/auth"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/repository"
)

// RegisterCommand 회원 가입 커맨드
type RegisterCommand struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
	Actor    string
}

// AccountService 계정 서비스 인터페이스
type AccountService interface {
	Register(ctx context.Context, cmd RegisterCommand) (*domain.Account, error)
}

type accountService struct {
	db          *sql.DB
	accountRepo repository.AccountRepository
	outboxRepo  repository.OutboxRepository
	logger      *zap.Logger
	now         func() time.Time
}

// NewAccountService 계정 서비스 생성
func NewAccountService(
	db *sql.DB,
	accountRepo repository.AccountRepository,
	outboxRepo repository.OutboxRepository,
	logger *zap.Logger,
) AccountService {
	return &accountService{
		db:          db,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// Register 계정 생성. Role 이 비어 있으면 Customer.
func (s *accountService) Register(ctx context.Context, cmd RegisterCommand) (*domain.Account, error) {
	email := domain.NormalizeEmail(cmd.Email)
	name := strings.TrimSpace(cmd.Name)
	role := cmd.Role
	if role == "" {
		role = domain.RoleCustomer
	}

	var details []errors.FieldError
	if !domain.ValidEmail(email) {
		details = append(details, errors.FieldError{Field: "email", Message: "a valid email address is required"})
	}
	if len(cmd.Password) < domain.MinPasswordLength {
		details = append(details, errors.FieldError{Field: "password", Message: "password must be at least 8 characters"})
	}
	if name == "" {
		details = append(details, errors.FieldError{Field: "name", Message: "name is required"})
	}
	if role != domain.RoleCustomer && role != domain.RoleAdmin {
		details = append(details, errors.FieldError{Field: "role", Message: "unknown role"})
	}
	if len(details) > 0 {
		return nil, errors.Validation(details...)
	}

	_, err := s.accountRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, errors.New(errors.ErrCodeDuplicate, "an account with this email already exists")
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, dbError("failed to look up account", err)
	}

	hash, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnknownError, "failed to hash password", err)
	}

	actor := cmd.Actor
	if actor == "" {
		actor = email
	}
	now := s.now()
	account := &domain.Account{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		Audit:        domain.NewAudit(actor, now),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := s.accountRepo.WithTx(tx).Create(ctx, account); err != nil {
		if errors.IsUniqueViolation(err) {
			return nil, errors.Wrap(errors.ErrCodeDuplicate, "an account with this email already exists", err)
		}
		return nil, dbError("failed to create account", err)
	}

	if err := appendEvent(ctx, tx, s.outboxRepo, "account", account.ID,
		events.EventAccountUpserted, accountEvent(ctx, account, now), now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, dbError("failed to commit transaction", err)
	}

	s.logger.Info("Account registered",
		zap.Int64("accountId", account.ID),
		zap.String("role", string(account.Role)))

	return account, nil
}
