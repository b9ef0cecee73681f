package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/repository"
)

const (
	GrantTypePassword     = "password"
	GrantTypeRefreshToken = "refresh_token"
)

// OAuth2 오류 코드 (RFC 6749 5.2)
const (
	OAuthInvalidRequest       = "invalid_request"
	OAuthInvalidClient        = "invalid_client"
	OAuthInvalidGrant         = "invalid_grant"
	OAuthUnsupportedGrantType = "unsupported_grant_type"
	OAuthServerError          = "server_error"
)

// OAuthError 토큰 엔드포인트 오류
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *OAuthError) Error() string {
	return e.Code + ": " + e.Description
}

// TokenRequest /connect/token 폼 파라미터
type TokenRequest struct {
	GrantType    string `form:"grant_type"`
	Username     string `form:"username"`
	Password     string `form:"password"`
	RefreshToken string `form:"refresh_token"`
	ClientID     string `form:"client_id"`
	ClientSecret string `form:"client_secret"`
	Scope        string `form:"scope"`
}

// TokenResponse 토큰 응답
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// Service 토큰 발급 서비스 인터페이스
type Service interface {
	Token(ctx context.Context, req TokenRequest) (*TokenResponse, error)
}

type service struct {
	clientID     string
	clientSecret string
	accountRepo  repository.AccountRepository
	issuer       TokenIssuer
	refresh      RefreshStore
	logger       *zap.Logger
	now          func() time.Time
}

// NewService 토큰 발급 서비스 생성
func NewService(
	clientID, clientSecret string,
	accountRepo repository.AccountRepository,
	issuer TokenIssuer,
	refresh RefreshStore,
	logger *zap.Logger,
) Service {
	return &service{
		clientID:     clientID,
		clientSecret: clientSecret,
		accountRepo:  accountRepo,
		issuer:       issuer,
		refresh:      refresh,
		logger:       logger,
		now:          time.Now,
	}
}

// Token grant_type 별 토큰 발급
func (s *service) Token(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	if !s.validClient(req.ClientID, req.ClientSecret) {
		return nil, &OAuthError{Code: OAuthInvalidClient, Description: "client authentication failed"}
	}

	var (
		account *domain.Account
		err     error
	)
	switch req.GrantType {
	case GrantTypePassword:
		account, err = s.passwordGrant(ctx, req.Username, req.Password)
	case GrantTypeRefreshToken:
		account, err = s.refreshGrant(ctx, req.RefreshToken)
	case "":
		return nil, &OAuthError{Code: OAuthInvalidRequest, Description: "grant_type is required"}
	default:
		return nil, &OAuthError{Code: OAuthUnsupportedGrantType, Description: "grant_type " + req.GrantType + " is not supported"}
	}
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, account)
}

func (s *service) validClient(id, secret string) bool {
	idOK := subtle.ConstantTimeCompare([]byte(id), []byte(s.clientID)) == 1
	secretOK := subtle.ConstantTimeCompare([]byte(secret), []byte(s.clientSecret)) == 1
	return idOK && secretOK
}

func (s *service) passwordGrant(ctx context.Context, username, password string) (*domain.Account, error) {
	if username == "" || password == "" {
		return nil, &OAuthError{Code: OAuthInvalidRequest, Description: "username and password are required"}
	}

	account, err := s.accountRepo.FindByEmail(ctx, domain.NormalizeEmail(username))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &OAuthError{Code: OAuthInvalidGrant, Description: "invalid username or password"}
	}
	if err != nil {
		s.logger.Error("Failed to load account for password grant", zap.Error(err))
		return nil, &OAuthError{Code: OAuthServerError, Description: "temporarily unavailable"}
	}

	if !account.IsActive || !CheckPassword(account.PasswordHash, password) {
		return nil, &OAuthError{Code: OAuthInvalidGrant, Description: "invalid username or password"}
	}
	return account, nil
}

func (s *service) refreshGrant(ctx context.Context, token string) (*domain.Account, error) {
	if token == "" {
		return nil, &OAuthError{Code: OAuthInvalidRequest, Description: "refresh_token is required"}
	}

	accountID, err := s.refresh.Consume(ctx, token)
	if errors.Is(err, ErrInvalidRefreshToken) {
		return nil, &OAuthError{Code: OAuthInvalidGrant, Description: "refresh token is invalid or expired"}
	}
	if err != nil {
		s.logger.Error("Failed to consume refresh token", zap.Error(err))
		return nil, &OAuthError{Code: OAuthServerError, Description: "temporarily unavailable"}
	}

	account, err := s.accountRepo.FindByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !account.IsActive) {
		return nil, &OAuthError{Code: OAuthInvalidGrant, Description: "account is no longer active"}
	}
	if err != nil {
		s.logger.Error("Failed to load account for refresh grant", zap.Int64("accountId", accountID), zap.Error(err))
		return nil, &OAuthError{Code: OAuthServerError, Description: "temporarily unavailable"}
	}
	return account, nil
}

func (s *service) issue(ctx context.Context, account *domain.Account) (*TokenResponse, error) {
	access, err := s.issuer.Issue(account, s.now())
	if err != nil {
		s.logger.Error("Failed to issue access token", zap.Int64("accountId", account.ID), zap.Error(err))
		return nil, &OAuthError{Code: OAuthServerError, Description: "temporarily unavailable"}
	}

	refresh, err := s.refresh.Issue(ctx, account.ID)
	if err != nil {
		s.logger.Error("Failed to issue refresh token", zap.Int64("accountId", account.ID), zap.Error(err))
		return nil, &OAuthError{Code: OAuthServerError, Description: "temporarily unavailable"}
	}

	s.logger.Info("Token issued", zap.Int64("accountId", account.ID), zap.String("role", string(account.Role)))

	return &TokenResponse{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.issuer.TTL().Seconds()),
		RefreshToken: refresh,
	}, nil
}
