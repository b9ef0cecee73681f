package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
)

// ErrInvalidToken 서명/만료/발급자 검증 실패
var ErrInvalidToken = errors.New("invalid access token")

// Claims 액세스 토큰 클레임
type Claims struct {
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal 인증된 호출자
type Principal struct {
	AccountID int64
	Email     string
	Name      string
	Role      domain.Role
}

// IsAdmin 관리자 여부
func (p Principal) IsAdmin() bool {
	return p.Role == domain.RoleAdmin
}

// Actor 감사 컬럼에 기록되는 이름
func (p Principal) Actor() string {
	return p.Email
}

// Principal 클레임을 호출자 정보로 변환
func (c *Claims) Principal() (Principal, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, c.Subject)
	}
	return Principal{AccountID: id, Email: c.Email, Name: c.Name, Role: c.Role}, nil
}

// TokenIssuer 액세스 토큰 발급/검증
type TokenIssuer interface {
	Issue(account *domain.Account, now time.Time) (string, error)
	Parse(token string) (*Claims, error)
	TTL() time.Duration
}

type jwtIssuer struct {
	issuer string
	key    []byte
	ttl    time.Duration
}

// NewTokenIssuer HS256 토큰 발급자 생성
func NewTokenIssuer(issuer, signingKey string, ttl time.Duration) TokenIssuer {
	return &jwtIssuer{issuer: issuer, key: []byte(signingKey), ttl: ttl}
}

func (i *jwtIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue 계정 정보로 액세스 토큰 발급
func (i *jwtIssuer) Issue(account *domain.Account, now time.Time) (string, error) {
	claims := &Claims{
		Email: account.Email,
		Name:  account.Name,
		Role:  account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Subject:   strconv.FormatInt(account.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Parse 토큰 검증 후 클레임 반환
func (i *jwtIssuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
