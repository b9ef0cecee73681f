package domain

import (
	"net/mail"
	"strings"
)

// Role 계정 권한
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleCustomer Role = "Customer"
)

// MinPasswordLength 비밀번호 최소 길이
const MinPasswordLength = 8

// Account 계정 도메인 모델
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	Role         Role
	Audit
}

// NormalizeEmail 이메일 정규화 (공백 제거 + 소문자)
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail 이메일 형식 검증
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// IsAdmin 관리자 여부
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}
