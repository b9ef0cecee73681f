package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lib/pq"
)

// ErrorCode 에러 코드 정의
type ErrorCode string

const (
	// Business Errors
	ErrCodeValidation              ErrorCode = "VALIDATION_ERROR"
	ErrCodeUnauthorized            ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden               ErrorCode = "FORBIDDEN"
	ErrCodeNotFound                ErrorCode = "NOT_FOUND"
	ErrCodeAccountNotFound         ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrCodeCategoryNotFound        ErrorCode = "CATEGORY_NOT_FOUND"
	ErrCodeOrchidNotFound          ErrorCode = "ORCHID_NOT_FOUND"
	ErrCodeOrderNotFound           ErrorCode = "ORDER_NOT_FOUND"
	ErrCodeDuplicate               ErrorCode = "DUPLICATE"
	ErrCodeConflict                ErrorCode = "CONFLICT"
	ErrCodeInvalidOrder            ErrorCode = "INVALID_ORDER"
	ErrCodeOrderAlreadyFinalized   ErrorCode = "ORDER_ALREADY_FINALIZED"
	ErrCodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeInvalidSignature        ErrorCode = "INVALID_SIGNATURE"
	ErrCodePaymentAmountMismatch   ErrorCode = "PAYMENT_AMOUNT_MISMATCH"
	ErrCodeDuplicateRequest        ErrorCode = "DUPLICATE_REQUEST"

	// Technical Errors
	ErrCodePaymentGateway      ErrorCode = "PAYMENT_GATEWAY_ERROR"
	ErrCodeDatabaseError       ErrorCode = "DATABASE_ERROR"
	ErrCodeDatabaseUnavailable ErrorCode = "DATABASE_UNAVAILABLE"
	ErrCodeConcurrency         ErrorCode = "CONCURRENCY_CONFLICT"
	ErrCodeNetworkError        ErrorCode = "NETWORK_ERROR"
	ErrCodeTimeoutError        ErrorCode = "TIMEOUT_ERROR"
	ErrCodeSerializationError  ErrorCode = "SERIALIZATION_ERROR"
	ErrCodeUnknownError        ErrorCode = "UNKNOWN_ERROR"
)

// FieldError 필드 단위 검증 에러
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DomainError 도메인 에러 구조체
type DomainError struct {
	Code    ErrorCode
	Message string
	Details []FieldError
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is 같은 코드의 DomainError 이면 true
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// New 새로운 도메인 에러 생성
func New(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Wrap 기존 에러를 래핑한 도메인 에러 생성
func Wrap(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Validation 필드 에러 목록을 가진 검증 에러 생성
func Validation(details ...FieldError) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: "request validation failed",
		Details: details,
	}
}

// Code errors.Is 비교용 센티널
func Code(code ErrorCode) *DomainError {
	return &DomainError{Code: code}
}

// CodeOf 에러 체인에서 도메인 에러 코드 추출
func CodeOf(err error) ErrorCode {
	var domainErr *DomainError
	if stderrors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsRetryable 재시도 가능한 에러인지 판단
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case ErrCodeDatabaseError, ErrCodeDatabaseUnavailable, ErrCodeNetworkError,
		ErrCodeTimeoutError, ErrCodeConcurrency:
		return true
	}
	return false
}

// IsBusinessError 비즈니스 에러인지 판단 (재시도 불필요)
func IsBusinessError(err error) bool {
	code := CodeOf(err)
	if code == "" {
		return false
	}
	return !IsRetryable(err) && code != ErrCodeUnknownError &&
		code != ErrCodeSerializationError && code != ErrCodePaymentGateway
}

// HTTPStatus 에러 코드에 대응하는 HTTP 상태 코드
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidOrder, ErrCodeInvalidSignature, ErrCodePaymentAmountMismatch:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound, ErrCodeAccountNotFound, ErrCodeCategoryNotFound,
		ErrCodeOrchidNotFound, ErrCodeOrderNotFound:
		return http.StatusNotFound
	case ErrCodeDuplicate, ErrCodeConflict, ErrCodeOrderAlreadyFinalized,
		ErrCodeInvalidStatusTransition, ErrCodeConcurrency, ErrCodeDuplicateRequest:
		return http.StatusConflict
	case ErrCodePaymentGateway:
		return http.StatusBadGateway
	case ErrCodeDatabaseUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeTimeoutError:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// FromError 임의의 에러를 도메인 에러로 변환 (catch-all 매핑)
func FromError(err error) *DomainError {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if stderrors.As(err, &domainErr) {
		return domainErr
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return Wrap(ErrCodeTimeoutError, "the operation timed out", err)
	}
	if stderrors.Is(err, context.Canceled) {
		return Wrap(ErrCodeTimeoutError, "the request was canceled", err)
	}

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return fromPQ(pqErr)
	}

	return Wrap(ErrCodeUnknownError, "an unexpected error occurred", err)
}

func fromPQ(pqErr *pq.Error) *DomainError {
	code := string(pqErr.Code)
	switch {
	case code == "23505":
		return Wrap(ErrCodeDuplicate, "a record with the same key already exists", pqErr)
	case code == "23503":
		return Wrap(ErrCodeConflict, "the record references missing data", pqErr)
	case code == "40001", code == "40P01":
		return Wrap(ErrCodeConcurrency, "the record was modified concurrently", pqErr)
	case code == "57014":
		return Wrap(ErrCodeTimeoutError, "the database query timed out", pqErr)
	case strings.HasPrefix(code, "08"), code == "57P01", code == "53300":
		return Wrap(ErrCodeDatabaseUnavailable, "the database is unavailable", pqErr)
	default:
		return Wrap(ErrCodeDatabaseError, "a database error occurred", pqErr)
	}
}

// IsUniqueViolation PostgreSQL unique 제약 위반 여부
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == "23505"
}
