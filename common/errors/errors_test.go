package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestDomainError(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(ErrCodeDatabaseError, "failed to insert", cause)

	assert.Equal(t, "[DATABASE_ERROR] failed to insert: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[ORDER_NOT_FOUND] order not found", New(ErrCodeOrderNotFound, "order not found").Error())
}

func TestIsByCode(t *testing.T) {
	err := fmt.Errorf("service: %w", New(ErrCodeDuplicate, "name already exists"))

	assert.ErrorIs(t, err, Code(ErrCodeDuplicate))
	assert.NotErrorIs(t, err, Code(ErrCodeConflict))
	assert.Equal(t, ErrCodeDuplicate, CodeOf(err))
	assert.Equal(t, ErrorCode(""), CodeOf(stderrors.New("plain")))
}

func TestRetryableAndBusiness(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeTimeoutError, "")))
	assert.True(t, IsRetryable(New(ErrCodeConcurrency, "")))
	assert.False(t, IsRetryable(New(ErrCodeInvalidOrder, "")))

	assert.True(t, IsBusinessError(New(ErrCodeInvalidOrder, "")))
	assert.True(t, IsBusinessError(New(ErrCodeOrderAlreadyFinalized, "")))
	assert.False(t, IsBusinessError(New(ErrCodePaymentGateway, "")))
	assert.False(t, IsBusinessError(stderrors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeValidation:            http.StatusBadRequest,
		ErrCodeUnauthorized:          http.StatusUnauthorized,
		ErrCodeForbidden:             http.StatusForbidden,
		ErrCodeOrchidNotFound:        http.StatusNotFound,
		ErrCodeDuplicate:             http.StatusConflict,
		ErrCodeOrderAlreadyFinalized: http.StatusConflict,
		ErrCodePaymentGateway:        http.StatusBadGateway,
		ErrCodeDatabaseUnavailable:   http.StatusServiceUnavailable,
		ErrCodeTimeoutError:          http.StatusGatewayTimeout,
		ErrCodeUnknownError:          http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), code)
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"domain error passes through", New(ErrCodeOrderNotFound, "x"), ErrCodeOrderNotFound},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), ErrCodeTimeoutError},
		{"unique violation", &pq.Error{Code: "23505"}, ErrCodeDuplicate},
		{"serialization failure", &pq.Error{Code: "40001"}, ErrCodeConcurrency},
		{"query canceled", &pq.Error{Code: "57014"}, ErrCodeTimeoutError},
		{"connection failure", fmt.Errorf("ping: %w", &pq.Error{Code: "08006"}), ErrCodeDatabaseUnavailable},
		{"other pq", &pq.Error{Code: "42P01"}, ErrCodeDatabaseError},
		{"unknown", stderrors.New("boom"), ErrCodeUnknownError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromError(tt.err).Code)
		})
	}

	assert.Nil(t, FromError(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
}
