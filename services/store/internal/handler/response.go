package handler

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
)

// Envelope 공통 응답 포맷
type Envelope struct {
	Success         bool                   `json:"success"`
	MessageID       string                 `json:"messageId"`
	Message         string                 `json:"message"`
	DetailErrorList []apperrors.FieldError `json:"detailErrorList"`
	Response        interface{}            `json:"response"`
}

// 성공 메시지 ID
const (
	MsgOK              = "OK"
	MsgCreated         = "CREATED"
	MsgUpdated         = "UPDATED"
	MsgDeleted         = "DELETED"
	MsgOrderPlaced     = "ORDER_PLACED"
	MsgPaymentComplete = "PAYMENT_COMPLETED"
	MsgPaymentRetry    = "PAYMENT_RETRY"
	MsgPaymentDup      = "PAYMENT_ALREADY_PROCESSED"
)

func respond(c echo.Context, status int, messageID, message string, data interface{}) error {
	return c.JSON(status, Envelope{
		Success:         true,
		MessageID:       messageID,
		Message:         message,
		DetailErrorList: []apperrors.FieldError{},
		Response:        data,
	})
}

// NewHTTPErrorHandler 모든 에러를 Envelope 로 변환.
// 5xx 는 원인을 로그로 남기고 응답에는 일반 메시지만 담는다.
func NewHTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		domainErr, status := classify(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("code", string(domainErr.Code)),
				zap.Error(err))
		}

		details := domainErr.Details
		if details == nil {
			details = []apperrors.FieldError{}
		}

		body := Envelope{
			Success:         false,
			MessageID:       string(domainErr.Code),
			Message:         domainErr.Message,
			DetailErrorList: details,
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error("failed to write error response", zap.Error(writeErr))
		}
	}
}

func classify(err error) (*apperrors.DomainError, int) {
	var httpErr *echo.HTTPError
	if stderrors.As(err, &httpErr) && apperrors.CodeOf(err) == "" {
		message := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok && m != "" {
			message = m
		}

		var code apperrors.ErrorCode
		switch httpErr.Code {
		case http.StatusBadRequest:
			code = apperrors.ErrCodeValidation
		case http.StatusUnauthorized:
			code = apperrors.ErrCodeUnauthorized
		case http.StatusForbidden:
			code = apperrors.ErrCodeForbidden
		case http.StatusNotFound:
			code = apperrors.ErrCodeNotFound
		default:
			code = apperrors.ErrorCode(strings.ToUpper(strings.ReplaceAll(http.StatusText(httpErr.Code), " ", "_")))
		}
		return apperrors.New(code, message), httpErr.Code
	}

	domainErr := apperrors.FromError(err)
	return domainErr, apperrors.HTTPStatus(domainErr.Code)
}
