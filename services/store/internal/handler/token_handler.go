package handler

import (
	stderrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/auth"
)

// TokenHandler OAuth2 토큰 엔드포인트. 응답은 Envelope 가 아닌 RFC 6749 형식.
type TokenHandler struct {
	tokens auth.Service
	logger *zap.Logger
}

// NewTokenHandler 토큰 핸들러 생성
func NewTokenHandler(tokens auth.Service, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{tokens: tokens, logger: logger}
}

// Token POST /connect/token
func (h *TokenHandler) Token(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-store")
	c.Response().Header().Set("Pragma", "no-cache")

	var req auth.TokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, auth.OAuthError{Code: auth.OAuthInvalidRequest, Description: "malformed token request"})
	}

	resp, err := h.tokens.Token(c.Request().Context(), req)
	if err != nil {
		var oauthErr *auth.OAuthError
		if stderrors.As(err, &oauthErr) {
			status := http.StatusBadRequest
			if oauthErr.Code == auth.OAuthInvalidClient {
				status = http.StatusUnauthorized
			}
			return c.JSON(status, oauthErr)
		}

		h.logger.Error("token request failed", zap.String("grantType", req.GrantType), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, auth.OAuthError{Code: auth.OAuthServerError, Description: "token could not be issued"})
	}

	return c.JSON(http.StatusOK, resp)
}
