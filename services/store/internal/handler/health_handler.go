package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/health"
)

// HealthHandler GET /health
type HealthHandler struct {
	checker *health.Checker
}

// NewHealthHandler 헬스 핸들러 생성
func NewHealthHandler(checker *health.Checker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

func (h *HealthHandler) Health(c echo.Context) error {
	report := h.checker.Check(c.Request().Context())
	if !report.Healthy() {
		return c.JSON(http.StatusServiceUnavailable, report)
	}
	return c.JSON(http.StatusOK, report)
}
