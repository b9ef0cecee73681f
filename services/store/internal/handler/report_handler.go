package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/query"
)

// ReportHandler 관리자 보고서 API
type ReportHandler struct {
	reports query.ReportQuery
}

// NewReportHandler 보고서 핸들러 생성
func NewReportHandler(reports query.ReportQuery) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// BestSellers GET /api/v1/admin/reports/best-sellers?limit=
func (h *ReportHandler) BestSellers(c echo.Context) error {
	var limit int
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return bindingError(err)
	}
	sellers, err := h.reports.BestSellers(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgOK, "", sellers)
}

// Statistics GET /api/v1/admin/reports/statistics
func (h *ReportHandler) Statistics(c echo.Context) error {
	stats, err := h.reports.Statistics(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgOK, "", stats)
}
