package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/gateway/momo"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/service"
)

// PaymentHandler MoMo 콜백 API
type PaymentHandler struct {
	payments service.PaymentService
	logger   *zap.Logger
}

// NewPaymentHandler 결제 핸들러 생성
func NewPaymentHandler(payments service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

func callbackView(result *service.CallbackResult) map[string]interface{} {
	view := map[string]interface{}{
		"orderId":   result.OrderID,
		"status":    result.Status,
		"duplicate": result.Duplicate,
		"retry":     result.Retry,
	}
	if result.Retry {
		view["payUrl"] = result.PayURL
		view["qrCodeUrl"] = result.QRCodeURL
		view["deeplink"] = result.Deeplink
	}
	return view
}

func (h *PaymentHandler) handle(c echo.Context, cb momo.Callback, source string) error {
	h.logger.Info("payment callback received",
		zap.String("source", source),
		zap.String("gatewayOrderId", cb.OrderID),
		zap.Int64("transId", cb.TransID),
		zap.Int("resultCode", cb.ResultCode))

	result, err := h.payments.HandleCallback(c.Request().Context(), cb)
	if err != nil {
		return err
	}

	switch {
	case result.Retry:
		return respond(c, http.StatusOK, MsgPaymentRetry, "payment failed, a new payment link was issued", callbackView(result))
	case result.Duplicate:
		return respond(c, http.StatusOK, MsgPaymentDup, "payment callback already processed", callbackView(result))
	default:
		return respond(c, http.StatusOK, MsgPaymentComplete, "payment completed", callbackView(result))
	}
}

// IPN POST /api/v1/payments/momo/ipn
func (h *PaymentHandler) IPN(c echo.Context) error {
	var cb momo.Callback
	if err := bindBody(c, &cb); err != nil {
		return err
	}
	return h.handle(c, cb, "ipn")
}

// Return GET /api/v1/payments/momo/return
func (h *PaymentHandler) Return(c echo.Context) error {
	var cb momo.Callback
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &cb); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeValidation, "malformed callback parameters", err)
	}
	return h.handle(c, cb, "redirect")
}
