package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/query"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/service"
)

// OrderHandler 주문 API
type OrderHandler struct {
	orders  service.OrderService
	queries query.OrderQuery
}

// NewOrderHandler 주문 핸들러 생성
func NewOrderHandler(orders service.OrderService, queries query.OrderQuery) *OrderHandler {
	return &OrderHandler{orders: orders, queries: queries}
}

type placeOrderRequest struct {
	Items []struct {
		OrchidID int64 `json:"orchidId"`
		Quantity int   `json:"quantity"`
	} `json:"items"`
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

// PlaceOrder POST /api/v1/orders
func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req placeOrderRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	lines := make([]domain.CartLine, len(req.Items))
	for i, item := range req.Items {
		lines[i] = domain.CartLine{OrchidID: item.OrchidID, Quantity: item.Quantity}
	}

	result, err := h.orders.PlaceOrder(c.Request().Context(), service.PlaceOrderCommand{
		AccountID: principal.AccountID,
		Lines:     lines,
	})
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, MsgOrderPlaced, "order placed, continue to payment", map[string]interface{}{
		"orderId":   result.OrderID,
		"status":    result.Status,
		"total":     result.Total,
		"payUrl":    result.PayURL,
		"qrCodeUrl": result.QRCodeURL,
		"deeplink":  result.Deeplink,
	})
}

func listFilter(c echo.Context) (query.OrderFilter, error) {
	var filter query.OrderFilter
	err := echo.QueryParamsBinder(c).
		String("status", &filter.Status).
		Int("page", &filter.Page).
		Int("pageSize", &filter.PageSize).
		BindError()
	if err != nil {
		return filter, bindingError(err)
	}
	return filter, nil
}

// ListMine GET /api/v1/orders
func (h *OrderHandler) ListMine(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	filter, err := listFilter(c)
	if err != nil {
		return err
	}
	filter.AccountID = principal.AccountID

	page, err := h.queries.ListOrders(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgOK, "", page)
}

// Get GET /api/v1/orders/:id
func (h *OrderHandler) Get(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	order, err := h.queries.GetOrder(c.Request().Context(), id, principal.AccountID, principal.IsAdmin())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgOK, "", order)
}

// Cancel POST /api/v1/orders/:id/cancel
func (h *OrderHandler) Cancel(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}

	order, err := h.orders.CancelOrder(c.Request().Context(), service.CancelOrderCommand{
		OrderID:   id,
		AccountID: principal.AccountID,
		IsAdmin:   principal.IsAdmin(),
		Actor:     principal.Actor(),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgUpdated, "order cancelled", orderView(order))
}

// AdminList GET /api/v1/admin/orders (?accountId=&status=)
func (h *OrderHandler) AdminList(c echo.Context) error {
	filter, err := listFilter(c)
	if err != nil {
		return err
	}
	if err := echo.QueryParamsBinder(c).Int64("accountId", &filter.AccountID).BindError(); err != nil {
		return bindingError(err)
	}

	page, err := h.queries.ListOrders(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgOK, "", page)
}

// AdminChangeStatus PUT /api/v1/admin/orders/:id/status
func (h *OrderHandler) AdminChangeStatus(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req changeStatusRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	order, err := h.orders.ChangeStatus(c.Request().Context(), service.ChangeStatusCommand{
		OrderID: id,
		Status:  req.Status,
		Actor:   principal.Actor(),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgUpdated, "order status changed", orderView(order))
}
