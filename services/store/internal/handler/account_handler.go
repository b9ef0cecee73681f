package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/query"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/service"
)

// AccountHandler 계정 API
type AccountHandler struct {
	accounts service.AccountService
	queries  query.AccountQuery
}

// NewAccountHandler 계정 핸들러 생성
func NewAccountHandler(accounts service.AccountService, queries query.AccountQuery) *AccountHandler {
	return &AccountHandler{accounts: accounts, queries: queries}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register POST /api/v1/accounts/register
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	account, err := h.accounts.Register(c.Request().Context(), service.RegisterCommand{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, MsgCreated, "account registered", accountView(account))
}

// Me GET /api/v1/accounts/me
func (h *AccountHandler) Me(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	account, err := h.queries.GetAccount(c.Request().Context(), principal.AccountID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgOK, "", account)
}

// List GET /api/v1/admin/accounts
func (h *AccountHandler) List(c echo.Context) error {
	var page, pageSize int
	if err := echo.QueryParamsBinder(c).Int("page", &page).Int("pageSize", &pageSize).BindError(); err != nil {
		return bindingError(err)
	}
	result, err := h.queries.ListAccounts(c.Request().Context(), page, pageSize)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgOK, "", result)
}
