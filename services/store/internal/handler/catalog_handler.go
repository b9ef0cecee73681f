package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/query"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/service"
)

// CatalogHandler 카테고리/난초 API
type CatalogHandler struct {
	categories service.CategoryService
	orchids    service.OrchidService
	queries    query.CatalogQuery
}

// NewCatalogHandler 카탈로그 핸들러 생성
func NewCatalogHandler(categories service.CategoryService, orchids service.OrchidService, queries query.CatalogQuery) *CatalogHandler {
	return &CatalogHandler{categories: categories, orchids: orchids, queries: queries}
}

// isAdmin 선택 인증 라우트에서 관리자 여부 (비활성 항목 노출)
func isAdmin(c echo.Context) bool {
	principal, err := principalFrom(c)
	return err == nil && principal.IsAdmin()
}

type categoryRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parentId"`
}

// ListCategories GET /api/v1/categories (?tree=true)
func (h *CatalogHandler) ListCategories(c echo.Context) error {
	var tree bool
	if err := echo.QueryParamsBinder(c).Bool("tree", &tree).BindError(); err != nil {
		return bindingError(err)
	}

	ctx := c.Request().Context()
	if tree {
		roots, err := h.queries.CategoryTree(ctx, isAdmin(c))
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, MsgOK, "", roots)
	}

	list, err := h.queries.ListCategories(ctx, isAdmin(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgOK, "", list)
}

// GetCategory GET /api/v1/categories/:id
func (h *CatalogHandler) GetCategory(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	category, err := h.queries.GetCategory(c.Request().Context(), id, isAdmin(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgOK, "", category)
}

// CreateCategory POST /api/v1/categories
func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req categoryRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	category, err := h.categories.Create(c.Request().Context(), service.CreateCategoryCommand{
		Name:     req.Name,
		ParentID: req.ParentID,
		Actor:    principal.Actor(),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, MsgCreated, "category created", categoryView(category))
}

// UpdateCategory PUT /api/v1/categories/:id
func (h *CatalogHandler) UpdateCategory(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req categoryRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	category, err := h.categories.Update(c.Request().Context(), service.UpdateCategoryCommand{
		ID:       id,
		Name:     req.Name,
		ParentID: req.ParentID,
		Actor:    principal.Actor(),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgUpdated, "category updated", categoryView(category))
}

// DeleteCategory DELETE /api/v1/categories/:id
func (h *CatalogHandler) DeleteCategory(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.categories.Delete(c.Request().Context(), id, principal.Actor()); err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgDeleted, "category deleted", nil)
}

type orchidRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ImageURL    string          `json:"imageUrl"`
	Price       decimal.Decimal `json:"price"`
	IsNatural   bool            `json:"isNatural"`
	CategoryID  int64           `json:"categoryId"`
}

func (r orchidRequest) command(id int64, actor string) service.OrchidCommand {
	return service.OrchidCommand{
		ID:          id,
		Name:        r.Name,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		Price:       r.Price,
		IsNatural:   r.IsNatural,
		CategoryID:  r.CategoryID,
		Actor:       actor,
	}
}

// ListOrchids GET /api/v1/orchids
func (h *CatalogHandler) ListOrchids(c echo.Context) error {
	filter := query.OrchidFilter{IncludeInactive: isAdmin(c)}
	b := echo.QueryParamsBinder(c).
		String("search", &filter.Search).
		Int("page", &filter.Page).
		Int("pageSize", &filter.PageSize)
	if c.QueryParam("categoryId") != "" {
		filter.CategoryID = new(int64)
		b = b.Int64("categoryId", filter.CategoryID)
	}
	if c.QueryParam("isNatural") != "" {
		filter.IsNatural = new(bool)
		b = b.Bool("isNatural", filter.IsNatural)
	}
	if err := b.BindError(); err != nil {
		return bindingError(err)
	}

	page, err := h.queries.ListOrchids(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgOK, "", page)
}

// GetOrchid GET /api/v1/orchids/:id
func (h *CatalogHandler) GetOrchid(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	orchid, err := h.queries.GetOrchid(c.Request().Context(), id, isAdmin(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgOK, "", orchid)
}

// CreateOrchid POST /api/v1/orchids
func (h *CatalogHandler) CreateOrchid(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req orchidRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	orchid, err := h.orchids.Create(c.Request().Context(), req.command(0, principal.Actor()))
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, MsgCreated, "orchid created", orchidView(orchid))
}

// UpdateOrchid PUT /api/v1/orchids/:id
func (h *CatalogHandler) UpdateOrchid(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req orchidRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	orchid, err := h.orchids.Update(c.Request().Context(), req.command(id, principal.Actor()))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgUpdated, "orchid updated", orchidView(orchid))
}

// DeleteOrchid DELETE /api/v1/orchids/:id
func (h *CatalogHandler) DeleteOrchid(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.orchids.Delete(c.Request().Context(), id, principal.Actor()); err != nil {
		return err
	}
	return respond(c, http.StatusOK, MsgDeleted, "orchid deleted", nil)
}
