package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/auth"
)

// Handlers 라우터에 연결되는 핸들러 묶음
type Handlers struct {
	Account *AccountHandler
	Catalog *CatalogHandler
	Order   *OrderHandler
	Payment *PaymentHandler
	Report  *ReportHandler
	Token   *TokenHandler
	Health  *HealthHandler
}

// RouterConfig 라우터 설정
type RouterConfig struct {
	Issuer         auth.TokenIssuer
	TokenRateLimit float64
	TokenRateBurst int
	Logger         *zap.Logger
}

// NewRouter echo 라우터 생성
func NewRouter(h Handlers, cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Logger)

	e.Use(middleware.Recover())
	e.Use(RequestID())
	e.Use(RequestLogger(cfg.Logger))

	authenticate := Authenticate(cfg.Issuer)
	// 토큰이 있으면 검증, 없으면 익명으로 통과
	optional := func(next echo.HandlerFunc) echo.HandlerFunc {
		guarded := authenticate(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return next(c)
			}
			return guarded(c)
		}
	}

	e.GET("/health", h.Health.Health)
	e.POST("/connect/token", h.Token.Token, TokenRateLimiter(cfg.TokenRateLimit, cfg.TokenRateBurst))

	api := e.Group("/api/v1")

	api.POST("/accounts/register", h.Account.Register)
	api.GET("/accounts/me", h.Account.Me, authenticate)

	api.GET("/categories", h.Catalog.ListCategories, optional)
	api.GET("/categories/:id", h.Catalog.GetCategory, optional)
	api.POST("/categories", h.Catalog.CreateCategory, authenticate, RequireAdmin)
	api.PUT("/categories/:id", h.Catalog.UpdateCategory, authenticate, RequireAdmin)
	api.DELETE("/categories/:id", h.Catalog.DeleteCategory, authenticate, RequireAdmin)

	api.GET("/orchids", h.Catalog.ListOrchids, optional)
	api.GET("/orchids/:id", h.Catalog.GetOrchid, optional)
	api.POST("/orchids", h.Catalog.CreateOrchid, authenticate, RequireAdmin)
	api.PUT("/orchids/:id", h.Catalog.UpdateOrchid, authenticate, RequireAdmin)
	api.DELETE("/orchids/:id", h.Catalog.DeleteOrchid, authenticate, RequireAdmin)

	api.POST("/orders", h.Order.PlaceOrder, authenticate)
	api.GET("/orders", h.Order.ListMine, authenticate)
	api.GET("/orders/:id", h.Order.Get, authenticate)
	api.POST("/orders/:id/cancel", h.Order.Cancel, authenticate)

	api.POST("/payments/momo/ipn", h.Payment.IPN)
	api.GET("/payments/momo/return", h.Payment.Return)

	admin := api.Group("/admin", authenticate, RequireAdmin)
	admin.GET("/accounts", h.Account.List)
	admin.GET("/orders", h.Order.AdminList)
	admin.PUT("/orders/:id/status", h.Order.AdminChangeStatus)
	admin.GET("/reports/best-sellers", h.Report.BestSellers)
	admin.GET("/reports/statistics", h.Report.Statistics)

	return e
}
