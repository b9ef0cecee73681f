package handler

import (
	"net/http"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/events"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/auth"
)

const principalKey = "principal"

// RequestID 요청 ID 를 이벤트 상관관계 ID 로 전달
func RequestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			c.SetRequest(c.Request().WithContext(events.WithCorrelationID(c.Request().Context(), id)))
		},
	})
}

// RequestLogger 접근 로그를 zap 으로 기록
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("requestId", v.RequestID),
				zap.String("remoteIp", v.RemoteIP),
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				logger.Error("request", append(fields, zap.Error(v.Error))...)
			case v.Error != nil:
				logger.Info("request", append(fields, zap.String("error", v.Error.Error()))...)
			default:
				logger.Info("request", fields...)
			}
			return nil
		},
	})
}

// Authenticate Bearer 토큰 검증 후 Principal 을 컨텍스트에 저장
func Authenticate(issuer auth.TokenIssuer) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: principalKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := issuer.Parse(token)
			if err != nil {
				return nil, err
			}
			principal, err := claims.Principal()
			if err != nil {
				return nil, err
			}
			return principal, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperrors.Wrap(apperrors.ErrCodeUnauthorized, "a valid bearer token is required", err)
		},
	})
}

// RequireAdmin Admin 역할만 통과
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := principalFrom(c)
		if err != nil {
			return err
		}
		if !principal.IsAdmin() {
			return apperrors.New(apperrors.ErrCodeForbidden, "administrator role required")
		}
		return next(c)
	}
}

func principalFrom(c echo.Context) (auth.Principal, error) {
	principal, ok := c.Get(principalKey).(auth.Principal)
	if !ok {
		return auth.Principal{}, apperrors.New(apperrors.ErrCodeUnauthorized, "a valid bearer token is required")
	}
	return principal, nil
}

// TokenRateLimiter 클라이언트 IP 별 토큰 엔드포인트 호출 제한
func TokenRateLimiter(limit float64, burst int) echo.MiddlewareFunc {
	tooMany := func(c echo.Context) error {
		return c.JSON(http.StatusTooManyRequests, auth.OAuthError{
			Code:        "temporarily_unavailable",
			Description: "too many token requests",
		})
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(limit),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return tooMany(c)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return tooMany(c)
		},
	})
}
