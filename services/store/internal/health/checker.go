package health

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const (
	StatusUp   = "UP"
	StatusDown = "DOWN"

	// ServiceName gRPC health 서비스 이름
	ServiceName = "orchid.store"
)

// Pinger *sql.DB 가 만족
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Report 헬스 체크 결과
type Report struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	CheckedAt time.Time         `json:"checkedAt"`
}

// Healthy 모든 의존성이 UP 인지
func (r Report) Healthy() bool {
	return r.Status == StatusUp
}

// Checker DB/Redis 상태를 주기적으로 확인하고 gRPC health 상태에 반영
type Checker struct {
	db      Pinger
	redis   redis.UniversalClient
	server  *grpchealth.Server
	logger  *zap.Logger
	timeout time.Duration

	mu   sync.RWMutex
	last Report
}

// NewChecker 헬스 체커 생성
func NewChecker(db Pinger, rdb redis.UniversalClient, server *grpchealth.Server, logger *zap.Logger) *Checker {
	return &Checker{
		db:      db,
		redis:   rdb,
		server:  server,
		logger:  logger,
		timeout: 2 * time.Second,
		last:    Report{Status: StatusDown, Checks: map[string]string{}},
	}
}

// Check 의존성을 즉시 확인
func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	report := Report{Status: StatusUp, Checks: make(map[string]string, 2), CheckedAt: time.Now().UTC()}

	report.Checks["database"] = StatusUp
	if err := c.db.PingContext(ctx); err != nil {
		c.logger.Warn("database health check failed", zap.Error(err))
		report.Checks["database"] = StatusDown
		report.Status = StatusDown
	}

	report.Checks["redis"] = StatusUp
	if err := c.redis.Ping(ctx).Err(); err != nil {
		c.logger.Warn("redis health check failed", zap.Error(err))
		report.Checks["redis"] = StatusDown
		report.Status = StatusDown
	}

	c.mu.Lock()
	previous := c.last.Status
	c.last = report
	c.mu.Unlock()

	if previous != report.Status {
		c.logger.Info("health status changed",
			zap.String("from", previous),
			zap.String("to", report.Status))
	}
	c.publish(report)
	return report
}

func (c *Checker) publish(report Report) {
	if c.server == nil {
		return
	}
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if !report.Healthy() {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	c.server.SetServingStatus("", status)
	c.server.SetServingStatus(ServiceName, status)
}

// Last 마지막 체크 결과
func (c *Checker) Last() Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Start interval 마다 체크 (ctx 취소 시 NOT_SERVING 으로 전환 후 종료)
func (c *Checker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			if c.server != nil {
				c.server.Shutdown()
			}
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// NewGRPCServer health 서비스만 등록된 gRPC 서버
func NewGRPCServer(server *grpchealth.Server) *grpc.Server {
	s := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(s, server)
	return s
}
