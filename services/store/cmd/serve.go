package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
	grpchealth "google.golang.org/grpc/health"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/events"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/idempotency"
	"github.com/giakoii/Orchid-Store-Management-sub000/common/messaging"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/auth"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/expiry"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/gateway/momo"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/handler"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/health"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/projection"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/query"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/repository"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/service"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/worker"
)

const healthInterval = 10 * time.Second

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, gRPC health server and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before starting")

	return cmd
}

func runServe(parent context.Context, migrate bool) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL 연결
	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("connected to database", zap.String("host", redactDSN(cfg.Database.DSN)))

	if migrate {
		if err := repository.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("schema migrated")
	}

	// Redis 연결
	rdb, err := openRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()
	log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))

	// Kafka Producer 초기화
	publisher, err := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// Repository 초기화
	accountRepo := repository.NewAccountRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	orchidRepo := repository.NewOrchidRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	idemStore := idempotency.NewRedisStore(rdb, cfg.Redis.Prefix)
	gateway := momo.NewClient(momo.Config{
		Endpoint:    cfg.MoMo.Endpoint,
		PartnerCode: cfg.MoMo.PartnerCode,
		AccessKey:   cfg.MoMo.AccessKey,
		SecretKey:   cfg.MoMo.SecretKey,
		RedirectURL: cfg.MoMo.RedirectURL,
		IPNURL:      cfg.MoMo.IPNURL,
		RequestType: cfg.MoMo.RequestType,
		Lang:        cfg.MoMo.Lang,
		Timeout:     cfg.MoMo.Timeout,
	}, log)

	// 결제 만료 스케줄러 (Temporal 미설정 시 비활성화)
	var (
		scheduler      service.PaymentExpiryScheduler = service.NewNoopScheduler()
		temporalClient client.Client
	)
	if cfg.Temporal.HostPort != "" {
		temporalClient, err = client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to temporal: %w", err)
		}
		defer temporalClient.Close()
		scheduler = expiry.NewScheduler(temporalClient, cfg.Temporal.TaskQueue, cfg.Payment.ExpiryWindow, log)
		log.Info("payment expiry enabled",
			zap.String("taskQueue", cfg.Temporal.TaskQueue),
			zap.Duration("window", cfg.Payment.ExpiryWindow))
	} else {
		log.Warn("temporal is not configured, unpaid orders will not expire")
	}

	// Service 초기화
	accountService := service.NewAccountService(db, accountRepo, outboxRepo, log)
	categoryService := service.NewCategoryService(db, categoryRepo, orchidRepo, outboxRepo, log)
	orchidService := service.NewOrchidService(db, orchidRepo, categoryRepo, outboxRepo, log)
	orderService := service.NewOrderService(db, orderRepo, orchidRepo, accountRepo, outboxRepo, paymentRepo, gateway, scheduler, log)
	paymentService := service.NewPaymentService(db, orderRepo, outboxRepo, paymentRepo, gateway, idemStore, log)

	issuer := auth.NewTokenIssuer(cfg.Auth.Issuer, cfg.Auth.SigningKey, cfg.Auth.AccessTokenTTL)
	refreshStore := auth.NewRefreshStore(rdb, cfg.Redis.Prefix, cfg.Auth.RefreshTokenTTL)
	tokenService := auth.NewService(cfg.Auth.ClientID, cfg.Auth.ClientSecret, accountRepo, issuer, refreshStore, log)

	docs := projection.NewRedisStore(rdb, cfg.Redis.Prefix)

	// 백그라운드 작업은 HTTP 서버 종료 후에 멈춘다
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	// Kafka Consumer → Redis 프로젝션
	consumer, err := messaging.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, log)
	if err != nil {
		return err
	}
	defer consumer.Close()

	projector := projection.NewProjector(docs, idemStore, log)
	if err := consumer.Subscribe(workerCtx, events.ProjectionTopics, projector.Handle); err != nil {
		return fmt.Errorf("failed to subscribe to projection topics: %w", err)
	}
	log.Info("subscribed to kafka topics", zap.Strings("topics", events.ProjectionTopics))

	// Outbox Worker 시작
	outboxWorker := worker.NewOutboxWorker(outboxRepo, publisher, log, cfg.Kafka.OutboxInterval, cfg.Kafka.OutboxBatchSize)
	go outboxWorker.Start(workerCtx)

	// Temporal Worker 시작
	if temporalClient != nil {
		expiryWorker := expiry.NewWorker(temporalClient, cfg.Temporal.TaskQueue, expiry.NewActivities(orderService, log))
		if err := expiryWorker.Start(); err != nil {
			return fmt.Errorf("failed to start temporal worker: %w", err)
		}
		defer expiryWorker.Stop()
	}

	// Health (gRPC + HTTP)
	healthServer := grpchealth.NewServer()
	checker := health.NewChecker(db, rdb, healthServer, log)
	go checker.Start(workerCtx, healthInterval)

	grpcServer := health.NewGRPCServer(healthServer)
	grpcListener, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}
	go func() {
		log.Info("grpc health server starting", zap.String("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Error("grpc server failed", zap.Error(err))
		}
	}()

	// HTTP Server 시작
	router := handler.NewRouter(handler.Handlers{
		Account: handler.NewAccountHandler(accountService, query.NewAccountQuery(docs)),
		Catalog: handler.NewCatalogHandler(categoryService, orchidService, query.NewCatalogQuery(docs)),
		Order:   handler.NewOrderHandler(orderService, query.NewOrderQuery(docs)),
		Payment: handler.NewPaymentHandler(paymentService, log),
		Report:  handler.NewReportHandler(query.NewReportQuery(docs)),
		Token:   handler.NewTokenHandler(tokenService, log),
		Health:  handler.NewHealthHandler(checker),
	}, handler.RouterConfig{
		Issuer:         issuer,
		TokenRateLimit: cfg.Auth.TokenRateLimit,
		TokenRateBurst: cfg.Auth.TokenRateBurst,
		Logger:         log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful Shutdown
	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
		log.Error("http server failed", zap.Error(runErr))
	}

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	cancelWorkers()

	log.Info("server stopped")
	return runErr
}
