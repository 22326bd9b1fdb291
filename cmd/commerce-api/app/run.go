package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/aq2208/commerce-api/configs"
	"github.com/aq2208/commerce-api/internal/adapter/cache"
	apihttp "github.com/aq2208/commerce-api/internal/adapter/http"
	"github.com/aq2208/commerce-api/internal/adapter/http/middleware"
	"github.com/aq2208/commerce-api/internal/adapter/kafka"
	"github.com/aq2208/commerce-api/internal/adapter/payment"
	"github.com/aq2208/commerce-api/internal/adapter/queue"
	"github.com/aq2208/commerce-api/internal/adapter/repo"
	"github.com/aq2208/commerce-api/internal/logging"
	"github.com/aq2208/commerce-api/internal/usecase"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Router *gin.Engine
}

func InitWithConfig(cfg configs.Config) (*App, func(), error) {
	logging.Init(cfg.App.Name, cfg.App.LogFile)
	log := logging.New("app")

	// init database
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, nil, err
	}
	if err := repo.RunMigrations(db); err != nil {
		return nil, nil, err
	}

	// init redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, err
	}

	// init rabbitmq
	conn, err := amqp091.Dial(cfg.Rabbit.URL)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, err
	}
	producer, err := queue.NewRabbitProducer(ch)
	if err != nil {
		return nil, nil, err
	}

	// init kafka sink
	kp, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		return nil, nil, err
	}
	sink := kafka.NewAnalyticsSink(kp, cfg.Kafka.AnalyticsTopic)

	// repos + caches
	userRepo := repo.NewMySQLUserRepo(db)
	productRepo := repo.NewMySQLProductRepo(db)
	cartRepo := repo.NewMySQLCartRepo(db)
	orderRepo := repo.NewMySQLOrderRepo(db)
	outboxRepo := repo.NewMySQLOutboxRepo(db)
	finalizeStore := repo.NewMySQLFinalizeStore(db)
	orderCache := cache.NewRedisOrderCache(rdb, cfg.Redis.CacheTTL)
	dedup := cache.NewRedisEventDedup(rdb, cfg.Redis.EventTTL)

	// payment gateways
	stripe := payment.NewStripeGateway(
		cfg.Gateway.StripeSecretKey,
		cfg.Gateway.StripeWebhookSecret,
		payment.WithTolerance(cfg.Gateway.Tolerance),
	)
	gateways := map[string]usecase.PaymentGateway{"stripe": stripe}
	if cfg.Gateway.EnableMock {
		gateways["test"] = payment.NewMockGateway()
	}

	// use cases
	cartSvc := usecase.NewCartService(cartRepo, productRepo, userRepo, sink)
	checkoutUC := usecase.NewCheckout(cartRepo, productRepo, orderRepo, outboxRepo, gateways)
	finalizeUC := usecase.NewFinalizePayment(orderRepo, finalizeStore, sink, orderCache)

	// background outbox drain
	drainCtx, stopDrain := context.WithCancel(context.Background())
	go queue.NewOutboxPublisher(outboxRepo, producer).Run(drainCtx)

	// handlers + router
	handlers := apihttp.Handlers{
		Cart:    apihttp.NewCartHandler(cartSvc),
		Orders:  apihttp.NewOrderHandler(checkoutUC, finalizeUC, orderRepo),
		Webhook: apihttp.NewWebhookHandler(stripe, finalizeUC, dedup),
		Token:   apihttp.NewTokenHandler(cfg),
	}
	authz := middleware.NewAuthz(cfg)
	router := apihttp.NewRouter(handlers, authz)

	log.Info("startup complete", "addr", cfg.App.HTTPAddr)

	cleanup := func() {
		stopDrain()
		_ = sink.Close()
		_ = ch.Close()
		_ = conn.Close()
		_ = rdb.Close()
		_ = db.Close()
	}

	return &App{Router: router}, cleanup, nil
}
