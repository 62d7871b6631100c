package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-service/clients"
	apperrors "checkout-service/common/errors"
	"checkout-service/common/logger"
	commonmw "checkout-service/common/middleware"
	"checkout-service/config"
	"checkout-service/controllers"
	"checkout-service/database"
	"checkout-service/kafka"
	aws_pkg "checkout-service/pkg/aws"
	"checkout-service/pkg/telemetry"
	"checkout-service/repository"
	"checkout-service/routes"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const serviceName = "checkout-service"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// AWS clients are optional; without credentials SNS, SQS and CloudWatch stay off.
	awsCfg, awsErr := aws_pkg.LoadAWSConfig(rootCtx)
	awsAvailable := awsErr == nil

	var cwLogs *aws_pkg.CloudWatchLogsClient
	if cfg.CloudWatchEnabled && awsAvailable {
		cwLogs, err = aws_pkg.NewCloudWatchLogsClient(rootCtx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "CloudWatch Logs unavailable: %v\n", err)
		}
	}
	var log *zap.Logger
	if cwLogs != nil {
		log = logger.InitializeWithWriter(cfg.AppEnv, cwLogs)
	} else {
		log = logger.Initialize(cfg.AppEnv)
	}
	defer log.Sync() //nolint:errcheck
	if awsErr != nil {
		log.Warn("AWS config unavailable, SNS/SQS/CloudWatch disabled", zap.Error(awsErr))
	}

	shutdownTracer, err := telemetry.SetupTracer(rootCtx, serviceName, cfg.AppEnv, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal("Failed to set up tracing", zap.Error(err))
	}
	if cfg.OTLPEndpoint != "" {
		log.Info("Tracing enabled", zap.String("otlp_endpoint", cfg.OTLPEndpoint))
	}

	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	var metricsClient *aws_pkg.MetricsClient
	if awsAvailable {
		metricsClient = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	}

	// Collaborators
	cartClient := clients.NewCartClient(cfg.CartServiceURL, cfg.UpstreamTimeout)
	productClient := clients.NewProductClient(cfg.ProductServiceURL, cfg.UpstreamTimeout)
	userClient := clients.NewUserClient(cfg.UserServiceURL, cfg.UpstreamTimeout)
	notificationClient := clients.NewNotificationClient(cfg.NotificationServiceURL, cfg.UpstreamTimeout)

	var processor services.PaymentProcessor
	switch cfg.PaymentProcessor {
	case config.ProcessorStripe:
		processor = services.NewStripeProcessor(cfg.StripeAPIKey)
	default:
		log.Warn("Using simulated payment processor", zap.Strings("decline_methods", cfg.SimulatedDeclineMethods))
		processor = services.NewSimulatedProcessor(cfg.SimulatedDeclineMethods)
	}

	// Order events go to every configured sink.
	var publishers services.MultiPublisher
	var kafkaProducer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 && cfg.OrderEventsTopic != "" {
		kafkaProducer = kafka.NewProducer(cfg.KafkaBrokers, cfg.OrderEventsTopic, log)
		publishers = append(publishers, kafkaProducer)
	}
	if awsAvailable && cfg.OrderSNSTopicARN != "" {
		publishers = append(publishers, services.NewSNSOrderEventPublisher(aws_pkg.NewSNSClient(awsCfg), cfg.OrderSNSTopicARN))
	}
	var events services.OrderEventPublisher
	if len(publishers) > 0 {
		events = publishers
	}

	var lock services.CheckoutLock
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("Invalid Redis URL", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(rootCtx).Err(); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		lock = services.NewRedisCheckoutLock(redisClient, cfg.CheckoutLockTTL)
		log.Info("Checkout lock enabled", zap.Duration("ttl", cfg.CheckoutLockTTL))
	}

	dispatcher := services.NewNotificationDispatcher(notificationClient, log, services.DispatcherConfig{
		Workers:     cfg.NotificationWorkers,
		QueueSize:   cfg.NotificationQueueSize,
		Attempts:    3,
		Backoff:     500 * time.Millisecond,
		SendTimeout: cfg.UpstreamTimeout,
	})
	dispatcher.Start(rootCtx)
	go func() {
		for err := range dispatcher.Errors() {
			if errors.Is(err, services.ErrNotificationQueueFull) && metricsClient != nil {
				_ = metricsClient.RecordCount(context.Background(), aws_pkg.MetricNotificationsDropped, map[string]string{"Service": serviceName})
			}
		}
	}()

	// DI chain
	orderRepo := repository.NewGormOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	sagaRepo := repository.NewSagaLogRepository(db)

	var recorder services.MetricsRecorder
	if metricsClient != nil {
		recorder = metricsClient
	}

	paymentService := services.NewPaymentService(paymentRepo, processor)
	checkoutService := services.NewCheckoutService(services.CheckoutDeps{
		Carts:           cartClient,
		Catalog:         productClient,
		Users:           userClient,
		Orders:          orderRepo,
		Payments:        paymentService,
		SagaLogs:        sagaRepo,
		Notifications:   dispatcher,
		Events:          events,
		Lock:            lock,
		Metrics:         recorder,
		Logger:          log,
		DefaultCurrency: cfg.PaymentCurrency,
		Concurrency:     cfg.ValidationConcurrency,
	})
	orderService := services.NewOrderService(orderRepo, paymentRepo, events)

	if cfg.CheckoutQueueURL != "" && awsAvailable {
		consumer := services.NewSQSCheckoutConsumer(
			aws_pkg.NewSQSConsumer(awsCfg, cfg.CheckoutQueueURL, log),
			checkoutService, recorder, log)
		go consumer.Start(rootCtx)
	}

	var checkoutLimiter *commonmw.RateLimiter
	sweepStop := make(chan struct{})
	if cfg.CheckoutRatePerMinute > 0 {
		checkoutLimiter = commonmw.NewRateLimiter(rate.Limit(float64(cfg.CheckoutRatePerMinute)/60), cfg.CheckoutRateBurst, 10*time.Minute)
		go checkoutLimiter.RunSweeper(sweepStop)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := commonmw.NewServerMetrics(registry, "checkout")

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(commonmw.Tracing(serviceName, nil))
	r.Use(commonmw.RequestID())
	r.Use(commonmw.RequestLogger(log))
	r.Use(serverMetrics.Middleware())
	if metricsClient != nil {
		r.Use(commonmw.MetricsMiddleware(metricsClient, serviceName))
	}
	r.Use(apperrors.ErrorMiddleware())

	// 30-second request timeout
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	r.GET("/health", healthHandler(db, redisClient))
	r.GET("/metrics", commonmw.Handler(registry))

	routes.RegisterRoutes(r,
		controllers.NewCheckoutController(checkoutService),
		controllers.NewOrderController(orderService),
		checkoutLimiter)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	log.Info("Checkout service started",
		zap.String("port", cfg.Port),
		zap.String("processor", cfg.PaymentProcessor),
		zap.String("db_driver", cfg.DBDriver))
	<-quit
	log.Info("Shutting down checkout service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// queued confirmations are delivered on the live root context before it is cancelled
	dispatcher.Stop()
	stop()
	close(sweepStop)
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Warn("Kafka producer close failed", zap.Error(err))
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := shutdownTracer(context.Background()); err != nil {
		log.Warn("Tracer shutdown failed", zap.Error(err))
	}
	if cwLogs != nil {
		_ = cwLogs.Close()
	}
	log.Info("Server exited cleanly")
}

func healthHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{"status": "healthy", "service": serviceName}
		code := http.StatusOK
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			status["status"] = "unhealthy"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if rdb != nil {
			if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
				status["status"] = "degraded"
				status["redis"] = err.Error()
			}
		}
		c.JSON(code, status)
	}
}
