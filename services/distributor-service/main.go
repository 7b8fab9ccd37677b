package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	awspkg "github.com/yashrajoria/distributor-backend/pkg/aws"
	ddbpkg "github.com/yashrajoria/distributor-backend/pkg/dynamodb"
	"github.com/yashrajoria/distributor-backend/services/common/auth"
	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/common/logger"
	commonmw "github.com/yashrajoria/distributor-backend/services/common/middleware"
	"github.com/yashrajoria/distributor-backend/services/common/telemetry"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/controllers"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/database"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/repository"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/routes"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/services"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	serviceName    = "distributor-service"
	serviceVersion = "1.0.0"
	streamPath     = "/shipments/stream"

	consumerDrainTimeout = 30 * time.Second
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		logger.Initialize("development").Fatal("Config load failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- AWS / CloudWatch setup ---
	awsCfg, awsErr := awspkg.LoadAWSConfig(ctx)

	var (
		cwWriter io.Writer
		cwErr    error
	)
	if awsErr == nil && cfg.CloudWatchEnabled {
		var cwLogs *awspkg.CloudWatchLogsClient
		if cwLogs, cwErr = awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogs, serviceName, true); cwErr == nil {
			cwWriter = cwLogs
		}
	}
	log := logger.InitializeWithWriter(cfg.AppEnv, cwWriter)
	defer func() { _ = log.Sync() }()

	if cwErr != nil {
		log.Warn("CloudWatch logs client init failed (non-fatal)", zap.Error(cwErr))
	}

	if awsErr != nil {
		log.Warn("AWS config unavailable, CloudWatch, SNS and DynamoDB disabled", zap.Error(awsErr))
	}

	var metricsClient *awspkg.MetricsClient
	if awsErr == nil {
		metricsClient = awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNS, cfg.CloudWatchEnabled)
	}

	apperrors.SetProduction(cfg.IsProduction())

	shutdownTracer, err := telemetry.InitTracer(ctx, serviceName, serviceVersion, cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
		shutdownTracer = func(context.Context) error { return nil }
	}

	// --- MongoDB ---
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	db, err := database.Connect(connectCtx, cfg.MongoURI, cfg.MongoDB, log)
	cancel()
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := database.EnsureIndexes(indexCtx, db); err != nil {
		log.Fatal("Failed to create indexes", zap.Error(err))
	}
	cancel()

	var txManager database.TxManager = database.NoTxManager{}
	useTx := cfg.MongoTransactions == "true"
	if cfg.MongoTransactions == "auto" {
		useTx = database.SupportsTransactions(ctx, db)
	}
	if useTx {
		client, err := database.Client()
		if err != nil {
			log.Fatal("Mongo client unavailable", zap.Error(err))
		}
		txManager = database.NewMongoTxManager(client)
	}
	log.Info("Shipment commit mode selected", zap.Bool("transactions", useTx))

	// --- Redis lock and live stream ---
	var (
		locker      services.Locker = services.NoopLocker{}
		broker      services.Broker
		redisBroker *services.RedisBroker
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("Redis unreachable, using process-local lock and stream", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		}
	}
	if redisClient != nil {
		locker = services.NewRedisLocker(redisClient, 10*time.Second)
		redisBroker = services.NewRedisBroker(ctx, redisClient, "distributor:shipments")
		broker = redisBroker
	} else {
		broker = services.NewInProcessBroker()
	}

	publishers := []services.EventPublisher{broker}
	var kafkaPublisher *services.KafkaEventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher = services.NewKafkaEventPublisher(services.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaShipmentsTopic))
		publishers = append(publishers, kafkaPublisher)
	}
	if cfg.ShipmentsTopicArn != "" && awsErr == nil {
		publishers = append(publishers, services.NewSNSEventPublisher(awspkg.NewSNSClient(awsCfg), cfg.ShipmentsTopicArn))
	}
	publisher := services.NewMultiPublisher(metricsClient, publishers...)

	// --- Repositories ---
	productRepo := repository.NewProductRepository(db)
	centralRepo := repository.NewCentralInventoryRepository(db)
	dealerStockRepo := repository.NewDealerInventoryRepository(db)
	shipmentRepo := repository.NewShipmentRepository(db)
	dealerRepo := repository.NewDealerRepository(db)

	var sessionRepo repository.SessionRepository = repository.NewSessionRepository(db)
	if cfg.PresenceStore == "dynamodb" {
		if awsErr != nil {
			log.Fatal("PRESENCE_STORE=dynamodb requires AWS configuration", zap.Error(awsErr))
		}
		sessionRepo = repository.NewDynamoSessionRepository(ddbpkg.NewClientFromConfig(awsCfg), cfg.DDBPresenceTable)
	}

	// --- Services ---
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatal("Invalid JWT configuration", zap.Error(err))
	}

	presenceService := services.NewPresenceService(sessionRepo, cfg.OnlineThreshold, nil)
	ledgerService := services.NewLedgerService(centralRepo, dealerStockRepo, cfg.InventoryUpsertUnknown, metricsClient)
	shipmentService := services.NewShipmentService(shipmentRepo)
	productService := services.NewProductService(productRepo)
	billingService := services.NewBillingService(shipmentRepo, cfg.BillingMaxShipments)
	dealerService := services.NewDealerService(dealerRepo, tokens, services.AdminCredentials{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
	}, presenceService, metricsClient)
	workflowService := services.NewWorkflowService(services.WorkflowDeps{
		DealerStock:  dealerStockRepo,
		CentralStock: centralRepo,
		Products:     productRepo,
		Dealers:      dealerRepo,
		Recorder:     shipmentService,
		Presence:     presenceService,
		Tx:           txManager,
		Locker:       locker,
		Publisher:    publisher,
		Metrics:      metricsClient,
	})

	// --- Restock queue ---
	consumerCtx, stopConsumers := context.WithCancel(ctx)
	defer stopConsumers()
	consumersDone := make(chan struct{})
	if cfg.RestockQueueURL != "" && awsErr == nil {
		var dedupe services.Deduper
		if redisClient != nil {
			dedupe = services.NewRedisDeduper(redisClient, 7*24*time.Hour)
		}
		restockService := services.NewRestockService(ledgerService, dedupe)
		consumer := awspkg.NewSQSConsumer(awsCfg, cfg.RestockQueueURL, log)
		go func() {
			defer close(consumersDone)
			_ = consumer.StartPolling(consumerCtx, restockService.HandleMessage)
		}()
	} else {
		close(consumersDone)
	}

	ctrl := routes.Controllers{
		Auth:      controllers.NewAuthController(dealerService, cfg.SessionTTL, cfg.IsProduction()),
		Products:  controllers.NewProductController(productService),
		Inventory: controllers.NewInventoryController(ledgerService),
		Shipments: controllers.NewShipmentController(workflowService, shipmentService, broker, controllers.DefaultHeartbeat),
		Billing:   controllers.NewBillingController(billingService),
		Dealers:   controllers.NewDealerController(dealerService),
		Presence:  controllers.NewPresenceController(presenceService),
	}

	// --- HTTP router ---
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(commonmw.RequestLogger(log))
	r.Use(commonmw.MetricsMiddleware(metricsClient, serviceName, commonmw.WithoutLatency(streamPath)))
	r.Use(commonmw.SecurityHeaders())
	r.Use(commonmw.CORSMiddleware(commonmw.NewCORSConfig(cfg.AllowedOrigins)))
	r.Use(requestTimeout(30*time.Second, streamPath))
	r.Use(apperrors.ErrorMiddleware())

	limiter := commonmw.NewRateLimiter(commonmw.PerMinute(cfg.RateLimitPerMinute), cfg.RateLimitBurst, 10*time.Minute)
	routes.RegisterRoutes(r, ctrl, tokens, limiter)

	srv := newServer(":"+cfg.Port, r)

	go func() {
		log.Info("Distributor Service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Distributor Service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	stopConsumers()
	if !waitDone(consumersDone, consumerDrainTimeout) {
		log.Warn("Restock consumer did not stop before the drain deadline", zap.Duration("timeout", consumerDrainTimeout))
	}
	limiter.Close()
	if redisBroker != nil {
		_ = redisBroker.Close()
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Warn("Kafka writer close failed", zap.Error(err))
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := database.Close(); err != nil {
		log.Warn("MongoDB disconnect failed", zap.Error(err))
	}
	tracerCtx, cancelTracer := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTracer()
	if err := shutdownTracer(tracerCtx); err != nil {
		log.Warn("Tracer shutdown failed", zap.Error(err))
	}

	log.Info("Distributor Service stopped gracefully")
}

// newServer builds the HTTP server. Request contexts derive from a base
// context that is cancelled as soon as Shutdown starts, so open event
// streams return instead of holding the shutdown.
func newServer(addr string, h http.Handler) *http.Server {
	base, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	srv.RegisterOnShutdown(cancel)
	return srv
}

// waitDone reports whether done closed within d.
func waitDone(done <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// requestTimeout bounds every request context except the long-lived paths.
func requestTimeout(d time.Duration, skip ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, p := range skip {
			if c.Request.URL.Path == p {
				c.Next()
				return
			}
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
