package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	redisv8 "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shivamdarekar/TrendsWave/cache"
	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/common/logger"
	"github.com/shivamdarekar/TrendsWave/controllers"
	"github.com/shivamdarekar/TrendsWave/database"
	"github.com/shivamdarekar/TrendsWave/events"
	"github.com/shivamdarekar/TrendsWave/middleware"
	"github.com/shivamdarekar/TrendsWave/payment"
	awspkg "github.com/shivamdarekar/TrendsWave/pkg/aws"
	"github.com/shivamdarekar/TrendsWave/repository"
	"github.com/shivamdarekar/TrendsWave/routes"
	"github.com/shivamdarekar/TrendsWave/services"
	"github.com/shivamdarekar/TrendsWave/storage"
)

const serviceName = "trendswave-backend"

func main() {
	ctx := context.Background()

	cfg, err := LoadConfig(ctx)
	if err != nil {
		logger.Initialize("development")
		logger.Log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// --- 1. AWS + logging ---

	var awsCfg sdkaws.Config
	awsReady := false
	if cfg.needsAWS() {
		awsCfg, err = awspkg.LoadAWSConfig(ctx, cfg.AWSOptions())
		awsReady = err == nil
	}

	var logSink io.Writer
	if cfg.CloudWatchLogs && awsReady {
		if cw, cwErr := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName); cwErr == nil {
			logSink = cw
		}
	}
	logger.InitializeWithWriter(cfg.Env, logSink)
	defer logger.Log.Sync()
	zap.ReplaceGlobals(logger.Log)

	if cfg.needsAWS() && !awsReady {
		logger.Log.Fatal("Failed to load AWS config", zap.Error(err))
	}
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var metrics awspkg.MetricsRecorder
	if awsReady {
		metrics = awspkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.CloudWatchMetrics)
	}

	// --- 2. Stores ---

	mongoDB, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB, logger.Log)
	if err != nil {
		logger.Log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	if err := mongoDB.EnsureIndexes(ctx); err != nil {
		logger.Log.Warn("Failed to ensure indexes", zap.Error(err))
	}

	var idemClient *redis.Client
	var cacheClient *redisv8.Client
	if cfg.RedisURL != "" {
		if idemClient, err = database.NewRedisClient(ctx, cfg.RedisURL); err != nil {
			logger.Log.Warn("Idempotency store disabled", zap.Error(err))
		}
		if cacheClient, err = database.NewCacheClient(ctx, cfg.RedisURL); err != nil {
			logger.Log.Warn("Product cache disabled", zap.Error(err))
		}
	}
	idem := cache.NewIdempotencyStore(idemClient, cfg.IdempotencyTTL)
	productCache := cache.NewProductCache(cacheClient, cfg.ProductCacheTTL, logger.Log)

	store, err := newStorage(ctx, cfg, awsCfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	var tempUploads repository.TempUploadRepository = repository.NewTempUploadRepository(mongoDB.DB)
	if cfg.TempUploadBackend == "dynamodb" {
		tempUploads = repository.NewDynamoTempUploadRepository(dynamodb.NewFromConfig(awsCfg), cfg.TempUploadTable)
	}

	publisher := newPublisher(cfg, awsCfg)
	gateway := newGateway(cfg)

	var deleteQueue *awspkg.SQSQueue
	if cfg.StorageDeleteQueue != "" {
		deleteQueue = awspkg.NewSQSQueue(awsCfg, cfg.StorageDeleteQueue, logger.Log)
	}

	// --- 3. Dependency injection ---

	userRepo := repository.NewUserRepository(mongoDB.DB)
	productRepo := repository.NewProductRepository(mongoDB.DB)
	cartRepo := repository.NewCartRepository(mongoDB.DB)
	checkoutRepo := repository.NewCheckoutRepository(mongoDB.DB)
	orderRepo := repository.NewOrderRepository(mongoDB.DB)
	subscriberRepo := repository.NewSubscriberRepository(mongoDB.DB)
	tx := database.NewMongoTransactor(mongoDB.Client)

	tokens := services.NewTokenService(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := services.NewAuthService(userRepo, tokens)
	imageDeleter := services.NewImageDeleter(store, deleteQueue, logger.Log)

	productService := services.NewProductService(productRepo, tempUploads, productCache, imageDeleter, metrics)
	cartService := services.NewCartService(cartRepo, productRepo, tx, metrics)
	checkoutService := services.NewCheckoutService(checkoutRepo, orderRepo, cartRepo, tx, idem, publisher, metrics)
	paymentService := services.NewPaymentService(checkoutRepo, gateway, tx, idem, publisher, metrics, cfg.PaymentCurrency)
	orderService := services.NewOrderService(orderRepo, publisher)
	uploadService := services.NewUploadService(store, tempUploads, productRepo, imageDeleter, productCache, metrics, cfg.MaxUploadBytes)

	var oauth controllers.OAuthService
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		provider := services.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
		oauth = services.NewGoogleOAuthService(provider, tokens, userRepo, authService)
	}

	controllers.RegisterValidators()
	validator := controllers.NewRequestValidator()
	cookies := controllers.CookieConfig{
		Secure:     cfg.IsProduction(),
		AccessTTL:  tokens.AccessTTL(),
		RefreshTTL: tokens.RefreshTTL(),
	}

	ctrl := routes.Controllers{
		Auth:        controllers.NewAuthController(authService, oauth, cookies, cfg.FrontendURL),
		Users:       controllers.NewUserController(services.NewUserService(userRepo)),
		Products:    controllers.NewProductController(productService, validator),
		Cart:        controllers.NewCartController(cartService),
		Checkout:    controllers.NewCheckoutController(checkoutService),
		Payment:     controllers.NewPaymentController(paymentService),
		Orders:      controllers.NewOrderController(orderService, validator),
		Subscribers: controllers.NewSubscriberController(services.NewSubscriberService(subscriberRepo)),
		Uploads:     controllers.NewUploadController(uploadService),
	}

	// --- 4. Background jobs ---

	cleanup := services.NewCleanupScheduler(tempUploads, store, metrics, logger.Log, cfg.CleanupSchedule)
	if err := cleanup.Start(); err != nil {
		logger.Log.Fatal("Failed to schedule temp upload cleanup", zap.Error(err))
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	if deleteQueue != nil {
		go services.NewStorageDeletionWorker(deleteQueue, imageDeleter, metrics, logger.Log).Run(workerCtx)
	}

	// --- 5. HTTP server & middleware ---

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom, err := middleware.NewPrometheus(registry)
	if err != nil {
		logger.Log.Fatal("Failed to register prometheus metrics", zap.Error(err))
	}

	limits := routes.Limits{
		API:  middleware.NewWindowLimiter(middleware.APIRateLimit, middleware.RateLimitWindow),
		Auth: middleware.NewWindowLimiter(middleware.AuthRateLimit, middleware.RateLimitWindow),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(middleware.RequestLogger(logger.Log))
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.Metrics(metrics, serviceName))
	r.Use(prom.Handler())
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(apperrors.ErrorMiddleware())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "welcome to our app")
	})
	r.GET("/health", func(c *gin.Context) {
		if err := mongoDB.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	routes.RegisterAPIRoutes(r, authService, limits, ctrl)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- 6. Graceful shutdown ---

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	cleanup.Stop(shutdownCtx)
	stopWorker()
	limits.API.Stop()
	limits.Auth.Stop()

	if err := publisher.Close(); err != nil {
		logger.Log.Error("Failed to close event publisher", zap.Error(err))
	}
	if idemClient != nil {
		_ = idemClient.Close()
	}
	if cacheClient != nil {
		_ = cacheClient.Close()
	}
	if err := mongoDB.Close(); err != nil {
		logger.Log.Error("Failed to close MongoDB", zap.Error(err))
	}

	logger.Log.Info("Server stopped gracefully")
}

func newStorage(ctx context.Context, cfg *Config, awsCfg sdkaws.Config) (storage.Storage, error) {
	if cfg.StorageBackend == "minio" {
		return storage.NewMinIO(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
			BaseURL:   cfg.StorageBaseURL,
		})
	}
	client := awspkg.NewS3Client(awsCfg, cfg.S3Bucket, cfg.S3PathStyle || cfg.AWSEndpoint != "")
	return storage.NewS3Storage(client, cfg.StorageBaseURL), nil
}

func newPublisher(cfg *Config, awsCfg sdkaws.Config) events.Publisher {
	switch {
	case cfg.OrderEventsTopicArn != "":
		return events.NewSNSPublisher(awspkg.NewSNSClient(awsCfg), cfg.OrderEventsTopicArn)
	case len(cfg.KafkaBrokers) > 0:
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
	default:
		return events.NoopPublisher{}
	}
}

func newGateway(cfg *Config) payment.Gateway {
	if cfg.PaymentProvider == payment.ProviderStripe {
		return payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripePublishableKey, cfg.StripeWebhookSecret)
	}
	return payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
}
