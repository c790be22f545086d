package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yashrajoria/storefront-backend/config"
	"github.com/yashrajoria/storefront-backend/controllers"
	"github.com/yashrajoria/storefront-backend/database"
	"github.com/yashrajoria/storefront-backend/middleware"
	awspkg "github.com/yashrajoria/storefront-backend/pkg/aws"
	"github.com/yashrajoria/storefront-backend/pkg/logger"
	"github.com/yashrajoria/storefront-backend/repository"
	"github.com/yashrajoria/storefront-backend/routes"
	"github.com/yashrajoria/storefront-backend/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const serviceName = "storefront-backend"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

// run owns every resource for the process lifetime. Returning instead of
// exiting lets the deferred closes run on startup failures too.
func run() error {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	var awsCfg sdkaws.Config
	if cfg.NeedsAWS() {
		awsCfg, err = awspkg.LoadAWSConfig(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
		if err != nil {
			return fmt.Errorf("load AWS config: %w", err)
		}
		if err := cfg.ApplySecrets(ctx, awspkg.NewSecretsClient(awsCfg)); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var logSink io.Writer
	if cfg.CloudWatchEnabled {
		cwLogs, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			return fmt.Errorf("initialize CloudWatch Logs: %w", err)
		}
		logSink = cwLogs
	}

	log, err := logger.New(cfg.Env, logSink)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Storage ---
	mongoDB, err := database.ConnectMongo(ctx, cfg.DatabaseURL, cfg.DatabaseName, log)
	if err != nil {
		return err
	}
	defer mongoDB.Close()

	productRepo := repository.NewMongoProductRepository(mongoDB.DB)
	userRepo := repository.NewMongoUserRepository(mongoDB.DB)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure user indexes: %w", err)
	}

	orderRepo, pg, err := openOrderStore(cfg, mongoDB, awsCfg, log)
	if err != nil {
		return fmt.Errorf("open %s order store: %w", cfg.OrderStore, err)
	}
	if pg != nil {
		defer database.ClosePostgres(pg)
	}
	// The unique session index is what makes order creation idempotent.
	if err := orderRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure order indexes: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, product cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// --- Integrations ---
	metrics := awspkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.CloudWatchEnabled)

	publisher := newEventPublisher(cfg, awsCfg, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("Failed to close event publisher", zap.Error(err))
		}
	}()

	stripeClient := services.NewStripeClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	tokens, err := services.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("initialize token service: %w", err)
	}

	// --- Services ---
	validate := validator.New()

	checkoutService := services.NewCheckoutService(stripeClient, validate, services.CheckoutOptions{
		SuccessURL: services.SuccessURL(cfg.FrontendURL),
		CancelURL:  services.CancelURL(cfg.FrontendURL),
		Timeout:    cfg.StripeTimeout,
		Metrics:    metrics,
	}, log)
	reconciler := services.NewReconciler(stripeClient, stripeClient, orderRepo, services.ReconcilerOptions{
		FetchTimeout: cfg.StripeTimeout,
		Publisher:    publisher,
		Metrics:      metrics,
	}, log)
	productCache := services.NewProductCache(redisClient, cfg.ProductCacheTTL, metrics, log)
	productService := services.NewProductService(productRepo, productCache, validate, log)
	userService := services.NewUserService(userRepo, tokens, validate, log)
	orderService := services.NewOrderService(orderRepo)

	// --- HTTP ---
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.RequestTimeout(30 * time.Second))
	r.Use(middleware.Metrics(metrics, serviceName))

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 10*time.Minute)
	routes.RegisterRoutes(r, routes.Controllers{
		Products: controllers.NewProductController(productService, log),
		Users:    controllers.NewUserController(userService, log),
		Checkout: controllers.NewCheckoutController(checkoutService, log),
		Webhook:  controllers.NewWebhookController(reconciler, log),
		Orders:   controllers.NewOrderController(orderService, log),
	}, tokens, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("port", cfg.Port), zap.String("order_store", cfg.OrderStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		log.Error("Server failed", zap.Error(err))
		return err
	case <-quit:
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exiting")
	return nil
}

// openOrderStore returns the configured order backend. The gorm handle is
// non-nil only for the postgres store and must be closed by the caller.
func openOrderStore(cfg *config.Config, mongoDB *database.Mongo, awsCfg sdkaws.Config, log *zap.Logger) (repository.OrderRepo, *gorm.DB, error) {
	switch cfg.OrderStore {
	case config.OrderStoreDynamoDB:
		return repository.NewDynamoOrderRepository(awspkg.NewDynamoDBClient(awsCfg), cfg.OrdersTable), nil, nil
	case config.OrderStorePostgres:
		db, err := database.ConnectPostgres(cfg.PostgresDSN, log)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewGormOrderRepository(db), db, nil
	case config.OrderStoreMemory:
		log.Warn("Using in-memory order store, orders are lost on restart")
		return repository.NewMemoryOrderRepository(), nil, nil
	default:
		return repository.NewMongoOrderRepository(mongoDB.DB), nil, nil
	}
}

func newEventPublisher(cfg *config.Config, awsCfg sdkaws.Config, log *zap.Logger) services.EventPublisher {
	switch cfg.EventPublisher {
	case config.PublisherSNS:
		return services.NewSNSEventPublisher(awspkg.NewSNSClient(awsCfg), cfg.OrderEventsTopicARN)
	case config.PublisherKafka:
		return services.NewKafkaEventPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic, log)
	default:
		return services.NoopEventPublisher{}
	}
}
