package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/config"
	"github.com/yoday/yoday/internal/delivery"
	"github.com/yoday/yoday/internal/handlers"
	"github.com/yoday/yoday/internal/middleware"
	"github.com/yoday/yoday/internal/repository"
	"github.com/yoday/yoday/internal/service"
)

func main() {
	genSecret := flag.Bool("gen-secret", false, "Print a random JWT_SECRET value and exit")
	flag.Parse()

	if *genSecret {
		key, err := service.GenerateSecretKey()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(key)
		return
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx := context.Background()

	stores, closeStores, err := initStores(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize storage")
	}
	defer closeStores()

	sessions, closeSessions, err := initAdminSessions(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize Redis")
	}
	defer closeSessions()

	// Initialize services
	jwtService, err := service.NewJWTService(cfg.JWT, stores.Users, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize JWT service")
	}

	smsGateway, emailGateway := initGateways(cfg, logger)
	otpService := service.NewOTPService(stores.OTP, smsGateway, cfg.OTP, logger)
	adminOTPService := service.NewOTPService(stores.OTP, emailGateway, cfg.AdminOTP, logger)

	authService := service.NewAuthService(
		stores.Users,
		stores.Profiles,
		otpService,
		jwtService,
		service.NewFacebookClient(cfg.Facebook, logger),
		logger,
	)
	adminService := service.NewAdminService(stores.Admins, sessions, adminOTPService, cfg.Admin.SessionTTL, logger)

	router := handlers.NewRouter(
		handlers.NewAuthHandlers(authService, logger),
		handlers.NewAdminHandlers(adminService, cfg.Admin.CookieSecure, logger),
		middleware.NewAuthMiddleware(jwtService, logger),
		middleware.NewAdminMiddleware(adminService, logger),
		logger,
	)

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":    cfg.Server.Port,
			"storage": cfg.Storage.Driver,
			"env":     cfg.AppEnv,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initStores(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.Stores, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return repository.Stores{}, nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return repository.Stores{}, nil, fmt.Errorf("failed to ping postgres: %w", err)
		}
		logger.Info("PostgreSQL pool initialized")
		return repository.NewPostgresStores(pool, logger), pool.Close, nil

	case config.StorageDriverDynamoDB:
		client, err := initDynamoDB(ctx, cfg, logger)
		if err != nil {
			return repository.Stores{}, nil, err
		}
		return repository.NewDynamoStores(client, cfg.DynamoDB.TableName, logger), func() {}, nil

	default:
		logger.Warn("Using in-memory storage; data is lost on restart")
		return repository.NewMemoryStores(), func() {}, nil
	}
}

func initDynamoDB(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.DynamoDB.Endpoint,
						SigningRegion: cfg.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.DynamoDB.Region))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}

// initAdminSessions keeps admin sessions in process memory for the memory
// storage driver, which config refuses in production.
func initAdminSessions(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.AdminSessionStore, func(), error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		logger.Warn("Using in-memory admin sessions; sessions are lost on restart")
		return repository.NewMemoryAdminSessionStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Endpoint,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	logger.Info("Redis client initialized")
	return repository.NewRedisAdminSessionRepository(client, logger), func() { client.Close() }, nil
}

// initGateways swaps in the dry-run gateway for unconfigured providers
// outside production. In production an unconfigured provider fails every
// delivery.
func initGateways(cfg *config.Config, logger *logrus.Logger) (delivery.Gateway, delivery.Gateway) {
	reveal := !cfg.IsProduction()

	var sms delivery.Gateway = delivery.NewSMSGateway(cfg.SMS, logger)
	if !cfg.IsProduction() && (cfg.SMS.BaseURL == "" || cfg.SMS.AuthKey == "") {
		logger.Warn("SMS provider not configured; OTPs are logged instead of sent")
		sms = delivery.NewLogGateway("sms", reveal, logger)
	}

	var email delivery.Gateway = delivery.NewEmailGateway(cfg.Email, cfg.AdminOTP.Expiry, logger)
	if !cfg.IsProduction() && (cfg.Email.Host == "" || cfg.Email.From == "") {
		logger.Warn("SMTP not configured; admin OTPs are logged instead of sent")
		email = delivery.NewLogGateway("email", reveal, logger)
	}
	return sms, email
}
