package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"duemate/internal/config"
	"duemate/internal/db"
	apihttp "duemate/internal/http"
	applog "duemate/internal/logger"
	"duemate/internal/notify"
	"duemate/internal/repository"
	"duemate/internal/service"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, err := applog.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(cfg.DatabaseURL, "up"); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
		logger.Info("database migrations applied")
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	paymentRepo := repository.NewPgPaymentRepository(pool)

	var (
		challenges service.ChallengeStore
		limiter    service.AttemptLimiter
		tokenStore service.RefreshTokenStore
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, falling back to in-memory stores", zap.Error(err))
		} else {
			challenges = service.NewRedisChallengeStore(redisClient, cfg.OTPTTL+time.Minute)
			limiter = service.NewRedisAttemptLimiter(redisClient, cfg.OTPVerifyWindow, cfg.OTPVerifyLimit)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
		}
		cancel()
	}
	if challenges == nil {
		mem := service.NewMemoryChallengeStore()
		go purgeChallenges(ctx, logger, mem, cfg.OTPTTL+time.Minute)
		challenges = mem
		limiter = service.NewAttemptLimiter(cfg.OTPVerifyWindow, cfg.OTPVerifyLimit, nil)
	}

	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	jwtSvc := service.NewJWTService(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)

	otpMetrics, err := service.NewOTPMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("otp metrics", zap.Error(err))
	}
	httpMetrics, err := apihttp.NewHTTPMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("http metrics", zap.Error(err))
	}

	gateway := notify.FromConfig(cfg, logger)
	otpSvc := service.NewOTPService(logger, userRepo, challenges, gateway, limiter, jwtSvc, service.OTPServiceConfig{
		TTL:             cfg.OTPTTL,
		DeliveryTimeout: cfg.OTPDeliveryTimeout,
		StoreTimeout:    cfg.OTPStoreTimeout,
	}).WithMetrics(otpMetrics)
	paymentSvc := service.NewPaymentService(logger, paymentRepo, nil)

	authHandler := apihttp.NewAuthHandler(logger, otpSvc, jwtSvc)
	paymentHandler := apihttp.NewPaymentHandler(logger, paymentSvc, nil)
	healthHandler := apihttp.NewHealthHandler(logger, pool)
	router := apihttp.NewRouter(logger, authHandler, paymentHandler, healthHandler, jwtSvc, httpMetrics, promhttp.Handler(), cfg.TrustedProxies)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           apihttp.WithCORS(router, cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.Bool("demo_mode", cfg.DemoMode))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

// purgeChallenges elimina periódicamente los challenges que ya nadie puede canjear.
func purgeChallenges(ctx context.Context, logger *zap.Logger, store *service.MemoryChallengeStore, retention time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := store.Purge(now.Add(-retention)); n > 0 {
				logger.Debug("purged stale otp challenges", zap.Int("count", n), zap.Int("remaining", store.Len()))
			}
		}
	}
}
