package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"forecast_backend/internal/app/config"
	"forecast_backend/internal/app/di"
	"forecast_backend/internal/app/router"
	"forecast_backend/internal/feature/forecast/adapters"
	"forecast_backend/internal/feature/forecast/stationarity"
	"forecast_backend/internal/feature/forecast/transport/handler"
	"forecast_backend/internal/feature/forecast/usecase"
	platformdb "forecast_backend/internal/platform/db"
	platformhandler "forecast_backend/internal/platform/http/handler"
	"forecast_backend/internal/platform/metrics"
	platformredis "forecast_backend/internal/platform/redis"
)

func main() {
	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	var checks []platformhandler.Check

	// db（SERIES_SOURCE=db の場合のみ）
	var db *gorm.DB
	if cfg.SeriesSource == config.SourceDB {
		db, err = platformdb.OpenDB(cfg.DB, &adapters.SeriesPointModel{})
		if err != nil {
			log.Fatal(err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatal(err)
		}
		defer func() { _ = sqlDB.Close() }()
		checks = append(checks, platformhandler.Check{Name: "db", Ping: sqlDB.PingContext})
	}

	// Redis
	var rdb *redisv9.Client
	if cfg.Redis.Enabled() {
		if tmp, err := platformredis.NewRedisClient(context.Background(), cfg.Redis); err != nil {
			log.Println("[WARN] Redis unavailable. Rate limiting per instance.")
		} else {
			rdb = tmp
			defer func() {
				if err := rdb.Close(); err != nil {
					log.Println("[ERROR] Failed to close Redis client:", err)
				}
			}()
			checks = append(checks, platformhandler.Check{Name: "redis", Ping: func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}})
		}
	}

	// Repository
	seriesRepo, err := di.NewSeriesRepository(cfg, db)
	if err != nil {
		log.Fatal(err)
	}

	// Usecase
	m := metrics.New(nil)
	forecastUC := usecase.NewForecastUsecase(seriesRepo, usecase.NewOrchestrator(stationarity.NewTester()), m)

	// Handler
	deps := router.Deps{
		Forecast:     handler.NewForecastHandler(forecastUC),
		Limiter:      di.NewRateLimiter(rdb, cfg.RateLimitPerMinute),
		RateWindow:   di.RateLimitWindow,
		Metrics:      m.Handler(),
		HealthChecks: checks,
		CORSOrigins:  cfg.CORSAllowOrigins,
		JWTSecret:    cfg.JWTSecret,
	}
	if db != nil {
		ingestUC := usecase.NewIngestUsecase(nil, adapters.NewSeriesRepository(db))
		deps.Series = handler.NewSeriesHandler(ingestUC)
		// JWT_SECRETチェック（開発中の注意喚起）
		if cfg.JWTSecret == "" {
			log.Println("[WARN] JWT_SECRET is not set. PUT /series/:metric will reject every request.")
		}
	}

	// ルータ生成
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr, "series_source", cfg.SeriesSource)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}
