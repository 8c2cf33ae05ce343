// Package di provides dependency injection factories for creating application components.
package di

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"forecast_backend/internal/app/config"
	"forecast_backend/internal/feature/forecast/adapters"
	"forecast_backend/internal/feature/forecast/usecase"
	"forecast_backend/internal/platform/ratelimit"
)

// RateLimitWindow is the fixed window the per-minute limit applies to.
const RateLimitWindow = time.Minute

// NewSeriesRepository returns the series source selected by SERIES_SOURCE.
// The database source requires db.
func NewSeriesRepository(cfg config.Config, db *gorm.DB) (usecase.SeriesRepository, error) {
	if cfg.SeriesSource == config.SourceDB {
		if db == nil {
			return nil, errors.New("SERIES_SOURCE=db requires a database connection")
		}
		return adapters.NewSeriesRepository(db), nil
	}
	return adapters.NewCSVSeriesRepository(cfg.DataDir), nil
}

// NewRateLimiter creates a Limiter.
// If Redis is available, it returns a Redis-backed limiter that falls back to
// an in-process limiter when Redis errors. Otherwise, it returns the in-process limiter.
func NewRateLimiter(rdb *redis.Client, perMinute int) ratelimit.Limiter {
	local := ratelimit.NewLocalLimiter(perMinute, RateLimitWindow)
	if rdb != nil {
		return ratelimit.NewFallbackLimiter(ratelimit.NewRedisLimiter(rdb, perMinute, RateLimitWindow), local)
	}
	return local
}
