package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"forecast_backend/internal/feature/forecast/transport/handler"
	platformhandler "forecast_backend/internal/platform/http/handler"
	jwtmw "forecast_backend/internal/platform/jwt"
	"forecast_backend/internal/platform/ratelimit"
)

// Deps はルーターが登録するハンドラーとミドルウェアの依存関係です。
type Deps struct {
	Forecast *handler.ForecastHandler
	// Series はSERIES_SOURCE=dbの場合のみ設定され、nilならPUT /series/:metric は登録しません。
	Series       *handler.SeriesHandler
	Limiter      ratelimit.Limiter
	RateWindow   time.Duration
	Metrics      http.Handler
	HealthChecks []platformhandler.Check
	CORSOrigins  []string
	JWTSecret    string
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	// 認証不要
	// 導通確認用
	health := platformhandler.Health(d.HealthChecks...)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	// 予測API（クライアントIPごとのレート制限）
	forecast := r.Group("/")
	if d.Limiter != nil {
		forecast.Use(ratelimit.Middleware(d.Limiter, d.RateWindow))
	}
	{
		forecast.GET("/sales/:months", d.Forecast.GetSales)
		forecast.GET("/income/:months", d.Forecast.GetIncome)
	}

	// 認証必須のルート
	// → リクエストヘッダーに series:write スコープの JWT が必要になる
	if d.Series != nil {
		admin := r.Group("/")
		admin.Use(jwtmw.AuthRequired(d.JWTSecret, jwtmw.ScopeSeriesWrite))
		{
			admin.PUT("/series/:metric", d.Series.Upsert)
		}
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
