package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richardliu001/wallet-api/internal/config"
	"github.com/richardliu001/wallet-api/internal/service"
	"go.uber.org/zap"
)

func NewRouter(svc *service.WalletService, rl config.RateLimitConfig, jwtSecret string, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware(log))

	r.GET("/healthz", healthHandler(svc))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/", RateLimitMiddleware(rl.RPS, rl.Burst), AuthMiddleware(jwtSecret))
	RegisterHandlers(api, svc, log)
	return r
}

func healthHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := svc.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
