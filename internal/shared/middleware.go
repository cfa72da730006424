package shared

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

func MetricsMiddleware(metrics *AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		metrics.IncrementActiveConnections(c.Request.Context())
		defer metrics.DecrementActiveConnections(c.Request.Context())

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		metrics.RecordRequest(
			c.Request.Context(),
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
			duration,
		)
	}
}

func SetupGinMiddleware(router *gin.Engine, serviceName string, metrics *AppMetrics, logger *AppLogger) {
	SetupGinMiddlewareWithConfig(router, serviceName, metrics, logger, GetDefaultConfig())
}

func SetupGinMiddlewareWithConfig(router *gin.Engine, serviceName string, metrics *AppMetrics, logger *AppLogger, config *AppConfig) {
	httpsEnforcer := NewHTTPSEnforcer(logger.Logger.Logger)
	router.Use(httpsEnforcer.HTTPSMiddleware())

	router.Use(otelgin.Middleware(serviceName))

	router.Use(LoggingMiddleware(logger))

	if config.CacheEnabled {
		store := newCacheStore(config, logger.Logger.Logger)

		responseCache := NewResponseCache(store, logger.Logger.Logger, metrics)
		for path, cacheConfig := range config.CacheConfigs {
			responseCache.SetConfig(path, cacheConfig)
		}
		router.Use(responseCache.CacheMiddleware())
	}

	if config.RateLimitEnabled {
		rateLimiter := NewRateLimiter(logger.Logger.Logger, metrics)
		for path, limitConfig := range config.RateLimitConfigs {
			rateLimiter.SetConfig(path, RateLimitEndpointConfig{
				Requests: limitConfig.Requests,
				Window:   limitConfig.Window,
				KeyFunc:  getUserID,
			})
		}
		router.Use(rateLimiter.RateLimitMiddleware())
	}

	router.Use(MetricsMiddleware(metrics))
}

// newCacheStore picks the configured backend, falling back to memory
// when redis is unreachable or misconfigured.
func newCacheStore(config *AppConfig, logger *zap.Logger) CacheStore {
	if config.CacheStore == "redis" && config.RedisURL != "" {
		store, err := NewRedisCacheStore(config.RedisURL)

		if err == nil {
			return store
		}

		logger.Warn("Redis cache store unavailable, using memory store",
			zap.Error(err))
	}

	return NewMemoryCacheStore()
}
