package middleware

import (
	"todoweb/pkg/requestctx"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestMetaMiddleware attaches per-request metadata to the request
// context before identity and handlers run.
func RequestMetaMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := requestctx.New()

		meta.Set("request_id", c.GetHeader("X-Request-ID"))

		if requestID, _ := meta.GetString("request_id"); requestID == "" {
			meta.Set("request_id", uuid.New().String())
		}

		meta.Set("user_agent", c.Request.UserAgent())
		meta.Set("ip_address", c.ClientIP())
		meta.Set("method", c.Request.Method)
		meta.Set("path", c.Request.URL.Path)

		ctx := requestctx.WithMeta(c.Request.Context(), meta)
		c.Request = c.Request.WithContext(ctx)

		c.Set("request-meta", meta)

		c.Next()
	}
}

func GetRequestMeta(c *gin.Context) *requestctx.Meta {
	if meta, ok := c.Get("request-meta"); ok {
		if m, ok := meta.(*requestctx.Meta); ok {
			return m
		}
	}

	return requestctx.GetMeta(c.Request.Context())
}
