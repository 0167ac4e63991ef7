package util

import (
	"context"

	"github.com/gin-gonic/gin"
)

type clientIPKey struct{}

// IPMiddleware extracts the client IP and stores it in the request context
// so services that only see a context.Context can read it.
func IPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Gin's ClientIP() handles X-Forwarded-For and other headers
		ip := c.ClientIP()
		c.Set("client_ip", ip)
		c.Request = c.Request.WithContext(WithClientIP(c.Request.Context(), ip))
		c.Next()
	}
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// GetIPFromContext extracts the client IP address from the context
func GetIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	// Try to extract from Gin context first
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.ClientIP()
	}

	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}

	return ""
}
