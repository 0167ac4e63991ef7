package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// DeviceAuthenticator resolves a bearer session token to its device.
type DeviceAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Device, error)
}

// RequireDevice rejects requests without a valid device session token and
// stores the authenticated device on both the gin and the request context.
func RequireDevice(authenticator DeviceAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "PairGate", "Bearer token required")
			return
		}

		device, err := authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, services.ErrUnauthorized) {
				abortUnauthorized(c, "PairGate", "Invalid or expired session token")
				return
			}
			log.Error().Err(err).Msg("device authentication failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success":           false,
				"error":             "internal",
				"error_description": "Internal server error",
			})
			return
		}

		c.Set(models.GinDeviceKey, device)
		c.Request = c.Request.WithContext(models.SetDeviceContext(c.Request.Context(), device))
		c.Next()
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, realm, description string) {
	c.Header("WWW-Authenticate", `Bearer realm="`+realm+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success":           false,
		"error":             "unauthorized",
		"error_description": description,
	})
}
