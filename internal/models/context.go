package models

import (
	"context"

	"github.com/gin-gonic/gin"
)

type deviceContextKey struct{}

// GinDeviceKey is the gin context key the auth middleware stores the device under.
const GinDeviceKey = "device"

// SetDeviceContext returns a copy of ctx carrying the authenticated device.
// A nil device leaves ctx unchanged.
func SetDeviceContext(ctx context.Context, device *Device) context.Context {
	if device == nil {
		return ctx
	}
	return context.WithValue(ctx, deviceContextKey{}, device)
}

// GetDeviceFromContext returns the authenticated device, checking the gin
// context first and then the standard context values.
func GetDeviceFromContext(ctx context.Context) *Device {
	if ctx == nil {
		return nil
	}
	if ginCtx, ok := ctx.(*gin.Context); ok {
		if v, exists := ginCtx.Get(GinDeviceKey); exists {
			if device, ok := v.(*Device); ok {
				return device
			}
		}
		if ginCtx.Request == nil {
			return nil
		}
		ctx = ginCtx.Request.Context()
	}
	device, _ := ctx.Value(deviceContextKey{}).(*Device)
	return device
}

// GetDeviceIDFromContext returns "" when no device is authenticated.
func GetDeviceIDFromContext(ctx context.Context) string {
	if device := GetDeviceFromContext(ctx); device != nil {
		return device.ID
	}
	return ""
}
