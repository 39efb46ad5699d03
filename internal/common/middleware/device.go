package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContextKeyDeviceID = "device_id"
	CookieDeviceID     = "device_id"

	deviceCookieMaxAge = 365 * 24 * 60 * 60
)

// DeviceID issues a long-lived anonymous device cookie. It keys the identity
// cache the way browser local storage did.
func DeviceID(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID, err := c.Cookie(CookieDeviceID)
		if _, perr := uuid.Parse(deviceID); err != nil || perr != nil {
			deviceID = uuid.New().String()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CookieDeviceID, deviceID, deviceCookieMaxAge, "/", "", secure, true)
		}

		c.Set(ContextKeyDeviceID, deviceID)
		c.Next()
	}
}

// GetDeviceID returns the id set by DeviceID.
func GetDeviceID(c *gin.Context) string {
	return c.GetString(ContextKeyDeviceID)
}
