package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderAPIKey carries the shared admin key.
const HeaderAPIKey = "X-API-Key"

// APIKey rejects requests whose X-API-Key header does not equal key with
// 403. An empty key disables the check.
func APIKey(key string) gin.HandlerFunc {
	want := []byte(key)
	return func(c *gin.Context) {
		if len(want) == 0 {
			c.Next()
			return
		}
		got := []byte(c.GetHeader(HeaderAPIKey))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "forbidden",
				"message":    "invalid or missing API key",
			})
			return
		}
		c.Next()
	}
}
