package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// ServiceTokenHeader carries the shared secret of the settlement service.
const ServiceTokenHeader = "X-Service-Token"

const settlementActor = "settlement-service"

// HashServiceToken returns the bcrypt hash to configure as SERVICE_TOKEN_HASH.
func HashServiceToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	return string(hash), err
}

func serviceTokenMatches(token, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}

// ServiceTokenAuth authenticates the settlement executor. The presented token is
// checked against a bcrypt hash; the plaintext is never configured on this side.
func ServiceTokenAuth(tokenHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())

		if tokenHash == "" {
			logger.Error("Settlement route called but SERVICE_TOKEN_HASH is not configured")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Settlement interface disabled"})
			return
		}

		token := c.GetHeader(ServiceTokenHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ServiceTokenHeader + " header required"})
			return
		}
		if !serviceTokenMatches(token, tokenHash) {
			logger.Warn("Invalid service token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid service token"})
			return
		}

		withActor(c, settlementActor, authMethodServiceToken)
		c.Next()
	}
}
