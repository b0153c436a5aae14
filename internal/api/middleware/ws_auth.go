package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// WSAuth reads an optional ?token= or Authorization header on the upgrade
// request. A valid token pins the connection to its user and a bad one is
// refused. Without a token the client authenticates in-band.
func (am *AuthMiddleware) WSAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			// Browsers cannot set headers on an upgrade; other clients can.
			tokenString = c.GetHeader("Authorization")
		}
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := am.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		userID, err := UserIDFromClaims(claims)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user ID in token"})
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}
