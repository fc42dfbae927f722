package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"custody_payments_back/pkg/repository"
)

const UserCtx = "user"

// AuthMiddleware резолвит пользователя по X-Api-Token и кладёт его в контекст
func AuthMiddleware(auth repository.Authorization) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiToken := c.GetHeader("X-Api-Token")
		if apiToken == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "api token is required in 'X-Api-Token' header"})
			c.Abort()
			return
		}

		user, err := auth.GetUserByAPIToken(apiToken)
		if err != nil {
			logrus.Errorf("AuthMiddleware: %s", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api token"})
			c.Abort()
			return
		}

		c.Set(UserCtx, user)
		c.Next()
	}
}
