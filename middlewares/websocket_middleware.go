package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/tablemate/scanorder/utils"
)

// WebSocketAuthMiddleware authenticates websocket upgrades, where browsers
// cannot set an Authorization header, via a token query parameter.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(401)
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			c.AbortWithStatus(401)
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("storeID", claims.StoreID)
		c.Set("role", claims.Role)

		c.Next()
	}
}
