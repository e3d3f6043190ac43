package middleware

import (
	"mergeflow/internal/repository"

	"github.com/gin-gonic/gin"
)

func SDKAuthMiddleware(repo repository.SDKRepository, bypass bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bypass {
			c.Next()
			return
		}

		apiKey := c.GetHeader("X-Mergeflow-Key")
		project := c.Query("project")

		if apiKey == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "missing API key"})
			return
		}

		ok, err := repo.ValidateAPIKey(c.Request.Context(), apiKey, project)
		if err != nil || !ok {
			c.AbortWithStatusJSON(403, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}
