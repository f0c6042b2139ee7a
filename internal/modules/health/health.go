package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	redispkg "github.com/lendfront/portal-core/internal/pkg/redis"
	"gorm.io/gorm"
)

// RegisterRoutes exposes a liveness/readiness endpoint that pings the
// database and Redis.
func RegisterRoutes(rg *gin.RouterGroup, db *gorm.DB, rdb *redispkg.Client) {
	rg.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		dbOK := err == nil && sqlDB.Ping() == nil

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		redisOK := rdb != nil && rdb.Raw().Ping(ctx).Err() == nil

		status := "ok"
		code := http.StatusOK
		if !dbOK || !redisOK {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":   status,
			"database": dbOK,
			"redis":    redisOK,
		})
	})
}
