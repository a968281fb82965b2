package controller

import (
	"context"
	"docinsight-backend/response"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck 检查依赖是否可用，check 为 nil 时总是健康
func HealthCheck(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				slog.Error(ErrServiceNotHealthy.Error(), "err", err)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, response.Response{
					Msg: ErrServiceNotHealthy.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, response.Response{
			Data: response.HealthResponse{Status: "ok"},
		})
	}
}
