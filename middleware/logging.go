package middleware

import (
	"docinsight-backend/service/metrics"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger 记录请求日志与 HTTP 指标，路由使用注册时的模板路径以控制标签数量
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", latency,
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			slog.Error("HTTP request", attrs...)
		case route == "/metrics" || route == "/healthz":
			slog.Debug("HTTP request", attrs...)
		default:
			slog.Info("HTTP request", attrs...)
		}
	}
}
