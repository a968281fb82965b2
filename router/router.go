package router

import (
	"context"
	"docinsight-backend/controller"
	"docinsight-backend/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const TokenQueryParam = "token"

type Deps struct {
	Documents *controller.DocumentController
	Prompts   *controller.PromptController
	Analysis  *controller.AnalysisController

	// 为空时不启用鉴权
	JWTSecretKey string
	AllowOrigins []string

	// 上传请求在内存中缓存的最大字节数
	MaxMultipartMemory int64

	HealthCheck func(ctx context.Context) error
}

func Register(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.Use(middleware.CORSMiddleware(deps.AllowOrigins))
	if deps.MaxMultipartMemory > 0 {
		r.MaxMultipartMemory = deps.MaxMultipartMemory
	}

	r.GET("/healthz", controller.HealthCheck(deps.HealthCheck))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 浏览器的 EventSource 与 WebSocket 无法设置请求头，令牌可通过 ?token= 传递
	streams := r.Group("/api/documents")
	streams.Use(middleware.AuthMiddleware(deps.JWTSecretKey, middleware.WithQueryToken(TokenQueryParam)))
	{
		streams.GET("/:id/status/stream", deps.Documents.StreamStatus)
		streams.GET("/:id/status/ws", deps.Documents.WatchStatus)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(deps.JWTSecretKey))
	{
		documents := api.Group("/documents")
		{
			documents.POST("/upload", deps.Documents.Upload)
			documents.GET("", deps.Documents.List)
			documents.GET("/:id", deps.Documents.Get)
			documents.GET("/:id/status", deps.Documents.Status)
			documents.GET("/:id/content", deps.Documents.Content)
			documents.POST("/:id/ask", deps.Documents.Ask)
			documents.POST("/:id/cancel", deps.Documents.Cancel)
			documents.GET("/:id/download-link", deps.Documents.DownloadLink)
		}

		prompts := api.Group("/prompts")
		{
			prompts.GET("", deps.Prompts.List)
			prompts.POST("", deps.Prompts.Create)
			prompts.POST("/initialize", deps.Prompts.Initialize)
			prompts.GET("/:id", deps.Prompts.Get)
			prompts.PUT("/:id", deps.Prompts.Update)
			prompts.DELETE("/:id", deps.Prompts.Delete)
		}

		analysis := api.Group("/analysis")
		{
			analysis.POST("/analyze", deps.Analysis.Analyze)
			analysis.GET("/document/:documentId", deps.Analysis.ListByDocument)
			analysis.GET("/:id", deps.Analysis.Get)
		}
	}

	return r
}
