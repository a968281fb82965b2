package controller

import (
	"docinsight-backend/dao"
	"docinsight-backend/response"
	"docinsight-backend/service/analysis"
	"docinsight-backend/service/extraction"
	"docinsight-backend/service/insight"
	"docinsight-backend/service/processing"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	ErrParseRequest = errors.New("failed to parse request")

	ErrUploadDocument   = errors.New("failed to upload document")
	ErrGetDocuments     = errors.New("failed to get documents")
	ErrGetDocument      = errors.New("failed to get document")
	ErrGetStatus        = errors.New("failed to get document status")
	ErrGetContent       = errors.New("failed to get document content")
	ErrWatchStatus      = errors.New("failed to watch document status")
	ErrAnswerQuestion   = errors.New("failed to answer question")
	ErrCancelProcessing = errors.New("failed to cancel document processing")
	ErrGetPreSignedURL  = errors.New("failed to get presigned url")
	ErrStorageDisabled  = errors.New("object storage is not enabled")
	ErrNotArchived      = errors.New("document has not been archived")

	ErrCreatePromptTemplate = errors.New("failed to create prompt template")
	ErrGetPromptTemplates   = errors.New("failed to get prompt templates")
	ErrGetPromptTemplate    = errors.New("failed to get prompt template")
	ErrUpdatePromptTemplate = errors.New("failed to update prompt template")
	ErrDeletePromptTemplate = errors.New("failed to delete prompt template")
	ErrInitializePrompts    = errors.New("failed to initialize default prompt templates")
	ErrAnalyzeDocument      = errors.New("failed to analyze document")
	ErrGetAnalysisHistory   = errors.New("failed to get analysis history")
	ErrGetAnalysis          = errors.New("failed to get analysis")
	ErrServiceNotHealthy    = errors.New("service is not healthy")
)

// statusOf 按错误类型确定 HTTP 状态码
func statusOf(err error) int {
	var (
		notFound    *processing.NotFoundError
		notReady    *processing.NotReadyError
		unsupported *extraction.UnsupportedTypeError
		generation  *insight.GenerationError
	)

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &notReady),
		errors.As(err, &unsupported),
		errors.Is(err, processing.ErrEmptyQuestion),
		errors.Is(err, analysis.ErrNoPrompt),
		errors.Is(err, analysis.ErrInvalidTemplate):
		return http.StatusBadRequest
	case errors.Is(err, processing.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, processing.ErrNotCancellable),
		errors.Is(err, dao.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, processing.ErrQueueFull),
		errors.Is(err, processing.ErrPoolClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &generation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError 记录错误并返回 JSON，客户端错误返回具体原因，服务端错误只返回 msgErr
func abortWithError(c *gin.Context, msgErr, err error) {
	status := statusOf(err)

	msg := msgErr.Error()
	if status < http.StatusInternalServerError {
		msg = err.Error()
		slog.Info(msgErr.Error(), "err", err, "status", status)
	} else {
		slog.Error(msgErr.Error(), "err", err, "status", status)
	}

	c.AbortWithStatusJSON(status, response.Response{
		Msg: msg,
	})
}

func abortWithParseError(c *gin.Context, err error) {
	slog.Info(ErrParseRequest.Error(), "err", err)
	c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
		Msg: ErrParseRequest.Error(),
	})
}
