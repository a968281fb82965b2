package controller

import (
	"context"
	"docinsight-backend/model"
	"docinsight-backend/request"
	"docinsight-backend/response"
	"docinsight-backend/service/processing"
	"docinsight-backend/service/storage"
	"docinsight-backend/utils"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// DownloadLinker 为归档对象生成临时下载链接
type DownloadLinker interface {
	PresignURL(ctx context.Context, objectName string) (*storage.PresignedURL, error)
}

type DocumentController struct {
	docs         *processing.Service
	linker       DownloadLinker
	pollInterval time.Duration
	upgrader     websocket.Upgrader
}

// NewDocumentController linker 为 nil 时下载链接接口返回 503
func NewDocumentController(docs *processing.Service, linker DownloadLinker, pollInterval time.Duration) *DocumentController {
	return &DocumentController{
		docs:         docs,
		linker:       linker,
		pollInterval: pollInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (dc *DocumentController) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		abortWithParseError(c, err)
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if err := dc.docs.ValidateUpload(mimeType, fileHeader.Size); err != nil {
		abortWithError(c, ErrUploadDocument, err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, ErrUploadDocument, err)
		return
	}
	defer file.Close()

	doc, err := dc.docs.Upload(c.Request.Context(), processing.UploadInput{
		OriginalName: fileHeader.Filename,
		MimeType:     mimeType,
		Size:         fileHeader.Size,
		Content:      file,
	})
	if err != nil {
		abortWithError(c, ErrUploadDocument, err)
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: doc,
	})
}

func (dc *DocumentController) List(c *gin.Context) {
	docs, err := dc.docs.List(c.Request.Context())
	if err != nil {
		abortWithError(c, ErrGetDocuments, err)
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}

	c.JSON(http.StatusOK, response.Response{
		Data: docs,
	})
}

func (dc *DocumentController) Get(c *gin.Context) {
	doc, err := dc.docs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, ErrGetDocument, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: doc,
	})
}

func (dc *DocumentController) Status(c *gin.Context) {
	status, err := dc.docs.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, ErrGetStatus, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: status,
	})
}

func (dc *DocumentController) Content(c *gin.Context) {
	content, err := dc.docs.Content(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, ErrGetContent, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: content,
	})
}

// StreamStatus 通过 SSE 推送状态，文档进入终态后结束
func (dc *DocumentController) StreamStatus(c *gin.Context) {
	id := c.Param("id")
	if _, err := dc.docs.Status(c.Request.Context(), id); err != nil {
		abortWithError(c, ErrWatchStatus, err)
		return
	}

	utils.SetSSEHeaders(c)

	err := dc.docs.WatchStatus(c.Request.Context(), id, dc.pollInterval, func(v *processing.StatusView) error {
		utils.SendSSEMessage(c, utils.EventStatus, v)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error(ErrWatchStatus.Error(), "document_id", id, "err", err)
		utils.SendSSEMessage(c, utils.EventError, ErrWatchStatus.Error())
	}
	utils.SendSSEMessage(c, utils.EventDone, "")
}

// WatchStatus 通过 WebSocket 推送状态，文档进入终态后正常关闭连接
func (dc *DocumentController) WatchStatus(c *gin.Context) {
	id := c.Param("id")
	if _, err := dc.docs.Status(c.Request.Context(), id); err != nil {
		abortWithError(c, ErrWatchStatus, err)
		return
	}

	conn, err := dc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Failed to upgrade websocket connection", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// 监听客户端关闭连接
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = dc.docs.WatchStatus(ctx, id, dc.pollInterval, func(v *processing.StatusView) error {
		return conn.WriteJSON(v)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error(ErrWatchStatus.Error(), "document_id", id, "err", err)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, ErrWatchStatus.Error()))
		return
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (dc *DocumentController) Ask(c *gin.Context) {
	var req request.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithParseError(c, err)
		return
	}

	result, err := dc.docs.AnswerQuestion(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		abortWithError(c, ErrAnswerQuestion, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: result,
	})
}

func (dc *DocumentController) Cancel(c *gin.Context) {
	if err := dc.docs.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, ErrCancelProcessing, err)
		return
	}

	c.JSON(http.StatusAccepted, response.Response{})
}

// DownloadLink 返回归档原始文件的临时下载链接
func (dc *DocumentController) DownloadLink(c *gin.Context) {
	if dc.linker == nil {
		slog.Info(ErrStorageDisabled.Error())
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, response.Response{
			Msg: ErrStorageDisabled.Error(),
		})
		return
	}

	doc, err := dc.docs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, ErrGetPreSignedURL, err)
		return
	}

	objectName, _ := doc.Metadata[model.MetaArchiveObject].(string)
	if objectName == "" {
		c.AbortWithStatusJSON(http.StatusNotFound, response.Response{
			Msg: ErrNotArchived.Error(),
		})
		return
	}

	link, err := dc.linker.PresignURL(c.Request.Context(), objectName)
	if err != nil {
		abortWithError(c, ErrGetPreSignedURL, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: response.DownloadLinkResponse{
			URL:       link.URL,
			ExpiresAt: link.ExpiresAt,
		},
	})
}
