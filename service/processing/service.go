package processing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docinsight-backend/model"
	"docinsight-backend/service/extraction"
	"docinsight-backend/service/insight"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrEmptyQuestion   = errors.New("question is required")
	ErrNotCancellable  = errors.New("document has no running task")
	errNoScheduler     = errors.New("no scheduler configured")
	allowedUploadTypes = []string{extraction.MimeTypePDF, extraction.MimeTypeText}
)

// DocumentRepository 文档记录存储
type DocumentRepository interface {
	DocumentStore
	Create(ctx context.Context, doc *model.Document) error
	List(ctx context.Context) ([]model.Document, error)
}

// Scheduler 把处理任务交给 worker，本地队列或消息队列
type Scheduler interface {
	Schedule(ctx context.Context, task Task) error
}

// Canceller 取消文档正在进行的任务
type Canceller interface {
	Cancel(documentID string) bool
}

type QuestionAnswerer interface {
	AnswerQuestion(ctx context.Context, text, question string) (*insight.Answer, error)
}

type UploadInput struct {
	OriginalName string
	MimeType     string
	Size         int64
	Content      io.Reader
}

type StatusView struct {
	Status       model.Status `json:"status"`
	CurrentStage string       `json:"currentStage"`
	Progress     int          `json:"progress"`
	Error        *string      `json:"error,omitempty"`
}

type ContentView struct {
	ExtractedText *string `json:"extractedText"`
	TextLength    *int    `json:"textLength"`
}

type QAResult struct {
	DocumentID string           `json:"documentId"`
	Question   string           `json:"question"`
	Answer     string           `json:"answer"`
	Metadata   insight.Metadata `json:"metadata"`
}

// Service 文档上传、状态查询与问答
type Service struct {
	store       DocumentRepository
	scheduler   Scheduler
	answerer    QuestionAnswerer
	uploadDir   string
	maxFileSize int64
	now         func() time.Time
}

func NewService(store DocumentRepository, scheduler Scheduler, answerer QuestionAnswerer, uploadDir string, maxFileSize int64) *Service {
	return &Service{
		store:       store,
		scheduler:   scheduler,
		answerer:    answerer,
		uploadDir:   uploadDir,
		maxFileSize: maxFileSize,
		now:         time.Now,
	}
}

// ValidateUpload 检查文件类型与大小
func (s *Service) ValidateUpload(mimeType string, size int64) error {
	normalized := extraction.NormalizeMimeType(mimeType)
	supported := false
	for _, t := range allowedUploadTypes {
		if normalized == t {
			supported = true
			break
		}
	}
	if !supported {
		return &extraction.UnsupportedTypeError{MimeType: mimeType}
	}
	if size > s.maxFileSize {
		return ErrFileTooLarge
	}
	return nil
}

// Upload 保存文件、创建文档记录并提交处理任务，不等待处理完成
func (s *Service) Upload(ctx context.Context, in UploadInput) (*model.Document, error) {
	if err := s.ValidateUpload(in.MimeType, in.Size); err != nil {
		return nil, err
	}

	filename := uuid.New().String() + strings.ToLower(filepath.Ext(in.OriginalName))
	path := filepath.Join(s.uploadDir, filename)

	written, err := s.saveFile(path, in.Content)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		Filename:     filename,
		OriginalName: in.OriginalName,
		FileSize:     written,
		Metadata: datatypes.JSONMap{
			model.MetaMimeType:   extraction.NormalizeMimeType(in.MimeType),
			model.MetaUploadDate: s.now().UTC().Format(time.RFC3339),
		},
	}
	if err := s.store.Create(ctx, doc); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	slog.Info("Document uploaded",
		"document_id", doc.ID,
		"filename", doc.OriginalName,
		"size", doc.FileSize,
	)

	if err := s.schedule(ctx, Task{DocumentID: doc.ID, FilePath: path}); err != nil {
		s.markScheduleFailed(ctx, doc, err)
		// 没有任务会处理该文件
		if rmErr := os.Remove(path); rmErr != nil {
			slog.Warn("Failed to remove unscheduled upload", "path", path, "err", rmErr)
		}
		return nil, err
	}
	return doc, nil
}

func (s *Service) saveFile(path string, content io.Reader) (int64, error) {
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create upload dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	// 多读一个字节用于判断是否超出限制
	written, err := io.Copy(f, io.LimitReader(content, s.maxFileSize+1))
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("failed to save file: %w", err)
	}
	if written > s.maxFileSize {
		_ = os.Remove(path)
		return 0, ErrFileTooLarge
	}
	return written, nil
}

func (s *Service) schedule(ctx context.Context, task Task) error {
	if s.scheduler == nil {
		return errNoScheduler
	}
	return s.scheduler.Schedule(ctx, task)
}

// markScheduleFailed 任务提交失败时直接把文档置为 error
func (s *Service) markScheduleFailed(ctx context.Context, doc *model.Document, cause error) {
	slog.Error("Failed to schedule document", "document_id", doc.ID, "err", cause)

	stage := StageOf(StateError)
	_, err := s.store.Update(context.WithoutCancel(ctx), doc.ID, doc.Version, map[string]any{
		"status":        stage.Status,
		"current_stage": stage.Label,
		"error":         cause.Error(),
	})
	if err != nil {
		slog.Error("Failed to persist error state", "document_id", doc.ID, "err", err)
	}
}

func (s *Service) List(ctx context.Context) ([]model.Document, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	if doc == nil {
		return nil, &NotFoundError{Resource: "document", ID: id}
	}
	return doc, nil
}

func (s *Service) Status(ctx context.Context, id string) (*StatusView, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return statusOf(doc), nil
}

func (s *Service) Content(ctx context.Context, id string) (*ContentView, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ContentView{ExtractedText: doc.ExtractedText, TextLength: doc.TextLength}, nil
}

// WatchStatus 按 interval 轮询文档状态，状态变化时调用 fn，文档进入终态或 ctx 结束时返回
func (s *Service) WatchStatus(ctx context.Context, id string, interval time.Duration, fn func(*StatusView) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *StatusView
	for {
		view, err := s.Status(ctx, id)
		if err != nil {
			return err
		}

		if last == nil || !last.equal(view) {
			if err := fn(view); err != nil {
				return err
			}
			last = view
		}
		if view.Status.IsTerminal() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cancel 取消文档正在进行的处理任务，文档随后进入 error
func (s *Service) Cancel(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status.IsTerminal() {
		return ErrNotCancellable
	}

	canceller, ok := s.scheduler.(Canceller)
	if !ok || !canceller.Cancel(id) {
		return ErrNotCancellable
	}
	slog.Info("Document processing cancelled", "document_id", id)
	return nil
}

// AnswerQuestion 基于文档全文回答问题，文本尚未提取时不调用模型
func (s *Service) AnswerQuestion(ctx context.Context, id, question string) (*QAResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.ExtractedText == nil {
		return nil, &NotReadyError{DocumentID: id, Status: string(doc.Status)}
	}

	answer, err := s.answerer.AnswerQuestion(ctx, *doc.ExtractedText, question)
	if err != nil {
		return nil, err
	}

	return &QAResult{
		DocumentID: id,
		Question:   question,
		Answer:     answer.Answer,
		Metadata:   answer.Metadata,
	}, nil
}

func (v *StatusView) equal(o *StatusView) bool {
	if v.Status != o.Status || v.CurrentStage != o.CurrentStage || v.Progress != o.Progress {
		return false
	}
	if v.Error == nil || o.Error == nil {
		return v.Error == o.Error
	}
	return *v.Error == *o.Error
}

func statusOf(doc *model.Document) *StatusView {
	return &StatusView{
		Status:       doc.Status,
		CurrentStage: doc.CurrentStage,
		Progress:     doc.Progress,
		Error:        doc.Error,
	}
}
