package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
	"unicode/utf16"

	"docinsight-backend/dao"
	"docinsight-backend/model"
	"docinsight-backend/service/extraction"
	"docinsight-backend/service/insight"
	"docinsight-backend/service/metrics"

	"gorm.io/datatypes"
)

// DocumentStore 文档记录的读取与带版本号的更新
type DocumentStore interface {
	FindByID(ctx context.Context, id string) (*model.Document, error)
	Update(ctx context.Context, id string, version int64, fields map[string]any) (int64, error)
}

type TextExtractor interface {
	Extract(ctx context.Context, filePath, mimeType string) (*extraction.Result, error)
}

type InsightGenerator interface {
	GenerateInsights(ctx context.Context, text string) (*insight.Insights, error)
}

// Archiver 把原始文件归档到对象存储，返回对象名
type Archiver interface {
	Archive(ctx context.Context, documentID, originalName, filePath string) (string, error)
}

type Task struct {
	DocumentID string `json:"documentId"`
	FilePath   string `json:"filePath"`
}

// Pipeline 执行单个文档的 提取 -> 生成洞察 流程，每次状态变化单独持久化
type Pipeline struct {
	store      DocumentStore
	extractor  TextExtractor
	generator  InsightGenerator
	archiver   Archiver
	removeFile func(string) error
	now        func() time.Time
}

type PipelineOption func(*Pipeline)

func WithArchiver(a Archiver) PipelineOption {
	return func(p *Pipeline) {
		p.archiver = a
	}
}

func WithRemoveFile(fn func(string) error) PipelineOption {
	return func(p *Pipeline) {
		p.removeFile = fn
	}
}

func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

func NewPipeline(store DocumentStore, extractor TextExtractor, generator InsightGenerator, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:      store,
		extractor:  extractor,
		generator:  generator,
		removeFile: os.Remove,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run 单次处理过程中文档的内存副本，只有当前 worker 会写入
type run struct {
	p     *Pipeline
	doc   *model.Document
	state State
}

// Run 处理文档直到 ready 或 error。失败时已持久化的字段保持不变，错误写入文档后返回给调用方
func (p *Pipeline) Run(ctx context.Context, task Task) error {
	// 状态写入不受取消影响，保证取消后仍能记录 error
	storeCtx := context.WithoutCancel(ctx)

	doc, err := p.store.FindByID(storeCtx, task.DocumentID)
	if err != nil {
		return fmt.Errorf("failed to load document %s: %w", task.DocumentID, err)
	}
	if doc == nil {
		return &NotFoundError{Resource: "document", ID: task.DocumentID}
	}

	// 只处理尚未开始的文档，重复投递的任务直接返回
	state := StateOf(doc)
	if state != StateUploaded {
		return fmt.Errorf("%w: document %s is already %s", ErrInvalidTransition, doc.ID, state)
	}

	r := &run{p: p, doc: doc, state: state}
	if err := r.process(ctx, storeCtx, task); err != nil {
		r.fail(storeCtx, err)
		return err
	}

	metrics.DocumentsProcessed.WithLabelValues(metrics.ResultReady).Inc()
	slog.Info("Document processed", "document_id", doc.ID, "filename", doc.OriginalName)

	if err := p.removeFile(task.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		metrics.FileCleanupFailures.Inc()
		slog.Error("Failed to remove uploaded file",
			"document_id", doc.ID,
			"path", task.FilePath,
			"err", err,
		)
	}
	return nil
}

func (r *run) process(ctx, storeCtx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.advance(storeCtx, EventStart, nil); err != nil {
		return err
	}

	start := r.p.now()
	result, err := r.p.extractor.Extract(ctx, task.FilePath, r.doc.MimeType())
	metrics.StageDuration.WithLabelValues(string(StateExtracting)).Observe(r.p.now().Sub(start).Seconds())
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	text := result.Text
	textLength := TextLength(text)
	meta := r.metadata()
	if result.PageCount > 0 {
		meta[model.MetaPageCount] = result.PageCount
	}
	if err := r.advance(storeCtx, EventExtracted, map[string]any{
		"extracted_text": text,
		"text_length":    textLength,
		"metadata":       meta,
	}); err != nil {
		return err
	}
	r.doc.ExtractedText = &text
	r.doc.TextLength = &textLength
	r.doc.Metadata = meta

	start = r.p.now()
	res, err := r.p.generator.GenerateInsights(ctx, text)
	metrics.StageDuration.WithLabelValues(string(StatePreparing)).Observe(r.p.now().Sub(start).Seconds())
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	meta = r.metadata()
	meta[model.MetaAnalysisDate] = res.Metadata.Timestamp.Format(time.RFC3339)
	meta[model.MetaModel] = res.Metadata.Model
	if object := r.archive(ctx, task); object != "" {
		meta[model.MetaArchiveObject] = object
	}

	return r.advance(storeCtx, EventGenerated, map[string]any{
		"insights": res.Insights,
		"metadata": meta,
	})
}

// archive 归档失败只记录日志，不影响文档进入 ready
func (r *run) archive(ctx context.Context, task Task) string {
	if r.p.archiver == nil {
		return ""
	}

	object, err := r.p.archiver.Archive(ctx, r.doc.ID, r.doc.OriginalName, task.FilePath)
	if err != nil {
		metrics.ArchiveFailures.Inc()
		slog.Error("Failed to archive uploaded file", "document_id", r.doc.ID, "err", err)
		return ""
	}
	return object
}

// advance 执行状态转换并持久化，fields 为该阶段需要额外写入的字段
func (r *run) advance(ctx context.Context, ev Event, fields map[string]any) error {
	to, err := Transition(r.state, ev)
	if err != nil {
		return err
	}

	stage := StageOf(to)
	values := map[string]any{
		"status":        stage.Status,
		"current_stage": stage.Label,
	}
	if stage.Progress >= 0 {
		values["progress"] = stage.Progress
	}
	for k, v := range fields {
		values[k] = v
	}

	version, err := r.p.store.Update(ctx, r.doc.ID, r.doc.Version, values)
	if err != nil {
		return fmt.Errorf("failed to persist %s state: %w", to, err)
	}

	slog.Debug("Document state changed",
		"document_id", r.doc.ID,
		"from", r.state,
		"to", to,
		"version", version,
	)

	r.doc.Version = version
	r.doc.Status = stage.Status
	r.doc.CurrentStage = stage.Label
	if stage.Progress >= 0 {
		r.doc.Progress = stage.Progress
	}
	r.state = to
	return nil
}

// fail 记录 error 状态，文档已处于终态或被其他写入方修改时只记录日志
func (r *run) fail(ctx context.Context, cause error) {
	result := metrics.ResultError
	if errors.Is(cause, context.Canceled) {
		result = metrics.ResultCancelled
	}
	metrics.DocumentsProcessed.WithLabelValues(result).Inc()

	slog.Error("Failed to process document",
		"document_id", r.doc.ID,
		"state", r.state,
		"err", cause,
	)

	if errors.Is(cause, dao.ErrVersionConflict) {
		return
	}

	msg := cause.Error()
	if err := r.advance(ctx, EventFail, map[string]any{"error": msg}); err != nil {
		slog.Error("Failed to persist error state", "document_id", r.doc.ID, "err", err)
		return
	}
	r.doc.Error = &msg
}

// metadata 返回当前元数据的副本，新键在副本上追加
func (r *run) metadata() datatypes.JSONMap {
	meta := make(datatypes.JSONMap, len(r.doc.Metadata)+4)
	for k, v := range r.doc.Metadata {
		meta[k] = v
	}
	return meta
}

// TextLength 按 UTF-16 码元计数，与前端 string.length 一致
func TextLength(text string) int {
	return len(utf16.Encode([]rune(text)))
}
