package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docinsight-backend/model"
	"docinsight-backend/service/insight"
	"docinsight-backend/service/processing"

	"gorm.io/datatypes"
)

var ErrNoPrompt = errors.New("no prompt template or custom prompt provided")

type DocumentFinder interface {
	FindByID(ctx context.Context, id string) (*model.Document, error)
}

type AnalysisStore interface {
	Create(ctx context.Context, analysis *model.Analysis) error
	FindByID(ctx context.Context, id string) (*model.Analysis, error)
	ListByDocument(ctx context.Context, documentID string) ([]model.Analysis, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (*insight.AnalysisResult, error)
}

type Request struct {
	DocumentID       string
	PromptTemplateID string
	CustomPrompt     string
}

type Result struct {
	AnalysisID      string           `json:"analysisId"`
	Response        string           `json:"response"`
	Metadata        insight.Metadata `json:"metadata"`
	ExecutionTimeMs int64            `json:"executionTime"`
	Cached          bool             `json:"cached"`
}

// Service 提示词模板管理与基于模板的文档分析
type Service struct {
	documents DocumentFinder
	templates TemplateStore
	analyses  AnalysisStore
	analyzer  Analyzer
	cache     *Cache
}

func NewService(documents DocumentFinder, templates TemplateStore, analyses AnalysisStore, analyzer Analyzer, cache *Cache) *Service {
	return &Service{
		documents: documents,
		templates: templates,
		analyses:  analyses,
		analyzer:  analyzer,
		cache:     cache,
	}
}

// Analyze 对 ready 的文档执行模板或自定义提示词，相同文档与提示词的结果在缓存有效期内直接返回
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	if req.PromptTemplateID == "" && strings.TrimSpace(req.CustomPrompt) == "" {
		return nil, ErrNoPrompt
	}

	doc, err := s.documents.FindByID(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", req.DocumentID, err)
	}
	if doc == nil {
		return nil, &processing.NotFoundError{Resource: "document", ID: req.DocumentID}
	}

	var tmpl *model.PromptTemplate
	if req.PromptTemplateID != "" {
		if tmpl, err = s.GetTemplate(ctx, req.PromptTemplateID); err != nil {
			return nil, err
		}
	}

	if doc.Status != model.StatusReady || doc.ExtractedText == nil {
		return nil, &processing.NotReadyError{DocumentID: doc.ID, Status: string(doc.Status)}
	}

	finalPrompt := req.CustomPrompt
	if strings.TrimSpace(finalPrompt) == "" {
		finalPrompt = RenderPrompt(tmpl.PromptText, *doc.ExtractedText)
	}

	if res, ok := s.cache.Get(doc.ID, finalPrompt); ok {
		res.Cached = true
		return &res, nil
	}

	analysis := &model.Analysis{
		DocumentID:  doc.ID,
		FinalPrompt: finalPrompt,
	}
	if tmpl != nil {
		analysis.PromptTemplateID = &tmpl.ID
	}
	if err := s.analyses.Create(ctx, analysis); err != nil {
		return nil, fmt.Errorf("failed to create analysis: %w", err)
	}

	start := time.Now()
	out, err := s.analyzer.Analyze(ctx, finalPrompt)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		s.recordFailure(ctx, analysis.ID, elapsed, err)
		return nil, err
	}

	meta := datatypes.JSONMap{
		"model":     out.Metadata.Model,
		"timestamp": out.Metadata.Timestamp.Format(time.RFC3339),
	}
	if err := s.analyses.Update(ctx, analysis.ID, map[string]any{
		"response":          out.Text,
		"response_metadata": meta,
		"execution_time_ms": elapsed,
	}); err != nil {
		return nil, fmt.Errorf("failed to save analysis %s: %w", analysis.ID, err)
	}

	if tmpl != nil {
		if err := s.templates.IncrementUsage(ctx, tmpl.ID); err != nil {
			slog.Error("Failed to increment prompt template usage", "template_id", tmpl.ID, "err", err)
		}
	}

	res := Result{
		AnalysisID:      analysis.ID,
		Response:        out.Text,
		Metadata:        out.Metadata,
		ExecutionTimeMs: elapsed,
	}
	s.cache.Add(doc.ID, finalPrompt, res)

	slog.Info("Document analyzed",
		"document_id", doc.ID,
		"analysis_id", analysis.ID,
		"execution_time_ms", elapsed,
	)
	return &res, nil
}

func (s *Service) recordFailure(ctx context.Context, id string, elapsed int64, cause error) {
	slog.Error("Failed to analyze document", "analysis_id", id, "err", cause)

	err := s.analyses.Update(context.WithoutCancel(ctx), id, map[string]any{
		"error_message":     cause.Error(),
		"execution_time_ms": elapsed,
	})
	if err != nil {
		slog.Error("Failed to save analysis error", "analysis_id", id, "err", err)
	}
}

// ListByDocument 按创建时间倒序返回文档的分析记录
func (s *Service) ListByDocument(ctx context.Context, documentID string) ([]model.Analysis, error) {
	return s.analyses.ListByDocument(ctx, documentID)
}

func (s *Service) Get(ctx context.Context, id string) (*model.Analysis, error) {
	analysis, err := s.analyses.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis %s: %w", id, err)
	}
	if analysis == nil {
		return nil, &processing.NotFoundError{Resource: "analysis", ID: id}
	}
	return analysis, nil
}

// RenderPrompt 把文档正文填入模板，模板没有占位符时把正文追加到末尾
func RenderPrompt(promptText, content string) string {
	if strings.Contains(promptText, model.DocumentContentPlaceholder) {
		return strings.ReplaceAll(promptText, model.DocumentContentPlaceholder, content)
	}
	return promptText + "\n\n" + content
}
