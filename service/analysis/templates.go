package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"docinsight-backend/model"
	"docinsight-backend/service/processing"
)

const maxTemplateNameLength = 100

var ErrInvalidTemplate = errors.New("invalid prompt template")

type TemplateStore interface {
	Create(ctx context.Context, tmpl *model.PromptTemplate) error
	FindByID(ctx context.Context, id string) (*model.PromptTemplate, error)
	ListPublic(ctx context.Context) ([]model.PromptTemplate, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Save(ctx context.Context, tmpl *model.PromptTemplate) error
	Delete(ctx context.Context, id string) (bool, error)
	IncrementUsage(ctx context.Context, id string) error
}

type TemplateInput struct {
	Name          string
	Description   string
	PromptText    string
	Category      model.PromptCategory
	Variables     []model.PromptVariable
	ExampleOutput string

	// 为空时新建模板默认公开，更新时保持原值
	IsPublic *bool
}

func (in *TemplateInput) validate() error {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidTemplate)
	case utf8.RuneCountInString(name) > maxTemplateNameLength:
		return fmt.Errorf("%w: name must be at most %d characters", ErrInvalidTemplate, maxTemplateNameLength)
	case strings.TrimSpace(in.PromptText) == "":
		return fmt.Errorf("%w: promptText is required", ErrInvalidTemplate)
	case !in.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidTemplate, in.Category)
	}
	return nil
}

func (in *TemplateInput) apply(tmpl *model.PromptTemplate) {
	tmpl.Name = strings.TrimSpace(in.Name)
	tmpl.Description = in.Description
	tmpl.PromptText = in.PromptText
	tmpl.Category = in.Category
	tmpl.Variables = in.Variables
	tmpl.ExampleOutput = in.ExampleOutput
	if in.IsPublic != nil {
		tmpl.IsPublic = *in.IsPublic
	}
}

var defaultTemplates = []TemplateInput{
	{
		Name:       "Executive Summary",
		Category:   model.CategorySummary,
		PromptText: "Provide a concise executive summary of the following document in 3-5 bullet points: {document_content}",
	},
	{
		Name:       "Key Insights",
		Category:   model.CategoryAnalysis,
		PromptText: "Analyze this document and extract the 5 most important insights: {document_content}",
	},
	{
		Name:       "Action Items",
		Category:   model.CategoryExtraction,
		PromptText: "List all action items, tasks, or next steps mentioned in this document: {document_content}",
	},
	{
		Name:       "Financial Figures",
		Category:   model.CategoryExtraction,
		PromptText: "Extract all financial figures, amounts, and percentages from this document: {document_content}",
	},
}

func (s *Service) CreateTemplate(ctx context.Context, in TemplateInput) (*model.PromptTemplate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tmpl := &model.PromptTemplate{IsPublic: true}
	in.apply(tmpl)
	if tmpl.Variables == nil {
		tmpl.Variables = defaultVariables(tmpl.PromptText)
	}

	if err := s.templates.Create(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("failed to create prompt template: %w", err)
	}
	return tmpl, nil
}

func (s *Service) GetTemplate(ctx context.Context, id string) (*model.PromptTemplate, error) {
	tmpl, err := s.templates.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt template %s: %w", id, err)
	}
	if tmpl == nil {
		return nil, &processing.NotFoundError{Resource: "prompt template", ID: id}
	}
	return tmpl, nil
}

func (s *Service) ListTemplates(ctx context.Context) ([]model.PromptTemplate, error) {
	return s.templates.ListPublic(ctx)
}

func (s *Service) UpdateTemplate(ctx context.Context, id string, in TemplateInput) (*model.PromptTemplate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tmpl, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	in.apply(tmpl)
	if err := s.templates.Save(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("failed to update prompt template %s: %w", id, err)
	}
	return tmpl, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	deleted, err := s.templates.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete prompt template %s: %w", id, err)
	}
	if !deleted {
		return &processing.NotFoundError{Resource: "prompt template", ID: id}
	}
	return nil
}

// InitializeDefaults 写入内置模板，已存在同名模板时跳过，返回新建数量
func (s *Service) InitializeDefaults(ctx context.Context) (int, error) {
	created := 0
	for _, in := range defaultTemplates {
		exists, err := s.templates.ExistsByName(ctx, in.Name)
		if err != nil {
			return created, fmt.Errorf("failed to check prompt template %s: %w", in.Name, err)
		}
		if exists {
			continue
		}

		if _, err := s.CreateTemplate(ctx, in); err != nil {
			return created, err
		}
		created++
	}

	slog.Info("Default prompt templates initialized", "created", created)
	return created, nil
}

func defaultVariables(promptText string) []model.PromptVariable {
	if !strings.Contains(promptText, model.DocumentContentPlaceholder) {
		return []model.PromptVariable{}
	}
	name := strings.Trim(model.DocumentContentPlaceholder, "{}")
	return []model.PromptVariable{{Name: name, Required: true}}
}
