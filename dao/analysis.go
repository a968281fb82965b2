package dao

import (
	"context"
	"docinsight-backend/model"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AnalysisDAO struct {
	db *gorm.DB
}

func NewAnalysisDAO(db *gorm.DB) *AnalysisDAO {
	return &AnalysisDAO{db: db}
}

func (d *AnalysisDAO) Create(ctx context.Context, analysis *model.Analysis) error {
	if analysis.ID == "" {
		analysis.ID = uuid.New().String()
	}
	return d.db.WithContext(ctx).Omit("PromptTemplate").Create(analysis).Error
}

// FindByID 分析记录不存在时返回 nil, nil
func (d *AnalysisDAO) FindByID(ctx context.Context, id string) (*model.Analysis, error) {
	var analysis model.Analysis
	if err := d.db.WithContext(ctx).
		Preload("PromptTemplate").
		Where("id = ?", id).
		First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &analysis, nil
}

func (d *AnalysisDAO) ListByDocument(ctx context.Context, documentID string) ([]model.Analysis, error) {
	var analyses []model.Analysis
	if err := d.db.WithContext(ctx).
		Preload("PromptTemplate").
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		Find(&analyses).Error; err != nil {
		return nil, err
	}
	return analyses, nil
}

func (d *AnalysisDAO) Update(ctx context.Context, id string, fields map[string]any) error {
	return d.db.WithContext(ctx).
		Model(&model.Analysis{}).
		Where("id = ?", id).
		Updates(fields).Error
}
