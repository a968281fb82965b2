package dao

import (
	"context"
	"docinsight-backend/model"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PromptTemplateDAO struct {
	db *gorm.DB
}

func NewPromptTemplateDAO(db *gorm.DB) *PromptTemplateDAO {
	return &PromptTemplateDAO{db: db}
}

func (d *PromptTemplateDAO) Create(ctx context.Context, tmpl *model.PromptTemplate) error {
	if tmpl.ID == "" {
		tmpl.ID = uuid.New().String()
	}
	return d.db.WithContext(ctx).Create(tmpl).Error
}

// FindByID 模板不存在时返回 nil, nil
func (d *PromptTemplateDAO) FindByID(ctx context.Context, id string) (*model.PromptTemplate, error) {
	var tmpl model.PromptTemplate
	if err := d.db.WithContext(ctx).
		Where("id = ?", id).
		First(&tmpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tmpl, nil
}

func (d *PromptTemplateDAO) ListPublic(ctx context.Context) ([]model.PromptTemplate, error) {
	var templates []model.PromptTemplate
	if err := d.db.WithContext(ctx).
		Where("is_public = ?", true).
		Order("created_at ASC").
		Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

func (d *PromptTemplateDAO) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).
		Model(&model.PromptTemplate{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save 覆盖模板的可编辑字段
func (d *PromptTemplateDAO) Save(ctx context.Context, tmpl *model.PromptTemplate) error {
	return d.db.WithContext(ctx).Save(tmpl).Error
}

// Delete 返回是否删除了记录
func (d *PromptTemplateDAO) Delete(ctx context.Context, id string) (bool, error) {
	result := d.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.PromptTemplate{})
	return result.RowsAffected > 0, result.Error
}

func (d *PromptTemplateDAO) IncrementUsage(ctx context.Context, id string) error {
	return d.db.WithContext(ctx).
		Model(&model.PromptTemplate{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1)).Error
}
