package dao

import (
	"context"
	"docinsight-backend/model"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrVersionConflict 版本号不匹配，或文档已处于终态
var ErrVersionConflict = errors.New("document version conflict")

var terminalStatuses = []model.Status{model.StatusReady, model.StatusError}

type DocumentDAO struct {
	db *gorm.DB
}

func NewDocumentDAO(db *gorm.DB) *DocumentDAO {
	return &DocumentDAO{db: db}
}

func (d *DocumentDAO) Create(ctx context.Context, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Status == "" {
		doc.Status = model.StatusUploaded
	}
	if doc.CurrentStage == "" {
		doc.CurrentStage = "upload"
	}
	doc.Version = 1
	return d.db.WithContext(ctx).Create(doc).Error
}

// FindByID 文档不存在时返回 nil, nil
func (d *DocumentDAO) FindByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	if err := d.db.WithContext(ctx).
		Where("id = ?", id).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (d *DocumentDAO) List(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	if err := d.db.WithContext(ctx).
		Omit("extracted_text", "insights").
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Update 在版本号匹配且文档未处于终态时写入 fields，返回新版本号
func (d *DocumentDAO) Update(ctx context.Context, id string, version int64, fields map[string]any) (int64, error) {
	values := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		values[k] = v
	}
	values["version"] = version + 1

	result := d.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("id = ? AND version = ? AND status NOT IN ?", id, version, terminalStatuses).
		Updates(values)
	if result.Error != nil {
		return version, result.Error
	}
	if result.RowsAffected == 0 {
		return version, ErrVersionConflict
	}
	return version + 1, nil
}
