package model

import (
	"time"

	"gorm.io/datatypes"
)

// Analysis 使用提示词模板或自定义提示词对文档做的一次分析
// 建立联合索引 (document_id, created_at)
type Analysis struct {
	ID               string            `gorm:"type:char(36);primarykey" json:"id"`
	CreatedAt        time.Time         `gorm:"index:idx_document_created" json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	DocumentID       string            `gorm:"type:char(36);not null;index:idx_document_created" json:"documentId"`
	PromptTemplateID *string           `gorm:"type:char(36)" json:"promptTemplateId"`
	FinalPrompt      string            `gorm:"type:longtext;not null" json:"finalPrompt"`
	Response         *string           `gorm:"type:longtext" json:"response"`
	ResponseMetadata datatypes.JSONMap `json:"responseMetadata"`
	ExecutionTimeMs  int64             `json:"executionTimeMs"`
	ErrorMessage     *string           `gorm:"type:text" json:"errorMessage"`

	PromptTemplate *PromptTemplate `gorm:"foreignKey:PromptTemplateID;constraint:OnDelete:SET NULL" json:"promptTemplate,omitempty"`
}

func (Analysis) TableName() string {
	return "analyses"
}
