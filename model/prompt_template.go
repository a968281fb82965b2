package model

import (
	"time"

	"gorm.io/datatypes"
)

type PromptCategory string

const (
	CategorySummary    PromptCategory = "summary"
	CategoryAnalysis   PromptCategory = "analysis"
	CategoryExtraction PromptCategory = "extraction"
	CategoryCustom     PromptCategory = "custom"
)

func (c PromptCategory) Valid() bool {
	switch c {
	case CategorySummary, CategoryAnalysis, CategoryExtraction, CategoryCustom:
		return true
	}
	return false
}

// DocumentContentPlaceholder 提示词模板中替换为文档正文的占位符
const DocumentContentPlaceholder = "{document_content}"

type PromptVariable struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

type PromptTemplate struct {
	ID            string                              `gorm:"type:char(36);primarykey" json:"id"`
	CreatedAt     time.Time                           `json:"createdAt"`
	UpdatedAt     time.Time                           `json:"updatedAt"`
	Name          string                              `gorm:"type:varchar(100);not null" json:"name"`
	Description   string                              `gorm:"type:text" json:"description"`
	PromptText    string                              `gorm:"type:text;not null" json:"promptText"`
	Category      PromptCategory                      `gorm:"type:varchar(20);not null" json:"category"`
	Variables     datatypes.JSONSlice[PromptVariable] `json:"variables"`
	ExampleOutput string                              `gorm:"type:text" json:"exampleOutput"`
	UsageCount    int                                 `gorm:"not null;default:0" json:"usageCount"`
	IsPublic      bool                                `gorm:"not null" json:"isPublic"`
}

func (PromptTemplate) TableName() string {
	return "prompt_templates"
}
