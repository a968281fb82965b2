package model

import (
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	// 文件上传完成，等待处理
	StatusUploaded Status = "uploaded"

	StatusProcessing Status = "processing"
	StatusExtracting Status = "extracting"
	StatusPreparing  Status = "preparing"

	// 终态
	StatusReady Status = "ready"
	StatusError Status = "error"
)

// IsTerminal 终态的文档不再被处理流程修改
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusError
}

// 元数据中的常用键
const (
	MetaMimeType      = "mimeType"
	MetaUploadDate    = "uploadDate"
	MetaPageCount     = "pageCount"
	MetaAnalysisDate  = "analysisDate"
	MetaModel         = "model"
	MetaArchiveObject = "archiveObject"
)

// Document 上传文档及其处理状态
// ExtractedText、Insights、Error 为空指针表示尚未设置
type Document struct {
	ID        string    `gorm:"type:char(36);primarykey" json:"id"`
	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`

	// 服务端存储的文件名
	Filename     string `gorm:"not null" json:"filename"`
	OriginalName string `gorm:"not null" json:"originalName"`
	FileSize     int64  `gorm:"not null" json:"fileSize"`

	Status       Status `gorm:"type:varchar(20);not null;default:uploaded;index" json:"status"`
	CurrentStage string `gorm:"type:varchar(64);not null;default:upload" json:"currentStage"`
	Progress     int    `gorm:"not null;default:0" json:"progress"`

	ExtractedText *string `gorm:"type:longtext" json:"extractedText"`
	TextLength    *int    `json:"textLength"`
	Language      string  `gorm:"type:varchar(10);default:en" json:"language"`
	Insights      *string `gorm:"type:longtext" json:"insights"`

	Metadata datatypes.JSONMap `json:"metadata"`
	Error    *string           `gorm:"type:text" json:"error"`

	// 乐观锁版本号，每次更新加一
	Version int64 `gorm:"not null;default:1" json:"version"`
}

func (Document) TableName() string {
	return "documents"
}

// MimeType 返回上传时记录的 MIME 类型
func (d *Document) MimeType() string {
	if d.Metadata == nil {
		return ""
	}
	mimeType, _ := d.Metadata[MetaMimeType].(string)
	return mimeType
}
