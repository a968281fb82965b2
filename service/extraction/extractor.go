package extraction

import (
	"context"
	"log/slog"
	"mime"
	"os"
	"strings"
)

// Extractor 文本提取器，按注册顺序查找能处理该 MIME 类型的 Loader
type Extractor struct {
	loaders []Loader
}

func NewExtractor(loaders ...Loader) *Extractor {
	if len(loaders) == 0 {
		loaders = []Loader{PDFLoader{}, TextLoader{}}
	}
	return &Extractor{loaders: loaders}
}

// Extract 读取 filePath 并提取纯文本，不修改文件
func (e *Extractor) Extract(ctx context.Context, filePath, mimeType string) (*Result, error) {
	normalized := NormalizeMimeType(mimeType)

	loader := e.find(normalized)
	if loader == nil {
		return nil, &UnsupportedTypeError{MimeType: mimeType}
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, &ExtractionError{MimeType: normalized, Cause: err}
	}

	result, err := loader.Load(ctx, data)
	if err != nil {
		return nil, &ExtractionError{MimeType: normalized, Cause: err}
	}

	slog.Debug("extracted text",
		"path", filePath,
		"mime_type", normalized,
		"text_length", len(result.Text),
		"page_count", result.PageCount,
	)
	return result, nil
}

// Supports 判断 MIME 类型是否有对应的 Loader
func (e *Extractor) Supports(mimeType string) bool {
	return e.find(NormalizeMimeType(mimeType)) != nil
}

func (e *Extractor) find(mimeType string) Loader {
	for _, loader := range e.loaders {
		if loader.CanLoad(mimeType) {
			return loader
		}
	}
	return nil
}

// NormalizeMimeType 去掉参数并转为小写，例如 "Text/Plain; charset=utf-8" -> "text/plain"
func NormalizeMimeType(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mediaType
}
