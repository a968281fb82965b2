package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/tmc/langchaingo/documentloaders"
)

const (
	MimeTypePDF  = "application/pdf"
	MimeTypeText = "text/plain"
)

// Loader 按 MIME 类型把文件内容转换为纯文本
type Loader interface {
	// 判断是否支持传入的 MIME 类型
	CanLoad(mimeType string) bool

	Load(ctx context.Context, data []byte) (*Result, error)
}

type Result struct {
	Text string

	// 纯文本文件为 0
	PageCount int
}

type PDFLoader struct{}

var _ Loader = PDFLoader{}

func (PDFLoader) CanLoad(mimeType string) bool {
	return mimeType == MimeTypePDF
}

// Load 逐页提取文本并拼接，解析器 panic 时转换为错误
func (PDFLoader) Load(ctx context.Context, data []byte) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic while parsing pdf: %v", r)
		}
	}()

	if len(data) == 0 {
		return nil, errors.New("empty pdf file")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	loader := documentloaders.NewPDF(bytes.NewReader(data), int64(len(data)))
	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	pages := make([]string, 0, len(docs))
	for _, doc := range docs {
		pages = append(pages, doc.PageContent)
	}

	return &Result{
		Text:      strings.Join(pages, "\n"),
		PageCount: reader.NumPage(),
	}, nil
}

type TextLoader struct{}

var _ Loader = TextLoader{}

func (TextLoader) CanLoad(mimeType string) bool {
	return mimeType == MimeTypeText
}

// Load 按 UTF-8 读取文本，非法字节替换为 U+FFFD
func (TextLoader) Load(ctx context.Context, data []byte) (*Result, error) {
	if !utf8.Valid(data) {
		data = []byte(string([]rune(string(data))))
	}

	docs, err := documentloaders.NewText(bytes.NewReader(data)).Load(ctx)
	if err != nil {
		return nil, err
	}

	var text string
	if len(docs) > 0 {
		text = docs[0].PageContent
	}
	return &Result{Text: text}, nil
}
