package extraction

import "fmt"

// UnsupportedTypeError 文件类型不受支持，不可重试
type UnsupportedTypeError struct {
	MimeType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.MimeType)
}

// ExtractionError 文件读取或解析失败，Cause 为底层错误
type ExtractionError struct {
	MimeType string
	Cause    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text: %v", e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
