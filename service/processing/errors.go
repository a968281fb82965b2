package processing

import "fmt"

// NotFoundError 请求的资源不存在
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NotReadyError 文档尚未完成文本提取
type NotReadyError struct {
	DocumentID string
	Status     string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("document %s is not ready (status: %s)", e.DocumentID, e.Status)
}
