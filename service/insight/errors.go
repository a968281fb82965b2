package insight

import "fmt"

// GenerationError 模型调用失败或返回空结果
type GenerationError struct {
	Op    string
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
