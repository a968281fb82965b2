// Package insighttest 提供测试用的 llms.Model 实现
package insighttest

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// FakeModel 记录收到的提示词并返回预设结果
type FakeModel struct {
	// Response 为空时回显 "insights for: <前 20 个字符>"
	Response string
	Err      error

	// Block 非空时调用会阻塞，直到 channel 关闭或 ctx 结束
	Block chan struct{}

	mu      sync.Mutex
	prompts []string
}

var _ llms.Model = (*FakeModel)(nil)

func (m *FakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	var sb strings.Builder
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				sb.WriteString(text.Text)
			}
		}
	}
	prompt := sb.String()

	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Err != nil {
		return nil, m.Err
	}

	resp := m.Response
	if resp == "" {
		resp = "insights for: " + truncate(prompt, 20)
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: resp}},
	}, nil
}

func (m *FakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Prompts 返回已收到的提示词
func (m *FakeModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func (m *FakeModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
