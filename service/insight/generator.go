package insight

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/tmc/langchaingo/llms"
)

const (
	opGenerateInsights = "generate insights"
	opAnswerQuestion   = "answer question"
	opAnalyze          = "run analysis"
)

var errEmptyResponse = errors.New("model returned an empty response")

var (
	//go:embed prompts/insights.txt
	insightsPrompt string

	//go:embed prompts/question.txt
	questionPrompt string

	insightsTmpl = template.Must(template.New("insights").Parse(insightsPrompt))
	questionTmpl = template.Must(template.New("question").Parse(questionPrompt))
)

type Metadata struct {
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

type Insights struct {
	Insights string
	Metadata Metadata
}

type Answer struct {
	Answer   string
	Metadata Metadata
}

type AnalysisResult struct {
	Text     string
	Metadata Metadata
}

// Generator 调用大模型生成文档洞察与问答，每次请求都是独立的单轮调用
type Generator struct {
	llm       llms.Model
	modelName string
	timeout   time.Duration
	now       func() time.Time
}

type Option func(*Generator)

// WithTimeout 限制单次模型调用时长，为 0 时不限制
func WithTimeout(timeout time.Duration) Option {
	return func(g *Generator) {
		g.timeout = timeout
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

func NewGenerator(llm llms.Model, modelName string, opts ...Option) *Generator {
	g := &Generator{
		llm:       llm,
		modelName: modelName,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) ModelName() string {
	return g.modelName
}

// GenerateInsights 对全文生成结构化洞察，不做截断
func (g *Generator) GenerateInsights(ctx context.Context, text string) (*Insights, error) {
	prompt, err := render(insightsTmpl, struct{ Text string }{Text: text})
	if err != nil {
		return nil, &GenerationError{Op: opGenerateInsights, Cause: err}
	}

	resp, err := g.generate(ctx, opGenerateInsights, prompt)
	if err != nil {
		return nil, err
	}
	return &Insights{Insights: resp, Metadata: g.metadata()}, nil
}

func (g *Generator) AnswerQuestion(ctx context.Context, text, question string) (*Answer, error) {
	prompt, err := render(questionTmpl, struct {
		Text     string
		Question string
	}{Text: text, Question: question})
	if err != nil {
		return nil, &GenerationError{Op: opAnswerQuestion, Cause: err}
	}

	resp, err := g.generate(ctx, opAnswerQuestion, prompt)
	if err != nil {
		return nil, err
	}
	return &Answer{Answer: resp, Metadata: g.metadata()}, nil
}

// Analyze 执行已经渲染好的提示词
func (g *Generator) Analyze(ctx context.Context, prompt string) (*AnalysisResult, error) {
	resp, err := g.generate(ctx, opAnalyze, prompt)
	if err != nil {
		return nil, err
	}
	return &AnalysisResult{Text: resp, Metadata: g.metadata()}, nil
}

func (g *Generator) generate(ctx context.Context, op, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt)
	if err != nil {
		return "", &GenerationError{Op: op, Cause: err}
	}
	if strings.TrimSpace(resp) == "" {
		return "", &GenerationError{Op: op, Cause: errEmptyResponse}
	}

	slog.Debug("llm call finished",
		"op", op,
		"model", g.modelName,
		"prompt_length", len(prompt),
		"response_length", len(resp),
		"elapsed", time.Since(start),
	)
	return resp, nil
}

func (g *Generator) metadata() Metadata {
	return Metadata{Model: g.modelName, Timestamp: g.now().UTC()}
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %v", err)
	}
	return buf.String(), nil
}
