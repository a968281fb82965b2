package insight

import (
	"context"
	"errors"
	"testing"
	"time"

	"docinsight-backend/service/insight/insighttest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestGenerator(m *insighttest.FakeModel, opts ...Option) *Generator {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewGenerator(m, "gemini-test", opts...)
}

func TestGenerateInsights(t *testing.T) {
	m := &insighttest.FakeModel{Response: "## Key points\n- greeting"}
	g := newTestGenerator(m)

	res, err := g.GenerateInsights(context.Background(), "Hello world")
	require.NoError(t, err)

	assert.Equal(t, "## Key points\n- greeting", res.Insights)
	assert.Equal(t, "gemini-test", res.Metadata.Model)
	assert.Equal(t, fixedNow, res.Metadata.Timestamp)

	prompts := m.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Analyze the following text and provide key insights")
	assert.Contains(t, prompts[0], "Hello world")
}

func TestGenerateInsights_FullTextNotTruncated(t *testing.T) {
	m := &insighttest.FakeModel{Response: "ok"}
	g := newTestGenerator(m)

	text := make([]byte, 200_000)
	for i := range text {
		text[i] = 'a'
	}

	_, err := g.GenerateInsights(context.Background(), string(text))
	require.NoError(t, err)
	assert.Contains(t, m.Prompts()[0], string(text))
}

func TestAnswerQuestion(t *testing.T) {
	m := &insighttest.FakeModel{Response: "It says hello."}
	g := newTestGenerator(m)

	res, err := g.AnswerQuestion(context.Background(), "Hello world", "What does it say?")
	require.NoError(t, err)
	assert.Equal(t, "It says hello.", res.Answer)
	assert.Equal(t, "gemini-test", res.Metadata.Model)

	prompt := m.Prompts()[0]
	assert.Contains(t, prompt, "please answer this question: What does it say?")
	assert.Contains(t, prompt, "Hello world")
}

func TestAnalyze_UsesPromptVerbatim(t *testing.T) {
	m := &insighttest.FakeModel{Response: "summary"}
	g := newTestGenerator(m)

	res, err := g.Analyze(context.Background(), "Summarize: <b>raw</b>")
	require.NoError(t, err)
	assert.Equal(t, "summary", res.Text)
	assert.Equal(t, []string{"Summarize: <b>raw</b>"}, m.Prompts())
}

func TestGenerate_Errors(t *testing.T) {
	providerErr := errors.New("quota exceeded")

	tests := []struct {
		name  string
		model *insighttest.FakeModel
		cause error
	}{
		{"provider failure", &insighttest.FakeModel{Err: providerErr}, providerErr},
		{"empty response", &insighttest.FakeModel{Response: "   \n"}, errEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGenerator(tt.model)

			_, err := g.GenerateInsights(context.Background(), "text")
			var genErr *GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, opGenerateInsights, genErr.Op)
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestGenerate_Timeout(t *testing.T) {
	m := &insighttest.FakeModel{Block: make(chan struct{})}
	g := newTestGenerator(m, WithTimeout(20*time.Millisecond))

	_, err := g.AnswerQuestion(context.Background(), "text", "q?")
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerate_Cancelled(t *testing.T) {
	m := &insighttest.FakeModel{Block: make(chan struct{})}
	g := newTestGenerator(m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.GenerateInsights(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
}
