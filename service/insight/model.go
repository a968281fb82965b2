package insight

import (
	"context"
	"fmt"

	"docinsight-backend/config"
	"docinsight-backend/utils"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewModel 按配置创建模型客户端，googleai 的超时由 Generator 通过 context 控制
func NewModel(ctx context.Context, cfg config.ModelConfig) (llms.Model, error) {
	switch cfg.Provider {
	case config.ProviderGoogleAI:
		llm, err := googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.Name),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create googleai client: %v", err)
		}
		return llm, nil

	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithModel(cfg.Name),
			openai.WithToken(cfg.APIKey),
			openai.WithHTTPClient(utils.NewHTTPClient(utils.WithTimeout(cfg.Timeout))),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}

		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %v", err)
		}
		return llm, nil

	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Provider)
	}
}
