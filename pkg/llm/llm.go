package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Builder produces a ready tool-calling chat model.
type Builder interface {
	New(ctx context.Context) (model.ToolCallingChatModel, error)
}

var _ Builder = (*Config)(nil)

// Config targets any OpenAI-compatible completion endpoint. ByAzure switches
// the client to Azure OpenAI semantics (deployment-scoped URLs, api-version).
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	ByAzure            bool          `envconfig:"BY_AZURE" split_words:"true" default:"false"`
	APIVersion         string        `envconfig:"API_VERSION" split_words:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
}

// New builds the eino chat model used by the routing agent.
func (c *Config) New(ctx context.Context) (model.ToolCallingChatModel, error) {
	maxTokens := c.MaxCompletionToken
	temperature := c.Temperature

	conf := &openaimodel.ChatModelConfig{
		BaseURL:     strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"),
		APIKey:      strings.TrimSpace(c.APIKey),
		Model:       strings.TrimSpace(c.Model),
		ByAzure:     c.ByAzure,
		APIVersion:  strings.TrimSpace(c.APIVersion),
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		Timeout:     c.Timeout,
	}

	m, err := openaimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("llm: create chat model: %w", err)
	}
	return m, nil
}

// NewSDKClient creates the raw OpenAI SDK client, used for connectivity
// checks outside the agent loop.
func NewSDKClient(cfg Config) *openaisdk.Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}
