package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/domain/repositories"
)

const defaultOpenAIChatModel = openai.GPT4oMini

// OpenAIConfig holds configuration for the OpenAI chat adapter
type OpenAIConfig struct {
	APIKey      string  // Required: OpenAI API key
	BaseURL     string  // Optional: API base URL override
	Model       string  // Optional: chat model
	Temperature float32 // Optional: sampling temperature
}

// OpenAILLM implements LargeLanguageModel with the chat completions API
type OpenAILLM struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

var _ repositories.LargeLanguageModel = (*OpenAILLM)(nil)

// NewOpenAIConfigFromEnv reads the OpenAI chat configuration from environment variables
func NewOpenAIConfigFromEnv() OpenAIConfig {
	return OpenAIConfig{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		Model:   os.Getenv("OPENAI_CHAT_MODEL"),
	}
}

// NewOpenAILLM creates a new OpenAI chat adapter
func NewOpenAILLM(config OpenAIConfig, logger *zap.Logger) (*OpenAILLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := config.Model
	if model == "" {
		model = defaultOpenAIChatModel
		logger.Info("Using default chat model", zap.String("model", model))
	}

	temperature := config.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}

	return &OpenAILLM{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}, nil
}

// Generate implements repositories.LargeLanguageModel
func (o *OpenAILLM) Generate(ctx context.Context, request repositories.GenerateRequest) (string, error) {
	if strings.TrimSpace(request.Prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	var messages []openai.ChatCompletionMessage
	if request.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: request.SystemInstruction,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: request.Prompt,
	})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: o.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned by %s", o.model)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty completion returned by %s", o.model)
	}

	o.logger.Debug("OpenAI generation completed",
		zap.String("model", o.model),
		zap.Int("responseLength", len(text)))

	return text, nil
}
