package stt

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/domain/repositories"
)

// WhisperConfig holds configuration for the WhisperSpeechToText adapter
type WhisperConfig struct {
	APIKey  string // Required: OpenAI API key
	BaseURL string // Optional: API base URL override
	Model   string // Optional: transcription model (default: whisper-1)
}

// WhisperSpeechToText implements SpeechToText with the OpenAI transcription API
type WhisperSpeechToText struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewWhisperConfigFromEnv reads the Whisper configuration from environment variables
func NewWhisperConfigFromEnv() WhisperConfig {
	return WhisperConfig{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		Model:   os.Getenv("WHISPER_MODEL"),
	}
}

// NewWhisperSpeechToText creates a new Whisper adapter
func NewWhisperSpeechToText(config WhisperConfig, logger *zap.Logger) (*WhisperSpeechToText, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := config.Model
	if model == "" {
		model = openai.Whisper1
		logger.Info("Using default transcription model", zap.String("model", model))
	}

	return &WhisperSpeechToText{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}, nil
}

// TranscribeFile uploads the audio file for transcription
func (w *WhisperSpeechToText) TranscribeFile(ctx context.Context, path string, config repositories.AudioConfig) (string, error) {
	req := openai.AudioRequest{
		Model:    w.model,
		FilePath: path,
		Format:   openai.AudioResponseFormatJSON,
		Language: whisperLanguage(config.Language),
	}

	resp, err := w.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	w.logger.Info("Whisper transcription completed",
		zap.String("model", w.model),
		zap.Bool("empty", text == ""))

	return text, nil
}

// whisperLanguage converts a BCP-47 tag such as en-US to the ISO-639-1 code
// the transcription API expects
func whisperLanguage(language string) string {
	if i := strings.IndexByte(language, '-'); i > 0 {
		return strings.ToLower(language[:i])
	}
	return strings.ToLower(language)
}
