package tts

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/domain/repositories"
)

// The speech endpoint streams pcm as 24kHz signed 16-bit mono
const openAIPCMSampleRate = 24000

// OpenAIConfig holds configuration for the OpenAITTS adapter
type OpenAIConfig struct {
	APIKey  string // Required: OpenAI API key
	BaseURL string // Optional: API base URL override
	Model   string // Optional: speech model (default: tts-1)
	Voice   string // Optional: voice name (default: alloy)
}

// OpenAITTS implements TextToSpeech with the OpenAI speech API
type OpenAITTS struct {
	client    *openai.Client
	model     openai.SpeechModel
	voice     openai.SpeechVoice
	chunkSize int
	logger    *zap.Logger
}

var _ repositories.TextToSpeech = (*OpenAITTS)(nil)

// NewOpenAIConfigFromEnv reads the OpenAI speech configuration from environment variables
func NewOpenAIConfigFromEnv() OpenAIConfig {
	return OpenAIConfig{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		Model:   os.Getenv("OPENAI_TTS_MODEL"),
		Voice:   os.Getenv("OPENAI_TTS_VOICE"),
	}
}

// NewOpenAITTS creates a new OpenAI speech adapter
func NewOpenAITTS(config OpenAIConfig, logger *zap.Logger) (*OpenAITTS, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := openai.SpeechModel(config.Model)
	if model == "" {
		model = openai.TTSModel1
		logger.Info("Using default speech model", zap.String("model", string(model)))
	}

	voice := openai.SpeechVoice(config.Voice)
	if voice == "" {
		voice = openai.VoiceAlloy
		logger.Info("Using default voice", zap.String("voice", string(voice)))
	}

	return &OpenAITTS{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		voice:     voice,
		chunkSize: defaultChunkSize,
		logger:    logger,
	}, nil
}

// SampleRate returns the sample rate of the streamed PCM
func (o *OpenAITTS) SampleRate() int {
	return openAIPCMSampleRate
}

// ConvertTextToSpeech requests raw PCM speech and streams it in chunks
func (o *OpenAITTS) ConvertTextToSpeech(ctx context.Context, text string) (<-chan repositories.AudioChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          text,
		Voice:          o.voice,
		ResponseFormat: openai.SpeechResponseFormatPcm,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create speech: %w", err)
	}

	o.logger.Info("Converting text to speech",
		zap.Int("textLength", len(text)),
		zap.String("model", string(o.model)),
		zap.String("voice", string(o.voice)))

	audioChan := make(chan repositories.AudioChunk, 10)

	go func() {
		defer close(audioChan)
		defer resp.Close()

		buffer := make([]byte, o.chunkSize)
		for {
			n, err := resp.Read(buffer)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buffer[:n])
				select {
				case audioChan <- repositories.AudioChunk{Data: chunk}:
				case <-ctx.Done():
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				o.logger.Error("Error reading speech response", zap.Error(err))
				select {
				case audioChan <- repositories.AudioChunk{Err: fmt.Errorf("failed to read speech response: %w", err)}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()

	return audioChan, nil
}
