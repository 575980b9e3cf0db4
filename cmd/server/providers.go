package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/adapters/llm"
	"github.com/satriahrh/interview-partner/adapters/stt"
	"github.com/satriahrh/interview-partner/adapters/tts"
	"github.com/satriahrh/interview-partner/domain/repositories"
)

func provider(key, fallback string, logger *zap.Logger) string {
	name := os.Getenv(key)
	if name == "" {
		logger.Info("Using default provider", zap.String("key", key), zap.String("provider", fallback))
		return fallback
	}
	return name
}

func newLanguageModel(ctx context.Context, logger *zap.Logger) (repositories.LargeLanguageModel, error) {
	switch name := provider("LLM_PROVIDER", "gemini", logger); name {
	case "gemini":
		model, err := llm.NewGeminiLLM(ctx, llm.NewGeminiConfigFromEnv(), logger)
		if err != nil {
			return nil, err
		}
		return model, nil
	case "openai":
		model, err := llm.NewOpenAILLM(llm.NewOpenAIConfigFromEnv(), logger)
		if err != nil {
			return nil, err
		}
		return model, nil
	case "mock":
		return llm.NewMockLLM(logger), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", name)
	}
}

func newSpeechToText(ctx context.Context, logger *zap.Logger) (repositories.SpeechToText, func(), error) {
	noop := func() {}

	switch name := provider("STT_PROVIDER", "google", logger); name {
	case "google":
		client, err := stt.NewGoogleSpeechToText(ctx, logger)
		if err != nil {
			return nil, noop, err
		}
		return client, func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close speech client", zap.Error(err))
			}
		}, nil
	case "whisper":
		client, err := stt.NewWhisperSpeechToText(stt.NewWhisperConfigFromEnv(), logger)
		if err != nil {
			return nil, noop, err
		}
		return client, noop, nil
	case "mock":
		return stt.NewMockSpeechToText(logger), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown STT_PROVIDER %q", name)
	}
}

func newTextToSpeech(logger *zap.Logger) (repositories.TextToSpeech, error) {
	switch name := provider("TTS_PROVIDER", "elevenlabs", logger); name {
	case "elevenlabs":
		speech, err := tts.NewElevenLabsTTS(tts.NewElevenLabsConfigFromEnv(), logger)
		if err != nil {
			return nil, err
		}
		return speech, nil
	case "openai":
		speech, err := tts.NewOpenAITTS(tts.NewOpenAIConfigFromEnv(), logger)
		if err != nil {
			return nil, err
		}
		return speech, nil
	case "mock":
		return tts.NewMockTextToSpeech(logger), nil
	default:
		return nil, fmt.Errorf("unknown TTS_PROVIDER %q", name)
	}
}
