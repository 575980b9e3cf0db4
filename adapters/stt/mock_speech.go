package stt

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/domain/repositories"
)

// MockSpeechToText is a placeholder implementation for speech recognition
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	return &MockSpeechToText{
		logger: logger,
	}
}

// TranscribeFile implements repositories.SpeechToText
func (s *MockSpeechToText) TranscribeFile(ctx context.Context, path string, config repositories.AudioConfig) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat audio file: %w", err)
	}

	s.logger.Info("Processing speech-to-text",
		zap.Int64("audioSize", info.Size()),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding))

	// Mock transcription based on audio size, header-only files hold no speech
	switch {
	case info.Size() > 10000:
		return "In my last role I led the migration of our payment service to Kubernetes.", nil
	case info.Size() > 5000:
		return "I would start by clarifying the requirements with the stakeholders.", nil
	case info.Size() > 1000:
		return "I enjoy solving problems with my team.", nil
	default:
		return "", nil
	}
}
