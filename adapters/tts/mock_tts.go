package tts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/domain/repositories"
)

const mockSampleRate = 16000

// MockTextToSpeech streams silence whose length follows the text length
type MockTextToSpeech struct {
	logger *zap.Logger
}

// NewMockTextToSpeech creates a new mock text-to-speech service
func NewMockTextToSpeech(logger *zap.Logger) repositories.TextToSpeech {
	return &MockTextToSpeech{logger: logger}
}

// SampleRate implements repositories.TextToSpeech
func (m *MockTextToSpeech) SampleRate() int {
	return mockSampleRate
}

// ConvertTextToSpeech implements repositories.TextToSpeech
func (m *MockTextToSpeech) ConvertTextToSpeech(ctx context.Context, text string) (<-chan repositories.AudioChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	// roughly 60ms of audio per character, two bytes per sample
	samples := len(text) * mockSampleRate * 60 / 1000
	pcm := make([]byte, samples*2)

	m.logger.Info("Mock speech synthesized",
		zap.Int("textLength", len(text)),
		zap.Int("pcmBytes", len(pcm)))

	audioChan := make(chan repositories.AudioChunk, 1)
	audioChan <- repositories.AudioChunk{Data: pcm}
	close(audioChan)
	return audioChan, nil
}
