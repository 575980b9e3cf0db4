package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/domain/repositories"
	"github.com/satriahrh/interview-partner/internal/audio"
)

// ErrNoSpeechAudio is returned when the provider stream ends without audio
var ErrNoSpeechAudio = errors.New("speech synthesis produced no audio")

// SpeechSynthesizer renders interviewer text as a mono 16-bit PCM WAV file
type SpeechSynthesizer struct {
	tts    repositories.TextToSpeech
	logger *zap.Logger
}

// NewSpeechSynthesizer creates a new speech synthesizer
func NewSpeechSynthesizer(tts repositories.TextToSpeech, logger *zap.Logger) *SpeechSynthesizer {
	return &SpeechSynthesizer{
		tts:    tts,
		logger: logger,
	}
}

// Synthesize collects the provider PCM stream and wraps it in a WAV container
func (s *SpeechSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	audioChan, err := s.tts.ConvertTextToSpeech(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	var (
		pcm       bytes.Buffer
		streamErr error
	)
	for chunk := range audioChan {
		if chunk.Err != nil {
			streamErr = chunk.Err
			continue
		}
		pcm.Write(chunk.Data)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("speech synthesis interrupted: %w", err)
	}
	if streamErr != nil {
		return nil, fmt.Errorf("speech synthesis interrupted after %d bytes: %w", pcm.Len(), streamErr)
	}
	if pcm.Len() == 0 {
		return nil, ErrNoSpeechAudio
	}

	// drop a dangling half sample
	data := pcm.Bytes()
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}

	wav := audio.EncodePCM16(data, s.tts.SampleRate(), 1)
	s.logger.Debug("Speech synthesized",
		zap.Int("textLength", len(text)),
		zap.Int("wavBytes", len(wav)))
	return wav, nil
}
