package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/domain/entities"
	"github.com/satriahrh/interview-partner/domain/repositories"
	"github.com/satriahrh/interview-partner/internal/audio"
)

// ErrTranscriptionFailed is returned when the speech-to-text provider fails
var ErrTranscriptionFailed = errors.New("transcription failed")

// Transcriber turns a recorded WAV answer into text through a temporary artifact
type Transcriber struct {
	stt      repositories.SpeechToText
	store    repositories.AudioArtifactStore
	language string
	logger   *zap.Logger
}

// NewTranscriber creates a new transcriber
func NewTranscriber(stt repositories.SpeechToText, store repositories.AudioArtifactStore, language string, logger *zap.Logger) *Transcriber {
	if language == "" {
		language = "en-US"
		logger.Info("Using default transcription language", zap.String("language", language))
	}
	return &Transcriber{
		stt:      stt,
		store:    store,
		language: language,
		logger:   logger,
	}
}

// Transcribe validates blob as PCM WAV, stores it as a temporary artifact and
// transcribes it. The artifact is released on every path. An empty string with
// a nil error means no speech was detected.
func (t *Transcriber) Transcribe(ctx context.Context, blob []byte) (string, error) {
	format, err := audio.Inspect(blob)
	if err != nil {
		return "", &entities.ValidationError{Field: "audio", Reason: err.Error()}
	}
	if !format.IsPCM() || format.BitsPerSample != 16 {
		return "", &entities.ValidationError{
			Field:  "audio",
			Reason: fmt.Sprintf("only 16-bit PCM WAV is supported, got format %d with %d bits", format.AudioFormat, format.BitsPerSample),
		}
	}

	artifact, err := t.store.Create(ctx, blob)
	if err != nil {
		return "", fmt.Errorf("failed to store audio: %w", err)
	}
	defer func() {
		// cleanup failures are logged by the store and never surface
		_ = t.store.Release(context.WithoutCancel(ctx), artifact)
	}()

	text, err := t.stt.TranscribeFile(ctx, artifact.Path, repositories.AudioConfig{
		SampleRate: int(format.SampleRate),
		Channels:   int(format.Channels),
		Encoding:   "LINEAR16",
		Language:   t.language,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}

	text = strings.TrimSpace(text)
	t.logger.Info("Transcription completed",
		zap.String("artifactID", artifact.ID),
		zap.Int("audioBytes", artifact.Size),
		zap.Int("textLength", len(text)))

	return text, nil
}
