package tts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestNewElevenLabsTTS(t *testing.T) {
	logger := zaptest.NewLogger(t)

	// Test without API key
	os.Unsetenv("ELEVEN_LABS_API_KEY")
	config := NewElevenLabsConfigFromEnv()
	_, err := NewElevenLabsTTS(config, logger)
	if err == nil {
		t.Error("Expected error when API key is not set")
	}

	// Test with API key
	t.Setenv("ELEVEN_LABS_API_KEY", "test-api-key")

	config = NewElevenLabsConfigFromEnv()
	tts, err := NewElevenLabsTTS(config, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if tts.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", tts.apiKey)
	}

	if tts.voiceID != defaultVoiceID {
		t.Errorf("Expected default voice ID '%s', got '%s'", defaultVoiceID, tts.voiceID)
	}

	if tts.SampleRate() != 24000 {
		t.Errorf("Expected default sample rate 24000, got %d", tts.SampleRate())
	}
}

func TestValidateElevenLabsConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  ElevenLabsConfig
		wantErr bool
	}{
		{"valid defaults", ElevenLabsConfig{APIKey: "k"}, false},
		{"valid pcm format", ElevenLabsConfig{APIKey: "k", OutputFormat: "pcm_16000"}, false},
		{"mp3 not allowed", ElevenLabsConfig{APIKey: "k", OutputFormat: "mp3_44100_128"}, true},
		{"stability out of range", ElevenLabsConfig{APIKey: "k", Stability: 1.5}, true},
		{"clarity out of range", ElevenLabsConfig{APIKey: "k", Clarity: -0.2}, true},
		{"negative chunk size", ElevenLabsConfig{APIKey: "k", ChunkSize: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateElevenLabsConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateElevenLabsConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestElevenLabsTTS_ConvertTextToSpeech_EmptyText(t *testing.T) {
	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	ctx := context.Background()
	if _, err = tts.ConvertTextToSpeech(ctx, ""); err == nil {
		t.Error("Expected error for empty text")
	}

	if _, err = tts.ConvertTextToSpeech(ctx, "   "); err == nil {
		t.Error("Expected error for whitespace-only text")
	}
}

func TestElevenLabsTTS_ConvertTextToSpeech_Streams(t *testing.T) {
	pcm := make([]byte, 10000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-api-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if got := r.URL.Query().Get("output_format"); got != "pcm_16000" {
			t.Errorf("Expected output_format pcm_16000, got %s", got)
		}

		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		if body["text"] != "Tell me about a conflict you resolved." {
			t.Errorf("Unexpected text in request: %v", body["text"])
		}
		if _, ok := body["language_code"]; ok {
			t.Error("Request should not carry language_code")
		}
		settings, _ := body["voice_settings"].(map[string]interface{})
		if _, ok := settings["style"]; ok {
			t.Error("Voice settings should not carry style")
		}
		w.Write(pcm)
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{
		APIKey:       "test-api-key",
		APIBaseURL:   server.URL,
		OutputFormat: "pcm_16000",
		ChunkSize:    1024,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	audioChan, err := tts.ConvertTextToSpeech(context.Background(), "Tell me about a conflict you resolved.")
	if err != nil {
		t.Fatalf("Failed to convert text to speech: %v", err)
	}

	total := 0
	for chunk := range audioChan {
		if chunk.Err != nil {
			t.Fatalf("Unexpected stream error: %v", chunk.Err)
		}
		total += len(chunk.Data)
	}
	if total != len(pcm) {
		t.Errorf("Expected %d bytes, got %d", len(pcm), total)
	}
}

func TestElevenLabsTTS_ConvertTextToSpeech_TruncatedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100000")
		w.WriteHeader(http.StatusOK)
		w.Write(make([]byte, 1000))
		w.(http.Flusher).Flush()
		panic(http.ErrAbortHandler)
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "k", APIBaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	audioChan, err := tts.ConvertTextToSpeech(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("Failed to convert text to speech: %v", err)
	}

	var streamErr error
	total := 0
	for chunk := range audioChan {
		if chunk.Err != nil {
			streamErr = chunk.Err
			continue
		}
		total += len(chunk.Data)
	}
	if streamErr == nil {
		t.Errorf("Expected the stream to report the cut-off after %d bytes", total)
	}
}

func TestElevenLabsTTS_ConvertTextToSpeech_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"detail":"quota exceeded"}`)
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "k", APIBaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if _, err := tts.ConvertTextToSpeech(context.Background(), "Hello"); err == nil {
		t.Error("Expected error for non-200 response")
	}
}

func TestMockTextToSpeech(t *testing.T) {
	mock := NewMockTextToSpeech(zaptest.NewLogger(t))

	audioChan, err := mock.ConvertTextToSpeech(context.Background(), "Hello there")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	total := 0
	for chunk := range audioChan {
		if chunk.Err != nil {
			t.Fatalf("Unexpected stream error: %v", chunk.Err)
		}
		total += len(chunk.Data)
	}
	if total == 0 || total%2 != 0 {
		t.Errorf("Expected non-empty 16-bit PCM, got %d bytes", total)
	}

	if _, err := mock.ConvertTextToSpeech(context.Background(), " "); err == nil {
		t.Error("Expected error for empty text")
	}
}

// Integration test - only runs if ELEVEN_LABS_API_KEY is set with real API key
func TestElevenLabsTTS_ConvertTextToSpeech_Integration(t *testing.T) {
	apiKey := os.Getenv("ELEVEN_LABS_API_KEY")
	if apiKey == "" || apiKey == "test-api-key" {
		t.Skip("Skipping integration test - set ELEVEN_LABS_API_KEY environment variable with real API key")
	}

	tts, err := NewElevenLabsTTS(NewElevenLabsConfigFromEnv(), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	audioChan, err := tts.ConvertTextToSpeech(ctx, "Tell me about a project you are proud of.")
	if err != nil {
		t.Fatalf("Failed to convert text to speech: %v", err)
	}

	totalBytes := 0
	for chunk := range audioChan {
		if chunk.Err != nil {
			t.Fatalf("Unexpected stream error: %v", chunk.Err)
		}
		totalBytes += len(chunk.Data)
	}
	if totalBytes == 0 {
		t.Error("No audio data received")
	}
}
