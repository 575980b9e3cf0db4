package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/adapters/tts"
	"github.com/satriahrh/interview-partner/usecase"
)

func main() {
	godotenv.Load()

	// Create logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Check if API key is set
	if os.Getenv("ELEVEN_LABS_API_KEY") == "" {
		logger.Fatal("ELEVEN_LABS_API_KEY environment variable is required")
	}

	ttsService, err := tts.NewElevenLabsTTS(tts.NewElevenLabsConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal("Failed to create TTS service", zap.Error(err))
	}

	text := "Thanks for joining today. Could you start by walking me through your background?"
	if len(os.Args) > 1 {
		text = strings.Join(os.Args[1:], " ")
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Converting text to speech", zap.String("text", text))

	wav, err := usecase.NewSpeechSynthesizer(ttsService, logger).Synthesize(ctx, text)
	if err != nil {
		logger.Fatal("Failed to convert text to speech", zap.Error(err))
	}

	outputFile := "preview.wav"
	if err := os.WriteFile(outputFile, wav, 0644); err != nil {
		logger.Fatal("Failed to write output file", zap.Error(err))
	}

	fmt.Printf("✅ Audio saved to %s (%d bytes)\n", outputFile, len(wav))

	if os.Getenv("NO_AUTOPLAY") != "true" {
		if err := playAudioFile(outputFile, logger); err != nil {
			logger.Warn("Failed to play audio automatically", zap.Error(err))
			fmt.Printf("⚠️  Could not auto-play audio, open %s with any audio player\n", outputFile)
		}
	}

	// Optional: Get available voices
	if os.Getenv("SHOW_VOICES") == "true" {
		logger.Info("Fetching available voices...")
		voices, err := ttsService.GetAvailableVoices(ctx)
		if err != nil {
			logger.Warn("Failed to get available voices", zap.Error(err))
			return
		}
		fmt.Printf("\n📢 Available voices (%d):\n", len(voices))
		for i, voice := range voices {
			if i >= 10 {
				fmt.Printf("... and %d more voices\n", len(voices)-10)
				break
			}
			fmt.Printf("  - %s (ID: %s)\n", voice.Name, voice.VoiceID)
		}
	}
}

// playAudioFile plays a WAV file with the first available system player
func playAudioFile(filename string, logger *zap.Logger) error {
	for _, player := range []string{"play", "ffplay", "aplay", "afplay"} {
		if _, err := exec.LookPath(player); err != nil {
			continue
		}

		args := []string{filename}
		if player == "ffplay" {
			args = []string{"-nodisp", "-autoexit", filename}
		}

		logger.Info("Attempting to play audio", zap.String("player", player))
		err := exec.Command(player, args...).Run()
		if err == nil {
			return nil
		}
		logger.Debug("Player failed", zap.String("player", player), zap.Error(err))
	}
	return fmt.Errorf("no suitable audio player found")
}
