package stt_test

import (
	"github.com/satriahrh/interview-partner/adapters/stt"
	"github.com/satriahrh/interview-partner/domain/repositories"
)

var (
	_ repositories.SpeechToText = &stt.GoogleSpeechToText{}
	_ repositories.SpeechToText = &stt.WhisperSpeechToText{}
	_ repositories.SpeechToText = &stt.MockSpeechToText{}
)
