package entities

import (
	"strings"
	"time"
)

// Speaker identifies who produced a turn
type Speaker string

const (
	SpeakerInterviewer Speaker = "INTERVIEWER"
	SpeakerCandidate   Speaker = "CANDIDATE"
)

// Turn is one utterance in the interview transcript
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
	// Audio is the synthesized WAV for interviewer turns
	Audio []byte `json:"audio,omitempty"`
	// Failure is set when Text is a placeholder for a failed generation
	Failure      string    `json:"failure,omitempty"`
	AudioFailure string    `json:"audio_failure,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewCandidateTurn creates a candidate turn
func NewCandidateTurn(text string) Turn {
	return Turn{
		Speaker:   SpeakerCandidate,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

// NewInterviewerTurn creates an interviewer turn without audio
func NewInterviewerTurn(text string) Turn {
	return Turn{
		Speaker:   SpeakerInterviewer,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

// IsFailed reports whether the turn text stands in for a failed generation
func (t Turn) IsFailed() bool {
	return t.Failure != ""
}

// Validate validates the turn
func (t Turn) Validate() error {
	if t.Speaker != SpeakerInterviewer && t.Speaker != SpeakerCandidate {
		return &ValidationError{Field: "speaker", Reason: "unknown speaker " + string(t.Speaker)}
	}
	if strings.TrimSpace(t.Text) == "" {
		return &ValidationError{Field: "text", Reason: "turn text cannot be empty"}
	}
	if t.Speaker == SpeakerCandidate && len(t.Audio) > 0 {
		return &ValidationError{Field: "audio", Reason: "candidate turns cannot carry audio"}
	}
	return nil
}
