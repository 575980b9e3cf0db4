package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mode represents the stage of an interview session
type Mode string

const (
	ModeSetup     Mode = "SETUP"
	ModeInterview Mode = "INTERVIEW"
	ModeFeedback  Mode = "FEEDBACK"
)

// DefaultTerminationPhrases end the interview when found in a candidate answer
var DefaultTerminationPhrases = []string{"end interview", "feedback"}

// Report is the feedback generated for a finished interview
type Report struct {
	Text    string `json:"text"`
	Failure string `json:"failure,omitempty"`
	// TurnCount is the history length the report was generated from
	TurnCount   int       `json:"turn_count"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Covers reports whether the report was generated from the session's current history
func (r *Report) Covers(s *Session) bool {
	return r != nil && r.Failure == "" && r.TurnCount == len(s.History)
}

// Session holds the state of one interview. It is owned by a single caller
// and is not safe for concurrent use.
type Session struct {
	ID           string    `json:"id"`
	Mode         Mode      `json:"mode"`
	Role         string    `json:"role"`
	History      []Turn    `json:"history"`
	Feedback     *Report   `json:"feedback,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// NewSession creates a session in SETUP mode
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.New().String(),
		Mode:         ModeSetup,
		History:      make([]Turn, 0),
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Start moves the session from SETUP to INTERVIEW for the given role.
// History is cleared so the opening question is always the first turn.
func (s *Session) Start(role string) error {
	if s.Mode != ModeSetup {
		return fmt.Errorf("start interview in %s mode: %w", s.Mode, ErrInvalidMode)
	}

	role = strings.TrimSpace(role)
	if role == "" {
		return &ValidationError{Field: "role", Reason: "please enter a role first"}
	}

	s.Role = role
	s.History = make([]Turn, 0)
	s.Feedback = nil
	s.Mode = ModeInterview
	s.UpdateLastActive()
	return nil
}

// AppendInterviewer appends an interviewer turn
func (s *Session) AppendInterviewer(turn Turn) error {
	turn.Speaker = SpeakerInterviewer
	return s.appendTurn(turn)
}

// AppendCandidate appends a candidate answer. Candidate turns never carry audio.
func (s *Session) AppendCandidate(text string) error {
	return s.appendTurn(NewCandidateTurn(text))
}

func (s *Session) appendTurn(turn Turn) error {
	if s.Mode != ModeInterview {
		return fmt.Errorf("append turn in %s mode: %w", s.Mode, ErrInvalidMode)
	}
	if err := turn.Validate(); err != nil {
		return err
	}

	expected := SpeakerInterviewer
	if last, ok := s.LastTurn(); ok && last.Speaker == SpeakerInterviewer {
		expected = SpeakerCandidate
	}
	if turn.Speaker != expected {
		return fmt.Errorf("expected %s turn, got %s: %w", expected, turn.Speaker, ErrOutOfTurn)
	}

	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	s.History = append(s.History, turn)
	s.UpdateLastActive()
	return nil
}

// LastTurn returns the most recent turn, if any
func (s *Session) LastTurn() (Turn, bool) {
	if len(s.History) == 0 {
		return Turn{}, false
	}
	return s.History[len(s.History)-1], true
}

// AttachAudio sets the synthesized audio of the interviewer turn at index i
func (s *Session) AttachAudio(i int, audio []byte, failure string) error {
	if i < 0 || i >= len(s.History) {
		return fmt.Errorf("turn index %d out of range", i)
	}
	if s.History[i].Speaker != SpeakerInterviewer {
		return fmt.Errorf("turn %d is a candidate turn: %w", i, ErrOutOfTurn)
	}
	s.History[i].Audio = audio
	s.History[i].AudioFailure = failure
	return nil
}

// EndInterview moves the session from INTERVIEW to FEEDBACK
func (s *Session) EndInterview() error {
	if s.Mode != ModeInterview {
		return fmt.Errorf("end interview in %s mode: %w", s.Mode, ErrInvalidMode)
	}
	s.Mode = ModeFeedback
	s.UpdateLastActive()
	return nil
}

// Reset returns the session to an empty SETUP state. Resetting a session that
// is already in SETUP is a no-op.
func (s *Session) Reset() error {
	if s.Mode == ModeInterview {
		return fmt.Errorf("start new interview in %s mode: %w", s.Mode, ErrInvalidMode)
	}
	s.Mode = ModeSetup
	s.Role = ""
	s.History = make([]Turn, 0)
	s.Feedback = nil
	s.UpdateLastActive()
	return nil
}

// UpdateLastActive updates the last active timestamp
func (s *Session) UpdateLastActive() {
	s.LastActiveAt = time.Now()
}

// IsIdle reports whether the session has been inactive for longer than timeout
func (s *Session) IsIdle(timeout time.Duration) bool {
	return time.Since(s.LastActiveAt) > timeout
}

// ContainsTerminationPhrase reports whether text contains any of the phrases,
// ignoring case. A plain substring check: "no feedback yet" also matches.
func ContainsTerminationPhrase(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range phrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase != "" && strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Validate validates the session invariants
func (s *Session) Validate() error {
	switch s.Mode {
	case ModeSetup:
		if len(s.History) != 0 {
			return fmt.Errorf("history must be empty in %s mode", s.Mode)
		}
	case ModeInterview, ModeFeedback:
		if s.Role == "" {
			return fmt.Errorf("role is required in %s mode", s.Mode)
		}
	default:
		return fmt.Errorf("invalid session mode %q", s.Mode)
	}

	for i, turn := range s.History {
		want := SpeakerInterviewer
		if i%2 == 1 {
			want = SpeakerCandidate
		}
		if turn.Speaker != want {
			return fmt.Errorf("turn %d: expected %s, got %s", i, want, turn.Speaker)
		}
		if err := turn.Validate(); err != nil {
			return fmt.Errorf("turn %d: %w", i, err)
		}
	}
	return nil
}
