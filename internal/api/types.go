package api

import (
	"encoding/base64"
	"time"

	"github.com/satriahrh/interview-partner/domain/entities"
	"github.com/satriahrh/interview-partner/usecase"
)

// CreateSessionResponse represents the response payload for session creation
type CreateSessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	SessionID string    `json:"session_id"`
}

// StartInterviewRequest represents the request payload for starting an interview
type StartInterviewRequest struct {
	Role string `json:"role"`
}

// TextAnswerRequest represents the request payload for a typed answer
type TextAnswerRequest struct {
	Answer string `json:"answer"`
}

// EvaluateRequest represents the request payload for a standalone evaluation
type EvaluateRequest struct {
	Answer string `json:"answer"`
	Role   string `json:"role,omitempty"`
}

// EvaluateResponse represents the response payload for a standalone evaluation
type EvaluateResponse struct {
	Evaluation string `json:"evaluation"`
	Failure    string `json:"failure,omitempty"`
}

// TranscribeResponse represents the response payload for a transcription
type TranscribeResponse struct {
	Transcription string `json:"transcription"`
}

// TurnResponse is one transcript turn. Audio is base64 encoded WAV.
type TurnResponse struct {
	Speaker      entities.Speaker `json:"speaker"`
	Text         string           `json:"text"`
	Audio        string           `json:"audio,omitempty"`
	Failure      string           `json:"failure,omitempty"`
	AudioFailure string           `json:"audio_failure,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// FeedbackResponse is a feedback report
type FeedbackResponse struct {
	Text        string    `json:"text"`
	Failure     string    `json:"failure,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// SessionResponse is a snapshot of an interview session
type SessionResponse struct {
	SessionID    string            `json:"session_id"`
	Mode         entities.Mode     `json:"mode"`
	Role         string            `json:"role,omitempty"`
	Turns        []TurnResponse    `json:"turns"`
	Feedback     *FeedbackResponse `json:"feedback,omitempty"`
	LastActiveAt time.Time         `json:"last_active_at"`
}

// AnswerResponse is the result of submitting an answer
type AnswerResponse struct {
	Status     usecase.AnswerStatus `json:"status"`
	Message    string               `json:"message,omitempty"`
	Transcript string               `json:"transcript,omitempty"`
	Question   *TurnResponse        `json:"question,omitempty"`
	Session    SessionResponse      `json:"session"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func newTurnResponse(turn entities.Turn) TurnResponse {
	response := TurnResponse{
		Speaker:      turn.Speaker,
		Text:         turn.Text,
		Failure:      turn.Failure,
		AudioFailure: turn.AudioFailure,
		CreatedAt:    turn.CreatedAt,
	}
	if len(turn.Audio) > 0 {
		response.Audio = base64.StdEncoding.EncodeToString(turn.Audio)
	}
	return response
}

func newFeedbackResponse(report *entities.Report) *FeedbackResponse {
	if report == nil {
		return nil
	}
	return &FeedbackResponse{
		Text:        report.Text,
		Failure:     report.Failure,
		GeneratedAt: report.GeneratedAt,
	}
}

func newSessionResponse(session *entities.Session) SessionResponse {
	turns := make([]TurnResponse, 0, len(session.History))
	for _, turn := range session.History {
		turns = append(turns, newTurnResponse(turn))
	}
	return SessionResponse{
		SessionID:    session.ID,
		Mode:         session.Mode,
		Role:         session.Role,
		Turns:        turns,
		Feedback:     newFeedbackResponse(session.Feedback),
		LastActiveAt: session.LastActiveAt,
	}
}
