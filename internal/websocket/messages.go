package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/satriahrh/interview-partner/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Messages sent by the client
const (
	MessageTypeStartInterview  MessageType = "start_interview"
	MessageTypeTextAnswer      MessageType = "text_answer"
	MessageTypeListeningStart  MessageType = "listening_start"
	MessageTypeListeningEnd    MessageType = "listening_end"
	MessageTypeEndInterview    MessageType = "end_interview"
	MessageTypeRequestFeedback MessageType = "request_feedback"
	MessageTypeStartNew        MessageType = "start_new"
	MessageTypePing            MessageType = "ping"
)

// Messages sent by the server
const (
	MessageTypeSessionState    MessageType = "session_state"
	MessageTypeInterviewerTurn MessageType = "interviewer_turn"
	MessageTypeNotUnderstood   MessageType = "not_understood"
	MessageTypeFeedback        MessageType = "feedback"
	MessageTypeError           MessageType = "error"
	MessageTypePong            MessageType = "pong"
)

// Error codes carried by ErrorMessage
const (
	ErrorCodeInvalidMessage      = "invalid_message"
	ErrorCodeValidation          = "validation_error"
	ErrorCodeInvalidMode         = "invalid_mode"
	ErrorCodeTranscriptionFailed = "transcription_failed"
	ErrorCodeSessionExpired      = "session_expired"
	ErrorCodeAudioTooLarge       = "audio_too_large"
	ErrorCodeInternal            = "internal_error"
)

const maxTextLength = 10000

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
	MessageID string      `json:"message_id,omitempty"`
}

// ControlMessage is a client message without payload
type ControlMessage struct {
	BaseMessage
}

// StartInterviewMessage starts an interview for a role
type StartInterviewMessage struct {
	BaseMessage
	Role string `json:"role"`
}

// TextAnswerMessage carries a typed answer
type TextAnswerMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// TurnView is a turn as shown to the client. Audio is delivered separately
// as a binary frame.
type TurnView struct {
	Speaker      entities.Speaker `json:"speaker"`
	Text         string           `json:"text"`
	Failure      string           `json:"failure,omitempty"`
	AudioFailure string           `json:"audio_failure,omitempty"`
	HasAudio     bool             `json:"has_audio"`
}

// SessionStateMessage is a snapshot of the session
type SessionStateMessage struct {
	BaseMessage
	SessionID string     `json:"session_id"`
	Mode      string     `json:"mode"`
	Role      string     `json:"role,omitempty"`
	Turns     []TurnView `json:"turns"`
}

// InterviewerTurnMessage announces a new interviewer turn. When HasAudio is
// set, the next binary frame is its WAV audio.
type InterviewerTurnMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
	TurnView
	AudioBytes int `json:"audio_bytes,omitempty"`
	// Transcript is the recognized candidate answer that led to this turn
	Transcript string `json:"transcript,omitempty"`
}

// NotUnderstoodMessage reports an audio answer without recognizable speech
type NotUnderstoodMessage struct {
	BaseMessage
	Message string `json:"message"`
}

// FeedbackMessage carries the feedback report
type FeedbackMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Failure   string `json:"failure,omitempty"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses an incoming client message into its typed form.
// Empty roles and answers pass through; the interview rules reject them.
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	if base.Timestamp == "" {
		base.Timestamp = time.Now().Format(time.RFC3339)
	}

	switch base.Type {
	case MessageTypeStartInterview:
		var msg StartInterviewMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid start_interview message: %w", err)
		}
		if len(msg.Role) > maxTextLength {
			return nil, fmt.Errorf("role must be at most %d characters", maxTextLength)
		}
		msg.BaseMessage = base
		return &msg, nil

	case MessageTypeTextAnswer:
		var msg TextAnswerMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid text_answer message: %w", err)
		}
		if len(msg.Text) > maxTextLength {
			return nil, fmt.Errorf("text must be at most %d characters", maxTextLength)
		}
		msg.BaseMessage = base
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		msg.BaseMessage = base
		return &msg, nil

	case MessageTypeListeningStart, MessageTypeListeningEnd, MessageTypeEndInterview,
		MessageTypeRequestFeedback, MessageTypeStartNew:
		return &ControlMessage{BaseMessage: base}, nil

	case "":
		return nil, fmt.Errorf("message type is required")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{Type: t, Timestamp: time.Now().Format(time.RFC3339)}
}

func toTurnView(turn entities.Turn) TurnView {
	return TurnView{
		Speaker:      turn.Speaker,
		Text:         turn.Text,
		Failure:      turn.Failure,
		AudioFailure: turn.AudioFailure,
		HasAudio:     len(turn.Audio) > 0,
	}
}

// CreateSessionStateMessage snapshots the session
func CreateSessionStateMessage(session *entities.Session) *SessionStateMessage {
	turns := make([]TurnView, 0, len(session.History))
	for _, turn := range session.History {
		turns = append(turns, toTurnView(turn))
	}
	return &SessionStateMessage{
		BaseMessage: newBase(MessageTypeSessionState),
		SessionID:   session.ID,
		Mode:        string(session.Mode),
		Role:        session.Role,
		Turns:       turns,
	}
}

// CreateInterviewerTurnMessage announces turn for session
func CreateInterviewerTurnMessage(sessionID string, turn entities.Turn, transcript string) *InterviewerTurnMessage {
	return &InterviewerTurnMessage{
		BaseMessage: newBase(MessageTypeInterviewerTurn),
		SessionID:   sessionID,
		TurnView:    toTurnView(turn),
		AudioBytes:  len(turn.Audio),
		Transcript:  transcript,
	}
}

// CreateNotUnderstoodMessage creates a not understood notice
func CreateNotUnderstoodMessage() *NotUnderstoodMessage {
	return &NotUnderstoodMessage{
		BaseMessage: newBase(MessageTypeNotUnderstood),
		Message:     "Could not understand your answer.",
	}
}

// CreateFeedbackMessage creates a feedback message from a report
func CreateFeedbackMessage(sessionID string, report *entities.Report) *FeedbackMessage {
	return &FeedbackMessage{
		BaseMessage: newBase(MessageTypeFeedback),
		SessionID:   sessionID,
		Text:        report.Text,
		Failure:     report.Failure,
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message, details string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: newBase(MessageTypeError),
		Code:        code,
		Message:     message,
		Details:     details,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		BaseMessage: newBase(MessageTypePong),
		Data:        data,
	}
}
