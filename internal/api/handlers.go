package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/domain/entities"
	"github.com/satriahrh/interview-partner/domain/repositories"
	"github.com/satriahrh/interview-partner/internal/auth"
	"github.com/satriahrh/interview-partner/usecase"
)

// maxUploadSize caps uploaded answer recordings
const maxUploadSize = 10 * 1024 * 1024

var errNoAudio = errors.New("no audio file uploaded")

// SessionNotifier pushes session changes to an open realtime connection
type SessionNotifier interface {
	NotifySessionState(session *entities.Session) error
}

// Handler serves the HTTP interview API
type Handler struct {
	service  *usecase.InterviewService
	sessions repositories.SessionRepository
	tokens   *auth.TokenIssuer
	notifier SessionNotifier
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service *usecase.InterviewService, sessions repositories.SessionRepository, tokens *auth.TokenIssuer, notifier SessionNotifier, logger *zap.Logger) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
	}
}

func (h *Handler) transcribe(c echo.Context) error {
	blob, err := readAudioUpload(c)
	if err != nil {
		return uploadError(c, err)
	}

	text, err := h.service.Transcribe(c.Request().Context(), blob)
	if err != nil {
		h.logger.Warn("Transcription request failed", zap.Error(err))
		if entities.IsValidationError(err) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, TranscribeResponse{Transcription: text})
}

func (h *Handler) evaluate(c echo.Context) error {
	var req EvaluateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
	}

	generation, err := h.service.Evaluate(c.Request().Context(), req.Role, req.Answer)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No answer provided"})
	}

	return c.JSON(http.StatusOK, EvaluateResponse{
		Evaluation: usecase.RenderFeedback(generation),
		Failure:    generation.Failure,
	})
}

func (h *Handler) createSession(c echo.Context) error {
	session := entities.NewSession()
	if err := h.sessions.Create(c.Request().Context(), session); err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to create session",
		})
	}

	token, expiresAt, err := h.tokens.GenerateSessionToken(session.ID)
	if err != nil {
		h.logger.Error("Failed to issue session token", zap.String("session_id", session.ID), zap.Error(err))
		_ = h.sessions.Delete(context.WithoutCancel(c.Request().Context()), session.ID)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to issue session token",
		})
	}

	h.logger.Info("Session created", zap.String("session_id", session.ID))
	return c.JSON(http.StatusCreated, CreateSessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		SessionID: session.ID,
	})
}

func (h *Handler) getSession(c echo.Context) error {
	var response SessionResponse
	err := sessionRecord(c).Do(func(session *entities.Session) error {
		response = newSessionResponse(session)
		return nil
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, response)
}

func (h *Handler) deleteSession(c echo.Context) error {
	record := sessionRecord(c)
	if err := h.sessions.Delete(c.Request().Context(), record.ID()); err != nil {
		return h.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) startInterview(c echo.Context) error {
	var req StartInterviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "Invalid request body"})
	}

	var response AnswerResponse
	err := sessionRecord(c).Do(func(session *entities.Session) error {
		question, err := h.service.StartInterview(c.Request().Context(), session, req.Role)
		if err != nil {
			return err
		}
		response = newAnswerResponse(session, &usecase.AnswerOutcome{Status: usecase.AnswerAccepted, Question: question})
		h.notify(session)
		return nil
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, response)
}

func (h *Handler) submitTextAnswer(c echo.Context) error {
	var req TextAnswerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "Invalid request body"})
	}

	var response AnswerResponse
	err := sessionRecord(c).Do(func(session *entities.Session) error {
		outcome, err := h.service.SubmitTextAnswer(c.Request().Context(), session, req.Answer)
		if err != nil {
			return err
		}
		response = newAnswerResponse(session, outcome)
		h.notify(session)
		return nil
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, response)
}

func (h *Handler) submitAudioAnswer(c echo.Context) error {
	blob, err := readAudioUpload(c)
	if err != nil {
		return uploadError(c, err)
	}

	var response AnswerResponse
	err = sessionRecord(c).Do(func(session *entities.Session) error {
		outcome, err := h.service.SubmitAudioAnswer(c.Request().Context(), session, blob)
		if err != nil {
			return err
		}
		response = newAnswerResponse(session, outcome)
		h.notify(session)
		return nil
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, response)
}

func (h *Handler) endInterview(c echo.Context) error {
	var response SessionResponse
	err := sessionRecord(c).Do(func(session *entities.Session) error {
		if err := h.service.EndInterview(c.Request().Context(), session); err != nil {
			return err
		}
		response = newSessionResponse(session)
		h.notify(session)
		return nil
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, response)
}

func (h *Handler) getFeedback(c echo.Context) error {
	var response *FeedbackResponse
	err := sessionRecord(c).Do(func(session *entities.Session) error {
		if _, err := h.service.RequestFeedback(c.Request().Context(), session); err != nil {
			return err
		}
		response = newFeedbackResponse(session.Feedback)
		return nil
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, response)
}

func (h *Handler) resetInterview(c echo.Context) error {
	var response SessionResponse
	err := sessionRecord(c).Do(func(session *entities.Session) error {
		if err := h.service.StartNew(c.Request().Context(), session); err != nil {
			return err
		}
		response = newSessionResponse(session)
		h.notify(session)
		return nil
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, response)
}

// notify forwards the session snapshot to its websocket. It runs while the
// session is still locked so pushes arrive in the order of the changes.
func (h *Handler) notify(session *entities.Session) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.NotifySessionState(session); err != nil {
		h.logger.Warn("Failed to push session state", zap.String("session_id", session.ID), zap.Error(err))
	}
}

// writeError maps interview errors onto HTTP statuses
func (h *Handler) writeError(c echo.Context, err error) error {
	var validation *entities.ValidationError
	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: validation.Reason})
	case errors.Is(err, entities.ErrInvalidMode), errors.Is(err, entities.ErrOutOfTurn):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "invalid_mode", Message: err.Error()})
	case errors.Is(err, usecase.ErrTranscriptionFailed):
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "transcription_failed", Message: err.Error()})
	case errors.Is(err, repositories.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "session_not_found", Message: "Session has expired, create a new one"})
	default:
		h.logger.Error("Interview request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Internal server error"})
	}
}

func newAnswerResponse(session *entities.Session, outcome *usecase.AnswerOutcome) AnswerResponse {
	response := AnswerResponse{
		Status:     outcome.Status,
		Transcript: outcome.Transcript,
		Session:    newSessionResponse(session),
	}
	if outcome.Question != nil {
		question := newTurnResponse(*outcome.Question)
		response.Question = &question
	}
	if outcome.Status == usecase.AnswerNotUnderstood {
		response.Message = "Could not understand your answer."
	}
	return response
}

func uploadError(c echo.Context, err error) error {
	if errors.Is(err, errNoAudio) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No audio file uploaded"})
	}
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

func sessionRecord(c echo.Context) *repositories.SessionRecord {
	return c.Get(sessionRecordKey).(*repositories.SessionRecord)
}

// readAudioUpload reads the multipart "audio" field
func readAudioUpload(c echo.Context) ([]byte, error) {
	header, err := c.FormFile("audio")
	if err != nil {
		return nil, errNoAudio
	}
	if header.Size > maxUploadSize {
		return nil, fmt.Errorf("audio upload of %d bytes exceeds limit", header.Size)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded audio: %w", err)
	}
	defer file.Close()

	blob, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded audio: %w", err)
	}
	if len(blob) == 0 {
		return nil, errNoAudio
	}
	return blob, nil
}

