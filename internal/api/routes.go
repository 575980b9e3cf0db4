package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/domain/repositories"
	"github.com/satriahrh/interview-partner/internal/auth"
	"github.com/satriahrh/interview-partner/internal/websocket"
)

const sessionRecordKey = "session_record"

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, hub *websocket.Hub, h *Handler, logger *zap.Logger) {
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Interview Practice API is running!")
	})

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":            "ok",
			"service":           "interview-partner",
			"connected_clients": len(hub.GetActiveSessions()),
		})
	})

	e.POST("/transcribe", h.transcribe)
	e.POST("/evaluate", h.evaluate)

	// API v1 routes
	v1 := e.Group("/api/v1")
	v1.POST("/sessions", h.createSession)

	session := v1.Group("", requireSession(h.tokens, h.sessions, logger))
	session.GET("/session", h.getSession)
	session.DELETE("/session", h.deleteSession)
	session.POST("/interview/start", h.startInterview)
	session.POST("/interview/answers/text", h.submitTextAnswer)
	session.POST("/interview/answers/audio", h.submitAudioAnswer)
	session.POST("/interview/end", h.endInterview)
	session.GET("/interview/feedback", h.getFeedback)
	session.POST("/interview/reset", h.resetInterview)

	// WebSocket endpoint bound to a session token
	e.GET("/ws", func(c echo.Context) error {
		record := c.Get(sessionRecordKey).(*repositories.SessionRecord)
		logger.Info("WebSocket connection authenticated", zap.String("session_id", record.ID()))
		return websocket.HandleWebSocketWithSession(hub, c, record, logger)
	}, requireSession(h.tokens, h.sessions, logger))
}

// requireSession resolves the session token of the request into its session
// record. Browsers cannot set headers on websocket requests, so the token may
// also come from the token query parameter.
func requireSession(tokens *auth.TokenIssuer, sessions repositories.SessionRepository, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get("Authorization"))
			if token == "" {
				token = c.QueryParam("token")
			}

			if token == "" {
				logger.Warn("Request rejected: missing session token", zap.String("path", c.Path()))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "missing_token",
					Message: "Session token is required in Authorization header",
				})
			}

			claims, err := tokens.ValidateToken(token)
			if err != nil {
				logger.Warn("Request rejected: invalid session token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "invalid_token",
					Message: "Invalid or expired session token",
				})
			}

			record, err := sessions.GetByID(c.Request().Context(), claims.SessionID)
			if err != nil {
				if errors.Is(err, repositories.ErrSessionNotFound) {
					return c.JSON(http.StatusNotFound, ErrorResponse{
						Error:   "session_not_found",
						Message: "Session has expired, create a new one",
					})
				}
				logger.Error("Failed to load session", zap.String("session_id", claims.SessionID), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, ErrorResponse{
					Error:   "internal_error",
					Message: "Failed to load session",
				})
			}

			c.Set(sessionRecordKey, record)
			return next(c)
		}
	}
}

func bearerToken(header string) string {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
