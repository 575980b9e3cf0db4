package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/domain/entities"
	"github.com/satriahrh/interview-partner/domain/repositories"
	"github.com/satriahrh/interview-partner/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024

	// Maximum size of one recorded answer, about 5 minutes of 16kHz mono PCM.
	maxRecordingSize = 10 * 1024 * 1024

	// Time allowed for one interview operation, including every provider call.
	operationTimeout = 3 * time.Minute

	// Pending operations per client before new ones are rejected.
	jobQueueSize = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of connected clients, at most one per session.
type Hub struct {
	// Registered clients by session ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	service  *usecase.InterviewService
	sessions repositories.SessionRepository

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(
	service *usecase.InterviewService,
	sessions repositories.SessionRepository,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		service:    service,
		sessions:   sessions,
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				client.closeSend()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if previous, ok := h.clients[client.sessionID]; ok {
				// newest connection wins
				previous.closeSend()
			}
			h.clients[client.sessionID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("sessionID", client.sessionID))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.sessionID]; ok && current == client {
				delete(h.clients, client.sessionID)
				client.closeSend()
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("sessionID", client.sessionID))
		}
	}
}

// GetActiveSessions returns the IDs of sessions with a connected client
func (h *Hub) GetActiveSessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// ErrClientNotConnected is returned when no websocket is open for a session
var ErrClientNotConnected = errors.New("no client connected for session")

// SendToSession queues data for the client connected to sessionID
func (h *Hub) SendToSession(sessionID string, data WriteData) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[sessionID]
	if !ok {
		return fmt.Errorf("%w %s", ErrClientNotConnected, sessionID)
	}

	if !client.sendData(data) {
		return fmt.Errorf("failed to queue message for session %s", sessionID)
	}
	return nil
}

// NotifySessionState pushes a session_state snapshot to the websocket bound to
// the session, if one is open. It is used when the session changes through
// the HTTP API.
func (h *Hub) NotifySessionState(session *entities.Session) error {
	payload, err := json.Marshal(CreateSessionStateMessage(session))
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	err = h.SendToSession(session.ID, WriteData{Type: websocket.TextMessage, Payload: payload})
	if errors.Is(err, ErrClientNotConnected) {
		return nil
	}
	return err
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send   chan WriteData
	sendMu sync.Mutex
	closed bool

	// Interview operations, run one at a time by workPump.
	jobs chan func(ctx context.Context)

	sessionID string
	record    *repositories.SessionRecord

	validator *MessageValidator
	logger    *zap.Logger

	// Recording state, guarded by mutex
	mutex          sync.Mutex
	listening      bool
	recording      bytes.Buffer
	listeningStart time.Time
}

// HandleWebSocketWithSession upgrades the request and binds the connection
// to an already resolved session.
func HandleWebSocketWithSession(hub *Hub, c echo.Context, record *repositories.SessionRecord, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := newClient(hub, conn, record, logger)
	select {
	case client.hub.register <- client:
	case <-client.hub.done:
		logger.Warn("WebSocket hub is stopped, closing connection")
		conn.Close()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.workPump()

	// jobs is closed by readPump, so queue the greeting before it starts
	client.enqueue(func(ctx context.Context) {
		client.record.Do(func(session *entities.Session) error {
			client.sendJSON(CreateSessionStateMessage(session))
			return nil
		})
	})

	go client.readPump()

	return nil
}

func newClient(hub *Hub, conn *websocket.Conn, record *repositories.SessionRecord, logger *zap.Logger) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan WriteData, 256),
		jobs:      make(chan func(ctx context.Context), jobQueueSize),
		sessionID: record.ID(),
		record:    record,
		validator: NewMessageValidator(),
		logger:    logger.With(zap.String("sessionID", record.ID())),
	}
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		close(c.jobs)
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.processBinaryAudioChunk(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// workPump runs queued interview operations one at a time so a slow provider
// call never blocks reading pings and control frames.
func (c *Client) workPump() {
	for job := range c.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
		job(ctx)
		cancel()
	}
}

func (c *Client) enqueue(job func(ctx context.Context)) {
	select {
	case c.jobs <- job:
	default:
		c.sendError(ErrorCodeInternal, "Too many pending requests", "")
	}
}

// processMessage processes incoming control messages from the client
func (c *Client) processMessage(message []byte) {
	parsed, err := c.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Invalid message", zap.Error(err))
		c.sendError(ErrorCodeInvalidMessage, "Invalid message", err.Error())
		return
	}

	switch msg := parsed.(type) {
	case *PingMessage:
		c.sendJSON(CreatePongMessage(msg.Data))

	case *StartInterviewMessage:
		c.withSession(func(ctx context.Context, session *entities.Session) error {
			turn, err := c.hub.service.StartInterview(ctx, session, msg.Role)
			if err != nil {
				return err
			}
			c.sendJSON(CreateSessionStateMessage(session))
			c.sendTurn(*turn, "")
			return nil
		})

	case *TextAnswerMessage:
		c.withSession(func(ctx context.Context, session *entities.Session) error {
			outcome, err := c.hub.service.SubmitTextAnswer(ctx, session, msg.Text)
			if err != nil {
				return err
			}
			c.sendOutcome(session, outcome)
			return nil
		})

	case *ControlMessage:
		c.processControl(msg.Type)
	}
}

func (c *Client) processControl(t MessageType) {
	switch t {
	case MessageTypeListeningStart:
		c.handleListeningStart()

	case MessageTypeListeningEnd:
		c.handleListeningEnd()

	case MessageTypeEndInterview:
		c.withSession(func(ctx context.Context, session *entities.Session) error {
			if err := c.hub.service.EndInterview(ctx, session); err != nil {
				return err
			}
			c.sendJSON(CreateSessionStateMessage(session))
			return nil
		})

	case MessageTypeRequestFeedback:
		c.withSession(func(ctx context.Context, session *entities.Session) error {
			if _, err := c.hub.service.RequestFeedback(ctx, session); err != nil {
				return err
			}
			c.sendJSON(CreateFeedbackMessage(session.ID, session.Feedback))
			return nil
		})

	case MessageTypeStartNew:
		c.withSession(func(ctx context.Context, session *entities.Session) error {
			if err := c.hub.service.StartNew(ctx, session); err != nil {
				return err
			}
			c.sendJSON(CreateSessionStateMessage(session))
			return nil
		})
	}
}

// processBinaryAudioChunk appends recorded audio between listening_start and listening_end
func (c *Client) processBinaryAudioChunk(data []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.listening {
		c.logger.Warn("Received binary audio chunk outside of a recording")
		c.sendError(ErrorCodeInvalidMessage, "Send listening_start before audio", "")
		return
	}

	if c.recording.Len()+len(data) > maxRecordingSize {
		c.listening = false
		c.recording.Reset()
		c.sendError(ErrorCodeAudioTooLarge, "Recording is too large", fmt.Sprintf("limit is %d bytes", maxRecordingSize))
		return
	}

	c.recording.Write(data)
}

// handleListeningStart begins a new recording, discarding any unfinished one
func (c *Client) handleListeningStart() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.listening = true
	c.recording.Reset()
	c.listeningStart = time.Now()

	c.logger.Debug("Recording started")
}

// handleListeningEnd submits the finished recording as an audio answer
func (c *Client) handleListeningEnd() {
	c.mutex.Lock()
	if !c.listening {
		c.mutex.Unlock()
		c.sendError(ErrorCodeInvalidMessage, "No recording in progress", "")
		return
	}
	blob := make([]byte, c.recording.Len())
	copy(blob, c.recording.Bytes())
	duration := time.Since(c.listeningStart)
	c.listening = false
	c.recording.Reset()
	c.mutex.Unlock()

	c.logger.Info("Recording finished",
		zap.Int("bytes", len(blob)),
		zap.Duration("duration", duration))

	c.withSession(func(ctx context.Context, session *entities.Session) error {
		outcome, err := c.hub.service.SubmitAudioAnswer(ctx, session, blob)
		if err != nil {
			return err
		}
		c.sendOutcome(session, outcome)
		return nil
	})
}

// withSession queues op to run while holding the session lock. Errors are
// reported to the client.
func (c *Client) withSession(op func(ctx context.Context, session *entities.Session) error) {
	c.enqueue(func(ctx context.Context) {
		if _, err := c.hub.sessions.GetByID(ctx, c.sessionID); err != nil {
			c.sendError(ErrorCodeSessionExpired, "Session has expired, create a new one", "")
			return
		}

		err := c.record.Do(func(session *entities.Session) error {
			return op(ctx, session)
		})
		if err != nil {
			c.reportError(err)
		}
	})
}

func (c *Client) sendOutcome(session *entities.Session, outcome *usecase.AnswerOutcome) {
	switch outcome.Status {
	case usecase.AnswerNotUnderstood:
		c.sendJSON(CreateNotUnderstoodMessage())
	case usecase.AnswerFinished:
		c.sendJSON(CreateSessionStateMessage(session))
	case usecase.AnswerAccepted:
		c.sendTurn(*outcome.Question, outcome.Transcript)
	}
}

// sendTurn sends the turn announcement followed by its WAV audio
func (c *Client) sendTurn(turn entities.Turn, transcript string) {
	c.sendJSON(CreateInterviewerTurnMessage(c.sessionID, turn, transcript))
	if len(turn.Audio) > 0 {
		c.sendData(WriteData{Type: websocket.BinaryMessage, Payload: turn.Audio})
	}
}

func (c *Client) reportError(err error) {
	switch {
	case entities.IsValidationError(err):
		var validation *entities.ValidationError
		errors.As(err, &validation)
		c.sendError(ErrorCodeValidation, validation.Reason, validation.Field)
	case errors.Is(err, entities.ErrInvalidMode), errors.Is(err, entities.ErrOutOfTurn):
		c.sendError(ErrorCodeInvalidMode, "Action not allowed right now", err.Error())
	case errors.Is(err, usecase.ErrTranscriptionFailed):
		c.sendError(ErrorCodeTranscriptionFailed, "Could not transcribe your answer", err.Error())
	default:
		c.logger.Error("Interview operation failed", zap.Error(err))
		c.sendError(ErrorCodeInternal, "Internal error", "")
	}
}

func (c *Client) sendError(code, message, details string) {
	c.sendJSON(CreateErrorMessage(code, message, details))
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}
	c.sendData(WriteData{Type: websocket.TextMessage, Payload: payload})
}

// sendData queues data for the writePump; messages to a closed or stalled
// client are dropped.
func (c *Client) sendData(data WriteData) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		c.logger.Warn("Send buffer full, dropping message")
		return false
	}
}

// closeSend closes the outbound channel once, which stops the writePump
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
