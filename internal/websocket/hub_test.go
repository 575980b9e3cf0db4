package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/adapters"
	"github.com/satriahrh/interview-partner/adapters/llm"
	"github.com/satriahrh/interview-partner/adapters/storage"
	"github.com/satriahrh/interview-partner/adapters/stt"
	"github.com/satriahrh/interview-partner/adapters/tts"
	"github.com/satriahrh/interview-partner/domain/entities"
	"github.com/satriahrh/interview-partner/internal/audio"
	"github.com/satriahrh/interview-partner/internal/prompts"
	"github.com/satriahrh/interview-partner/usecase"
)

type testServer struct {
	hub      *Hub
	sessions *adapters.MemorySessionRepository
	server   *httptest.Server
}

func setupTestHub(t testing.TB) (*Hub, *adapters.MemorySessionRepository) {
	logger := zap.NewNop() // No-op logger for tests

	store, err := storage.NewTempAudioStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("NewTempAudioStore failed: %v", err)
	}

	service := usecase.NewInterviewService(
		usecase.NewDialogueGenerator(llm.NewMockLLM(logger), prompts.Default(), logger),
		usecase.NewTranscriber(stt.NewMockSpeechToText(logger), store, "en-US", logger),
		usecase.NewSpeechSynthesizer(tts.NewMockTextToSpeech(logger), logger),
		usecase.InterviewConfig{CollaboratorTimeout: 5 * time.Second},
		logger,
	)

	sessions := adapters.NewMemorySessionRepository(time.Hour, logger)
	return NewHub(service, sessions, logger), sessions
}

func setupTestServer(t *testing.T) *testServer {
	hub, sessions := setupTestHub(t)
	logger := zap.NewNop()

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	e := echo.New()
	e.GET("/ws/:id", func(c echo.Context) error {
		record, err := sessions.GetByID(c.Request().Context(), c.Param("id"))
		if err != nil {
			return c.NoContent(404)
		}
		return HandleWebSocketWithSession(hub, c, record, logger)
	})

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return &testServer{hub: hub, sessions: sessions, server: server}
}

// connect creates a session and dials its websocket, consuming the greeting
func (s *testServer) connect(t *testing.T) (*websocket.Conn, string) {
	session := entities.NewSession()
	if err := s.sessions.Create(context.Background(), session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	conn := s.dial(t, session.ID)
	greeting := readJSON(t, conn)
	if greeting["type"] != string(MessageTypeSessionState) {
		t.Fatalf("Expected session_state greeting, got %v", greeting["type"])
	}
	if greeting["mode"] != string(entities.ModeSetup) {
		t.Fatalf("Expected SETUP mode, got %v", greeting["mode"])
	}
	return conn, session.ID
}

func (s *testServer) dial(t *testing.T, sessionID string) *websocket.Conn {
	wsURL := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("WebSocket connection failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]interface{}) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if messageType != websocket.TextMessage {
		t.Fatalf("Expected text message, got type %d", messageType)
	}

	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	return msg
}

func readBinary(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if messageType != websocket.BinaryMessage {
		t.Fatalf("Expected binary message, got type %d", messageType)
	}
	return data
}

// readTurn reads an interviewer_turn announcement and its audio frame
func readTurn(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	turn := readJSON(t, conn)
	if turn["type"] != string(MessageTypeInterviewerTurn) {
		t.Fatalf("Expected interviewer_turn, got %v (%v)", turn["type"], turn["message"])
	}
	if turn["has_audio"] != true {
		t.Fatalf("Expected turn with audio, got %v", turn)
	}

	wav := readBinary(t, conn)
	format, err := audio.Inspect(wav)
	if err != nil {
		t.Fatalf("Audio frame is not a WAV: %v", err)
	}
	if !format.IsPCM() {
		t.Errorf("Expected PCM audio, got format %d", format.AudioFormat)
	}
	if int(turn["audio_bytes"].(float64)) != len(wav) {
		t.Errorf("Expected %v audio bytes, got %d", turn["audio_bytes"], len(wav))
	}
	return turn
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Condition not met before deadline")
}

func TestHub_NewHub(t *testing.T) {
	hub, _ := setupTestHub(t)

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}
	if hub.clients == nil {
		t.Error("Hub clients map not initialized")
	}
	if hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels not initialized")
	}
	if len(hub.GetActiveSessions()) != 0 {
		t.Error("New hub should have no active sessions")
	}
}

func TestHub_SendToSession_NoClient(t *testing.T) {
	hub, _ := setupTestHub(t)

	err := hub.SendToSession("missing", WriteData{Type: websocket.TextMessage, Payload: []byte("{}")})
	if !errors.Is(err, ErrClientNotConnected) {
		t.Errorf("Expected ErrClientNotConnected, got %v", err)
	}

	if err := hub.NotifySessionState(entities.NewSession()); err != nil {
		t.Errorf("NotifySessionState without a client should be a no-op, got %v", err)
	}
}

func TestHub_NotifySessionState(t *testing.T) {
	ts := setupTestServer(t)
	conn, sessionID := ts.connect(t)
	waitFor(t, func() bool { return len(ts.hub.GetActiveSessions()) == 1 })

	record, err := ts.sessions.GetByID(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	err = record.Do(func(session *entities.Session) error {
		if err := session.Start("Data Engineer"); err != nil {
			return err
		}
		return ts.hub.NotifySessionState(session)
	})
	if err != nil {
		t.Fatalf("NotifySessionState failed: %v", err)
	}

	msg := readJSON(t, conn)
	if msg["type"] != string(MessageTypeSessionState) {
		t.Fatalf("Expected session_state push, got %v", msg["type"])
	}
	if msg["session_id"] != sessionID || msg["mode"] != string(entities.ModeInterview) || msg["role"] != "Data Engineer" {
		t.Errorf("Unexpected pushed state: %v", msg)
	}
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	ts := setupTestServer(t)

	conn, sessionID := ts.connect(t)

	waitFor(t, func() bool {
		active := ts.hub.GetActiveSessions()
		return len(active) == 1 && active[0] == sessionID
	})

	if err := ts.hub.SendToSession(sessionID, WriteData{Type: websocket.TextMessage, Payload: []byte(`{"type":"pong"}`)}); err != nil {
		t.Fatalf("SendToSession failed: %v", err)
	}
	if msg := readJSON(t, conn); msg["type"] != "pong" {
		t.Errorf("Expected pushed pong, got %v", msg["type"])
	}

	conn.Close()
	waitFor(t, func() bool {
		return len(ts.hub.GetActiveSessions()) == 0
	})
}

func TestHub_NewestConnectionWins(t *testing.T) {
	ts := setupTestServer(t)

	first, sessionID := ts.connect(t)
	waitFor(t, func() bool { return len(ts.hub.GetActiveSessions()) == 1 })

	second := ts.dial(t, sessionID)
	if msg := readJSON(t, second); msg["type"] != string(MessageTypeSessionState) {
		t.Fatalf("Expected session_state greeting, got %v", msg["type"])
	}

	first.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Error("Expected the replaced connection to be closed")
	}

	send(t, second, map[string]interface{}{"type": "ping", "data": "still here"})
	if msg := readJSON(t, second); msg["data"] != "still here" {
		t.Errorf("Expected pong on the newest connection, got %v", msg)
	}
}

func TestWebSocket_InterviewFlow(t *testing.T) {
	ts := setupTestServer(t)
	conn, sessionID := ts.connect(t)

	send(t, conn, map[string]interface{}{"type": "start_interview", "role": "Backend Engineer"})
	state := readJSON(t, conn)
	if state["mode"] != string(entities.ModeInterview) || state["role"] != "Backend Engineer" {
		t.Fatalf("Unexpected state after start: %v", state)
	}
	opening := readTurn(t, conn)
	if opening["session_id"] != sessionID {
		t.Errorf("Expected session_id %s, got %v", sessionID, opening["session_id"])
	}
	if !strings.HasSuffix(opening["text"].(string), "?") {
		t.Errorf("Expected a question, got %q", opening["text"])
	}

	send(t, conn, map[string]interface{}{"type": "text_answer", "text": "I build payment systems in Go."})
	next := readTurn(t, conn)
	if next["text"] == opening["text"] {
		t.Error("Expected a new question after the answer")
	}

	send(t, conn, map[string]interface{}{"type": "text_answer", "text": "Let's end interview here."})
	finished := readJSON(t, conn)
	if finished["mode"] != string(entities.ModeFeedback) {
		t.Fatalf("Expected FEEDBACK mode, got %v", finished["mode"])
	}
	if turns := finished["turns"].([]interface{}); len(turns) != 4 {
		t.Errorf("Expected 4 turns, got %d", len(turns))
	}

	send(t, conn, map[string]interface{}{"type": "request_feedback"})
	feedback := readJSON(t, conn)
	if feedback["type"] != string(MessageTypeFeedback) {
		t.Fatalf("Expected feedback, got %v", feedback["type"])
	}
	if !strings.Contains(feedback["text"].(string), "Overall Score") {
		t.Errorf("Unexpected feedback text: %v", feedback["text"])
	}

	send(t, conn, map[string]interface{}{"type": "start_new"})
	reset := readJSON(t, conn)
	if reset["mode"] != string(entities.ModeSetup) {
		t.Errorf("Expected SETUP mode after start_new, got %v", reset["mode"])
	}
	if turns := reset["turns"].([]interface{}); len(turns) != 0 {
		t.Errorf("Expected empty history after start_new, got %d turns", len(turns))
	}
}

func TestWebSocket_AudioAnswer(t *testing.T) {
	ts := setupTestServer(t)
	conn, _ := ts.connect(t)

	send(t, conn, map[string]interface{}{"type": "start_interview", "role": "Designer"})
	readJSON(t, conn)
	readTurn(t, conn)

	recording := audio.EncodePCM16(make([]byte, 4000), 16000, 1)

	send(t, conn, map[string]interface{}{"type": "listening_start"})
	for _, chunk := range [][]byte{recording[:2000], recording[2000:]} {
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			t.Fatalf("WriteMessage failed: %v", err)
		}
	}
	send(t, conn, map[string]interface{}{"type": "listening_end"})

	turn := readTurn(t, conn)
	if turn["transcript"] != "I enjoy solving problems with my team." {
		t.Errorf("Unexpected transcript: %v", turn["transcript"])
	}

	// a header-only recording holds no speech
	send(t, conn, map[string]interface{}{"type": "listening_start"})
	if err := conn.WriteMessage(websocket.BinaryMessage, audio.EncodePCM16(nil, 16000, 1)); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	send(t, conn, map[string]interface{}{"type": "listening_end"})

	notUnderstood := readJSON(t, conn)
	if notUnderstood["type"] != string(MessageTypeNotUnderstood) {
		t.Fatalf("Expected not_understood, got %v", notUnderstood["type"])
	}

	// a recording that is not WAV is rejected
	send(t, conn, map[string]interface{}{"type": "listening_start"})
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte("OggS not a wav file")); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	send(t, conn, map[string]interface{}{"type": "listening_end"})

	rejected := readJSON(t, conn)
	if rejected["type"] != string(MessageTypeError) || rejected["error_code"] != ErrorCodeValidation {
		t.Errorf("Expected validation error, got %v", rejected)
	}
}

func TestWebSocket_Errors(t *testing.T) {
	ts := setupTestServer(t)
	conn, sessionID := ts.connect(t)

	tests := []struct {
		name     string
		write    func()
		wantCode string
	}{
		{
			name: "invalid json",
			write: func() {
				conn.WriteMessage(websocket.TextMessage, []byte(`{"type":`))
			},
			wantCode: ErrorCodeInvalidMessage,
		},
		{
			name: "answer before the interview starts",
			write: func() {
				send(t, conn, map[string]interface{}{"type": "text_answer", "text": "hello"})
			},
			wantCode: ErrorCodeInvalidMode,
		},
		{
			name: "feedback before the interview starts",
			write: func() {
				send(t, conn, map[string]interface{}{"type": "request_feedback"})
			},
			wantCode: ErrorCodeInvalidMode,
		},
		{
			name: "start without a role",
			write: func() {
				send(t, conn, map[string]interface{}{"type": "start_interview", "role": "   "})
			},
			wantCode: ErrorCodeValidation,
		},
		{
			name: "audio outside of a recording",
			write: func() {
				conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3})
			},
			wantCode: ErrorCodeInvalidMessage,
		},
		{
			name: "listening end without start",
			write: func() {
				send(t, conn, map[string]interface{}{"type": "listening_end"})
			},
			wantCode: ErrorCodeInvalidMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.write()
			msg := readJSON(t, conn)
			if msg["type"] != string(MessageTypeError) {
				t.Fatalf("Expected error message, got %v", msg["type"])
			}
			if msg["error_code"] != tt.wantCode {
				t.Errorf("Expected error_code %s, got %v", tt.wantCode, msg["error_code"])
			}
		})
	}

	send(t, conn, map[string]interface{}{"type": "ping", "data": "heartbeat"})
	if pong := readJSON(t, conn); pong["type"] != string(MessageTypePong) || pong["data"] != "heartbeat" {
		t.Errorf("Expected pong, got %v", pong)
	}

	if err := ts.sessions.Delete(context.Background(), sessionID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	send(t, conn, map[string]interface{}{"type": "start_interview", "role": "Engineer"})
	if msg := readJSON(t, conn); msg["error_code"] != ErrorCodeSessionExpired {
		t.Errorf("Expected session_expired, got %v", msg)
	}
}

func TestSessionCleanupService(t *testing.T) {
	logger := zap.NewNop()
	repo := adapters.NewMemorySessionRepository(time.Millisecond, logger)

	for i := 0; i < 3; i++ {
		if err := repo.Create(context.Background(), entities.NewSession()); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	time.Sleep(10 * time.Millisecond)

	cleanup := NewSessionCleanupService(repo, time.Hour, logger)
	if expired := cleanup.runCleanup(); expired != 3 {
		t.Errorf("Expected 3 expired sessions, got %d", expired)
	}
	if repo.Count() != 0 {
		t.Errorf("Expected no sessions left, got %d", repo.Count())
	}

	if err := repo.Create(context.Background(), entities.NewSession()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	periodic := NewSessionCleanupService(repo, 5*time.Millisecond, logger)
	periodic.Start()
	waitFor(t, func() bool { return repo.Count() == 0 })
	periodic.Stop()
}
