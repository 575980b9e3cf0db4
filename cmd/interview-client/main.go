package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

// chunkSize is the size of each binary frame of an uploaded recording
const chunkSize = 1024

type createSessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	SessionID string    `json:"session_id"`
}

func main() {
	_ = godotenv.Load()

	serverURL := os.Getenv("SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}

	session, err := createSession(serverURL)
	if err != nil {
		log.Fatal("Failed to create session:", err)
	}
	log.Printf("Created session: %s", session.SessionID)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u, err := url.Parse(serverURL)
	if err != nil {
		log.Fatal("invalid SERVER_URL:", err)
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws"
	log.Printf("connecting to %s", u.String())

	headers := http.Header{}
	headers.Add("Authorization", "Bearer "+session.Token)

	c, resp, err := websocket.DefaultDialer.Dial(u.String(), headers)
	if err != nil {
		if resp != nil {
			log.Fatalf("dial failed with status %d: %v", resp.StatusCode, err)
		}
		log.Fatal("dial:", err)
	}
	defer c.Close()

	done := make(chan struct{})
	go handleIncomingMessages(c, done)

	printUsage()
	lines := make(chan string)
	go readLines(lines)

	for {
		select {
		case <-done:
			return
		case line, ok := <-lines:
			if !ok {
				closeConnection(c, done)
				return
			}
			if err := handleLine(c, line); err != nil {
				log.Printf("Error: %v", err)
			}
		case <-interrupt:
			log.Println("interrupt")
			closeConnection(c, done)
			return
		}
	}
}

func printUsage() {
	fmt.Println("Commands:")
	fmt.Println("  /start <role>   start an interview for a role")
	fmt.Println("  /audio <file>   answer with a 16-bit PCM WAV recording")
	fmt.Println("  /end            end the interview")
	fmt.Println("  /feedback       request feedback")
	fmt.Println("  /new            start over")
	fmt.Println("  anything else   is sent as a typed answer")
}

func readLines(lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

func handleLine(c *websocket.Conn, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "/start":
		return sendJSONMessage(c, map[string]interface{}{"type": "start_interview", "role": arg})
	case "/audio":
		return sendRecording(c, arg)
	case "/end":
		return sendJSONMessage(c, map[string]interface{}{"type": "end_interview"})
	case "/feedback":
		return sendJSONMessage(c, map[string]interface{}{"type": "request_feedback"})
	case "/new":
		return sendJSONMessage(c, map[string]interface{}{"type": "start_new"})
	default:
		return sendJSONMessage(c, map[string]interface{}{"type": "text_answer", "text": line})
	}
}

func createSession(serverURL string) (*createSessionResponse, error) {
	resp, err := http.Post(serverURL+"/api/v1/sessions", "application/json", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("session creation failed with status %d", resp.StatusCode)
	}

	var session createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// sendRecording streams a WAV file between listening_start and listening_end
func sendRecording(c *websocket.Conn, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read recording: %w", err)
	}
	log.Printf("📁 Read audio file: %s (%d bytes)", path, len(data))

	if err := sendJSONMessage(c, map[string]interface{}{"type": "listening_start"}); err != nil {
		return err
	}

	for start := 0; start < len(data); start += chunkSize {
		end := start + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := c.WriteMessage(websocket.BinaryMessage, data[start:end]); err != nil {
			return fmt.Errorf("failed to send audio chunk: %w", err)
		}
	}

	return sendJSONMessage(c, map[string]interface{}{"type": "listening_end"})
}

func sendJSONMessage(c *websocket.Conn, message map[string]interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

func closeConnection(c *websocket.Conn, done chan struct{}) {
	// Cleanly close the connection by sending a close message and then
	// waiting (with timeout) for the server to close the connection.
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		log.Println("write close:", err)
		return
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}

func handleIncomingMessages(c *websocket.Conn, done chan struct{}) {
	defer close(done)
	audioCount := 0

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			log.Println("read:", err)
			return
		}

		if messageType == websocket.BinaryMessage {
			audioCount++
			if path, err := saveAudio(audioCount, message); err != nil {
				log.Printf("Error saving interviewer audio: %v", err)
			} else {
				log.Printf("🎵 Saved interviewer audio to %s (%d bytes)", path, len(message))
			}
			continue
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Println("unmarshal error:", err)
			continue
		}

		switch msg["type"] {
		case "session_state":
			fmt.Printf("[%v] role=%v turns=%d\n", msg["mode"], msg["role"], len(asSlice(msg["turns"])))
		case "interviewer_turn":
			if transcript, ok := msg["transcript"].(string); ok && transcript != "" {
				fmt.Printf("You (transcribed): %s\n", transcript)
			}
			fmt.Printf("Interviewer: %v\n", msg["text"])
		case "not_understood":
			fmt.Println(msg["message"])
		case "feedback":
			fmt.Printf("\n%v\n\n", msg["text"])
		case "error":
			fmt.Printf("Error (%v): %v\n", msg["error_code"], msg["message"])
		case "pong":
		default:
			log.Printf("Received unknown message type: %v", msg["type"])
		}
	}
}

func saveAudio(n int, wav []byte) (string, error) {
	audioDir := "audio_responses"
	if err := os.MkdirAll(audioDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(audioDir, fmt.Sprintf("%d_%02d.wav", time.Now().Unix(), n))
	return path, os.WriteFile(path, wav, 0644)
}

func asSlice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}
