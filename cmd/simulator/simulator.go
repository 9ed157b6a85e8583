package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SimulatorConfig holds the simulator configuration
type SimulatorConfig struct {
	ServerURL    string
	BotID        string
	SessionID    string
	UserID       string
	ReplyTimeout time.Duration
}

type chatFrame struct {
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Message   string `json:"message"`
	Restart   bool   `json:"restart,omitempty"`
}

// Reply mirrors the server's chat frame. Only the fields the terminal
// prints are decoded.
type Reply struct {
	SessionID      string            `json:"session_id"`
	ResponseText   string            `json:"response_text"`
	IntentName     *string           `json:"intent_name"`
	Confidence     float64           `json:"confidence"`
	Entities       map[string]string `json:"entities"`
	State          string            `json:"state"`
	Suggestions    []string          `json:"suggestions"`
	ResponseTimeMs int64             `json:"response_time_ms"`
	Error          string            `json:"error"`
	Code           string            `json:"code"`
}

// Simulator drives one conversation over the chat WebSocket.
type Simulator struct {
	config  *SimulatorConfig
	conn    *websocket.Conn
	log     *zap.Logger
	replies chan Reply

	writeMu  sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewSimulator(config *SimulatorConfig, log *zap.Logger) *Simulator {
	if config.ReplyTimeout <= 0 {
		config.ReplyTimeout = 15 * time.Second
	}
	return &Simulator{
		config:   config,
		log:      log,
		replies:  make(chan Reply, 8),
		stopChan: make(chan struct{}),
	}
}

// Endpoint returns the chat URL for the configured bot.
func (s *Simulator) Endpoint() (string, error) {
	u, err := url.Parse(s.config.ServerURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/bots/" + url.PathEscape(s.config.BotID) + "/chat"
	return u.String(), nil
}

// Connect dials the chat endpoint and starts the reader.
func (s *Simulator) Connect() error {
	endpoint, err := s.Endpoint()
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	s.conn = conn
	s.log.Info("Connected to chat endpoint",
		zap.String("url", endpoint),
		zap.String("bot_id", s.config.BotID),
	)

	s.wg.Add(1)
	go s.readMessages()
	return nil
}

func (s *Simulator) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.conn != nil {
			s.writeMu.Lock()
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			s.writeMu.Unlock()
			s.conn.Close()
		}
	})
	s.wg.Wait()
}

func (s *Simulator) readMessages() {
	defer s.wg.Done()
	defer close(s.replies)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopChan:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					s.log.Error("Read error", zap.Error(err))
				}
			}
			return
		}

		var r Reply
		if err := json.Unmarshal(data, &r); err != nil {
			s.log.Warn("Undecodable frame", zap.ByteString("frame", data), zap.Error(err))
			continue
		}
		if r.SessionID != "" {
			s.config.SessionID = r.SessionID
		}
		select {
		case s.replies <- r:
		case <-s.stopChan:
			return
		}
	}
}

// Send posts one message and waits for its reply.
func (s *Simulator) Send(message string, restart bool) (Reply, error) {
	frame := chatFrame{
		SessionID: s.config.SessionID,
		UserID:    s.config.UserID,
		Message:   message,
		Restart:   restart,
	}

	s.writeMu.Lock()
	err := s.conn.WriteJSON(frame)
	s.writeMu.Unlock()
	if err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	select {
	case r, ok := <-s.replies:
		if !ok {
			return Reply{}, errors.New("connection closed")
		}
		return r, nil
	case <-time.After(s.config.ReplyTimeout):
		return Reply{}, errors.New("timed out waiting for reply")
	}
}

// RunScript sends every non-empty line of r and prints the replies.
func (s *Simulator) RunScript(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fmt.Fprintf(w, "you> %s\n", line)
		reply, err := s.Send(line, false)
		if err != nil {
			return err
		}
		printReply(w, reply)
	}
	return scanner.Err()
}

// RunInteractive reads messages from r until /quit or EOF.
func (s *Simulator) RunInteractive(r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	fmt.Fprint(w, "> ")

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprint(w, "> ")
			continue
		}

		switch {
		case line == "/quit" || line == "/exit":
			fmt.Fprintln(w, "Goodbye!")
			return
		case line == "/session":
			fmt.Fprintf(w, "session: %s\n", s.config.SessionID)
		case strings.HasPrefix(line, "/restart"):
			msg := strings.TrimSpace(strings.TrimPrefix(line, "/restart"))
			if msg == "" {
				msg = "hello"
			}
			reply, err := s.Send(msg, true)
			if err != nil {
				fmt.Fprintf(w, "error: %v\n", err)
				return
			}
			printReply(w, reply)
		default:
			reply, err := s.Send(line, false)
			if err != nil {
				fmt.Fprintf(w, "error: %v\n", err)
				return
			}
			printReply(w, reply)
		}

		fmt.Fprint(w, "> ")
	}
}

func printReply(w io.Writer, r Reply) {
	if r.Error != "" {
		fmt.Fprintf(w, "bot!  [%s] %s\n", r.Code, r.Error)
		return
	}
	fmt.Fprintf(w, "bot>  %s\n", r.ResponseText)
	if r.IntentName != nil {
		fmt.Fprintf(w, "      intent=%s confidence=%.2f state=%s %dms\n",
			*r.IntentName, r.Confidence, r.State, r.ResponseTimeMs)
	}
	for name, value := range r.Entities {
		fmt.Fprintf(w, "      %s=%s\n", name, value)
	}
	if len(r.Suggestions) > 0 {
		fmt.Fprintf(w, "      did you mean: %s\n", strings.Join(r.Suggestions, ", "))
	}
}
