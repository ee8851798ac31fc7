// Package gateway serves the chat command stream over websockets. Each frame
// in is one chat message; each handled command produces one frame out.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"cookieboy-api/internal/command"
	"cookieboy-api/internal/middleware"
	"cookieboy-api/pkg/uid"

	"github.com/gorilla/websocket"
)

// Dispatcher runs chat commands.
type Dispatcher interface {
	Handle(ctx context.Context, msg command.Message) (string, bool, error)
}

// Recorder tracks connected clients.
type Recorder interface {
	ClientConnected()
	ClientDisconnected()
}

type nopRecorder struct{}

func (nopRecorder) ClientConnected()    {}
func (nopRecorder) ClientDisconnected() {}

// Config holds websocket settings.
type Config struct {
	MaxMessageBytes int64
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	// AllowedOrigins restricts browser clients. Empty or "*" allows any origin.
	AllowedOrigins []string
	SendQueue      int
}

// DefaultConfig returns the default gateway settings.
func DefaultConfig() Config {
	return Config{
		MaxMessageBytes: 4096,
		PingInterval:    30 * time.Second,
		WriteTimeout:    10 * time.Second,
		SendQueue:       16,
	}
}

// InboundFrame is a chat message plus an optional client correlation ID.
type InboundFrame struct {
	command.Message
	RequestID string `json:"request_id,omitempty"`
}

// OutboundFrame answers one inbound frame.
type OutboundFrame struct {
	Reply     string `json:"reply,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id"`
}

// Server upgrades HTTP requests to chat sessions.
type Server struct {
	dispatcher Dispatcher
	config     Config
	recorder   Recorder
	upgrader   websocket.Upgrader

	// closing ends every session when cancelled.
	closing  context.Context
	closeAll context.CancelFunc
	mu       sync.Mutex
	shutdown bool
	wg       sync.WaitGroup
}

// NewServer creates a websocket gateway. recorder may be nil.
func NewServer(dispatcher Dispatcher, config Config, recorder Recorder) *Server {
	def := DefaultConfig()
	if config.MaxMessageBytes <= 0 {
		config.MaxMessageBytes = def.MaxMessageBytes
	}
	if config.PingInterval <= 0 {
		config.PingInterval = def.PingInterval
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = def.WriteTimeout
	}
	if config.SendQueue <= 0 {
		config.SendQueue = def.SendQueue
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	s := &Server{
		dispatcher: dispatcher,
		config:     config,
		recorder:   recorder,
	}
	s.closing, s.closeAll = context.WithCancel(context.Background())
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.config.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// Shutdown closes every open session and waits for in-flight commands to
// finish, or until ctx is done. New upgrades are refused afterwards.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	s.closeAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP handles GET /ws/chat
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		log.Printf("[Gateway] Upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}

	s.recorder.ClientConnected()
	defer s.recorder.ClientDisconnected()

	s.serve(r.Context(), conn)
}

func (s *Server) serve(parent context.Context, conn *websocket.Conn) {
	defer conn.Close()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	stop := context.AfterFunc(s.closing, cancel)
	defer stop()

	out := make(chan OutboundFrame, s.config.SendQueue)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx, cancel, conn, out)
	}()

	s.readLoop(ctx, conn, out)
	cancel()
	<-writerDone
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- OutboundFrame) {
	readWait := 2 * s.config.PingInterval
	conn.SetReadLimit(s.config.MaxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		if msgType != websocket.TextMessage {
			continue
		}

		frame, ok := s.handle(ctx, data)
		if !ok {
			continue
		}
		select {
		case out <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// handle runs one inbound frame. ok is false when nothing should be sent back.
func (s *Server) handle(ctx context.Context, data []byte) (OutboundFrame, bool) {
	var in InboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		return OutboundFrame{Error: "invalid frame", RequestID: uid.New()}, true
	}
	if in.RequestID == "" {
		in.RequestID = uid.New()
	}

	reply, handled, err := s.dispatcher.Handle(middleware.WithRequestID(ctx, in.RequestID), in.Message)
	if err != nil {
		return OutboundFrame{Reply: command.FailureReply, RequestID: in.RequestID}, true
	}
	if !handled {
		return OutboundFrame{}, false
	}
	return OutboundFrame{Reply: reply, RequestID: in.RequestID}, true
}

func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan OutboundFrame) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(time.Second))
			// Unblock the reader.
			_ = conn.Close()
			return

		case frame := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteJSON(frame); err != nil {
				log.Printf("[Gateway] Write failed: %v", err)
				cancel()
				// Unblock the reader.
				_ = conn.Close()
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.WriteTimeout)); err != nil {
				cancel()
				_ = conn.Close()
				return
			}
		}
	}
}
