package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendChanBuf   = 256
	writeDeadline = 10 * time.Second
	readDeadline  = 60 * time.Second
	pingInterval  = 30 * time.Second // server-side WS ping
)

// Packet is the unified WS message envelope. Replies echo the request seq.
type Packet struct {
	Seq     uint64          `json:"seq,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Session is one connected WebSocket client.
type Session struct {
	ID       string
	Conn     *websocket.Conn
	SendChan chan []byte
	Done     chan struct{}

	// LastSeq is only touched by the read pump.
	LastSeq uint64

	closeOnce sync.Once
	logger    *zap.Logger
}

// NewSession creates a Session and starts its write goroutine.
func NewSession(conn *websocket.Conn, logger *zap.Logger) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		Conn:     conn,
		SendChan: make(chan []byte, sendChanBuf),
		Done:     make(chan struct{}),
		logger:   logger,
	}
	go s.writePump()
	return s
}

// writePump drains SendChan and writes to the connection. It also sends
// periodic pings so dead peers are noticed by the read deadline.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.Conn.Close()
	for {
		select {
		case data := <-s.SendChan:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn("ws write error", zap.String("session_id", s.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.Done:
			_ = s.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send encodes payload into a packet of type typ and queues it without
// blocking. Packets are dropped when the queue is full or the session closed.
func (s *Session) Send(seq uint64, typ string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("ws encode payload", zap.String("type", typ), zap.Error(err))
		return
	}
	data, err := json.Marshal(Packet{Seq: seq, Type: typ, Payload: raw})
	if err != nil {
		return
	}
	s.SendRaw(data)
}

// SendRaw queues pre-encoded bytes without blocking.
func (s *Session) SendRaw(data []byte) {
	if s.IsClosed() {
		return
	}
	select {
	case s.SendChan <- data:
	case <-s.Done:
	default:
		s.logger.Warn("send channel full, dropping packet", zap.String("session_id", s.ID))
	}
}

// Close signals the write pump to shut down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.Done) })
}

// IsClosed reports whether Close has been called.
func (s *Session) IsClosed() bool {
	select {
	case <-s.Done:
		return true
	default:
		return false
	}
}

// SetReadDeadline pushes the read deadline readDeadline into the future.
func (s *Session) SetReadDeadline() {
	_ = s.Conn.SetReadDeadline(time.Now().Add(readDeadline))
}

// SessionManager maintains the registry of connected sessions.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *zap.Logger
}

// NewSessionManager creates an empty SessionManager.
func NewSessionManager(logger *zap.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

func (sm *SessionManager) Register(s *Session) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[s.ID] = s
	sm.logger.Info("ws session registered", zap.String("session_id", s.ID))
}

func (sm *SessionManager) Unregister(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, id)
	sm.logger.Info("ws session unregistered", zap.String("session_id", id))
}

// Count returns the number of connected sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

func (sm *SessionManager) snapshot() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		out = append(out, s)
	}
	return out
}

// BroadcastAll sends pre-encoded bytes to every session. A slow client
// loses the packet instead of stalling the broadcast.
func (sm *SessionManager) BroadcastAll(data []byte) {
	for _, s := range sm.snapshot() {
		s.SendRaw(data)
	}
}

// CloseAll closes every connected session.
func (sm *SessionManager) CloseAll() {
	sessions := sm.snapshot()
	sm.logger.Info("closing all ws sessions", zap.Int("count", len(sessions)))
	for _, s := range sessions {
		s.Close()
	}
}
