package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"agronity/agronity-backend/internal/notifications"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 8192
	sendBuffer     = 64
)

var errManagerClosed = errors.New("websocket manager closed")

// RequestHandler answers one request message with a result message.
type RequestHandler func(ctx context.Context, msg notifications.WebSocketMessage) (notifications.WebSocketMessage, error)

// Manager handles WebSocket connections and message routing
type Manager struct {
	connections map[string]*Connection
	mu          sync.RWMutex
	hub         *Hub
	upgrader    websocket.Upgrader
	handler     RequestHandler
	logger      *zap.Logger
}

// Connection represents a WebSocket client connection
type Connection struct {
	ID           string
	Conn         *websocket.Conn
	Send         chan notifications.WebSocketMessage
	ConnectedAt  time.Time
	LastActivity time.Time
	UserAgent    string
	IPAddress    string
	mu           sync.Mutex
}

type directMessage struct {
	conn *Connection
	msg  notifications.WebSocketMessage
}

// Hub owns every Send channel: it is the only goroutine that writes to or
// closes them.
type Hub struct {
	connections map[*Connection]bool
	broadcast   chan notifications.WebSocketMessage
	direct      chan directMessage
	register    chan *Connection
	unregister  chan *Connection
	stop        chan struct{}
	done        chan struct{}
	logger      *zap.Logger
}

// NewManager creates a new WebSocket manager. handler answers analyze
// requests; a nil handler rejects them.
func NewManager(handler RequestHandler, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	hub := &Hub{
		connections: make(map[*Connection]bool),
		broadcast:   make(chan notifications.WebSocketMessage, 256),
		direct:      make(chan directMessage, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger,
	}

	go hub.run()

	return &Manager{
		connections: make(map[string]*Connection),
		hub:         hub,
		handler:     handler,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleConnection handles new WebSocket connections
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request) (*Connection, error) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	now := time.Now()
	connection := &Connection{
		ID:           uuid.New().String(),
		Conn:         conn,
		Send:         make(chan notifications.WebSocketMessage, sendBuffer),
		ConnectedAt:  now,
		LastActivity: now,
		UserAgent:    r.Header.Get("User-Agent"),
		IPAddress:    r.RemoteAddr,
	}

	select {
	case m.hub.register <- connection:
	case <-m.hub.done:
		conn.Close()
		return nil, errManagerClosed
	}

	m.mu.Lock()
	m.connections[connection.ID] = connection
	m.mu.Unlock()

	go m.readPump(connection)
	go m.writePump(connection)

	return connection, nil
}

// readPump reads requests until the client goes away
func (m *Manager) readPump(conn *Connection) {
	defer func() {
		m.mu.Lock()
		delete(m.connections, conn.ID)
		m.mu.Unlock()

		select {
		case m.hub.unregister <- conn:
		case <-m.hub.done:
		}
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(maxMessageSize)
	conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg notifications.WebSocketMessage
		if err := conn.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Warn("WebSocket read failed", zap.String("connection_id", conn.ID), zap.Error(err))
			}
			return
		}

		conn.mu.Lock()
		conn.LastActivity = time.Now()
		conn.mu.Unlock()

		m.handleMessage(conn, msg)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (m *Manager) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming WebSocket messages
func (m *Manager) handleMessage(conn *Connection, msg notifications.WebSocketMessage) {
	switch msg.Type {
	case notifications.WSMessageTypeAnalyze:
		m.handleAnalyzeMessage(conn, msg)
	case notifications.WSMessageTypePresence:
		data, _ := json.Marshal(map[string]string{"status": "connected", "connection_id": conn.ID})
		m.reply(conn, notifications.WebSocketMessage{
			Type:      notifications.WSMessageTypeStatus,
			RequestID: msg.RequestID,
			Data:      data,
			Timestamp: time.Now(),
			Channel:   "private",
		})
	default:
		m.replyError(conn, msg.RequestID, fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

func (m *Manager) handleAnalyzeMessage(conn *Connection, msg notifications.WebSocketMessage) {
	if m.handler == nil {
		m.replyError(conn, msg.RequestID, "analysis is not available on this stream")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pongWait)
	defer cancel()

	result, err := m.callHandler(ctx, msg)
	if err != nil {
		m.replyError(conn, msg.RequestID, err.Error())
		return
	}
	if result.Type == "" {
		result.Type = notifications.WSMessageTypeResult
	}
	if result.RequestID == "" {
		result.RequestID = msg.RequestID
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}
	result.Channel = "private"
	m.reply(conn, result)
}

// callHandler turns a handler panic into an error so one bad request cannot
// take down the read loop.
func (m *Manager) callHandler(ctx context.Context, msg notifications.WebSocketMessage) (result notifications.WebSocketMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Analyze handler panicked",
				zap.String("request_id", msg.RequestID),
				zap.Any("panic", r))
			err = errors.New("internal error")
		}
	}()
	return m.handler(ctx, msg)
}

func (m *Manager) replyError(conn *Connection, requestID, message string) {
	data, _ := json.Marshal(map[string]string{"error": message})
	m.reply(conn, notifications.WebSocketMessage{
		Type:      notifications.WSMessageTypeError,
		RequestID: requestID,
		Data:      data,
		Timestamp: time.Now(),
		Channel:   "private",
	})
}

func (m *Manager) reply(conn *Connection, msg notifications.WebSocketMessage) {
	select {
	case m.hub.direct <- directMessage{conn: conn, msg: msg}:
	case <-m.hub.done:
	}
}

// run runs the hub in its own goroutine
func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case conn := <-h.register:
			h.connections[conn] = true
			h.logger.Debug("Connection registered", zap.String("connection_id", conn.ID))

		case conn := <-h.unregister:
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				close(conn.Send)
				h.logger.Debug("Connection unregistered", zap.String("connection_id", conn.ID))
			}

		case d := <-h.direct:
			if h.connections[d.conn] {
				h.deliver(d.conn, d.msg)
			}

		case message := <-h.broadcast:
			for conn := range h.connections {
				h.deliver(conn, message)
			}

		case <-h.stop:
			for conn := range h.connections {
				close(conn.Send)
				delete(h.connections, conn)
			}
			return
		}
	}
}

func (h *Hub) deliver(conn *Connection, msg notifications.WebSocketMessage) {
	select {
	case conn.Send <- msg:
	default:
		h.logger.Warn("Connection buffer full, dropping message",
			zap.String("connection_id", conn.ID),
			zap.String("type", msg.Type))
	}
}

// Broadcast sends a message to all connected clients
func (m *Manager) Broadcast(message notifications.WebSocketMessage) error {
	select {
	case <-m.hub.done:
		return errManagerClosed
	default:
	}
	select {
	case m.hub.broadcast <- message:
		return nil
	default:
		return fmt.Errorf("broadcast channel full")
	}
}

// GetConnectionCount returns the number of active connections
func (m *Manager) GetConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// ConnectionInfo represents connection information for monitoring
type ConnectionInfo struct {
	ConnectionID string    `json:"connection_id"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActivity time.Time `json:"last_activity"`
	UserAgent    string    `json:"user_agent"`
	IPAddress    string    `json:"ip_address"`
}

// GetConnectionInfo returns information about all active connections
func (m *Manager) GetConnectionInfo() []ConnectionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info := make([]ConnectionInfo, 0, len(m.connections))
	for _, conn := range m.connections {
		conn.mu.Lock()
		info = append(info, ConnectionInfo{
			ConnectionID: conn.ID,
			ConnectedAt:  conn.ConnectedAt,
			LastActivity: conn.LastActivity,
			UserAgent:    conn.UserAgent,
			IPAddress:    conn.IPAddress,
		})
		conn.mu.Unlock()
	}
	return info
}

// Close stops the hub and disconnects every client. It must be called once.
func (m *Manager) Close() {
	close(m.hub.stop)
	<-m.hub.done

	m.mu.Lock()
	for _, conn := range m.connections {
		conn.Conn.Close()
	}
	m.connections = make(map[string]*Connection)
	m.mu.Unlock()
}
