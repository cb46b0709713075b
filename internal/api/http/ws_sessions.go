package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/daat21/lumiere/internal/chat"
	"github.com/daat21/lumiere/internal/metrics"
	"github.com/daat21/lumiere/internal/search"
)

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = 30 * time.Second
	wsReadLimit   = 8 * 1024
	wsSendBuffer  = 64
	sessionSearch = "search"
	sessionChat   = "chat"
)

// wsMessage is the server to client envelope.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// clientMessage is the client to server envelope of both session kinds.
type clientMessage struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Category string `json:"category,omitempty"`
	Content  string `json:"content,omitempty"`
}

type navigateMessage struct {
	URL   string          `json:"url"`
	Query string          `json:"query"`
	Type  search.Category `json:"type"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// sessionHub tracks open websocket sessions so shutdown can close them.
type sessionHub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
	logger  *slog.Logger
}

func newSessionHub(logger *slog.Logger) *sessionHub {
	return &sessionHub{clients: make(map[*wsClient]struct{}), logger: logger}
}

func (h *sessionHub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.ActiveSessions.WithLabelValues(c.kind).Inc()
	h.logger.Debug("ws session opened", slog.String("session", c.id), slog.String("kind", c.kind), slog.Int("total", len(h.clients)))
	return true
}

func (h *sessionHub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	metrics.ActiveSessions.WithLabelValues(c.kind).Dec()
	h.logger.Debug("ws session closed", slog.String("session", c.id), slog.String("kind", c.kind), slog.Int("total", len(h.clients)))
}

func (h *sessionHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client with a going-away close frame.
func (h *sessionHub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(2*time.Second),
		)
		c.shutdown()
	}
	h.logger.Debug("ws hub stopped, all sessions disconnected")
}

type wsClient struct {
	id     string
	kind   string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func newWSClient(conn *websocket.Conn, kind string, logger *slog.Logger) *wsClient {
	id := uuid.NewString()
	return &wsClient{
		id:     id,
		kind:   kind,
		conn:   conn,
		send:   make(chan []byte, wsSendBuffer),
		done:   make(chan struct{}),
		logger: logger.With(slog.String("session", id), slog.String("kind", kind)),
	}
}

func (c *wsClient) shutdown() {
	c.once.Do(func() { close(c.done) })
}

// enqueue queues a message for the write pump. A client that falls a full
// buffer behind is disconnected.
func (c *wsClient) enqueue(msgType string, data any) {
	payload, err := json.Marshal(wsMessage{Type: msgType, Data: data})
	if err != nil {
		c.logger.Error("ws marshal failed", slog.String("error", err.Error()))
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- payload:
	case <-c.done:
	default:
		c.logger.Warn("ws send buffer full, dropping session")
		c.shutdown()
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.shutdown()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// readPump decodes client messages and hands them to handle until the
// connection fails or the session is shut down.
func (c *wsClient) readPump(handle func(clientMessage)) {
	defer c.shutdown()
	c.conn.SetReadLimit(wsReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("ws read failed", slog.String("error", err.Error()))
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue("error", map[string]string{"message": "invalid message"})
			continue
		}
		msg.Type = strings.ToLower(strings.TrimSpace(msg.Type))
		handle(msg)
	}
}

// serveSession upgrades the request and runs the pumps until the client
// leaves. setup returns the message handler and a cleanup func.
func (s *Server) serveSession(w http.ResponseWriter, r *http.Request, kind string, setup func(ctx context.Context, c *wsClient) (func(clientMessage), func())) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := newWSClient(conn, kind, s.logger)
	if !s.sessions.register(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	handle, cleanup := setup(ctx, client)
	go client.writePump()
	go func() {
		client.readPump(handle)
		cancel()
		cleanup()
		s.sessions.unregister(client)
	}()
}

func (s *Server) handleSearchSession(w http.ResponseWriter, r *http.Request) {
	if !s.catalogReady(w) {
		return
	}
	s.serveSession(w, r, sessionSearch, func(_ context.Context, client *wsClient) (func(clientMessage), func()) {
		var box *search.Box
		box = search.NewBox(search.BoxConfig{
			Source:        s.catalog,
			Debounce:      s.debounce,
			TrendingLimit: s.trendingLimit,
			Logger:        client.logger,
			OnUpdate: func() {
				client.enqueue("dropdown", box.Dropdown())
			},
		})
		client.enqueue("dropdown", box.Dropdown())

		handle := func(msg clientMessage) {
			switch msg.Type {
			case "focus":
				box.Focus()
			case "change":
				box.Change(msg.Text)
			case "blur":
				box.Blur()
			case "submit":
				client.enqueue("navigate", navigation(box.Submit()))
			case "select":
				nav, err := box.Select(msg.Text, search.Category(msg.Category))
				if err != nil {
					client.enqueue("error", map[string]string{"message": err.Error()})
					return
				}
				client.enqueue("navigate", navigation(nav))
			default:
				client.enqueue("error", map[string]string{"message": "unknown message type"})
			}
		}
		return handle, box.Close
	})
}

// chatFailureMessage keeps upstream error text out of client messages.
func chatFailureMessage(err error) string {
	if errors.Is(err, chat.ErrSessionBusy) || errors.Is(err, chat.ErrEmptyHistory) {
		return err.Error()
	}
	return "completion failed"
}

func navigation(nav search.Navigation) navigateMessage {
	return navigateMessage{URL: nav.URL(), Query: nav.Query, Type: nav.Type}
}

func (s *Server) handleChatSession(w http.ResponseWriter, r *http.Request) {
	if s.completer == nil {
		writeError(w, http.StatusServiceUnavailable, "not_configured", chat.ErrNoCompleter.Error())
		return
	}
	if !s.catalogReady(w) {
		return
	}
	s.serveSession(w, r, sessionChat, func(ctx context.Context, client *wsClient) (func(clientMessage), func()) {
		session := chat.NewSession(chat.SessionConfig{
			Completer: s.completer,
			Searcher:  s.catalog,
			Resolver:  chat.ResolverConfig{Logger: client.logger},
			OnUpdate: func(messages []chat.RenderedMessage) {
				client.enqueue("messages", messages)
			},
		})

		handle := func(msg clientMessage) {
			if msg.Type != "message" {
				client.enqueue("error", map[string]string{"message": "unknown message type"})
				return
			}
			go func() {
				err := session.Send(ctx, msg.Content)
				if err == nil || errors.Is(err, context.Canceled) {
					return
				}
				client.logger.Warn("chat reply failed", slog.String("error", err.Error()))
				client.enqueue("error", map[string]string{"message": chatFailureMessage(err)})
			}()
		}
		return handle, session.Close
	})
}
