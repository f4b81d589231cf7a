package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/lhviewer/constants"
	"github.com/ethpandaops/lhviewer/internal/report"
)

const maxWSMessageBytes = constants.DefaultMaxUploadBytes

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

type wsInbound struct {
	LHResults json.RawMessage `json:"lhresults"`
}

type wsOutbound struct {
	Opened  bool   `json:"opened,omitempty"`
	HTML    string `json:"html,omitempty"`
	Warning string `json:"warning,omitempty"`
	Message string `json:"message,omitempty"`
}

// hub fans rendered reports out to every connected viewer. The most recent
// render is replayed to viewers that connect later.
type hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	latest  []byte
	logger  logrus.FieldLogger
}

func newHub(logger logrus.FieldLogger) *hub {
	return &hub{
		clients: make(map[*client]struct{}),
		logger:  logger.WithField("component", "viewer_hub"),
	}
}

func (h *hub) Register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	latest := h.latest
	h.mu.Unlock()

	if latest != nil {
		c.Send(latest)
	}
}

func (h *hub) Unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close()
}

// Broadcast replaces the current render and pushes it to all viewers.
func (h *hub) Broadcast(msg []byte) {
	h.mu.Lock()
	h.latest = msg
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if !c.Send(msg) {
			h.logger.Info("Dropping viewer for slow reader")
			go h.Unregister(c)
		}
	}
}

func (h *hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

func (h *hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.Close()
		delete(h.clients, c)
	}
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, constants.DefaultWSSendBuffer),
	}
}

// Send queues msg, reporting false when the client is closed or backed up.
func (c *client) Send(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

func (c *client) writeLoop(logger logrus.FieldLogger) {
	ticker := time.NewTicker(constants.DefaultWSPongWait * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.DefaultWSWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.WithError(err).Debug("Failed to write websocket message")

				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.DefaultWSWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readLoop(onMessage func([]byte)) {
	c.conn.SetReadLimit(maxWSMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(constants.DefaultWSPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(constants.DefaultWSPongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		_ = c.conn.SetReadDeadline(time.Now().Add(constants.DefaultWSPongWait))
		onMessage(data)
	}
}

func (s *Server) serveWS(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to upgrade websocket")

		return nil
	}

	cl := newClient(conn)
	cl.Send(mustEncode(wsOutbound{Opened: true}))
	s.hub.Register(cl)

	s.logger.WithField("viewers", s.hub.Len()).Debug("Viewer connected")

	go cl.writeLoop(s.logger)

	ctx := context.WithoutCancel(c.Request().Context())
	cl.readLoop(func(data []byte) {
		s.handleWSMessage(ctx, cl, data)
	})

	s.hub.Unregister(cl)
	s.logger.WithField("viewers", s.hub.Len()).Debug("Viewer disconnected")

	return nil
}

// handleWSMessage renders a posted report and broadcasts it. Bad input is
// reported to the sender only.
func (s *Server) handleWSMessage(ctx context.Context, cl *client, data []byte) {
	var in wsInbound
	if err := json.Unmarshal(data, &in); err != nil {
		cl.Send(mustEncode(wsOutbound{Message: report.ErrNotJSON.Error()}))

		return
	}

	rep, err := report.FromValue(in.LHResults)
	if err != nil {
		msg := report.ErrNotLighthouseReport.Error()
		if errors.Is(err, report.ErrNotJSON) {
			msg = report.ErrNotJSON.Error()
		}
		cl.Send(mustEncode(wsOutbound{Message: msg}))

		return
	}

	page, err := s.renderer.RenderPage(ctx, rep)
	if err != nil {
		s.logger.WithError(err).Error("Failed to render websocket report")
		cl.Send(mustEncode(wsOutbound{Message: err.Error()}))

		return
	}

	s.hub.Broadcast(mustEncode(wsOutbound{HTML: page.Fragment, Warning: page.Warning}))
}

func mustEncode(v wsOutbound) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return b
}
