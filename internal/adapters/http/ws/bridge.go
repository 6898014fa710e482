// Package ws lets real browser tabs join the broadcast channel over a
// WebSocket. Every connection gets its own endpoint on the transport, so a
// tab sees every other tab's gestures and never its own.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/okian/handnav/internal/adapters/broadcast"
	"github.com/okian/handnav/internal/domain/gesture"
	"github.com/okian/handnav/internal/domain/model"
	"github.com/okian/handnav/pkg/logger"
	"github.com/okian/handnav/pkg/metrics"
)

// Bridge upgrades HTTP requests and pumps messages between sockets and the
// transport.
type Bridge struct {
	transport broadcast.Transport
	channel   string
	opts      options
	log       logger.Logger
	upgrader  websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
}

// NewBridge creates a bridge for channel on t.
func NewBridge(t broadcast.Transport, channel string, opts ...Option) *Bridge {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log
	if log == nil {
		log = logger.Named("ws")
	}
	return &Bridge{
		transport: t,
		channel:   channel,
		opts:      o,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Tabs are served by this process; the dashboard may also be
			// opened from a file or another port during development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// Register mounts the bridge at /ws.
func (b *Bridge) Register(_ context.Context, mux *http.ServeMux) {
	mux.Handle("/ws", b)
}

// Clients reports the number of connected sockets.
func (b *Bridge) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close disconnects every client and rejects new ones.
func (b *Bridge) Close() error {
	b.mu.Lock()
	b.closed = true
	clients := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	return nil
}

// ServeHTTP implements http.Handler.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	// The endpoint is subscribed before the upgrade completes so nothing
	// published after the handshake is missed.
	ch, err := b.transport.Open(ctx, b.channel)
	if err != nil {
		b.log.Error(ctx, "open broadcast endpoint", logger.Error(err))
		metrics.RecordErrorByComponent("ws", "open")
		http.Error(w, "broadcast unavailable", http.StatusServiceUnavailable)
		return
	}
	c := &client{
		bridge:  b,
		ch:      ch,
		send:    make(chan []byte, b.opts.sendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(b.opts.rate, b.opts.burst),
	}
	c.unsubscribe = ch.Subscribe(c.enqueue)

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the request.
		c.unsubscribe()
		_ = ch.Close()
		metrics.RecordErrorByComponent("ws", "upgrade")
		return
	}
	c.conn = conn

	if !b.add(c) {
		c.close()
		_ = conn.Close()
		return
	}
	b.log.Debug(ctx, "tab connected", logger.String("endpoint", ch.ID()))

	go c.writePump()
	c.readPump()
	c.close()
	b.log.Debug(ctx, "tab disconnected", logger.String("endpoint", ch.ID()))
}

func (b *Bridge) add(c *client) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.clients[c.ch.ID()] = c
	metrics.UpdateWSClients(len(b.clients))
	return true
}

func (b *Bridge) remove(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, c.ch.ID())
	metrics.UpdateWSClients(len(b.clients))
}

// client is one socket plus its transport endpoint.
type client struct {
	bridge      *Bridge
	conn        *websocket.Conn
	ch          broadcast.Channel
	unsubscribe func()
	send        chan []byte
	limiter     *rate.Limiter

	once sync.Once
	done chan struct{}
}

// enqueue forwards a broadcast message to the socket, dropping it when the
// socket is not keeping up.
func (c *client) enqueue(_ context.Context, m model.Message) {
	data, err := json.Marshal(m)
	if err != nil {
		metrics.RecordWSMessage("out", "invalid")
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- data:
	default:
		metrics.RecordWSMessage("out", "dropped")
	}
}

func (c *client) readPump() {
	b := c.bridge
	wait := 2 * b.opts.pingInterval
	c.conn.SetReadLimit(maxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.log.Debug(context.Background(), "socket read", logger.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wait))
		c.handle(data)
	}
}

// handle publishes a gesture-action frame from the tab. Anything else is
// ignored; the origin is always the endpoint's own id.
func (c *client) handle(data []byte) {
	var m model.Message
	if err := json.Unmarshal(data, &m); err != nil || !m.IsGestureAction() {
		metrics.RecordWSMessage("in", "invalid")
		return
	}
	id, ok := gesture.Parse(m.Gesture)
	if !ok || id.IsNone() {
		metrics.RecordWSMessage("in", "invalid")
		return
	}
	if !c.limiter.Allow() {
		metrics.RecordWSMessage("in", "rate_limited")
		return
	}
	m.Gesture = string(id)
	m.Origin = ""
	if err := c.ch.Publish(context.Background(), m); err != nil {
		metrics.RecordWSMessage("in", "failed")
		c.bridge.log.Warn(context.Background(), "publish from tab", logger.Error(err))
		return
	}
	metrics.RecordWSMessage("in", "published")
}

func (c *client) writePump() {
	b := c.bridge
	ticker := time.NewTicker(b.opts.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(b.opts.writeTimeout))
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(b.opts.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				metrics.RecordWSMessage("out", "failed")
				c.close()
				return
			}
			metrics.RecordWSMessage("out", "sent")
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(b.opts.writeTimeout)); err != nil {
				c.close()
				return
			}
		}
	}
}

// close tears the client down once. writePump sends the close frame and
// releases the socket; the expired read deadline unblocks readPump.
func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.unsubscribe()
		_ = c.ch.Close()
		c.bridge.remove(c)
		if c.conn != nil {
			_ = c.conn.SetReadDeadline(time.Now())
		}
	})
}
