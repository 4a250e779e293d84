package client

import (
	"log"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"

	"github.com/teamforge/chatlink/internal/protocol"
	"github.com/teamforge/chatlink/internal/stats"
)

const (
	writeWait        = 10 * time.Second
	handshakeTimeout = 10 * time.Second
	maxMessageSize   = 4096

	defaultPingInterval   = 30 * time.Second
	defaultLivenessWindow = 45 * time.Second
	defaultReconnectBase  = time.Second

	maxReconnects = 5
)

type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Handler consumes decoded inbound frames. Pong frames are handled by
// the Conn itself and never reach the handler.
type Handler interface {
	HandleFrame(env *protocol.Envelope)
}

// Conn owns one WebSocket channel to the backend: dialing, heartbeat,
// reconnection with exponential backoff, and the inbound read loop.
// The chat and notification channels are two Conn instances with
// different endpoints and handlers.
type Conn struct {
	name     string
	endpoint string
	handler  Handler
	log      *log.Logger
	stats    stats.StatsProvider
	dialer   *websocket.Dialer

	pingInterval   time.Duration
	livenessWindow time.Duration
	reconnectBase  time.Duration

	mu             sync.Mutex
	ws             *websocket.Conn
	status         Status
	lastErr        string
	userId         int
	token          string
	retryCount     int
	lastPong       time.Time
	manualClose    bool
	gen            uint64
	session        string
	reconnectTimer *time.Timer
	stopHeartbeat  chan struct{}
	statusFn       func(Status, string)
}

// NewConn creates a channel bound to endpoint. name distinguishes the
// channel in logs and metric names (e.g. "Chat", "Notification").
func NewConn(name, endpoint string, handler Handler, logger *log.Logger, st stats.StatsProvider) *Conn {
	c := &Conn{
		name:           name,
		endpoint:       endpoint,
		handler:        handler,
		log:            logger,
		stats:          st,
		dialer:         &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		pingInterval:   defaultPingInterval,
		livenessWindow: defaultLivenessWindow,
		reconnectBase:  defaultReconnectBase,
		status:         StatusDisconnected,
	}

	for _, m := range []string{"Reconnects", "FramesIn", "FramesOut", "FramesDropped"} {
		st.RegisterMetric(c.metric(m))
	}

	return c
}

// SetStatusFunc registers a callback invoked on every status change.
// The callback runs with the connection lock held and must not call
// back into the Conn.
func (c *Conn) SetStatusFunc(fn func(Status, string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusFn = fn
}

func (c *Conn) metric(name string) string {
	return c.name + name
}

func (c *Conn) setStatusLocked(status Status, errMsg string) {
	c.status = status
	c.lastErr = errMsg
	if c.statusFn != nil {
		c.statusFn(status, errMsg)
	}
}

func (c *Conn) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Conn) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Connect establishes the channel for userId. It is idempotent: while
// connected or connecting for the same user it is a no-op. A connect
// for a different user tears down the existing channel first. The
// dial happens asynchronously; progress is reported through the status
// callback.
func (c *Conn) Connect(userId int, token string) {
	c.mu.Lock()

	if (c.status == StatusConnected || c.status == StatusConnecting) && c.userId == userId {
		c.mu.Unlock()
		return
	}

	if c.userId != 0 && c.userId != userId {
		c.log.Printf("%s: switching user %d -> %d", c.name, c.userId, userId)
	}
	c.teardownLocked()

	c.manualClose = false
	c.userId = userId
	c.token = token
	c.retryCount = 0
	c.gen++
	gen := c.gen
	c.setStatusLocked(StatusConnecting, "")
	c.mu.Unlock()

	go c.dial(gen)
}

// Disconnect closes the channel intentionally: pending reconnect and
// heartbeat timers are cancelled synchronously and no reconnect is
// scheduled.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.manualClose = true
	c.gen++
	c.teardownLocked()
	c.setStatusLocked(StatusDisconnected, "")
}

// teardownLocked cancels timers and closes the transport. Callers hold
// the lock and remain responsible for the status transition.
func (c *Conn) teardownLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.stopHeartbeat != nil {
		close(c.stopHeartbeat)
		c.stopHeartbeat = nil
	}
	if c.ws != nil {
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.ws.Close()
		c.ws = nil
	}
}

func (c *Conn) endpointURL() string {
	q := url.Values{}
	q.Set("user_id", strconv.Itoa(c.userId))
	q.Set("token", c.token)
	return c.endpoint + "?" + q.Encode()
}

func (c *Conn) dial(gen uint64) {
	c.mu.Lock()
	endpoint := c.endpointURL()
	c.mu.Unlock()

	ws, _, err := c.dialer.Dial(endpoint, nil)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		// A newer Connect or Disconnect superseded this dial.
		if err == nil {
			ws.Close()
		}
		return
	}

	if err != nil {
		c.log.Printf("%s: dial: %v", c.name, err)
		c.scheduleReconnectLocked()
		return
	}

	sid, err := shortid.Generate()
	if err != nil {
		sid = "-"
	}

	c.session = sid
	c.ws = ws
	c.retryCount = 0
	c.lastPong = time.Now()
	c.stopHeartbeat = make(chan struct{})
	c.setStatusLocked(StatusConnected, "")
	c.log.Printf("%s: connected (session %s)", c.name, sid)

	go c.readPump(gen, ws)
	go c.heartbeat(gen, ws, c.stopHeartbeat)
}

func (c *Conn) readPump(gen uint64, ws *websocket.Conn) {
	ws.SetReadLimit(maxMessageSize)
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			c.handleClose(gen, err)
			return
		}

		env, perr := protocol.ParseEnvelope(raw)
		if perr != nil {
			c.log.Printf("%s: dropping frame: %v", c.name, perr)
			c.stats.Incr(c.metric("FramesDropped"))
			continue
		}

		c.stats.Incr(c.metric("FramesIn"))

		if env.Type == protocol.TypePong {
			c.markAlive()
			continue
		}

		c.handler.HandleFrame(env)
	}
}

func (c *Conn) handleClose(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}

	if c.stopHeartbeat != nil {
		close(c.stopHeartbeat)
		c.stopHeartbeat = nil
	}
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}

	if c.manualClose {
		c.setStatusLocked(StatusDisconnected, "")
		return
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		c.log.Printf("%s: closed by server", c.name)
		c.setStatusLocked(StatusDisconnected, "")
		return
	}

	c.log.Printf("%s: connection lost (session %s): %v", c.name, c.session, err)
	c.scheduleReconnectLocked()
}

func (c *Conn) scheduleReconnectLocked() {
	c.retryCount++
	if c.retryCount > maxReconnects {
		c.log.Printf("%s: giving up after %d attempts", c.name, maxReconnects)
		c.reconnectTimer = nil
		c.setStatusLocked(StatusError, "connection lost, please refresh")
		return
	}

	delay := c.reconnectDelay(c.retryCount)
	c.log.Printf("%s: reconnecting in %s (attempt %d/%d)", c.name, delay, c.retryCount, maxReconnects)
	c.setStatusLocked(StatusConnecting, "")
	c.stats.Incr(c.metric("Reconnects"))

	c.gen++
	gen := c.gen
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if gen != c.gen || c.manualClose {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		c.dial(gen)
	})
}

func (c *Conn) reconnectDelay(attempt int) time.Duration {
	return c.reconnectBase << (attempt - 1)
}

func (c *Conn) markAlive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPong = time.Now()
}

func (c *Conn) lastAlive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPong
}

// heartbeat sends an application-level ping on every tick and closes
// the transport when no pong has been seen within the liveness window.
// A transport that reports open but is silently dead (device sleep,
// NAT timeout) is caught here; the forced close drives the reconnect
// path through readPump.
func (c *Conn) heartbeat(gen uint64, ws *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			if gen != c.gen {
				c.mu.Unlock()
				return
			}
			stale := time.Since(c.lastPong) > c.livenessWindow
			c.mu.Unlock()

			if stale {
				c.log.Printf("%s: no pong in %s, closing stale connection", c.name, c.livenessWindow)
				ws.Close()
				return
			}

			if !c.Send(protocol.Ping()) {
				return
			}
		case <-stop:
			return
		}
	}
}

// Send writes a frame to the transport. It returns false without
// blocking when the channel is not connected or the write fails;
// callers surface the failure to the user instead of assuming
// delivery.
func (c *Conn) Send(env *protocol.Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusConnected || c.ws == nil {
		return false
	}

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(env); err != nil {
		c.log.Printf("%s: write: %v", c.name, err)
		return false
	}

	c.stats.Incr(c.metric("FramesOut"))
	return true
}
