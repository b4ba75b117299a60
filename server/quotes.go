package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	quoteWriteWait  = 10 * time.Second
	quotePongWait   = 60 * time.Second
	quotePingPeriod = 54 * time.Second
	quoteReadLimit  = 512
	quoteSendBuffer = 64
)

var upgrader = websocket.Upgrader{CheckOrigin: sameOrigin}

// sameOrigin 允许无 Origin 的客户端、同源页面以及本地开发页面。
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	requestHost, originHost := r.Host, u.Host
	if h, _, err := net.SplitHostPort(requestHost); err == nil {
		requestHost = h
	}
	if h, _, err := net.SplitHostPort(originHost); err == nil {
		originHost = h
	}
	if strings.EqualFold(requestHost, originHost) {
		return true
	}
	return originHost == "localhost" || originHost == "127.0.0.1"
}

// Publisher 接收定价结果，实现方负责把结果推送给订阅者。
type Publisher interface {
	Publish(handle int64, event string, data any)
}

// Quote 是推送给订阅者的一条消息。
type Quote struct {
	Handle int64     `json:"handle"`
	Event  string    `json:"event"`
	Data   any       `json:"data,omitempty"`
	At     time.Time `json:"at"`
}

type quoteClient struct {
	conn    *websocket.Conn
	send    chan []byte
	handles map[int64]struct{} // 仅由 Run 所在 goroutine 访问
	hub     *QuoteHub
}

type subscription struct {
	client *quoteClient
	handle int64
	on     bool
}

type published struct {
	handle  int64
	payload []byte
}

// QuoteHub 按合约句柄把定价结果推送给 WebSocket 订阅者。
// 客户端发送 {"op":"subscribe","handle":N} 订阅，{"op":"unsubscribe","handle":N} 退订。
type QuoteHub struct {
	clients    map[*quoteClient]struct{}
	broadcast  chan published
	register   chan *quoteClient
	unregister chan *quoteClient
	subscribe  chan subscription
	done       chan struct{}
	logger     *slog.Logger
	mu         sync.RWMutex
}

// NewQuoteHub 创建推送中心，调用方需要在独立 goroutine 中运行 Run。
func NewQuoteHub(logger *slog.Logger) *QuoteHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuoteHub{
		clients:    make(map[*quoteClient]struct{}),
		broadcast:  make(chan published, 256),
		register:   make(chan *quoteClient),
		unregister: make(chan *quoteClient),
		subscribe:  make(chan subscription),
		done:       make(chan struct{}),
		logger:     logger.With("module", "quote_hub"),
	}
}

// Run 处理注册、订阅与广播，ctx 结束时断开全部客户端。
func (m *QuoteHub) Run(ctx context.Context) {
	defer func() {
		m.mu.Lock()
		for c := range m.clients {
			delete(m.clients, c)
			close(c.send)
		}
		m.mu.Unlock()
		close(m.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-m.register:
			m.mu.Lock()
			m.clients[c] = struct{}{}
			m.mu.Unlock()
			m.logger.Debug("quote client registered", "addr", c.conn.RemoteAddr())
		case c := <-m.unregister:
			m.drop(c)
		case s := <-m.subscribe:
			if _, ok := m.clients[s.client]; !ok {
				continue
			}
			event := "unsubscribed"
			if s.on {
				s.client.handles[s.handle] = struct{}{}
				event = "subscribed"
			} else {
				delete(s.client.handles, s.handle)
			}
			m.deliver(s.client, encodeQuote(m.logger, s.handle, event, nil))
		case msg := <-m.broadcast:
			for c := range m.clients {
				if _, ok := c.handles[msg.handle]; ok {
					m.deliver(c, msg.payload)
				}
			}
		}
	}
}

// deliver 不阻塞地投递消息，发送缓冲区已满的客户端会被断开。
func (m *QuoteHub) deliver(c *quoteClient, payload []byte) {
	if payload == nil {
		return
	}
	select {
	case c.send <- payload:
	default:
		m.logger.Warn("quote client buffer full, dropping", "addr", c.conn.RemoteAddr())
		m.drop(c)
	}
}

func (m *QuoteHub) drop(c *quoteClient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c]; ok {
		delete(m.clients, c)
		close(c.send)
		m.logger.Debug("quote client unregistered", "addr", c.conn.RemoteAddr())
	}
}

// Len 返回当前连接的客户端数量。
func (m *QuoteHub) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Publish 把一条定价结果放入广播队列。队列已满或推送中心已停止时丢弃该消息。
func (m *QuoteHub) Publish(handle int64, event string, data any) {
	payload := encodeQuote(m.logger, handle, event, data)
	if payload == nil {
		return
	}
	select {
	case <-m.done:
	case m.broadcast <- published{handle: handle, payload: payload}:
	default:
		m.logger.Warn("quote broadcast queue full, dropping", "handle", handle, "event", event)
	}
}

func encodeQuote(logger *slog.Logger, handle int64, event string, data any) []byte {
	payload, err := json.Marshal(Quote{Handle: handle, Event: event, Data: data, At: time.Now()})
	if err != nil {
		logger.Error("failed to marshal quote", "handle", handle, "event", event, "error", err)
		return nil
	}
	return payload
}

// ServeHTTP 处理 WebSocket 升级请求。
func (m *QuoteHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &quoteClient{
		conn:    conn,
		send:    make(chan []byte, quoteSendBuffer),
		handles: make(map[int64]struct{}),
		hub:     m,
	}
	select {
	case m.register <- c:
	case <-m.done:
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (c *quoteClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(quoteReadLimit)
	if err := c.conn.SetReadDeadline(time.Now().Add(quotePongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(quotePongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd struct {
			Op     string `json:"op"`
			Handle int64  `json:"handle"`
		}
		if err := json.Unmarshal(message, &cmd); err != nil || cmd.Handle <= 0 {
			continue
		}
		var s subscription
		switch cmd.Op {
		case "subscribe":
			s = subscription{client: c, handle: cmd.Handle, on: true}
		case "unsubscribe":
			s = subscription{client: c, handle: cmd.Handle}
		default:
			continue
		}
		select {
		case c.hub.subscribe <- s:
		case <-c.hub.done:
			return
		}
	}
}

func (c *quoteClient) writePump() {
	ticker := time.NewTicker(quotePingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(quoteWriteWait)); err != nil {
				return
			}
			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.hub.logger.Debug("failed to write close message", "error", err)
				}
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(quoteWriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
