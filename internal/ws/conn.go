package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/helloindustry/tmb/internal/config"
	"github.com/helloindustry/tmb/internal/metrics"
	"github.com/helloindustry/tmb/internal/service"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client 是单条 websocket 连接的进程内状态。
// 身份在收到 hello 事件前为空，room 为当前唯一订阅的房间 slug。
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	done  chan struct{}
	once  sync.Once
	rooms *service.RoomService
	msgs  *service.MessageService
	cfg   config.Config

	userID     string
	userName   string
	isAdmin    bool
	identified bool
	room       string
}

// inboundEvent 是客户端到服务端的统一事件信封。
type inboundEvent struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	IsAdmin     bool   `json:"isAdmin"`
	Slug        string `json:"slug"`
	Text        string `json:"text"`
	IsTyping    bool   `json:"isTyping"`
}

// Serve 升级 HTTP 连接为 websocket 并启动读写循环。
func Serve(h *Hub, rooms *service.RoomService, msgs *service.MessageService, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := &Client{
			hub:   h,
			conn:  conn,
			send:  make(chan []byte, 256),
			done:  make(chan struct{}),
			rooms: rooms,
			msgs:  msgs,
			cfg:   cfg,
		}
		h.add(client)

		go client.writePump()
		client.readPump()
	}
}

func (c *Client) shutdown() {
	c.once.Do(func() { close(c.done) })
}

// deliver 非阻塞投递：发不进缓冲说明客户端过慢，直接摘除该连接。
func (c *Client) deliver(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.hub.remove(c)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(1 << 20) // 1MB
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var ev inboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		switch ev.Type {
		case "hello":
			c.handleHello(ev)
		case "room:join":
			c.handleJoin(ev)
		case "message:new":
			c.handleMessage(ev)
		case "typing":
			c.handleTyping(ev)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			_ = w.Close()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// handleHello 绑定身份并推送当前房间列表。重复 hello 覆盖旧身份。
func (c *Client) handleHello(ev inboundEvent) {
	id := ev.ID
	if id == "" {
		id = uuid.NewString()
	}
	name := service.Truncate(strings.TrimSpace(ev.DisplayName), service.MaxNameLen)
	if name == "" {
		name = "Guest"
	}
	c.userID = id
	c.userName = name
	c.isAdmin = ev.IsAdmin
	c.identified = true

	rooms, err := c.rooms.List()
	if err != nil {
		log.Error().Err(err).Msg("ws list rooms")
		return
	}
	b, err := json.Marshal(map[string]interface{}{"type": "rooms", "rooms": rooms})
	if err != nil {
		return
	}
	c.deliver(b)
}

// handleJoin 切换房间订阅并推送该房间的最近历史。未知 slug 静默忽略。
func (c *Client) handleJoin(ev inboundEvent) {
	if !c.identified {
		return
	}
	room, err := c.rooms.GetBySlug(ev.Slug)
	if err != nil {
		metrics.WsEventsDropped.Inc()
		return
	}
	c.hub.subscribe(c, room.Slug)

	history, err := c.msgs.ListByRoom(room.ID, service.DefaultHistoryLimit)
	if err != nil {
		log.Error().Err(err).Str("slug", room.Slug).Msg("ws room history")
		return
	}
	readonly := c.cfg.IsReadonly(room.Slug) && !c.isAdmin
	b, err := json.Marshal(map[string]interface{}{
		"type":     "room:history",
		"slug":     room.Slug,
		"messages": history,
		"readonly": readonly,
	})
	if err != nil {
		return
	}
	c.deliver(b)
}

// handleMessage 持久化消息并广播到房间内全部连接（含发送者）。
// 空文本、未知房间、只读房间内的非管理员写入都静默丢弃。
func (c *Client) handleMessage(ev inboundEvent) {
	if ev.Slug == "" || ev.Text == "" {
		return
	}
	clean := strings.TrimSpace(service.Truncate(ev.Text, service.MaxMessageLen))
	if clean == "" {
		metrics.WsEventsDropped.Inc()
		return
	}
	room, err := c.rooms.GetBySlug(ev.Slug)
	if err != nil {
		metrics.WsEventsDropped.Inc()
		return
	}
	if c.cfg.IsReadonly(room.Slug) && !c.isAdmin {
		metrics.WsEventsDropped.Inc()
		return
	}
	name := c.userName
	if name == "" {
		name = "Guest"
	}
	msg, err := c.msgs.Create(room.ID, name, clean)
	if err != nil {
		log.Error().Err(err).Str("slug", room.Slug).Msg("ws persist message")
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	metrics.WsMessagesTotal.Inc()
	c.hub.BroadcastRoom(room.Slug, b)
}

// handleTyping 把输入状态转发给房间内除发送者外的连接，不持久化。
func (c *Client) handleTyping(ev inboundEvent) {
	name := c.userName
	if name == "" {
		name = "Guest"
	}
	b, err := json.Marshal(map[string]interface{}{
		"type":     "typing",
		"user":     name,
		"isTyping": ev.IsTyping,
	})
	if err != nil {
		return
	}
	c.hub.BroadcastRoomExcept(ev.Slug, c, b)
}
