package ws

import (
	"sync"

	"github.com/helloindustry/tmb/internal/metrics"
)

// Hub 持有全部在线连接以及 slug → 连接集合 的订阅表。
// 连接注册与订阅切换都在这里串行化，单个连接同一时间只订阅一个房间。
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.WsConnections.Inc()
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	h.leaveLocked(c)
	h.mu.Unlock()
	metrics.WsConnections.Dec()
	c.shutdown()
}

// subscribe 切换连接的房间订阅：先退出旧房间再加入新房间。
func (h *Hub) subscribe(c *Client, slug string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c)
	set, ok := h.rooms[slug]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[slug] = set
	}
	set[c] = struct{}{}
	c.room = slug
}

func (h *Hub) leaveLocked(c *Client) {
	if c.room == "" {
		return
	}
	if set, ok := h.rooms[c.room]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, c.room)
		}
	}
	c.room = ""
}

// Online 返回订阅某房间的连接数，供 REST 房间列表复用。
func (h *Hub) Online(slug string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[slug])
}

// BroadcastRoom 把 payload 发给订阅该房间的全部连接，包含发送者。
func (h *Hub) BroadcastRoom(slug string, data []byte) {
	for _, c := range h.roomTargets(slug, nil) {
		c.deliver(data)
	}
}

// BroadcastRoomExcept 发给该房间除 sender 外的全部连接。
func (h *Hub) BroadcastRoomExcept(slug string, sender *Client, data []byte) {
	for _, c := range h.roomTargets(slug, sender) {
		c.deliver(data)
	}
}

// BroadcastAll 发给全部在线连接，不限房间。
func (h *Hub) BroadcastAll(data []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.deliver(data)
	}
}

func (h *Hub) roomTargets(slug string, skip *Client) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.rooms[slug]
	targets := make([]*Client, 0, len(set))
	for c := range set {
		if c != skip {
			targets = append(targets, c)
		}
	}
	return targets
}
