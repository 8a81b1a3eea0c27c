package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/helloindustry/tmb/internal/config"
	"github.com/helloindustry/tmb/internal/service"
	"github.com/helloindustry/tmb/internal/session"
	"github.com/helloindustry/tmb/internal/ws"
)

// Handler 聚合所有 HTTP handler，依赖注入 service 层与 ws hub。
type Handler struct {
	cfg     config.Config
	roomSvc *service.RoomService
	msgSvc  *service.MessageService
	hub     *ws.Hub
}

func NewHandler(cfg config.Config, roomSvc *service.RoomService, msgSvc *service.MessageService, hub *ws.Hub) *Handler {
	return &Handler{cfg: cfg, roomSvc: roomSvc, msgSvc: msgSvc, hub: hub}
}

func codeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Join 校验邀请码并签发全新的会话身份。
func (h *Handler) Join(c *gin.Context) {
	var req struct {
		InviteCode  string `json:"inviteCode"`
		DisplayName string `json:"displayName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing fields"})
		return
	}
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.InviteCode == "" || req.DisplayName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing fields"})
		return
	}
	if !codeEqual(req.InviteCode, h.cfg.InviteCode) {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "invalid invite code"})
		return
	}
	user := session.User{
		ID:          uuid.NewString(),
		DisplayName: service.Truncate(req.DisplayName, service.MaxNameLen),
		IsAdmin:     false,
	}
	if err := session.SetCookie(c, h.cfg, user); err != nil {
		log.Error().Err(err).Msg("join sign session")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "join failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"user":          user,
		"siteName":      h.cfg.SiteName,
		"readonlyRooms": h.cfg.ReadonlyRooms,
	})
}

// UpgradeAdmin 校验管理码并把当前会话提升为管理员，重新签发 cookie。
// 提升只作用于当前会话 token，重新 join 会回到普通身份。
func (h *Handler) UpgradeAdmin(c *gin.Context) {
	var req struct {
		AdminCode string `json:"adminCode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !codeEqual(req.AdminCode, h.cfg.AdminCode) {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "invalid admin code"})
		return
	}
	user := session.FromContext(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthorized"})
		return
	}
	user.IsAdmin = true
	if err := session.SetCookie(c, h.cfg, *user); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("admin sign session")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "upgrade failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}

// ListRooms 返回全部房间与只读房间配置。
func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.roomSvc.List()
	if err != nil {
		log.Error().Err(err).Msg("list rooms")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to list rooms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "rooms": rooms, "readonlyRooms": h.cfg.ReadonlyRooms})
}

// CreateRoom 管理员创建新房间，slug 冲突返回 400。
func (h *Handler) CreateRoom(c *gin.Context) {
	user := session.FromContext(c)
	if user == nil || !user.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
		return
	}
	var req struct {
		Slug string `json:"slug"`
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing fields"})
		return
	}
	req.Slug = strings.TrimSpace(req.Slug)
	req.Name = strings.TrimSpace(req.Name)
	if req.Slug == "" || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing fields"})
		return
	}
	room, err := h.roomSvc.Create(req.Slug, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrSlugTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "slug already exists"})
			return
		}
		log.Error().Err(err).Str("slug", req.Slug).Msg("create room")
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "failed to create room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "room": room})
}

// DeleteMessage 管理员删除消息，并向全部在线连接广播删除事件，
// 不限于消息所在房间，让所有客户端都能同步视图。
func (h *Handler) DeleteMessage(c *gin.Context) {
	user := session.FromContext(c)
	if user == nil || !user.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
		return
	}
	id := c.Param("id")
	if err := h.msgSvc.Delete(id); err != nil {
		log.Error().Err(err).Str("id", id).Msg("delete message")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to delete message"})
		return
	}
	if b, err := json.Marshal(map[string]interface{}{"type": "message:deleted", "id": id}); err == nil {
		h.hub.BroadcastAll(b)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Health 健康检查。
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
