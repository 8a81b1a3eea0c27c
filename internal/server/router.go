package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/helloindustry/tmb/internal/config"
	"github.com/helloindustry/tmb/internal/metrics"
	"github.com/helloindustry/tmb/internal/mw"
	"github.com/helloindustry/tmb/internal/service"
	"github.com/helloindustry/tmb/internal/session"
	"github.com/helloindustry/tmb/internal/ws"
)

// SetupRouter 统一初始化 Gin 中间件、REST API 以及 WebSocket 端点。
func SetupRouter(cfg config.Config, db *gorm.DB, hub *ws.Hub) *gin.Engine {
	roomSvc := service.NewRoomService(db, hub)
	msgSvc := service.NewMessageService(db)
	h := NewHandler(cfg, roomSvc, msgSvc, hub)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env))
	// 控制单个 IP+路由的速率，避免小型部署被刷爆。
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/join", h.Join)

	authed := api.Group("")
	authed.Use(session.Middleware(cfg))
	authed.POST("/admin", h.UpgradeAdmin)
	authed.GET("/rooms", h.ListRooms)
	authed.POST("/rooms", h.CreateRoom)
	authed.DELETE("/messages/:id", h.DeleteMessage)

	r.GET("/ws", ws.Serve(hub, roomSvc, msgSvc, cfg))

	registerStatic(r, "./web")
	return r
}

// registerStatic 通过 NoRoute 提供静态前端，未命中的路径回落到 index.html。
func registerStatic(r *gin.Engine, dir string) {
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Status(http.StatusNotFound)
			return
		}
		rel := strings.TrimPrefix(filepath.Clean(c.Request.URL.Path), "/")
		if strings.HasPrefix(rel, "api/") || rel == "metrics" || rel == "health" || rel == "ws" {
			c.Status(http.StatusNotFound)
			return
		}
		if rel != "" {
			target := filepath.Join(dir, rel)
			if fi, err := os.Stat(target); err == nil && !fi.IsDir() {
				c.File(target)
				return
			}
			if strings.Contains(rel, ".") {
				c.Status(http.StatusNotFound)
				return
			}
		}
		c.File(filepath.Join(dir, "index.html"))
	})
}
