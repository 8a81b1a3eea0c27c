package main

import (
	"github.com/rs/zerolog/log"

	"github.com/helloindustry/tmb/internal/config"
	"github.com/helloindustry/tmb/internal/db"
	clog "github.com/helloindustry/tmb/internal/log"
	"github.com/helloindustry/tmb/internal/server"
	"github.com/helloindustry/tmb/internal/service"
	"github.com/helloindustry/tmb/internal/ws"
)

func main() {
	// main 负责加载配置、初始化日志、连接数据库并启动 Gin 服务。
	cfg := config.Load()
	clog.Init(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validate")
	}

	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	hub := ws.NewHub()
	roomSvc := service.NewRoomService(gdb, hub)
	count, err := roomSvc.Count()
	if err != nil {
		log.Fatal().Err(err).Msg("db room count")
	}
	if count == 0 {
		if err := db.SeedDefaults(gdb); err != nil {
			log.Fatal().Err(err).Msg("db seed")
		}
	}

	r := server.SetupRouter(cfg, gdb, hub)
	log.Info().Str("port", cfg.Port).Str("site", cfg.SiteName).Msg("tmb chat starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server run")
	}
}
