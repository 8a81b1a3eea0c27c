package db

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/helloindustry/tmb/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect 根据 DSN 形态选择驱动：Postgres DSN 走 postgres，其余视为 SQLite 文件路径。
// 带简单重试等待数据库就绪。
func Connect(dsn string) (*gorm.DB, error) {
	var gdb *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		gdb, err = gorm.Open(open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err == nil {
			sqlDB, err2 := gdb.DB()
			if err2 == nil {
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetMaxOpenConns(20)
				sqlDB.SetConnMaxLifetime(time.Hour)
				return gdb, nil
			}
			err = err2
		}
		time.Sleep(time.Duration(500+i*200) * time.Millisecond)
	}
	return nil, err
}

func open(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "postgres://") || strings.Contains(dsn, "host=") {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

// Migrate 迁移聊天服务涉及的全部表结构。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&models.Room{}, &models.Message{})
}

// SeedDefaults 植入四个默认房间，调用方负责确认 rooms 表为空。
func SeedDefaults(gdb *gorm.DB) error {
	defaults := []models.Room{
		{ID: uuid.NewString(), Slug: "announcements", Name: "Announcements"},
		{ID: uuid.NewString(), Slug: "general", Name: "General"},
		{ID: uuid.NewString(), Slug: "events", Name: "Events"},
		{ID: uuid.NewString(), Slug: "ideas", Name: "Ideas"},
	}
	if err := gdb.Create(&defaults).Error; err != nil {
		return err
	}
	log.Info().Int("rooms", len(defaults)).Msg("seeded default rooms")
	return nil
}
