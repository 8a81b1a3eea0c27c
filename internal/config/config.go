package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port            string
	DatabaseDSN     string
	SessionSecret   string
	InviteCode      string
	AdminCode       string
	SiteName        string
	ReadonlyRooms   []string
	Env             string
	SessionTTLHours int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func Load() Config {
	ttlStr := getenv("SESSION_TTL_HOURS", "168")
	ttl, _ := strconv.Atoi(ttlStr)
	if ttl <= 0 {
		ttl = 168
	}
	return Config{
		Port:            getenv("APP_PORT", "8080"),
		DatabaseDSN:     getenv("DATABASE_DSN", "data.sqlite"),
		SessionSecret:   getenv("SESSION_SECRET", "dev-secret"),
		InviteCode:      getenv("INVITE_CODE", "tmb-2025"),
		AdminCode:       getenv("ADMIN_CODE", "let-me-in"),
		SiteName:        getenv("SITE_NAME", "TMB Chat"),
		ReadonlyRooms:   splitSlugs(os.Getenv("READONLY_ROOMS")),
		Env:             getenv("APP_ENV", "dev"),
		SessionTTLHours: ttl,
	}
}

// splitSlugs 解析逗号分隔的只读房间 slug 列表，忽略空白项。
func splitSlugs(raw string) []string {
	out := make([]string, 0)
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsReadonly 判断 slug 是否被配置为只读房间。
func (c Config) IsReadonly(slug string) bool {
	for _, s := range c.ReadonlyRooms {
		if s == slug {
			return true
		}
	}
	return false
}

// Validate 校验启动配置，dev 以外的环境禁止使用默认签名密钥。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("port must not be empty")
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("database dsn must not be empty")
	}
	if cfg.Env != "dev" && cfg.SessionSecret == "dev-secret" {
		return errors.New("default session secret is not allowed outside dev")
	}
	return nil
}
