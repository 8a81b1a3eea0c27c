package config

import (
	"os"
	"reflect"
	"testing"
)

var envKeys = []string{
	"APP_PORT", "DATABASE_DSN", "SESSION_SECRET", "INVITE_CODE",
	"ADMIN_CODE", "SITE_NAME", "READONLY_ROOMS", "APP_ENV", "SESSION_TTL_HOURS",
}

func clearEnv() {
	for _, k := range envKeys {
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Load() Port = %v, want 8080", cfg.Port)
	}
	if cfg.DatabaseDSN != "data.sqlite" {
		t.Errorf("Load() DatabaseDSN = %v, want data.sqlite", cfg.DatabaseDSN)
	}
	if cfg.InviteCode != "tmb-2025" {
		t.Errorf("Load() InviteCode = %v, want tmb-2025", cfg.InviteCode)
	}
	if cfg.AdminCode != "let-me-in" {
		t.Errorf("Load() AdminCode = %v, want let-me-in", cfg.AdminCode)
	}
	if cfg.SiteName != "TMB Chat" {
		t.Errorf("Load() SiteName = %v, want TMB Chat", cfg.SiteName)
	}
	if len(cfg.ReadonlyRooms) != 0 {
		t.Errorf("Load() ReadonlyRooms = %v, want empty", cfg.ReadonlyRooms)
	}
	if cfg.Env != "dev" {
		t.Errorf("Load() Env = %v, want dev", cfg.Env)
	}
	if cfg.SessionTTLHours != 168 {
		t.Errorf("Load() SessionTTLHours = %v, want 168", cfg.SessionTTLHours)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv()
	os.Setenv("APP_PORT", "9090")
	os.Setenv("SESSION_SECRET", "my-secret")
	os.Setenv("INVITE_CODE", "welcome")
	os.Setenv("ADMIN_CODE", "sesame")
	os.Setenv("SITE_NAME", "Club Chat")
	os.Setenv("READONLY_ROOMS", "announcements, events ,,")
	os.Setenv("APP_ENV", "prod")
	defer clearEnv()

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Load() Port = %v, want 9090", cfg.Port)
	}
	if cfg.SessionSecret != "my-secret" {
		t.Errorf("Load() SessionSecret = %v, want my-secret", cfg.SessionSecret)
	}
	if cfg.InviteCode != "welcome" {
		t.Errorf("Load() InviteCode = %v, want welcome", cfg.InviteCode)
	}
	if cfg.SiteName != "Club Chat" {
		t.Errorf("Load() SiteName = %v, want Club Chat", cfg.SiteName)
	}
	want := []string{"announcements", "events"}
	if !reflect.DeepEqual(cfg.ReadonlyRooms, want) {
		t.Errorf("Load() ReadonlyRooms = %v, want %v", cfg.ReadonlyRooms, want)
	}
	if cfg.Env != "prod" {
		t.Errorf("Load() Env = %v, want prod", cfg.Env)
	}
}

func TestLoad_InvalidTTL(t *testing.T) {
	clearEnv()
	os.Setenv("SESSION_TTL_HOURS", "invalid")
	defer clearEnv()

	cfg := Load()
	if cfg.SessionTTLHours != 168 {
		t.Errorf("Load() SessionTTLHours = %v, want 168 (default)", cfg.SessionTTLHours)
	}
}

func TestIsReadonly(t *testing.T) {
	cfg := Config{ReadonlyRooms: []string{"announcements", "events"}}

	tests := []struct {
		slug string
		want bool
	}{
		{"announcements", true},
		{"events", true},
		{"general", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := cfg.IsReadonly(tt.slug); got != tt.want {
			t.Errorf("IsReadonly(%q) = %v, want %v", tt.slug, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid dev config",
			cfg:     Config{Port: "8080", DatabaseDSN: "data.sqlite", SessionSecret: "dev-secret", Env: "dev"},
			wantErr: false,
		},
		{
			name:    "valid prod config",
			cfg:     Config{Port: "8080", DatabaseDSN: "data.sqlite", SessionSecret: "real-secret", Env: "prod"},
			wantErr: false,
		},
		{
			name:    "empty port",
			cfg:     Config{Port: "", DatabaseDSN: "data.sqlite", SessionSecret: "s", Env: "dev"},
			wantErr: true,
		},
		{
			name:    "empty dsn",
			cfg:     Config{Port: "8080", DatabaseDSN: "", SessionSecret: "s", Env: "dev"},
			wantErr: true,
		},
		{
			name:    "default secret in prod",
			cfg:     Config{Port: "8080", DatabaseDSN: "data.sqlite", SessionSecret: "dev-secret", Env: "prod"},
			wantErr: true,
		},
		{
			name:    "default secret in test env",
			cfg:     Config{Port: "8080", DatabaseDSN: "data.sqlite", SessionSecret: "dev-secret", Env: "test"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
