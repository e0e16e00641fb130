package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.StorageBackend != BackendFile || cfg.DataFile != "db.json" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.CacheTTL != 5*time.Minute || cfg.DeduperTTL != 24*time.Hour || cfg.ClientMode != ModeRemote {
		t.Fatalf("unexpected duration defaults: %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TASKBOARD_PORT", "9090")
	t.Setenv("TASKBOARD_DEBUG", "true")
	t.Setenv("TASKBOARD_STORAGE_BACKEND", "Postgres")
	t.Setenv("TASKBOARD_DATABASE_URL", "postgres://localhost/tasks")
	t.Setenv("TASKBOARD_CACHE_TTL", "30s")
	t.Setenv("TASKBOARD_CLIENT_MODE", "local")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" || !cfg.Debug || cfg.StorageBackend != BackendPostgres {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.CacheTTL != 30*time.Second || cfg.ClientMode != ModeLocal {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskboard.yaml")
	if err := os.WriteFile(path, []byte("DATA_FILE: /var/lib/board.json\nBOARD: team\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TASKBOARD_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataFile != "/var/lib/board.json" || cfg.Board != "team" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "unknown backend", env: map[string]string{"TASKBOARD_STORAGE_BACKEND": "s3"}, want: "STORAGE_BACKEND"},
		{name: "tables without connection", env: map[string]string{"TASKBOARD_STORAGE_BACKEND": "tables"}, want: "STORAGE_CONNECTION_STRING"},
		{name: "postgres without url", env: map[string]string{"TASKBOARD_STORAGE_BACKEND": "postgres"}, want: "DATABASE_URL"},
		{name: "queue without connection", env: map[string]string{"TASKBOARD_EVENTS_QUEUE": "events"}, want: "EVENTS_QUEUE"},
		{name: "zero deduper ttl", env: map[string]string{"TASKBOARD_DEDUPER_TTL": "0s"}, want: "DEDUPER_TTL"},
		{name: "unknown client mode", env: map[string]string{"TASKBOARD_CLIENT_MODE": "hybrid"}, want: "CLIENT_MODE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestRedisOptions(t *testing.T) {
	opts, err := RedisOptions("redis://:secret@localhost:6380/2")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected url options: %+v", opts)
	}

	opts, err = RedisOptions("cache.example.net:6380,password=pw,ssl=True,abortConnect=False")
	if err != nil {
		t.Fatalf("parse azure style: %v", err)
	}
	if opts.Addr != "cache.example.net:6380" || opts.Password != "pw" || opts.TLSConfig == nil {
		t.Fatalf("unexpected azure options: %+v", opts)
	}

	if _, err := RedisOptions(""); err == nil {
		t.Fatalf("expected empty string rejected")
	}
}
