package config

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

const envPrefix = "TASKBOARD"

const (
	BackendFile     = "file"
	BackendTables   = "tables"
	BackendPostgres = "postgres"

	ModeRemote = "remote"
	ModeLocal  = "local"
)

// Config holds the settings shared by the server and the client tools.
type Config struct {
	Port  string
	Debug bool

	StorageBackend          string
	DataFile                string
	StorageConnectionString string
	TasksTable              string
	Board                   string
	DatabaseURL             string

	RedisConnectionString string
	CacheTTL              time.Duration
	DeduperTTL            time.Duration
	EventsChannel         string
	EventsQueue           string

	RequestTimeout time.Duration

	ClientMode      string
	ClientBaseURL   string
	ClientLocalPath string
	ClientTimeout   time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("STORAGE_BACKEND", BackendFile)
	v.SetDefault("DATA_FILE", "db.json")
	v.SetDefault("TASKS_TABLE", "tasks")
	v.SetDefault("BOARD", "board")
	v.SetDefault("CACHE_TTL", 5*time.Minute)
	v.SetDefault("DEDUPER_TTL", 24*time.Hour)
	v.SetDefault("EVENTS_CHANNEL", "task-updates")
	v.SetDefault("SERVER_REQUEST_TIMEOUT", 10*time.Second)
	v.SetDefault("CLIENT_MODE", ModeRemote)
	v.SetDefault("CLIENT_BASE_URL", "http://localhost:8080")
	v.SetDefault("CLIENT_LOCAL_PATH", "tasks.json")
	v.SetDefault("CLIENT_TIMEOUT", 10*time.Second)
}

// Load reads TASKBOARD_* environment variables, and the file named by
// TASKBOARD_CONFIG when set, on top of the defaults.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if file := v.GetString("CONFIG"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := Config{
		Port:                    v.GetString("PORT"),
		Debug:                   v.GetBool("DEBUG"),
		StorageBackend:          strings.ToLower(v.GetString("STORAGE_BACKEND")),
		DataFile:                v.GetString("DATA_FILE"),
		StorageConnectionString: v.GetString("STORAGE_CONNECTION_STRING"),
		TasksTable:              v.GetString("TASKS_TABLE"),
		Board:                   v.GetString("BOARD"),
		DatabaseURL:             v.GetString("DATABASE_URL"),
		RedisConnectionString:   v.GetString("REDIS_CONNECTION_STRING"),
		CacheTTL:                v.GetDuration("CACHE_TTL"),
		DeduperTTL:              v.GetDuration("DEDUPER_TTL"),
		EventsChannel:           v.GetString("EVENTS_CHANNEL"),
		EventsQueue:             v.GetString("EVENTS_QUEUE"),
		RequestTimeout:          v.GetDuration("SERVER_REQUEST_TIMEOUT"),
		ClientMode:              strings.ToLower(v.GetString("CLIENT_MODE")),
		ClientBaseURL:           v.GetString("CLIENT_BASE_URL"),
		ClientLocalPath:         v.GetString("CLIENT_LOCAL_PATH"),
		ClientTimeout:           v.GetDuration("CLIENT_TIMEOUT"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server or client could not start with.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendFile:
		if c.DataFile == "" {
			return fmt.Errorf("invalid DATA_FILE: must not be empty for the file backend")
		}
	case BackendTables:
		if c.StorageConnectionString == "" || c.TasksTable == "" || c.Board == "" {
			return fmt.Errorf("missing storage config: STORAGE_CONNECTION_STRING, TASKS_TABLE and BOARD are required")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("missing DATABASE_URL for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.EventsQueue != "" && c.StorageConnectionString == "" {
		return fmt.Errorf("EVENTS_QUEUE requires STORAGE_CONNECTION_STRING")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("invalid CACHE_TTL: must not be negative")
	}
	if c.DeduperTTL <= 0 {
		return fmt.Errorf("invalid DEDUPER_TTL: must be greater than zero")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid SERVER_REQUEST_TIMEOUT: must be greater than zero")
	}
	switch c.ClientMode {
	case ModeRemote, ModeLocal:
	default:
		return fmt.Errorf("invalid CLIENT_MODE %q", c.ClientMode)
	}
	if c.ClientTimeout <= 0 {
		return fmt.Errorf("invalid CLIENT_TIMEOUT: must be greater than zero")
	}
	return nil
}

// RedisOptions parses a redis:// URL or an Azure style
// "host:port,password=...,ssl=True" connection string.
func RedisOptions(conn string) (*redis.Options, error) {
	if conn == "" {
		return nil, fmt.Errorf("empty redis connection string")
	}
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	if strings.Contains(parts[0], "://") {
		return nil, err
	}
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts, nil
}
