package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	JWTSecret   string           `json:"jwt_secret"`
	JWTTTLHours int              `json:"jwt_ttl_hours"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Database    DatabaseConfig   `json:"database"`
	AI          AIConfig         `json:"ai"`
	Ingest      IngestConfig     `json:"ingest"`
	EmbedCache  EmbedCacheConfig `json:"embed_cache"`
	FileStore   FileStoreConfig  `json:"file_store"`
	CORSOrigins []string         `json:"cors_origins"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AIConfig struct {
	Provider   string      `json:"provider"`
	Model      string      `json:"model"`
	EmbedModel string      `json:"embed_model"`
	Data       interface{} `json:"data"`
}

type IngestConfig struct {
	MaxChunkChars int `json:"max_chunk_chars"`
}

type EmbedCacheConfig struct {
	LRUSize       int    `json:"lru_size"`
	LRUTTLMinutes int    `json:"lru_ttl_minutes"`
	MaxAgeDays    int    `json:"max_age_days"`
	CleanupSpec   string `json:"cleanup_spec"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.AI.Model == "" {
		return nil, fmt.Errorf("ai.model is required")
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.Ingest.MaxChunkChars <= 0 {
		cfg.Ingest.MaxChunkChars = 8192
	}
	if cfg.EmbedCache.LRUSize == 0 {
		cfg.EmbedCache.LRUSize = 4096
	}
	if cfg.EmbedCache.LRUTTLMinutes == 0 {
		cfg.EmbedCache.LRUTTLMinutes = 120
	}
	if cfg.EmbedCache.MaxAgeDays == 0 {
		cfg.EmbedCache.MaxAgeDays = 30
	}
	if cfg.EmbedCache.CleanupSpec == "" {
		cfg.EmbedCache.CleanupSpec = "30 3 * * *"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	return &cfg, nil
}
