package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int               `json:"port"`
	APIKey        string            `json:"api_key"`
	LogConfig     logger.LogConfig  `json:"log_config"`
	AI            AIConfig          `json:"ai"`
	VectorStore   VectorStoreConfig `json:"vector_store"`
	RateLimitMS   int               `json:"rate_limit_ms"`
	CORSAllowlist []string          `json:"cors_allowlist"`
	Jobs          JobsConfig        `json:"jobs"`
}

type AIConfig struct {
	Chat  ChatConfig  `json:"chat"`
	Embed EmbedConfig `json:"embed"`
}

type ChatConfig struct {
	Provider    string        `json:"provider"`
	Model       string        `json:"model"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     int           `json:"timeout"`
	Data        interface{}   `json:"data"`
	Fallbacks   []ProviderRef `json:"fallbacks"`
}

// ProviderRef names a fallback provider tried when the ones before it
// fail. An empty model inherits the primary model name.
type ProviderRef struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type EmbedConfig struct {
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	Dimension    int           `json:"dimension"`
	Timeout      int           `json:"timeout"`
	CacheSize    int           `json:"cache_size"`
	CacheTTLMins int           `json:"cache_ttl_mins"`
	Data         interface{}   `json:"data"`
	Fallbacks    []ProviderRef `json:"fallbacks"`
}

type VectorStoreConfig struct {
	Type       string      `json:"type"`
	Collection string      `json:"collection"`
	Data       interface{} `json:"data"`
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

type JobsConfig struct {
	StoreStatsSpec string `json:"store_stats_spec"`
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
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Chat.Provider == "" {
		return nil, fmt.Errorf("ai.chat.provider is required")
	}
	if cfg.AI.Chat.Model == "" {
		return nil, fmt.Errorf("ai.chat.model is required")
	}
	if cfg.AI.Chat.Temperature == 0 {
		cfg.AI.Chat.Temperature = 0.7
	}
	if cfg.AI.Chat.MaxTokens == 0 {
		cfg.AI.Chat.MaxTokens = 1024
	}
	if cfg.AI.Chat.Timeout == 0 {
		cfg.AI.Chat.Timeout = 30
	}
	for i, fb := range cfg.AI.Chat.Fallbacks {
		if fb.Provider == "" {
			return nil, fmt.Errorf("ai.chat.fallbacks[%d].provider is required", i)
		}
	}
	if cfg.AI.Embed.Provider == "" {
		return nil, fmt.Errorf("ai.embed.provider is required")
	}
	if cfg.AI.Embed.Model == "" {
		return nil, fmt.Errorf("ai.embed.model is required")
	}
	if cfg.AI.Embed.Dimension == 0 {
		return nil, fmt.Errorf("ai.embed.dimension is required")
	}
	if cfg.AI.Embed.Timeout == 0 {
		cfg.AI.Embed.Timeout = 30
	}
	for i, fb := range cfg.AI.Embed.Fallbacks {
		if fb.Provider == "" {
			return nil, fmt.Errorf("ai.embed.fallbacks[%d].provider is required", i)
		}
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "documents"
	}
	switch cfg.VectorStore.Type {
	case "memory", "none":
	case "postgres":
		if cfg.VectorStore.Data == nil {
			return nil, fmt.Errorf("vector_store.data is required for postgres store")
		}
	default:
		return nil, fmt.Errorf("vector_store.type must be postgres, memory or none")
	}
	return &cfg, nil
}
