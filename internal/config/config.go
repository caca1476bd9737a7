// Package config provides configuration loading and structs for the Asha server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Chat      ChatConfig      `yaml:"chat"`
	Recommend RecommendConfig `yaml:"recommend"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the session database, indices, and the
// optional sessions JSON data file watched for changes.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	VectorIndexPath  string `yaml:"vector_index_path"`
	KeywordIndexPath string `yaml:"keyword_index_path"`
	SessionsFile     string `yaml:"sessions_file"`
}

// EmbeddingConfig holds embedding provider settings. The primary model is
// probed first; FallbackModel is used when the primary is unavailable.
type EmbeddingConfig struct {
	Host          string `yaml:"host"`
	Model         string `yaml:"model"`
	FallbackModel string `yaml:"fallback_model"`
	BatchSize     int    `yaml:"batch_size"`
	CacheSize     int    `yaml:"cache_size"`
}

// IndexConfig holds vector index topology settings. The defaults are
// conventional starting points, not tuned for any particular recall target.
type IndexConfig struct {
	FlatThreshold  int `yaml:"flat_threshold"`
	MaxPartitions  int `yaml:"max_partitions"`
	MaxSearchWidth int `yaml:"max_search_width"`
	TrainIters     int `yaml:"train_iters"`
}

// ChatConfig holds language model settings for the chat assistant.
type ChatConfig struct {
	Host         string  `yaml:"host"`
	Model        string  `yaml:"model"`
	HistoryLimit int     `yaml:"history_limit"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
}

// RecommendConfig holds session recommendation settings.
type RecommendConfig struct {
	TopK           int     `yaml:"top_k"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	MinQueryLength int     `yaml:"min_query_length"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, configDir)
	if cfg.Storage.SessionsFile != "" {
		cfg.Storage.SessionsFile = expandPath(cfg.Storage.SessionsFile, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
