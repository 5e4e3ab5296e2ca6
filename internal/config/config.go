// Package config provides configuration loading and structs for the platform.
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
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Sync      SyncConfig      `yaml:"sync"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the SQLite database and the Bleve index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// OpenAIConfig holds settings for the embedding and completion clients.
// APIKey falls back to the OPENAI_API_KEY environment variable when unset.
type OpenAIConfig struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	EmbeddingModel  string `yaml:"embedding_model"`
	CompletionModel string `yaml:"completion_model"`
	Dimensions      int    `yaml:"dimensions"`
}

// IngestConfig holds chunking and accumulation buffer settings.
type IngestConfig struct {
	ChunkMaxChars    int `yaml:"chunk_max_chars"`
	TextChunkWords   int `yaml:"text_chunk_words"`
	TextChunkOverlap int `yaml:"text_chunk_overlap"`
	BufferMaxBytes   int `yaml:"buffer_max_bytes"`
}

// RetrievalConfig holds hybrid search and context assembly settings.
type RetrievalConfig struct {
	MaxResults     int     `yaml:"max_results"`
	ContextWindow  int     `yaml:"context_window"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
}

// SyncConfig holds chart synchronization settings.
type SyncConfig struct {
	ContextQuery        string `yaml:"context_query"`
	ContextResults      int    `yaml:"context_results"`
	Concurrency         int    `yaml:"concurrency"`
	PerChartTimeoutSecs int    `yaml:"per_chart_timeout_secs"`
}

// WatchConfig holds source directory watch settings.
type WatchConfig struct {
	Projects   []WatchProject `yaml:"projects"`
	Extensions []string       `yaml:"extensions"`
	Recursive  *bool          `yaml:"recursive"`
}

// WatchProject binds one directory tree to a project.
type WatchProject struct {
	ProjectID   int64  `yaml:"project_id"`
	ProjectName string `yaml:"project_name"`
	Directory   string `yaml:"directory"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
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
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	for i := range cfg.Watch.Projects {
		cfg.Watch.Projects[i].Directory = expandPath(cfg.Watch.Projects[i].Directory, configDir)
	}

	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return &cfg, nil
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
