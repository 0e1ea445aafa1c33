// Package config provides configuration loading and structs for the policysimplify server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	LLM       LLMConfig       `yaml:"llm"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	QA        QAConfig        `yaml:"qa"`
	Watch     WatchConfig     `yaml:"watch"`
	Retention RetentionConfig `yaml:"retention"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// APISecret, when set, is required in the X-API-Key header of every /api request.
	APISecret string `yaml:"api_secret"`
}

// StorageConfig holds paths for the database, vector snapshots and the card index.
type StorageConfig struct {
	DatabasePath  string `yaml:"database_path"`
	VectorDir     string `yaml:"vector_dir"`
	StoreName     string `yaml:"store_name"`
	CardIndexPath string `yaml:"card_index_path"`
}

// EmbeddingConfig selects and tunes the embedding gateway.
type EmbeddingConfig struct {
	// Provider is one of "openai", "onnx" or "mock".
	Provider          string  `yaml:"provider"`
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	APIKey            string  `yaml:"-"`
	Dimensions        int     `yaml:"dimensions"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	CacheSize         int     `yaml:"cache_size"`
	ModelPath         string  `yaml:"model_path"`
	MaxTokens         int     `yaml:"max_tokens"`
}

// VectorConfig selects the vector index backend.
type VectorConfig struct {
	// IndexType is "memory", "faiss" or "auto".
	IndexType string `yaml:"index_type"`
}

// LLMConfig configures the chat model used for summaries, checklists, risk and answers.
type LLMConfig struct {
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	APIKey            string  `yaml:"-"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	Temperature       float64 `yaml:"temperature"`
	SummaryMaxChars   int     `yaml:"summary_max_chars"`
	ChecklistMaxChars int     `yaml:"checklist_max_chars"`
	RiskMaxChars      int     `yaml:"risk_max_chars"`
}

// ChunkingConfig holds paragraph chunker limits in characters.
type ChunkingConfig struct {
	TargetChars  int `yaml:"target_chars"`
	OverlapChars int `yaml:"overlap_chars"`
	HardMaxChars int `yaml:"hard_max_chars"`
}

// QAConfig bounds the number of chunks retrieved per question.
type QAConfig struct {
	DefaultK int `yaml:"default_k"`
	MaxK     int `yaml:"max_k"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Tenant      string   `yaml:"tenant"`
	// Recursive watches subdirectories too. Nil means true.
	Recursive *bool `yaml:"recursive,omitempty"`
}

// RecursiveOrDefault returns Recursive, defaulting to true.
func (w WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive == nil {
		return true
	}
	return *w.Recursive
}

// RetentionConfig controls purging of old cards.
type RetentionConfig struct {
	Days int `yaml:"days"`
}

// Load reads and parses the config file at path, applies .env and environment overrides,
// expands paths, and applies defaults. An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	var cfg Config
	configDir := "."

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		configDir = filepath.Dir(path)
	}

	// A missing .env is not an error.
	_ = godotenv.Load(filepath.Join(configDir, ".env"))

	ApplyDefaults(&cfg)
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorDir = expandPath(cfg.Storage.VectorDir, configDir)
	cfg.Storage.CardIndexPath = expandPath(cfg.Storage.CardIndexPath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
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

// applyEnv overrides file values with environment variables and resolves API keys.
func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
		return nil
	}

	setString("OPENAI_MODEL_EMBEDDING", &cfg.Embedding.Model)
	setString("OPENAI_MODEL_CHAT", &cfg.LLM.Model)
	setString("VECTOR_DB_DIR", &cfg.Storage.VectorDir)
	setString("VECTOR_DB_NAME", &cfg.Storage.StoreName)
	setString("DB_PATH", &cfg.Storage.DatabasePath)
	setString("API_SECRET", &cfg.Server.APISecret)
	for key, dst := range map[string]*int{
		"SUMMARY_MAX_CHARS":   &cfg.LLM.SummaryMaxChars,
		"CHECKLIST_MAX_CHARS": &cfg.LLM.ChecklistMaxChars,
		"RISK_MAX_CHARS":      &cfg.LLM.RiskMaxChars,
		"RETENTION_DAYS":      &cfg.Retention.Days,
	} {
		if err := setInt(key, dst); err != nil {
			return err
		}
	}

	cfg.Embedding.APIKey = os.Getenv(cfg.Embedding.APIKeyEnv)
	cfg.LLM.APIKey = os.Getenv(cfg.LLM.APIKeyEnv)
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
