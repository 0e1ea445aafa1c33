package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
vector:
  index_type: memory
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Vector.IndexType != "memory" {
		t.Errorf("index_type = %q, want memory", cfg.Vector.IndexType)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
storage:
  database_path: "./data/db/policy.db"
  vector_dir: "./data/vectorstore"
watch:
  directories: ["./inbox"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "db", "policy.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "data", "vectorstore"); cfg.Storage.VectorDir != want {
		t.Errorf("vector_dir = %s, want %s", cfg.Storage.VectorDir, want)
	}
	if len(cfg.Watch.Directories) != 1 || cfg.Watch.Directories[0] != filepath.Join(dir, "inbox") {
		t.Errorf("watch directories = %v", cfg.Watch.Directories)
	}
}

func TestLoad_envOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
storage:
  store_name: "fromfile"
llm:
  summary_max_chars: 100
`)
	t.Setenv("VECTOR_DB_NAME", "fromenv")
	t.Setenv("SUMMARY_MAX_CHARS", "500")
	t.Setenv("API_SECRET", "s3cret")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.StoreName != "fromenv" {
		t.Errorf("store_name = %q, want fromenv", cfg.Storage.StoreName)
	}
	if cfg.LLM.SummaryMaxChars != 500 {
		t.Errorf("summary_max_chars = %d, want 500", cfg.LLM.SummaryMaxChars)
	}
	if cfg.Server.APISecret != "s3cret" {
		t.Errorf("api_secret = %q", cfg.Server.APISecret)
	}
	if cfg.Embedding.APIKey != "sk-test" || cfg.LLM.APIKey != "sk-test" {
		t.Errorf("api keys not resolved: embedding=%q llm=%q", cfg.Embedding.APIKey, cfg.LLM.APIKey)
	}
}

func TestLoad_invalidEnvInt(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "debug: false\n")
	t.Setenv("RETENTION_DAYS", "forever")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for non-numeric RETENTION_DAYS")
	}
}

func TestLoad_dotEnvNextToConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
embedding:
  api_key_env: "POLICY_TEST_EMBED_KEY"
`)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("POLICY_TEST_EMBED_KEY=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("POLICY_TEST_EMBED_KEY") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.APIKey != "from-dotenv" {
		t.Errorf("embedding api key = %q, want from-dotenv", cfg.Embedding.APIKey)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Storage.StoreName != "policies" {
		t.Errorf("default store name: got %s", cfg.Storage.StoreName)
	}
	if cfg.Chunking.TargetChars != 1200 || cfg.Chunking.OverlapChars != 200 || cfg.Chunking.HardMaxChars != 2000 {
		t.Errorf("chunking defaults: got %+v", cfg.Chunking)
	}
	if cfg.QA.MaxK != 8 {
		t.Errorf("default max_k: got %d", cfg.QA.MaxK)
	}
	if cfg.LLM.SummaryMaxChars != 12000 || cfg.LLM.ChecklistMaxChars != 10000 || cfg.LLM.RiskMaxChars != 8000 {
		t.Errorf("llm truncation defaults: got %+v", cfg.LLM)
	}
	if len(cfg.Watch.Extensions) != 3 || cfg.Watch.Extensions[0] != ".pdf" {
		t.Errorf("watch extensions: got %v", cfg.Watch.Extensions)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	off := false
	on := true
	tests := []struct {
		name string
		cfg  WatchConfig
		want bool
	}{
		{"unset", WatchConfig{}, true},
		{"false", WatchConfig{Recursive: &off}, false},
		{"true", WatchConfig{Recursive: &on}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.RecursiveOrDefault(); got != tt.want {
				t.Errorf("RecursiveOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}
