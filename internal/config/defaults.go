package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/policysimplify/data/db/policy.db"
	}
	if cfg.Storage.VectorDir == "" {
		cfg.Storage.VectorDir = "/usr/local/var/policysimplify/data/vectorstore"
	}
	if cfg.Storage.StoreName == "" {
		cfg.Storage.StoreName = "policies"
	}
	if cfg.Storage.CardIndexPath == "" {
		cfg.Storage.CardIndexPath = "/usr/local/var/policysimplify/data/indices/cards"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = 60
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 3
	}
	if cfg.Embedding.RequestsPerSecond == 0 {
		cfg.Embedding.RequestsPerSecond = 5
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "auto"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 120
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.2
	}
	if cfg.LLM.SummaryMaxChars == 0 {
		cfg.LLM.SummaryMaxChars = 12000
	}
	if cfg.LLM.ChecklistMaxChars == 0 {
		cfg.LLM.ChecklistMaxChars = 10000
	}
	if cfg.LLM.RiskMaxChars == 0 {
		cfg.LLM.RiskMaxChars = 8000
	}
	if cfg.Chunking.TargetChars == 0 {
		cfg.Chunking.TargetChars = 1200
	}
	if cfg.Chunking.OverlapChars == 0 {
		cfg.Chunking.OverlapChars = 200
	}
	if cfg.Chunking.HardMaxChars == 0 {
		cfg.Chunking.HardMaxChars = 2000
	}
	if cfg.QA.DefaultK == 0 {
		cfg.QA.DefaultK = 4
	}
	if cfg.QA.MaxK == 0 {
		cfg.QA.MaxK = 8
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".docx", ".txt"}
	}
	if cfg.Watch.Tenant == "" {
		cfg.Watch.Tenant = "default"
	}
	if cfg.Retention.Days == 0 {
		cfg.Retention.Days = 365
	}
}
