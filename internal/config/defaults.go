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
		cfg.Storage.DatabasePath = "./data/platform.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "./data/indices/bleve"
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-ada-002"
	}
	if cfg.OpenAI.CompletionModel == "" {
		cfg.OpenAI.CompletionModel = "gpt-4o"
	}
	if cfg.OpenAI.Dimensions == 0 {
		cfg.OpenAI.Dimensions = 1536
	}
	if cfg.Ingest.ChunkMaxChars == 0 {
		cfg.Ingest.ChunkMaxChars = 8000
	}
	if cfg.Ingest.TextChunkWords == 0 {
		cfg.Ingest.TextChunkWords = 512
	}
	if cfg.Ingest.TextChunkOverlap == 0 {
		cfg.Ingest.TextChunkOverlap = 50
	}
	if cfg.Ingest.BufferMaxBytes == 0 {
		cfg.Ingest.BufferMaxBytes = 1 << 20
	}
	if cfg.Retrieval.MaxResults == 0 {
		cfg.Retrieval.MaxResults = 5
	}
	if cfg.Retrieval.ContextWindow == 0 {
		cfg.Retrieval.ContextWindow = 3
	}
	if cfg.Retrieval.SemanticWeight == 0 && cfg.Retrieval.KeywordWeight == 0 {
		cfg.Retrieval.SemanticWeight = 0.7
		cfg.Retrieval.KeywordWeight = 0.3
	}
	if cfg.Sync.ContextQuery == "" {
		cfg.Sync.ContextQuery = "all project data"
	}
	if cfg.Sync.ContextResults == 0 {
		cfg.Sync.ContextResults = 50
	}
	if cfg.Sync.Concurrency == 0 {
		cfg.Sync.Concurrency = 4
	}
	if cfg.Sync.PerChartTimeoutSecs == 0 {
		cfg.Sync.PerChartTimeoutSecs = 120
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".xlsx", ".xls", ".txt", ".md", ".pdf", ".docx"}
	}
	if len(cfg.Watch.Projects) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
