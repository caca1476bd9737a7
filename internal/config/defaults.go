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
		cfg.Storage.DatabasePath = "/usr/local/var/asha/data/db/sessions.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/asha/data/indices/sessions.vec"
	}
	if cfg.Storage.KeywordIndexPath == "" {
		cfg.Storage.KeywordIndexPath = "/usr/local/var/asha/data/indices/bleve"
	}
	if cfg.Embedding.Host == "" {
		cfg.Embedding.Host = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "all-minilm"
	}
	if cfg.Embedding.FallbackModel == "" {
		cfg.Embedding.FallbackModel = "nomic-embed-text"
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Index.FlatThreshold == 0 {
		cfg.Index.FlatThreshold = 1000
	}
	if cfg.Index.MaxPartitions == 0 {
		cfg.Index.MaxPartitions = 256
	}
	if cfg.Index.MaxSearchWidth == 0 {
		cfg.Index.MaxSearchWidth = 16
	}
	if cfg.Index.TrainIters == 0 {
		cfg.Index.TrainIters = 100
	}
	if cfg.Chat.Host == "" {
		cfg.Chat.Host = "http://localhost:11434"
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = "mistral:latest"
	}
	if cfg.Chat.HistoryLimit == 0 {
		cfg.Chat.HistoryLimit = 10
	}
	if cfg.Chat.MaxTokens == 0 {
		cfg.Chat.MaxTokens = 2000
	}
	if cfg.Chat.Temperature == 0 {
		cfg.Chat.Temperature = 0.7
	}
	if cfg.Recommend.TopK == 0 {
		cfg.Recommend.TopK = 3
	}
	if cfg.Recommend.SemanticWeight == 0 {
		cfg.Recommend.SemanticWeight = 0.7
	}
	if cfg.Recommend.MinQueryLength == 0 {
		cfg.Recommend.MinQueryLength = 3
	}
}
