package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "mock"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kensho/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheDir == "" {
		cfg.Embedding.CacheDir = "/usr/local/var/kensho/data/cache/embeddings"
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 30
	}
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = "sqlite"
	}
	if cfg.Vector.SQLitePath == "" {
		cfg.Vector.SQLitePath = "/usr/local/var/kensho/data/db/vectors.db"
	}
	if cfg.Vector.WeaviateHost == "" {
		cfg.Vector.WeaviateHost = "localhost:8081"
	}
	if cfg.Vector.WeaviateScheme == "" {
		cfg.Vector.WeaviateScheme = "http"
	}
	if cfg.Vector.WeaviateClass == "" {
		cfg.Vector.WeaviateClass = "KenshoDocument"
	}
	if cfg.Vector.TimeoutSeconds == 0 {
		cfg.Vector.TimeoutSeconds = 10
	}
	if cfg.Retrieval.DefaultLimit == 0 {
		cfg.Retrieval.DefaultLimit = 10
	}
	if cfg.Retrieval.MaxLimit == 0 {
		cfg.Retrieval.MaxLimit = 100
	}
	if cfg.Retrieval.OverfetchFactor == 0 {
		cfg.Retrieval.OverfetchFactor = 2
	}
	if cfg.Retrieval.MinSimilarity == 0 {
		cfg.Retrieval.MinSimilarity = 0.3
	}
	if cfg.Retrieval.RRFConstant == 0 {
		cfg.Retrieval.RRFConstant = 60
	}
	if cfg.Retrieval.GraphMaxHops == 0 {
		cfg.Retrieval.GraphMaxHops = 3
	}
	if cfg.Retrieval.VectorWeight == 0 && cfg.Retrieval.GraphWeight == 0 &&
		cfg.Retrieval.LexicalWeight == 0 && cfg.Retrieval.TemplateWeight == 0 {
		cfg.Retrieval.VectorWeight = 0.4
		cfg.Retrieval.GraphWeight = 0.3
		cfg.Retrieval.LexicalWeight = 0.2
		cfg.Retrieval.TemplateWeight = 0.1
	}
	if cfg.Validation.SuggestionThreshold == 0 {
		cfg.Validation.SuggestionThreshold = 0.6
	}
}
