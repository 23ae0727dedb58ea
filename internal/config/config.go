// Package config provides configuration loading and structs for the Kensho engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the engine.
// WorkspacePath points at an optional JSON workspace file with collaborator
// content (catalog assets, hierarchies, lineage, templates, glossary) for
// deployments without external catalog services.
type Config struct {
	Debug         bool             `yaml:"debug"`
	WorkspacePath string           `yaml:"workspace_path"`
	Server        ServerConfig     `yaml:"server"`
	Embedding     EmbeddingConfig  `yaml:"embedding"`
	Vector        VectorConfig     `yaml:"vector"`
	Retrieval     RetrievalConfig  `yaml:"retrieval"`
	Validation    ValidationConfig `yaml:"validation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// EmbeddingConfig holds embedding provider settings.
// Provider is one of "openai", "onnx", "mock". Endpoint overrides the OpenAI
// base URL so any OpenAI-compatible local server works. APIKey falls back to
// the OPENAI_API_KEY environment variable when empty.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	ModelPath      string `yaml:"model_path"`
	Dimensions     int    `yaml:"dimensions"`
	MaxTokens      int    `yaml:"max_tokens"`
	CacheDir       string `yaml:"cache_dir"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// VectorConfig holds vector store settings.
// Backend is one of "sqlite", "weaviate".
type VectorConfig struct {
	Backend        string `yaml:"backend"`
	SQLitePath     string `yaml:"sqlite_path"`
	WeaviateHost   string `yaml:"weaviate_host"`
	WeaviateScheme string `yaml:"weaviate_scheme"`
	WeaviateClass  string `yaml:"weaviate_class"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RetrievalConfig holds hybrid retrieval and fusion settings.
type RetrievalConfig struct {
	DefaultLimit    int     `yaml:"default_limit"`
	MaxLimit        int     `yaml:"max_limit"`
	OverfetchFactor int     `yaml:"overfetch_factor"`
	MinSimilarity   float64 `yaml:"min_similarity"`
	RRFConstant     float64 `yaml:"rrf_constant"`
	GraphMaxHops    int     `yaml:"graph_max_hops"`
	VectorWeight    float64 `yaml:"vector_weight"`
	GraphWeight     float64 `yaml:"graph_weight"`
	LexicalWeight   float64 `yaml:"lexical_weight"`
	TemplateWeight  float64 `yaml:"template_weight"`
}

// ValidationConfig holds proof-of-graph validator settings.
type ValidationConfig struct {
	Strict              bool    `yaml:"strict"`
	SuggestionThreshold float64 `yaml:"suggestion_threshold"`
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
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.CacheDir = expandPath(cfg.Embedding.CacheDir, configDir)
	cfg.Vector.SQLitePath = expandPath(cfg.Vector.SQLitePath, configDir)
	cfg.WorkspacePath = expandPath(cfg.WorkspacePath, configDir)

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
	if path == "" || filepath.IsAbs(path) {
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
