package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url" toml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env" toml:"api_key_env"`
	Model       string `yaml:"model" toml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size" toml:"batch_size"`
	MaxRetries  int    `yaml:"max_retries" toml:"max_retries"`
}

// HashingEmbedderConfig configures the local feature-hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension" toml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
// The same settings must be used for `index` and for every query against it.
type EmbedderConfig struct {
	Type    string                `yaml:"type" toml:"type"`
	Hashing HashingEmbedderConfig `yaml:"hashing" toml:"hashing"`
	OpenAI  *OpenAIEmbedderConfig `yaml:"openai,omitempty" toml:"openai,omitempty"`
}

// ChunkerConfig configures how contracts are split into chunks.
type ChunkerConfig struct {
	MaxChars     int `yaml:"max_chars" toml:"max_chars"`
	OverlapChars int `yaml:"overlap_chars" toml:"overlap_chars"`
}

// CorpusConfig locates the contracts to index.
type CorpusConfig struct {
	Dir          string `yaml:"dir" toml:"dir"`
	MaxDocuments int    `yaml:"max_documents" toml:"max_documents"`
}

// IndexConfig locates the persisted vector index.
type IndexConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// CatalogConfig locates the rule catalog.
type CatalogConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// JudgeConfig configures the language model that renders verdicts.
type JudgeConfig struct {
	Type              string  `yaml:"type" toml:"type"`
	BaseURL           string  `yaml:"base_url" toml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env" toml:"api_key_env"`
	Model             string  `yaml:"model" toml:"model"`
	Temperature       float64 `yaml:"temperature" toml:"temperature"`
	TimeoutSecs       int     `yaml:"timeout_secs" toml:"timeout_secs"`
	RequestsPerMinute int     `yaml:"requests_per_minute" toml:"requests_per_minute"`
}

// EvaluatorConfig holds retrieval and truncation budgets.
type EvaluatorConfig struct {
	TopK          int `yaml:"top_k" toml:"top_k"`
	ContractChars int `yaml:"contract_chars" toml:"contract_chars"`
	ExcerptChars  int `yaml:"excerpt_chars" toml:"excerpt_chars"`
	PreviewChars  int `yaml:"preview_chars" toml:"preview_chars"`
}

// AuditConfig configures full audits.
type AuditConfig struct {
	Workers int    `yaml:"workers" toml:"workers"`
	Output  string `yaml:"output" toml:"output"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder  EmbedderConfig  `yaml:"embedder" toml:"embedder"`
	Chunker   ChunkerConfig   `yaml:"chunker" toml:"chunker"`
	Corpus    CorpusConfig    `yaml:"corpus" toml:"corpus"`
	Index     IndexConfig     `yaml:"index" toml:"index"`
	Catalog   CatalogConfig   `yaml:"catalog" toml:"catalog"`
	Judge     JudgeConfig     `yaml:"judge" toml:"judge"`
	Evaluator EvaluatorConfig `yaml:"evaluator" toml:"evaluator"`
	Audit     AuditConfig     `yaml:"audit" toml:"audit"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
}

// Default values. Retrieval and truncation budgets mirror the first version
// of the checker and are not tuned.
const (
	DefaultJudgeBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultJudgeModel   = "gemini-2.0-flash"
	DefaultJudgeKeyEnv  = "GOOGLE_API_KEY"
)

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Files ending in .toml are parsed as TOML, everything else as YAML.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/compliance/config.yaml.
// If neither exists, it writes defaults to ~/.config/compliance/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "compliance", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder: EmbedderConfig{Type: "hashing"},
		Judge:    JudgeConfig{Type: "openai"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Hashing.Dimension == 0 {
		cfg.Embedder.Hashing.Dimension = 512
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI == nil {
		cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	if cfg.Chunker.MaxChars == 0 {
		cfg.Chunker.MaxChars = 1500
	}
	if cfg.Chunker.OverlapChars == 0 {
		cfg.Chunker.OverlapChars = 150
	}
	if cfg.Corpus.Dir == "" {
		cfg.Corpus.Dir = filepath.Join("CUAD_v1", "full_contract_txt")
	}
	if cfg.Corpus.MaxDocuments == 0 {
		cfg.Corpus.MaxDocuments = 50
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "vectorstore"
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "rules.json"
	}
	if cfg.Judge.Type == "" {
		cfg.Judge.Type = "openai"
	}
	if cfg.Judge.BaseURL == "" {
		cfg.Judge.BaseURL = DefaultJudgeBaseURL
	}
	if cfg.Judge.APIKeyEnv == "" {
		cfg.Judge.APIKeyEnv = DefaultJudgeKeyEnv
	}
	if cfg.Judge.Model == "" {
		cfg.Judge.Model = DefaultJudgeModel
	}
	if cfg.Judge.Temperature == 0 {
		cfg.Judge.Temperature = 0.3
	}
	if cfg.Judge.TimeoutSecs == 0 {
		cfg.Judge.TimeoutSecs = 120
	}
	if cfg.Evaluator.TopK == 0 {
		cfg.Evaluator.TopK = 3
	}
	if cfg.Evaluator.ContractChars == 0 {
		cfg.Evaluator.ContractChars = 4000
	}
	if cfg.Evaluator.ExcerptChars == 0 {
		cfg.Evaluator.ExcerptChars = 500
	}
	if cfg.Evaluator.PreviewChars == 0 {
		cfg.Evaluator.PreviewChars = 1000
	}
	if cfg.Audit.Workers == 0 {
		cfg.Audit.Workers = 1
	}
	if cfg.Audit.Output == "" {
		cfg.Audit.Output = "compliance_results.json"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}
