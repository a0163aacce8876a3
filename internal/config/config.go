package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvIndexDir   = "INDEX_DIR"
	EnvStorageDir = "STORAGE_DIR"
	EnvListen     = "GOVPAL_LISTEN"
	EnvLogLevel   = "GOVPAL_LOG_LEVEL"
)

// Index backends.
const (
	BackendDisk   = "disk"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen         string   `yaml:"listen"`
	CORSOrigins    []string `yaml:"cors_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
}

// IndexConfig selects where and how the vector index is persisted.
type IndexConfig struct {
	Dir     string `yaml:"dir"`
	Backend string `yaml:"backend"`
}

// StorageConfig is where original uploads are kept.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// ChunkerConfig configures how extracted text is split into chunks.
// Overlap is a pointer so an explicit 0 survives default filling.
type ChunkerConfig struct {
	Size    int  `yaml:"size"`
	Overlap *int `yaml:"overlap"`
}

// OverlapRunes returns the configured overlap, or 0 when unset.
func (c ChunkerConfig) OverlapRunes() int {
	if c.Overlap == nil {
		return 0
	}
	return *c.Overlap
}

// SearchConfig tunes ranking.
type SearchConfig struct {
	TopK         int     `yaml:"top_k"`
	Threshold    float64 `yaml:"threshold"`
	DefaultLimit int     `yaml:"default_limit"`
}

// EmbedderConfig holds configuration for the OpenAI-compatible embedder.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
	BatchSize   int    `yaml:"batch_size"`
}

// ExtractConfig locates external extraction tools.
type ExtractConfig struct {
	PDFToText string `yaml:"pdftotext"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Index    IndexConfig    `yaml:"index"`
	Storage  StorageConfig  `yaml:"storage"`
	Chunker  ChunkerConfig  `yaml:"chunker"`
	Search   SearchConfig   `yaml:"search"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Extract  ExtractConfig  `yaml:"extract"`
	Log      LogConfig      `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./govpal.yaml first, then ~/.config/govpal/config.yaml.
// If neither exists, it writes defaults to ~/.config/govpal/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "govpal.yaml"
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
	applyEnv(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings no component can run with.
func (c *AppConfig) Validate() error {
	switch c.Index.Backend {
	case BackendDisk, BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown index backend %q", c.Index.Backend)
	}
	if overlap := c.Chunker.OverlapRunes(); overlap < 0 || overlap >= c.Chunker.Size {
		return fmt.Errorf("chunker overlap %d must be in [0, %d)", overlap, c.Chunker.Size)
	}
	if c.Search.Threshold < -1 || c.Search.Threshold > 1 {
		return fmt.Errorf("search threshold %v out of range [-1, 1]", c.Search.Threshold)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "govpal", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Server:  ServerConfig{Listen: ":8000", CORSOrigins: []string{"*"}},
		Index:   IndexConfig{Dir: "./data/index", Backend: BackendDisk},
		Storage: StorageConfig{Dir: "./data/storage"},
		Chunker: ChunkerConfig{Size: 800, Overlap: intPtr(120)},
		Search:  SearchConfig{TopK: 50, Threshold: 0.45, DefaultLimit: 10},
		Embedder: EmbedderConfig{
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Model:       "text-embedding-3-small",
			TimeoutSecs: 30,
			MaxRetries:  2,
			BatchSize:   64,
		},
		Extract: ExtractConfig{PDFToText: "pdftotext"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = def.Server.Listen
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = def.Server.CORSOrigins
	}
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = def.Index.Dir
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = def.Index.Backend
	}
	cfg.Index.Backend = strings.ToLower(cfg.Index.Backend)
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = def.Storage.Dir
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = def.Chunker.Size
	}
	if cfg.Chunker.Overlap == nil {
		overlap := def.Chunker.OverlapRunes()
		if overlap >= cfg.Chunker.Size {
			overlap = 0
		}
		cfg.Chunker.Overlap = &overlap
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = def.Search.TopK
	}
	if cfg.Search.Threshold == 0 {
		cfg.Search.Threshold = def.Search.Threshold
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = def.Search.DefaultLimit
	}
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = def.Embedder.BaseURL
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = def.Embedder.APIKeyEnv
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = def.Embedder.Model
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = def.Embedder.TimeoutSecs
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = def.Embedder.BatchSize
	}
	if cfg.Extract.PDFToText == "" {
		cfg.Extract.PDFToText = def.Extract.PDFToText
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}

func intPtr(v int) *int { return &v }

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv(EnvIndexDir); v != "" {
		cfg.Index.Dir = v
	}
	if v := os.Getenv(EnvStorageDir); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
}
