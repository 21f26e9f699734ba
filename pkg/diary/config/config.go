package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/diary/pkg/diary/internalerr"
)

// Remote providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config is the whole runtime configuration.
type Config struct {
	LLM      LLM      `yaml:"llm"`
	Store    Store    `yaml:"store"`
	Learning Learning `yaml:"learning"`

	// Optional YAML overrides, see Loader.
	LexiconPath string `yaml:"lexicon"`
	MarkersPath string `yaml:"markers"`
}

// LLM configures the remote analyzer.
type LLM struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`

	Temperature     float32 `yaml:"temperature"`
	TopK            float32 `yaml:"top_k"`
	TopP            float32 `yaml:"top_p"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`

	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

// Store selects and locates the document store.
type Store struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	MongoURI string `yaml:"mongo_uri"`
}

// Learning tunes the learning store.
type Learning struct {
	HintTimeout time.Duration `yaml:"hint_timeout"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLM{
			Provider:        ProviderGemini,
			Model:           "gemini-3-flash-preview",
			Temperature:     0.4,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 2048,
			Timeout:         30 * time.Second,
		},
		Store: Store{
			Driver: DriverSQLite,
			Path:   "diary.db",
		},
		Learning: Learning{
			HintTimeout: 2 * time.Second,
			CacheTTL:    time.Minute,
		},
	}
}

// Load reads a YAML file over Default. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&cfg.LLM.Provider, "DIARY_LLM_PROVIDER")
	set(&cfg.LLM.Model, "DIARY_LLM_MODEL")
	set(&cfg.LLM.BaseURL, "DIARY_LLM_BASE_URL")
	if cfg.LLM.Provider == ProviderGemini {
		set(&cfg.LLM.APIKey, "GEMINI_API_KEY")
	}
	set(&cfg.LLM.APIKey, "DIARY_LLM_API_KEY")
	set(&cfg.Store.Driver, "DIARY_STORE_DRIVER")
	set(&cfg.Store.Path, "DIARY_DB")
	set(&cfg.Store.MongoURI, "DIARY_MONGO_URI")
}

// Validate checks cross-field consistency.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: unknown llm provider %q", internalerr.ErrInvalidConfig, c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("%w: temperature %v out of [0, 2]", internalerr.ErrInvalidConfig, c.LLM.Temperature)
	}
	if c.LLM.TopP < 0 || c.LLM.TopP > 1 {
		return fmt.Errorf("%w: top_p %v out of [0, 1]", internalerr.ErrInvalidConfig, c.LLM.TopP)
	}
	if c.LLM.TopK < 0 || c.LLM.MaxOutputTokens < 0 || c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: negative generation limit", internalerr.ErrInvalidConfig)
	}
	if c.LLM.Timeout < 0 || c.Learning.HintTimeout < 0 {
		return fmt.Errorf("%w: negative timeout", internalerr.ErrInvalidConfig)
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: sqlite store needs a path", internalerr.ErrInvalidConfig)
		}
	case DriverMongo:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("%w: mongo store needs a uri", internalerr.ErrInvalidConfig)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: unknown store driver %q", internalerr.ErrInvalidConfig, c.Store.Driver)
	}
	return nil
}

// RemoteEnabled reports whether enough is configured to call the remote
// analyzer. Without it the core runs fallback-only.
func (c Config) RemoteEnabled() bool {
	switch c.LLM.Provider {
	case ProviderGemini:
		return c.LLM.APIKey != "" && c.LLM.Model != ""
	case ProviderOpenAI:
		return c.LLM.BaseURL != "" && c.LLM.Model != ""
	default:
		return false
	}
}
