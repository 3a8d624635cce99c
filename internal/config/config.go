// Package config loads docqa settings from defaults, a YAML config file, a
// .env file and DOCQA_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned by Load when the openai provider is selected
// and no API key is set.
var ErrMissingAPIKey = errors.New("missing required config: OpenAI API key")

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Engine    EngineConfig
	OpenAI    OpenAIConfig
	Ollama    OllamaConfig
	Chunk     ChunkConfig
	Retrieval RetrievalConfig
	Composer  ComposerConfig
	Chat      ChatConfig
	Upload    UploadConfig
	Reconcile ReconcileConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	MCPPort     int // 0 disables the MCP HTTP listener
	MaxUploadMB int
	AuthToken   string
}

type StorageConfig struct {
	DataDir string
}

type EngineConfig struct {
	Provider   string
	ChatModel  string
	EmbedModel string
	EmbedDim   int
	Timeout    time.Duration
}

type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	RateLimit float64 // requests per second, 0 for unlimited
}

type OllamaConfig struct {
	BaseURL string
}

type ChunkConfig struct {
	Size    int
	Overlap int
}

type RetrievalConfig struct {
	TopK int
}

type ComposerConfig struct {
	MaxContextTokens int
}

type ChatConfig struct {
	CondenseQuestions bool
}

type UploadConfig struct {
	Summarize bool
}

type ReconcileConfig struct {
	Interval time.Duration
}

type LogConfig struct {
	Level string
}

// Addr returns the HTTP listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MCPAddr returns the MCP HTTP listen address, or "" when disabled.
func (c ServerConfig) MCPAddr() string {
	if c.MCPPort <= 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Host, c.MCPPort)
}

// MaxUploadBytes returns the upload cap in bytes.
func (c ServerConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        8000,
			MaxUploadMB: 20,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Engine: EngineConfig{
			Provider:   "openai",
			ChatModel:  "gpt-4.1",
			EmbedModel: "text-embedding-3-large",
			EmbedDim:   1024,
			Timeout:    60 * time.Second,
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
		},
		Chunk: ChunkConfig{
			Size:    1000,
			Overlap: 200,
		},
		Retrieval: RetrievalConfig{
			TopK: 4,
		},
		Composer: ComposerConfig{
			MaxContextTokens: 4000,
		},
		Chat: ChatConfig{
			CondenseQuestions: true,
		},
		Upload: UploadConfig{
			Summarize: true,
		},
		Reconcile: ReconcileConfig{
			Interval: 5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the YAML config file at
// $XDG_CONFIG_HOME/docqa/config.yaml, a .env file in the working directory,
// and environment variables.
//
// Real environment variables win over .env entries, which win over the
// config file. Secrets are read from the environment only.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()), ".env", os.LookupEnv)
}

func loadWith(b ConfigBackend, dotenvPath string, lookup func(string) (string, bool)) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	dotenv, err := readDotenv(dotenvPath)
	if err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg, func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	})

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readDotenv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	m, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return m, nil
}

func (c Config) validate() error {
	switch c.Engine.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("%w; set it via environment variable %s", ErrMissingAPIKey, envFor("openai.api_key"))
		}
	case "ollama":
	default:
		return fmt.Errorf("engine.provider must be openai or ollama, got %q", c.Engine.Provider)
	}
	if c.Chunk.Overlap <= 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk.overlap (%d) must be in (0, chunk.size (%d))", c.Chunk.Overlap, c.Chunk.Size)
	}
	if c.Engine.EmbedDim <= 0 {
		return fmt.Errorf("engine.embed_dim must be positive, got %d", c.Engine.EmbedDim)
	}
	return nil
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "docqa-data"
		}
	}
	return filepath.Join(dir, "docqa")
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "docqa", "config.yaml")
}
