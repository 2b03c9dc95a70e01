package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bioask/pkg/ai"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// EnvLocalLLMURL is the secret that points at the OpenAI-compatible endpoint.
const EnvLocalLLMURL = "LOCAL_LLM_URL"

// ErrMissingEndpoint is returned by Validate when no endpoint URL was configured.
var ErrMissingEndpoint = errors.New("LOCAL_LLM_URL not found in secrets.toml. Please add it to connect to your local LLM.")

// Config represents the application configuration
type Config struct {
	LocalLLMURL  string          `json:"local_llm_url" toml:"LOCAL_LLM_URL"`
	Model        string          `json:"model" toml:"model"`
	ExplainLevel string          `json:"explain_level" toml:"explain_level"`
	LLM          LLMConfig       `json:"llm" toml:"llm"`
	Discovery    DiscoveryConfig `json:"discovery" toml:"discovery"`
	Server       ServerConfig    `json:"server" toml:"server"`
	LogLevel     string          `json:"log_level" toml:"log_level"`
	LogFormat    string          `json:"log_format" toml:"log_format"`
	LogFile      string          `json:"log_file" toml:"log_file"`
}

// LLMConfig holds the chat-completions request settings
type LLMConfig struct {
	APIKey            string  `json:"api_key" toml:"api_key"`
	Temperature       float64 `json:"temperature" toml:"temperature"`
	MaxTokens         int     `json:"max_tokens" toml:"max_tokens"`
	APITimeoutSeconds int     `json:"api_timeout_seconds" toml:"api_timeout_seconds"`
	HistoryMessages   int     `json:"history_messages" toml:"history_messages"`
}

// DiscoveryConfig controls how the default model is detected
type DiscoveryConfig struct {
	Command        string   `json:"command" toml:"command"`
	Args           []string `json:"args" toml:"args"`
	TimeoutSeconds int      `json:"timeout_seconds" toml:"timeout_seconds"`
	FallbackModel  string   `json:"fallback_model" toml:"fallback_model"`
}

// ServerConfig holds settings for `bioask serve`
type ServerConfig struct {
	ListenAddr        string   `json:"listen_addr" toml:"listen_addr"`
	SessionTTLMinutes int      `json:"session_ttl_minutes" toml:"session_ttl_minutes"`
	AllowedOrigins    []string `json:"allowed_origins" toml:"allowed_origins"`
}

// Default returns a configuration with default values
func Default() Config {
	return Config{
		LocalLLMURL:  "",
		Model:        "",
		ExplainLevel: string(ai.DefaultExplainLevel),
		LLM: LLMConfig{
			APIKey:            "not-needed",
			Temperature:       0,
			MaxTokens:         0,
			APITimeoutSeconds: 120,
			HistoryMessages:   0,
		},
		Discovery: DiscoveryConfig{
			Command:        "ollama",
			Args:           []string{"list"},
			TimeoutSeconds: 5,
			FallbackModel:  "llama3",
		},
		Server: ServerConfig{
			ListenAddr:        "127.0.0.1:8501",
			SessionTTLMinutes: 60,
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// LoadOptions selects the files Load reads. Empty paths fall back to the defaults.
type LoadOptions struct {
	SecretsPath string
	EnvFile     string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds the configuration from defaults, secrets.toml, a .env file and the
// process environment, in increasing order of precedence. Missing files are not an
// error; malformed ones are.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	secretsPath := strings.TrimSpace(opts.SecretsPath)
	if secretsPath == "" {
		secretsPath = FindSecretsPath()
	}
	if secretsPath != "" {
		if _, err := toml.DecodeFile(secretsPath, &cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("failed to parse secrets file %s: %w", secretsPath, err)
			}
		}
	}

	envFile := strings.TrimSpace(opts.EnvFile)
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read env file %s: %w", envFile, err)
		}
		dotenv = map[string]string{}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	applyEnv(&cfg, func(key string) (string, bool) {
		if value, ok := lookup(key); ok {
			return value, true
		}
		value, ok := dotenv[key]
		return value, ok
	})

	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			*dst = strings.TrimSpace(value)
		}
	}
	num := func(key string, dst *int) {
		if value, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				*dst = n
			}
		}
	}

	str(EnvLocalLLMURL, &cfg.LocalLLMURL)
	str("BIOASK_MODEL", &cfg.Model)
	str("BIOASK_EXPLAIN_LEVEL", &cfg.ExplainLevel)
	str("BIOASK_API_KEY", &cfg.LLM.APIKey)
	num("BIOASK_API_TIMEOUT_SECONDS", &cfg.LLM.APITimeoutSeconds)
	num("BIOASK_HISTORY_MESSAGES", &cfg.LLM.HistoryMessages)
	str("BIOASK_DISCOVERY_COMMAND", &cfg.Discovery.Command)
	str("BIOASK_FALLBACK_MODEL", &cfg.Discovery.FallbackModel)
	str("BIOASK_LISTEN_ADDR", &cfg.Server.ListenAddr)
	num("BIOASK_SESSION_TTL_MINUTES", &cfg.Server.SessionTTLMinutes)
	str("BIOASK_LOG_LEVEL", &cfg.LogLevel)
	str("BIOASK_LOG_FORMAT", &cfg.LogFormat)
	str("BIOASK_LOG_FILE", &cfg.LogFile)
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if strings.TrimSpace(c.LocalLLMURL) == "" {
		return ErrMissingEndpoint
	}

	if _, err := ai.ParseExplainLevel(c.ExplainLevel); err != nil {
		return err
	}

	// Validate temperature
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got: %f", c.LLM.Temperature)
	}

	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative, got: %d", c.LLM.MaxTokens)
	}

	// Validate API timeout
	if c.LLM.APITimeoutSeconds <= 0 {
		return fmt.Errorf("api_timeout_seconds must be positive, got: %d", c.LLM.APITimeoutSeconds)
	}

	if c.LLM.HistoryMessages < 0 {
		return fmt.Errorf("history_messages must not be negative, got: %d", c.LLM.HistoryMessages)
	}

	if c.Discovery.TimeoutSeconds <= 0 {
		return fmt.Errorf("discovery timeout_seconds must be positive, got: %d", c.Discovery.TimeoutSeconds)
	}

	if c.Server.SessionTTLMinutes <= 0 {
		return fmt.Errorf("session_ttl_minutes must be positive, got: %d", c.Server.SessionTTLMinutes)
	}

	return nil
}

// Level returns the configured explain level, falling back to the default.
func (c Config) Level() ai.ExplainLevel {
	level, err := ai.ParseExplainLevel(c.ExplainLevel)
	if err != nil {
		return ai.DefaultExplainLevel
	}
	return level
}

// DefaultSecretsPaths lists where secrets.toml is looked up, in order.
func DefaultSecretsPaths() []string {
	paths := []string{
		filepath.Join(".streamlit", "secrets.toml"),
		"secrets.toml",
	}
	if dir := ConfigDir(); dir != "" {
		paths = append(paths, filepath.Join(dir, "secrets.toml"))
	}
	return paths
}

// FindSecretsPath returns the first existing default secrets file, or "".
func FindSecretsPath() string {
	for _, path := range DefaultSecretsPaths() {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user bioask directory.
func ConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(homeDir) == "" {
		return ".bioask"
	}
	return filepath.Join(homeDir, ".bioask")
}
