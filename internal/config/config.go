package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all settings of the CLI and the MCP server.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Google   GoogleConfig   `yaml:"google"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Redis    RedisConfig    `yaml:"redis"`
	Drive    DriveConfig    `yaml:"drive"`
	Email    EmailConfig    `yaml:"email"`
	Calendar CalendarConfig `yaml:"calendar"`
	Log      LogConfig      `yaml:"log"`
}

// LLMConfig configures the chat completions endpoint.
type LLMConfig struct {
	BaseURL           string        `yaml:"base_url" env:"LLM_BASE_URL"`
	APIKey            string        `yaml:"api_key" env:"LLM_API_KEY,GROQ_API_KEY"`
	Model             string        `yaml:"model" env:"LLM_MODEL"`
	Temperature       float64       `yaml:"temperature" env:"LLM_TEMPERATURE"`
	MaxTokens         int           `yaml:"max_tokens" env:"LLM_MAX_TOKENS"`
	Timeout           time.Duration `yaml:"timeout" env:"LLM_TIMEOUT"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"LLM_REQUESTS_PER_MINUTE"`
	MaxRetries        int           `yaml:"max_retries" env:"LLM_MAX_RETRIES"`
}

// GoogleConfig configures OAuth client credentials and token storage.
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file" env:"GOOGLE_CREDENTIALS_FILE"`
	ClientID        string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret    string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	TokenDir        string `yaml:"token_dir" env:"WORKDIGEST_TOKEN_DIR"`
	Account         string `yaml:"account" env:"WORKDIGEST_ACCOUNT"`
}

// PipelineConfig configures the batch coordinator.
type PipelineConfig struct {
	Concurrency      int           `yaml:"concurrency" env:"PIPELINE_CONCURRENCY"`
	PreserveOrder    bool          `yaml:"preserve_order" env:"PIPELINE_PRESERVE_ORDER"`
	SequentialStages bool          `yaml:"sequential_stages" env:"PIPELINE_SEQUENTIAL_STAGES"`
	StageTimeout     time.Duration `yaml:"stage_timeout" env:"PIPELINE_STAGE_TIMEOUT"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout" env:"PIPELINE_FETCH_TIMEOUT"`
}

// RedisConfig enables the stage result cache when Addr is set.
type RedisConfig struct {
	Addr string        `yaml:"addr" env:"REDIS_ADDR"`
	TTL  time.Duration `yaml:"ttl" env:"REDIS_TTL"`
}

// DriveConfig holds Drive report settings.
type DriveConfig struct {
	Folder string `yaml:"folder" env:"DRIVE_FOLDER"`
}

// EmailConfig holds email report settings.
type EmailConfig struct {
	MaxMessages int `yaml:"max_messages" env:"EMAIL_MAX_MESSAGES"`
}

// CalendarConfig holds calendar assistant settings.
type CalendarConfig struct {
	TimeZone   string `yaml:"time_zone" env:"CALENDAR_TIME_ZONE"`
	CalendarID string `yaml:"calendar_id" env:"CALENDAR_ID"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:           "https://api.groq.com/openai/v1",
			Model:             "llama-3.1-70b-versatile",
			Temperature:       0.2,
			MaxTokens:         1024,
			Timeout:           60 * time.Second,
			RequestsPerMinute: 30,
			MaxRetries:        3,
		},
		Google: GoogleConfig{
			Account: "default",
		},
		Pipeline: PipelineConfig{
			Concurrency:   1,
			PreserveOrder: true,
			StageTimeout:  90 * time.Second,
			FetchTimeout:  60 * time.Second,
		},
		Redis: RedisConfig{
			TTL: 7 * 24 * time.Hour,
		},
		Email: EmailConfig{
			MaxMessages: 20,
		},
		Calendar: CalendarConfig{
			TimeZone:   "America/Chicago",
			CalendarID: "primary",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}
