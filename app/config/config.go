package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      Log      `yaml:"log"`
	Server   Server   `yaml:"server"`
	OpenAI   OpenAI   `yaml:"openai"`
	Callback Callback `yaml:"callback"`
	Honeypot Honeypot `yaml:"honeypot"`
}

type Server struct {
	// Listen address of the HTTP server
	Listen string `yaml:"listen" example:":8080" validate:"required"`
	// Shared secret expected in the x-api-key header
	APIKey string `yaml:"api_key" example:"hp-secret-123456" validate:"required"`
}

type OpenAI struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://openrouter.ai/api/v1" validate:"required"`
	// OpenAI token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// OpenAI model
	Model string `yaml:"model" example:"deepseek/deepseek-chat-v3-0324:free" validate:"required"`
	// Per-call timeout in seconds
	TimeoutSeconds int `yaml:"timeout_seconds" example:"20" validate:"min=1,max=30"`
}

type Callback struct {
	// Intelligence report receiver; dispatch is disabled when empty
	URL string `yaml:"url" example:"https://reports.example.com/v1/intel" validate:"omitempty,url"`
	// Delivery timeout in seconds
	TimeoutSeconds int `yaml:"timeout_seconds" example:"10" validate:"min=1"`
}

type Honeypot struct {
	// Minimum model confidence before a session counts as a confirmed scam
	ConfidenceThreshold float64 `yaml:"confidence_threshold" example:"0.8" validate:"min=0,max=1"`
	// Minimum exchanged messages before a callback may fire without extracted intelligence
	MinTurns int `yaml:"min_turns" example:"3" validate:"min=1"`
	// Reply sent when the model call fails or returns garbage
	FallbackReply string `yaml:"fallback_reply" example:"Sorry, I was busy. Can you repeat that?"`
}

type Log struct {
	// Console log level: debug, info, warn or error
	Level string `yaml:"level" example:"debug" validate:"omitempty,oneof=debug info warn error"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	var result Config

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	if result.Server.Listen == "" {
		result.Server.Listen = ":8080"
	}
	if result.OpenAI.TimeoutSeconds == 0 {
		result.OpenAI.TimeoutSeconds = 20
	}
	if result.Callback.TimeoutSeconds == 0 {
		result.Callback.TimeoutSeconds = 10
	}
	if result.Honeypot.ConfidenceThreshold == 0 {
		result.Honeypot.ConfidenceThreshold = 0.8
	}
	if result.Honeypot.MinTurns == 0 {
		result.Honeypot.MinTurns = 3
	}
	if result.Honeypot.FallbackReply == "" {
		result.Honeypot.FallbackReply = "Sorry, I was busy. Can you repeat that?"
	}

	applyEnvOverrides(&result)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

// Secrets may live in the environment instead of the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HONEYPOT_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("OPENAI_TOKEN"); v != "" {
		cfg.OpenAI.Token = v
	}
	if v := os.Getenv("CALLBACK_URL"); v != "" {
		cfg.Callback.URL = v
	}
}
