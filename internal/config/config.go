package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultSendURL       = "https://view.roambee.com/services/command/send_commands"
	defaultStatusBaseURL = "https://view.roambee.com/services/v2/autocrud/bee_commands"
)

// Config holds everything main wires together. Env vars fill the defaults;
// a YAML file named by BEE_CONSOLE_CONFIG overrides them.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	APIKey        string `yaml:"api_key"`
	SendURL       string `yaml:"send_url"`
	StatusBaseURL string `yaml:"status_base_url"`

	BatchSize      int           `yaml:"batch_size"`
	RequestsPerSec int           `yaml:"requests_per_sec"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	UploadDir string `yaml:"upload_dir"`

	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

// Load assembles configuration from env vars plus the optional YAML overlay.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:       getenvDefault("HTTP_ADDR", ":8080"),
		APIKey:         os.Getenv("ROAMBEE_API_KEY"),
		SendURL:        getenvDefault("ROAMBEE_SEND_URL", defaultSendURL),
		StatusBaseURL:  getenvDefault("ROAMBEE_STATUS_BASE_URL", defaultStatusBaseURL),
		BatchSize:      getenvIntDefault("BATCH_SIZE", 200),
		RequestsPerSec: getenvIntDefault("REQUESTS_PER_SEC", 4),
		RequestTimeout: getenvDuration("REQUEST_TIMEOUT", 30*time.Second),
		UploadDir:      getenvDefault("UPLOAD_DIR", "var/uploads"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		SessionTTL:     getenvDuration("SESSION_TTL", time.Hour),
	}

	if path := os.Getenv("BEE_CONSOLE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.APIKey == "" {
		return cfg, errors.New("config: ROAMBEE_API_KEY required")
	}
	if cfg.SessionSecret == "" {
		return cfg, errors.New("config: SESSION_SECRET required")
	}
	if cfg.BatchSize <= 0 {
		return cfg, errors.New("config: batch size must be positive")
	}
	if cfg.RequestsPerSec <= 0 {
		return cfg, errors.New("config: request rate must be positive")
	}
	return cfg, nil
}

// BatchDelay converts the request rate into the pause between consecutive
// batch calls.
func (c Config) BatchDelay() time.Duration {
	return time.Second / time.Duration(c.RequestsPerSec)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
