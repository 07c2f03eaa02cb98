package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ulule/limiter/v3"
	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

type Config struct {
	Addr           string        `yaml:"addr"`
	JWTSecret      string        `yaml:"jwt_secret"`
	APITimeout     time.Duration `yaml:"timeout"`
	DatabasePath   string        `yaml:"database_path"`
	TokenDuration  time.Duration `yaml:"token_duration"`
	FreeInterviews int           `yaml:"free_interviews"`
	// AdminEmails may manage prompt templates and schemas.
	AdminEmails []string `yaml:"admin_emails"`
	// RateLimit bounds sign-up and sign-in attempts per client IP, in
	// limiter notation such as "30-M". Empty disables it.
	RateLimit    string        `yaml:"rate_limit"`
	Webhook      WebhookConfig `yaml:"webhook"`
	EngineConfig EngineConfig  `yaml:"engine"`
	Ollama       OllamaConfig  `yaml:"ollama"`
	Gemini       GeminiConfig  `yaml:"gemini"`
	Voice        VoiceConfig   `yaml:"voice"`
}

// WebhookConfig configures verification of voice-platform callbacks.
type WebhookConfig struct {
	Secret    string        `yaml:"secret"`
	Tolerance time.Duration `yaml:"tolerance"`
}

type EngineConfig struct {
	// Provider selects the text generation backend: "ollama" or "gemini".
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
	// QuestionType is the behavioural/technical mix asked for when a
	// request does not name one.
	QuestionType    string `yaml:"question_type"`
	TemplateVersion string `yaml:"template_version"`
}

type OllamaConfig struct {
	BaseURL                 string        `yaml:"base_url"`
	Timeout                 time.Duration `yaml:"timeout"`
	Retries                 int           `yaml:"retries"`
	Backoff                 time.Duration `yaml:"backoff"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// VoiceConfig holds the realtime voice platform settings. Agent ids are
// opaque strings handed to the browser client.
type VoiceConfig struct {
	APIKey           string        `yaml:"api_key"`
	SessionURL       string        `yaml:"session_url"`
	Model            string        `yaml:"model"`
	Timeout          time.Duration `yaml:"timeout"`
	QuestionAgentID  string        `yaml:"question_agent_id"`
	InterviewAgentID string        `yaml:"interview_agent_id"`
}

func LoadConfig(path string) (*Config, error) {
	apiTimeout := 15 * time.Second
	tokenDuration := 1 * time.Hour

	cfg := &Config{
		Addr:           getEnv("PREPWISE_ADDR", ":8080"),
		JWTSecret:      getEnv("PREPWISE_JWT_SECRET", insecureJWTSecret),
		APITimeout:     apiTimeout,
		DatabasePath:   getEnv("PREPWISE_DATABASE_PATH", "prepwise.db"),
		TokenDuration:  tokenDuration,
		FreeInterviews: getEnvInt("PREPWISE_FREE_INTERVIEWS", 3),
		AdminEmails:    getEnvList("PREPWISE_ADMIN_EMAILS"),
		RateLimit:      getEnv("PREPWISE_RATE_LIMIT", "30-M"),
		Webhook: WebhookConfig{
			Secret:    os.Getenv("PREPWISE_WEBHOOK_SECRET"),
			Tolerance: 30 * time.Minute,
		},
		EngineConfig: EngineConfig{
			Provider: getEnv("PREPWISE_ENGINE_PROVIDER", "ollama"),
			Model:    os.Getenv("PREPWISE_ENGINE_MODEL"),
		},
		Ollama: OllamaConfig{
			BaseURL: getEnv("PREPWISE_OLLAMA_URL", "http://localhost:11434"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("PREPWISE_GEMINI_API_KEY"),
		},
		Voice: VoiceConfig{
			APIKey:           os.Getenv("PREPWISE_VOICE_API_KEY"),
			QuestionAgentID:  os.Getenv("PREPWISE_QUESTION_AGENT_ID"),
			InterviewAgentID: os.Getenv("PREPWISE_INTERVIEW_AGENT_ID"),
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks required settings and fills in defaults for the
// optional sub-configurations.
func (c *Config) Validate() error {
	dev := c.Development()

	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if c.JWTSecret == insecureJWTSecret && !dev {
		return errors.New("jwt_secret uses the insecure default; set PREPWISE_JWT_SECRET")
	}
	if c.Webhook.Secret == "" && !dev {
		return errors.New("webhook.secret is required")
	}
	if c.Webhook.Tolerance <= 0 {
		c.Webhook.Tolerance = 30 * time.Minute
	}
	if c.FreeInterviews < 0 {
		return errors.New("free_interviews must not be negative")
	}
	if c.RateLimit != "" {
		if _, err := limiter.NewRateFromFormatted(c.RateLimit); err != nil {
			return fmt.Errorf("rate_limit: %w", err)
		}
	}

	switch c.EngineConfig.Provider {
	case "":
		c.EngineConfig.Provider = "ollama"
	case "ollama", "gemini":
	default:
		return errors.New("engine.provider must be ollama or gemini")
	}
	if c.EngineConfig.Model == "" {
		return errors.New("engine.model is required")
	}
	if c.EngineConfig.Timeout <= 0 {
		c.EngineConfig.Timeout = 60 * time.Second
	}
	if c.EngineConfig.QuestionType == "" {
		c.EngineConfig.QuestionType = "mixed (behavioural and technical)"
	}
	if c.EngineConfig.TemplateVersion == "" {
		c.EngineConfig.TemplateVersion = "v1"
	}
	if c.EngineConfig.Provider == "gemini" && c.Gemini.APIKey == "" {
		return errors.New("gemini.api_key is required when engine.provider is gemini")
	}

	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.Ollama.Timeout <= 0 {
		c.Ollama.Timeout = 60 * time.Second
	}
	if c.Ollama.Retries == 0 {
		c.Ollama.Retries = 2
	}
	if c.Ollama.Backoff <= 0 {
		c.Ollama.Backoff = 500 * time.Millisecond
	}
	if c.Ollama.CircuitFailureThreshold <= 0 {
		c.Ollama.CircuitFailureThreshold = 5
	}
	if c.Ollama.CircuitReset <= 0 {
		c.Ollama.CircuitReset = 30 * time.Second
	}

	if c.Voice.SessionURL == "" {
		c.Voice.SessionURL = "https://api.openai.com/v1/realtime/client_secrets"
	}
	if c.Voice.Model == "" {
		c.Voice.Model = "gpt-realtime"
	}
	if c.Voice.Timeout <= 0 {
		c.Voice.Timeout = 10 * time.Second
	}

	return nil
}

// Development reports whether PREPWISE_ENV selects the development mode.
func (c *Config) Development() bool {
	return os.Getenv("PREPWISE_ENV") == "development"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return def
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
