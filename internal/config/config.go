// Package config assembles runtime settings from defaults, an optional YAML
// file, a .env file and the process environment, in that order. Command-line
// flags are applied on top by the cmd package.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"

	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

type Config struct {
	Addr    string `yaml:"addr"`
	Debug   bool   `yaml:"debug"`
	DataDir string `yaml:"data_dir"`

	Store      string `yaml:"store"`
	UsersFile  string `yaml:"users_file"`
	SQLitePath string `yaml:"sqlite_path"`
	ReportDir  string `yaml:"report_dir"`
	FontPath   string `yaml:"font_path"`

	LLMProvider  string        `yaml:"llm_provider"`
	LLMTimeout   time.Duration `yaml:"llm_timeout"`
	GroqAPIKey   string        `yaml:"groq_api_key"`
	GroqBaseURL  string        `yaml:"groq_base_url"`
	GroqModel    string        `yaml:"groq_model"`
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	GeminiModel  string        `yaml:"gemini_model"`

	JWTSecret     string        `yaml:"jwt_secret"`
	TokenValidity time.Duration `yaml:"token_validity"`

	SignupInviteCode   string   `yaml:"signup_invite_code"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
	RateLimitBurst     int      `yaml:"rate_limit_burst"`
	CORSOrigins        []string `yaml:"cors_origins"`

	VoiceEnabled      bool   `yaml:"voice_enabled"`
	GoogleCredentials string `yaml:"google_credentials"`
	VoiceLanguage     string `yaml:"voice_language"`
}

const defaultJWTSecret = "default_secret_key"

func Default() *Config {
	return &Config{
		Addr:               ":8080",
		DataDir:            "data",
		Store:              StoreJSON,
		LLMProvider:        ProviderGroq,
		LLMTimeout:         60 * time.Second,
		JWTSecret:          defaultJWTSecret,
		TokenValidity:      24 * time.Hour,
		RateLimitPerMinute: 30,
		RateLimitBurst:     10,
		VoiceLanguage:      "en-US",
	}
}

// Load builds the configuration. configFile may be empty.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", configFile, err)
		}
	}

	// .env는 선택 사항
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Addr, "CUTETUTOR_ADDR")
	setString(&c.DataDir, "CUTETUTOR_DATA_DIR")
	setString(&c.Store, "CUTETUTOR_STORE")
	setString(&c.UsersFile, "CUTETUTOR_USERS_FILE")
	setString(&c.SQLitePath, "CUTETUTOR_SQLITE_PATH")
	setString(&c.ReportDir, "CUTETUTOR_REPORT_DIR")
	setString(&c.FontPath, "CUTETUTOR_FONT_PATH")
	setString(&c.LLMProvider, "CUTETUTOR_LLM_PROVIDER")
	setString(&c.GroqAPIKey, "GROQ_API_KEY")
	setString(&c.GroqBaseURL, "GROQ_BASE_URL")
	setString(&c.GroqModel, "GROQ_MODEL")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.GeminiModel, "GEMINI_MODEL")
	setString(&c.JWTSecret, "JWT_SECRET_KEY")
	setString(&c.SignupInviteCode, "SIGNUP_INVITE_CODE")
	setString(&c.GoogleCredentials, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&c.VoiceLanguage, "CUTETUTOR_VOICE_LANGUAGE")

	if v := os.Getenv("CUTETUTOR_CORS_ORIGINS"); v != "" {
		c.CORSOrigins = strings.Split(v, ",")
	}

	var err error
	if err = setBool(&c.Debug, "CUTETUTOR_DEBUG"); err != nil {
		return err
	}
	if err = setBool(&c.VoiceEnabled, "CUTETUTOR_VOICE_ENABLED"); err != nil {
		return err
	}
	if err = setDuration(&c.LLMTimeout, "CUTETUTOR_LLM_TIMEOUT"); err != nil {
		return err
	}
	if err = setDuration(&c.TokenValidity, "CUTETUTOR_TOKEN_VALIDITY"); err != nil {
		return err
	}
	if err = setInt(&c.RateLimitPerMinute, "CUTETUTOR_RATE_LIMIT_PER_MINUTE"); err != nil {
		return err
	}
	return setInt(&c.RateLimitBurst, "CUTETUTOR_RATE_LIMIT_BURST")
}

// Validate fills derived paths and checks enumerated settings.
func (c *Config) Validate() error {
	if err := c.ResolvePaths(); err != nil {
		return err
	}
	switch c.LLMProvider {
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			return errors.New("config: GROQ_API_KEY is required for the groq provider")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return errors.New("config: GEMINI_API_KEY is required for the gemini provider")
		}
	default:
		return fmt.Errorf("config: unknown llm provider %q", c.LLMProvider)
	}
	if c.TokenValidity <= 0 {
		return errors.New("config: token validity must be positive")
	}
	return nil
}

// ResolvePaths fills the storage paths left empty and checks the store kind.
// Offline commands that never reach the model only need this.
func (c *Config) ResolvePaths() error {
	if c.UsersFile == "" {
		c.UsersFile = filepath.Join(c.DataDir, "users.json")
	}
	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.DataDir, "users.db")
	}
	if c.ReportDir == "" {
		c.ReportDir = filepath.Join(c.DataDir, "reports")
	}

	switch c.Store {
	case StoreJSON, StoreSQLite:
	default:
		return fmt.Errorf("config: unknown store %q (want %q or %q)", c.Store, StoreJSON, StoreSQLite)
	}
	return nil
}

// InsecureSecret reports whether the JWT secret is still the built-in default.
func (c *Config) InsecureSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}
