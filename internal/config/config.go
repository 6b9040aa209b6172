// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	PublicURL       string        `yaml:"public_url"` // used for OAuth callback
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"` // REST handlers only; sockets are exempt
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"` // websocket origins; empty = any
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL     string `yaml:"url"`
	Migrate bool   `yaml:"migrate"` // run embedded migrations on boot
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	GeminiKey       string        `yaml:"gemini_key"`
	OpenAIKey       string        `yaml:"openai_key"`
	ChatModel       string        `yaml:"chat_model"`
	TTSModel        string        `yaml:"tts_model"`
	ScoringModel    string        `yaml:"scoring_model"`
	LiveModel       string        `yaml:"live_model"`
	LiveInstruction string        `yaml:"live_instruction"`
	DefaultVoice    string        `yaml:"default_voice"`
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max concurrent AI calls
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

type AuthConfig struct {
	AccessSecret    string        `yaml:"access_secret"`
	RefreshSecret   string        `yaml:"refresh_secret"`
	AccessTTL       time.Duration `yaml:"access_ttl"`
	RefreshTTL      time.Duration `yaml:"refresh_ttl"`
	VerificationTTL time.Duration `yaml:"verification_ttl"`
	BcryptCost      int           `yaml:"bcrypt_cost"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenInfoURL string `yaml:"tokeninfo_url"`
}

type MailConfig struct {
	Host     string `yaml:"host"` // empty = log only
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	Workers  int    `yaml:"workers"`
}

type UploadsConfig struct {
	Dir string `yaml:"dir"`
}

type PromptsConfig struct {
	Dir string `yaml:"dir"` // optional override for embedded prompt templates
}

type RealtimeConfig struct {
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	MaxFrameSize int64         `yaml:"max_frame_size"`
	PongWait     time.Duration `yaml:"pong_wait"`
}

type SchedulerConfig struct {
	VerificationSweepInterval time.Duration `yaml:"verification_sweep_interval"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

type RateLimitConfig struct {
	AuthPerMinute int `yaml:"auth_per_minute"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AI        AIConfig        `yaml:"ai"`
	Auth      AuthConfig      `yaml:"auth"`
	Google    GoogleConfig    `yaml:"google"`
	Mail      MailConfig      `yaml:"mail"`
	Uploads   UploadsConfig   `yaml:"uploads"`
	Prompts   PromptsConfig   `yaml:"prompts"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Security  SecurityConfig  `yaml:"security"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the yaml file at path, expanding ${VAR} references from the environment.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes raw yaml, applies defaults and validates required keys.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Auth.AccessSecret == "" || cfg.Auth.RefreshSecret == "" {
		return nil, errors.New("auth.access_secret and auth.refresh_secret are required")
	}
	if cfg.Auth.AccessSecret == cfg.Auth.RefreshSecret {
		return nil, errors.New("auth.refresh_secret must differ from auth.access_secret")
	}
	if cfg.AI.GeminiKey == "" {
		return nil, errors.New("ai.gemini_key is required")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3000"
	}
	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = "http://localhost:3000"
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 9090
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.AI.ChatModel == "" {
		cfg.AI.ChatModel = "gemini-2.5-flash"
	}
	if cfg.AI.TTSModel == "" {
		cfg.AI.TTSModel = "gemini-2.5-flash-preview-tts"
	}
	if cfg.AI.ScoringModel == "" {
		cfg.AI.ScoringModel = "gemini-2.5-flash"
	}
	if cfg.AI.LiveModel == "" {
		cfg.AI.LiveModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	}
	if cfg.AI.LiveInstruction == "" {
		cfg.AI.LiveInstruction = "You are a helpful assistant and answer in a friendly tone."
	}
	if cfg.AI.DefaultVoice == "" {
		cfg.AI.DefaultVoice = "Kore"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.RequestTimeout <= 0 {
		cfg.AI.RequestTimeout = 30 * time.Second
	}

	if cfg.Auth.AccessTTL <= 0 {
		cfg.Auth.AccessTTL = 10 * time.Minute
	}
	if cfg.Auth.RefreshTTL <= 0 {
		cfg.Auth.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.Auth.VerificationTTL <= 0 {
		cfg.Auth.VerificationTTL = 5 * time.Minute
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = 10
	}
	if cfg.Google.TokenInfoURL == "" {
		cfg.Google.TokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Mail.Workers <= 0 {
		cfg.Mail.Workers = 2
	}
	if cfg.Uploads.Dir == "" {
		cfg.Uploads.Dir = "uploads"
	}
	if cfg.Realtime.IdleTimeout <= 0 {
		cfg.Realtime.IdleTimeout = 3 * time.Minute
	}
	if cfg.Realtime.PongWait <= 0 {
		cfg.Realtime.PongWait = 60 * time.Second
	}
	if cfg.Realtime.MaxFrameSize <= 0 {
		cfg.Realtime.MaxFrameSize = 16 << 20
	}
	if cfg.Scheduler.VerificationSweepInterval <= 0 {
		cfg.Scheduler.VerificationSweepInterval = time.Minute
	}
	if cfg.RateLimit.AuthPerMinute <= 0 {
		cfg.RateLimit.AuthPerMinute = 20
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
