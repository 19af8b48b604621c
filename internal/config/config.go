package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string         `yaml:"env"`
	Port     string         `yaml:"port"`
	DB       DBConfig       `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Redis    RedisConfig    `yaml:"redis"`
	Google   GoogleConfig   `yaml:"google"`
	OTel     OTelConfig     `yaml:"otel"`
}

type DBConfig struct {
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type ScheduleConfig struct {
	// Timezone is the IANA location availability windows are expressed in.
	Timezone      string        `yaml:"timezone"`
	InvitationTTL time.Duration `yaml:"invitation_ttl"`
	SweepCron     string        `yaml:"sweep_cron"`
}

type RedisConfig struct {
	URL    string `yaml:"url"`
	Stream string `yaml:"stream"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

type OTelConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Headers        string `yaml:"headers"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
}

// Load builds the configuration from an optional YAML file (CONFIG_FILE) overlaid by
// environment variables. In development .env.server and .env are loaded first.
func Load() (Config, error) {
	if getEnv("APP_ENV", "development") == "development" {
		if err := godotenv.Load(".env.server"); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	var cfg Config
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.overrideWithEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) overrideWithEnv() {
	c.Env = getEnv("APP_ENV", c.Env)
	c.Port = getEnv("PORT", c.Port)

	c.DB.DSN = getEnv("DATABASE_URL", c.DB.DSN)
	c.DB.MaxConns = getEnvInt32("DB_MAX_CONNS", c.DB.MaxConns)
	c.DB.MinConns = getEnvInt32("DB_MIN_CONNS", c.DB.MinConns)
	c.DB.StatementTimeout = getEnvDuration("DB_STATEMENT_TIMEOUT", c.DB.StatementTimeout)

	c.JWT.Secret = getEnv("JWT_HMAC_SECRET", c.JWT.Secret)

	c.Schedule.Timezone = getEnv("SCHEDULE_TIMEZONE", c.Schedule.Timezone)
	c.Schedule.InvitationTTL = getEnvDuration("INVITATION_TTL", c.Schedule.InvitationTTL)
	c.Schedule.SweepCron = getEnv("INVITATION_SWEEP_CRON", c.Schedule.SweepCron)

	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Redis.Stream = getEnv("REDIS_STREAM", c.Redis.Stream)

	c.Google.ClientID = getEnv("GOOGLE_CLIENT_ID", c.Google.ClientID)
	c.Google.ClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.Google.ClientSecret)
	c.Google.RedirectURL = getEnv("GOOGLE_REDIRECT_URL", c.Google.RedirectURL)

	c.OTel.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTel.Endpoint)
	c.OTel.Headers = getEnv("OTEL_EXPORTER_OTLP_HEADERS", c.OTel.Headers)
	c.OTel.ServiceName = getEnv("OTEL_SERVICE_NAME", c.OTel.ServiceName)
	c.OTel.ServiceVersion = getEnv("OTEL_SERVICE_VERSION", c.OTel.ServiceVersion)
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.DB.MaxConns <= 0 {
		c.DB.MaxConns = 10
	}
	if c.DB.MinConns <= 0 {
		c.DB.MinConns = 2
	}
	if c.DB.StatementTimeout <= 0 {
		c.DB.StatementTimeout = 5 * time.Second
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "UTC"
	}
	if c.Schedule.InvitationTTL <= 0 {
		c.Schedule.InvitationTTL = 14 * 24 * time.Hour
	}
	if c.Schedule.SweepCron == "" {
		c.Schedule.SweepCron = "0 */15 * * * *"
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "interview_events"
	}
	if c.OTel.ServiceName == "" {
		c.OTel.ServiceName = "interview-scheduler"
	}
	if c.OTel.ServiceVersion == "" {
		c.OTel.ServiceVersion = "dev"
	}
}

// Validate checks required settings. It does not apply defaults.
func (c Config) Validate() error {
	if c.DB.DSN == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT_HMAC_SECRET is required")
	}
	if c.IsProduction() && len(c.JWT.Secret) < 32 {
		return errors.New("JWT_HMAC_SECRET must be at least 32 characters in production")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid SCHEDULE_TIMEZONE %q: %w", c.Schedule.Timezone, err)
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("invalid port: %s", c.Port)
	}
	return nil
}

// Location returns the schedule timezone. Validate guarantees it loads.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

func (c GoogleConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return fallback
	}
	return int32(n)
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
