// Package config provides YAML-based configuration loading for the advocate
// service, with environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. ADVOCATE_DB_DSN.
const EnvPrefix = "ADVOCATE"

// Config is the top-level service configuration, loaded from advocate.yaml.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Auth          AuthConfig         `yaml:"auth"`
	Chat          ChatConfig         `yaml:"chat"`
	Notifications NotificationConfig `yaml:"notifications"`
	Storage       StorageConfig      `yaml:"storage"`
	OpsFeed       OpsFeedConfig      `yaml:"opsfeed"`
}

// ServerConfig holds the HTTP and websocket listener settings.
type ServerConfig struct {
	Host             string   `yaml:"host"`
	Port             int      `yaml:"port"`
	CORSOrigin       string   `yaml:"cors_origin"`
	WSAllowedOrigins []string `yaml:"ws_allowed_origins"`
}

// DatabaseConfig selects the SQL driver and its DSN.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// AuthConfig holds bearer-token settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// ChatConfig bounds message history pages.
type ChatConfig struct {
	HistoryPageSize int `yaml:"history_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// NotificationConfig controls read-notification retention.
type NotificationConfig struct {
	RetentionDays int    `yaml:"retention_days"`
	PurgeSchedule string `yaml:"purge_schedule"`
}

// StorageConfig locates uploaded document blobs.
type StorageConfig struct {
	UploadDir   string `yaml:"upload_dir"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// MaxUploadBytes returns the upload limit in bytes.
func (s StorageConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// OpsFeedConfig configures the optional operator channels.
type OpsFeedConfig struct {
	SlackToken     string `yaml:"slack_token"`
	SlackChannel   string `yaml:"slack_channel"`
	DiscordToken   string `yaml:"discord_token"`
	DiscordChannel string `yaml:"discord_channel"`
}

// Retention returns the notification retention window.
func (n NotificationConfig) Retention() time.Duration {
	return time.Duration(n.RetentionDays) * 24 * time.Hour
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// envOverrides mirrors the settings that may come from the environment.
// Zero values mean "not set".
type envOverrides struct {
	Host           string        `envconfig:"HOST"`
	Port           int           `envconfig:"PORT"`
	CORSOrigin     string        `envconfig:"CORS_ORIGIN"`
	DBDriver       string        `envconfig:"DB_DRIVER"`
	DBDSN          string        `envconfig:"DB_DSN"`
	JWTSecret      string        `envconfig:"JWT_SECRET"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL"`
	UploadDir      string        `envconfig:"UPLOAD_DIR"`
	SlackToken     string        `envconfig:"SLACK_TOKEN"`
	SlackChannel   string        `envconfig:"SLACK_CHANNEL"`
	DiscordToken   string        `envconfig:"DISCORD_TOKEN"`
	DiscordChannel string        `envconfig:"DISCORD_CHANNEL"`
}

// Load reads a YAML config file from path and returns a validated Config.
// An empty path builds the config from defaults and the environment alone.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes, applies environment overrides and defaults,
// and returns a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var ov envOverrides
	if err := envconfig.Process(EnvPrefix, &ov); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	setString(&c.Server.Host, ov.Host)
	if ov.Port != 0 {
		c.Server.Port = ov.Port
	}
	setString(&c.Server.CORSOrigin, ov.CORSOrigin)
	setString(&c.Database.Driver, ov.DBDriver)
	setString(&c.Database.DSN, ov.DBDSN)
	setString(&c.Auth.JWTSecret, ov.JWTSecret)
	if ov.TokenTTL != 0 {
		c.Auth.TokenTTL = ov.TokenTTL
	}
	setString(&c.Storage.UploadDir, ov.UploadDir)
	setString(&c.OpsFeed.SlackToken, ov.SlackToken)
	setString(&c.OpsFeed.SlackChannel, ov.SlackChannel)
	setString(&c.OpsFeed.DiscordToken, ov.DiscordToken)
	setString(&c.OpsFeed.DiscordChannel, ov.DiscordChannel)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// applyDefaults fills in default values.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.CORSOrigin == "" {
		c.Server.CORSOrigin = "*"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 7 * 24 * time.Hour
	}
	if c.Chat.HistoryPageSize == 0 {
		c.Chat.HistoryPageSize = 50
	}
	if c.Chat.MaxPageSize == 0 {
		c.Chat.MaxPageSize = 200
	}
	if c.Notifications.RetentionDays == 0 {
		c.Notifications.RetentionDays = 30
	}
	if c.Notifications.PurgeSchedule == "" {
		c.Notifications.PurgeSchedule = "0 3 * * *"
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = "./uploads"
	}
	if c.Storage.MaxUploadMB == 0 {
		c.Storage.MaxUploadMB = 100
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be mysql or sqlite", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, "auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL < 0 {
		errs = append(errs, "auth.token_ttl must be positive")
	}
	if c.Chat.HistoryPageSize < 0 || c.Chat.MaxPageSize < 0 {
		errs = append(errs, "chat page sizes must be positive")
	} else if c.Chat.HistoryPageSize > c.Chat.MaxPageSize {
		errs = append(errs, "chat.history_page_size exceeds chat.max_page_size")
	}
	if c.Notifications.RetentionDays < 0 {
		errs = append(errs, "notifications.retention_days must be positive")
	}
	if _, err := cron.ParseStandard(c.Notifications.PurgeSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("notifications.purge_schedule: %v", err))
	}
	if c.Storage.MaxUploadMB < 0 {
		errs = append(errs, "storage.max_upload_mb must be positive")
	}
	if (c.OpsFeed.SlackToken == "") != (c.OpsFeed.SlackChannel == "") {
		errs = append(errs, "opsfeed.slack_token and opsfeed.slack_channel must be set together")
	}
	if (c.OpsFeed.DiscordToken == "") != (c.OpsFeed.DiscordChannel == "") {
		errs = append(errs, "opsfeed.discord_token and opsfeed.discord_channel must be set together")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
