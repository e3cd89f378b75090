package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Cache    CacheConfig    `toml:"cache"`
	Web      WebConfig      `toml:"web"`
	Instance InstanceConfig `toml:"instance"`
	Bunny    BunnyConfig    `toml:"bunny"`
	Mail     MailConfig     `toml:"mail"`
}

type DatabaseConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, sslmode)
}

type CacheConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

func (c CacheConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

type WebConfig struct {
	Addr        string `toml:"addr"`
	BackendURL  string `toml:"backend_url"`
	FrontendURL string `toml:"frontend_url"`
}

// CookiePath is the backend mount path refresh cookies are scoped to.
func (w WebConfig) CookiePath() string {
	u, err := url.Parse(w.BackendURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

type InstanceConfig struct {
	Name                     string  `toml:"name"`
	Registration             bool    `toml:"registration"`
	RequireEmailVerification bool    `toml:"require_email_verification"`
	InitialGuild             *string `toml:"initial_guild"`
	LogLevel                 string  `toml:"log_level"`
	Environment              string  `toml:"environment"`
}

type BunnyConfig struct {
	CDNURL      string `toml:"cdn_url"`
	APIKey      string `toml:"api_key"`
	StorageZone string `toml:"storage_zone"`
}

type MailConfig struct {
	SMTPServer string `toml:"smtp_server"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	TLS        string `toml:"tls"` // "tls" or "starttls"
	Mbox       string `toml:"mbox"`
}

// Load reads config.toml. A .env file, if present, is folded into the
// environment first; CONCORD_CONFIG overrides the file path.
func Load() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONCORD_CONFIG")
	if path == "" {
		path = "config.toml"
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Web.Addr == "" {
		cfg.Web.Addr = ":8080"
	}
	if cfg.Mail.TLS != "" && cfg.Mail.TLS != "tls" && cfg.Mail.TLS != "starttls" {
		return nil, fmt.Errorf("parse config: mail.tls must be tls or starttls, got %q", cfg.Mail.TLS)
	}
	return &cfg, nil
}
