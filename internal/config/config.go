package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"tripvera/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Booking    BookingConfig    `yaml:"booking"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Notify     NotifyConfig     `yaml:"notify"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type GatewayConfig struct {
	Port                 int             `yaml:"port"`
	CookieDomain         string          `yaml:"cookie_domain"`
	CookieSecure         bool            `yaml:"cookie_secure"`
	AllowedOrigins       []string        `yaml:"allowed_origins"`
	SessionCookie        string          `yaml:"session_cookie"`
	RateLimit            RateLimitConfig `yaml:"rate_limit"`
	RefreshLeewaySeconds int             `yaml:"refresh_leeway_seconds"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type UpstreamConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type BookingConfig struct {
	SelectionTTLSeconds    int `yaml:"selection_ttl_seconds"`
	AvailabilityTTLSeconds int `yaml:"availability_ttl_seconds"`
	RecentViewedCap        int `yaml:"recent_viewed_cap"`
	RecentViewedExpiryDays int `yaml:"recent_viewed_expiry_days"`
	RateLimitSubmits       int `yaml:"rate_limit_submits"`
	RateLimitWindowSeconds int `yaml:"rate_limit_window_seconds"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type NotifyConfig struct {
	Enabled       bool   `yaml:"enabled"`
	MailerSendKey string `yaml:"mailersend_key"`
	FromName      string `yaml:"from_name"`
	FromEmail     string `yaml:"from_email"`
	DevMode       bool   `yaml:"dev_mode"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	CredentialsFile           string `yaml:"credentials_file"`
	ReservationsSpreadsheetID string `yaml:"reservations_spreadsheet_id"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; config values reference it via ${VAR}
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return errors.New("upstream base_url is required")
	}
	if _, err := url.ParseRequestURI(c.Upstream.BaseURL); err != nil {
		return fmt.Errorf("upstream base_url is invalid: %w", err)
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Notify.Enabled && !c.Notify.DevMode {
		if c.Notify.MailerSendKey == "" || c.Notify.FromEmail == "" {
			return errors.New("notify requires mailersend_key and from_email unless dev_mode is set")
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Gateway.Port == 0 {
		c.Gateway.Port = 8080
	}
	if c.Gateway.SessionCookie == "" {
		c.Gateway.SessionCookie = "sessionId"
	}
	if c.Gateway.RefreshLeewaySeconds == 0 {
		c.Gateway.RefreshLeewaySeconds = 30
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 10
	}

	// Booking defaults
	if c.Booking.SelectionTTLSeconds == 0 {
		c.Booking.SelectionTTLSeconds = models.DefaultSelectionTTL
	}
	if c.Booking.AvailabilityTTLSeconds == 0 {
		c.Booking.AvailabilityTTLSeconds = models.AvailabilityCacheTTL
	}
	if c.Booking.RecentViewedCap == 0 {
		c.Booking.RecentViewedCap = models.RecentViewedCap
	}
	if c.Booking.RecentViewedExpiryDays == 0 {
		c.Booking.RecentViewedExpiryDays = models.RecentViewedExpiryDays
	}
	if c.Booking.RateLimitSubmits == 0 {
		c.Booking.RateLimitSubmits = models.RateLimitSubmits
	}
	if c.Booking.RateLimitWindowSeconds == 0 {
		c.Booking.RateLimitWindowSeconds = models.RateLimitWindow
	}
}
