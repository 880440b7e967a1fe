package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	HTTPAddr string `env:"FOLIO_HTTP_ADDR" env-default:":8080"`
	GRPCAddr string `env:"FOLIO_GRPC_ADDR"` // empty disables the gRPC health endpoint

	Env      string `env:"FOLIO_ENV" env-default:"dev"` // "dev" | "prod"
	LogLevel string `env:"FOLIO_LOG_LEVEL" env-default:"info"`

	// Row store
	Store         string `env:"FOLIO_STORE" env-default:"sqlite"` // "sqlite" | "memory"
	DataDir       string `env:"FOLIO_DATA_DIR" env-default:"./data"`
	SpreadsheetID string `env:"FOLIO_SPREADSHEET_ID" env-default:"portfolio"`

	AdminEmail string `env:"FOLIO_ADMIN_EMAIL"`
	ResumeURL  string `env:"FOLIO_RESUME_URL"`
	WebhookURL string `env:"FOLIO_WEBHOOK_URL" env-default:"http://localhost:8080/"`

	// Outbound email
	SendgridAPIKey  string `env:"FOLIO_SENDGRID_API_KEY"`
	SendgridSandbox bool   `env:"FOLIO_SENDGRID_SANDBOX"`
	FromEmail       string `env:"FOLIO_FROM_EMAIL"`
	SenderName      string `env:"FOLIO_SENDER_NAME" env-default:"Portfolio"`

	// Daily report
	ReportSchedule string        `env:"FOLIO_REPORT_SCHEDULE" env-default:"0 9 * * *"`
	ReportTimezone string        `env:"FOLIO_REPORT_TIMEZONE" env-default:"UTC"`
	ReportTimeout  time.Duration `env:"FOLIO_REPORT_TIMEOUT" env-default:"30s"`

	AllowedOrigins []string `env:"FOLIO_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`

	// TrustedProxies lists the addresses or CIDRs of reverse proxies whose
	// X-Forwarded-For header may name the client. Empty trusts nobody.
	TrustedProxies []string `env:"FOLIO_TRUSTED_PROXIES" env-separator:","`

	// Rate limiting (disabled when RedisAddr is empty)
	RedisAddr           string        `env:"FOLIO_REDIS_ADDR"`
	RedisPassword       string        `env:"FOLIO_REDIS_PASSWORD"`
	RateLimitCapacity   int           `env:"FOLIO_RATE_LIMIT_CAPACITY" env-default:"10"`
	RateLimitRefillEach time.Duration `env:"FOLIO_RATE_LIMIT_REFILL_EVERY" env-default:"1m"`

	MetricsEnabled bool `env:"FOLIO_METRICS_ENABLED" env-default:"true"`
}

// FromEnv reads the configuration from the process environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env != "dev" && c.Env != "prod" {
		// fail-soft: treat unknown as dev
		c.Env = "dev"
	}

	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	if c.Store != "memory" {
		c.Store = "sqlite"
	}

	c.SpreadsheetID = strings.TrimSpace(c.SpreadsheetID)
	if c.SpreadsheetID == "" {
		c.SpreadsheetID = "portfolio"
	}

	c.AllowedOrigins = trimAll(c.AllowedOrigins)
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	c.TrustedProxies = trimAll(c.TrustedProxies)

	if c.RateLimitCapacity < 1 {
		c.RateLimitCapacity = 1
	}
	if c.RateLimitRefillEach <= 0 {
		c.RateLimitRefillEach = time.Minute
	}
	if c.ReportTimeout <= 0 {
		c.ReportTimeout = 30 * time.Second
	}
}

// DBPath is the sqlite file backing the row store. The spreadsheet id names
// the database so several portfolios can share a data directory.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, c.SpreadsheetID+".db")
}

// ReportLocation resolves ReportTimezone, falling back to UTC.
func (c Config) ReportLocation() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(c.ReportTimezone))
	if err != nil || c.ReportTimezone == "" {
		return time.UTC
	}
	return loc
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
