package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the storefront service.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID   string
	Environment string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string
	MaxDBConns  int32

	DownloadSecret  string
	DownloadLinkTTL time.Duration

	PaystackSecretKey string
	PaystackBaseURL   string
	GatewayTimeout    time.Duration

	SupabaseURL        string
	SupabaseServiceKey string
	StorageBucket      string
	FilesDir           string

	ResendAPIKey    string
	ResendFromEmail string
	SenderName      string
	AdminEmails     []string

	BrevoAPIKey  string
	BrevoListIDs []int64

	AnalyticsKey         string
	WebhookNotifications bool

	CheckoutRateLimit int
	RateLimitWindow   time.Duration
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID          string `yaml:"id"`
		Environment string `yaml:"environment"`
		HTTPPort    int    `yaml:"http_port"`
		GRPCPort    int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Downloads struct {
		LinkTTLHours int    `yaml:"link_ttl_hours"`
		FilesDir     string `yaml:"files_dir"`
		Bucket       string `yaml:"bucket"`
	} `yaml:"downloads"`
	Email struct {
		FromEmail  string   `yaml:"from_email"`
		SenderName string   `yaml:"sender_name"`
		Admins     []string `yaml:"admins"`
	} `yaml:"email"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:         "storefront-service",
		Environment:       "development",
		HTTPPort:          8080,
		GRPCPort:          9090,
		MaxDBConns:        20,
		DownloadLinkTTL:   24 * time.Hour,
		PaystackBaseURL:   "https://api.paystack.co",
		GatewayTimeout:    10 * time.Second,
		StorageBucket:     "books",
		FilesDir:          "files",
		CheckoutRateLimit: 20,
		RateLimitWindow:   time.Minute,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.Environment != "" {
			cfg.Environment = f.Service.Environment
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Downloads.LinkTTLHours > 0 {
			cfg.DownloadLinkTTL = time.Duration(f.Downloads.LinkTTLHours) * time.Hour
		}
		if f.Downloads.FilesDir != "" {
			cfg.FilesDir = f.Downloads.FilesDir
		}
		if f.Downloads.Bucket != "" {
			cfg.StorageBucket = f.Downloads.Bucket
		}
		if f.Email.FromEmail != "" {
			cfg.ResendFromEmail = f.Email.FromEmail
		}
		if f.Email.SenderName != "" {
			cfg.SenderName = f.Email.SenderName
		}
		if len(f.Email.Admins) > 0 {
			cfg.AdminEmails = f.Email.Admins
		}
	}

	cfg.Environment = strings.ToLower(envOrDefault("APP_ENV", envOrDefault("NODE_ENV", cfg.Environment)))
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.DownloadSecret = envOrDefault("DOWNLOAD_SECRET", cfg.DownloadSecret)
	cfg.DownloadLinkTTL = time.Duration(envInt("DOWNLOAD_LINK_TTL_HOURS", int(cfg.DownloadLinkTTL.Hours()))) * time.Hour

	cfg.PaystackSecretKey = envOrDefault("PAYSTACK_SECRET_KEY", cfg.PaystackSecretKey)
	cfg.PaystackBaseURL = envOrDefault("PAYSTACK_BASE_URL", cfg.PaystackBaseURL)
	cfg.GatewayTimeout = time.Duration(envInt("GATEWAY_TIMEOUT_SECONDS", int(cfg.GatewayTimeout.Seconds()))) * time.Second

	cfg.SupabaseURL = envOrDefault("SUPABASE_URL", cfg.SupabaseURL)
	cfg.SupabaseServiceKey = envOrDefault("SUPABASE_SERVICE_ROLE_KEY", cfg.SupabaseServiceKey)
	cfg.StorageBucket = envOrDefault("STORAGE_BUCKET", cfg.StorageBucket)
	cfg.FilesDir = envOrDefault("FILES_DIR", cfg.FilesDir)

	cfg.ResendAPIKey = envOrDefault("RESEND_API_KEY", cfg.ResendAPIKey)
	cfg.ResendFromEmail = envOrDefault("RESEND_FROM_EMAIL", cfg.ResendFromEmail)
	cfg.SenderName = envOrDefault("RESEND_SENDER_NAME", cfg.SenderName)
	cfg.AdminEmails = envCSV("ADMIN_EMAILS", cfg.AdminEmails)

	cfg.BrevoAPIKey = envOrDefault("BREVO_API_KEY", cfg.BrevoAPIKey)
	cfg.BrevoListIDs = envInt64CSV("BREVO_LIST_IDS", cfg.BrevoListIDs)

	cfg.AnalyticsKey = envOrDefault("ANALYTICS_KEY", cfg.AnalyticsKey)
	cfg.WebhookNotifications = envBool("WEBHOOK_NOTIFICATIONS_ENABLED", cfg.WebhookNotifications)

	cfg.CheckoutRateLimit = envInt("CHECKOUT_RATE_LIMIT", cfg.CheckoutRateLimit)
	cfg.RateLimitWindow = time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", int(cfg.RateLimitWindow.Seconds()))) * time.Second

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate enforces the credentials production cannot run without. Development
// is allowed to start degraded so the site can be worked on offline.
func (c Config) validate() error {
	if c.Environment == "development" {
		return nil
	}
	if c.DownloadSecret == "" {
		return fmt.Errorf("missing DOWNLOAD_SECRET")
	}
	if c.PaystackSecretKey == "" {
		return fmt.Errorf("missing PAYSTACK_SECRET_KEY")
	}
	return nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// envCSV splits a comma-separated env var, trimming blanks.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envInt64CSV(name string, fallback []int64) []int64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
