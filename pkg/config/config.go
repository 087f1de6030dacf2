package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Asset sources understood by the server.
const (
	AssetSourceDir = "dir"
	AssetSourceS3  = "s3"
)

// Config stores server runtime configuration.
type Config struct {
	ServerPort string
	LogLevel   string

	Server ServerConfig

	Site SiteConfig

	Admin AdminConfig

	RateLimit RateLimitConfig

	Watch WatchConfig

	Probe ProbeConfig

	LiveReload LiveReloadConfig

	S3 S3Config
}

// ServerConfig holds http.Server timeouts. Zero read and write timeouts
// leave request and response bodies unbounded.
type ServerConfig struct {
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

// SiteConfig describes where pages and static assets live.
type SiteConfig struct {
	Root        string
	StaticDir   string
	AssetSource string
}

// AdminConfig controls the ops listener serving health and metrics.
type AdminConfig struct {
	Enabled bool
	Port    string
}

// RateLimitConfig controls global and per-IP limits.
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type WatchConfig struct {
	Enabled bool
}

type ProbeConfig struct {
	RefreshInterval time.Duration
}

type LiveReloadConfig struct {
	Enabled        bool
	AllowedOrigins []string
}

// S3Config is used when assets are served from a bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
	RequestTimeout  time.Duration
}

// Load reads configuration from environment and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "3000"),
		LogLevel:   strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Server: ServerConfig{
			ReadHeaderTimeout: getEnvDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
			ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", 0),
			WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", 0),
			IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:   getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 20*time.Second),
		},
		Site: SiteConfig{
			Root:        getEnv("SITE_ROOT", ""),
			StaticDir:   strings.Trim(getEnv("STATIC_DIR", "docs"), "/"),
			AssetSource: strings.ToLower(getEnv("ASSET_SOURCE", AssetSourceDir)),
		},
		Admin: AdminConfig{
			Enabled: getEnvBool("ADMIN_ENABLED", true),
			Port:    getEnv("ADMIN_PORT", "9090"),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvBool("RATE_LIMIT_ENABLED", false),
			RPS:     getEnvFloat("RATE_LIMIT_RPS", 100),
			Burst:   getEnvInt("RATE_LIMIT_BURST", 200),
		},
		Watch: WatchConfig{
			Enabled: getEnvBool("WATCH_ENABLED", true),
		},
		Probe: ProbeConfig{
			RefreshInterval: getEnvDuration("PROBE_REFRESH_INTERVAL", 30*time.Second),
		},
		LiveReload: LiveReloadConfig{
			Enabled:        getEnvBool("LIVE_RELOAD_ENABLED", false),
			AllowedOrigins: splitCSV(getEnv("LIVE_RELOAD_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		},
		S3: S3Config{
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),
			KeyPrefix:       strings.Trim(getEnv("S3_KEY_PREFIX", ""), "/"),
			RequestTimeout:  getEnvDuration("S3_REQUEST_TIMEOUT", 5*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Site.AssetSource == AssetSourceDir {
		root, err := ResolveSiteRoot(cfg.Site.Root)
		if err != nil {
			return nil, err
		}
		cfg.Site.Root = root
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if err := validatePort("SERVER_PORT", c.ServerPort); err != nil {
		return err
	}
	if c.Admin.Enabled {
		if err := validatePort("ADMIN_PORT", c.Admin.Port); err != nil {
			return err
		}
		if c.Admin.Port == c.ServerPort {
			return fmt.Errorf("ADMIN_PORT must differ from SERVER_PORT")
		}
	}

	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("SERVER_READ_TIMEOUT and SERVER_WRITE_TIMEOUT must not be negative")
	}
	if c.Server.ReadHeaderTimeout <= 0 || c.Server.IdleTimeout <= 0 {
		return fmt.Errorf("SERVER_READ_HEADER_TIMEOUT and SERVER_IDLE_TIMEOUT must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if c.Site.StaticDir == "" || strings.Contains(c.Site.StaticDir, "..") {
		return fmt.Errorf("STATIC_DIR must be a relative directory inside the site root")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RPS <= 0 {
			return fmt.Errorf("RATE_LIMIT_RPS must be positive")
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("RATE_LIMIT_BURST must be positive")
		}
	}

	if c.Probe.RefreshInterval <= 0 {
		return fmt.Errorf("PROBE_REFRESH_INTERVAL must be positive")
	}

	switch c.Site.AssetSource {
	case AssetSourceDir:
	case AssetSourceS3:
		if strings.TrimSpace(c.S3.Bucket) == "" {
			return fmt.Errorf("ASSET_SOURCE=s3 requires S3_BUCKET")
		}
		if c.S3.RequestTimeout <= 0 {
			return fmt.Errorf("S3_REQUEST_TIMEOUT must be positive")
		}
	default:
		return fmt.Errorf("unsupported ASSET_SOURCE %q", c.Site.AssetSource)
	}

	return nil
}

// ResolveSiteRoot returns the absolute site root. An explicit value wins;
// otherwise the executable's directory is used unless it lacks index.html
// and the working directory has one.
func ResolveSiteRoot(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		root, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("resolve SITE_ROOT: %w", err)
		}
		return root, nil
	}

	exeDir, err := executableDir()
	if err != nil {
		return "", err
	}
	if hasIndexPage(exeDir) {
		return exeDir, nil
	}

	wd, err := os.Getwd()
	if err == nil && hasIndexPage(wd) {
		return wd, nil
	}

	return exeDir, nil
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

func hasIndexPage(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "index.html"))
	return err == nil && info.Mode().IsRegular()
}

func validatePort(key, value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%s must be a port number, got %q", key, value)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
