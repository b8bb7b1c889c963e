package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix namespaces every environment variable read by the service.
const Prefix = "NOTICEBOARD_"

const redacted = "***REDACTED***"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
)

type Config struct {
	ListenPort      string        `env:"LISTEN_PORT"      envDefault:":5001"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"` // "debug" | "info" | "warn" | "error"
	PrettyLog bool   `env:"PRETTY_LOG" envDefault:"true"` // true => zap dev (color), false => zap prod (JSON)

	StoreBackend string `env:"STORE_BACKEND" envDefault:"bolt"`
	StorePath    string `env:"STORE_PATH"    envDefault:"data/noticeboard.db"` // file or bolt database path

	Redis Redis `envPrefix:"REDIS_"`

	UploadDir      string `env:"UPLOAD_DIR"       envDefault:"uploads"`
	UploadMaxBytes int64  `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`

	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	JWTSecret     string        `env:"JWT_SECRET"`
	TokenTTL      time.Duration `env:"TOKEN_TTL"      envDefault:"12h"`
	AuthRequired  bool          `env:"AUTH_REQUIRED"  envDefault:"false"` // false => mutations accept an explicit userEmail
	AdminEmail    string        `env:"ADMIN_EMAIL"    envDefault:"admin@noticeboard.com"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`

	CategorySeedFile string `env:"CATEGORY_SEED_FILE"` // optional yaml list of category names
	WindowCheckSpec  string `env:"WINDOW_CHECK_SPEC"  envDefault:"@every 30s"`

	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS"   envDefault:"20"` // 0 disables rate limiting
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"40"`
	AllowedCIDRS   []string `env:"ALLOWED_CIDRS"    envSeparator:","` // restricts /metrics and /infra
	AllowedHosts   []string `env:"ALLOWED_HOSTS"    envSeparator:","` // Host headers accepted on /metrics and /infra
	TrustProxy     bool     `env:"TRUST_PROXY"      envDefault:"false"`

	SSEHeartbeat     time.Duration `env:"SSE_HEARTBEAT"     envDefault:"30s"`
	SubscriberBuffer int           `env:"SUBSCRIBER_BUFFER" envDefault:"64"`
	RelayChannel     string        `env:"RELAY_CHANNEL"     envDefault:"noticeboard:events"`
}

type Redis struct {
	Addr           string        `env:"ADDR"` // ex: "localhost:6379"
	User           string        `env:"USERNAME"`
	Password       string        `env:"PASSWORD"`
	DB             int           `env:"DB"              envDefault:"0"`
	KeyPrefix      string        `env:"KEY_PREFIX"      envDefault:"noticeboard:"`
	DialTimeout    time.Duration `env:"DIAL_TIMEOUT"    envDefault:"5s"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT"    envDefault:"3s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT"   envDefault:"3s"`
	PoolSize       int           `env:"POOL_SIZE"       envDefault:"10"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"30s"` // total time to retry connecting
	RetryInterval  time.Duration `env:"RETRY_INTERVAL"  envDefault:"2s"`  // grows exponentially
	MaxWait        time.Duration `env:"MAX_WAIT"        envDefault:"10s"`
	PingTimeout    time.Duration `env:"PING_TIMEOUT"    envDefault:"5s"`
	WarnThreshold  int           `env:"WARN_THRESHOLD"  envDefault:"3"`
}

// Load reads optional dotenv files (".env" when none are given) and then the
// environment. Variables already set in the environment win over the files.
func Load(dotenvFiles ...string) (*Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load for process startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: invalid configuration: %v", err))
	}
	return cfg
}

func (c *Config) normalize() {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.CORSOrigins = splitAndTrim(strings.Join(c.CORSOrigins, ","))
	c.AllowedCIDRS = splitAndTrim(strings.Join(c.AllowedCIDRS, ","))
	c.AllowedHosts = splitAndTrim(strings.Join(c.AllowedHosts, ","))
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error

	if c.ListenPort == "" {
		errs = append(errs, errors.New("LISTEN_PORT is required"))
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendFile, BackendBolt:
		if strings.TrimSpace(c.StorePath) == "" {
			errs = append(errs, fmt.Errorf("STORE_PATH is required for the %s backend", c.StoreBackend))
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 bytes"))
	}
	if c.AuthRequired && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required when AUTH_REQUIRED=true"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}

	if c.UploadMaxBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES must be positive"))
	}
	if c.RateLimitRPS < 0 || (c.RateLimitRPS > 0 && c.RateLimitBurst < 1) {
		errs = append(errs, errors.New("RATE_LIMIT_RPS must be >= 0 with RATE_LIMIT_BURST >= 1"))
	}
	if c.SubscriberBuffer < 1 {
		errs = append(errs, errors.New("SUBSCRIBER_BUFFER must be >= 1"))
	}
	if strings.TrimSpace(c.WindowCheckSpec) == "" {
		errs = append(errs, errors.New("WINDOW_CHECK_SPEC is required"))
	}

	for _, raw := range c.AllowedCIDRS {
		if _, err := netip.ParsePrefix(raw); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(raw); err != nil {
			errs = append(errs, fmt.Errorf("ALLOWED_CIDRS: invalid entry %q", raw))
		}
	}

	return errors.Join(errs...)
}

// AuthEnabled reports whether login can issue tokens.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.JWTSecret != "" {
		c.JWTSecret = redacted
	}
	if c.AdminPassword != "" {
		c.AdminPassword = redacted
	}
	if c.Redis.Password != "" {
		c.Redis.Password = redacted
	}
	if c.Redis.User != "" {
		c.Redis.User = redacted
	}
	return c
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
