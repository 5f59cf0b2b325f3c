package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server configures cmd/marks.
type Server struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	Storage string // "redis" | "memory"
	APIKey  string // optional shared key expected in X-Marks-Key

	GCInterval  time.Duration // interval between archived-entity sweeps (default: 24h)
	GCThreshold time.Duration // archived entities older than this are purged (default: 720h)

	RateLimit float64 // requests per second per client, 0 disables
	RateBurst int

	Redis Redis

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

// Redis holds the connection settings used when Storage is "redis".
type Redis struct {
	Addr             string        // ex: "localhost:6379"
	User             string        // optional
	Password         string        // optional
	PasswordRequired bool          // true => require password, false => allow empty password
	DB               int           // Redis DB number
	DialTimeout      time.Duration // ex: 5s
	ReadTimeout      time.Duration // ex: 3s
	WriteTimeout     time.Duration // ex: 3s
	MaxWait          time.Duration // max wait between retries (ex: 10s)
	PingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	PoolSize         int
	ConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	WarnThreshold    int           // warn after this many attempts
}

// Client configures cmd/marks-client.
type Client struct {
	ServerURL string // ex: "http://localhost:8080"
	APIKey    string
	DataDir   string // pebble directory holding the local-mode dataset

	LocalStore string // "pebble" | "redis", where local-mode data lives
	Redis      Redis  // used when LocalStore is "redis"

	UserID string
	Email  string
	Name   string

	BootstrapRetries   int
	BootstrapBaseDelay time.Duration
	RequestTimeout     time.Duration
	RememberDiscard    bool

	LogLevel  string
	PrettyLog bool
}

// loadDotEnv reads ./.env when present. Variables already set in the
// environment win.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("[WARN] failed to load .env: %v", err)
	}
}

func LoadServer() *Server {
	loadDotEnv()

	cfg := &Server{
		// Server settings
		ListenPort:      getenv("MARKS_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("MARKS_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("MARKS_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MARKS_PRETTY_LOG", true),

		Storage: strings.ToLower(getenv("MARKS_STORAGE", "memory")),
		APIKey:  getenv("MARKS_API_KEY", ""),

		GCInterval:  mustDuration("MARKS_GC_INTERVAL", 24*time.Hour),
		GCThreshold: mustDuration("MARKS_GC_THRESHOLD", 30*24*time.Hour),

		RateLimit: getenvFloat("MARKS_RATE_LIMIT", 20),
		RateBurst: getenvInt("MARKS_RATE_BURST", 40),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("MARKS_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("MARKS_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("MARKS_TRUST_PROXY", false),
	}

	switch cfg.Storage {
	case "memory":
	case "redis":
		cfg.Redis = loadRedis()
	default:
		panic(fmt.Sprintf("❌ FATAL: MARKS_STORAGE must be redis or memory, got %q", cfg.Storage))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.Redis.Password = redact(cfg.Redis.Password)
		cfgCopy.APIKey = redact(cfg.APIKey)
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

func loadRedis() Redis {
	r := Redis{
		Addr:             requireEnv("MARKS_REDIS_ADDR"),
		User:             getenv("MARKS_REDIS_USERNAME", "default"),
		PasswordRequired: mustBool("MARKS_REDIS_PASSWORD_REQUIRED", true),
		Password:         getenv("MARKS_REDIS_PASSWORD", ""),
		DB:               getenvInt("MARKS_REDIS_DB", 0),
		DialTimeout:      mustDuration("MARKS_REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:      mustDuration("MARKS_REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout:     mustDuration("MARKS_REDIS_WRITE_TIMEOUT", 3*time.Second),
		MaxWait:          mustDuration("MARKS_REDIS_MAX_WAIT", 10*time.Second),
		PingTimeout:      mustDuration("MARKS_REDIS_PING_TIMEOUT", 5*time.Second),
		PoolSize:         getenvInt("MARKS_REDIS_POOL_SIZE", 10),
		ConnectTimeout:   mustDuration("MARKS_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RetryInterval:    mustDuration("MARKS_REDIS_RETRY_INTERVAL", 2*time.Second),
		WarnThreshold:    getenvInt("MARKS_REDIS_WARN_THRESHOLD", 3),
	}
	if r.PasswordRequired && r.Password == "" {
		panic("❌ FATAL: MARKS_REDIS_PASSWORD is required when MARKS_REDIS_PASSWORD_REQUIRED=true")
	}
	return r
}

func LoadClient() *Client {
	loadDotEnv()

	c := &Client{
		ServerURL: strings.TrimRight(getenv("MARKS_SERVER_URL", "http://localhost:8080"), "/"),
		APIKey:    getenv("MARKS_API_KEY", ""),
		DataDir:   getenv("MARKS_DATA_DIR", "./marks-data"),

		UserID: requireEnv("MARKS_USER"),
		Email:  getenv("MARKS_EMAIL", ""),
		Name:   getenv("MARKS_NAME", ""),

		BootstrapRetries:   getenvInt("MARKS_BOOTSTRAP_RETRIES", 3),
		BootstrapBaseDelay: mustDuration("MARKS_BOOTSTRAP_BASE_DELAY", 2*time.Second),
		RequestTimeout:     mustDuration("MARKS_REQUEST_TIMEOUT", 10*time.Second),
		RememberDiscard:    mustBool("MARKS_REMEMBER_DISCARD", false),

		LogLevel:  getenv("MARKS_LOG_LEVEL", "warn"),
		PrettyLog: mustBool("MARKS_PRETTY_LOG", true),

		LocalStore: strings.ToLower(getenv("MARKS_LOCAL_STORE", "pebble")),
	}

	switch c.LocalStore {
	case "pebble":
	case "redis":
		c.Redis = loadRedis()
	default:
		panic(fmt.Sprintf("❌ FATAL: MARKS_LOCAL_STORE must be pebble or redis, got %q", c.LocalStore))
	}
	return c
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***REDACTED***"
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
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
