// Package config handles loading and managing spinabot configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	BindAddr        string   `toml:"bind_addr"`        // Listen address (default: 127.0.0.1)
	APIPort         int      `toml:"port"`             // HTTP server port (default: 8080)
	APIKey          string   `toml:"api_key"`          // API authentication key
	AllowInsecure   bool     `toml:"allow_insecure"`   // Allow a non-loopback bind without an API key
	CORSOrigins     []string `toml:"cors_origins"`     // Allowed CORS origins
	CORSCredentials bool     `toml:"cors_credentials"` // Allow credentials in CORS
	CORSMaxAge      int      `toml:"cors_max_age"`     // Preflight cache duration in seconds
	RateLimitRPS    float64  `toml:"rate_limit_rps"`   // Requests per second per client IP
	RateLimitBurst  int      `toml:"rate_limit_burst"` // Burst allowance per client IP
	MetricsEnabled  bool     `toml:"metrics_enabled"`  // Serve /metrics
}

// ValidateSecure rejects binding a non-loopback address without an API key
// unless AllowInsecure is set.
func (s ServerConfig) ValidateSecure() error {
	if s.APIKey != "" || s.AllowInsecure || isLoopback(s.BindAddr) {
		return nil
	}
	return fmt.Errorf("refusing to bind %q without an api_key; set [server] api_key or allow_insecure = true", s.BindAddr)
}

func isLoopback(addr string) bool {
	if addr == "" || strings.EqualFold(addr, "localhost") {
		return true
	}
	ip := net.ParseIP(addr)
	return ip != nil && ip.IsLoopback()
}

// DatasetConfig controls the generated demo mailbox.
type DatasetConfig struct {
	Size   int    `toml:"size"`   // Number of records (default: 100)
	Seed   uint64 `toml:"seed"`   // 0 picks a time-based seed
	Anchor string `toml:"anchor"` // RFC 3339 "now" for received times; empty means now
}

// AnchorTime parses Anchor. It returns the zero time when Anchor is empty.
func (d DatasetConfig) AnchorTime() (time.Time, error) {
	if d.Anchor == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, d.Anchor)
	if err != nil {
		return time.Time{}, fmt.Errorf("dataset anchor: %w", err)
	}
	return t, nil
}

// DashboardConfig controls email listing behaviour.
type DashboardConfig struct {
	SearchMode string `toml:"search_mode"` // "and" or "override"
	PageSize   int    `toml:"page_size"`
}

// SessionConfig selects the session backend.
type SessionConfig struct {
	Backend       string   `toml:"backend"` // memory, sqlite or redis
	TTL           Duration `toml:"ttl"`
	SweepSchedule string   `toml:"sweep_schedule"` // cron expression
	SQLitePath    string   `toml:"sqlite_path"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	TokenSecret   string   `toml:"token_secret"` // HS256 key; random per process when empty
}

// SecurityConfig holds credential sealing settings.
type SecurityConfig struct {
	CredentialKey string `toml:"credential_key"`
}

// SimulationConfig scales the artificial delays.
type SimulationConfig struct {
	DelayScale float64 `toml:"delay_scale"` // 0 disables delays
}

// Duration is a time.Duration that decodes from TOML strings like "24h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Session backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config represents the spinabot configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Dataset    DatasetConfig    `toml:"dataset"`
	Dashboard  DashboardConfig  `toml:"dashboard"`
	Session    SessionConfig    `toml:"session"`
	Security   SecurityConfig   `toml:"security"`
	Simulation SimulationConfig `toml:"simulation"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	ConfigPath string `toml:"-"`
}

// DefaultHome returns the default spinabot home directory.
// Respects SPINABOT_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("SPINABOT_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".spinabot"
	}
	return filepath.Join(home, ".spinabot")
}

// NewDefaultConfig returns a configuration with default values rooted at
// the default home directory.
func NewDefaultConfig() *Config {
	return newDefaults(DefaultHome())
}

func newDefaults(homeDir string) *Config {
	return &Config{
		HomeDir: homeDir,
		Server: ServerConfig{
			BindAddr:       "127.0.0.1",
			APIPort:        8080,
			RateLimitRPS:   10,
			RateLimitBurst: 20,
			MetricsEnabled: true,
		},
		Dataset: DatasetConfig{
			Size: 100,
		},
		Dashboard: DashboardConfig{
			SearchMode: "and",
			PageSize:   50,
		},
		Session: SessionConfig{
			Backend:       BackendMemory,
			TTL:           Duration{24 * time.Hour},
			SweepSchedule: "*/10 * * * *",
			RedisAddr:     "localhost:6379",
		},
		Simulation: SimulationConfig{
			DelayScale: 1,
		},
	}
}

// Load reads the configuration.
//
// If path is set the file must exist and its directory becomes the home
// directory. Otherwise config.toml is read from homeDir (or DefaultHome)
// when present.
func Load(path, homeDir string) (*Config, error) {
	explicit := path != ""
	switch {
	case explicit:
		path = expandPath(path)
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if homeDir == "" {
			homeDir = filepath.Dir(path)
		}
	case homeDir == "":
		homeDir = DefaultHome()
	}
	homeDir = expandPath(homeDir)
	if !explicit {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := newDefaults(homeDir)
	cfg.ConfigPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w%s", err, backslashHint(err))
	}

	cfg.Session.SQLitePath = expandPath(cfg.Session.SQLitePath)
	return cfg, nil
}

// backslashHint explains the most common TOML mistake on Windows paths.
func backslashHint(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "invalid escape") || strings.Contains(msg, "hexadecimal digits") {
		return "\nhint: use forward slashes in paths or wrap them in single quotes"
	}
	return ""
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if p := c.Server.APIPort; p < 1 || p > 65535 {
		return fmt.Errorf("server port %d out of range", p)
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	if c.Dataset.Size < 0 {
		return fmt.Errorf("dataset size must not be negative")
	}
	if _, err := c.Dataset.AnchorTime(); err != nil {
		return err
	}
	switch c.Dashboard.SearchMode {
	case "", "and", "override":
	default:
		return fmt.Errorf("unknown dashboard search_mode %q", c.Dashboard.SearchMode)
	}
	if c.Dashboard.PageSize < 0 || c.Dashboard.PageSize > 100 {
		return fmt.Errorf("dashboard page_size %d out of range", c.Dashboard.PageSize)
	}
	switch c.Session.Backend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.Session.TTL.Duration < 0 {
		return fmt.Errorf("session ttl must not be negative")
	}
	if c.Simulation.DelayScale < 0 {
		return fmt.Errorf("simulation delay_scale must not be negative")
	}
	return nil
}

// SessionDBPath returns the SQLite session database path.
func (c *Config) SessionDBPath() string {
	if c.Session.SQLitePath != "" {
		return c.Session.SQLitePath
	}
	return filepath.Join(c.HomeDir, "sessions.db")
}

// ListenAddr returns host:port for the HTTP server.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.BindAddr, fmt.Sprint(c.Server.APIPort))
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
