package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
	Reports  ReportsConfig  `json:"reports"`
	Archive  ArchiveConfig  `json:"archive"`
	Schedule ScheduleConfig `json:"schedule"`
	CORS     CORSConfig     `json:"cors"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	GinMode      string        `json:"gin_mode"`
	DevMode      bool          `json:"dev_mode"`
}

// SecurityConfig holds credential settings for the admin area
type SecurityConfig struct {
	JWTSecret         string        `json:"jwt_secret"`
	TokenTTL          time.Duration `json:"token_ttl"`
	AdminUser         string        `json:"admin_user"`
	AdminPasswordHash string        `json:"admin_password_hash"`
}

// LoggingConfig
type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// ReportsConfig drives report composition
type ReportsConfig struct {
	AssetsDir          string   `json:"assets_dir"`
	SkinsFile          string   `json:"skins_file"`
	MaxUploadMB        int64    `json:"max_upload_mb"`
	RateLimitPerMinute int      `json:"rate_limit_per_minute"`
	CompanyName        string   `json:"company_name"`
	CompanyContacts    []string `json:"company_contacts"`
	Website            string   `json:"website"`
	ProtectOutput      bool     `json:"protect_output"`
}

// ArchiveConfig controls the optional S3 copy of generated documents
type ArchiveConfig struct {
	Enabled   bool   `json:"enabled"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// ScheduleConfig selects the cronograma store backend
type ScheduleConfig struct {
	Driver string `json:"driver"` // memory, postgres, sqlite
	DSN    string `json:"dsn"`
}

// CORSConfig
type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  2 * time.Minute,
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  2 * time.Minute,
			GinMode:      "release",
		},
		Security: SecurityConfig{
			TokenTTL:  12 * time.Hour,
			AdminUser: "admin",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Reports: ReportsConfig{
			AssetsDir:          "assets",
			MaxUploadMB:        200,
			RateLimitPerMinute: 30,
			CompanyName:        "Manutenção Predial",
			ProtectOutput:      true,
		},
		Archive: ArchiveConfig{
			Region: "us-east-1",
			Prefix: "relatorios",
		},
		Schedule: ScheduleConfig{
			Driver: "memory",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// LoadConfig loads configuration from file, .env and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	_ = godotenv.Load()

	// Override with environment variables
	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required")
	}
	if c.Security.AdminPasswordHash == "" {
		return fmt.Errorf("security.admin_password_hash is required")
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when archive is enabled")
	}
	switch c.Schedule.Driver {
	case "memory":
	case "postgres", "sqlite":
		if c.Schedule.DSN == "" {
			return fmt.Errorf("schedule.dsn is required for driver %q", c.Schedule.Driver)
		}
	default:
		return fmt.Errorf("unknown schedule.driver %q", c.Schedule.Driver)
	}
	return nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if d, ok := envDuration("SERVER_WRITE_TIMEOUT"); ok {
		config.Server.WriteTimeout = d
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		config.Server.GinMode = mode
	}
	if dev, ok := envBool("DEV_MODE"); ok {
		config.Server.DevMode = dev
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if d, ok := envDuration("TOKEN_TTL"); ok {
		config.Security.TokenTTL = d
	}
	if user := os.Getenv("ADMIN_USER"); user != "" {
		config.Security.AdminUser = user
	}
	if hash := os.Getenv("ADMIN_PASSWORD_HASH"); hash != "" {
		config.Security.AdminPasswordHash = hash
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if dev, ok := envBool("LOG_DEVELOPMENT"); ok {
		config.Logging.Development = dev
	}

	if dir := os.Getenv("ASSETS_DIR"); dir != "" {
		config.Reports.AssetsDir = dir
	}
	if file := os.Getenv("SKINS_FILE"); file != "" {
		config.Reports.SkinsFile = file
	}
	if name := os.Getenv("COMPANY_NAME"); name != "" {
		config.Reports.CompanyName = name
	}
	if contacts := os.Getenv("COMPANY_CONTACTS"); contacts != "" {
		config.Reports.CompanyContacts = splitList(contacts, ";")
	}
	if site := os.Getenv("COMPANY_WEBSITE"); site != "" {
		config.Reports.Website = site
	}
	if limit := os.Getenv("RATE_LIMIT_PER_MINUTE"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			config.Reports.RateLimitPerMinute = n
		}
	}
	if protect, ok := envBool("PROTECT_OUTPUT"); ok {
		config.Reports.ProtectOutput = protect
	}

	if enabled, ok := envBool("ARCHIVE_ENABLED"); ok {
		config.Archive.Enabled = enabled
	}
	if bucket := os.Getenv("ARCHIVE_BUCKET"); bucket != "" {
		config.Archive.Bucket = bucket
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.Archive.Region = region
	}
	if endpoint := os.Getenv("ARCHIVE_ENDPOINT"); endpoint != "" {
		config.Archive.Endpoint = endpoint
	}
	if key := os.Getenv("ARCHIVE_ACCESS_KEY"); key != "" {
		config.Archive.AccessKey = key
	}
	if secret := os.Getenv("ARCHIVE_SECRET_KEY"); secret != "" {
		config.Archive.SecretKey = secret
	}

	if driver := os.Getenv("SCHEDULE_DRIVER"); driver != "" {
		config.Schedule.Driver = driver
	}
	if dsn := os.Getenv("SCHEDULE_DSN"); dsn != "" {
		config.Schedule.DSN = dsn
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		config.CORS.AllowedOrigins = splitList(origins, ",")
	}
}

func envBool(key string) (bool, bool) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return false, false
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, false
	}
	return b, true
}

func envDuration(key string) (time.Duration, bool) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false
	}
	return d, true
}

func splitList(raw, sep string) []string {
	parts := strings.Split(raw, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MaxUploadBytes returns the multipart memory budget in bytes
func (c *ReportsConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}
