package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joegr/ReTurni/internal/database"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Auth        AuthConfig      `mapstructure:"auth"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Proxy       ProxyConfig     `mapstructure:"proxy"`
	Audit       AuditConfig     `mapstructure:"audit"`
	Logging     LoggingConfig   `mapstructure:"logging"`

	// Services maps logical service names to downstream base URLs.
	// A request for an unmapped service is rejected, never guessed.
	Services map[string]string `mapstructure:"services"`

	// Policies maps service names to access policies: "public",
	// "optional", "required", or "required:<permission>". Services
	// without an entry default to optional.
	Policies map[string]string `mapstructure:"policies"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Timeout        time.Duration `mapstructure:"timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`

	// FailOpen admits traffic when the limiter store is unreachable.
	// Set false to reject instead.
	FailOpen bool `mapstructure:"fail_open"`
}

type ProxyConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	HealthTimeout time.Duration `mapstructure:"health_timeout"`
}

type AuditConfig struct {
	// SigningSecret keys the HMAC signature attached to audit event
	// deliveries. Empty disables signing.
	SigningSecret string `mapstructure:"signing_secret"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// Load reads config.yaml from the working directory, applying defaults
// and environment overrides (dots become underscores, e.g.
// AUTH_JWT_SECRET).
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from an explicit file path. An
// empty path falls back to the default search locations.
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "gateway")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "your-secret-key-change-in-production")
	v.SetDefault("auth.access_token_ttl", "30m")
	v.SetDefault("auth.refresh_token_ttl", "168h")
	v.SetDefault("auth.session_ttl", "24h")

	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "60s")
	v.SetDefault("rate_limit.fail_open", true)

	v.SetDefault("proxy.timeout", "30s")
	v.SetDefault("proxy.health_timeout", "5s")

	v.SetDefault("audit.signing_secret", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file_path", "")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)

	v.SetDefault("services", map[string]string{
		"tournaments":   "http://tournament-api:8000",
		"elo":           "http://elo-service:8000",
		"leaderboards":  "http://leaderboard-service:8000",
		"reviews":       "http://review-service:8000",
		"teams":         "http://team-service:8000",
		"matches":       "http://match-service:8000",
		"notifications": "http://notification-service:8000",
		"audit":         "http://audit-service:8000",
	})

	v.SetDefault("policies", map[string]string{
		"leaderboards": "public",
		"reviews":      "required",
		"audit":        "required:system:view_audit",
	})
}

// ToDBConfig converts DatabaseConfig to database.Config
func (c DatabaseConfig) ToDBConfig() database.Config {
	return database.Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		DBName:   c.DBName,
		SSLMode:  c.SSLMode,
	}
}

// Addr returns the host:port address of the Redis server.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
