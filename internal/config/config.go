package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "PAGEBUILDER"

	defaultHTTPAddress       = "0.0.0.0:8080"
	defaultLogLevel          = "info"
	defaultGatewayDriver     = driverMemory
	defaultDatabasePath      = "pagebuilder.db"
	defaultRedisKeyPrefix    = "pagebuilder"
	defaultRedisConnect      = 10 * time.Second
	defaultStrapiURL         = "http://localhost:1337"
	defaultStrapiTimeout     = 10 * time.Second
	defaultStrapiRate        = 10.0
	defaultStrapiBurst       = 5
	defaultTokenTTLMinutes   = 60
	defaultSavedRevert       = 2 * time.Second
	defaultErrorRevert       = 3 * time.Second
	defaultHeartbeatInterval = 15 * time.Second
	defaultShutdownTimeout   = 10 * time.Second

	driverMemory = "memory"
	driverSQLite = "sqlite"
	driverRedis  = "redis"
	driverStrapi = "strapi"
)

// AppConfig captures runtime configuration for the editor service and CLI.
type AppConfig struct {
	HTTPAddress       string
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
	ShutdownTimeout   time.Duration

	LogLevel  string
	LogPretty bool

	GatewayDriver  string
	GatewayLatency time.Duration
	DatabasePath   string

	RedisAddress        string
	RedisUsername       string
	RedisPassword       string
	RedisDB             int
	RedisKeyPrefix      string
	RedisConnectTimeout time.Duration

	StrapiURL               string
	StrapiAPIToken          string
	StrapiTimeout           time.Duration
	StrapiRequestsPerSecond float64
	StrapiBurst             int

	AuthSigningSecret string
	AuthTokenTTL      time.Duration

	SavedRevert time.Duration
	ErrorRevert time.Duration
}

// AuthEnabled reports whether API requests must carry a bearer token.
func (c AppConfig) AuthEnabled() bool {
	return strings.TrimSpace(c.AuthSigningSecret) != ""
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", []string{})
	configViper.SetDefault("http.heartbeat_interval", defaultHeartbeatInterval)
	configViper.SetDefault("http.shutdown_timeout", defaultShutdownTimeout)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.pretty", false)
	configViper.SetDefault("gateway.driver", defaultGatewayDriver)
	configViper.SetDefault("gateway.latency", time.Duration(0))
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("redis.address", "")
	configViper.SetDefault("redis.username", "")
	configViper.SetDefault("redis.password", "")
	configViper.SetDefault("redis.db", 0)
	configViper.SetDefault("redis.key_prefix", defaultRedisKeyPrefix)
	configViper.SetDefault("redis.connect_timeout", defaultRedisConnect)
	configViper.SetDefault("strapi.url", defaultStrapiURL)
	configViper.SetDefault("strapi.api_token", "")
	configViper.SetDefault("strapi.timeout", defaultStrapiTimeout)
	configViper.SetDefault("strapi.requests_per_second", defaultStrapiRate)
	configViper.SetDefault("strapi.burst", defaultStrapiBurst)
	configViper.SetDefault("auth.signing_secret", "")
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("editor.saved_revert", defaultSavedRevert)
	configViper.SetDefault("editor.error_revert", defaultErrorRevert)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:       configViper.GetString("http.address"),
		AllowedOrigins:    configViper.GetStringSlice("http.allowed_origins"),
		HeartbeatInterval: configViper.GetDuration("http.heartbeat_interval"),
		ShutdownTimeout:   configViper.GetDuration("http.shutdown_timeout"),

		LogLevel:  configViper.GetString("log.level"),
		LogPretty: configViper.GetBool("log.pretty"),

		GatewayDriver:  strings.ToLower(strings.TrimSpace(configViper.GetString("gateway.driver"))),
		GatewayLatency: configViper.GetDuration("gateway.latency"),
		DatabasePath:   configViper.GetString("database.path"),

		RedisAddress:        configViper.GetString("redis.address"),
		RedisUsername:       configViper.GetString("redis.username"),
		RedisPassword:       configViper.GetString("redis.password"),
		RedisDB:             configViper.GetInt("redis.db"),
		RedisKeyPrefix:      configViper.GetString("redis.key_prefix"),
		RedisConnectTimeout: configViper.GetDuration("redis.connect_timeout"),

		StrapiURL:               configViper.GetString("strapi.url"),
		StrapiAPIToken:          configViper.GetString("strapi.api_token"),
		StrapiTimeout:           configViper.GetDuration("strapi.timeout"),
		StrapiRequestsPerSecond: configViper.GetFloat64("strapi.requests_per_second"),
		StrapiBurst:             configViper.GetInt("strapi.burst"),

		AuthSigningSecret: configViper.GetString("auth.signing_secret"),
		AuthTokenTTL:      time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,

		SavedRevert: configViper.GetDuration("editor.saved_revert"),
		ErrorRevert: configViper.GetDuration("editor.error_revert"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if c.GatewayLatency < 0 {
		return fmt.Errorf("gateway.latency must not be negative")
	}
	if c.AuthTokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	if c.SavedRevert <= 0 || c.ErrorRevert <= 0 {
		return fmt.Errorf("editor.saved_revert and editor.error_revert must be positive")
	}

	switch c.GatewayDriver {
	case driverMemory:
	case driverSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required for the sqlite gateway")
		}
	case driverRedis:
		if strings.TrimSpace(c.RedisAddress) == "" {
			return fmt.Errorf("redis.address is required for the redis gateway")
		}
		if c.RedisDB < 0 {
			return fmt.Errorf("redis.db must not be negative")
		}
	case driverStrapi:
		parsed, err := url.Parse(strings.TrimSpace(c.StrapiURL))
		if err != nil || !parsed.IsAbs() || parsed.Host == "" {
			return fmt.Errorf("strapi.url must be an absolute URL, got %q", c.StrapiURL)
		}
		if c.StrapiRequestsPerSecond <= 0 || c.StrapiBurst <= 0 {
			return fmt.Errorf("strapi.requests_per_second and strapi.burst must be positive")
		}
	default:
		return fmt.Errorf("gateway.driver %q is not one of memory, sqlite, redis, strapi", c.GatewayDriver)
	}
	return nil
}
