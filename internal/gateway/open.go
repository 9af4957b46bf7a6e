package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/database"
)

// Driver names a storage backend.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverSQLite Driver = "sqlite"
	DriverRedis  Driver = "redis"
	DriverStrapi Driver = "strapi"
)

// ErrUnknownDriver indicates an unsupported gateway.driver value.
var ErrUnknownDriver = errors.New("gateway: unknown driver")

// ParseDriver validates a driver name.
func ParseDriver(rawInput string) (Driver, error) {
	switch driver := Driver(strings.ToLower(strings.TrimSpace(rawInput))); driver {
	case DriverMemory, DriverSQLite, DriverRedis, DriverStrapi:
		return driver, nil
	case "":
		return DriverMemory, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDriver, rawInput)
	}
}

// Options selects and configures the backend opened by Open.
type Options struct {
	Driver         Driver
	Latency        time.Duration
	SQLitePath     string
	Redis          database.RedisOptions
	RedisKeyPrefix string
	Strapi         StrapiConfig
	Clock          func() time.Time
}

// Open builds the configured gateway. The returned close function releases its connections.
func Open(ctx context.Context, options Options, logger *zap.Logger) (Gateway, func() error, error) {
	if logger == nil {
		logger = noOpLogger
	}
	noop := func() error { return nil }

	switch options.Driver {
	case DriverMemory, "":
		return NewMemory(MemoryConfig{Clock: options.Clock, Latency: options.Latency, Logger: logger}), noop, nil

	case DriverSQLite:
		db, err := database.OpenSQLite(options.SQLitePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		gateway, err := NewSQL(SQLConfig{Database: db, Clock: options.Clock, Logger: logger})
		if err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		return gateway, sqlDB.Close, nil

	case DriverRedis:
		client, err := database.OpenRedis(ctx, options.Redis, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis: %w", err)
		}
		gateway, err := NewRedis(RedisConfig{
			Client:    client,
			KeyPrefix: options.RedisKeyPrefix,
			Clock:     options.Clock,
			Logger:    logger,
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return gateway, client.Close, nil

	case DriverStrapi:
		strapiConfig := options.Strapi
		strapiConfig.Logger = logger
		if strapiConfig.Clock == nil {
			strapiConfig.Clock = options.Clock
		}
		gateway, err := NewStrapi(strapiConfig)
		if err != nil {
			return nil, nil, err
		}
		return gateway, noop, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, options.Driver)
	}
}

var (
	_ Gateway = (*Memory)(nil)
	_ Gateway = (*SQL)(nil)
	_ Gateway = (*Redis)(nil)
	_ Gateway = (*Strapi)(nil)
)
