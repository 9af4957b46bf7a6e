package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/auth"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/config"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/database"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/editor"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/gateway"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/library"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/logging"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/server"
)

var (
	cfgFile string
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pagebuilder",
		Short: "Visual landing page editor backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
		SilenceUsage: true,
	}

	setupFlags(rootCmd)

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the editor HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServer(cmd.Context())
			},
		},
		newLibraryCommand(),
		newExportCommand(),
		newImportCommand(),
		newTokenCommand(),
	)
	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().StringSlice("allowed-origins", nil, "Origins allowed by CORS (empty reflects any origin)")
	cmd.PersistentFlags().String("gateway-driver", defaults.GetString("gateway.driver"), "Page storage backend (memory, sqlite, redis, strapi)")
	cmd.PersistentFlags().Duration("gateway-latency", defaults.GetDuration("gateway.latency"), "Simulated latency of the memory gateway")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("redis-address", defaults.GetString("redis.address"), "Redis address")
	cmd.PersistentFlags().String("strapi-url", defaults.GetString("strapi.url"), "Strapi base URL")
	cmd.PersistentFlags().String("strapi-api-token", "", "Strapi API token (overrides env)")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("auth.token_ttl_minutes"), "API token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("log-pretty", defaults.GetBool("log.pretty"), "Human readable console logs")
	cmd.PersistentFlags().String("signing-secret", "", "API token signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "http.allowed_origins", "allowed-origins")
	bindFlag(cmd, "gateway.driver", "gateway-driver")
	bindFlag(cmd, "gateway.latency", "gateway-latency")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "redis.address", "redis-address")
	bindFlag(cmd, "strapi.url", "strapi-url")
	bindFlag(cmd, "strapi.api_token", "strapi-api-token")
	bindFlag(cmd, "auth.token_ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.pretty", "log-pretty")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		return err
	}

	return nil
}

// loadRuntime resolves configuration and the logger shared by every command.
func loadRuntime() (config.AppConfig, *zap.Logger, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogPretty)
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	return appConfig, logger, nil
}

func openGateway(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (gateway.Gateway, func() error, error) {
	driver, err := gateway.ParseDriver(appConfig.GatewayDriver)
	if err != nil {
		return nil, nil, err
	}
	return gateway.Open(ctx, gateway.Options{
		Driver:     driver,
		Latency:    appConfig.GatewayLatency,
		SQLitePath: appConfig.DatabasePath,
		Redis: database.RedisOptions{
			Address:        appConfig.RedisAddress,
			Username:       appConfig.RedisUsername,
			Password:       appConfig.RedisPassword,
			DB:             appConfig.RedisDB,
			ConnectTimeout: appConfig.RedisConnectTimeout,
		},
		RedisKeyPrefix: appConfig.RedisKeyPrefix,
		Strapi: gateway.StrapiConfig{
			BaseURL:           appConfig.StrapiURL,
			APIToken:          appConfig.StrapiAPIToken,
			Timeout:           appConfig.StrapiTimeout,
			RequestsPerSecond: appConfig.StrapiRequestsPerSecond,
			Burst:             appConfig.StrapiBurst,
		},
	}, logger)
}

func newTokenIssuer(appConfig config.AppConfig) (*auth.TokenIssuer, error) {
	return auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.AuthSigningSecret),
		Issuer:        auth.DefaultIssuer,
		Audience:      auth.DefaultAudience,
		TokenTTL:      appConfig.AuthTokenTTL,
	})
}

func runServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	appConfig, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pageGateway, closeGateway, err := openGateway(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeGateway(); closeErr != nil {
			logger.Warn("gateway close failed", zap.Error(closeErr))
		}
	}()

	idProvider := pages.NewUUIDProvider()
	store := pages.NewStore(pages.StoreConfig{IDProvider: idProvider, Logger: logger})
	pageEditor, err := editor.New(editor.Config{
		Store:       store,
		Gateway:     pageGateway,
		Library:     library.Default(idProvider),
		SavedRevert: appConfig.SavedRevert,
		ErrorRevert: appConfig.ErrorRevert,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer pageEditor.Close()

	dependencies := server.Dependencies{
		Editor:            pageEditor,
		AllowedOrigins:    appConfig.AllowedOrigins,
		HeartbeatInterval: appConfig.HeartbeatInterval,
		Logger:            logger,
	}
	if appConfig.AuthEnabled() {
		tokenIssuer, err := newTokenIssuer(appConfig)
		if err != nil {
			return err
		}
		dependencies.TokenValidator = tokenIssuer
	} else {
		logger.Warn("auth.signing_secret is empty; the API accepts unauthenticated requests")
	}

	handler, err := server.NewHTTPHandler(dependencies)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("gateway", appConfig.GatewayDriver),
			zap.Bool("auth", appConfig.AuthEnabled()),
		)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.ShutdownTimeout)
		defer cancel()
		logger.Info("server stopping")
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
