package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Stay03/blurranker/internal/changefeed"
	"github.com/Stay03/blurranker/internal/httpserver"
	"github.com/Stay03/blurranker/internal/store/gormstore"
	"github.com/Stay03/blurranker/pkg/tally"
)

const (
	flagDatabaseURL          = "database-url"
	flagListenAddr           = "listen-addr"
	flagTokenSigningKey      = "token-signing-key"
	flagTokenIssuer          = "token-issuer"
	flagAllowedOrigins       = "allowed-origins"
	configKeyDatabaseURL     = "database_url"
	configKeyListenAddr      = "listen_addr"
	configKeyTokenSigningKey = "token_signing_key"
	configKeyTokenIssuer     = "token_issuer"
	configKeyAllowedOrigins  = "allowed_origins"
	defaultDatabaseURL       = "sqlite:///tmp/blurranker.db"
	defaultListenAddr        = ":9090"
)

type runtimeConfig struct {
	DatabaseURL     string
	ListenAddr      string
	TokenSigningKey string
	TokenIssuer     string
	AllowedOrigins  string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "blurrankerd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "blurrankerd",
		Short:         "Game session settlement HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL or sqlite connection string")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagTokenSigningKey, "", "HMAC key for bearer tokens")
	cmd.Flags().String(flagTokenIssuer, "", "expected token issuer")
	cmd.Flags().String(flagAllowedOrigins, "", "comma separated CORS origins")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	envBindings := map[string]string{
		configKeyDatabaseURL:     "DATABASE_URL",
		configKeyListenAddr:      "LISTEN_ADDR",
		configKeyTokenSigningKey: "TOKEN_SIGNING_KEY",
		configKeyTokenIssuer:     "TOKEN_ISSUER",
		configKeyAllowedOrigins:  "ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}

	flagBindings := map[string]string{
		configKeyDatabaseURL:     flagDatabaseURL,
		configKeyListenAddr:      flagListenAddr,
		configKeyTokenSigningKey: flagTokenSigningKey,
		configKeyTokenIssuer:     flagTokenIssuer,
		configKeyAllowedOrigins:  flagAllowedOrigins,
	}
	for key, flag := range flagBindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = viper.GetString(configKeyDatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.ListenAddr = viper.GetString(configKeyListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	cfg.TokenSigningKey = viper.GetString(configKeyTokenSigningKey)
	cfg.TokenIssuer = viper.GetString(configKeyTokenIssuer)
	cfg.AllowedOrigins = viper.GetString(configKeyAllowedOrigins)
	if cfg.TokenSigningKey == "" {
		return fmt.Errorf("token signing key is required")
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, driver, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer cleanup()

	if err := prepareSchema(gormDB, driver); err != nil {
		return err
	}

	feed := changefeed.New()
	defer feed.Close()
	go logFeedEvents(ctx, feed, logger)

	store := gormstore.New(gormDB, feed)
	clock := func() int64 { return time.Now().UTC().Unix() }
	service, err := tally.NewService(store, clock, tally.WithOperationLogger(tally.NewZapOperationLogger(logger)))
	if err != nil {
		return fmt.Errorf("service init: %w", err)
	}

	serverConfig := httpserver.Config{
		ListenAddr:      cfg.ListenAddr,
		AllowedOrigins:  httpserver.ParseAllowedOrigins(cfg.AllowedOrigins),
		TokenSigningKey: cfg.TokenSigningKey,
		TokenIssuer:     cfg.TokenIssuer,
	}
	return httpserver.Run(ctx, serverConfig, service, logger)
}

func logFeedEvents(ctx context.Context, feed *changefeed.Feed, logger *zap.Logger) {
	subscription := feed.Subscribe(changefeed.Filter{})
	defer subscription.Cancel()
	for {
		events, err := subscription.Wait(ctx)
		if err != nil || events == nil {
			return
		}
		for _, event := range events {
			logger.Debug("change event",
				zap.String("entity", string(event.Entity)),
				zap.String("op", string(event.Op)),
				zap.String("session_id", event.SessionID),
			)
		}
	}
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, string, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, "", err
	}

	var db *gorm.DB
	cfg := &gorm.Config{}
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqlitePath), cfg)
	default:
		return nil, nil, "", fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, "", err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, "", err
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, driver, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = "blurranker.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

func prepareSchema(db *gorm.DB, driver string) error {
	if driver != "sqlite" {
		return nil
	}
	if err := db.AutoMigrate(gormstore.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
