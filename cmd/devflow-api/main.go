package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/app"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/config"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/database"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/reconcile"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

var (
	cfgFile string
	envFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "devflow-api",
		Short: "DevFlow Q&A backend service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "reconcile",
		Short: "Recount every vote and tag counter once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd.Context())
		},
	})

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a dotenv file loaded before configuration")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-driver", defaults.GetString("database.driver"), "Database driver (sqlite, postgres)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("database-dsn", defaults.GetString("database.dsn"), "PostgreSQL connection string")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("auth.token_ttl_minutes"), "Access token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Access token signing secret (overrides env)")
	cmd.PersistentFlags().Bool("reconcile-enabled", defaults.GetBool("reconcile.enabled"), "Run the counter reconciler on a schedule")
	cmd.PersistentFlags().String("reconcile-schedule", defaults.GetString("reconcile.schedule"), "Counter reconciler cron schedule")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "auth.token_ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "reconcile.enabled", "reconcile-enabled")
	bindFlag(cmd, "reconcile.schedule", "reconcile-schedule")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

// appRuntime is the shared bootstrap of every command.
type appRuntime struct {
	config   config.AppConfig
	logger   *zap.Logger
	db       *gorm.DB
	services app.Services
}

func bootstrap() (*appRuntime, func(), error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	db, err := database.Open(database.Options{
		Driver:   appConfig.DatabaseDriver,
		Path:     appConfig.DatabasePath,
		DSN:      appConfig.DatabaseDSN,
		LogLevel: appConfig.LogLevel,
		Logger:   logger,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}

	services, err := app.NewServices(db, logger, app.Options{})
	if err != nil {
		_ = sqlDB.Close()
		_ = logger.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		_ = sqlDB.Close()
		_ = logger.Sync()
	}
	return &appRuntime{config: appConfig, logger: logger, db: db, services: services}, cleanup, nil
}

func runMigrate() error {
	// Open migrates the schema before returning.
	rt, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()
	rt.logger.Info("migrations applied", zap.String("driver", rt.config.DatabaseDriver))
	return nil
}

func runReconcile(ctx context.Context) error {
	rt, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()

	reconciler, err := newReconciler(rt)
	if err != nil {
		return err
	}
	_, err = reconciler.RunOnce(ctx)
	return err
}

func newReconciler(rt *appRuntime) (*reconcile.Reconciler, error) {
	return reconcile.New(reconcile.Config{
		Votes:    rt.services.Votes,
		Tags:     rt.services.Tags,
		Schedule: rt.config.ReconcileSchedule,
		Logger:   rt.logger,
	})
}

func runServer(ctx context.Context) error {
	rt, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()
	logger := rt.logger

	tokenManager, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(rt.config.SigningSecret),
		Issuer:        rt.config.TokenIssuer,
		Audience:      rt.config.TokenAudience,
		TokenTTL:      rt.config.TokenTTL,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(rt.services.Dependencies(rt.db, tokenManager, rt.config.AllowedOrigins, logger))
	if err != nil {
		return err
	}

	if rt.config.ReconcileEnabled {
		reconciler, err := newReconciler(rt)
		if err != nil {
			return err
		}
		if err := reconciler.Start(); err != nil {
			return err
		}
		defer reconciler.Stop()
	}

	httpServer := &http.Server{
		Addr:              rt.config.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", rt.config.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
