package main

import (
	"context"
	"errors"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"themind/auth"
	"themind/config"
	"themind/game"
	httpserver "themind/http"
	"themind/log"
	"themind/store"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "themind",
	Short: "The Mind match server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := store.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return err
		}
		log.Info("Schema is up to date in %s", cfg.DBPath)
		return db.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	log.InitLog("themind", cfg.LogLevel)
	return cfg, nil
}

func serve() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log.Info("Configuration loaded - Server port: %s, DB path: %s", cfg.ServerPort, cfg.DBPath)

	sessionKey, err := config.Key(cfg.SessionSecret)
	if err != nil {
		return err
	}
	csrfKey, err := config.Key(cfg.CSRFKey)
	if err != nil {
		return err
	}

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("Database initialized successfully")

	sessionManager := auth.NewSessionManager(sessionKey, cfg.SessionTTL, cfg.CSRFSecure)
	defer sessionManager.Close()
	userCache, err := auth.NewUserCache(10 * time.Minute)
	if err != nil {
		return err
	}
	defer userCache.Close()

	authService := auth.NewService(db, sessionManager, userCache)
	lobby := game.NewLobby(db)
	engine := game.NewEngine(db, game.WithRecentWindow(cfg.RecentWindow))

	server := httpserver.NewServer(authService, lobby, engine, httpserver.Options{
		CSRFKey:     csrfKey,
		CSRFSecure:  cfg.CSRFSecure,
		ActionRate:  cfg.ActionRate,
		ActionBurst: cfg.ActionBurst,
	})
	srv := server.GetHTTPServer(cfg.ServerPort)

	go func() {
		log.Info("Server listening on http://localhost%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatal("Server error: %v", err)
		}
	}()

	var metrics *stdhttp.Server
	if cfg.MetricsPort > 0 {
		metrics, err = httpserver.MetricsServer(cfg.MetricsPort)
		if err != nil {
			return err
		}
		go func() {
			log.Info("Metrics on http://localhost:%d/debug/statsviz/", cfg.MetricsPort)
			if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				log.Error("Metrics server error: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("Server forced to shutdown: %v", err)
	}
	if metrics != nil {
		_ = metrics.Shutdown(ctx)
	}

	log.Info("Server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}
