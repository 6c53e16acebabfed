package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sandeepkv93/todod/internal/api"
	"github.com/sandeepkv93/todod/internal/config"
	"github.com/sandeepkv93/todod/internal/logger"
	"github.com/sandeepkv93/todod/internal/storage"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "todod.yml", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "todod-server: %v\n", err)
		os.Exit(1)
	}
	// The server logs to stdout; the file sink is for the TUI.
	log := logger.Must(cfg.LogDevelopment, "")
	defer logger.Sync(log)

	repo, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal("open database failed", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer repo.Close()

	backend := storage.NewBackend(repo, storage.WithBackendLogger(log.Named("storage")))
	srv := api.NewServer(backend, api.WithLogger(log.Named("api")), api.WithToken(cfg.APIToken))
	if cfg.APIToken == "" {
		log.Warn("no api token configured, requests are not authenticated")
	}

	server := &http.Server{
		Addr:         cfg.APIAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", server.Addr), zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}
