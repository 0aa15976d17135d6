package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/costworks/internal/config"
	"github.com/Simplici0/costworks/internal/db"
	"github.com/Simplici0/costworks/internal/logging"
	"github.com/Simplici0/costworks/internal/migrations"
	"github.com/Simplici0/costworks/internal/seed"
	"github.com/Simplici0/costworks/internal/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	format := cfg.LogFormat
	if cfg.IsDev() {
		format = "console"
	}
	log := logging.Must(logging.Config{
		Level:       cfg.LogLevel,
		Format:      format,
		Development: cfg.IsDev(),
		Fields:      map[string]string{"service": "costworks"},
	})
	defer func() { _ = log.Sync() }()

	for _, w := range cfg.Warnings {
		log.Warn("configuration warning", zap.String("warning", w))
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		return err
	}

	stats, err := seed.Run(database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
	if err != nil {
		return err
	}
	log.Info("seed completed", zap.Int("inserts", stats.Inserts))

	st := store.New(database)
	srv, err := newServer(st, log, serverOptions{
		SessionSecret: cfg.SessionSecret,
		MCWorkers:     cfg.MCWorkers,
		MaxIterations: cfg.MaxIterations,
		SecureCookies: !cfg.IsDev(),
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", httpSrv.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
