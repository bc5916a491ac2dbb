package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"softphone/internal/audio"
	"softphone/internal/auth"
	"softphone/internal/config"
	"softphone/internal/engine"
	"softphone/internal/journal"
	"softphone/internal/profile"
	"softphone/internal/session"
	"softphone/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	jnl := journal.NewService(journal.NewMemoryRepo(journal.DefaultCap))

	// TODO: swap the loopback engine for the PJSIP-backed one once its cgo
	// bindings land; the factory seam is the only place that changes.
	engineFactory := func(p profile.Profile) (engine.Engine, error) {
		return engine.NewMemoryEngine(), nil
	}

	audioCtl := audio.NewMemoryController()
	mgr := session.NewManager(log, engineFactory, audioCtl, jnl)

	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		if err := mgr.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("session loop failed", "err", err)
			stop()
		}
	}()

	// Optional startup profile: initialize before serving so the first UI
	// request already sees a live session.
	if cfg.SIP.ProfileFile != "" {
		p, err := profile.LoadFile(cfg.SIP.ProfileFile)
		if err != nil {
			log.Error("profile load failed", "file", cfg.SIP.ProfileFile, "err", err)
			os.Exit(1)
		}
		initCtx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
		if err := mgr.Initialize(initCtx, p); err != nil {
			log.Error("session initialize failed", "err", err)
		}
		cancel()
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, log, authManager, mgr, jnl, audioCtl)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("softphoned listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	select {
	case <-sessionDone:
	case <-shutdownCtx.Done():
		log.Error("session loop did not stop in time")
	}
}
