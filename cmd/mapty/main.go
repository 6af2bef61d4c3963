package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/mapty/internal/config"
	maptymcp "github.com/claude/mapty/internal/mcp"
	"github.com/claude/mapty/internal/server"
	"github.com/claude/mapty/internal/session"
	"github.com/claude/mapty/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/redis/go-redis/v9"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	log.Info("Mapty starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Run migrations
	if cfg.Storage.Driver == config.DriverPostgres {
		db := cfg.Storage.Postgres
		if err := storage.RunMigrations(db.DSN(), db.Migrations); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
	}
	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Connect store
	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("store connected", "driver", cfg.Storage.Driver)

	var mirror *redis.Client
	if rs, ok := store.(*storage.RedisStore); ok && cfg.Storage.Redis.MirrorEvents {
		mirror = rs.Client()
		log.Info("mirroring events to redis", "channel", server.EventsChannel)
	}

	// Wire the session to the browser host
	hub := server.NewHub(mirror, log)
	views := server.NewViews(hub)
	mgr := session.NewManager(session.Deps{
		Store:    store,
		Map:      views,
		List:     views,
		Form:     views,
		Notifier: views,
		Log:      log,
	}, session.WithKey(cfg.Storage.Key), session.WithZoom(cfg.Map.Zoom))

	srv := server.New(mgr, hub, views, log, server.WithAllowedOrigin(cfg.Server.AllowedOrigin))
	defer srv.Close()
	if err := srv.StartVisit(ctx); err != nil {
		log.Warn("stored workouts could not be loaded", "error", err)
	}

	mcpSrv := maptymcp.New(maptymcp.ManagerSource{Manager: mgr}, Version, log)
	srv.MountMCP(mcpserver.NewStreamableHTTPServer(mcpSrv))

	// Start server — tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}
	// Open event streams never finish on their own.
	httpSrv.RegisterOnShutdown(hub.Close)

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
