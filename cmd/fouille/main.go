// Entry point for the fouille service: deep search over HTTP, with an
// optional MCP stdio transport exposing the same operations.
package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/natefinch/lumberjack.v2"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/fouille/dbopen"
	"github.com/hazyhaar/fouille/deepsearch"
	"github.com/hazyhaar/fouille/shield"
)

func main() {
	port := env("PORT", "8086")
	dbPath := env("DB_PATH", "db/fouille.db")
	archiveDir := env("ARCHIVE_DIR", "")
	userAgent := env("USER_AGENT", "")
	configPath := env("CONFIG", "")
	mcpTransport := env("MCP_TRANSPORT", "")
	logLevel := env("LOG_LEVEL", "info")
	logFile := env("LOG_FILE", "")

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	var logOut io.Writer = os.Stdout
	if logFile != "" {
		logOut = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Configuration: YAML file when given, env overrides on top.
	cfg := deepsearch.Config{}
	if configPath != "" {
		loaded, err := deepsearch.LoadConfigFile(configPath)
		if err != nil {
			slog.Error("config", "path", configPath, "error", err)
			os.Exit(1)
		}
		cfg = *loaded
	}
	if archiveDir != "" {
		cfg.ArchiveDir = archiveDir
	}
	if userAgent != "" {
		cfg.UserAgent = userAgent
	}

	// Database.
	db, err := dbopen.Open(dbPath, dbopen.WithMkdirAll(), dbopen.WithSchema(deepsearch.StoreSchema))
	if err != nil {
		slog.Error("open db", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := deepsearch.New(db, cfg, logger)
	svc.StartMaintenance(ctx.Done(), 5*time.Minute)

	// MCP stdio mode: serve tools over stdin/stdout and exit.
	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "fouille",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)
		slog.Info("MCP stdio starting")
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			slog.Error("MCP stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	// Router.
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack() {
		r.Use(mw)
	}
	registerRoutes(r, svc)

	// HTTP server.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
