package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/soarhub-io/helios-connector/pkg/api"
	"github.com/soarhub-io/helios-connector/pkg/commands"
	"github.com/soarhub-io/helios-connector/pkg/config"
	"github.com/soarhub-io/helios-connector/pkg/helios"
	"github.com/soarhub-io/helios-connector/pkg/services"
	"github.com/soarhub-io/helios-connector/pkg/state"
)

func main() {
	// Configure Log Level from Environment Variable
	logLevelStr := os.Getenv("LOG_LEVEL")
	switch strings.ToLower(logLevelStr) {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
	logrus.Infof("Log level set to: %s", logrus.GetLevel().String())

	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Set up the Helios client
	heliosClient, err := helios.NewClient(&cfg.Helios)
	if err != nil {
		logrus.Fatalf("Failed to create Helios client: %v", err)
	}

	// Set up the watermark store
	var store state.Store
	switch cfg.State.Backend {
	case "redis":
		redisStore, err := state.NewRedisStore(cfg.State.Redis)
		if err != nil {
			logrus.Fatalf("Failed to create Redis watermark store: %v", err)
		}
		defer redisStore.Close()
		store = redisStore
	default:
		logrus.Warn("Using in-memory watermark store; the poll watermark will not survive restarts")
		store = state.NewMemoryStore()
	}

	// Set up the incident sink
	var sink services.IncidentSink
	if cfg.Host.IngestURL != "" {
		sink = services.NewHTTPSink(cfg.Host.IngestURL)
	} else {
		logrus.Warn("No host ingest URL configured; incidents will only be logged")
		sink = services.LogSink{}
	}

	// Initialize services
	alertService := services.NewAlertService(heliosClient, cfg.Helios.MaxFetch)
	fetchService := services.NewFetchService(heliosClient, store, sink, cfg.Helios.MaxFetch, cfg.Poll.Lookback)
	dispatcher := commands.NewDispatcher(alertService, fetchService)

	// Start the background poller when enabled
	ctx := context.Background()
	var poller *services.Poller
	if cfg.Poll.Enabled {
		poller = services.NewPoller(fetchService, cfg.Poll.Interval)
		poller.Start(ctx)
	}

	// Set up the Echo server
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// API routes
	apiHandler := api.NewAPIHandler(dispatcher)
	apiHandler.SetupRoutes(e)

	// Create HTTP server
	// Use PORT environment variable if available, otherwise use config
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		logrus.Infof("Starting server on port %s", port)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Shutdown the poller first so no fetch cycle races the exit
	if poller != nil {
		poller.Shutdown()
	}

	// Create a deadline for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Shutdown the server
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited properly")
}
