package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notification-system/internal/api/handlers"
	"notification-system/internal/config"
	"notification-system/internal/infrastructure/rest"
	"notification-system/internal/infrastructure/websocket"
	"notification-system/internal/services"
	"notification-system/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New()
	log.Info("Starting notify agent")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Agent.UserID == "" {
		log.Error("agent.user_id is required (AGENT_USER_ID)")
		os.Exit(1)
	}

	// Initialize the session components
	connManager := websocket.NewConnectionManager(cfg.Agent.ServerURL, cfg.Agent.IdentifyTimeout, log)
	registry := websocket.NewSubscriptionRegistry(log)
	feedStore := services.NewFeedStore(cfg.Agent.FeedCapacity, log)
	apiClient := rest.NewNotificationClient(cfg.Agent.APIBaseURL, cfg.Agent.UserID, log)

	feedSync := services.NewFeedSynchronizer(connManager, registry, feedStore, apiClient, log)

	// Diagnostics wildcard observer
	registry.OnAny(func(event string, data json.RawMessage) {
		log.Debug("Push event received", "event", event, "bytes", len(data))
	})

	connManager.SetOnStateChange(func(connected bool) {
		log.Info("Connection state changed", "connected", connected)
	})

	// Initialize resync scheduler
	resync := services.NewResyncScheduler(feedSync, cfg.Agent.ResyncInterval, log)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.POST, echo.DELETE, echo.OPTIONS,
		},
	}))

	// Initialize handlers
	feedHandler := handlers.NewFeedHandler(feedSync, log)

	// Feed routes
	e.GET("/feed", feedHandler.GetFeed)
	e.POST("/feed/read-all", feedHandler.MarkAllRead)
	e.POST("/feed/:id/read", feedHandler.MarkRead)
	e.DELETE("/feed/:id", feedHandler.DeleteNotification)

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "notify-agent",
			"connected": feedSync.Connected(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Start the feed session
	go func() {
		startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := feedSync.Start(startCtx, cfg.Agent.UserID); err != nil {
			// Push events keep flowing; the resync scheduler will fill
			// the snapshot in.
			log.Warn("Initial snapshot fetch failed", "error", err)
		}
	}()

	if err := resync.Start(context.Background()); err != nil {
		log.Error("Failed to start resync scheduler", "error", err)
		os.Exit(1)
	}

	// Start local API server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Agent.Host, cfg.Agent.Port)

	go func() {
		log.Info("Starting agent API", "address", serverAddr, "user_id", cfg.Agent.UserID)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down notify agent...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := resync.Stop(); err != nil {
		log.Error("Failed to stop resync scheduler", "error", err)
	}
	feedSync.Stop()

	if err := e.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Notify agent stopped")
}
