package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xelth-com/shopvidgo/internal/ads"
	"github.com/xelth-com/shopvidgo/internal/ads/googleads"
	"github.com/xelth-com/shopvidgo/internal/analysis"
	"github.com/xelth-com/shopvidgo/internal/config"
	"github.com/xelth-com/shopvidgo/internal/database"
	"github.com/xelth-com/shopvidgo/internal/handlers"
	"github.com/xelth-com/shopvidgo/internal/review"
	"github.com/xelth-com/shopvidgo/internal/submission"
	"github.com/xelth-com/shopvidgo/internal/utils"
	"github.com/xelth-com/shopvidgo/internal/websocket"
)

// adsProvider registers every usable provider and returns the configured one
func adsProvider(ctx context.Context, cfg config.AdsConfig) ads.ProviderInterface {
	registry := ads.NewRegistry()
	if err := registry.Register(ads.LogProvider{}); err != nil {
		log.Fatalf("Failed to register log provider: %v", err)
	}

	if cfg.Enabled() {
		gp, err := googleads.NewProvider(ctx, googleads.Config{
			DeveloperToken:  cfg.DeveloperToken,
			ClientID:        cfg.ClientID,
			ClientSecret:    cfg.ClientSecret,
			RefreshToken:    cfg.RefreshToken,
			LoginCustomerID: cfg.LoginCustomerID,
			APIVersion:      cfg.APIVersion,
		})
		if err != nil {
			log.Printf("⚠️ Ads: Failed to init Google Ads provider: %v", err)
		} else if err := registry.Register(gp); err != nil {
			log.Printf("⚠️ Ads: Failed to register Google Ads: %v", err)
		} else {
			log.Println("✅ Ads: Google Ads provider registered")
		}
	}

	code := cfg.Provider
	if code == "" {
		code = ads.LogCode
		if cfg.Enabled() {
			code = googleads.Code
		}
	}

	provider, err := registry.Get(code)
	if err != nil {
		log.Printf("⚠️ Ads: %v, falling back to %s (available: %v)", err, ads.LogCode, registry.Codes())
		provider, _ = registry.Get(ads.LogCode)
	}
	return provider
}

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 3. Auto-Migrate Schema
	log.Println("🚀 Synchronizing database schema...")
	if err := db.Migrate(); err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	ctx := context.Background()

	if cfg.Review.BootstrapEmail != "" && cfg.Review.BootstrapPassword != "" {
		hash, err := utils.HashPassword(cfg.Review.BootstrapPassword)
		if err != nil {
			log.Fatalf("Failed to hash bootstrap password: %v", err)
		}
		if err := db.EnsureUser(ctx, cfg.Review.BootstrapEmail, hash); err != nil {
			log.Printf("⚠️ Failed to create bootstrap reviewer: %v", err)
		}
	}

	// 4. Review services
	hub := websocket.NewHub(cfg.Server.CORSAllowedOrigins...)
	go hub.Run()

	reviews := review.NewService(review.NewGormStore(db.DB)).WithNotifier(hub)
	analyses := analysis.NewService(analysis.NewGormRepository(db.DB), reviews)
	reviews.WithGroupKeys(analyses.GroupKey)

	if cfg.YouTube.APIKey != "" {
		fetcher, err := analysis.NewYouTubeFetcher(ctx, cfg.YouTube.APIKey)
		if err != nil {
			log.Printf("⚠️ YouTube: metadata lookup disabled: %v", err)
		} else {
			analyses.WithMetadata(fetcher)
			log.Println("✅ YouTube: metadata lookup enabled")
		}
	}

	// 5. Submission queue and dispatch worker
	provider := adsProvider(ctx, cfg.Ads)
	insertions := submission.NewGormStore(db.DB)
	queue := submission.NewQueue(insertions, reviews)
	worker := submission.NewWorker(insertions, provider, reviews, submission.WorkerConfig{
		Interval:         time.Duration(cfg.Ads.DispatchInterval) * time.Second,
		DefaultCPCMicros: cfg.Ads.DefaultCPCMicros,
	})
	queue.OnQueued(worker.Trigger)
	worker.Start()

	// 6. Set up HTTP router
	router := handlers.NewRouter(handlers.Services{
		Analysis:           analyses,
		Reviews:            reviews,
		Queue:              queue,
		Ads:                provider,
		Hub:                hub,
		Users:              db,
		JWTSecret:          cfg.JWTSecret,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		FrontendDir:        cfg.Server.FrontendDir,
	})

	// 7. Start server with graceful shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.Handler(),
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 Review API (%s) starting on port %s", cfg.NodeEnv, cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Let the in-flight dispatch finish before the database goes away
	worker.Stop()
	hub.Stop()

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
