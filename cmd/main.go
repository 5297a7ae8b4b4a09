package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"giveaway-referrals/internal/admission"
	"giveaway-referrals/internal/auth"
	"giveaway-referrals/internal/config"
	"giveaway-referrals/internal/database"
	"giveaway-referrals/internal/handlers"
	"giveaway-referrals/internal/jobs"
	"giveaway-referrals/internal/middleware"
	"giveaway-referrals/internal/repository"
	"giveaway-referrals/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	repo := repository.NewRepository(database.GetDB())

	// Leaderboard cache is optional
	var cache services.LeaderboardCache
	if client := database.ConnectRedis(cfg.Redis); client != nil {
		defer client.Close()
		cache = services.NewRedisLeaderboardCache(client, cfg.Redis.CacheTTL)
	}

	// Initialize services
	leaderboardService := services.NewLeaderboardService(repo, cache)
	campaignService := services.NewCampaignService(repo, leaderboardService)
	referralService := services.NewReferralService(
		repo,
		admission.NewPolicy(cfg.Referral.Mode),
		leaderboardService,
		cfg.Referral.RetryBackoff,
	)
	userService := services.NewUserService(repo)
	log.Printf("Referral admission mode: %s", cfg.Referral.Mode)

	// Start campaign expiry job
	expiryJob := jobs.NewCampaignExpiryJob(repo)
	if err := expiryJob.Start(cfg.Jobs.CampaignExpiryInterval); err != nil {
		log.Fatalf("Failed to start campaign expiry job: %v", err)
	}
	log.Printf("Campaign expiry job started (every %s)", cfg.Jobs.CampaignExpiryInterval)

	limiter := middleware.NewRateLimiter(cfg.Referral.RateLimit, cfg.Referral.RateBurst)
	defer limiter.Close()

	// Set up Gin router
	router := gin.Default()

	// Client addresses are the dedup origin, so only configured proxies may
	// set X-Forwarded-For.
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if cfg.Server.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.Server.FrontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handlers.RegisterRoutes(router, handlers.Routes{
		Referrals:    handlers.NewReferralHandler(referralService, cfg.Referral.SessionCookie, cfg.Referral.SecureCookie),
		Leaderboards: handlers.NewLeaderboardHandler(leaderboardService),
		Campaigns:    handlers.NewCampaignHandler(campaignService),
		Users:        handlers.NewUserHandler(userService),
		Limiter:      limiter,
		Store:        repo,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if err := expiryJob.Stop(); err != nil {
		log.Printf("Campaign expiry job did not stop cleanly: %v", err)
	}

	log.Println("Server exited")
}
