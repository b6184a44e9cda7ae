package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scoretracker/config"
	_ "scoretracker/docs"
	"scoretracker/handlers"
	"scoretracker/middleware"
	"scoretracker/models"
	"scoretracker/routes"
	"scoretracker/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

// @title        Scoretracker API
// @version      1.0
// @description  Games, players, per-round scores and scoreboards.
// @BasePath     /
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	// Load configuration
	cfg := config.Load()
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to read database handle:", err)
	}
	defer sqlDB.Close()

	if cfg.Migrate {
		if err := models.AutoMigrate(db); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("[DB] Schema migrated")
	}

	// Redis is optional: without it there is no scoreboard cache and no
	// live feed.
	redisClient := config.InitRedis(cfg)
	var (
		cache services.ScoreboardCache
		feed  services.ScoreboardFeed
	)
	if redisClient != nil {
		defer redisClient.Close()
		store := services.NewRedisScoreboardStore(redisClient, cfg.CacheTTL)
		cache = store
		feed = store
	}

	// Initialize services and handlers
	scoreboardService := services.NewScoreboardService(db, cache, feed)
	scoreboardHandler := handlers.NewScoreboardHandler(scoreboardService)
	liveHandler := handlers.NewLiveHandler(scoreboardService, feed, cfg.AllowedOrigins)
	healthHandler := handlers.NewHealthHandler(db, redisClient)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	var writeMiddleware []gin.HandlerFunc
	if cfg.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
		writeMiddleware = append(writeMiddleware, limiter.Middleware())
	}

	routes.SetupRoutes(router, scoreboardHandler, liveHandler, healthHandler, writeMiddleware...)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
