package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"java-quest-backend/handlers"
	"java-quest-backend/models"
	"java-quest-backend/services"
	"java-quest-backend/utils"
	"java-quest-backend/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		AppName: "Java Quest Backend",
	})

	// CORS for the game client origins
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOriginsString,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.ProgressEvent{},
		&models.BadgeType{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// Optional Redis mirror for rank lookups
	var rdb *redis.Client
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL:", err)
		}
		rdb = redis.NewClient(opts)
	}

	userService := services.NewUserService(db, jwtSecret)
	progressService := services.NewProgressService(db)
	leaderboardService := services.NewLeaderboardService(db, rdb)
	badgeService := services.NewBadgeService(db)

	progressService.Mirror = leaderboardService

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := badgeService.SeedCatalog(ctx); err != nil {
		log.Fatal("failed to seed badge catalog:", err)
	}

	if rdb != nil {
		if err := leaderboardService.RebuildMirror(ctx); err != nil {
			log.Printf("⚠️  Initial leaderboard mirror rebuild failed: %v", err)
		}
		leaderboardService.StartMirrorScheduler()
	}

	// Daily progress snapshot to R2 (optional)
	if utils.R2Configured() {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		exporter := workers.NewSnapshotExporter(db)
		go workers.RunExportLoop(ctx, exporter, 24*time.Hour)
		log.Println("✅ Snapshot exporter running (every 24h)")
	}

	handlers.SetupAuthRoutes(app, userService)
	handlers.SetupGamificationRoutes(app, progressService, leaderboardService, badgeService, []byte(jwtSecret))

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)
	if rdb != nil {
		log.Println("✅ Redis leaderboard mirror enabled")
	}

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
