package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"anoa.com/studentcommunity/internal/bootstrap"
	"anoa.com/studentcommunity/internal/config"
	"anoa.com/studentcommunity/internal/server"
	"anoa.com/studentcommunity/pkg/database"
	"anoa.com/studentcommunity/pkg/storage"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect(cfg.DatabaseDSN())
	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if err := bootstrap.SeedRoles(db); err != nil {
		log.Fatalf("failed to seed roles: %v", err)
	}

	if cfg.IsDevelopment() {
		if err := bootstrap.SeedAdminUser(db); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
		if err := bootstrap.SeedDemoUsers(db); err != nil {
			log.Fatalf("failed to seed demo users: %v", err)
		}
	}

	redisClient := connectRedis(cfg.RedisURL)

	var imageStorage storage.ImageStorage
	imageStorage, err = storage.NewCloudinaryStorage(cfg.CloudinaryURL, cfg.CloudinaryUploadFolder)
	if errors.Is(err, storage.ErrNotConfigured) {
		log.Println("CLOUDINARY_URL not set, avatar uploads disabled")
		imageStorage = nil
	} else if err != nil {
		log.Fatalf("failed to initialize cloudinary storage: %v", err)
	}

	srv, err := server.NewServer(cfg, db, redisClient, imageStorage)
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}
	srv.Start()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server exited with error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	srv.Shutdown()

	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// connectRedis returns nil when REDIS_URL is unset or unreachable. Live
// pushes then stay in-process and views are counted directly.
func connectRedis(rawURL string) *redis.Client {
	if rawURL == "" {
		log.Println("REDIS_URL not set, running without redis")
		return nil
	}

	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unreachable, running without it: %v", err)
		_ = client.Close()
		return nil
	}
	return client
}
