package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string
	JWTSecret      string

	DBHost string
	DBUser string
	DBPass string
	DBName string
	DBPort string

	RedisURL string

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryURL          string
	CloudinaryUploadFolder string

	ViewSyncSchedule            string
	XpResyncSchedule            string
	NotificationCleanupSchedule string
	NotificationRetention       time.Duration
	AttachmentCleanupSchedule   string
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		JWTSecret:      getEnv("JWT_SECRET", "12345"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBUser: getEnv("DB_USER", "postgres"),
		DBPass: os.Getenv("DB_PASS"),
		DBName: getEnv("DB_NAME", "student_community"),
		DBPort: getEnv("DB_PORT", "5432"),

		RedisURL: os.Getenv("REDIS_URL"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryURL:          os.Getenv("CLOUDINARY_URL"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "student_community"),

		ViewSyncSchedule:            getEnv("VIEW_SYNC_SCHEDULE", "@every 1m"),
		XpResyncSchedule:            getEnv("XP_RESYNC_SCHEDULE", "0 3 * * *"),
		NotificationCleanupSchedule: getEnv("NOTIFICATION_CLEANUP_SCHEDULE", "0 4 * * *"),
		AttachmentCleanupSchedule:   getEnv("ATTACHMENT_CLEANUP_SCHEDULE", "0 */12 * * *"),
	}

	var err error
	cfg.NotificationRetention, err = parseDuration(getEnv("NOTIFICATION_RETENTION", "2160h"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFICATION_RETENTION: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN builds the postgres connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, c.DBPort,
	)
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
