package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds runtime settings for both services.
type Config struct {
	ServerAddr            string
	UploadsDir            string
	OutputDir             string
	MaxUploadMB           int
	ConvertTimeoutMinutes int

	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	AuthAddr      string
	DatabaseURL   string
	JWTSecret     string
	TokenTTLHours int
}

// Load reads environment variables and returns normalized runtime config.
func Load() Config {
	return Config{
		ServerAddr:            getEnv("SERVER_ADDR", ":3002"),
		UploadsDir:            getEnv("UPLOADS_DIR", "./uploads"),
		OutputDir:             getEnv("OUTPUT_DIR", "./output"),
		MaxUploadMB:           getEnvInt("MAX_UPLOAD_MB", 100),
		ConvertTimeoutMinutes: getEnvInt("CONVERT_TIMEOUT_MINUTES", 30),

		S3Bucket:       strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:     strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
		S3UsePathStyle: getEnv("S3_USE_PATH_STYLE", "") == "true",

		AuthAddr:      getEnv("AUTH_ADDR", ":3000"),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenTTLHours: getEnvInt("TOKEN_TTL_HOURS", 24),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	var out int
	_, err := fmt.Sscanf(value, "%d", &out)
	if err != nil || out <= 0 {
		return fallback
	}
	return out
}
