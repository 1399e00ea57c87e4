package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIRONMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnvironmentVariable struct {
	// All variables
	GO_ENV string
	PORT   int
	// Database Configuration
	DB_DRIVER    string
	DB_PATH      string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	// Redis Configuration
	REDIS_URL string
	// DigitalOcean Configuration
	DO_SPACES_ACCESS_KEY  string
	DO_SPACES_SECRET_KEY  string
	DO_SPACES_BUCKET      string
	DO_SPACES_REGION      string
	DO_SPACES_ENDPOINT    string
	DO_INFERENCE_API_KEY  string
	DO_INFERENCE_BASE_URL string
	DO_INFERENCE_MODEL    string
	AI_TIMEOUT_SECONDS    int
	AI_MAX_RETRIES        int
	// OCR Configuration
	OCR_ENGINE      string
	OCR_SERVICE_URL string
	PDFTOPPM_PATH   string
	// Scheduling & Calendar
	APP_TIMEZONE      string
	FEED_TOKEN_SECRET string
	PUBLIC_BASE_URL   string
	// Server
	CRON_ENABLED    bool
	ALLOWED_ORIGINS string
	MAX_UPLOAD_MB   int
	MAX_PAGES       int
}

func Get() (*EnvironmentVariable, error) {

	port := intOrDefault("PORT", 8080)

	// Database defaults
	dbDriver := stringOrDefault("DB_DRIVER", "postgres")
	dbHost := stringOrDefault("DB_HOST", "localhost")
	dbPort := stringOrDefault("DB_PORT", "5432")
	dbPath := stringOrDefault("DB_PATH", "lesson-planner.db")

	envVariables := &EnvironmentVariable{
		GO_ENV: os.Getenv("GO_ENV"),
		PORT:   port,
		// Database
		DB_DRIVER:    dbDriver,
		DB_PATH:      dbPath,
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  stringOrDefault("DB_SSL_MODE", "disable"),
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// DigitalOcean
		DO_SPACES_ACCESS_KEY:  os.Getenv("DO_SPACES_ACCESS_KEY"),
		DO_SPACES_SECRET_KEY:  os.Getenv("DO_SPACES_SECRET_KEY"),
		DO_SPACES_BUCKET:      os.Getenv("DO_SPACES_BUCKET"),
		DO_SPACES_REGION:      os.Getenv("DO_SPACES_REGION"),
		DO_SPACES_ENDPOINT:    os.Getenv("DO_SPACES_ENDPOINT"),
		DO_INFERENCE_API_KEY:  os.Getenv("DO_INFERENCE_API_KEY"),
		DO_INFERENCE_BASE_URL: os.Getenv("DO_INFERENCE_BASE_URL"),
		DO_INFERENCE_MODEL:    os.Getenv("DO_INFERENCE_MODEL"),
		AI_TIMEOUT_SECONDS:    intOrDefault("AI_TIMEOUT_SECONDS", 60),
		AI_MAX_RETRIES:        intOrDefault("AI_MAX_RETRIES", 3),
		// OCR
		OCR_ENGINE:      stringOrDefault("OCR_ENGINE", "service"),
		OCR_SERVICE_URL: stringOrDefault("OCR_SERVICE_URL", "http://127.0.0.1:8081"),
		PDFTOPPM_PATH:   stringOrDefault("PDFTOPPM_PATH", "pdftoppm"),
		// Scheduling & Calendar
		APP_TIMEZONE:      stringOrDefault("APP_TIMEZONE", "UTC"),
		FEED_TOKEN_SECRET: os.Getenv("FEED_TOKEN_SECRET"),
		PUBLIC_BASE_URL:   stringOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"),
		// Server
		CRON_ENABLED:    os.Getenv("CRON_ENABLED") != "false", // Default to enabled
		ALLOWED_ORIGINS: stringOrDefault("ALLOWED_ORIGINS", "http://localhost:3000"),
		MAX_UPLOAD_MB:   intOrDefault("MAX_UPLOAD_MB", 100),
		MAX_PAGES:       intOrDefault("MAX_PAGES", 2000),
	}

	return envVariables, nil
}

// SpacesConfigured reports whether object storage credentials are present
func (e *EnvironmentVariable) SpacesConfigured() bool {
	return e.DO_SPACES_BUCKET != "" && e.DO_SPACES_REGION != "" &&
		e.DO_SPACES_ACCESS_KEY != "" && e.DO_SPACES_SECRET_KEY != ""
}

func stringOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOrDefault(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
