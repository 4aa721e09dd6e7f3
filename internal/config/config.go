package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Log         LogConfig
	AnalysisAPI AnalysisAPIConfig
	Blob        BlobConfig
	Session     SessionConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Storage     StorageConfig
	Batch       BatchConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

type AnalysisAPIConfig struct {
	BaseURL        string
	Username       string
	Password       string
	RevisionID     string
	FeedbackUserID string
}

// BlobConfig covers both supported object stores. Provider picks which
// half is used.
type BlobConfig struct {
	Provider string

	AccountURL string
	SASToken   string
	Container  string

	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
}

type SessionConfig struct {
	Store      string
	TTL        time.Duration
	CookieName string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	MaxFileSize int64
}

type BatchConfig struct {
	Delay       time.Duration
	Concurrency int
}

const (
	BlobProviderAzure = "azure"
	BlobProviderS3    = "s3"

	SessionStoreMemory   = "memory"
	SessionStoreRedis    = "redis"
	SessionStorePostgres = "postgres"
)

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Log: LogConfig{
			JSON:  getEnvAsBool("LOG_JSON", false),
			Debug: getEnvAsBool("LOG_DEBUG", false),
		},
		AnalysisAPI: AnalysisAPIConfig{
			BaseURL:        getEnv("API_BASE_URL", "http://localhost:8000/api/v1"),
			Username:       getEnv("API_USERNAME", ""),
			Password:       getEnv("API_PASSWORD", ""),
			RevisionID:     getEnv("REVISION_ID", "5ccc4a42-1e24-4b82-a550-e7e9c6ffa48b"),
			FeedbackUserID: getEnv("FEEDBACK_USER_ID", "streamlit_user"),
		},
		Blob: BlobConfig{
			Provider:    getEnv("BLOB_PROVIDER", BlobProviderAzure),
			AccountURL:  getEnv("AZURE_BLOB_STORAGE_URL", ""),
			SASToken:    getEnv("AZURE_BLOB_SAS_TOKEN", ""),
			Container:   getEnv("AZURE_BLOB_CONTAINER", "hr-app-data"),
			S3Endpoint:  getEnv("S3_ENDPOINT", ""),
			S3Region:    getEnv("S3_REGION", "auto"),
			S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey: getEnv("S3_SECRET_KEY", ""),
			S3Bucket:    getEnv("S3_BUCKET", "hr-app-data"),
		},
		Session: SessionConfig{
			Store:      getEnv("SESSION_STORE", SessionStoreMemory),
			TTL:        getEnvAsDuration("SESSION_TTL", "2h"),
			CookieName: getEnv("SESSION_COOKIE", "cv_session"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "cv_analysis"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Batch: BatchConfig{
			Delay:       getEnvAsDuration("BATCH_DELAY", "500ms"),
			Concurrency: getEnvAsInt("BATCH_CONCURRENCY", 1),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
