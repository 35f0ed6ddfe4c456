package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string `validate:"required"`
	Port           string `validate:"required"`
	AllowedOrigins string

	// StorageDriver selects the ledger backend: "postgres" or "file".
	StorageDriver string `validate:"oneof=postgres file"`

	DBHost string
	DBUser string
	DBPass string
	DBName string
	DBPort string

	// LedgerFile is the JSON document path for the file driver.
	LedgerFile string

	RedisURL string

	// PolicyFile overrides the built-in channel policy table.
	PolicyFile string

	// GlobalDailyCap limits total points per user per logical day across all
	// channels; 0 disables the cap.
	GlobalDailyCap int `validate:"gte=0"`

	SnapshotDir string

	// SnapshotUpload enables off-site upload of snapshot artifacts
	// (requires Cloudinary credentials in the environment).
	SnapshotUpload bool
	SnapshotFolder string

	JWTSecret string `validate:"required"`

	// AdminSecretHash is the bcrypt hash the token endpoint checks admin
	// credentials against. Empty disables token issuing (pre-issued tokens
	// keep working).
	AdminSecretHash string

	TokenTTL time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		StorageDriver: getEnv("STORAGE_DRIVER", "file"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBUser: getEnv("DB_USER", "postgres"),
		DBPass: os.Getenv("DB_PASS"),
		DBName: getEnv("DB_NAME", "dulgi"),
		DBPort: getEnv("DB_PORT", "5432"),

		LedgerFile: getEnv("LEDGER_FILE", "data/ledger.json"),

		RedisURL: os.Getenv("REDIS_URL"),

		PolicyFile: os.Getenv("POLICY_FILE"),

		SnapshotDir:    getEnv("SNAPSHOT_DIR", "data/snapshots"),
		SnapshotUpload: getEnv("SNAPSHOT_UPLOAD", "false") == "true",
		SnapshotFolder: getEnv("SNAPSHOT_FOLDER", "ledger_snapshots"),

		JWTSecret:       getEnv("JWT_SECRET", "12345"),
		AdminSecretHash: os.Getenv("ADMIN_SECRET_HASH"),
	}

	globalCap, err := strconv.Atoi(getEnv("GLOBAL_DAILY_CAP", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid GLOBAL_DAILY_CAP: %w", err)
	}
	cfg.GlobalDailyCap = globalCap

	cfg.TokenTTL, err = time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
