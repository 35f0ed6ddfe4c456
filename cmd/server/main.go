package main

import (
	"log"

	"github.com/dulgistudio/dulgi/internal/config"
	"github.com/dulgistudio/dulgi/internal/entity"
	"github.com/dulgistudio/dulgi/internal/ledger"
	ledgerFile "github.com/dulgistudio/dulgi/internal/ledger/file"
	ledgerPostgres "github.com/dulgistudio/dulgi/internal/ledger/postgres"
	"github.com/dulgistudio/dulgi/internal/server"
	"github.com/dulgistudio/dulgi/pkg/database"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	var (
		db    *gorm.DB
		store ledger.Store
	)
	switch cfg.StorageDriver {
	case "postgres":
		db, err = database.Connect(cfg.DBHost, cfg.DBUser, cfg.DBPass, cfg.DBName, cfg.DBPort)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		if err := ledgerPostgres.Migrate(db); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		if err := db.AutoMigrate(&entity.Notification{}); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		store = ledgerPostgres.New(db)
		log.Println("🗄️ ledger store: postgres")
	default:
		store, err = ledgerFile.New(cfg.LedgerFile)
		if err != nil {
			log.Fatalf("failed to open ledger file %s: %v", cfg.LedgerFile, err)
		}
		log.Printf("🗄️ ledger store: file (%s)", cfg.LedgerFile)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		log.Println("📡 redis connected for pub/sub and caching")
	} else {
		log.Println("⚠️ REDIS_URL not set, running without pub/sub and caching")
	}

	srv := server.NewServer(cfg, store, db, redisClient)

	log.Printf("🚀 starting server on port %s (%s)", cfg.Port, cfg.AppEnv)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}
