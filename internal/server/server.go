package server

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/dulgistudio/dulgi/internal/config"
	"github.com/dulgistudio/dulgi/internal/ledger"
	"github.com/dulgistudio/dulgi/internal/middleware"
	"github.com/dulgistudio/dulgi/internal/policy"
	"github.com/dulgistudio/dulgi/internal/scheduler"
	"github.com/dulgistudio/dulgi/pkg/response"
	"github.com/dulgistudio/dulgi/pkg/storage"

	accrualHttp "github.com/dulgistudio/dulgi/internal/modules/accrual/delivery/http"
	accrualService "github.com/dulgistudio/dulgi/internal/modules/accrual/service"

	attendanceHttp "github.com/dulgistudio/dulgi/internal/modules/attendance/delivery/http"
	attendanceService "github.com/dulgistudio/dulgi/internal/modules/attendance/service"

	authHttp "github.com/dulgistudio/dulgi/internal/modules/auth/delivery/http"
	authService "github.com/dulgistudio/dulgi/internal/modules/auth/service"

	notifHttp "github.com/dulgistudio/dulgi/internal/modules/notification/delivery/http"
	notifWs "github.com/dulgistudio/dulgi/internal/modules/notification/delivery/ws"
	notifRepo "github.com/dulgistudio/dulgi/internal/modules/notification/repository"
	notifService "github.com/dulgistudio/dulgi/internal/modules/notification/service"

	reportHttp "github.com/dulgistudio/dulgi/internal/modules/report/delivery/http"
	reportService "github.com/dulgistudio/dulgi/internal/modules/report/service"

	snapshotHttp "github.com/dulgistudio/dulgi/internal/modules/snapshot/delivery/http"
	snapshotService "github.com/dulgistudio/dulgi/internal/modules/snapshot/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	redisClient *redis.Client
	scheduler   *scheduler.Scheduler
}

// NewServer wires every module. db may be nil under the file ledger driver
// (notification history is then kept in-memory only); redisClient may be nil
// when no Redis is configured.
func NewServer(cfg *config.Config, store ledger.Store, db *gorm.DB, redisClient *redis.Client) *Server {
	policies := loadPolicies(cfg)

	// Notification Module
	var notificationRepository notifRepo.NotificationRepository
	if db != nil {
		notificationRepository = notifRepo.NewNotificationRepository(db)
	}
	hub := notifWs.NewHub()
	notificationSvc := notifService.NewNotificationService(notificationRepository, redisClient, hub)
	notificationHandler := notifHttp.NewNotificationHandler(notificationSvc)

	accrualSvc := accrualService.NewAccrualService(store, policies, cfg.GlobalDailyCap, notificationSvc)
	accrualHandler := accrualHttp.NewAccrualHandler(accrualSvc)

	attendanceSvc := attendanceService.NewAttendanceService(store, policies, cfg.GlobalDailyCap, notificationSvc)
	attendanceHandler := attendanceHttp.NewAttendanceHandler(attendanceSvc)

	reportSvc := reportService.NewReportService(store, policies, redisClient)
	reportHandler := reportHttp.NewReportHandler(reportSvc)

	var blobs storage.BlobStorage
	if cfg.SnapshotUpload {
		var err error
		blobs, err = storage.NewCloudinaryStorage(cfg.SnapshotFolder)
		if err != nil {
			log.Fatalf("failed to initialize cloudinary storage: %v", err)
		}
	}
	snapshotSvc := snapshotService.NewSnapshotService(store, cfg.SnapshotDir, blobs)
	snapshotHandler := snapshotHttp.NewSnapshotHandler(snapshotSvc)

	authSvc := authService.NewAuthService(cfg.JWTSecret, cfg.AdminSecretHash, cfg.TokenTTL)
	authHandler := authHttp.NewAuthHandler(authSvc)

	sched := scheduler.New()
	if job, ok := snapshotSvc.(scheduler.Job); ok {
		sched.Register(job)
	}

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health"},
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/token", authHandler.IssueToken)
	}

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Admin routes
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.POST("/snapshots", snapshotHandler.CreateSnapshot)
			adminGroup.GET("/snapshots/download", snapshotHandler.DownloadSnapshot)
			adminGroup.POST("/snapshots/restore", snapshotHandler.Restore)
			adminGroup.GET("/reports/export", reportHandler.GetLeaderboard)
			adminGroup.POST("/jobs/:name/run", runJobHandler(sched))
		}

		// Event ingestion (trusted gateway)
		protected.POST("/events", accrualHandler.IngestEvent)
		protected.POST("/checkins", attendanceHandler.CheckIn)

		// Report routes
		protected.GET("/reports/users/:id/weekly", reportHandler.GetWeeklyTotal)
		protected.GET("/reports/users/:id/monthly", reportHandler.GetMonthlyTotal)
		protected.GET("/reports/users/:id/summary", reportHandler.GetWeeklySummary)
		protected.GET("/reports/users/:id/tile", reportHandler.GetDayTile)
		protected.GET("/leaderboard", reportHandler.GetLeaderboard)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.GetUnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", hub.Subscribe)
	}

	return &Server{
		engine:      router,
		redisClient: redisClient,
		scheduler:   sched,
	}
}

func (s *Server) Run(addr string) error {
	s.scheduler.Start()
	defer s.scheduler.Stop()
	return s.engine.Run(addr)
}

// runJobHandler triggers one registered scheduler job out of schedule, e.g.
// an extra snapshot before a risky migration.
func runJobHandler(sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if err := sched.RunByName(c.Request.Context(), name); err != nil {
			if errors.Is(err, scheduler.ErrUnknownJob) {
				c.JSON(404, gin.H{"error": err.Error()})
				return
			}
			response.ResponseError(c, err)
			return
		}
		c.JSON(200, gin.H{"data": gin.H{"job": name, "triggered": true}})
	}
}

func loadPolicies(cfg *config.Config) *policy.Table {
	if cfg.PolicyFile != "" {
		table, err := policy.LoadFile(cfg.PolicyFile)
		if err != nil {
			log.Fatalf("failed to load policy file %s: %v", cfg.PolicyFile, err)
		}
		log.Printf("📋 channel policies loaded from %s", cfg.PolicyFile)
		return table
	}
	return policy.Default()
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
