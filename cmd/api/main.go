package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/snapfeed/snapfeed-backend/internal/config"
	"github.com/snapfeed/snapfeed-backend/internal/database"
	"github.com/snapfeed/snapfeed-backend/internal/handler"
	"github.com/snapfeed/snapfeed-backend/internal/middleware"
	"github.com/snapfeed/snapfeed-backend/internal/migration"
	"github.com/snapfeed/snapfeed-backend/internal/repository"
	"github.com/snapfeed/snapfeed-backend/internal/routes"
	"github.com/snapfeed/snapfeed-backend/internal/service"
	"github.com/snapfeed/snapfeed-backend/pkg/jwt"
	pkglogger "github.com/snapfeed/snapfeed-backend/pkg/logger"
	pkgredis "github.com/snapfeed/snapfeed-backend/pkg/redis"
	pkgstorage "github.com/snapfeed/snapfeed-backend/pkg/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           Snapfeed Backend API
// @version         1.0
// @description     Photo sharing API with likes and dislikes on photos and comments
//
// @license.name    MIT
//
// @host            localhost:8081
// @BasePath        /
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Authorization header using the Bearer scheme. Example: "Bearer {token}"

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv(".")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	configPath := getConfigPath()
	pkglogger.Info("Loading config from: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.LogResolved(cfg)

	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	pkglogger.Info("Connected to %s", cfg.Database.Driver)
	if err := migration.Run(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// Redis is optional; rate limits fall back to in-process buckets without it
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
		)
		if err != nil {
			pkglogger.Warn("Failed to connect to Redis: %v (continuing without Redis)", err)
			redisClient = nil
		} else {
			pkglogger.Info("Connected to Redis")
		}
	}

	uploader, err := initStorage(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}

	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	// Repositories
	photoRepo := repository.NewPhotoRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	transactor := repository.NewTransactor(db)

	// Services
	observers := service.ReactionObservers{service.NewLogObserver(), service.NewMetricsObserver()}
	feedService := service.NewFeedService(photoRepo, reactionRepo, cfg.Feed.DefaultLimit, cfg.Feed.MaxLimit)
	photoService := service.NewPhotoService(photoRepo, feedService, uploader, clockwork.NewRealClock(), cfg.MaxUploadBytes())
	reactionService := service.NewReactionService(photoRepo, transactor, observers)

	// Handlers
	reactionHandler := handler.NewReactionHandler(reactionService)
	photoHandler := handler.NewPhotoHandler(feedService, photoService)
	commentHandler := handler.NewCommentHandler(photoService)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = cfg.MaxUploadBytes()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOriginList(),
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-CSRF-Token", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining"},
		MaxAge:           12 * time.Hour,
	}))

	// Middleware
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.InputSanitizer())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	rateCfg := middleware.DefaultRateLimitConfig()
	rateCfg.RequestsPerMinute = cfg.RateLimit.RequestsPerMinute
	router.Use(middleware.RateLimit(redisClient, rateCfg))
	router.Use(middleware.CSRFProtection(cfg.Server.CrossSiteCookies, "/admin/login", "/api/auth/refresh"))

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = http.StatusServiceUnavailable
			dbStatus = "unreachable"
		} else {
			middleware.SetDBConnectionsOpen(sqlDB.Stats().OpenConnections)
		}
		c.JSON(status, gin.H{
			"status":  dbStatus,
			"service": "snapfeed-backend",
			"redis":   redisClient != nil,
			"storage": uploader.State(),
			"time":    time.Now().Unix(),
		})
	})

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.Setup(router, reactionHandler, photoHandler, commentHandler, jwtManager, redisClient, cfg)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "not found"}})
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	pkglogger.Info("Server listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	level := gormlogger.Warn
	if cfg.IsDevelopment() {
		level = gormlogger.Info
	}
	db, err := database.Open(cfg.Database, level)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		middleware.SetDBConnectionsOpen(sqlDB.Stats().OpenConnections)
	}
	return db, nil
}

// initStorage picks the image backend named by storage.provider
func initStorage(cfg config.StorageConfig) (*pkgstorage.BreakerUploader, error) {
	switch cfg.Provider {
	case "s3":
		client, err := pkgstorage.NewS3Client(pkgstorage.S3Config{
			Endpoint:        cfg.Endpoint,
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Bucket:          cfg.Bucket,
			CDNURL:          cfg.CDNURL,
			BasePath:        cfg.BasePath,
			ForcePathStyle:  cfg.ForcePathStyle,
		})
		if err != nil {
			return nil, err
		}
		pkglogger.Info("Using S3 storage (bucket=%s)", cfg.Bucket)
		return pkgstorage.NewBreakerUploader("s3", client), nil
	default:
		client, err := pkgstorage.NewCloudinaryClient(pkgstorage.CloudinaryConfig{
			CloudName: cfg.CloudName,
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			Folder:    cfg.Folder,
		})
		if err != nil {
			return nil, err
		}
		pkglogger.Info("Using Cloudinary storage (cloud=%s)", cfg.CloudName)
		return pkgstorage.NewBreakerUploader("cloudinary", client), nil
	}
}
