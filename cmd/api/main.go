package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/vidyalaya-labs/vidyalaya-api/api/swagger"
	"github.com/vidyalaya-labs/vidyalaya-api/internal/handler"
	"github.com/vidyalaya-labs/vidyalaya-api/internal/middleware"
	"github.com/vidyalaya-labs/vidyalaya-api/internal/repository"
	"github.com/vidyalaya-labs/vidyalaya-api/internal/router"
	"github.com/vidyalaya-labs/vidyalaya-api/internal/service"
	"github.com/vidyalaya-labs/vidyalaya-api/pkg/cache"
	"github.com/vidyalaya-labs/vidyalaya-api/pkg/config"
	"github.com/vidyalaya-labs/vidyalaya-api/pkg/database"
	"github.com/vidyalaya-labs/vidyalaya-api/pkg/logger"
	corsmiddleware "github.com/vidyalaya-labs/vidyalaya-api/pkg/middleware/cors"
	reqidmiddleware "github.com/vidyalaya-labs/vidyalaya-api/pkg/middleware/requestid"
)

// @title Vidyalaya API
// @version 1.0.0
// @description School management backend with geofenced teacher attendance
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	cacheRepo := repository.NewCacheRepository(redisClient)
	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, nil, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, nil, logr)
	locationSvc := service.NewLocationService(locationRepo, cacheRepo, cfg.Cache.LocationTTL, nil, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, locationSvc, nil, logr).WithMetrics(metricsSvc)
	reportSvc := service.NewReportService(attendanceRepo, teacherRepo, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.Register(r, cfg.APIPrefix, router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Users:      handler.NewUserHandler(userSvc),
		Teachers:   handler.NewTeacherHandler(teacherSvc),
		Students:   handler.NewStudentHandler(studentSvc),
		Locations:  handler.NewLocationHandler(locationSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc, reportSvc),
		Metrics:    handler.NewMetricsHandler(metricsSvc),
	}, authSvc)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
