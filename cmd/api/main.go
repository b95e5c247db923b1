package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/school-enrollment-api/api/swagger"
	"github.com/noah-isme/school-enrollment-api/internal/handler"
	internalmiddleware "github.com/noah-isme/school-enrollment-api/internal/middleware"
	"github.com/noah-isme/school-enrollment-api/internal/repository"
	"github.com/noah-isme/school-enrollment-api/internal/service"
	"github.com/noah-isme/school-enrollment-api/pkg/cache"
	"github.com/noah-isme/school-enrollment-api/pkg/config"
	"github.com/noah-isme/school-enrollment-api/pkg/database"
	"github.com/noah-isme/school-enrollment-api/pkg/jobs"
	"github.com/noah-isme/school-enrollment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-enrollment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-enrollment-api/pkg/middleware/requestid"
)

// @title School Enrollment API
// @version 1.0.0
// @description Administration backend for levels, grades, sections, teachers, students, academic years and enrollments.
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, "up"); err != nil {
			return err
		}
		logr.Info("migrations applied")
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, statistics cache disabled", zap.Error(err))
		redisClient = nil
	}

	metrics := service.NewMetricsService()
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		repo := repository.NewCacheRepository(redisClient)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cacheRepo != nil)

	queue := jobs.NewQueue("cache-invalidation", jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	invalidator := service.NewCacheInvalidator(queue, cacheSvc, metrics, logr)
	queue.Start(ctx)
	defer queue.Stop()

	validate := validator.New()

	levelRepo := repository.NewLevelRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	levelSvc := service.NewLevelService(levelRepo, validate, invalidator, logr)
	gradeSvc := service.NewGradeService(gradeRepo, levelRepo, validate, invalidator, logr)
	sectionSvc := service.NewSectionService(sectionRepo, gradeRepo, teacherRepo, validate, invalidator, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, invalidator, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, invalidator, logr)
	yearSvc := service.NewAcademicYearService(yearRepo, validate, invalidator, logr)
	enrollmentSvc := service.NewEnrollmentService(service.EnrollmentServiceParams{
		Repo:        enrollmentRepo,
		Students:    studentRepo,
		Sections:    sectionRepo,
		Years:       yearRepo,
		Validator:   validate,
		Metrics:     metrics,
		Invalidator: invalidator,
		Logger:      logr,
	})
	rosterSvc := service.NewRosterExportService(enrollmentRepo, sectionRepo, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Stats:   statsRepo,
		Years:   yearRepo,
		Cache:   cacheSvc,
		Metrics: metrics,
		Logger:  logr,
		Config:  service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Levels:        handler.NewLevelHandler(levelSvc),
		Grades:        handler.NewGradeHandler(gradeSvc),
		Sections:      handler.NewSectionHandler(sectionSvc),
		Teachers:      handler.NewTeacherHandler(teacherSvc),
		Students:      handler.NewStudentHandler(studentSvc),
		AcademicYears: handler.NewAcademicYearHandler(yearSvc),
		Enrollments:   handler.NewEnrollmentHandler(enrollmentSvc, rosterSvc),
		Dashboard:     handler.NewDashboardHandler(dashboardSvc),
		Metrics:       handler.NewMetricsHandler(metrics, db),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
