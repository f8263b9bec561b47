package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/telefiles/filedepot/internal/conf"
	"github.com/telefiles/filedepot/internal/file/biz"
	"github.com/telefiles/filedepot/internal/file/data"
	"github.com/telefiles/filedepot/internal/file/models"
	"github.com/telefiles/filedepot/internal/file/service"
	"github.com/telefiles/filedepot/internal/pkg/database"
	"github.com/telefiles/filedepot/internal/pkg/logger"
	"github.com/telefiles/filedepot/internal/pkg/ratelimit"
	"github.com/telefiles/filedepot/internal/pkg/workerpool"
	"github.com/telefiles/filedepot/internal/server"
	"go.uber.org/zap"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// Load .env if present; real config comes from the file and env vars.
	_ = godotenv.Load()

	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logConfig := &logger.Config{
		Level:            config.Log.Level,
		Format:           config.Log.Format,
		Output:           config.Log.Output,
		EnableCaller:     config.Log.EnableCaller,
		EnableStacktrace: config.Log.EnableStacktrace,
		File: logger.FileConfig{
			Filename:   config.Log.File.Filename,
			MaxSize:    config.Log.File.MaxSize,
			MaxAge:     config.Log.File.MaxAge,
			MaxBackups: config.Log.File.MaxBackups,
			Compress:   config.Log.File.Compress,
		},
	}

	log, err := logger.New(logConfig)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("config loaded successfully")

	// Database
	db, err := database.New(&config.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := models.AutoMigrate(db.DB); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Blob storage
	blob, err := data.NewDiskStore(config.Storage.Path, config.Storage.MaxFileSize, log)
	if err != nil {
		log.Fatal("failed to initialize disk store", zap.Error(err))
	}

	// Repositories
	fileRepo := data.NewFileRepo(db)
	userRepo := data.NewUserRepo(db)
	historyRepo := data.NewHistoryRepo(db)
	statsRepo := data.NewStatsRepo(db)

	// Use cases
	storageUseCase := biz.NewStorageUseCase(
		fileRepo,
		userRepo,
		historyRepo,
		statsRepo,
		blob,
		db,
		biz.StorageConfig{RetentionDays: config.Storage.RetentionDays},
		log,
	)
	statsUseCase := biz.NewStatsUseCase(fileRepo, userRepo, statsRepo, log)
	userDataUseCase := biz.NewUserDataUseCase(fileRepo, userRepo, historyRepo, blob, db, log)

	// Rate limiter for upload admission
	limiter := ratelimit.New(config.RateLimit.MaxRequests, config.RateLimit.Window)
	limiter.StartPruning(config.RateLimit.PruneInterval)
	defer limiter.Stop()

	// Background worker pool
	pool, err := workerpool.New(4, log)
	if err != nil {
		log.Fatal("failed to initialize worker pool", zap.Error(err))
	}
	defer pool.Release()

	// Services
	fileService := service.NewFileService(storageUseCase, statsUseCase, userDataUseCase, pool, db, log)
	intakeService := service.NewIntakeService(storageUseCase, limiter, service.IntakeConfig{
		MaxFileSize:     config.Storage.MaxFileSize,
		DownloadURLBase: config.Storage.DownloadURLBase,
	}, log)

	httpServer := server.NewHTTPServer(config, log, fileService, intakeService)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	// Periodic expiry sweep
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(config.Storage.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if _, err := storageUseCase.SweepExpired(sweepCtx); err != nil {
					log.Error("expiry sweep failed", zap.Error(err))
				}
			}
		}
	}()

	log.Info("server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer cancel()

	stopSweep()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
