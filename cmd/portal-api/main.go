package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	v1 "manutencao-predial/portal-backend/api/v1"
	"manutencao-predial/portal-backend/internal/auth"
	"manutencao-predial/portal-backend/internal/config"
	"manutencao-predial/portal-backend/internal/cronograma"
	"manutencao-predial/portal-backend/pkg/storage"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash of a password and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	var s3 storage.S3Client
	if cfg.Archive.Enabled {
		s3, err = storage.NewS3Client(ctx, storage.S3Options{
			Region:    cfg.Archive.Region,
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
		})
		if err != nil {
			logger.Fatal("Failed to create S3 client", zap.Error(err))
		}
		logger.Info("Report archive enabled", zap.String("bucket", cfg.Archive.Bucket), zap.String("prefix", cfg.Archive.Prefix))
	}

	store, err := newScheduleStore(cfg.Schedule)
	if err != nil {
		logger.Fatal("Failed to open schedule store", zap.Error(err))
	}
	logger.Info("Schedule store ready", zap.String("driver", cfg.Schedule.Driver))

	api, err := v1.Setup(v1.Dependencies{Config: cfg, Logger: logger, S3: s3, Schedule: store})
	if err != nil {
		logger.Fatal("Failed to set up API", zap.Error(err))
	}

	gin.SetMode(cfg.Server.GinMode)
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      api.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server stopped", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// in-flight renders get the full write timeout to finish
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.WriteTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func newScheduleStore(cfg config.ScheduleConfig) (cronograma.Store, error) {
	if cfg.Driver == "memory" {
		return cronograma.NewMemoryStore(), nil
	}
	db, err := cronograma.OpenDatabase(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return cronograma.NewGormStore(db)
}
