package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/profjobell/studio-sub000/internal/application"
	appdeep "github.com/profjobell/studio-sub000/internal/application/deepdive"
	apppodcast "github.com/profjobell/studio-sub000/internal/application/podcast"
	appreports "github.com/profjobell/studio-sub000/internal/application/reports"
	"github.com/profjobell/studio-sub000/internal/config"
	domain "github.com/profjobell/studio-sub000/internal/domain/reports"
	aiopenai "github.com/profjobell/studio-sub000/internal/infra/ai/openai"
	"github.com/profjobell/studio-sub000/internal/infra/db/memory"
	mysqldb "github.com/profjobell/studio-sub000/internal/infra/db/mysql"
	postgresdb "github.com/profjobell/studio-sub000/internal/infra/db/postgres"
	"github.com/profjobell/studio-sub000/internal/infra/export"
	"github.com/profjobell/studio-sub000/internal/infra/httpserver"
	minioStore "github.com/profjobell/studio-sub000/internal/infra/storage"
	"github.com/profjobell/studio-sub000/internal/infra/synthesis"
	"github.com/profjobell/studio-sub000/internal/middleware"
	"github.com/profjobell/studio-sub000/internal/platform/logger"
)

func main() {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	lg, err := logger.New(cfg.Server.LogMode)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer lg.Sync()

	ctx := context.Background()

	// pick the store backend
	var (
		repo     domain.Repository
		teaching domain.TeachingRepository
		checkers = map[string]middleware.HealthChecker{}
	)
	switch cfg.Storage.Driver {
	case "mysql":
		db, err := mysqldb.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			lg.Fatal("mysql connect error", "error", err)
		}
		defer db.Close()
		repo = mysqldb.NewReportRepository(db)
		teaching = mysqldb.NewTeachingRepository(db)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	case "postgres":
		db, err := postgresdb.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			lg.Fatal("postgres connect error", "error", err)
		}
		defer db.Close()
		repo = postgresdb.NewReportRepository(db)
		teaching = postgresdb.NewTeachingRepository(db)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	default:
		store := memory.NewStore()
		repo = store
		teaching = store
		checkers["store"] = middleware.CheckFunc(func(context.Context) error { return nil })
	}

	// audio artifact storage
	artifacts, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		lg.Fatal("minio init error", "error", err)
	}

	model := aiopenai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	synth := synthesis.New(cfg.OpenAI.APIKey, cfg.OpenAI.SpeechModel, cfg.OpenAI.Voice, artifacts)

	exporters := map[domain.ExportTarget]domain.Exporter{
		domain.ExportEmail: export.NewEmailSender(
			cfg.SendGrid.APIKey,
			cfg.SendGrid.BaseURL,
			cfg.SendGrid.FromEmail,
			cfg.SendGrid.FromName,
			lg,
		),
	}
	if cfg.Drive.CredentialsFile != "" {
		drive, err := export.NewDriveUploader(ctx, cfg.Drive.CredentialsFile, cfg.Drive.FolderID, lg)
		if err != nil {
			lg.Fatal("drive init error", "error", err)
		}
		exporters[domain.ExportDrive] = drive
	}

	clock := application.SystemClock{}
	reportsSvc := &appreports.Service{
		Repo:     repo,
		Teaching: teaching,
		Model:    model,
		Clock:    clock,
		Log:      lg.With("service", "reports"),
	}
	deepSvc := &appdeep.Service{
		Repo:  repo,
		Model: model,
		Clock: clock,
		Log:   lg.With("service", "deepdive"),
	}
	pipeline := apppodcast.NewPipeline(teaching, synth, exporters, clock, lg.With("service", "podcast"))

	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(reportsSvc, deepSvc, pipeline, lg, checkers))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // synthesis runs inline with the request
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lg.Info("server listening", "addr", addr, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal("server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	lg.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		lg.Error("shutdown error", "error", err)
	}
}
