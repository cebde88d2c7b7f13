// Package main is the entry point for the Sommaire API server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/sommaire-api/internal/config"
	"github.com/Shimizu-Technology/sommaire-api/internal/database"
	"github.com/Shimizu-Technology/sommaire-api/internal/handlers"
	"github.com/Shimizu-Technology/sommaire-api/internal/metrics"
	"github.com/Shimizu-Technology/sommaire-api/internal/pipeline"
	"github.com/Shimizu-Technology/sommaire-api/internal/router"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/janitor"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/notify"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/pdf"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/storage"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/summary"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/upload"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/validate"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/webhook"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 Sommaire API %s starting...", Version)

	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	log.Printf("📋 Config loaded: port=%s, backend=%s (%s), transport=%s, gin_mode=%s",
		cfg.Port, cfg.SummaryBackend, cfg.BackendModel(), cfg.UploadTransport, cfg.GinMode)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Step 2: Connect to Database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✅ Database connected")

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	// Step 3: Create Services
	var (
		transport upload.Transport
		localFS   *storage.Local // set only when we own the files
	)
	switch cfg.UploadTransport {
	case config.TransportHTTP:
		transport = upload.NewHTTPTransport(cfg.UploadServiceURL, cfg.UploadServiceToken)
		log.Printf("✅ Uploads go to %s", cfg.UploadServiceURL)
	default:
		localFS, err = storage.NewLocal(cfg.StoragePath)
		if err != nil {
			log.Fatalf("❌ Failed to open storage: %v", err)
		}
		transport = upload.NewLocalTransport(localFS, cfg.PublicBaseURL)
		log.Printf("✅ Uploads stored in %s, served from %s%s", cfg.StoragePath, cfg.PublicBaseURL, storage.FilesRoute)
	}
	uploader := upload.NewClient(transport)
	extractor := pdf.NewURLExtractor(cfg.ExtractTimeout, cfg.MaxUploadBytes, localFS, cfg.PublicBaseURL)

	backend, err := summary.NewBackend(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to configure summary backend: %v", err)
	}
	if cfg.BackendAPIKey() == "" {
		log.Printf("⚠️  No API key for summary backend %q; summaries will fail until one is set", cfg.SummaryBackend)
	}
	summarizer := summary.New(backend, cfg.SummaryMaxInputChars)

	m := metrics.New()

	opts := []pipeline.Option{
		pipeline.WithRecorder(m),
		pipeline.WithNotifier(notify.LogNotifier{}),
	}
	if cfg.CompensateUploads {
		opts = append(opts, pipeline.WithCompensation(uploader))
		log.Println("✅ Uploads are removed when a summary fails to save")
	}
	orchestrator := pipeline.New(pipeline.Deps{
		Validator:  validate.New(cfg.MaxUploadBytes),
		Uploader:   uploader,
		Extractor:  extractor,
		Summarizer: summarizer,
		Store:      db,
	}, opts...)

	webhookService := webhook.New(db)
	log.Println("✅ Webhook notification service initialized")

	docs, err := handlers.LoadDocs(ctx)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	// Orphaned upload sweep (local storage only)
	if cfg.OrphanSweepSchedule != "" && localFS != nil {
		j := janitor.New(ctx, localFS, db, cfg.PublicBaseURL, cfg.OrphanTTL)
		if err := j.Start(cfg.OrphanSweepSchedule); err != nil {
			log.Fatalf("❌ %v", err)
		}
		defer j.Stop()
		log.Printf("✅ Orphan sweep scheduled: %q (ttl %s)", cfg.OrphanSweepSchedule, cfg.OrphanTTL)
	}

	// Step 4: Setup HTTP Router
	h := &handlers.Handler{
		DB:               db,
		Pipeline:         orchestrator,
		Uploads:          transport,
		Files:            localFS,
		Remover:          uploader,
		Webhooks:         webhookService,
		JWTSecret:        cfg.JWTSecret,
		DefaultRateLimit: cfg.DefaultRateLimit,
		MaxUploadBytes:   cfg.MaxUploadBytes,
		FileURLPrefixes:  cfg.FileURLPrefixes(),
		Backend:          summarizer.Backend(),
		Version:          Version,
	}
	r := router.Setup(h, router.Options{
		Auth:             db,
		Docs:             docs,
		Metrics:          m,
		JWTSecret:        cfg.JWTSecret,
		AllowedOrigins:   cfg.AllowedOrigins,
		DefaultRateLimit: cfg.DefaultRateLimit,
		OwnerUserID:      cfg.OwnerUserID,
	})

	// Step 5: Start the HTTP Server
	// Summaries run inside the request, so the write timeout must cover
	// extraction plus a slow model.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 Docs: http://localhost:%s/api/docs", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Step 6: Graceful Shutdown
	<-ctx.Done()
	log.Println("🛑 Received shutdown signal, shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	// In-flight requests are done; let their webhook deliveries record a final state.
	webhookService.Shutdown()
	log.Println("⏳ Webhook deliveries stopped")

	log.Println("👋 Server stopped. Goodbye!")
}
