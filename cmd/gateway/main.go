package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Isaacolagoke/Testai/internal/ai"
	api "github.com/Isaacolagoke/Testai/internal/api/http"
	auth "github.com/Isaacolagoke/Testai/internal/auth/middleware"
	"github.com/Isaacolagoke/Testai/internal/config"
	"github.com/Isaacolagoke/Testai/internal/db"
	"github.com/Isaacolagoke/Testai/internal/exam"
	"github.com/Isaacolagoke/Testai/internal/learner"
	"github.com/Isaacolagoke/Testai/internal/logger"
	"github.com/Isaacolagoke/Testai/internal/storage"
	"github.com/Isaacolagoke/Testai/internal/upload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(string(cfg.Mode), cfg.LogRedaction)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		lg.Fatal("db open failed", "driver", cfg.DBDriver, "error", err.Error())
	}
	defer dbh.Close()
	store := exam.NewSQLStore(dbh, cfg.DBDriver)

	// --- Blobs ---
	blobs, closeBlobs, err := openBlobs(ctx, cfg)
	if err != nil {
		lg.Fatal("blob store", "driver", cfg.BlobDriver, "error", err.Error())
	}
	defer closeBlobs()

	// --- AI ---
	var gen ai.Generator
	gemini, err := ai.NewGeminiClient(lg, ai.Config{
		APIKey:      cfg.GeminiAPIKey,
		BaseURL:     cfg.GeminiBaseURL,
		Model:       cfg.GeminiModel,
		VisionModel: cfg.GeminiVisionModel,
		Timeout:     cfg.AITimeout,
	})
	switch {
	case err == nil:
		gen = gemini
	case cfg.IsDevelopment():
		lg.Warn("AI generation disabled", "error", err.Error())
		gen = disabledGenerator{err}
	default:
		lg.Fatal("ai client", "error", err.Error())
	}

	rs := &api.Responder{Log: lg, Verbose: cfg.IsDevelopment()}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, api.Recover(rs), api.RequestLogger(rs))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	deps := api.Deps{
		Store:          store,
		Auth:           auth.NewAuthService(cfg.AuthHMACSecret, cfg.AuthTokenTTL),
		Learner:        learner.NewService(store, lg),
		Uploads:        upload.NewService(store, blobs, gen, lg, cfg.TmpDir),
		Blobs:          blobs,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Responder:      rs,
	}
	if cfg.BasePath == "" {
		api.Mount(r, deps)
	} else {
		r.Route(cfg.BasePath, func(br chi.Router) { api.Mount(br, deps) })
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			lg.Error("shutdown", "error", err.Error())
		}
	}()

	lg.Info("listening", "addr", cfg.HTTPAddr, "mode", string(cfg.Mode), "db", cfg.DBDriver, "blobs", cfg.BlobDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Fatal("server", "error", err.Error())
	}
}

func openBlobs(ctx context.Context, cfg config.Config) (storage.BlobStore, func(), error) {
	if cfg.BlobDriver == "gcs" {
		gcs, err := storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.StorageEmulatorHost)
		if err != nil {
			return nil, nil, err
		}
		return gcs, func() { _ = gcs.Close() }, nil
	}
	fs, err := storage.NewFSStore(cfg.BlobBasePath, cfg.PublicURL+cfg.BasePath+"/files")
	if err != nil {
		return nil, nil, err
	}
	return fs, func() {}, nil
}

// disabledGenerator stands in when no API key is configured in development.
type disabledGenerator struct{ err error }

func (d disabledGenerator) Generate(context.Context, ai.Input, ai.Spec) ([]ai.Generated, error) {
	return nil, d.err
}
