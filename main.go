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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apihttp "bee-console/internal/api/http"
	"bee-console/internal/config"
	"bee-console/internal/dispatch"
	"bee-console/internal/observability/metrics"
	"bee-console/internal/roambee"
	"bee-console/internal/status"
	"bee-console/internal/uploads"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Printf("dotenv: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	metrics.Init()

	client, err := roambee.NewClient(cfg.SendURL, cfg.StatusBaseURL, cfg.APIKey,
		roambee.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		logger.Fatalf("roambee client error: %v", err)
	}

	dispatchRunner, err := dispatch.NewRunner(client, logger,
		dispatch.WithBatchSize(cfg.BatchSize),
		dispatch.WithDelay(cfg.BatchDelay()))
	if err != nil {
		logger.Fatalf("dispatch runner error: %v", err)
	}

	statusRunner, err := status.NewRunner(client, logger,
		status.WithBatchSize(cfg.BatchSize),
		status.WithDelay(cfg.BatchDelay()))
	if err != nil {
		logger.Fatalf("status runner error: %v", err)
	}

	store, err := uploads.NewStore(cfg.UploadDir)
	if err != nil {
		logger.Fatalf("upload store error: %v", err)
	}

	sessions, err := apihttp.NewSessions([]byte(cfg.SessionSecret), cfg.SessionTTL, store)
	if err != nil {
		logger.Fatalf("sessions error: %v", err)
	}

	uploadHandler, err := apihttp.NewUploadHandler(sessions, logger)
	if err != nil {
		logger.Fatalf("upload handler error: %v", err)
	}
	sendHandler, err := apihttp.NewSendCommandsHandler(sessions, dispatchRunner, logger)
	if err != nil {
		logger.Fatalf("send handler error: %v", err)
	}
	statusHandler, err := apihttp.NewCommandStatusHandler(sessions, statusRunner, logger)
	if err != nil {
		logger.Fatalf("status handler error: %v", err)
	}
	clearHandler, err := apihttp.NewClearUploadsHandler(sessions, logger)
	if err != nil {
		logger.Fatalf("clear handler error: %v", err)
	}
	sessionHandler, err := apihttp.NewSessionHandler(sessions)
	if err != nil {
		logger.Fatalf("session handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/upload", uploadHandler)
	mux.Handle("/api/commands/send", sendHandler)
	mux.Handle("/api/commands/status", statusHandler)
	mux.Handle("/api/uploads/clear", clearHandler)
	mux.Handle("/api/session", sessionHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}
	if removed, err := store.CleanupAll(); err != nil {
		logger.Printf("upload cleanup: %v", err)
	} else if removed > 0 {
		logger.Printf("upload cleanup: removed %d stale uploads", removed)
	}
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
