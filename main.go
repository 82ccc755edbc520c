package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kubeterm/kubeterm/internal/config"
	"github.com/kubeterm/kubeterm/internal/database"
	"github.com/kubeterm/kubeterm/internal/handlers"
	"github.com/kubeterm/kubeterm/internal/logging"
	"github.com/robfig/cron/v3"
)

func main() {
	config.Load()
	logging.Init()

	if err := database.Init(); err != nil {
		log.Fatalf("Database init: %v", err)
	}
	defer database.Close()

	// Periodic cluster connectivity checks.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(config.Cfg.ConnCheckInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		checkClusterConnections(ctx)
	}); err != nil {
		log.Fatalf("Connection check schedule %q: %v", config.Cfg.ConnCheckInterval, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/health", handlers.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/clusters", func(r chi.Router) {
			r.Post("/", handlers.CreateCluster)
			r.Get("/", handlers.ListClusters)
			r.Route("/{clusterID}", func(r chi.Router) {
				r.Post("/rename", handlers.RenameCluster)
				r.Delete("/", handlers.DeleteCluster)
				r.Get("/kubeconfig", handlers.GetKubeconfig)
				r.Post("/kubeconfig", handlers.UpdateKubeconfig)
				r.Get("/status", handlers.ClusterStatus)
			})
		})

		r.Get("/logs", handlers.GetServerLogs)
		r.Delete("/logs", handlers.ClearServerLogs)

		r.Get("/terminal/ws", handlers.TerminalWS)
		r.Route("/terminal/{sessionID}", func(r chi.Router) {
			r.Post("/execute", handlers.ExecuteCommand)
			r.Get("/history", handlers.SessionHistory)
			r.Post("/clear-history", handlers.ClearHistory)
		})
	})

	srv := &http.Server{
		Addr:    config.Cfg.ListenAddr,
		Handler: r,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on %s", config.Cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
