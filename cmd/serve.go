package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-intel/internal/enrich"
	"github.com/sells-group/lead-intel/internal/provider"
	"github.com/sells-group/lead-intel/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the enrichment API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/api/enrichment", func(r chi.Router) {
			r.Post("/jobs", handleSubmit(env.Orchestrator))
			r.Get("/jobs/{jobID}", handlePoll(env.Orchestrator))
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// handleSubmit accepts a batch and returns the durable job record. The
// request returns as soon as the provider run is started; results arrive
// through later polls.
func handleSubmit(orch *enrich.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enrich.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		job, err := orch.Submit(r.Context(), req)
		switch {
		case err == nil:
			writeJSON(w, http.StatusAccepted, job)
		case eris.Is(err, enrich.ErrNoTargets):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no targets"})
		case eris.Is(err, provider.ErrUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "provider unavailable"})
		default:
			zap.L().Error("submit failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
	}
}

// handlePoll advances the job if the provider has finished and reports its
// current state.
func handlePoll(orch *enrich.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")

		job, err := orch.Poll(r.Context(), jobID)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, job)
		case eris.Is(err, store.ErrJobNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		default:
			zap.L().Error("poll failed", zap.String("job_id", jobID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
