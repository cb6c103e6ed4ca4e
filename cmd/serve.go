package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/pipeline"
	"github.com/sells-group/research-agent/internal/reputation"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the research HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
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

func newRouter(env *researchEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		resp := map[string]string{"status": "ok"}
		if env.Summarizer != nil {
			if err := env.Summarizer.Health(req.Context()); err != nil {
				resp["summarizer"] = "unreachable"
			} else {
				resp["summarizer"] = "ok"
			}
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Post("/ask", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Question   string `json:"question"`
			Summarizer string `json:"summarizer"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if strings.TrimSpace(body.Question) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
			return
		}

		result, err := env.Orchestrator.Run(req.Context(), body.Question, pipeline.WithMode(body.Summarizer))
		if err != nil {
			zap.L().Error("research run failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "research failed"})
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	r.Get("/reputation", func(w http.ResponseWriter, req *http.Request) {
		state, err := env.Ledger.Load(req.Context())
		if err != nil {
			zap.L().Error("load ledger failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "ledger unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"domain_scores": state.DomainScores,
			"blacklist":     state.Blacklist,
		})
	})

	r.Post("/reputation/clear", func(w http.ResponseWriter, req *http.Request) {
		state, err := env.Ledger.Load(req.Context())
		if err != nil {
			zap.L().Error("load ledger failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "ledger unavailable"})
			return
		}
		rep := reputation.NewStore(state.DomainScores, state.Blacklist, cfg.Research.BlacklistFloor)
		cleared := len(state.Blacklist)
		rep.ClearBlacklist()
		state.DomainScores, state.Blacklist = rep.Snapshot()
		if err := env.Ledger.Save(req.Context(), state); err != nil {
			zap.L().Error("save ledger failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "ledger unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"cleared": cleared})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
