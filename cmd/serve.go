package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bookmeta/internal/model"
	"github.com/sells-group/bookmeta/internal/reconcile"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP lookup API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
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

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// api serves the lookup endpoints over an appEnv.
type api struct {
	env *appEnv
}

// newRouter builds the HTTP routes.
func newRouter(env *appEnv) http.Handler {
	a := &api{env: env}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", a.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/books/isbn/{isbn}", a.lookupISBN)
		r.Get("/books/search", a.searchTitle)
		r.Post("/series/normalize", a.normalizeSeries)
		r.Get("/sources", a.listSources)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	if err := a.env.Store.Ping(r.Context()); err != nil {
		zap.L().Warn("health: store ping failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) lookupISBN(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "isbn")
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		a.env.Cache.Delete(r.Context(), code)
	}

	res, err := a.env.Engine.ReconcileByISBN(r.Context(), code)
	if err != nil {
		if errors.Is(err, reconcile.ErrEmptyISBN) {
			writeError(w, http.StatusBadRequest, "isbn is required")
			return
		}
		zap.L().Error("lookup failed", zap.String("isbn", code), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	status := http.StatusOK
	if !res.Found() {
		status = http.StatusNotFound
	}
	writeJSON(w, status, res)
}

type searchResponse struct {
	Query   string       `json:"query"`
	Count   int          `json:"count"`
	Results []model.Book `json:"results"`
}

func (a *api) searchTitle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	maxResults := 0
	if v := r.URL.Query().Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "max must be a non-negative integer")
			return
		}
		maxResults = n
	}

	books, err := a.env.Engine.ReconcileByTitle(r.Context(), q, cfg.Reconcile.ClampResults(maxResults))
	if err != nil {
		zap.L().Error("search failed", zap.String("query", q), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if books == nil {
		books = []model.Book{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: q, Count: len(books), Results: books})
}

type normalizeRequest struct {
	Names []string `json:"names"`
}

type normalizeResponse struct {
	Results []seriesChange `json:"results"`
	Groups  []seriesGroup  `json:"groups"`
}

func (a *api) normalizeSeries(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Names) == 0 {
		writeError(w, http.StatusBadRequest, "names is required")
		return
	}
	changes, groups := normalizeNames(req.Names)
	writeJSON(w, http.StatusOK, normalizeResponse{Results: changes, Groups: groups})
}

type sourceView struct {
	model.SourceConfig
	HasCredential bool   `json:"has_credential"`
	Circuit       string `json:"circuit,omitempty"`
}

func (a *api) listSources(w http.ResponseWriter, r *http.Request) {
	srcs, err := a.env.Store.ListSources(r.Context())
	if err != nil {
		zap.L().Error("list sources failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list sources failed")
		return
	}
	writeJSON(w, http.StatusOK, sourceViews(srcs, a.env.Engine))
}

func sourceViews(srcs []model.SourceConfig, e *reconcile.Engine) []sourceView {
	states := e.Breakers().States()
	out := make([]sourceView, 0, len(srcs))
	for _, s := range srcs {
		v := sourceView{SourceConfig: s, HasCredential: s.HasCredential()}
		if st, ok := states[s.Name]; ok {
			v.Circuit = st.String()
		}
		out = append(out, v)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
