// Package httpapi exposes the content API over HTTP: collections, singletons,
// the current CV, uploads and admin login, all answering with a
// {success, data, error, message} envelope.
package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/folio/internal/logging"
	"github.com/dmitrijs2005/folio/internal/server/config"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Handler holds the route handlers.
type Handler struct {
	deps   Deps
	logger logging.Logger

	mediaBucket string
	uploadDir   string
	maxFiles    int
	maxSize     int64
}

// NewHandler builds the full HTTP handler: routes, auth, request logging,
// panic recovery and CORS.
func NewHandler(cfg *config.Config, deps Deps, l logging.Logger) http.Handler {
	h := &Handler{
		deps:        deps,
		logger:      l.With("module", "http"),
		mediaBucket: cfg.S3Bucket,
		uploadDir:   cfg.UploadDir,
		maxFiles:    cfg.MaxUploadFiles,
		maxSize:     cfg.MaxUploadSize,
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	prefix := strings.TrimRight(cfg.UploadRoutePrefix, "/") + "/"
	r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, noDirListing(http.FileServer(http.Dir(cfg.UploadDir))))).
		Methods(http.MethodGet, http.MethodHead)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.requireAuth)

	api.HandleFunc("/config", h.publicConfig).Methods(http.MethodGet)
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/upload", h.upload).Methods(http.MethodPost)

	api.HandleFunc("/cv/download", h.downloadCV).Methods(http.MethodGet)
	api.HandleFunc("/cv", h.getCV).Methods(http.MethodGet)
	api.HandleFunc("/cv", h.putCV).Methods(http.MethodPut, http.MethodPost)
	api.HandleFunc("/cv", h.deleteCV).Methods(http.MethodDelete)

	singleton := "/{key:hero|about|contact}"
	api.HandleFunc(singleton, h.getSingleton).Methods(http.MethodGet)
	api.HandleFunc(singleton, h.putSingleton).Methods(http.MethodPut, http.MethodPost)
	api.HandleFunc(singleton, h.deleteSingleton).Methods(http.MethodDelete)

	api.HandleFunc("/{collection}/reorder", h.reorder).Methods(http.MethodPost)
	api.HandleFunc("/{collection}", h.list).Methods(http.MethodGet)
	api.HandleFunc("/{collection}", h.create).Methods(http.MethodPost)
	api.HandleFunc("/{collection}", h.update).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/{collection}", h.remove).Methods(http.MethodDelete)
	api.HandleFunc("/{collection}/{id}", h.update).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/{collection}/{id}", h.remove).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(h.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)

	var out http.Handler = r
	out = handlers.CustomLoggingHandler(io.Discard, out, h.logRequest)
	out = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{h.logger}), handlers.PrintRecoveryStack(false))(out)
	out = handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(out)
	return out
}

// logRequest writes one structured line per request.
func (h *Handler) logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	h.logger.Info(p.Request.Context(), "http request",
		"method", p.Request.Method,
		"path", p.URL.Path,
		"status", p.StatusCode,
		"bytes", p.Size,
		"duration", time.Since(p.TimeStamp),
	)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, envelope{Error: fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path)})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, envelope{Error: fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path)})
}

// recoveryLogger adapts Logger to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	logger logging.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.logger.Error(context.Background(), "panic recovered", "panic", fmt.Sprint(v...))
}

// noDirListing hides directory indexes of the upload directory.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
