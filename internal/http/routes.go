package httpx

import (
	"log/slog"
	"net/http"
)

// RouterConfig groups dependencies for the HTTP facade.
type RouterConfig struct {
	Auth   *AuthHandlers
	Logger *slog.Logger
}

// NewRouter builds the HTTP routing for the session service.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /auth/login", cfg.Auth.Login)
	mux.HandleFunc("GET /auth/callback", cfg.Auth.Callback)
	mux.HandleFunc("POST /auth/logout", cfg.Auth.Logout)
	mux.HandleFunc("GET /auth/session", cfg.Auth.Session)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler{controller: cfg.Auth.Controller})

	return requestLogger(cfg.Logger, mux)
}

// requestLogger logs each request at debug level with method, path, and status.
func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(cw, r)
		logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", cw.status)
	})
}

type captureWriter struct {
	http.ResponseWriter
	status int
}

func (c *captureWriter) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}
