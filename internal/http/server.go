// Package http exposes the JSON API: entry capture, budget status and
// configuration, categories and recurring commitments.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"pocketbudget/internal/cache"
	"pocketbudget/internal/core"
	applog "pocketbudget/internal/log"
	"pocketbudget/internal/services"
)

type Server struct {
	http.Server
	svc *services.EntryService

	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// Derived-response caches, invalidated on every write that can shift
	// budget math.
	statusCache  *cache.LRUCache[services.BudgetReport]
	entriesCache *cache.LRUCache[[]core.LedgerEntry]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes, middleware and response caches around the entry
// service, returning a ready-to-run server.
func NewServer(addr string, svc *services.EntryService, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
		},
		svc:          svc,
		rateLimiter:  newRateLimiter(),
		metrics:      &securityMetrics{},
		statusCache:  cache.NewLRUCache[services.BudgetReport](100, 5*time.Minute),
		entriesCache: cache.NewLRUCache[[]core.LedgerEntry](200, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.statusCache)
	s.cacheManager.Register(s.entriesCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/entries", s.secure(s.handleCreateEntry))
	mux.HandleFunc("GET /api/entries", s.secure(s.handleListEntries))
	mux.HandleFunc("GET /api/entries/{id}", s.secure(s.handleGetEntry))
	mux.HandleFunc("DELETE /api/entries/{id}", s.secure(s.handleDeleteEntry))

	mux.HandleFunc("GET /api/budget/status", s.secure(s.handleBudgetStatus))
	mux.HandleFunc("GET /api/budget/config", s.secure(s.handleGetBudgetConfig))
	mux.HandleFunc("PUT /api/budget/config", s.secure(s.handleUpdateBudgetConfig))

	mux.HandleFunc("GET /api/categories", s.secure(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.secure(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{key}/name", s.secure(s.handleRenameCategory))

	mux.HandleFunc("GET /api/commitments", s.secure(s.handleListCommitments))
	mux.HandleFunc("POST /api/commitments", s.secure(s.handleCreateCommitment))
	mux.HandleFunc("PUT /api/commitments/{id}/active", s.secure(s.handleSetCommitmentActive))
	mux.HandleFunc("DELETE /api/commitments/{id}", s.secure(s.handleDeleteCommitment))

	// Every request context carries the logger tagged with a request ID;
	// secure() and the handlers pull it back out with applog.FromContext.
	s.Server.Handler = applog.Middleware(logger)(applog.RequestIDMiddleware(requestID)(mux))

	return s
}

// requestID honors an inbound X-Request-Id header, generating one otherwise.
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return generateRequestID()
}

// structuredLogger builds request-scoped logging helpers from the context.
func structuredLogger(ctx context.Context) *applog.StructuredLogger {
	return applog.NewStructuredLogger(applog.FromContext(ctx))
}

// secure adds client-IP extraction, per-IP rate limiting on writes, security
// headers and request logging around a handler.
func (s *Server) secure(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		ctx := r.Context()
		structured := structuredLogger(ctx)
		structured.LogHTTPStart(ctx, r, clientIP)

		if isWrite(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			structured.LogHTTPEnd(ctx, r, http.StatusTooManyRequests, time.Since(start).Milliseconds(), clientIP)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		structured.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// logHandlerError records a handler failure with the request method mapped
// to an operation name.
func (s *Server) logHandlerError(r *http.Request, msg string, err error) {
	op := applog.OpRead
	switch r.Method {
	case http.MethodPost:
		op = applog.OpCreate
	case http.MethodPut, http.MethodPatch:
		op = applog.OpUpdate
	case http.MethodDelete:
		op = applog.OpDelete
	}
	structuredLogger(r.Context()).LogError(r.Context(), msg, err, applog.ComponentHTTP, op,
		applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, ""))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) invalidateMonth(month core.Month) {
	s.statusCache.Delete(month.String())
	s.entriesCache.Delete(month.String())
}

// invalidateAll drops every cached month. Config and commitment changes
// shift the math for all months at once.
func (s *Server) invalidateAll() {
	s.statusCache.Clear()
	s.entriesCache.Clear()
}

// Shutdown stops the cache sweeper and rate-limiter cleanup before shutting
// down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
