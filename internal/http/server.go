package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fleetledger/internal/auth"
	"fleetledger/internal/cache"
	"fleetledger/internal/events"
	"fleetledger/internal/ledger"
	applog "fleetledger/internal/log"
	"fleetledger/internal/metrics"
	"fleetledger/internal/services"
	"fleetledger/internal/taxonomy"
)

type Server struct {
	http.Server

	records    *services.RecordService
	statements *services.StatementService
	drivers    ledger.DriverStore
	tax        *taxonomy.Taxonomy

	rateLimiter *rateLimiter

	// LRU cache for period summaries, purged on any record change.
	summaryCache *cache.LRU[services.PeriodSummary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, records *services.RecordService, statements *services.StatementService, drivers ledger.DriverStore, tax *taxonomy.Taxonomy, bus *events.Bus, authMW *auth.Middleware) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		records:      records,
		statements:   statements,
		drivers:      drivers,
		tax:          tax,
		rateLimiter:  newRateLimiter(),
		summaryCache: cache.NewLRU[services.PeriodSummary](200, time.Minute),
		cacheManager: cache.NewManager(),
	}

	// Any record change may move a driver's totals, so drop all cached summaries.
	if bus != nil {
		bus.SubscribeRecordChanged(func(context.Context, events.RecordChanged) {
			s.summaryCache.Purge()
		})
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/records", s.withSecurityHeaders(s.handleCreateRecord))
	mux.HandleFunc("GET /api/records", s.withSecurityHeaders(s.handleListRecords))
	mux.HandleFunc("POST /api/records/import", s.withSecurityHeaders(s.handleImportRecords))
	mux.HandleFunc("DELETE /api/records/{id}", s.withSecurityHeaders(s.handleDeleteRecord))
	mux.HandleFunc("GET /api/summary", s.withSecurityHeaders(s.handleSummary))
	mux.HandleFunc("GET /api/feed/today", s.withSecurityHeaders(s.handleFeedToday))
	mux.HandleFunc("GET /api/taxonomy", s.withSecurityHeaders(s.handleTaxonomy))
	mux.HandleFunc("POST /api/statements", s.withSecurityHeaders(s.handleCreateStatement))
	mux.HandleFunc("GET /api/statements/{id}", s.withSecurityHeaders(s.handleGetStatement))
	mux.HandleFunc("GET /api/statements/{id}/download", s.withSecurityHeaders(s.handleDownloadStatement))
	mux.HandleFunc("POST /api/drivers", s.withSecurityHeaders(s.handleCreateDriver))
	mux.HandleFunc("GET /api/drivers", s.withSecurityHeaders(s.handleListDrivers))

	// Request-scoped logger carrying the request id, wrapped by auth.
	logger := applog.Default().WithComponent(applog.ComponentHTTP)
	handler := applog.Middleware(logger)(applog.RequestIDMiddleware(extractRequestID)(mux))
	s.Handler = authMW.Wrap(handler)

	return s
}

// extractRequestID honors an upstream X-Request-ID, generating one otherwise.
func extractRequestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return generateRequestID()
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}

		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		httpLog := applog.NewStructuredLogger(applog.FromContext(ctx))
		httpLog.LogHTTPStart(ctx, r, clientIP)

		// Rate limit mutating requests only.
		if r.Method != http.MethodGet && r.Method != http.MethodHead && !s.rateLimiter.allow(clientIP) {
			applog.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		metrics.ObserveHTTP(r.Method, rw.statusCode, duration)
		httpLog.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
