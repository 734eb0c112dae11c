// Package http implements the REST API of the mentorship service: profile
// management, mentor matching and the mentorship request workflow.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/mentorlink/mentorship-core/internal/application/command"
	"github.com/mentorlink/mentorship-core/internal/application/query"
	"github.com/mentorlink/mentorship-core/internal/infrastructure/scheduler"
	"github.com/mentorlink/mentorship-core/internal/interface/http/handlers"
	"github.com/mentorlink/mentorship-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// RequestTimeout bounds the context of every API request.
	RequestTimeout time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// MaxBodyBytes - maximum size of request bodies.
	MaxBodyBytes int64

	// AllowedOrigins - allowed origins for CORS.
	AllowedOrigins []string

	// RateLimitPerMinute - requests per minute per IP (0 = disabled).
	RateLimitPerMinute int

	// APIKeyHeader - header carrying the admin API key.
	APIKeyHeader string

	// ReconcileSettle and ReconcileTimeout apply to manually triggered
	// reconciliations.
	ReconcileSettle  time.Duration
	ReconcileTimeout time.Duration

	// Version is reported in response meta and health output.
	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		RequestTimeout:     10 * time.Second,
		MaxHeaderBytes:     1 << 20,
		MaxBodyBytes:       1 << 20,
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: 100,
		APIKeyHeader:       "X-API-Key",
		ReconcileSettle:    10 * time.Second,
		ReconcileTimeout:   5 * time.Minute,
		Version:            "v1",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// RateLimiter decides whether a client may issue one more request.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// JobLister exposes the scheduler state to the admin API.
type JobLister interface {
	ListJobs() []scheduler.JobInfo
}

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command Handlers (CQRS Write Side)
	Profiles          *command.ProfileHandler
	AddTestimonial    *command.AddTestimonialHandler
	RequestMentorship *command.RequestMentorshipHandler
	RespondToRequest  *command.RespondToRequestHandler
	Complete          *command.CompleteMentorshipHandler
	Cancel            *command.CancelMentorshipHandler
	Progress          *command.ProgressHandler
	ReconcileLoad     *command.ReconcileMentorLoadHandler

	// Query Handlers (CQRS Read Side)
	FindPotentialMentors *query.FindPotentialMentorsHandler
	GetMentorProfile     *query.GetMentorProfileHandler
	GetMentorship        *query.GetMentorshipHandler
	ListMentorships      *query.ListMentorshipsHandler

	// Auth
	JWT      *handlers.JWTAuth
	AdminKey *handlers.APIKeyAuth

	// RateLimiter defaults to an in-process sliding window.
	RateLimiter RateLimiter

	// Scheduler is optional.
	Scheduler JobLister

	Logger        *logger.Logger
	HealthChecker handlers.HealthChecker
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	logger     *logger.Logger

	rateLimiter RateLimiter

	// Manual reconciliation state.
	background    sync.WaitGroup
	reconciling   atomic.Bool
	lastReconcile atomic.Pointer[reconcileResponse]

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config:      config,
		deps:        deps,
		router:      http.NewServeMux(),
		logger:      deps.Logger,
		rateLimiter: deps.RateLimiter,
	}

	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))

	if s.deps.JWT == nil {
		s.deps.JWT = handlers.NewJWTAuth("", "")
	}
	if s.deps.AdminKey == nil {
		s.deps.AdminKey = handlers.NewAPIKeyAuth(config.APIKeyHeader, nil)
	}
	if s.config.ReconcileTimeout <= 0 {
		s.config.ReconcileTimeout = DefaultConfig().ReconcileTimeout
	}
	if s.rateLimiter == nil && config.RateLimitPerMinute > 0 {
		s.rateLimiter = newRateLimiter(config.RateLimitPerMinute, time.Minute)
	}

	s.setupRoutes()
	s.handler = s.buildMiddlewareChain(s.router)

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /healthz", s.handleHealth) // Kubernetes alias
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /live", s.handleLive)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Profiles
	// ─────────────────────────────────────────────────────────────────────────
	s.authed("POST /api/v1/profiles/mentor", s.handleCreateMentorProfile)
	s.authed("PATCH /api/v1/profiles/mentor", s.handleUpdateMentorProfile)
	s.authed("GET /api/v1/profiles/mentor/{id}", s.handleGetMentorProfile)
	s.authed("PUT /api/v1/profiles/mentee", s.handleUpsertMenteeProfile)
	s.authed("POST /api/v1/mentors/{id}/testimonials", s.handleAddTestimonial)
	s.authed("GET /api/v1/mentors/matches", s.handleFindMatches)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Mentorships
	// ─────────────────────────────────────────────────────────────────────────
	s.authed("POST /api/v1/mentorships", s.handleRequestMentorship)
	s.authed("GET /api/v1/mentorships", s.handleListMentorships)
	s.authed("GET /api/v1/mentorships/{id}", s.handleGetMentorship)
	s.authed("POST /api/v1/mentorships/{id}/respond", s.handleRespond)
	s.authed("POST /api/v1/mentorships/{id}/complete", s.handleComplete)
	s.authed("POST /api/v1/mentorships/{id}/cancel", s.handleCancel)
	s.authed("POST /api/v1/mentorships/{id}/goals", s.handleAddGoal)
	s.authed("POST /api/v1/mentorships/{id}/goals/{index}/complete", s.handleCompleteGoal)
	s.authed("POST /api/v1/mentorships/{id}/meetings", s.handleScheduleMeeting)
	s.authed("PATCH /api/v1/mentorships/{id}/meetings/{index}", s.handleUpdateMeeting)

	// ─────────────────────────────────────────────────────────────────────────
	// Admin (API key)
	// ─────────────────────────────────────────────────────────────────────────
	s.admin("POST /api/v1/admin/reconcile-load", s.handleReconcileLoad)
	s.admin("GET /api/v1/admin/jobs", s.handleListJobs)
}

func (s *Server) authed(pattern string, h http.HandlerFunc) {
	s.router.Handle(pattern, s.deps.JWT.Middleware(h))
}

func (s *Server) admin(pattern string, h http.HandlerFunc) {
	s.router.Handle(pattern, s.deps.AdminKey.Middleware(h))
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN
// ══════════════════════════════════════════════════════════════════════════════

// buildMiddlewareChain wraps the router with all middleware. The first
// entry is the outermost one.
func (s *Server) buildMiddlewareChain(handler http.Handler) http.Handler {
	chain := []handlers.MiddlewareFunc{
		s.requestIDMiddleware,
		s.loggingMiddleware,
		s.recoveryMiddleware,
		s.corsMiddleware(),
	}
	if s.rateLimiter != nil {
		chain = append(chain, s.rateLimitMiddleware)
	}
	chain = append(chain, handlers.SecurityHeadersMiddleware)
	if s.config.MaxBodyBytes > 0 {
		chain = append(chain, handlers.RequestSizeLimitMiddleware(s.config.MaxBodyBytes))
	}
	if s.config.RequestTimeout > 0 {
		chain = append(chain, handlers.TimeoutMiddleware(s.config.RequestTimeout))
	}
	return handlers.Chain(chain...)(handler)
}

// requestIDMiddleware adds a unique request ID to each request.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := handlers.WithRequestID(r.Context(), requestID)
		ctx = logger.WithContext(ctx, s.logger.WithRequestID(requestID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs all HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		fields := []logger.Field{
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rw.statusCode),
			logger.Latency(time.Since(start)),
			logger.String("ip", getClientIP(r)),
		}
		log := logger.FromContext(r.Context())
		if rw.statusCode >= http.StatusInternalServerError {
			log.Warn("http request", fields...)
			return
		}
		log.Info("http request", fields...)
	})
}

// recoveryMiddleware recovers from panics and returns 500.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.FromContext(r.Context()).Error("panic recovered",
					logger.Any("error", err),
					logger.String("stack", string(debug.Stack())),
					logger.String("path", r.URL.Path),
				)
				handlers.WriteError(w, r, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware answers preflight requests and sets CORS headers.
func (s *Server) corsMiddleware() handlers.MiddlewareFunc {
	c := cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Content-Type", "Authorization", s.config.APIKeyHeader, "X-Request-ID", handlers.DevUserHeader,
		},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         86400,
	})
	return c.Handler
}

// rateLimitMiddleware implements per-IP rate limiting. A limiter backend
// error lets the request through.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)

		allowed, err := s.rateLimiter.Allow(r.Context(), ip)
		if err != nil {
			logger.FromContext(r.Context()).Warn("rate limiter unavailable", logger.Err(err))
		} else if !allowed {
			w.Header().Set("Retry-After", "60")
			handlers.WriteError(w, r, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests, please try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// ErrServerRunning is returned by Start on a running server.
var ErrServerRunning = errors.New("server already running")

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrServerRunning
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return s.waitBackground(ctx)
}

// waitBackground waits for background work started by handlers.
func (s *Server) waitBackground(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      interface{}   `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version,omitempty"`
	TotalCount int       `json:"total_count,omitempty"`
	Limit      int       `json:"limit,omitempty"`
	Offset     int       `json:"offset,omitempty"`
	HasMore    bool      `json:"has_more,omitempty"`
	Cached     bool      `json:"cached,omitempty"`
}

// writeJSON writes a successful JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	s.writeJSONWithMeta(w, r, status, data, nil)
}

// writeJSONWithMeta writes a JSON response with custom metadata.
func (s *Server) writeJSONWithMeta(w http.ResponseWriter, r *http.Request, status int, data interface{}, meta *ResponseMeta) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if meta == nil {
		meta = &ResponseMeta{}
	}
	meta.Timestamp = time.Now().UTC()
	meta.Version = s.config.Version

	response := JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      meta,
		RequestID: handlers.RequestID(r.Context()),
	}

	_ = json.NewEncoder(w).Encode(response)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER TYPES AND FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// getQueryParamInt extracts a non-negative integer query parameter with a
// default value.
func getQueryParamInt(r *http.Request, key string, defaultValue int) (int, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

// getQueryParamList splits repeated and comma-separated values.
func getQueryParamList(r *http.Request, key string) []string {
	var out []string
	for _, raw := range r.URL.Query()[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

// rateLimiter is the in-process sliding window used when Redis is disabled.
type rateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	lastGC   time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		lastGC:   time.Now(),
	}
}

func (rl *rateLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.window)

	if now.Sub(rl.lastGC) > rl.window {
		rl.cleanup(windowStart)
		rl.lastGC = now
	}

	valid := prune(rl.requests[key], windowStart)
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false, nil
	}

	rl.requests[key] = append(valid, now)
	return true, nil
}

func (rl *rateLimiter) cleanup(windowStart time.Time) {
	for key, requests := range rl.requests {
		if valid := prune(requests, windowStart); len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

func prune(requests []time.Time, windowStart time.Time) []time.Time {
	valid := requests[:0]
	for _, t := range requests {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	return valid
}
