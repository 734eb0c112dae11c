package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT VALUES
// ══════════════════════════════════════════════════════════════════════════════

// ContextKey is a type for context keys.
type ContextKey string

const (
	// ContextKeyCallerID is the context key for the authenticated caller.
	ContextKeyCallerID ContextKey = "caller_id"
	// ContextKeyRequestID is the context key for the request ID.
	ContextKeyRequestID ContextKey = "request_id"
)

// WithCallerID stores the authenticated caller in ctx.
func WithCallerID(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, ContextKeyCallerID, callerID)
}

// CallerID returns the authenticated caller, or "".
func CallerID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyCallerID).(string)
	return id
}

// WithRequestID stores the request ID in ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestID returns the request ID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}

// WriteError writes the error envelope used by every endpoint.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	body := struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		RequestID string `json:"request_id,omitempty"`
	}{RequestID: RequestID(r.Context())}
	body.Error.Code = code
	body.Error.Message = message

	_ = json.NewEncoder(w).Encode(body)
}

// ══════════════════════════════════════════════════════════════════════════════
// API KEY MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// APIKeyAuth checks a header against a set of bcrypt hashes.
type APIKeyAuth struct {
	headerName string
	hashes     [][]byte
}

// NewAPIKeyAuth creates an authenticator. Empty hashes are ignored; with no
// hashes at all every request is refused.
func NewAPIKeyAuth(headerName string, hashes []string) *APIKeyAuth {
	a := &APIKeyAuth{headerName: headerName}
	for _, h := range hashes {
		if h = strings.TrimSpace(h); h != "" {
			a.hashes = append(a.hashes, []byte(h))
		}
	}
	return a
}

// IsValid checks if an API key matches one of the hashes.
func (a *APIKeyAuth) IsValid(key string) bool {
	if key == "" {
		return false
	}
	for _, h := range a.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			return true
		}
	}
	return false
}

// Middleware returns an HTTP middleware that checks for valid API keys.
func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(a.headerName)
		if key == "" {
			WriteError(w, r, http.StatusUnauthorized, "missing_api_key", "API key is required")
			return
		}

		if !a.IsValid(key) {
			WriteError(w, r, http.StatusUnauthorized, "invalid_api_key", "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// JWT MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// DevUserHeader carries the caller id when JWTAuth runs without a secret.
const DevUserHeader = "X-User-ID"

// JWTAuth verifies HS256 bearer tokens and puts the "sub" claim into the
// request context as the caller id.
type JWTAuth struct {
	secret []byte
	issuer string
}

// NewJWTAuth creates the middleware. An empty secret switches to the
// development mode where DevUserHeader is trusted as is.
func NewJWTAuth(secret, issuer string) *JWTAuth {
	return &JWTAuth{secret: []byte(secret), issuer: issuer}
}

var errMissingSubject = errors.New("token has no subject")

// Authenticate returns the caller id carried by the request.
func (a *JWTAuth) Authenticate(r *http.Request) (string, error) {
	if len(a.secret) == 0 {
		if id := strings.TrimSpace(r.Header.Get(DevUserHeader)); id != "" {
			return id, nil
		}
		return "", errMissingSubject
	}

	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return "", jwt.ErrTokenMalformed
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errMissingSubject
	}
	return sub, nil
}

// Middleware rejects unauthenticated requests with 401.
func (a *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callerID, err := a.Authenticate(r)
		if err != nil {
			WriteError(w, r, http.StatusUnauthorized, "unauthorized", "A valid bearer token is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCallerID(r.Context(), callerID)))
	})
}

// IssueToken signs a token for subject. It is used by tests and local tooling.
func (a *JWTAuth) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ══════════════════════════════════════════════════════════════════════════════
// TIMEOUT MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// TimeoutMiddleware bounds the request context. Handlers observe the
// deadline through ctx; nothing is written on their behalf.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SECURITY HEADERS MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// SecurityHeadersMiddleware adds security-related headers.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST SIZE LIMIT MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// RequestSizeLimitMiddleware limits the size of request bodies.
func RequestSizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				WriteError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// MiddlewareFunc is a function that wraps an http.Handler.
type MiddlewareFunc func(http.Handler) http.Handler

// Chain chains multiple middleware functions. The first one is outermost.
func Chain(middlewares ...MiddlewareFunc) MiddlewareFunc {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
