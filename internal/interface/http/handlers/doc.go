// Package handlers contains the reusable HTTP pieces of the mentorship API:
// health checks, authentication and generic middleware.
//
// # Health Checks
//
// Checks run in parallel, each bounded by its own timeout. A failing
// critical check makes the service not ready; a failing optional check only
// reports it as degraded:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("postgres", handlers.NewPingCheck(db))
//	checker.AddOptionalCheck("redis", handlers.NewPingCheck(cache))
//	checker.AddOptionalCheck("scheduler", handlers.NewRunningCheck(sched))
//
// # Authentication
//
// JWTAuth verifies HS256 bearer tokens and stores the "sub" claim as the
// caller id, read back with CallerID. APIKeyAuth guards the admin routes
// with bcrypt-hashed keys:
//
//	jwtAuth := handlers.NewJWTAuth(secret, "mentorship-core")
//	admin := handlers.NewAPIKeyAuth("X-API-Key", hashes)
//	mux.Handle("POST /api/v1/admin/reconcile-load", admin.Middleware(h))
//
// # Middleware
//
//	chain := handlers.Chain(
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.RequestSizeLimitMiddleware(1<<20),
//	    handlers.TimeoutMiddleware(10*time.Second),
//	)
//	handler := chain(mux)
package handlers
