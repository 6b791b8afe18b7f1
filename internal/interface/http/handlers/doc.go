// Package handlers contains reusable HTTP building blocks for the API server:
// health checking, generic middleware and the per-client rate limiter.
//
// # Health Checks
//
// Named checks run in parallel, each bounded by its own timeout:
//
//	checker := handlers.NewCompositeHealthChecker("v1")
//	checker.AddCheck("store", handlers.NewPingCheck(store))
//	checker.AddCheck("redis", handlers.NewPingCheck(cache))
//
//	status := checker.Check(ctx)
//
// # Middleware
//
//	h := handlers.ChainHandler(router,
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.RequestSizeLimitMiddleware(1<<20),
//	)
//
// # Rate Limiting
//
// RateLimiter keeps one token bucket per key (the client IP):
//
//	rl := handlers.NewRateLimiter(20, 40)
//	go rl.StartCleanup(ctx, time.Minute, 10*time.Minute)
//	if !rl.Allow(handlers.ClientIP(r)) { ... }
package handlers
