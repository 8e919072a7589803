package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/GophAuth/internal/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves
// the GophAuth API.
//
// Routes:
//
//	POST /api/auth/register        → authHandler.Register
//	POST /api/auth/login           → authHandler.Login
//	POST /api/auth/forgot-password → authHandler.ForgotPassword
//	POST /api/auth/reset-password  → authHandler.ResetPassword
//	GET  /api/auth/me              → authHandler.Me (bearer token)
//	GET  /api/auth/validate        → authHandler.Validate (bearer token)
//
// Public endpoints only accept JSON and are rate limited per client IP.
func NewRouter(
	authHandler *AuthHandler,
	validator middleware.TokenValidator,
	limiter *middleware.RateLimiter,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)

	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Use(limiter.Handler)

			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(validator))

			r.Get("/me", authHandler.Me)
			r.Get("/validate", authHandler.Validate)
		})
	})

	return r
}
