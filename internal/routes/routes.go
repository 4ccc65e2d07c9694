package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/agrimitra/agrimitra-backend/internal/handlers"
	"github.com/agrimitra/agrimitra-backend/internal/middleware"
	"github.com/agrimitra/agrimitra-backend/internal/repository"
	"github.com/agrimitra/agrimitra-backend/internal/services"
)

// SetupRoutes wires the auth API onto the router.
func SetupRoutes(r *chi.Mux, auth *handlers.AuthHandler, tokens *services.TokenService, repo repository.UserRepository) {
	r.Post("/api/auth/register", auth.Register)
	r.Post("/api/auth/verify-email", auth.VerifyEmail)
	r.Post("/api/auth/resend-otp", auth.ResendOTP)
	r.Post("/api/auth/login", auth.Login)
	r.Post("/api/auth/forgot-password", auth.ForgotPassword)
	r.Post("/api/auth/verify-reset-otp", auth.VerifyResetOTP)
	r.Post("/api/auth/reset-password", auth.ResetPassword)

	// Profile setup accepts either a bearer token or a username in the
	// body (open self-service onboarding for the mobile client).
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(tokens, repo))
		r.Post("/api/auth/setup", auth.SetupProfile)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens, repo))
		r.Get("/api/auth/me", auth.Me)
	})
}
