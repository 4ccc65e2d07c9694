package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/agrimitra/agrimitra-backend/internal/config"
	"github.com/agrimitra/agrimitra-backend/internal/database"
	"github.com/agrimitra/agrimitra-backend/internal/handlers"
	"github.com/agrimitra/agrimitra-backend/internal/middleware"
	"github.com/agrimitra/agrimitra-backend/internal/repository"
	"github.com/agrimitra/agrimitra-backend/internal/routes"
	"github.com/agrimitra/agrimitra-backend/internal/services"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	// Connect to MongoDB
	log.Printf("Connecting to MongoDB...")
	if err := database.Connect(cfg.MongoURI); err != nil {
		log.Fatal("Failed to connect to MongoDB: ", err)
	}
	defer database.Disconnect()

	// Ensure unique indexes backing the email/username invariants
	if err := repository.EnsureUserIndexes(context.Background()); err != nil {
		log.Fatal("Failed to ensure user indexes: ", err)
	}
	log.Println("✅ MongoDB user indexes ensured")

	// Connect to Redis (rate limiting)
	log.Printf("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatal("Failed to connect to Redis: ", err)
	}
	defer database.DisconnectRedis()

	// Mail collaborator (optional: OTP delivery degrades without it)
	var mailer services.EmailSender
	if cfg.SMTPHost != "" {
		mailer = services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
		log.Println("✅ SMTP mailer initialized")
	} else {
		log.Println("Warning: SMTP_HOST not set. OTP emails will not be delivered")
	}

	// Image-hosting collaborator (optional: profile images keep prior value)
	var uploader services.ImageUploader
	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		var err error
		uploader, err = services.NewCloudinaryUploader(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v", err)
		} else {
			log.Println("✅ Cloudinary uploader initialized")
		}
	} else {
		log.Println("Warning: Cloudinary credentials not found. Profile image uploads will not be available")
	}

	repo := repository.NewUserRepository()
	tokens := services.NewTokenService(cfg.JWTSecret)
	auth := services.NewAuthService(repo, mailer, uploader, tokens)
	authHandler := handlers.NewAuthHandler(auth, repo)

	// Setup router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RateLimitMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	routes.SetupRoutes(r, authHandler, tokens, repo)

	log.Printf("🚀 AgriMitra backend running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
