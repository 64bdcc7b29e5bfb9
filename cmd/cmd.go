package cmd

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"instagram-backend/internal/config"
	"instagram-backend/internal/handlers"
	"instagram-backend/internal/middleware"
	"instagram-backend/internal/repository"
	"instagram-backend/internal/services"
	"instagram-backend/internal/session"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to database
	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	if err := repository.EnsureSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare database schema")
	}
	log.Info().Msg("Database connection established")

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(db)
	documentRepo := repository.NewDocumentRepository(db)

	// Initialize services
	authService := services.NewAuthService(accountRepo, cfg.JWT.Secret, cfg.JWT.TTL)
	blobService, err := services.NewBlobService(ctx, cfg.AWS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create blob service")
	}

	var pushService *services.PushService
	if cfg.APNs.PushEnabled() {
		pushService, err = services.NewPushService(cfg.APNs)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create push service")
		}
		log.Info().Str("topic", cfg.APNs.Topic).Msg("APNs push enabled")
	}

	wsHub := services.NewWSHub()
	dispatcher := services.NewDispatcher(wsHub, pushService)

	registry := session.NewRegistry(cfg.Session.IdleTTL, cfg.Session.MaxSessions)
	go registry.Run(ctx, cfg.Session.SweepInterval)

	newController := func(ctx context.Context, sessionID string) *session.Controller {
		return session.NewController(ctx, authService.NewClient(), documentRepo, blobService,
			session.WithLogger(log.With().Str("session_id", sessionID).Logger()),
		)
	}

	// Initialize handlers
	maxUpload := cfg.Server.MaxUploadMB << 20
	sessionHandler := handlers.NewSessionHandler(registry, authService, newController, dispatcher)
	accountHandler := handlers.NewAccountHandler()
	profileHandler := handlers.NewProfileHandler(maxUpload)
	postHandler := handlers.NewPostHandler(maxUpload)
	wsHandler := handlers.NewWebSocketHandler(wsHub, authService, registry)

	// Setup router
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/sessions", sessionHandler.CreateSession)

		// Session routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionMiddleware(authService, registry))
			r.Delete("/sessions", sessionHandler.DeleteSession)
			r.Get("/state", sessionHandler.GetState)
			r.Get("/notification", sessionHandler.GetNotification)
			r.Put("/push-token", sessionHandler.RegisterPushToken)

			r.Post("/signup", accountHandler.SignUp)
			r.Post("/login", accountHandler.LogIn)
			r.Post("/logout", accountHandler.LogOut)

			r.Put("/profile", profileHandler.UpdateProfile)
			r.Post("/profile/image", profileHandler.UploadProfileImage)
			r.Get("/profile", profileHandler.FetchProfile)
			r.Get("/users/{user_id}", profileHandler.GetUserProfile)

			r.Get("/posts", postHandler.GetPosts)
			r.Post("/posts", postHandler.CreatePost)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: r,
		// Uploads go straight through to S3 inside the request.
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Int("sessions", registry.Len()).Msg("Server exited")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
