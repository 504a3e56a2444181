package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sahayak/teacher-portal/backend/internal/assignment"
	"github.com/sahayak/teacher-portal/backend/internal/auth"
	"github.com/sahayak/teacher-portal/backend/internal/config"
	"github.com/sahayak/teacher-portal/backend/internal/evaluation"
	"github.com/sahayak/teacher-portal/backend/internal/generation"
	"github.com/sahayak/teacher-portal/backend/internal/logger"
	"github.com/sahayak/teacher-portal/backend/internal/middleware"
	"github.com/sahayak/teacher-portal/backend/internal/response"
	"github.com/sahayak/teacher-portal/backend/internal/store"
)

// inflightTTL bounds how long a crashed request can block a retry.
const inflightTTL = 5 * time.Minute

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect")
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres migrate")
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect")
	}
	defer mongoClient.Disconnect(ctx)
	mongoStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes")
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect")
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb)
	guard := store.NewInflightGuard(rdb)

	// ── MinIO ────────────────────────────────────────────────
	archive, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("minio connect")
	}

	// ── AI service ───────────────────────────────────────────
	if cfg.GenerationTimeout == 0 {
		log.Warn().Msg("GENERATION_TIMEOUT_SECONDS unset; generation requests have no client deadline")
	}
	aiClient := generation.NewClient(cfg.AIServiceURL, cfg.GenerationTimeout, log)

	// ── Identity ─────────────────────────────────────────────
	gateway := auth.NewGateway(func() (auth.IdentityVerifier, error) {
		if cfg.IdentityPublicKey == "" || cfg.IdentityProjectID == "" {
			return nil, auth.ErrNotConfigured
		}
		return auth.NewJWTVerifier(cfg.IdentityPublicKey, cfg.IdentityIssuer, cfg.IdentityProjectID)
	}, sessions, pgStore, log)

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(gateway, cfg.CookieSecure)
	genHandler := generation.NewHandler(aiClient, log)
	assignSvc := assignment.NewService(mongoStore, mongoStore, assignment.NewIDGenerator(), log)
	assignHandler := assignment.NewHandler(assignSvc)
	evalHandler := evaluation.NewHandler(aiClient, aiClient, archive, log)

	requireAuth := middleware.RequireAuth(gateway, log)
	once := func(action string) func(http.Handler) http.Handler {
		return middleware.SingleFlight(guard, action, inflightTTL, log)
	}

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/session", func(r chi.Router) {
		r.Post("/", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.With(requireAuth).Get("/me", authHandler.Me)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Route("/api/generate", func(r chi.Router) {
			r.With(once("lesson-plan")).Post("/lesson-plan", genHandler.LessonPlan)
			r.With(once("quiz")).Post("/quiz", genHandler.Quiz)
			r.With(once("study-material")).Post("/study-material", genHandler.StudyMaterial)
			r.With(once("visual-aid")).Post("/visual-aid", genHandler.VisualAid)
			r.With(once("worksheet")).Post("/worksheet", genHandler.Worksheet)
		})
		r.With(once("ask")).Post("/api/ask", genHandler.Ask)

		r.Get("/api/classrooms", assignHandler.ListClassrooms)
		r.Get("/api/classrooms/{id}/contents", assignHandler.ClassroomContents)
		r.With(once("save-content")).Post("/api/contents", assignHandler.Save)
		r.Get("/api/library", assignHandler.Library)

		r.With(once("evaluate")).Post("/api/evaluations", evalHandler.Submit)
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("backend listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
