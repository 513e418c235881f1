package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/coffrefort/vault-gateway/internal/analysis"
	"github.com/coffrefort/vault-gateway/internal/config"
	"github.com/coffrefort/vault-gateway/internal/database"
	"github.com/coffrefort/vault-gateway/internal/handler"
	"github.com/coffrefort/vault-gateway/internal/mayan"
	"github.com/coffrefort/vault-gateway/internal/middleware"
	"github.com/coffrefort/vault-gateway/internal/queue"
	"github.com/coffrefort/vault-gateway/internal/repository"
	"github.com/coffrefort/vault-gateway/internal/router"
	queue_publisher "github.com/coffrefort/vault-gateway/internal/service"
	"github.com/coffrefort/vault-gateway/internal/storage"
)

func main() {
	// Absent .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	schemaCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(schemaCtx, db); err != nil {
		log.Fatalf("database: %v", err)
	}
	cancel()

	blobs, err := storage.New(cfg.StorageRoot)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	windows := repository.NewWindowRepo(db)
	docs := repository.NewDocumentRepo(db)

	ai := analysis.New(cfg.OllamaURL, cfg.OllamaModel)
	// Left nil when disabled; a typed-nil *mayan.Client would defeat the
	// handlers' nil checks.
	var edms handler.EDMS
	if cfg.MayanEnabled {
		edms = mayan.New(cfg.MayanURL, cfg.MayanUser, cfg.MayanPass)
	}

	// Redis is optional: when it is down, rate limiting and the response
	// cache turn themselves off rather than taking the service with them.
	rdb := config.NewRedisClient()
	limiter := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)
	cache := middleware.ResponseCache(config.LoadCacheConfig(), rdb)

	go func() {
		if err := queue.StartDocumentConsumer(); err != nil {
			log.Printf("queue: consumer stopped: %v", err)
		}
	}()
	go purgeSessions(sessions)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	authn := middleware.Authenticate(cfg.JWTSecret, users)
	gate := middleware.RequireAccessWindow(windows)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, sessions), limiter)
	router.RegisterUsers(e, handler.NewUserHandler(cfg, users), authn)
	router.RegisterWindows(e, handler.NewWindowHandler(users, windows), authn)
	router.RegisterDocuments(e,
		handler.NewDocumentHandler(cfg, docs, blobs, edms),
		handler.NewAnalyzeHandler(docs, blobs, ai, edms, queue_publisher.PublishDocumentAnalyzed),
		authn, gate, cache)
	router.RegisterSSO(e, handler.NewSSOHandler(cfg), authn)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// purgeSessions trims expired rows from the advisory session journal
// once an hour so the table does not grow without bound.
func purgeSessions(sessions *repository.SessionRepo) {
	for range time.Tick(time.Hour) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := sessions.PurgeExpired(ctx, time.Now().UTC())
		cancel()
		if err != nil {
			log.Printf("sessions: purge failed: %v", err)
			continue
		}
		if n > 0 {
			log.Printf("sessions: purged %d expired rows", n)
		}
	}
}
