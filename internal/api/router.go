package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/bridge"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/config"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/database"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/metrics"
)

const defaultBodyLimit = 16 << 20

type Dependencies struct {
	Bridge  *bridge.Bridge
	Presets *config.Presets
	// DB is pinged by /ready; nil when the audit sink is disabled
	DB database.Pinger
	// Summaries backs /v1/audit/summary; nil answers 501
	Summaries metrics.Summarizer
	// BodyLimit caps request bodies; zero means 16 MiB
	BodyLimit int
}

type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	limit := deps.BodyLimit
	if limit <= 0 {
		limit = defaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "facebridge",
		BodyLimit:    limit,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	r.app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	healthHandler := handler.NewHealthHandler(r.deps.DB)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	presets := r.deps.Presets
	if presets == nil {
		presets, _ = config.LoadPresets("")
	}

	engineHandler := handler.NewEngineHandler(r.deps.Bridge, presets, r.logger)
	scoringHandler := handler.NewScoringHandler(r.deps.Bridge)
	auditHandler := handler.NewAuditHandler(r.deps.Summaries)

	v1 := r.app.Group("/v1")

	engines := v1.Group("/engines")
	engines.Post("/", engineHandler.Initialize)
	engines.Get("/", engineHandler.List)
	engines.Delete("/:handle", engineHandler.Release)
	engines.Post("/:handle/detect", engineHandler.Detect)
	engines.Post("/:handle/encoding", engineHandler.Encoding)
	engines.Post("/:handle/liveness", engineHandler.Liveness)
	engines.Get("/:handle/errors/last", engineHandler.LastError)

	v1.Post("/encodings/compare", scoringHandler.Compare)
	v1.Post("/encodings/match", scoringHandler.Match)
	v1.Post("/quality", scoringHandler.Quality)
	v1.Get("/errors/last", scoringHandler.LastError)
	v1.Get("/audit/summary", auditHandler.Summary)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones. Engines
// are released by the caller afterwards.
func (r *Router) Shutdown() error {
	return r.app.Shutdown()
}
