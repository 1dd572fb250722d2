package http

import (
	"time"

	"github.com/case-conductor/backend/internal/config"
	"github.com/case-conductor/backend/internal/http/handlers"
	"github.com/case-conductor/backend/internal/metrics"
	"github.com/case-conductor/backend/internal/middleware"
	"github.com/case-conductor/backend/internal/rbac"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handlers struct {
	Health    *handlers.HealthHandler
	Meta      *handlers.MetaHandler
	Cycles    *handlers.CycleHandler
	Runs      *handlers.RunHandler
	Execution *handlers.ExecutionHandler
	WS        *handlers.WSHub
}

// SetupRouter registers middleware and routes. rdb may be nil, which
// disables rate limiting; gatherer may be nil, which disables /metrics.
func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	h Handlers,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))
	app.Use(middleware.MetricsMiddleware(m))

	app.Get("/health", h.Health.Health)
	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// WebSocket authenticates with ?token=
	if h.WS != nil {
		app.Use("/ws", handlers.WSUpgradeMiddleware())
		app.Get("/ws", websocket.New(h.WS.HandleWS))
	}

	api := app.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret, log))
	if rdb != nil {
		api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute, log))
	}

	view := middleware.RequirePermission(rbac.PermView)
	manage := middleware.RequirePermission(rbac.PermManage)
	remove := middleware.RequirePermission(rbac.PermDelete)
	approve := middleware.RequirePermission(rbac.PermApprove)
	assign := middleware.RequirePermission(rbac.PermAssign)
	execute := middleware.RequirePermission(rbac.PermExecute)

	// Meta
	api.Get("/me", h.Meta.GetMe)
	api.Get("/meta/staticdata", h.Meta.GetStaticData)

	// Test cycles
	api.Get("/testcycles", view, h.Cycles.List)
	api.Post("/testcycles", manage, h.Cycles.Create)
	api.Get("/testcycles/:id", view, h.Cycles.Get)
	api.Put("/testcycles/:id", manage, h.Cycles.Update)
	api.Delete("/testcycles/:id", remove, h.Cycles.Delete)
	api.Put("/testcycles/:id/approveallresults", approve, h.Cycles.ApproveAllResults)
	api.Post("/testcycles/:id/clone", manage, h.Cycles.Clone)
	api.Put("/testcycles/:id/activate", manage, h.Cycles.Activate)
	api.Put("/testcycles/:id/deactivate", manage, h.Cycles.Deactivate)
	api.Get("/testcycles/:id/testruns", view, h.Cycles.ListRuns)

	// Included test cases, assignments and results. These share the
	// /testruns prefix and must be registered before /testruns/:id.
	api.Get("/testruns/includedtestcases", view, h.Runs.ListIncluded)
	api.Get("/testruns/includedtestcases/:id", view, h.Runs.GetIncluded)
	api.Get("/testruns/includedtestcases/:id/assignments", view, h.Execution.ListAssignments)
	api.Post("/testruns/includedtestcases/:id/assignments", assign, h.Execution.Assign)

	api.Get("/testruns/assignments", view, h.Execution.ListAssignments)
	api.Get("/testruns/assignments/:id", view, h.Execution.GetAssignment)
	api.Get("/testruns/assignments/:id/results", view, h.Execution.ListResults)

	api.Get("/testruns/results", view, h.Execution.ListResults)
	api.Get("/testruns/results/:id", view, h.Execution.GetResult)
	api.Put("/testruns/results/:id/start", execute, h.Execution.Start)
	api.Put("/testruns/results/:id/finishsucceed", execute, h.Execution.FinishSucceed)
	api.Put("/testruns/results/:id/finishinvalidate", execute, h.Execution.FinishInvalidate)
	api.Put("/testruns/results/:id/finishfail", execute, h.Execution.FinishFail)
	api.Put("/testruns/results/:id/approve", approve, h.Execution.Approve)
	api.Put("/testruns/results/:id/reject", approve, h.Execution.Reject)

	// Test runs
	api.Get("/testruns", view, h.Runs.List)
	api.Post("/testruns", manage, h.Runs.Create)
	api.Get("/testruns/:id", view, h.Runs.Get)
	api.Put("/testruns/:id", manage, h.Runs.Update)
	api.Delete("/testruns/:id", remove, h.Runs.Delete)
	api.Put("/testruns/:id/approveallresults", approve, h.Runs.ApproveAllResults)
	api.Put("/testruns/:id/activate", manage, h.Runs.Activate)
	api.Put("/testruns/:id/deactivate", manage, h.Runs.Deactivate)
	api.Get("/testruns/:id/includedtestcases", view, h.Runs.ListIncluded)
	api.Post("/testruns/:id/includedtestcases", manage, h.Runs.AddCase)
}
