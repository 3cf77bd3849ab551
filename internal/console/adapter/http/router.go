package http

import (
	"cowork-console/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Router wires every console handler onto one fiber app.
type Router struct {
	auth    *AuthMiddleware
	items   *ItemHandler
	uploads *UploadHandler
	drafts  *DraftHandler
	ws      *WebSocketHandler
	log     logger.Logger
}

// NewRouter creates the console router.
func NewRouter(auth *AuthMiddleware, items *ItemHandler, uploads *UploadHandler, drafts *DraftHandler, ws *WebSocketHandler, log logger.Logger) *Router {
	return &Router{auth: auth, items: items, uploads: uploads, drafts: drafts, ws: ws, log: log}
}

// Register attaches middleware and routes to the app.
func (r *Router) Register(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(r.auth.CORS())
	app.Use(r.auth.RequestContext())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1", r.auth.RequireAdmin())
	r.items.RegisterRoutes(api)
	r.uploads.RegisterRoutes(api)
	r.drafts.RegisterRoutes(api)

	wsRoot := app.Group("/ws/v1", r.auth.RequireAdmin())
	r.ws.RegisterRoutes(wsRoot)
}
