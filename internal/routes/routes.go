package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/config"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/handlers"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/middleware"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/realtime"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	hub *realtime.Hub,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	profileHandler *handlers.ProfileHandler,
	friendshipHandler *handlers.FriendshipHandler,
	messageHandler *handlers.MessageHandler,
	intakeHandler *handlers.IntakeHandler,
	messageViews realtime.MessageViews,
	friendViews realtime.FriendViews,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth — public, with a stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)

	// Identity-scoped routes (JWT required)
	protected := api.Group("", middleware.JWTProtected(cfg))

	protected.Get("/profile", profileHandler.Get)
	protected.Put("/profile/nickname", profileHandler.UpdateNickname)
	protected.Get("/users/search", profileHandler.Search)

	protected.Get("/friends", friendshipHandler.ListFriends)
	protected.Get("/friends/requests", friendshipHandler.ListPending)
	protected.Post("/friends/requests", friendshipHandler.SendRequest)
	protected.Put("/friends/requests/:id", friendshipHandler.Respond)

	protected.Get("/messages/inbox", messageHandler.Inbox)
	protected.Get("/messages/outbox", messageHandler.Outbox)
	protected.Post("/messages", messageHandler.Send)
	protected.Put("/messages/:id/read", messageHandler.MarkRead)

	protected.Get("/intake", intakeHandler.List)
	protected.Post("/intake", intakeHandler.Record)
	protected.Get("/settings", intakeHandler.GetSettings)
	protected.Put("/settings", intakeHandler.UpdateSettings)

	// Realtime session; token is authenticated inside the handler since
	// websocket dials cannot carry an Authorization header.
	app.Use("/ws", realtime.Upgrade)
	app.Get("/ws", realtime.Handler(cfg, hub, messageViews, friendViews))
}
