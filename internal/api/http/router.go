package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/matchmaking-service/internal/api/http/handlers"
	"github.com/spec-kit/matchmaking-service/internal/auth"
	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Profile        *handlers.ProfileHandler
	Members        *handlers.MembersHandler
	Requests       *handlers.RequestsHandler
	Messages       *handlers.MessagesHandler
	Notifications  *handlers.NotificationsHandler
	Packages       *handlers.PackagesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	health := app.Group("/health")
	health.Get("/live", cfg.Health.Live)
	health.Get("/ready", cfg.Health.Ready)
	health.Get("/metrics", cfg.Health.Metrics)

	public := app.Group("/auth")
	public.Post("/register", cfg.Auth.Register)
	public.Post("/login", cfg.Auth.Login)
	public.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	public.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	app.Get("/packages", cfg.Packages.List)
	app.Post("/payments/callback", cfg.Packages.Callback)

	handle, touch := cfg.AuthMiddleware.Handle, cfg.AuthMiddleware.TouchActivity

	public.Post("/logout", handle, cfg.Auth.Logout)
	public.Post("/password/change", handle, touch, cfg.Auth.ChangePassword)

	me := app.Group("/me", handle, touch)
	me.Get("", cfg.Profile.Me)
	me.Get("/dashboard", cfg.Profile.Dashboard)
	me.Put("/profile/basic", cfg.Profile.UpdateBasic)
	me.Put("/profile/personal", cfg.Profile.UpdatePersonal)
	me.Put("/profile/contact", cfg.Profile.UpdateContact)
	me.Put("/privacy", cfg.Profile.UpdatePrivacy)
	me.Put("/preferences", cfg.Profile.UpdatePreferences)
	me.Post("/photo", cfg.Profile.UploadPhoto)
	me.Post("/deactivate", cfg.Profile.Deactivate)

	members := app.Group("/members", handle, touch)
	members.Get("", cfg.Members.Search)
	members.Get("/filters", cfg.Members.FilterOptions)
	members.Get("/:id", cfg.Members.GetMember)
	members.Get("/:id/status", cfg.Members.Status)

	requests := app.Group("/requests", handle, touch)
	requests.Post("", cfg.Requests.Send)
	requests.Get("/sent", cfg.Requests.ListSent)
	requests.Get("/received", cfg.Requests.ListReceived)
	requests.Post("/respond", cfg.Requests.BulkRespond)
	requests.Post("/:id/respond", cfg.Requests.Respond)

	messages := app.Group("/messages", handle, touch)
	messages.Get("", cfg.Messages.List)
	messages.Post("", cfg.Messages.Send)
	messages.Get("/:accountId", cfg.Messages.Conversation)
	messages.Post("/:id/report", cfg.Messages.Report)

	notifications := app.Group("/notifications", handle, touch)
	notifications.Get("", cfg.Notifications.List)
	notifications.Post("/read", cfg.Notifications.MarkRead)

	app.Post("/packages/subscribe", handle, touch, cfg.Packages.Subscribe)

	admin := app.Group("/admin", handle, auth.RequireRole(domain.AccountRoleAdmin))
	admin.Patch("/accounts/:id/status", cfg.Auth.SetAccountStatus)
	admin.Post("/promo-codes", cfg.Packages.CreatePromoCode)
}
