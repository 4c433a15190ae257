package http

import (
	"net/http"

	"github.com/fitnease/comms/internal/application/device"
	"github.com/fitnease/comms/internal/application/email"
	"github.com/fitnease/comms/internal/application/notification"
	"github.com/fitnease/comms/internal/application/push"
	"github.com/fitnease/comms/internal/config"
	"github.com/fitnease/comms/internal/infrastructure/dynamo"
	"github.com/fitnease/comms/internal/infrastructure/expo"
	"github.com/fitnease/comms/internal/infrastructure/identity"
	jwtinfra "github.com/fitnease/comms/internal/infrastructure/jwt"
	"github.com/fitnease/comms/internal/infrastructure/smtp"
	"github.com/fitnease/comms/internal/infrastructure/sns"
	"github.com/fitnease/comms/internal/transport/http/handler"
	appmiddleware "github.com/fitnease/comms/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	NotificationRepo *dynamo.NotificationRepo
	DeviceTokenRepo  *dynamo.DeviceTokenRepo
	SettingRepo      *dynamo.SettingRepo
	Broadcaster      sns.Broadcaster
	PushGateway      expo.Gateway
	Identity         identity.Resolver
	Mailer           smtp.Mailer
	JWTProvider      *jwtinfra.Provider
}

// Services bundles the application services the router wires up, so the
// scheduler can share the notification service with the HTTP surface.
type Services struct {
	Notifications notification.Service
	Devices       device.Service
	Push          push.Service
	Email         email.Service
}

// NewServices builds the application layer from infrastructure deps.
func NewServices(deps *Deps) *Services {
	pushSvc := push.NewService(deps.DeviceTokenRepo, deps.PushGateway)
	return &Services{
		Notifications: notification.NewService(deps.NotificationRepo, deps.SettingRepo, deps.Broadcaster, pushSvc, deps.Identity),
		Devices:       device.NewService(deps.DeviceTokenRepo),
		Push:          pushSvc,
		Email:         email.NewService(deps.Mailer, deps.NotificationRepo),
	}
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps, svcs *Services) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Socket-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to the public email endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	notifH := handler.NewNotificationHandler(svcs.Notifications)
	eventH := handler.NewEventHandler(svcs.Notifications)
	settingsH := handler.NewSettingsHandler(svcs.Notifications)
	deviceH := handler.NewDeviceHandler(svcs.Devices)
	emailH := handler.NewEmailHandler(svcs.Email)

	r.Route("/comms", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/emails/verification", emailH.SendVerification)
		r.With(sensitiveRL.Limit).Post("/emails/welcome", emailH.SendWelcome)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/notifications", notifH.Send)
			r.Get("/notifications/user/{userID}", notifH.List)
			r.Get("/notifications/user/{userID}/unread-count", notifH.UnreadCount)
			r.Put("/notifications/user/{userID}/read-all", notifH.MarkAllRead)
			r.Delete("/notifications/user/{userID}", notifH.DeleteAll)
			r.Delete("/notifications/user/{userID}/email-verification", notifH.DeleteEmailVerifications)
			r.Put("/notifications/{id}/read", notifH.MarkRead)
			r.Delete("/notifications/{id}", notifH.Delete)

			r.Get("/settings/user/{userID}", settingsH.Get)
			r.Put("/settings/user/{userID}", settingsH.Update)

			r.Post("/device-tokens", deviceH.Register)
			r.Delete("/device-tokens", deviceH.Remove)
			r.Get("/device-tokens/user/{userID}", deviceH.List)
			r.Put("/device-tokens/user/{userID}/deactivate-all", deviceH.DeactivateAll)

			// Event endpoints other services call when something
			// notification-worthy happens.
			r.Post("/events/group-invitation", eventH.GroupInvitation)
			r.Post("/events/group-invite-accepted", eventH.GroupInviteAccepted)
			r.Post("/events/group-invite-declined", eventH.GroupInviteDeclined)
			r.Post("/events/group-member-kicked", eventH.GroupMemberKicked)
			r.Post("/events/achievement", eventH.Achievement)
		})
	})

	return r
}
